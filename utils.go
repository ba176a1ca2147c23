// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package wager

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// Scale is the fixed-point factor the contract uses for payout ratios.
const Scale = 1_000_000

const etherDecimals = 18

var (
	errEmptyAmount     = errors.New("empty amount")
	errNegativeAmount  = errors.New("amount must not be negative")
	errTooManyDecimals = errors.New("amount has more than 18 decimal places")

	weiPerEther = new(big.Int).SetUint64(params.Ether)
	bigScale    = big.NewInt(Scale)
)

// ParseEther converts a decimal ether string such as "0.001" into wei.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errEmptyAmount
	}
	if strings.HasPrefix(s, "-") {
		return nil, errNegativeAmount
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid ether amount %q", s)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return nil, fmt.Errorf("invalid ether amount %q", s)
	}
	if len(frac) > etherDecimals {
		return nil, errTooManyDecimals
	}
	if whole == "" {
		whole = "0"
	}
	digits := whole + frac + strings.Repeat("0", etherDecimals-len(frac))
	wei, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid ether amount %q", s)
	}
	return wei, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatEther renders wei as a decimal ether string without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	sign := ""
	abs := new(big.Int).Set(wei)
	if abs.Sign() < 0 {
		sign = "-"
		abs.Neg(abs)
	}
	whole, frac := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))
	if frac.Sign() == 0 {
		return sign + whole.String()
	}
	fracStr := fmt.Sprintf("%018s", frac.String())
	return sign + whole.String() + "." + strings.TrimRight(fracStr, "0")
}

// FormatPayout renders wei as ether rounded half up to six decimal places.
func FormatPayout(wei *big.Int) string {
	if wei == nil {
		wei = new(big.Int)
	}
	sign := ""
	abs := new(big.Int).Set(wei)
	if abs.Sign() < 0 {
		sign = "-"
		abs.Neg(abs)
	}
	micro := abs.Add(abs, big.NewInt(500_000_000_000))
	micro.Quo(micro, big.NewInt(1_000_000_000_000))
	whole, frac := new(big.Int).QuoRem(micro, big.NewInt(1_000_000), new(big.Int))
	if whole.Sign() == 0 && frac.Sign() == 0 {
		sign = ""
	}
	return fmt.Sprintf("%s%s.%06d", sign, whole.String(), frac.Int64())
}

// EstimatePayout returns the wei paid to a winning ticket given the market's
// scaled payout ratio.
func EstimatePayout(stakeWei *big.Int, payoutRatio uint64) *big.Int {
	if stakeWei == nil || stakeWei.Sign() <= 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(stakeWei, new(big.Int).SetUint64(payoutRatio))
	return out.Quo(out, bigScale)
}

// FitsUint64 reports whether the amount can be carried in a 64-bit encrypted field.
func FitsUint64(v *big.Int) bool {
	if v == nil || v.Sign() < 0 {
		return false
	}
	u, overflow := uint256.FromBig(v)
	return !overflow && u.IsUint64()
}
