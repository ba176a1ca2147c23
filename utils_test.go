// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package wager

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{input: "0.001", expected: "1000000000000000"},
		{input: "1", expected: "1000000000000000000"},
		{input: "1.5", expected: "1500000000000000000"},
		{input: ".25", expected: "250000000000000000"},
		{input: "0.000000000000000001", expected: "1"},
		{input: "0.0000000000000000001", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "1.", expected: "1000000000000000000"},
		{input: ".", wantErr: true},
		{input: "+1", wantErr: true},
		{input: "1.+5", wantErr: true},
		{input: "1_000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require := require.New(t)
			wei, err := ParseEther(tt.input)
			if tt.wantErr {
				require.Error(err)
				return
			}
			require.NoError(err)
			require.Equal(tt.expected, wei.String())
		})
	}
}

func TestFormatEther(t *testing.T) {
	require := require.New(t)

	require.Equal("0.001", FormatEther(big.NewInt(1_000_000_000_000_000)))
	require.Equal("2", FormatEther(new(big.Int).Mul(big.NewInt(2), weiPerEther)))
	require.Equal("0", FormatEther(nil))
}

func TestFormatPayout(t *testing.T) {
	tests := []struct {
		wei      *big.Int
		expected string
	}{
		{wei: nil, expected: "0.000000"},
		{wei: big.NewInt(123_456_789_000_000_000), expected: "0.123457"},
		{wei: big.NewInt(123_456_499_999_999_999), expected: "0.123456"},
		{wei: big.NewInt(500_000_000_000), expected: "0.000001"},
		{wei: big.NewInt(499_999_999_999), expected: "0.000000"},
		{wei: big.NewInt(1_999_999_600_000_000_000), expected: "2.000000"},
		{wei: big.NewInt(-1_500_000_000_000_000_000), expected: "-1.500000"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			require.Equal(t, tt.expected, FormatPayout(tt.wei))
		})
	}
}

func TestEstimatePayout(t *testing.T) {
	require := require.New(t)

	stake := big.NewInt(5_000_000_000_000)
	// A ratio of 1.8x the stake.
	require.Equal(big.NewInt(9_000_000_000_000), EstimatePayout(stake, 1_800_000))
	require.Equal(0, EstimatePayout(big.NewInt(0), 1_800_000).Sign())
}

func TestFitsUint64(t *testing.T) {
	require := require.New(t)

	require.True(FitsUint64(big.NewInt(1)))
	require.True(FitsUint64(new(big.Int).SetUint64(^uint64(0))))
	require.False(FitsUint64(new(big.Int).Lsh(big.NewInt(1), 64)))
	require.False(FitsUint64(big.NewInt(-1)))
}

func TestErrorMatching(t *testing.T) {
	require := require.New(t)

	err := fmt.Errorf("submit: %w", &Error{
		Kind:    KindTransactionReverted,
		Reason:  ReasonDuplicateCommitment,
		Message: "execution reverted: Commitment used",
	})
	require.ErrorIs(err, ErrTransactionReverted)
	require.ErrorIs(err, &Error{Kind: KindTransactionReverted, Reason: ReasonDuplicateCommitment})
	require.NotErrorIs(err, &Error{Kind: KindTransactionReverted, Reason: ReasonMarketLocked})
	require.NotErrorIs(err, ErrValidation)

	wagerErr, ok := AsError(err)
	require.True(ok)
	require.Equal(ReasonDuplicateCommitment, wagerErr.Reason)

	inner := errors.New("boom")
	require.ErrorIs(Wrap(KindNetwork, ReasonNone, inner), inner)
	require.Nil(Wrap(KindNetwork, ReasonNone, nil))
}
