// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Commitment is the replay-protection hash binding a bettor, a city and one
// pair of encrypted handles.
type Commitment = common.Hash

// ForecastParams is the plaintext input to a submission.
type ForecastParams struct {
	CityID    uint64
	Condition Condition
	StakeWei  *big.Int
}

// EncryptedForecast is produced once per submission attempt and must not be
// reused: the proof is bound to exactly these handles.
type EncryptedForecast struct {
	ConditionHandle common.Hash   `json:"conditionHandle"`
	StakeHandle     common.Hash   `json:"stakeHandle"`
	Proof           hexutil.Bytes `json:"proof"`
}

func (e *EncryptedForecast) ConditionHandleHex() string {
	return e.ConditionHandle.Hex()
}

func (e *EncryptedForecast) StakeHandleHex() string {
	return e.StakeHandle.Hex()
}

func (e *EncryptedForecast) ProofHex() string {
	return e.Proof.String()
}
