// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

// Package commitment derives the replay-protection hash the WeatherWagerBook
// contract recomputes before accepting a forecast.
//
// The preimage is the Solidity abi.encodePacked encoding of
//
//	(address bettor, uint256 cityId, bytes32 conditionHandle, bytes32 stakeHandle)
//
// which is 20 + 32 + 32 + 32 = 116 bytes, hashed with keccak256.
package commitment

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/luxfi/wager/types"
)

// PackedLen is the length of the packed preimage.
const PackedLen = common.AddressLength + 3*common.HashLength

// Pack returns the packed preimage.
func Pack(bettor common.Address, cityID uint64, conditionHandle, stakeHandle common.Hash) []byte {
	city := uint256.NewInt(cityID).Bytes32()

	out := make([]byte, 0, PackedLen)
	out = append(out, bettor.Bytes()...)
	out = append(out, city[:]...)
	out = append(out, conditionHandle.Bytes()...)
	out = append(out, stakeHandle.Bytes()...)
	return out
}

// Build computes keccak256(bettor ‖ cityId ‖ conditionHandle ‖ stakeHandle).
func Build(bettor common.Address, cityID uint64, conditionHandle, stakeHandle common.Hash) types.Commitment {
	return crypto.Keccak256Hash(Pack(bettor, cityID, conditionHandle, stakeHandle))
}

// ForForecast builds the commitment for an encrypted forecast.
func ForForecast(bettor common.Address, cityID uint64, enc *types.EncryptedForecast) types.Commitment {
	return Build(bettor, cityID, enc.ConditionHandle, enc.StakeHandle)
}

// Verify recomputes the commitment and compares it with c.
func Verify(c types.Commitment, bettor common.Address, cityID uint64, conditionHandle, stakeHandle common.Hash) bool {
	return Build(bettor, cityID, conditionHandle, stakeHandle) == c
}
