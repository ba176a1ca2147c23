// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package fhe

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/types"
)

// Encryptor turns a plaintext (condition, stake) pair into two ciphertext
// handles and a proof. Results are never cached: every call produces a fresh
// pair bound to one contract and one user.
type Encryptor struct {
	provider *Provider
	logger   *zap.Logger
}

func NewEncryptor(logger *zap.Logger, provider *Provider) *Encryptor {
	return &Encryptor{
		provider: provider,
		logger:   logger,
	}
}

// ValidateForecastInput checks the encryptor preconditions without touching
// the backend.
func ValidateForecastInput(condition types.Condition, stakeWei *big.Int) error {
	if !condition.Valid() {
		return wager.NewValidationError(
			wager.ReasonInvalidInput,
			"condition %d out of range [0,%d]", uint8(condition), types.ConditionCount-1,
		)
	}
	if stakeWei == nil || stakeWei.Sign() <= 0 {
		return wager.NewValidationError(wager.ReasonZeroStake, "stake must be positive")
	}
	if !wager.FitsUint64(stakeWei) {
		return wager.NewValidationError(
			wager.ReasonInvalidInput,
			"stake %s wei does not fit a 64-bit encrypted field", stakeWei,
		)
	}
	return nil
}

// Encrypt validates the input, waits for the backend and encrypts condition
// as an 8-bit field followed by stake as a 64-bit field. The contract decodes
// the fields positionally.
func (e *Encryptor) Encrypt(
	ctx context.Context,
	contractAddress common.Address,
	userAddress common.Address,
	condition types.Condition,
	stakeWei *big.Int,
) (*types.EncryptedForecast, error) {
	if err := ValidateForecastInput(condition, stakeWei); err != nil {
		return nil, err
	}

	instance, err := e.provider.EnsureReady(ctx)
	if err != nil {
		if _, ok := wager.AsError(err); ok {
			return nil, err
		}
		return nil, wager.Wrap(wager.KindBackendInit, wager.ReasonNone, err)
	}

	e.logger.Debug(
		"Encrypting forecast payload",
		zap.Stringer("contractAddress", contractAddress),
		zap.Stringer("userAddress", userAddress),
		zap.Stringer("condition", condition),
		zap.String("stakeWei", stakeWei.String()),
	)

	input := instance.CreateEncryptedInput(contractAddress, userAddress)
	input.Add8(uint8(condition))
	input.Add64(stakeWei.Uint64())

	out, err := input.Encrypt(ctx)
	if err != nil {
		e.logger.Error("Failed to encrypt forecast", zap.Error(err))
		return nil, wager.Wrap(wager.KindEncryption, wager.ReasonNone, fmt.Errorf("failed to encrypt forecast: %w", err))
	}
	enc, err := toEncryptedForecast(out)
	if err != nil {
		e.logger.Error("Backend returned malformed encrypted input", zap.Error(err))
		return nil, wager.Wrap(wager.KindEncryption, wager.ReasonNone, err)
	}

	e.logger.Debug(
		"Encrypted forecast payload",
		zap.String("conditionHandle", enc.ConditionHandleHex()),
		zap.String("stakeHandle", enc.StakeHandleHex()),
		zap.Int("proofLength", len(enc.Proof)),
	)
	return enc, nil
}

func toEncryptedForecast(out *EncryptedInput) (*types.EncryptedForecast, error) {
	if out == nil {
		return nil, fmt.Errorf("backend returned no encrypted input")
	}
	if len(out.Handles) != 2 {
		return nil, fmt.Errorf("expected 2 handles, got %d", len(out.Handles))
	}
	for i, h := range out.Handles {
		if len(h) != HandleLen {
			return nil, fmt.Errorf("handle %d has length %d, expected %d", i, len(h), HandleLen)
		}
	}
	if len(out.Proof) == 0 {
		return nil, fmt.Errorf("backend returned an empty proof")
	}
	proof := make([]byte, len(out.Proof))
	copy(proof, out.Proof)
	return &types.EncryptedForecast{
		ConditionHandle: common.BytesToHash(out.Handles[0]),
		StakeHandle:     common.BytesToHash(out.Handles[1]),
		Proof:           proof,
	}, nil
}
