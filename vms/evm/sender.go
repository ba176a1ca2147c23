// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/luxfi/wager/utils"
	"github.com/luxfi/wager/vms/evm/signer"
)

const (
	// If the max base fee is not explicitly set, use 3x the current base fee estimate
	defaultBaseFeeFactor      = 3
	defaultTxInclusionTimeout = 2 * time.Minute
)

var (
	ErrTxReverted = errors.New("transaction reverted")
	errNoBaseFee  = errors.New("latest header has no base fee")
	errNilReceipt = errors.New("node returned no receipt")
	errNilChainID = errors.New("node returned no chain id")
)

// SenderConfig bounds the fees and the wait of sent transactions. Zero values
// select the defaults.
type SenderConfig struct {
	MaxBaseFee           *big.Int
	MaxPriorityFeePerGas *big.Int
	TxInclusionTimeout   time.Duration
}

// Sender signs and broadcasts transactions from one account and waits for
// their receipts.
type Sender struct {
	client               Client
	nonceLock            sync.Mutex
	signer               signer.Signer
	evmChainID           *big.Int
	currentNonce         uint64
	maxBaseFee           *big.Int
	maxPriorityFeePerGas *big.Int
	txInclusionTimeout   time.Duration
	logger               *zap.Logger
}

func NewSender(
	ctx context.Context,
	logger *zap.Logger,
	client Client,
	sgnr signer.Signer,
	cfg SenderConfig,
) (*Sender, error) {
	logger = logger.With(zap.Stringer("senderAddress", sgnr.Address()))

	chainCtx, chainCancel := context.WithTimeout(ctx, utils.DefaultRPCTimeout)
	defer chainCancel()
	evmChainID, err := client.ChainID(chainCtx)
	if err != nil {
		logger.Error(
			"Failed to get chain ID",
			zap.Error(err),
		)
		return nil, err
	}
	if evmChainID == nil {
		return nil, errNilChainID
	}

	// Construct txs using the pending nonce to account for txs still in the mempool
	nonceCtx, nonceCancel := context.WithTimeout(ctx, utils.DefaultRPCTimeout)
	defer nonceCancel()
	pendingNonce, err := client.PendingNonceAt(nonceCtx, sgnr.Address())
	if err != nil {
		logger.Error(
			"Failed to get pending nonce",
			zap.Error(err),
		)
		return nil, err
	}

	s := &Sender{
		client:               client,
		signer:               sgnr,
		evmChainID:           evmChainID,
		currentNonce:         pendingNonce,
		maxBaseFee:           new(big.Int),
		maxPriorityFeePerGas: new(big.Int),
		txInclusionTimeout:   defaultTxInclusionTimeout,
		logger:               logger,
	}
	if cfg.MaxBaseFee != nil {
		s.maxBaseFee.Set(cfg.MaxBaseFee)
	}
	if cfg.MaxPriorityFeePerGas != nil {
		s.maxPriorityFeePerGas.Set(cfg.MaxPriorityFeePerGas)
	}
	if cfg.TxInclusionTimeout > 0 {
		s.txInclusionTimeout = cfg.TxInclusionTimeout
	}

	logger.Info(
		"Initialized sender",
		zap.String("evmChainID", evmChainID.String()),
		zap.Uint64("pendingNonce", pendingNonce),
	)
	return s, nil
}

func (s *Sender) SenderAddress() common.Address {
	return s.signer.Address()
}

func (s *Sender) ChainID() *big.Int {
	return new(big.Int).Set(s.evmChainID)
}

// resyncNonce reloads the pending nonce after a failed broadcast. It must be
// called with nonceLock held. The local nonce is kept if the node cannot be
// reached.
func (s *Sender) resyncNonce(ctx context.Context) {
	nonceCtx, nonceCancel := context.WithTimeout(context.WithoutCancel(ctx), utils.DefaultRPCTimeout)
	defer nonceCancel()
	pendingNonce, err := s.client.PendingNonceAt(nonceCtx, s.signer.Address())
	if err != nil {
		s.logger.Warn(
			"Failed to resync pending nonce",
			zap.Uint64("nonce", s.currentNonce),
			zap.Error(err),
		)
		return
	}
	if pendingNonce != s.currentNonce {
		s.logger.Info(
			"Resynced pending nonce",
			zap.Uint64("previousNonce", s.currentNonce),
			zap.Uint64("pendingNonce", pendingNonce),
		)
	}
	s.currentNonce = pendingNonce
}

// SendTx simulates the call, then constructs, signs and broadcasts a dynamic
// fee transaction and waits for its receipt. A call that fails simulation is
// never broadcast and its revert error is returned as is. If the maximum base
// fee is not configured, it is the latest base fee multiplied by the default
// base fee factor. The priority fee is the suggested tip capped by the
// configured maximum.
func (s *Sender) SendTx(
	ctx context.Context,
	to common.Address,
	value *big.Int,
	gasLimit uint64,
	callData []byte,
) (*types.Receipt, error) {
	if value == nil {
		value = new(big.Int)
	}
	msg := ethereum.CallMsg{
		From:  s.signer.Address(),
		To:    &to,
		Gas:   gasLimit,
		Value: value,
		Data:  callData,
	}

	simulateCtx, simulateCancel := context.WithTimeout(ctx, utils.DefaultRPCTimeout)
	defer simulateCancel()
	if _, err := s.client.CallContract(simulateCtx, msg, nil); err != nil {
		s.logger.Warn(
			"Transaction simulation failed",
			zap.Stringer("to", to),
			zap.Error(err),
		)
		return nil, err
	}

	gasFeeCap, gasTipCap, err := s.fees(ctx)
	if err != nil {
		return nil, err
	}

	// Synchronize nonce access so that we send transactions in nonce order.
	s.nonceLock.Lock()

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.evmChainID,
		Nonce:     s.currentNonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      callData,
	})

	signedTx, err := s.signer.SignTx(tx, s.evmChainID)
	if err != nil {
		s.nonceLock.Unlock()
		s.logger.Error(
			"Failed to sign transaction",
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info(
		"Sending transaction",
		zap.Stringer("txID", signedTx.Hash()),
		zap.Uint64("nonce", s.currentNonce),
		zap.String("value", value.String()),
		zap.Uint64("gasLimit", gasLimit),
	)

	sendTxCtx, sendTxCancel := context.WithTimeout(ctx, utils.DefaultRPCTimeout)
	defer sendTxCancel()
	if err := s.client.SendTransaction(sendTxCtx, signedTx); err != nil {
		s.logger.Error(
			"Failed to send transaction",
			zap.Error(err),
		)
		// The node may have accepted the transaction before the error, so
		// the local nonce is only trusted again once the node confirms it.
		s.resyncNonce(ctx)
		s.nonceLock.Unlock()
		return nil, err
	}
	s.currentNonce++
	s.nonceLock.Unlock()

	receipt, err := s.waitForReceipt(ctx, signedTx.Hash())
	if err != nil {
		s.logger.Error(
			"Failed to get transaction receipt",
			zap.Stringer("txID", signedTx.Hash()),
			zap.Error(err),
		)
		return nil, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		reason := s.revertReason(ctx, msg, receipt.BlockNumber)
		s.logger.Warn(
			"Transaction reverted",
			zap.Stringer("txID", signedTx.Hash()),
			zap.Error(reason),
		)
		if reason != nil {
			return receipt, fmt.Errorf("%w: %s: %w", ErrTxReverted, signedTx.Hash(), reason)
		}
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, signedTx.Hash())
	}

	s.logger.Info(
		"Transaction confirmed",
		zap.Stringer("txID", signedTx.Hash()),
		zap.Stringer("blockNumber", receipt.BlockNumber),
		zap.Uint64("gasUsed", receipt.GasUsed),
	)
	return receipt, nil
}

func (s *Sender) fees(ctx context.Context) (gasFeeCap *big.Int, gasTipCap *big.Int, err error) {
	// If the max base fee isn't explicitly set, then default to fetching the
	// current base fee and multiply it by `BaseFeeFactor` to allow for
	// an increase prior to the transaction being included in a block.
	var maxBaseFee *big.Int
	if s.maxBaseFee.Sign() > 0 {
		maxBaseFee = s.maxBaseFee
	} else {
		headerCtx, headerCancel := context.WithTimeout(ctx, utils.DefaultRPCTimeout)
		defer headerCancel()
		header, err := s.client.HeaderByNumber(headerCtx, nil)
		if err != nil {
			s.logger.Error(
				"Failed to get latest header",
				zap.Error(err),
			)
			return nil, nil, err
		}
		if header.BaseFee == nil {
			return nil, nil, errNoBaseFee
		}
		maxBaseFee = new(big.Int).Mul(header.BaseFee, big.NewInt(defaultBaseFeeFactor))
	}

	tipCtx, tipCancel := context.WithTimeout(ctx, utils.DefaultRPCTimeout)
	defer tipCancel()
	gasTipCap, err = s.client.SuggestGasTipCap(tipCtx)
	if err != nil {
		s.logger.Error(
			"Failed to get gas tip cap",
			zap.Error(err),
		)
		return nil, nil, err
	}
	if s.maxPriorityFeePerGas.Sign() > 0 && gasTipCap.Cmp(s.maxPriorityFeePerGas) > 0 {
		gasTipCap = s.maxPriorityFeePerGas
	}
	return new(big.Int).Add(maxBaseFee, gasTipCap), gasTipCap, nil
}

func (s *Sender) waitForReceipt(
	ctx context.Context,
	txHash common.Hash,
) (*types.Receipt, error) {
	var receipt *types.Receipt
	operation := func() (err error) {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		callCtx, callCtxCancel := context.WithTimeout(ctx, utils.DefaultRPCTimeout)
		defer callCtxCancel()
		receipt, err = s.client.TransactionReceipt(callCtx, txHash)
		if err == nil && receipt == nil {
			return errNilReceipt
		}
		return err
	}
	err := utils.WithRetriesTimeout(s.logger, operation, s.txInclusionTimeout, "waitForReceipt")
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// revertReason replays the call at the block the transaction was mined in;
// the node reports the revert string on failure.
func (s *Sender) revertReason(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) error {
	callCtx, callCancel := context.WithTimeout(ctx, utils.DefaultRPCTimeout)
	defer callCancel()
	_, err := s.client.CallContract(callCtx, msg, blockNumber)
	return err
}
