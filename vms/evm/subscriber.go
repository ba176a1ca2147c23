// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evm

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/luxfi/wager/utils"
)

const (
	// Max buffer size for ethereum subscription channels
	maxClientSubscriptionBuffer = 20000
	MaxBlocksPerRequest         = 200
)

var (
	ErrFailedToProcessLogs = errors.New("failed to process logs")
	errNotSubscribed       = errors.New("subscriber is not subscribed")
)

// LogReader is the part of Client the subscriber needs for historical logs.
type LogReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// LogHandler consumes one log. Returning an error stops processing.
type LogHandler func(types.Log) error

// Subscriber reads the logs a contract emits, historically over bounded block
// ranges and live over a websocket subscription.
type Subscriber struct {
	rpcClient LogReader
	wsClient  ethereum.LogFilterer
	address   common.Address
	topics    [][]common.Hash
	logs      chan types.Log
	sub       ethereum.Subscription
	logger    *zap.Logger
}

// NewSubscriber returns a subscriber for the logs of address matching
// topics. wsClient may be nil if only historical processing is used.
func NewSubscriber(
	logger *zap.Logger,
	rpcClient LogReader,
	wsClient ethereum.LogFilterer,
	address common.Address,
	topics [][]common.Hash,
) *Subscriber {
	return &Subscriber{
		rpcClient: rpcClient,
		wsClient:  wsClient,
		address:   address,
		topics:    topics,
		logs:      make(chan types.Log, maxClientSubscriptionBuffer),
		logger:    logger.With(zap.Stringer("contractAddress", address)),
	}
}

// ProcessFromHeight passes every matching log from height to the latest block
// to handle, in block order. Limits the number of blocks retrieved in a single
// eth_getLogs request to MaxBlocksPerRequest; if processing more than that,
// multiple eth_getLogs requests are made. It returns the last processed block.
func (s *Subscriber) ProcessFromHeight(ctx context.Context, height uint64, handle LogHandler) (uint64, error) {
	s.logger.Info(
		"Processing historical logs",
		zap.Uint64("fromBlockHeight", height),
	)

	// Grab the latest block before filtering logs so the range is fixed
	latestBlockHeightCtx, latestBlockHeightCtxCancel := context.WithTimeout(ctx, utils.DefaultRPCTimeout)
	defer latestBlockHeightCtxCancel()
	latestBlockHeight, err := s.rpcClient.BlockNumber(latestBlockHeightCtx)
	if err != nil {
		s.logger.Error(
			"Failed to get latest block",
			zap.Error(err),
		)
		return 0, err
	}
	if height > latestBlockHeight {
		return latestBlockHeight, nil
	}

	for fromBlock := height; fromBlock <= latestBlockHeight; fromBlock += MaxBlocksPerRequest {
		toBlock := min(fromBlock+MaxBlocksPerRequest-1, latestBlockHeight)
		if err := s.processBlockRange(ctx, fromBlock, toBlock, handle); err != nil {
			s.logger.Error("Failed to process block range", zap.Error(err))
			return 0, err
		}
	}
	return latestBlockHeight, nil
}

// Process logs from the block range [fromBlock, toBlock], inclusive
func (s *Subscriber) processBlockRange(
	ctx context.Context,
	fromBlock, toBlock uint64,
	handle LogHandler,
) error {
	logs, err := s.getFilterLogsByBlockRangeRetryable(ctx, fromBlock, toBlock)
	if err != nil {
		return err
	}
	for _, log := range logs {
		if err := handle(log); err != nil {
			return err
		}
	}
	return nil
}

func (s *Subscriber) getFilterLogsByBlockRangeRetryable(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	operation := func() (err error) {
		cctx, cancel := context.WithTimeout(ctx, utils.DefaultRPCTimeout)
		defer cancel()
		logs, err = s.rpcClient.FilterLogs(cctx, s.filterQuery(fromBlock, toBlock))
		return err
	}
	err := utils.WithRetriesTimeout(s.logger, operation, utils.DefaultRPCTimeout, "get filter logs by block range")
	if err != nil {
		s.logger.Error(
			"Failed to get filter logs by block range",
			zap.Uint64("fromBlock", fromBlock),
			zap.Uint64("toBlock", toBlock),
			zap.Error(err),
		)
		return nil, ErrFailedToProcessLogs
	}
	return logs, nil
}

func (s *Subscriber) filterQuery(fromBlock, toBlock uint64) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Addresses: []common.Address{s.address},
		Topics:    s.topics,
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
	}
}

// Subscribe opens a live log subscription, retrying until retryTimeout.
func (s *Subscriber) Subscribe(ctx context.Context, retryTimeout time.Duration) error {
	if s.wsClient == nil {
		return errors.New("no websocket client configured")
	}
	// Unsubscribe before resubscribing
	if s.sub != nil {
		s.sub.Unsubscribe()
	}

	var sub ethereum.Subscription
	operation := func() (err error) {
		cctx, cancel := context.WithTimeout(ctx, utils.DefaultRPCTimeout)
		defer cancel()
		sub, err = s.wsClient.SubscribeFilterLogs(cctx, ethereum.FilterQuery{
			Addresses: []common.Address{s.address},
			Topics:    s.topics,
		}, s.logs)
		return err
	}
	err := utils.WithRetriesTimeout(s.logger, operation, retryTimeout, "subscribe")
	if err != nil {
		s.logger.Error(
			"Failed to subscribe to node",
			zap.Error(err),
		)
		return errors.New("failed to subscribe to node")
	}
	s.sub = sub
	return nil
}

func (s *Subscriber) Logs() <-chan types.Log {
	return s.logs
}

func (s *Subscriber) Err() <-chan error {
	if s.sub == nil {
		errCh := make(chan error, 1)
		errCh <- errNotSubscribed
		return errCh
	}
	return s.sub.Err()
}

func (s *Subscriber) Cancel() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
}
