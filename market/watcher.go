// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package market

import (
	"context"
	"errors"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/luxfi/wager/contract"
	"github.com/luxfi/wager/vms/evm"
)

// DefaultSubscribeTimeout bounds the retries of opening a live subscription.
const DefaultSubscribeTimeout = 30 * time.Second

// EventParser decodes the contract's logs.
type EventParser interface {
	ParseEvent(log ethtypes.Log) (interface{}, error)
}

// LogSource yields the contract's logs, historically and live.
type LogSource interface {
	ProcessFromHeight(ctx context.Context, height uint64, handle evm.LogHandler) (uint64, error)
	Subscribe(ctx context.Context, retryTimeout time.Duration) error
	Logs() <-chan ethtypes.Log
	Err() <-chan error
	Cancel()
}

var _ LogSource = (*evm.Subscriber)(nil)

// Watcher follows contract events and drops the cache entries they make
// stale. Each decoded event is also passed to the optional handler.
type Watcher struct {
	logger  *zap.Logger
	store   *Store
	parser  EventParser
	source  LogSource
	handler func(interface{})
	// caughtUp is the last block applied historically.
	caughtUp uint64
}

func NewWatcher(logger *zap.Logger, store *Store, parser EventParser, source LogSource) *Watcher {
	return &Watcher{
		logger: logger,
		store:  store,
		parser: parser,
		source: source,
	}
}

// OnEvent sets a handler called with every decoded event, in block order.
func (w *Watcher) OnEvent(handler func(interface{})) *Watcher {
	w.handler = handler
	return w
}

// CatchUp applies every event from height to the latest block and returns
// the last processed block.
func (w *Watcher) CatchUp(ctx context.Context, height uint64) (uint64, error) {
	last, err := w.source.ProcessFromHeight(ctx, height, w.apply)
	if err != nil {
		return 0, err
	}
	w.caughtUp = last
	return last, nil
}

// Run subscribes to new events, catches up from height and then applies live
// events until ctx is done or the subscription fails. Live events at or below
// the caught up block are skipped.
func (w *Watcher) Run(ctx context.Context, height uint64, retryTimeout time.Duration) error {
	if err := w.source.Subscribe(ctx, retryTimeout); err != nil {
		return err
	}
	defer w.source.Cancel()

	if _, err := w.CatchUp(ctx, height); err != nil {
		return err
	}
	w.logger.Info("Following contract events", zap.Uint64("fromBlock", w.caughtUp+1))

	for {
		select {
		case <-ctx.Done():
			return nil
		case log := <-w.source.Logs():
			if log.BlockNumber <= w.caughtUp || log.Removed {
				continue
			}
			if err := w.apply(log); err != nil {
				return err
			}
		case err := <-w.source.Err():
			if err == nil {
				return nil
			}
			w.logger.Error("Event subscription failed", zap.Error(err))
			return err
		}
	}
}

func (w *Watcher) apply(log ethtypes.Log) error {
	event, err := w.parser.ParseEvent(log)
	if errors.Is(err, contract.ErrUnknownEvent) {
		w.logger.Debug("Skipping unknown log", zap.Stringer("txHash", log.TxHash))
		return nil
	}
	if err != nil {
		w.logger.Warn(
			"Failed to decode contract log",
			zap.Stringer("txHash", log.TxHash),
			zap.Uint64("blockNumber", log.BlockNumber),
			zap.Error(err),
		)
		return nil
	}

	switch e := event.(type) {
	case *contract.ForecastPlaced:
		w.store.Invalidate(e.CityId.Uint64())
	case *contract.CitySettled:
		w.store.Invalidate(e.CityId.Uint64())
	case *contract.ForecastPaid:
		// The event does not carry the city; paid totals of every market may
		// be stale.
		w.store.InvalidateTicket(e.TicketId)
		w.store.Purge()
	}
	if w.handler != nil {
		w.handler(event)
	}
	return nil
}
