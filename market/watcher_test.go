// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package market_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luxfi/wager/commitment"
	"github.com/luxfi/wager/contract"
	"github.com/luxfi/wager/contract/simulated"
	"github.com/luxfi/wager/market"
	"github.com/luxfi/wager/types"
	"github.com/luxfi/wager/vms/evm"
)

var (
	bookAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	bettor      = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

type watcherFixture struct {
	clock *testClock
	chain *simulated.Chain
	book  *contract.Book
	store *market.Store
}

func newWatcherFixture(t *testing.T) *watcherFixture {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	chain := simulated.New(bookAddress, simulated.WithClock(clock.Now))
	require.NoError(t, chain.CreateCityMarket(types.NewYorkCityID, types.ConditionCount, 1_700_003_600))

	book := contract.NewBook(zap.NewNop(), bookAddress, chain, chain.Account(bettor))
	return &watcherFixture{
		clock: clock,
		chain: chain,
		book:  book,
		store: newStore(t, book, clock),
	}
}

func (f *watcherFixture) place(t *testing.T, seed byte) {
	enc := &types.EncryptedForecast{
		ConditionHandle: common.BytesToHash([]byte{seed, 1}),
		StakeHandle:     common.BytesToHash([]byte{seed, 2}),
		Proof:           []byte{seed},
	}
	c := commitment.ForForecast(bettor, types.NewYorkCityID, enc)
	_, err := f.book.PlaceForecast(context.Background(), types.NewYorkCityID, enc, c, big.NewInt(1_000_000_000_000_000), 5_000_000)
	require.NoError(t, err)
}

func TestWatcherCatchUp(t *testing.T) {
	require := require.New(t)
	f := newWatcherFixture(t)
	ctx := context.Background()

	m, err := f.store.Market(ctx, types.NewYorkCityID)
	require.NoError(err)
	require.Zero(m.TotalDepositedWei.Sign())

	f.place(t, 1)

	// Placed outside the store, so the cached market is stale.
	m, err = f.store.Market(ctx, types.NewYorkCityID)
	require.NoError(err)
	require.Zero(m.TotalDepositedWei.Sign())

	var events []interface{}
	source := evm.NewSubscriber(zap.NewNop(), f.chain, nil, bookAddress, contract.EventTopics())
	w := market.NewWatcher(zap.NewNop(), f.store, f.book, source).OnEvent(func(e interface{}) {
		events = append(events, e)
	})

	last, err := w.CatchUp(ctx, 0)
	require.NoError(err)
	require.Len(events, 1)
	placed, ok := events[0].(*contract.ForecastPlaced)
	require.True(ok)
	require.Equal(int64(1), placed.TicketId.Int64())

	m, err = f.store.Market(ctx, types.NewYorkCityID)
	require.NoError(err)
	require.Equal(int64(1_000_000_000_000_000), m.TotalDepositedWei.Int64())

	f.clock.Advance(2 * time.Hour)
	require.NoError(f.chain.SettleCity(types.NewYorkCityID, types.Sunny, 2_000_000))

	_, err = w.CatchUp(ctx, last+1)
	require.NoError(err)
	require.Len(events, 2)
	settled, ok := events[1].(*contract.CitySettled)
	require.True(ok)
	require.Equal(uint8(types.Sunny), settled.WinningCondition)

	m, err = f.store.Market(ctx, types.NewYorkCityID)
	require.NoError(err)
	require.True(m.Settled)
}

// liveSource replays fixed historical logs and then serves logs pushed on a
// channel.
type liveSource struct {
	historical []ethtypes.Log
	latest     uint64
	logs       chan ethtypes.Log
	errs       chan error
	subscribed bool
	cancelled  bool
}

func (s *liveSource) ProcessFromHeight(_ context.Context, height uint64, handle evm.LogHandler) (uint64, error) {
	for _, log := range s.historical {
		if log.BlockNumber < height {
			continue
		}
		if err := handle(log); err != nil {
			return 0, err
		}
	}
	return s.latest, nil
}

func (s *liveSource) Subscribe(context.Context, time.Duration) error {
	s.subscribed = true
	return nil
}

func (s *liveSource) Logs() <-chan ethtypes.Log { return s.logs }

func (s *liveSource) Err() <-chan error { return s.errs }

func (s *liveSource) Cancel() { s.cancelled = true }

func TestWatcherRun(t *testing.T) {
	require := require.New(t)
	f := newWatcherFixture(t)

	f.place(t, 1)
	f.place(t, 2)
	logs := f.chain.Logs()
	require.Len(logs, 2)

	first, second := logs[0], logs[1]
	first.BlockNumber = 5
	second.BlockNumber = 6

	source := &liveSource{
		historical: []ethtypes.Log{first},
		latest:     5,
		logs:       make(chan ethtypes.Log, 4),
		errs:       make(chan error, 1),
	}

	seen := make(chan *contract.ForecastPlaced, 4)
	w := market.NewWatcher(zap.NewNop(), f.store, f.book, source).OnEvent(func(e interface{}) {
		if placed, ok := e.(*contract.ForecastPlaced); ok {
			seen <- placed
		}
	})

	// The live copy of the caught up log is skipped.
	source.logs <- first
	source.logs <- second
	source.logs <- ethtypes.Log{BlockNumber: 7, Address: bookAddress}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, 0, time.Second)
	}()

	require.Equal(int64(1), (<-seen).TicketId.Int64())
	require.Equal(int64(2), (<-seen).TicketId.Int64())
	cancel()
	require.NoError(<-done)
	require.Empty(seen)
	require.True(source.subscribed)
	require.True(source.cancelled)
}

func TestWatcherRunSameBlock(t *testing.T) {
	require := require.New(t)
	f := newWatcherFixture(t)

	f.place(t, 1)
	f.place(t, 2)
	logs := f.chain.Logs()
	require.Len(logs, 2)

	// Both placements land in one live block after the caught up height.
	first, second := logs[0], logs[1]
	first.BlockNumber = 10
	second.BlockNumber = 10

	source := &liveSource{
		latest: 5,
		logs:   make(chan ethtypes.Log, 2),
		errs:   make(chan error, 1),
	}
	seen := make(chan *contract.ForecastPlaced, 2)
	w := market.NewWatcher(zap.NewNop(), f.store, f.book, source).OnEvent(func(e interface{}) {
		if placed, ok := e.(*contract.ForecastPlaced); ok {
			seen <- placed
		}
	})
	source.logs <- first
	source.logs <- second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, 0, time.Second)
	}()

	require.Equal(int64(1), (<-seen).TicketId.Int64())
	require.Equal(int64(2), (<-seen).TicketId.Int64())
	cancel()
	require.NoError(<-done)
}

func TestWatcherSubscriptionError(t *testing.T) {
	f := newWatcherFixture(t)
	source := &liveSource{
		logs: make(chan ethtypes.Log),
		errs: make(chan error, 1),
	}
	source.errs <- context.DeadlineExceeded

	w := market.NewWatcher(zap.NewNop(), f.store, f.book, source)
	require.ErrorIs(t, w.Run(context.Background(), 0, time.Second), context.DeadlineExceeded)
}
