// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

//go:generate go run go.uber.org/mock/mockgen -source=$GOFILE -destination=./mocks/mock_reader.go -package=mocks

// Package market is the read side of the wager client. It serves city markets
// and tickets from short-lived caches in front of the contract.
package market

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/wager/cache"
	"github.com/luxfi/wager/types"
)

const (
	DefaultMarketTTL       = 30 * time.Second
	DefaultTicketCacheSize = 1024

	// maxParallelTicketReads bounds concurrent getTicket calls per listing.
	maxParallelTicketReads = 8
)

// ErrTicketNotFound is returned for ticket ids the contract has not issued.
var ErrTicketNotFound = errors.New("ticket not found")

// Reader is the contract surface the store reads through.
type Reader interface {
	CityMarket(ctx context.Context, cityID uint64) (*types.CityMarket, error)
	TicketsForCity(ctx context.Context, cityID uint64) ([]*big.Int, error)
	Ticket(ctx context.Context, ticketID *big.Int) (*types.Ticket, error)
}

type Config struct {
	MarketTTL       time.Duration
	TicketCacheSize int
}

// Store caches markets and ticket id lists for MarketTTL and ticket details
// in an LRU. Ticket details only change when claimed, which the store learns
// about through InvalidateTicket.
type Store struct {
	reader  Reader
	logger  *zap.Logger
	markets *cache.TTLCache[uint64, *types.CityMarket]
	lists   *cache.TTLCache[uint64, []*big.Int]
	tickets *cache.LRUCache[string, *types.Ticket]
}

func NewStore(logger *zap.Logger, reader Reader, cfg Config) (*Store, error) {
	if cfg.MarketTTL == 0 {
		cfg.MarketTTL = DefaultMarketTTL
	}
	if cfg.TicketCacheSize == 0 {
		cfg.TicketCacheSize = DefaultTicketCacheSize
	}
	tickets, err := cache.NewLRUCache[string, *types.Ticket](cfg.TicketCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket cache: %w", err)
	}
	return &Store{
		reader:  reader,
		logger:  logger,
		markets: cache.NewTTLCache[uint64, *types.CityMarket](cfg.MarketTTL),
		lists:   cache.NewTTLCache[uint64, []*big.Int](cfg.MarketTTL),
		tickets: tickets,
	}, nil
}

// WithClock sets the time source of the TTL caches.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.markets.WithClock(now)
	s.lists.WithClock(now)
	return s
}

// Market returns the market of cityID, reading through the cache.
func (s *Store) Market(ctx context.Context, cityID uint64) (*types.CityMarket, error) {
	return s.market(ctx, cityID, false)
}

// RefreshMarket skips the cache and stores the fresh read.
func (s *Store) RefreshMarket(ctx context.Context, cityID uint64) (*types.CityMarket, error) {
	return s.market(ctx, cityID, true)
}

func (s *Store) market(ctx context.Context, cityID uint64, invalidate bool) (*types.CityMarket, error) {
	return s.markets.Get(cityID, func(id uint64) (*types.CityMarket, error) {
		s.logger.Debug("Fetching city market", zap.Uint64("cityID", id))
		m, err := s.reader.CityMarket(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read market of city %d: %w", id, err)
		}
		return m, nil
	}, invalidate)
}

// Markets reads the markets of several cities in parallel, in the order given.
func (s *Store) Markets(ctx context.Context, cityIDs []uint64) ([]*types.CityMarket, error) {
	out := make([]*types.CityMarket, len(cityIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelTicketReads)
	for i, id := range cityIDs {
		g.Go(func() error {
			m, err := s.Market(gctx, id)
			if err != nil {
				return err
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// TicketIDs returns the ticket ids placed on cityID.
func (s *Store) TicketIDs(ctx context.Context, cityID uint64) ([]*big.Int, error) {
	return s.lists.Get(cityID, func(id uint64) ([]*big.Int, error) {
		ids, err := s.reader.TicketsForCity(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to list tickets of city %d: %w", id, err)
		}
		return ids, nil
	}, false)
}

// Ticket returns one ticket.
func (s *Store) Ticket(ctx context.Context, ticketID *big.Int) (*types.Ticket, error) {
	if ticketID == nil || ticketID.Sign() <= 0 {
		return nil, fmt.Errorf("invalid ticket id %v", ticketID)
	}
	return s.tickets.Get(ticketID.String(), func(string) (*types.Ticket, error) {
		t, err := s.reader.Ticket(ctx, ticketID)
		if err != nil {
			return nil, fmt.Errorf("failed to read ticket %s: %w", ticketID, err)
		}
		// The contract returns a zero tuple for unknown ids; those are not cached.
		if t.Bettor == (common.Address{}) {
			return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, ticketID)
		}
		return t, nil
	}, false)
}

// Tickets returns every ticket placed on cityID in placement order. Details
// are fetched in parallel.
func (s *Store) Tickets(ctx context.Context, cityID uint64) ([]*types.Ticket, error) {
	ids, err := s.TicketIDs(ctx, cityID)
	if err != nil {
		return nil, err
	}

	out := make([]*types.Ticket, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelTicketReads)
	for i, id := range ids {
		g.Go(func() error {
			t, err := s.Ticket(gctx, id)
			if err != nil {
				return err
			}
			out[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// TicketsOf returns the tickets on cityID placed by bettor.
func (s *Store) TicketsOf(ctx context.Context, cityID uint64, bettor common.Address) ([]*types.Ticket, error) {
	all, err := s.Tickets(ctx, cityID)
	if err != nil {
		return nil, err
	}
	var out []*types.Ticket
	for _, t := range all {
		if t.Bettor == bettor {
			out = append(out, t)
		}
	}
	return out, nil
}

// Invalidate drops the cached market and ticket list of cityID.
func (s *Store) Invalidate(cityID uint64) {
	s.logger.Debug("Invalidating city market", zap.Uint64("cityID", cityID))
	s.markets.Invalidate(cityID)
	s.lists.Invalidate(cityID)
}

// InvalidateTicket drops the cached details of ticketID.
func (s *Store) InvalidateTicket(ticketID *big.Int) {
	if ticketID == nil {
		return
	}
	s.tickets.Remove(ticketID.String())
}

// Purge drops all cached markets and ticket lists.
func (s *Store) Purge() {
	s.markets.Purge()
	s.lists.Purge()
}
