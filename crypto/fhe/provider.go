// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package fhe

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/utils"
)

const (
	DefaultInitAttempts   = 3
	DefaultInitRetryDelay = time.Second
	DefaultInitTimeout    = 60 * time.Second
)

// ProviderConfig bounds backend initialization.
type ProviderConfig struct {
	Network NetworkConfig
	// Attempts is the number of initialization attempts before giving up.
	Attempts uint64
	// RetryDelay is the fixed spacing between attempts.
	RetryDelay time.Duration
	// AttemptTimeout bounds a single attempt.
	AttemptTimeout time.Duration
}

func (c *ProviderConfig) setDefaults() {
	if c.Attempts == 0 {
		c.Attempts = DefaultInitAttempts
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultInitRetryDelay
	}
	if c.AttemptTimeout == 0 {
		c.AttemptTimeout = DefaultInitTimeout
	}
}

// initCall is an in-flight initialization shared by every caller that asks
// for the instance while it runs.
type initCall struct {
	done     chan struct{}
	instance Instance
	err      error
}

type stateEvent struct {
	seq   uint64
	state State
	// target is a listener id for the initial snapshot delivered on
	// subscription; zero broadcasts to every listener registered before seq.
	target uint64
}

type listenerEntry struct {
	fn  Listener
	seq uint64
}

// Provider owns the one live connection to an encryption backend. It is safe
// for concurrent use; at most one initialization runs at a time and every
// caller waiting on it receives the same instance.
type Provider struct {
	backend Backend
	cfg     ProviderConfig
	logger  *zap.Logger

	lock       sync.Mutex
	state      State
	instance   Instance
	inflight   *initCall
	generation uint64

	listeners  map[uint64]listenerEntry
	nextID     uint64
	seq        uint64
	pending    []stateEvent
	delivering bool
}

func NewProvider(logger *zap.Logger, backend Backend, cfg ProviderConfig) *Provider {
	cfg.setDefaults()
	return &Provider{
		backend:   backend,
		cfg:       cfg,
		logger:    logger.With(zap.String("fheNetwork", cfg.Network.Name)),
		state:     State{Status: StatusIdle},
		listeners: make(map[uint64]listenerEntry),
	}
}

// State returns a non-blocking snapshot.
func (p *Provider) State() State {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.state
}

// EnsureReady returns the ready instance, starting initialization if needed
// and waiting for an in-flight one otherwise. Cancelling ctx stops the wait
// but not the shared initialization.
func (p *Provider) EnsureReady(ctx context.Context) (Instance, error) {
	p.lock.Lock()
	if p.state.Status == StatusReady {
		instance := p.instance
		p.lock.Unlock()
		return instance, nil
	}
	call := p.inflight
	if call == nil {
		call = p.startLocked()
	}
	p.lock.Unlock()
	p.deliver()

	select {
	case <-call.done:
		return call.instance, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Preload starts initialization in the background if nothing has started it.
func (p *Provider) Preload() {
	p.lock.Lock()
	if p.state.Status != StatusIdle || p.inflight != nil {
		p.lock.Unlock()
		return
	}
	p.logger.Info("Preloading encryption backend")
	p.startLocked()
	p.lock.Unlock()
	p.deliver()
}

// Reset drops the cached instance and any in-flight initialization and moves
// the provider back to idle. A later EnsureReady starts from scratch.
func (p *Provider) Reset() {
	p.lock.Lock()
	p.generation++
	p.instance = nil
	p.inflight = nil
	p.setStateLocked(State{Status: StatusIdle})
	p.lock.Unlock()
	p.deliver()
	p.logger.Info("Encryption backend reset")
}

// Subscribe registers a listener. It is called once with the current state and
// then on every transition, in order and never concurrently with itself.
func (p *Provider) Subscribe(listener Listener) (unsubscribe func()) {
	p.lock.Lock()
	p.nextID++
	id := p.nextID
	p.seq++
	p.listeners[id] = listenerEntry{fn: listener, seq: p.seq}
	p.pending = append(p.pending, stateEvent{seq: p.seq, state: p.state, target: id})
	p.lock.Unlock()
	p.deliver()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.lock.Lock()
			delete(p.listeners, id)
			p.lock.Unlock()
		})
	}
}

func (p *Provider) startLocked() *initCall {
	call := &initCall{done: make(chan struct{})}
	p.inflight = call
	p.setStateLocked(State{Status: StatusInitializing})
	go p.initialize(p.generation, call)
	return call
}

func (p *Provider) initialize(generation uint64, call *initCall) {
	p.logger.Info(
		"Initializing encryption backend",
		zap.Uint64("attempts", p.cfg.Attempts),
		zap.Duration("attemptTimeout", p.cfg.AttemptTimeout),
	)
	started := time.Now()

	var (
		instance Instance
		attempt  int
	)
	operation := func() error {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.AttemptTimeout)
		defer cancel()

		if err := p.backend.Init(ctx); err != nil {
			return fmt.Errorf("failed to load encryption runtime: %w", err)
		}
		inst, err := p.backend.CreateInstance(ctx, p.cfg.Network)
		if err != nil {
			return fmt.Errorf("failed to create encryption instance: %w", err)
		}
		if inst == nil {
			return fmt.Errorf("backend returned no instance")
		}
		instance = inst
		return nil
	}
	err := utils.WithMaxAttempts(
		context.Background(),
		p.logger,
		operation,
		p.cfg.Attempts,
		p.cfg.RetryDelay,
		"initialize encryption backend",
	)

	p.lock.Lock()
	stale := generation != p.generation
	if err != nil {
		call.err = wager.Wrap(wager.KindBackendInit, wager.ReasonNone, err)
		if !stale {
			p.inflight = nil
			p.instance = nil
			p.setStateLocked(State{Status: StatusError, Message: err.Error()})
		}
	} else {
		call.instance = instance
		if !stale {
			p.inflight = nil
			p.instance = instance
			p.setStateLocked(State{Status: StatusReady})
		}
	}
	p.lock.Unlock()
	p.deliver()
	close(call.done)

	switch {
	case stale:
		p.logger.Info("Discarding initialization result after reset", zap.Error(err))
	case err != nil:
		p.logger.Error(
			"Failed to initialize encryption backend",
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
	default:
		p.logger.Info(
			"Encryption backend ready",
			zap.Int("attempts", attempt),
			zap.Duration("elapsed", time.Since(started)),
		)
	}
}

func (p *Provider) setStateLocked(state State) {
	p.state = state
	p.seq++
	p.pending = append(p.pending, stateEvent{seq: p.seq, state: state})
}

// deliver drains queued events. Only one goroutine delivers at a time; a
// goroutine that finds delivery in progress leaves its events to it, which
// keeps delivery ordered and lets listeners call back into the provider.
func (p *Provider) deliver() {
	p.lock.Lock()
	if p.delivering {
		p.lock.Unlock()
		return
	}
	p.delivering = true
	for len(p.pending) > 0 {
		ev := p.pending[0]
		p.pending = p.pending[1:]

		var targets []Listener
		if ev.target != 0 {
			if entry, ok := p.listeners[ev.target]; ok {
				targets = append(targets, entry.fn)
			}
		} else {
			for _, id := range p.sortedListenerIDs() {
				entry := p.listeners[id]
				if entry.seq < ev.seq {
					targets = append(targets, entry.fn)
				}
			}
		}
		p.lock.Unlock()
		for _, fn := range targets {
			fn(ev.state)
		}
		p.lock.Lock()
	}
	p.delivering = false
	p.lock.Unlock()
}

func (p *Provider) sortedListenerIDs() []uint64 {
	return slices.Sorted(maps.Keys(p.listeners))
}
