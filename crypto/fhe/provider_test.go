// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package fhe_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/crypto/fhe"
	"github.com/luxfi/wager/crypto/fhe/mockfhe"
	"github.com/luxfi/wager/crypto/fhe/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testProviderConfig() fhe.ProviderConfig {
	return fhe.ProviderConfig{
		Network:        fhe.LocalConfig,
		Attempts:       3,
		RetryDelay:     time.Millisecond,
		AttemptTimeout: time.Second,
	}
}

// gatedBackend blocks Init until release is closed.
type gatedBackend struct {
	*mockfhe.Backend
	release chan struct{}
}

func (g *gatedBackend) Init(ctx context.Context) error {
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.Backend.Init(ctx)
}

type stateRecorder struct {
	lock   sync.Mutex
	states []fhe.State
}

func (r *stateRecorder) listen(s fhe.State) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) statuses() []fhe.Status {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]fhe.Status, len(r.states))
	for i, s := range r.states {
		out[i] = s.Status
	}
	return out
}

func TestEnsureReadyTransitions(t *testing.T) {
	require := require.New(t)

	backend := mockfhe.New()
	provider := fhe.NewProvider(zap.NewNop(), backend, testProviderConfig())
	require.Equal(fhe.StatusIdle, provider.State().Status)

	recorder := &stateRecorder{}
	unsubscribe := provider.Subscribe(recorder.listen)
	defer unsubscribe()
	require.Equal([]fhe.Status{fhe.StatusIdle}, recorder.statuses())

	instance, err := provider.EnsureReady(context.Background())
	require.NoError(err)
	require.NotNil(instance)
	require.Equal(fhe.StatusReady, provider.State().Status)

	require.Eventually(func() bool {
		return len(recorder.statuses()) == 3
	}, time.Second, time.Millisecond)
	require.Equal(
		[]fhe.Status{fhe.StatusIdle, fhe.StatusInitializing, fhe.StatusReady},
		recorder.statuses(),
	)

	// A ready provider returns the cached instance without re-initializing.
	again, err := provider.EnsureReady(context.Background())
	require.NoError(err)
	require.Same(instance, again)
	initCalls, instanceCalls := backend.Calls()
	require.Equal(1, initCalls)
	require.Equal(1, instanceCalls)
}

func TestConcurrentCallersShareInitialization(t *testing.T) {
	require := require.New(t)

	backend := &gatedBackend{Backend: mockfhe.New(), release: make(chan struct{})}
	provider := fhe.NewProvider(zap.NewNop(), backend, testProviderConfig())

	recorder := &stateRecorder{}
	defer provider.Subscribe(recorder.listen)()

	const callers = 8
	var (
		wg        sync.WaitGroup
		instances = make([]fhe.Instance, callers)
		errs      = make([]error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			instances[i], errs[i] = provider.EnsureReady(context.Background())
		}(i)
	}

	require.Eventually(func() bool {
		return provider.State().Status == fhe.StatusInitializing
	}, time.Second, time.Millisecond)
	close(backend.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(errs[i])
		require.Same(instances[0], instances[i])
	}
	initCalls, instanceCalls := backend.Calls()
	require.Equal(1, initCalls)
	require.Equal(1, instanceCalls)

	require.Eventually(func() bool {
		return len(recorder.statuses()) == 3
	}, time.Second, time.Millisecond)
	require.Equal(
		[]fhe.Status{fhe.StatusIdle, fhe.StatusInitializing, fhe.StatusReady},
		recorder.statuses(),
	)
}

func TestExhaustedAttemptsThenReset(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	instance := mocks.NewMockInstance(ctrl)
	provider := fhe.NewProvider(zap.NewNop(), backend, testProviderConfig())

	backend.EXPECT().Init(gomock.Any()).Return(errors.New("wasm fetch failed")).Times(3)

	_, err := provider.EnsureReady(context.Background())
	require.Error(err)
	require.ErrorIs(err, wager.ErrBackendInit)
	require.Contains(err.Error(), "wasm fetch failed")

	state := provider.State()
	require.Equal(fhe.StatusError, state.Status)
	require.Contains(state.Message, "wasm fetch failed")

	provider.Reset()
	require.Equal(fhe.StatusIdle, provider.State().Status)

	backend.EXPECT().Init(gomock.Any()).Return(nil)
	backend.EXPECT().CreateInstance(gomock.Any(), fhe.LocalConfig).Return(instance, nil)

	got, err := provider.EnsureReady(context.Background())
	require.NoError(err)
	require.Equal(instance, got)
	require.Equal(fhe.StatusReady, provider.State().Status)
}

func TestErrorStateRetriesOnNextCall(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	instance := mocks.NewMockInstance(ctrl)
	cfg := testProviderConfig()
	cfg.Attempts = 1
	provider := fhe.NewProvider(zap.NewNop(), backend, cfg)

	gomock.InOrder(
		backend.EXPECT().Init(gomock.Any()).Return(nil),
		backend.EXPECT().CreateInstance(gomock.Any(), gomock.Any()).Return(nil, errors.New("bad config")),
		backend.EXPECT().Init(gomock.Any()).Return(nil),
		backend.EXPECT().CreateInstance(gomock.Any(), gomock.Any()).Return(instance, nil),
	)

	_, err := provider.EnsureReady(context.Background())
	require.ErrorIs(err, wager.ErrBackendInit)
	require.Equal(fhe.StatusError, provider.State().Status)

	got, err := provider.EnsureReady(context.Background())
	require.NoError(err)
	require.Equal(instance, got)
}

func TestRetrySucceedsWithinBudget(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	instance := mocks.NewMockInstance(ctrl)
	provider := fhe.NewProvider(zap.NewNop(), backend, testProviderConfig())

	gomock.InOrder(
		backend.EXPECT().Init(gomock.Any()).Return(errors.New("transient")),
		backend.EXPECT().Init(gomock.Any()).Return(nil),
		backend.EXPECT().CreateInstance(gomock.Any(), gomock.Any()).Return(instance, nil),
	)

	recorder := &stateRecorder{}
	defer provider.Subscribe(recorder.listen)()

	got, err := provider.EnsureReady(context.Background())
	require.NoError(err)
	require.Equal(instance, got)

	// Retries stay inside Initializing; listeners never see an error.
	require.Eventually(func() bool {
		return len(recorder.statuses()) == 3
	}, time.Second, time.Millisecond)
	require.NotContains(recorder.statuses(), fhe.StatusError)
}

func TestAttemptTimeout(t *testing.T) {
	require := require.New(t)

	backend := &gatedBackend{Backend: mockfhe.New(), release: make(chan struct{})}
	cfg := testProviderConfig()
	cfg.Attempts = 2
	cfg.AttemptTimeout = 20 * time.Millisecond
	provider := fhe.NewProvider(zap.NewNop(), backend, cfg)

	_, err := provider.EnsureReady(context.Background())
	require.ErrorIs(err, wager.ErrBackendInit)
	require.ErrorIs(err, context.DeadlineExceeded)
	require.Equal(fhe.StatusError, provider.State().Status)
}

func TestCallerCancellationDoesNotAbortInitialization(t *testing.T) {
	require := require.New(t)

	backend := &gatedBackend{Backend: mockfhe.New(), release: make(chan struct{})}
	provider := fhe.NewProvider(zap.NewNop(), backend, testProviderConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := provider.EnsureReady(ctx)
	require.ErrorIs(err, context.Canceled)
	require.Equal(fhe.StatusInitializing, provider.State().Status)

	close(backend.release)
	instance, err := provider.EnsureReady(context.Background())
	require.NoError(err)
	require.NotNil(instance)
}

func TestResetDuringInitialization(t *testing.T) {
	require := require.New(t)

	backend := &gatedBackend{Backend: mockfhe.New(), release: make(chan struct{})}
	provider := fhe.NewProvider(zap.NewNop(), backend, testProviderConfig())

	provider.Preload()
	require.Equal(fhe.StatusInitializing, provider.State().Status)

	provider.Reset()
	require.Equal(fhe.StatusIdle, provider.State().Status)

	close(backend.release)
	// The first initialization finishes but its result is dropped; this call
	// starts a fresh one.
	instance, err := provider.EnsureReady(context.Background())
	require.NoError(err)
	require.NotNil(instance)
	require.Equal(fhe.StatusReady, provider.State().Status)

	require.Eventually(func() bool {
		initCalls, _ := backend.Calls()
		return initCalls == 2
	}, time.Second, time.Millisecond)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	require := require.New(t)

	provider := fhe.NewProvider(zap.NewNop(), mockfhe.New(), testProviderConfig())

	recorder := &stateRecorder{}
	unsubscribe := provider.Subscribe(recorder.listen)
	unsubscribe()
	unsubscribe()

	_, err := provider.EnsureReady(context.Background())
	require.NoError(err)
	require.Equal([]fhe.Status{fhe.StatusIdle}, recorder.statuses())
}

func TestListenerMayCallBackIntoProvider(t *testing.T) {
	require := require.New(t)

	provider := fhe.NewProvider(zap.NewNop(), mockfhe.New(), testProviderConfig())

	seen := make(chan fhe.Status, 8)
	defer provider.Subscribe(func(s fhe.State) {
		// Reads from inside a listener must not deadlock.
		_ = provider.State()
		seen <- s.Status
	})()

	_, err := provider.EnsureReady(context.Background())
	require.NoError(err)
	require.Eventually(func() bool { return len(seen) == 3 }, time.Second, time.Millisecond)
}

func TestNetworkByName(t *testing.T) {
	require := require.New(t)

	cfg, err := fhe.NetworkByName("sepolia")
	require.NoError(err)
	require.Equal(uint64(11155111), cfg.ChainID)

	_, err = fhe.NetworkByName("mainnet")
	require.ErrorIs(err, fhe.ErrUnknownNetwork)
}
