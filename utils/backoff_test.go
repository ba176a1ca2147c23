package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWithRetriesTimeout(t *testing.T) {
	t.Run("NotEnoughRetry", func(t *testing.T) {
		retryable := newMockRetryableFn(3)
		err := WithRetriesTimeout(
			zap.NewNop(),
			func() (err error) {
				_, err = retryable.Run()
				return err
			},
			// using default values: we want to run max 2 tries.
			624*time.Millisecond,
			"test",
		)
		require.Error(t, err)
	})
	t.Run("EnoughRetry", func(t *testing.T) {
		retryable := newMockRetryableFn(2)
		var res bool
		err := WithRetriesTimeout(
			zap.NewNop(),
			func() (err error) {
				res, err = retryable.Run()
				return err
			},
			// using default values we want to run 3 tries.
			2000*time.Millisecond,
			"test",
		)
		require.NoError(t, err)
		require.True(t, res)
	})
}

func TestWithMaxAttempts(t *testing.T) {
	tests := []struct {
		name          string
		trigger       uint64
		attempts      uint64
		expectErr     bool
		expectedCalls uint64
	}{
		{
			name:          "succeeds on first attempt",
			trigger:       0,
			attempts:      3,
			expectedCalls: 0,
		},
		{
			name:          "succeeds on last attempt",
			trigger:       2,
			attempts:      3,
			expectedCalls: 2,
		},
		{
			name:          "exhausts attempts",
			trigger:       3,
			attempts:      3,
			expectErr:     true,
			expectedCalls: 3,
		},
		{
			name:          "zero attempts runs once",
			trigger:       5,
			attempts:      0,
			expectErr:     true,
			expectedCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			retryable := newMockRetryableFn(tt.trigger)
			err := WithMaxAttempts(
				context.Background(),
				zap.NewNop(),
				func() error {
					_, err := retryable.Run()
					return err
				},
				tt.attempts,
				time.Millisecond,
				"test",
			)
			if tt.expectErr {
				require.Error(err)
			} else {
				require.NoError(err)
			}
			require.Equal(tt.expectedCalls, retryable.counter)
		})
	}
}

func TestWithMaxAttemptsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := WithMaxAttempts(
		ctx,
		zap.NewNop(),
		func() error {
			calls++
			return errors.New("error")
		},
		5,
		time.Second,
		"test",
	)
	require.Error(t, err)
	require.LessOrEqual(t, calls, 1)
}

type mockRetryableFn struct {
	counter uint64
	trigger uint64
}

func newMockRetryableFn(trigger uint64) mockRetryableFn {
	return mockRetryableFn{
		counter: 0,
		trigger: trigger,
	}
}

func (m *mockRetryableFn) Run() (bool, error) {
	if m.counter >= m.trigger {
		return true, nil
	}
	m.counter++
	return false, errors.New("error")
}
