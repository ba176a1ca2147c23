package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// WithRetriesTimeout uses an exponential backoff to run the operation until it
// succeeds or timeout limit has been reached.
func WithRetriesTimeout(
	logger *zap.Logger,
	operation backoff.Operation,
	timeout time.Duration,
	logMessage string,
) error {
	expBackOff := backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(timeout),
	)
	notify := func(err error, duration time.Duration) {
		logger.Warn(
			"Operation failed, retrying",
			zap.String("operation", logMessage),
			zap.Duration("retryIn", duration),
			zap.Error(err),
		)
	}
	return backoff.RetryNotify(operation, expBackOff, notify)
}

// WithMaxAttempts runs the operation at most attempts times, waiting delay
// between consecutive attempts. The error of the last attempt is returned.
// Cancelling ctx stops further attempts.
func WithMaxAttempts(
	ctx context.Context,
	logger *zap.Logger,
	operation backoff.Operation,
	attempts uint64,
	delay time.Duration,
	logMessage string,
) error {
	if attempts == 0 {
		attempts = 1
	}
	constBackOff := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), attempts-1),
		ctx,
	)
	notify := func(err error, duration time.Duration) {
		logger.Warn(
			"Attempt failed, retrying",
			zap.String("operation", logMessage),
			zap.Duration("retryIn", duration),
			zap.Error(err),
		)
	}
	return backoff.RetryNotify(operation, constBackOff, notify)
}
