// Copyright (C) 2024, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexliesenfeld/health"

	"github.com/luxfi/wager/crypto/fhe"
)

const (
	HealthPath   = "/health"
	checkTimeout = 5 * time.Second
)

var errNoContractCode = errors.New("no contract code at configured address")

// ChainChecker is the subset of the contract client the chain check needs.
type ChainChecker interface {
	CheckDeployed(ctx context.Context) error
}

// ProviderCheck fails while the encryption provider is in its error state.
// Idle and initializing are healthy: initialization is lazy.
func ProviderCheck(provider *fhe.Provider) func(context.Context) error {
	return func(context.Context) error {
		state := provider.State()
		if state.Status == fhe.StatusError {
			return fmt.Errorf("encryption provider failed: %s", state.Message)
		}
		return nil
	}
}

// ChainCheck fails when the RPC endpoint is unreachable or nothing is
// deployed at the contract address.
func ChainCheck(book ChainChecker) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := book.CheckDeployed(ctx); err != nil {
			return fmt.Errorf("%w: %w", errNoContractCode, err)
		}
		return nil
	}
}

// NewHandler returns the /health handler over the given checks.
func NewHandler(provider *fhe.Provider, book ChainChecker) http.Handler {
	healthChecker := health.NewChecker(
		health.WithTimeout(checkTimeout),
		health.WithCheck(health.Check{
			Name:  "encryption-provider",
			Check: ProviderCheck(provider),
		}),
		health.WithCheck(health.Check{
			Name:  "contract",
			Check: ChainCheck(book),
		}),
	)
	return health.NewHandler(healthChecker)
}

// HandleHealthCheckRequest registers the handler on mux.
func HandleHealthCheckRequest(mux *http.ServeMux, provider *fhe.Provider, book ChainChecker) {
	mux.Handle(HealthPath, NewHandler(provider, book))
}
