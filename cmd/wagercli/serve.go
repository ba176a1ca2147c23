// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/wager/api"
	"github.com/luxfi/wager/healthcheck"
	"github.com/luxfi/wager/market"
	"github.com/luxfi/wager/metrics"
)

const readHeaderTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, health checks and metrics",
		Long: `Serve the wager HTTP API and health check on --api-port and Prometheus
metrics on --metrics-port. With --ws-url set, cached markets are refreshed as
contract events arrive.`,
		Args: cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			return a.serve(ctx)
		}),
	}
}

func (a *app) serve(ctx context.Context) error {
	a.logger.Info("Initializing wager server")

	unsubscribe := a.provider.Subscribe(a.metrics.ProviderListener())
	defer unsubscribe()
	a.provider.Preload()

	mux := http.NewServeMux()
	api.NewHandler(a.logger, a.metrics, a.markets, a.orchestrator, a.provider, a.cfg.OutcomeHistorySize).Register(mux)
	healthcheck.HandleHealthCheckRequest(mux, a.provider, a.book)
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.APIPort),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return metrics.Serve(gctx, a.logger, apiServer)
	})
	g.Go(func() error {
		return metrics.Serve(gctx, a.logger, metrics.NewServer(a.cfg.MetricsPort, a.registry))
	})

	if a.cfg.WSURL != "" {
		w, closeWS, err := a.newWatcher(gctx, true)
		if err != nil {
			return err
		}
		defer closeWS()
		g.Go(func() error {
			latest, err := a.client.BlockNumber(gctx)
			if err != nil {
				return fmt.Errorf("failed to read latest block: %w", err)
			}
			// Only events after startup matter; earlier state is read on demand.
			return w.Run(gctx, latest+1, market.DefaultSubscribeTimeout)
		})
	}

	a.logger.Info("Initialization complete")
	if err := g.Wait(); err != nil {
		a.logger.Error("Exited with error", zap.Error(err))
		return err
	}
	return nil
}
