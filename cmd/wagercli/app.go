// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/config"
	"github.com/luxfi/wager/contract"
	"github.com/luxfi/wager/crypto/fhe"
	"github.com/luxfi/wager/crypto/fhe/mockfhe"
	"github.com/luxfi/wager/market"
	"github.com/luxfi/wager/metrics"
	"github.com/luxfi/wager/submission"
	"github.com/luxfi/wager/utils"
	"github.com/luxfi/wager/vms/evm"
)

// app holds the clients every chain-facing command shares.
type app struct {
	cfg          config.Config
	logger       *zap.Logger
	out          io.Writer
	client       *ethclient.Client
	book         *contract.Book
	markets      *market.Store
	provider     *fhe.Provider
	orchestrator *submission.Orchestrator
	registry     *prometheus.Registry
	metrics      *metrics.WagerMetrics
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.GetLogLevel())
	zapCfg.OutputPaths = []string{"stderr"}
	return zapCfg.Build(zap.Fields(zap.String("service", "wager")))
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	ctx := cmd.Context()

	client, err := utils.NewEthClientWithConfig(ctx, cfg.RPCURL, nil, nil)
	if err != nil {
		logger.Error("Failed to dial RPC endpoint", zap.String("rpcURL", cfg.RPCURL), zap.Error(err))
		return nil, wager.Wrap(wager.KindNetwork, wager.ReasonNone, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, wager.Wrap(wager.KindNetwork, wager.ReasonNone, fmt.Errorf("failed to read chain id: %w", err))
	}
	if chainID.Cmp(new(big.Int).SetUint64(cfg.ChainID)) != 0 {
		client.Close()
		return nil, fmt.Errorf("rpc endpoint serves chain %s, configured chain-id is %d", chainID, cfg.ChainID)
	}

	// A nil transactor keeps the book read-only. It must stay an untyped nil.
	var transactor contract.Transactor
	if sgnr := cfg.GetSigner(); sgnr != nil {
		sender, err := evm.NewSender(ctx, logger, client, sgnr, cfg.GetSenderConfig())
		if err != nil {
			client.Close()
			return nil, wager.Wrap(wager.KindNetwork, wager.ReasonNone, err)
		}
		transactor = sender
	}
	book := contract.NewBook(logger, cfg.GetContractAddress(), client, transactor)

	markets, err := market.NewStore(logger, book, market.Config{
		MarketTTL:       cfg.MarketCacheTTL,
		TicketCacheSize: cfg.TicketCacheSize,
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	backend, err := newBackend(cfg.FHEBackend)
	if err != nil {
		client.Close()
		return nil, err
	}
	provider := fhe.NewProvider(logger, backend, cfg.GetProviderConfig())

	registry := metrics.NewRegistry()
	wagerMetrics := metrics.NewWagerMetrics(registry)

	orchestrator := submission.NewOrchestrator(
		logger,
		book,
		fhe.NewEncryptor(logger, provider),
		markets,
		submission.WithGasLimit(cfg.GasLimit),
		submission.WithMetrics(wagerMetrics),
	)

	logger.Debug(
		"Initialized client",
		zap.Stringer("contractAddress", cfg.GetContractAddress()),
		zap.Stringer("sender", book.SenderAddress()),
		zap.Uint64("chainID", cfg.ChainID),
	)
	return &app{
		cfg:          cfg,
		logger:       logger,
		out:          cmd.OutOrStdout(),
		client:       client,
		book:         book,
		markets:      markets,
		provider:     provider,
		orchestrator: orchestrator,
		registry:     registry,
		metrics:      wagerMetrics,
	}, nil
}

func newBackend(name string) (fhe.Backend, error) {
	switch name {
	case config.FHEBackendMock:
		return mockfhe.New(), nil
	default:
		return nil, fmt.Errorf("unsupported encryption backend %q", name)
	}
}

func (a *app) close() {
	a.client.Close()
	_ = a.logger.Sync()
}

// requireSigner fails commands that send transactions on a read-only client.
func (a *app) requireSigner() error {
	if a.cfg.GetSigner() == nil {
		return wager.NewValidationError(
			wager.ReasonWalletNotConnected,
			"set --%s or %s_PRIVATE_KEY to send transactions",
			config.PrivateKeyKey, config.EnvPrefix,
		)
	}
	return nil
}

// withApp builds the app for the duration of run.
func withApp(run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return run(cmd.Context(), a, args)
	}
}
