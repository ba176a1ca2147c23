// Copyright (C) 2024, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap/zapcore"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/crypto/fhe"
	"github.com/luxfi/wager/vms/evm"
	"github.com/luxfi/wager/vms/evm/signer"
)

const (
	defaultLogLevel           = "info"
	defaultRPCURL             = "https://ethereum-sepolia-rpc.publicnode.com"
	defaultChainID            = 11155111
	defaultFHENetwork         = "sepolia"
	defaultFHEBackend         = FHEBackendMock
	defaultGasLimit           = 5_000_000
	defaultTxInclusionTimeout = 2 * time.Minute
	defaultMarketCacheTTL     = 30 * time.Second
	defaultTicketCacheSize    = 1024
	defaultOutcomeHistorySize = 256
	defaultMinStake           = "0.001"
	defaultMaxStake           = "1.0"
	defaultAPIPort            = 8080
	defaultMetricsPort        = 9090
)

// FHEBackendMock selects the in-process backend that targets chains running
// the fhEVM mock runtime.
const FHEBackendMock = "mock"

var (
	errMissingRPCURL       = errors.New("rpc-url must be set")
	errMissingContract     = errors.New("contract-address must be set")
	errInvalidContract     = errors.New("contract-address is not a hex address")
	errInvalidChainID      = errors.New("chain-id must be positive")
	errInvalidGasLimit     = errors.New("gas-limit must be positive")
	errInvalidInitAttempts = errors.New("fhe-init-attempts must be positive")
	errInvalidStakeBounds  = errors.New("min-stake must not exceed max-stake")
)

// Config is the client configuration. Field tags are the viper keys.
type Config struct {
	LogLevel             string        `mapstructure:"log-level"`
	RPCURL               string        `mapstructure:"rpc-url"`
	WSURL                string        `mapstructure:"ws-url"`
	ChainID              uint64        `mapstructure:"chain-id"`
	ContractAddress      string        `mapstructure:"contract-address"`
	PrivateKey           string        `mapstructure:"private-key"`
	FHENetwork           string        `mapstructure:"fhe-network"`
	FHEBackend           string        `mapstructure:"fhe-backend"`
	FHEInitAttempts      uint64        `mapstructure:"fhe-init-attempts"`
	FHEInitRetryDelay    time.Duration `mapstructure:"fhe-init-retry-delay"`
	FHEInitTimeout       time.Duration `mapstructure:"fhe-init-timeout"`
	GasLimit             uint64        `mapstructure:"gas-limit"`
	MaxBaseFee           uint64        `mapstructure:"max-base-fee"`
	MaxPriorityFeePerGas uint64        `mapstructure:"max-priority-fee-per-gas"`
	TxInclusionTimeout   time.Duration `mapstructure:"tx-inclusion-timeout"`
	MarketCacheTTL       time.Duration `mapstructure:"market-cache-ttl"`
	TicketCacheSize      int           `mapstructure:"ticket-cache-size"`
	OutcomeHistorySize   int           `mapstructure:"outcome-history-size"`
	MinStake             string        `mapstructure:"min-stake"`
	MaxStake             string        `mapstructure:"max-stake"`
	APIPort              uint16        `mapstructure:"api-port"`
	MetricsPort          uint16        `mapstructure:"metrics-port"`

	// Set by Validate
	contractAddress common.Address
	signer          *signer.TxSigner
	fheNetwork      fhe.NetworkConfig
	logLevel        zapcore.Level
	minStakeWei     *big.Int
	maxStakeWei     *big.Int
}

// Validate checks the configuration and parses the derived values.
func (c *Config) Validate() error {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log-level: %w", err)
	}
	c.logLevel = level

	if c.RPCURL == "" {
		return errMissingRPCURL
	}
	if _, err := url.ParseRequestURI(c.RPCURL); err != nil {
		return fmt.Errorf("invalid rpc-url: %w", err)
	}
	if c.WSURL != "" {
		if _, err := url.ParseRequestURI(c.WSURL); err != nil {
			return fmt.Errorf("invalid ws-url: %w", err)
		}
	}
	if c.ChainID == 0 {
		return errInvalidChainID
	}

	if c.ContractAddress == "" {
		return errMissingContract
	}
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("%w: %q", errInvalidContract, c.ContractAddress)
	}
	c.contractAddress = common.HexToAddress(c.ContractAddress)

	c.signer = nil
	if c.PrivateKey != "" {
		s, err := signer.NewTxSigner(c.PrivateKey)
		if err != nil {
			return fmt.Errorf("invalid private-key: %w", err)
		}
		c.signer = s
	}

	network, err := fhe.NetworkByName(c.FHENetwork)
	if err != nil {
		return fmt.Errorf("invalid fhe-network %q: %w", c.FHENetwork, err)
	}
	c.fheNetwork = network
	if c.FHEBackend != FHEBackendMock {
		return fmt.Errorf("unsupported fhe-backend %q", c.FHEBackend)
	}
	if c.FHEInitAttempts == 0 {
		return errInvalidInitAttempts
	}
	if c.GasLimit == 0 {
		return errInvalidGasLimit
	}

	if c.minStakeWei, err = wager.ParseEther(c.MinStake); err != nil {
		return fmt.Errorf("invalid min-stake: %w", err)
	}
	if c.maxStakeWei, err = wager.ParseEther(c.MaxStake); err != nil {
		return fmt.Errorf("invalid max-stake: %w", err)
	}
	if c.minStakeWei.Cmp(c.maxStakeWei) > 0 {
		return errInvalidStakeBounds
	}
	return nil
}

func (c *Config) GetContractAddress() common.Address {
	return c.contractAddress
}

// GetSigner returns nil when no key is configured; the client is then
// read-only.
func (c *Config) GetSigner() *signer.TxSigner {
	return c.signer
}

func (c *Config) GetSenderConfig() evm.SenderConfig {
	cfg := evm.SenderConfig{TxInclusionTimeout: c.TxInclusionTimeout}
	if c.MaxBaseFee != 0 {
		cfg.MaxBaseFee = new(big.Int).SetUint64(c.MaxBaseFee)
	}
	if c.MaxPriorityFeePerGas != 0 {
		cfg.MaxPriorityFeePerGas = new(big.Int).SetUint64(c.MaxPriorityFeePerGas)
	}
	return cfg
}

func (c *Config) GetFHENetwork() fhe.NetworkConfig {
	return c.fheNetwork
}

func (c *Config) GetLogLevel() zapcore.Level {
	return c.logLevel
}

func (c *Config) GetProviderConfig() fhe.ProviderConfig {
	return fhe.ProviderConfig{
		Network:        c.fheNetwork,
		Attempts:       c.FHEInitAttempts,
		RetryDelay:     c.FHEInitRetryDelay,
		AttemptTimeout: c.FHEInitTimeout,
	}
}

// GetStakeBounds returns the advisory stake range in wei.
func (c *Config) GetStakeBounds() (min, max *big.Int) {
	return new(big.Int).Set(c.minStakeWei), new(big.Int).Set(c.maxStakeWei)
}
