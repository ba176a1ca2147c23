// Copyright (C) 2024, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	// Command line option keys
	ConfigFileKey = "config-file"
	VersionKey    = "version"
	HelpKey       = "help"

	// Environment variables are the keys upper-cased, with hyphens replaced
	// by underscores and this prefix, e.g. WAGER_PRIVATE_KEY.
	EnvPrefix = "WAGER"

	// Top-level configuration keys
	LogLevelKey           = "log-level"
	RPCURLKey             = "rpc-url"
	WSURLKey              = "ws-url"
	ChainIDKey            = "chain-id"
	ContractAddressKey    = "contract-address"
	PrivateKeyKey         = "private-key"
	FHENetworkKey         = "fhe-network"
	FHEBackendKey         = "fhe-backend"
	FHEInitAttemptsKey    = "fhe-init-attempts"
	FHEInitRetryDelayKey  = "fhe-init-retry-delay"
	FHEInitTimeoutKey     = "fhe-init-timeout"
	GasLimitKey           = "gas-limit"
	MaxBaseFeeKey         = "max-base-fee"
	MaxPriorityFeeKey     = "max-priority-fee-per-gas"
	TxInclusionTimeoutKey = "tx-inclusion-timeout"
	MarketCacheTTLKey     = "market-cache-ttl"
	TicketCacheSizeKey    = "ticket-cache-size"
	OutcomeHistorySizeKey = "outcome-history-size"
	MinStakeKey           = "min-stake"
	MaxStakeKey           = "max-stake"
	APIPortKey            = "api-port"
	MetricsPortKey        = "metrics-port"
)
