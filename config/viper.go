// Copyright (C) 2024, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func NewConfig(v *viper.Viper) (Config, error) {
	cfg, err := BuildConfig(v)
	if err != nil {
		return cfg, err
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to validate configuration: %w", err)
	}
	return cfg, nil
}

// BuildFlagSet declares every configuration key as a flag.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("wager", pflag.ContinueOnError)
	fs.String(ConfigFileKey, "", "Specifies the JSON config file")
	fs.Bool(VersionKey, false, "Display version and exit")
	fs.Bool(HelpKey, false, "Display help and exit")

	fs.String(LogLevelKey, defaultLogLevel, "Log level: debug, info, warn, error")
	fs.String(RPCURLKey, defaultRPCURL, "JSON-RPC endpoint of the chain")
	fs.String(WSURLKey, "", "Optional websocket endpoint used to follow new events")
	fs.Uint64(ChainIDKey, defaultChainID, "EVM chain id")
	fs.String(ContractAddressKey, "", "Address of the WeatherWagerBook contract")
	fs.String(PrivateKeyKey, "", "Hex private key of the bettor account; prefer the WAGER_PRIVATE_KEY environment variable")
	fs.String(FHENetworkKey, defaultFHENetwork, "Encryption network configuration: sepolia or local")
	fs.String(FHEBackendKey, defaultFHEBackend, "Encryption backend")
	fs.Uint64(FHEInitAttemptsKey, 3, "Encryption backend initialization attempts")
	fs.Duration(FHEInitRetryDelayKey, 0, "Delay between initialization attempts")
	fs.Duration(FHEInitTimeoutKey, 0, "Timeout of one initialization attempt")
	fs.Uint64(GasLimitKey, defaultGasLimit, "Gas limit of placeForecast and claim transactions")
	fs.Uint64(MaxBaseFeeKey, 0, "Maximum base fee in wei; zero derives it from the latest block")
	fs.Uint64(MaxPriorityFeeKey, 0, "Maximum priority fee in wei; zero accepts the node suggestion")
	fs.Duration(TxInclusionTimeoutKey, defaultTxInclusionTimeout, "How long to wait for a transaction receipt")
	fs.Duration(MarketCacheTTLKey, defaultMarketCacheTTL, "How long market reads are cached")
	fs.Int(TicketCacheSizeKey, defaultTicketCacheSize, "Number of ticket details kept in memory")
	fs.Int(OutcomeHistorySizeKey, defaultOutcomeHistorySize, "Number of submission outcomes the API remembers")
	fs.String(MinStakeKey, defaultMinStake, "Smallest stake in ETH the CLI accepts")
	fs.String(MaxStakeKey, defaultMaxStake, "Largest stake in ETH the CLI accepts")
	fs.Uint16(APIPortKey, defaultAPIPort, "Port of the HTTP API")
	fs.Uint16(MetricsPortKey, defaultMetricsPort, "Port of the metrics endpoint")
	return fs
}

func DisplayUsageText() {
	fmt.Fprintf(os.Stderr, "Usage: wagercli [command] [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Every flag may also be set in the JSON file passed with --%s,\n", ConfigFileKey)
	fmt.Fprintf(os.Stderr, "or through the environment as %s_<FLAG>, e.g. %s_RPC_URL.\n\n", EnvPrefix, EnvPrefix)
	BuildFlagSet().PrintDefaults()
}

// Build the viper instance. All config keys may be provided via flag, config
// file or environment variable. The config file is optional.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Map flag names to env var names. Flags are capitalized, and hyphens are replaced with underscores.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if filename := v.GetString(ConfigFileKey); filename != "" {
		v.SetConfigFile(filename)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
		}
	}

	return v, nil
}

func SetDefaultConfigValues(v *viper.Viper) {
	v.SetDefault(LogLevelKey, defaultLogLevel)
	v.SetDefault(RPCURLKey, defaultRPCURL)
	v.SetDefault(ChainIDKey, defaultChainID)
	v.SetDefault(FHENetworkKey, defaultFHENetwork)
	v.SetDefault(FHEBackendKey, defaultFHEBackend)
	v.SetDefault(FHEInitAttemptsKey, 3)
	v.SetDefault(GasLimitKey, defaultGasLimit)
	v.SetDefault(TxInclusionTimeoutKey, defaultTxInclusionTimeout)
	v.SetDefault(MarketCacheTTLKey, defaultMarketCacheTTL)
	v.SetDefault(TicketCacheSizeKey, defaultTicketCacheSize)
	v.SetDefault(OutcomeHistorySizeKey, defaultOutcomeHistorySize)
	v.SetDefault(MinStakeKey, defaultMinStake)
	v.SetDefault(MaxStakeKey, defaultMaxStake)
	v.SetDefault(APIPortKey, defaultAPIPort)
	v.SetDefault(MetricsPortKey, defaultMetricsPort)
}

// BuildConfig constructs the client config using Viper.
// The following precedence order is used. Each item takes precedence over the item below it:
//  1. Flags
//  2. Environment variables
//  3. Config file
//  4. Defaults
func BuildConfig(v *viper.Viper) (Config, error) {
	SetDefaultConfigValues(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal viper config: %w", err)
	}
	return cfg, nil
}
