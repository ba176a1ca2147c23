// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/luxfi/wager/config"

	// Sets GOMAXPROCS to the CPU quota for containerized environments
	_ "go.uber.org/automaxprocs"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wagercli",
		Short: "WeatherWager - encrypted weather forecast markets",
		Long: `WeatherWager places sealed forecasts on per-city weather markets.

The predicted condition and the stake are encrypted client side before they
reach the chain; only the market's settlement reveals which tickets won.

Every flag can also be set through the environment as WAGER_<FLAG> or in a
JSON file passed with --config-file.`,
		Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Cobra owns --help and --version.
	config.BuildFlagSet().VisitAll(func(f *pflag.Flag) {
		if f.Name == config.HelpKey || f.Name == config.VersionKey {
			return
		}
		rootCmd.PersistentFlags().AddFlag(f)
	})

	rootCmd.AddCommand(
		newCitiesCmd(),
		newMarketCmd(),
		newTicketsCmd(),
		newTicketCmd(),
		newSettlementCmd(),
		newPlaceCmd(),
		newClaimCmd(),
		newCommitmentCmd(),
		newWatchCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// loadConfig resolves the configuration from the root command's flags, the
// environment and the optional config file.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v, err := config.BuildViper(cmd.Root().PersistentFlags())
	if err != nil {
		return config.Config{}, err
	}
	return config.NewConfig(v)
}
