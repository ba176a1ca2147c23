// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/contract"
	"github.com/luxfi/wager/market"
	"github.com/luxfi/wager/types"
	"github.com/luxfi/wager/utils"
	"github.com/luxfi/wager/vms/evm"
)

// defaultWatchDepth is how many blocks back watch starts when no height is given.
const defaultWatchDepth = 1000

func writeEvent(w io.Writer, event interface{}) {
	switch e := event.(type) {
	case *contract.ForecastPlaced:
		fmt.Fprintf(w, "block %d\tForecastPlaced\tcity=%s ticket=%s bettor=%s\n",
			e.Raw.BlockNumber, types.CityName(e.CityId.Uint64()), e.TicketId, e.Bettor.Hex())
	case *contract.ForecastPaid:
		fmt.Fprintf(w, "block %d\tForecastPaid\tticket=%s bettor=%s payout=%s ETH\n",
			e.Raw.BlockNumber, e.TicketId, e.Bettor.Hex(), wager.FormatPayout(e.PayoutWei))
	case *contract.CitySettled:
		fmt.Fprintf(w, "block %d\tCitySettled\tcity=%s winning=%s request=%s\n",
			e.Raw.BlockNumber, types.CityName(e.CityId.Uint64()), types.Condition(e.WinningCondition), e.RequestId)
	}
}

// newWatcher builds a watcher over the app's store. The websocket client is
// only dialed when follow is set.
func (a *app) newWatcher(ctx context.Context, follow bool) (*market.Watcher, func(), error) {
	var (
		wsClient ethereum.LogFilterer
		closeWS  = func() {}
	)
	if follow {
		if a.cfg.WSURL == "" {
			return nil, nil, fmt.Errorf("following events requires --ws-url")
		}
		client, err := utils.NewEthClientWithConfig(ctx, a.cfg.WSURL, nil, nil)
		if err != nil {
			a.logger.Error("Failed to dial websocket endpoint", zap.String("wsURL", a.cfg.WSURL), zap.Error(err))
			return nil, nil, wager.Wrap(wager.KindNetwork, wager.ReasonNone, err)
		}
		wsClient = client
		closeWS = client.Close
	}
	subscriber := evm.NewSubscriber(a.logger, a.client, wsClient, a.cfg.GetContractAddress(), contract.EventTopics())
	return market.NewWatcher(a.logger, a.markets, a.book, subscriber), closeWS, nil
}

func (a *app) startHeight(ctx context.Context, fromBlock int64) (uint64, error) {
	if fromBlock >= 0 {
		return uint64(fromBlock), nil
	}
	latest, err := a.client.BlockNumber(ctx)
	if err != nil {
		return 0, wager.Wrap(wager.KindNetwork, wager.ReasonNone, err)
	}
	if latest < defaultWatchDepth {
		return 0, nil
	}
	return latest - defaultWatchDepth, nil
}

func newWatchCmd() *cobra.Command {
	var (
		fromBlock int64
		follow    bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the contract's events",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			height, err := a.startHeight(ctx, fromBlock)
			if err != nil {
				return err
			}
			w, closeWS, err := a.newWatcher(ctx, follow)
			if err != nil {
				return err
			}
			defer closeWS()
			w.OnEvent(func(event interface{}) { writeEvent(a.out, event) })

			if !follow {
				_, err := w.CatchUp(ctx, height)
				return err
			}
			return w.Run(ctx, height, market.DefaultSubscribeTimeout)
		}),
	}
	cmd.Flags().Int64Var(&fromBlock, "from-block", -1, fmt.Sprintf("First block to read; negative starts %d blocks back", defaultWatchDepth))
	cmd.Flags().BoolVar(&follow, "follow", false, "Keep following new events over --ws-url")
	return cmd
}
