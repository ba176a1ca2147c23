// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/types"
)

const timeLayout = time.RFC3339

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseCityArg accepts a numeric city id or a catalog name.
func parseCityArg(arg string) (uint64, error) {
	if id, err := strconv.ParseUint(arg, 10, 64); err == nil {
		if id == 0 {
			return 0, fmt.Errorf("city id must be positive")
		}
		return id, nil
	}
	matches := types.CitiesByName(arg)
	if len(matches) == 0 {
		return 0, fmt.Errorf("unknown city %q", arg)
	}
	// Prefer the largest id; the deployed markets use geonames ids.
	return matches[len(matches)-1].ID, nil
}

func parseTicketArg(arg string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(arg, 10)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("invalid ticket id %q", arg)
	}
	return id, nil
}

func newCitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cities",
		Short: "List the cities markets can be opened for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tCOUNTRY\tTIMEZONE")
			for _, c := range types.Cities() {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, c.Name, c.Country, c.Timezone)
			}
			return tw.Flush()
		},
	}
}

func writeMarket(w io.Writer, m *types.CityMarket, now time.Time) error {
	if !m.Exists {
		_, err := fmt.Fprintf(w, "No market for %s (%d)\n", types.CityName(m.CityID), m.CityID)
		return err
	}
	status := "open"
	switch {
	case m.Settled:
		status = "settled"
	case m.LockedAt(now):
		status = "locked"
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "City:\t%s (%d)\n", types.CityName(m.CityID), m.CityID)
	fmt.Fprintf(tw, "Status:\t%s\n", status)
	fmt.Fprintf(tw, "Locks at:\t%s\n", m.LockTime().UTC().Format(timeLayout))
	fmt.Fprintf(tw, "Conditions:\t%d\n", m.ConditionCount)
	fmt.Fprintf(tw, "Deposited:\t%s ETH\n", wager.FormatEther(m.TotalDepositedWei))
	if m.Settled {
		fmt.Fprintf(tw, "Winning condition:\t%s\n", types.Condition(m.WinningCondition))
		fmt.Fprintf(tw, "Payout ratio:\t%d\n", m.PayoutRatio)
		fmt.Fprintf(tw, "Paid out:\t%s ETH\n", wager.FormatEther(m.TotalPaidWei))
	} else if m.GatewayRequestID != nil && m.GatewayRequestID.Sign() > 0 {
		fmt.Fprintf(tw, "Settlement request:\t%s\n", m.GatewayRequestID)
	}
	return tw.Flush()
}

func newMarketCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "market <city>...",
		Short: "Show the market of one or more cities",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			cityIDs := make([]uint64, len(args))
			for i, arg := range args {
				id, err := parseCityArg(arg)
				if err != nil {
					return err
				}
				cityIDs[i] = id
			}
			markets, err := a.markets.Markets(ctx, cityIDs)
			if err != nil {
				return wager.Wrap(wager.KindNetwork, wager.ReasonNone, err)
			}
			if asJSON {
				return printJSON(a.out, markets)
			}
			now := time.Now()
			for i, m := range markets {
				if i > 0 {
					fmt.Fprintln(a.out)
				}
				if err := writeMarket(a.out, m, now); err != nil {
					return err
				}
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func writeTickets(w io.Writer, tickets []*types.Ticket) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "TICKET\tCITY\tBETTOR\tCOMMITMENT\tCLAIMED")
	for _, t := range tickets {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%t\n", t.TicketID, t.CityID, t.Bettor.Hex(), t.Commitment.Hex(), t.Claimed)
	}
	return tw.Flush()
}

func newTicketsCmd() *cobra.Command {
	var (
		bettor string
		mine   bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "tickets <city>",
		Short: "List the tickets placed on a city's market",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			cityID, err := parseCityArg(args[0])
			if err != nil {
				return err
			}

			var tickets []*types.Ticket
			switch {
			case mine:
				if err := a.requireSigner(); err != nil {
					return err
				}
				tickets, err = a.markets.TicketsOf(ctx, cityID, a.book.SenderAddress())
			case bettor != "":
				if !common.IsHexAddress(bettor) {
					return fmt.Errorf("invalid bettor address %q", bettor)
				}
				tickets, err = a.markets.TicketsOf(ctx, cityID, common.HexToAddress(bettor))
			default:
				tickets, err = a.markets.Tickets(ctx, cityID)
			}
			if err != nil {
				return wager.Wrap(wager.KindNetwork, wager.ReasonNone, err)
			}
			if asJSON {
				return printJSON(a.out, tickets)
			}
			return writeTickets(a.out, tickets)
		}),
	}
	cmd.Flags().StringVar(&bettor, "bettor", "", "Only list tickets of this address")
	cmd.Flags().BoolVar(&mine, "mine", false, "Only list tickets of the configured account")
	cmd.MarkFlagsMutuallyExclusive("bettor", "mine")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newTicketCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ticket <ticket-id>",
		Short: "Show one ticket",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			ticketID, err := parseTicketArg(args[0])
			if err != nil {
				return err
			}
			t, err := a.markets.Ticket(ctx, ticketID)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(a.out, t)
			}
			tw := newTable(a.out)
			fmt.Fprintf(tw, "Ticket:\t%s\n", t.TicketID)
			fmt.Fprintf(tw, "City:\t%s (%d)\n", types.CityName(t.CityID), t.CityID)
			fmt.Fprintf(tw, "Bettor:\t%s\n", t.Bettor.Hex())
			fmt.Fprintf(tw, "Encrypted condition:\t%s\n", t.EncryptedCondition.Hex())
			fmt.Fprintf(tw, "Encrypted stake:\t%s\n", t.EncryptedStake.Hex())
			fmt.Fprintf(tw, "Commitment:\t%s\n", t.Commitment.Hex())
			fmt.Fprintf(tw, "Claimed:\t%t\n", t.Claimed)
			return tw.Flush()
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newSettlementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settlement <request-id>",
		Short: "Show a settlement decryption request",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			requestID, ok := new(big.Int).SetString(args[0], 10)
			if !ok || requestID.Sign() < 0 {
				return fmt.Errorf("invalid request id %q", args[0])
			}
			job, err := a.book.DecryptionJob(ctx, requestID)
			if err != nil {
				return wager.Wrap(wager.KindNetwork, wager.ReasonNone, err)
			}
			return printJSON(a.out, job)
		}),
	}
}
