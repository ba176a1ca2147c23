// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/commitment"
	"github.com/luxfi/wager/submission"
	"github.com/luxfi/wager/types"
	"github.com/luxfi/wager/utils"
)

// checkStakeBounds enforces the client-side stake range. The contract only
// requires a positive stake.
func checkStakeBounds(stakeWei, minWei, maxWei *big.Int) error {
	if stakeWei.Cmp(minWei) < 0 {
		return wager.NewValidationError(
			wager.ReasonInvalidInput,
			"stake %s ETH is below the minimum of %s ETH",
			wager.FormatEther(stakeWei), wager.FormatEther(minWei),
		)
	}
	if stakeWei.Cmp(maxWei) > 0 {
		return wager.NewValidationError(
			wager.ReasonInvalidInput,
			"stake %s ETH is above the maximum of %s ETH",
			wager.FormatEther(stakeWei), wager.FormatEther(maxWei),
		)
	}
	return nil
}

func writeOutcome(w io.Writer, o *submission.Outcome) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Attempt:\t%s\n", o.AttemptID)
	for _, tr := range o.Trace {
		fmt.Fprintf(tw, "  %s\t-> %s\t%s\n", tr.From, tr.To, tr.At.UTC().Format(timeLayout))
	}
	fmt.Fprintf(tw, "Status:\t%s\n", o.Status)
	if o.Encrypted != nil {
		fmt.Fprintf(tw, "Commitment:\t%s\n", o.Commitment.Hex())
	}
	if o.Placement != nil {
		fmt.Fprintf(tw, "Ticket:\t%s\n", o.TicketID())
		fmt.Fprintf(tw, "Transaction:\t%s\n", o.Placement.TxHash.Hex())
		fmt.Fprintf(tw, "Block:\t%d\n", o.Placement.BlockNumber)
	}
	if o.Err != nil {
		fmt.Fprintf(tw, "Error:\t%s\n", o.Err.Message)
		if d := o.Err.Reason.Description(); d != "" {
			fmt.Fprintf(tw, "\t%s\n", d)
		}
	}
	return tw.Flush()
}

func newPlaceCmd() *cobra.Command {
	var (
		city      string
		condition string
		stake     string
		stakeWei  string
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Encrypt and place a forecast",
		Long: `Encrypt a condition and stake for the configured account and place them
on a city's market. The stake is attached to the transaction in the clear; the
contract only learns the encrypted stake through the handle.`,
		Args: cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			if err := a.requireSigner(); err != nil {
				return err
			}
			cityID, err := parseCityArg(city)
			if err != nil {
				return err
			}
			cond, err := types.ParseCondition(condition)
			if err != nil {
				return wager.NewValidationError(wager.ReasonInvalidInput, "%s", err)
			}

			var wei *big.Int
			if stakeWei != "" {
				var ok bool
				if wei, ok = new(big.Int).SetString(stakeWei, 10); !ok {
					return wager.NewValidationError(wager.ReasonInvalidInput, "invalid stake-wei %q", stakeWei)
				}
			} else if wei, err = wager.ParseEther(stake); err != nil {
				return wager.NewValidationError(wager.ReasonInvalidInput, "invalid stake: %s", err)
			}
			if !force {
				minWei, maxWei := a.cfg.GetStakeBounds()
				if err := checkStakeBounds(wei, minWei, maxWei); err != nil {
					return err
				}
			}

			outcome, err := a.orchestrator.Submit(ctx, types.ForecastParams{
				CityID:    cityID,
				Condition: cond,
				StakeWei:  wei,
			})
			if werr := writeOutcome(a.out, outcome); werr != nil {
				a.logger.Warn("Failed to print outcome", zap.Error(werr))
			}
			return err
		}),
	}
	cmd.Flags().StringVar(&city, "city", "", "City id or name")
	cmd.Flags().StringVar(&condition, "condition", "", "Forecast condition: sunny, rainy, snowy, cloudy or its index")
	cmd.Flags().StringVar(&stake, "stake", "", "Stake in ETH")
	cmd.Flags().StringVar(&stakeWei, "stake-wei", "", "Stake in wei")
	cmd.Flags().BoolVar(&force, "force", false, "Skip the configured stake bounds")
	_ = cmd.MarkFlagRequired("city")
	_ = cmd.MarkFlagRequired("condition")
	cmd.MarkFlagsOneRequired("stake", "stake-wei")
	cmd.MarkFlagsMutuallyExclusive("stake", "stake-wei")
	return cmd
}

func decodeHexFlag(name, value string) ([]byte, error) {
	b, err := hex.DecodeString(utils.SanitizeHexString(value))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return b, nil
}

func newClaimCmd() *cobra.Command {
	var proofCondition, proofStake string
	cmd := &cobra.Command{
		Use:   "claim <ticket-id>",
		Short: "Claim the payout of a ticket of the configured account",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := a.requireSigner(); err != nil {
				return err
			}
			ticketID, err := parseTicketArg(args[0])
			if err != nil {
				return err
			}
			conditionProof, err := decodeHexFlag("proof-condition", proofCondition)
			if err != nil {
				return err
			}
			stakeProof, err := decodeHexFlag("proof-stake", proofStake)
			if err != nil {
				return err
			}

			payout, err := a.orchestrator.Claim(ctx, ticketID, conditionProof, stakeProof)
			if err != nil {
				return err
			}
			tw := newTable(a.out)
			fmt.Fprintf(tw, "Ticket:\t%s\n", ticketID)
			fmt.Fprintf(tw, "Payout:\t%s ETH\n", wager.FormatPayout(payout.Event.PayoutWei))
			fmt.Fprintf(tw, "Transaction:\t%s\n", payout.TxHash.Hex())
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVar(&proofCondition, "proof-condition", "", "Hex decryption proof of the ticket's condition")
	cmd.Flags().StringVar(&proofStake, "proof-stake", "", "Hex decryption proof of the ticket's stake")
	return cmd
}

func newCommitmentCmd() *cobra.Command {
	var (
		bettor          string
		city            string
		conditionHandle string
		stakeHandle     string
		expected        string
	)
	cmd := &cobra.Command{
		Use:   "commitment",
		Short: "Compute or verify a ticket commitment offline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !common.IsHexAddress(bettor) {
				return fmt.Errorf("invalid bettor address %q", bettor)
			}
			cityID, err := parseCityArg(city)
			if err != nil {
				return err
			}
			handles := make([]common.Hash, 2)
			for i, h := range []string{conditionHandle, stakeHandle} {
				b, err := decodeHexFlag("handle", h)
				if err != nil {
					return err
				}
				if len(b) != common.HashLength {
					return fmt.Errorf("handle %q must be %d bytes", h, common.HashLength)
				}
				handles[i] = common.BytesToHash(b)
			}

			addr := common.HexToAddress(bettor)
			if expected == "" {
				c := commitment.Build(addr, cityID, handles[0], handles[1])
				fmt.Fprintln(cmd.OutOrStdout(), c.Hex())
				return nil
			}
			if !commitment.Verify(common.HexToHash(expected), addr, cityID, handles[0], handles[1]) {
				return fmt.Errorf("commitment %s does not match", expected)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&bettor, "bettor", "", "Bettor address")
	cmd.Flags().StringVar(&city, "city", "", "City id or name")
	cmd.Flags().StringVar(&conditionHandle, "condition-handle", "", "Encrypted condition handle")
	cmd.Flags().StringVar(&stakeHandle, "stake-handle", "", "Encrypted stake handle")
	cmd.Flags().StringVar(&expected, "verify", "", "Check this commitment instead of printing one")
	for _, name := range []string{"bettor", "city", "condition-handle", "stake-handle"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
