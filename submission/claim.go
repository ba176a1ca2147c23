// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package submission

import (
	"context"
	"errors"
	"math/big"

	"go.uber.org/zap"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/contract"
	"github.com/luxfi/wager/market"
)

// Claim redeems a ticket of the configured sender. The decryption proofs are
// passed through to the contract unchanged.
func (o *Orchestrator) Claim(
	ctx context.Context,
	ticketID *big.Int,
	proofCondition []byte,
	proofStake []byte,
) (*contract.Payout, error) {
	payout, err := o.claim(ctx, ticketID, proofCondition, proofStake)
	if o.metrics != nil {
		result := "paid"
		if err != nil {
			result = "failed"
		} else if payout.Event.PayoutWei.Sign() == 0 {
			result = "lost"
		}
		o.metrics.ObserveClaim(result)
	}
	return payout, err
}

func (o *Orchestrator) claim(
	ctx context.Context,
	ticketID *big.Int,
	proofCondition []byte,
	proofStake []byte,
) (*contract.Payout, error) {
	sender := o.book.SenderAddress()
	logger := o.logger.With(zap.Stringer("ticketID", ticketID), zap.Stringer("bettor", sender))

	if ticketID == nil || ticketID.Sign() <= 0 {
		return nil, wager.NewValidationError(wager.ReasonInvalidInput, "ticket id must be positive")
	}
	ticket, err := o.markets.Ticket(ctx, ticketID)
	if errors.Is(err, market.ErrTicketNotFound) {
		return nil, wager.NewValidationError(wager.ReasonInvalidInput, "ticket %s does not exist", ticketID)
	}
	if err != nil {
		return nil, wager.Wrap(wager.KindNetwork, wager.ReasonNone, err)
	}
	if ticket.Bettor != sender {
		return nil, wager.NewValidationError(
			wager.ReasonInvalidInput,
			"ticket %s belongs to %s", ticketID, ticket.Bettor,
		)
	}
	if ticket.Claimed {
		return nil, wager.NewValidationError(wager.ReasonInvalidInput, "ticket %s already claimed", ticketID)
	}
	payout, err := o.book.Claim(ctx, ticketID, proofCondition, proofStake, o.gasLimit)
	if err != nil {
		classified := ClassifyTxError(err)
		logger.Warn(
			"Claim rejected",
			zap.Stringer("kind", classified.Kind),
			zap.Stringer("reason", classified.Reason),
			zap.Error(err),
		)
		return nil, classified
	}

	o.markets.InvalidateTicket(ticketID)
	o.markets.Invalidate(ticket.CityID)
	logger.Info(
		"Ticket claimed",
		zap.String("payoutWei", payout.Event.PayoutWei.String()),
		zap.Stringer("txHash", payout.TxHash),
	)
	return payout, nil
}
