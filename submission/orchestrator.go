// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

// Package submission sequences a forecast from plaintext input to a mined
// placeForecast transaction and classifies the result.
package submission

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/commitment"
	"github.com/luxfi/wager/contract"
	"github.com/luxfi/wager/crypto/fhe"
	"github.com/luxfi/wager/metrics"
	"github.com/luxfi/wager/types"
)

// DefaultGasLimit covers the encrypted-input verification in placeForecast.
const DefaultGasLimit uint64 = 5_000_000

// Encryptor produces a fresh encrypted forecast per call.
type Encryptor interface {
	Encrypt(
		ctx context.Context,
		contractAddress common.Address,
		userAddress common.Address,
		condition types.Condition,
		stakeWei *big.Int,
	) (*types.EncryptedForecast, error)
}

// Markets is the market-data collaborator. The orchestrator only reads
// through it and tells it what to forget after a state change.
type Markets interface {
	Market(ctx context.Context, cityID uint64) (*types.CityMarket, error)
	Ticket(ctx context.Context, ticketID *big.Int) (*types.Ticket, error)
	Invalidate(cityID uint64)
	InvalidateTicket(ticketID *big.Int)
}

// Book is the transaction side of the contract.
type Book interface {
	Address() common.Address
	SenderAddress() common.Address
	PlaceForecast(
		ctx context.Context,
		cityID uint64,
		enc *types.EncryptedForecast,
		commitment types.Commitment,
		stakeWei *big.Int,
		gasLimit uint64,
	) (*contract.Placement, error)
	Claim(
		ctx context.Context,
		ticketID *big.Int,
		proofCondition []byte,
		proofStake []byte,
		gasLimit uint64,
	) (*contract.Payout, error)
}

var _ Book = (*contract.Book)(nil)

// Outcome is the record of one submission attempt.
type Outcome struct {
	AttemptID  string                   `json:"attemptId"`
	Bettor     common.Address           `json:"bettor"`
	Params     types.ForecastParams     `json:"params"`
	Status     Status                   `json:"status"`
	Trace      []Transition             `json:"trace"`
	Encrypted  *types.EncryptedForecast `json:"encrypted,omitempty"`
	Commitment types.Commitment         `json:"commitment"`
	Placement  *contract.Placement      `json:"-"`
	Err        *wager.Error             `json:"-"`
	StartedAt  time.Time                `json:"startedAt"`
	FinishedAt time.Time                `json:"finishedAt"`
}

// TicketID returns the id assigned by the contract, or nil before Confirmed.
func (o *Outcome) TicketID() *big.Int {
	if o.Placement == nil || o.Placement.Event == nil {
		return nil
	}
	return o.Placement.Event.TicketId
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func WithGasLimit(gasLimit uint64) Option {
	return func(o *Orchestrator) {
		if gasLimit != 0 {
			o.gasLimit = gasLimit
		}
	}
}

func WithMetrics(m *metrics.WagerMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		o.observers = append(o.observers, observer)
	}
}

// Orchestrator runs submissions. It keeps no state between attempts, so a
// failed attempt leaves nothing behind and may be retried with fresh input.
// Concurrent Submit calls are independent.
type Orchestrator struct {
	logger    *zap.Logger
	book      Book
	encryptor Encryptor
	markets   Markets
	metrics   *metrics.WagerMetrics
	observers []Observer
	now       func() time.Time
	gasLimit  uint64
}

func NewOrchestrator(
	logger *zap.Logger,
	book Book,
	encryptor Encryptor,
	markets Markets,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		logger:    logger,
		book:      book,
		encryptor: encryptor,
		markets:   markets,
		now:       time.Now,
		gasLimit:  DefaultGasLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// attempt carries one submission through its states.
type attempt struct {
	o       *Orchestrator
	logger  *zap.Logger
	outcome *Outcome
}

func (a *attempt) advance(to Status) {
	t := Transition{
		AttemptID: a.outcome.AttemptID,
		From:      a.outcome.Status,
		To:        to,
		At:        a.o.now(),
	}
	a.outcome.Status = to
	a.outcome.Trace = append(a.outcome.Trace, t)
	a.logger.Debug("Submission transition", zap.Stringer("from", t.From), zap.Stringer("to", t.To))
	for _, observer := range a.o.observers {
		observer(t)
	}
}

func (a *attempt) reject(err *wager.Error) (*Outcome, error) {
	a.outcome.Err = err
	a.advance(StatusRejected)
	a.finish()
	a.logger.Warn(
		"Forecast submission rejected",
		zap.Stringer("kind", err.Kind),
		zap.Stringer("reason", err.Reason),
		zap.String("message", err.Message),
	)
	return a.outcome, err
}

func (a *attempt) finish() {
	a.outcome.FinishedAt = a.o.now()
	if a.o.metrics == nil {
		return
	}
	kind, reason := "", ""
	if a.outcome.Err != nil {
		kind = a.outcome.Err.Kind.String()
		reason = a.outcome.Err.Reason.String()
	}
	a.o.metrics.ObserveSubmission(
		a.outcome.Status.String(),
		kind,
		reason,
		a.outcome.FinishedAt.Sub(a.outcome.StartedAt),
	)
}

// Submit validates params, encrypts them, builds the commitment and places
// the forecast. The returned outcome is always non-nil and terminal; the
// error is the outcome's *wager.Error when it ends Rejected.
func (o *Orchestrator) Submit(ctx context.Context, params types.ForecastParams) (*Outcome, error) {
	bettor := o.book.SenderAddress()
	outcome := &Outcome{
		AttemptID: uuid.NewString(),
		Bettor:    bettor,
		Params:    params,
		Status:    StatusNotStarted,
		StartedAt: o.now(),
	}
	a := &attempt{
		o:       o,
		outcome: outcome,
		logger: o.logger.With(
			zap.String("attemptID", outcome.AttemptID),
			zap.Uint64("cityID", params.CityID),
			zap.Stringer("bettor", bettor),
		),
	}

	a.advance(StatusValidating)
	if err := o.validate(ctx, bettor, params); err != nil {
		return a.reject(err)
	}

	a.advance(StatusEncrypting)
	enc, err := o.encryptor.Encrypt(ctx, o.book.Address(), bettor, params.Condition, params.StakeWei)
	if err != nil {
		if e, ok := wager.AsError(err); ok {
			return a.reject(e)
		}
		return a.reject(wager.Wrap(wager.KindEncryption, wager.ReasonNone, err))
	}
	outcome.Encrypted = enc

	a.advance(StatusCommitting)
	outcome.Commitment = commitment.ForForecast(bettor, params.CityID, enc)
	a.logger.Debug("Built commitment", zap.Stringer("commitment", outcome.Commitment))

	a.advance(StatusSubmitting)
	placement, err := o.book.PlaceForecast(ctx, params.CityID, enc, outcome.Commitment, params.StakeWei, o.gasLimit)
	if err != nil {
		return a.reject(ClassifyTxError(err))
	}
	outcome.Placement = placement

	o.markets.Invalidate(params.CityID)
	a.advance(StatusConfirmed)
	a.finish()
	a.logger.Info(
		"Forecast confirmed",
		zap.String("ticketID", placement.Event.TicketId.String()),
		zap.Stringer("txHash", placement.TxHash),
		zap.Uint64("blockNumber", placement.BlockNumber),
	)
	return outcome, nil
}

func (o *Orchestrator) validate(ctx context.Context, bettor common.Address, params types.ForecastParams) *wager.Error {
	if bettor == (common.Address{}) {
		return wager.NewValidationError(wager.ReasonWalletNotConnected, "no sender account configured")
	}
	if params.CityID == 0 {
		return wager.NewValidationError(wager.ReasonInvalidInput, "city id must be positive")
	}
	if err := fhe.ValidateForecastInput(params.Condition, params.StakeWei); err != nil {
		e, _ := wager.AsError(err)
		return e
	}

	market, err := o.markets.Market(ctx, params.CityID)
	if err != nil {
		return wager.Wrap(wager.KindNetwork, wager.ReasonNone, err)
	}
	if market == nil || !market.Exists {
		return wager.NewValidationError(wager.ReasonMarketNotFound, "no market for city %d", params.CityID)
	}
	if market.LockedAt(o.now()) {
		return wager.NewValidationError(
			wager.ReasonMarketLocked,
			"market for city %d locked at %s", params.CityID, market.LockTime().UTC().Format(time.RFC3339),
		)
	}
	if market.ConditionCount != 0 && uint8(params.Condition) >= market.ConditionCount {
		return wager.NewValidationError(
			wager.ReasonInvalidInput,
			"condition %s not offered by market for city %d", params.Condition, params.CityID,
		)
	}
	return nil
}
