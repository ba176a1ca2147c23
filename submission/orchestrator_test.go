// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package submission_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/commitment"
	"github.com/luxfi/wager/contract"
	"github.com/luxfi/wager/contract/simulated"
	"github.com/luxfi/wager/crypto/fhe"
	"github.com/luxfi/wager/crypto/fhe/mockfhe"
	"github.com/luxfi/wager/crypto/fhe/mocks"
	"github.com/luxfi/wager/market"
	"github.com/luxfi/wager/metrics"
	"github.com/luxfi/wager/submission"
	"github.com/luxfi/wager/types"
)

var (
	bookAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	alice       = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	bob         = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	genesis     = time.Unix(1_700_000_000, 0)
	oneMilli    = big.NewInt(1_000_000_000_000_000)
)

type fixture struct {
	now      time.Time
	chain    *simulated.Chain
	store    *market.Store
	provider *fhe.Provider
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{now: genesis}
	f.chain = simulated.New(bookAddress, simulated.WithClock(f.clock))
	require.NoError(t, f.chain.CreateCityMarket(
		types.NewYorkCityID,
		types.ConditionCount,
		uint64(genesis.Add(time.Hour).Unix()),
	))
	reader := contract.NewBook(zap.NewNop(), bookAddress, f.chain, nil)
	store, err := market.NewStore(zap.NewNop(), reader, market.Config{})
	require.NoError(t, err)
	f.store = store.WithClock(f.clock)
	return f
}

func (f *fixture) clock() time.Time {
	return f.now
}

func (f *fixture) orchestrator(backend fhe.Backend, from common.Address, opts ...submission.Option) *submission.Orchestrator {
	f.provider = fhe.NewProvider(zap.NewNop(), backend, fhe.ProviderConfig{
		Network:        fhe.LocalConfig,
		Attempts:       3,
		RetryDelay:     time.Millisecond,
		AttemptTimeout: time.Second,
	})
	var transactor contract.Transactor
	if from != (common.Address{}) {
		transactor = f.chain.Account(from)
	}
	book := contract.NewBook(zap.NewNop(), bookAddress, f.chain, transactor)
	encryptor := fhe.NewEncryptor(zap.NewNop(), f.provider)
	opts = append([]submission.Option{submission.WithClock(f.clock)}, opts...)
	return submission.NewOrchestrator(zap.NewNop(), book, encryptor, f.store, opts...)
}

func statuses(trace []submission.Transition) []submission.Status {
	out := make([]submission.Status, len(trace))
	for i, t := range trace {
		out[i] = t.To
	}
	return out
}

func newYorkSunny() types.ForecastParams {
	return types.ForecastParams{
		CityID:    types.NewYorkCityID,
		Condition: types.Sunny,
		StakeWei:  oneMilli,
	}
}

func TestSubmitConfirmed(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	var observed []submission.Transition
	o := f.orchestrator(mockfhe.New(), alice, submission.WithObserver(func(t submission.Transition) {
		observed = append(observed, t)
	}))

	// Prime the market cache so invalidation is observable.
	before, err := f.store.Market(ctx, types.NewYorkCityID)
	require.NoError(err)
	require.Zero(before.TotalDepositedWei.Sign())

	outcome, err := o.Submit(ctx, newYorkSunny())
	require.NoError(err)
	require.Equal(submission.StatusConfirmed, outcome.Status)
	require.Nil(outcome.Err)
	require.NotEmpty(outcome.AttemptID)
	require.Equal(alice, outcome.Bettor)
	require.Equal([]submission.Status{
		submission.StatusValidating,
		submission.StatusEncrypting,
		submission.StatusCommitting,
		submission.StatusSubmitting,
		submission.StatusConfirmed,
	}, statuses(outcome.Trace))
	require.Equal(outcome.Trace, observed)

	enc := outcome.Encrypted
	require.NotNil(enc)
	require.Equal(
		commitment.Build(alice, types.NewYorkCityID, enc.ConditionHandle, enc.StakeHandle),
		outcome.Commitment,
	)

	event := outcome.Placement.Event
	require.Equal(uint64(types.NewYorkCityID), event.CityId.Uint64())
	require.Equal(alice, event.Bettor)
	require.Equal(int64(1), event.TicketId.Int64())
	require.Equal(event.TicketId, outcome.TicketID())

	after, err := f.store.Market(ctx, types.NewYorkCityID)
	require.NoError(err)
	require.Zero(oneMilli.Cmp(after.TotalDepositedWei))

	ticket, err := f.store.Ticket(ctx, event.TicketId)
	require.NoError(err)
	require.Equal(outcome.Commitment, ticket.Commitment)
	require.Equal(enc.ConditionHandle, ticket.EncryptedCondition)
}

func TestSubmitTwiceUsesFreshHandles(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	o := f.orchestrator(mockfhe.New(), alice)
	first, err := o.Submit(ctx, newYorkSunny())
	require.NoError(err)
	second, err := o.Submit(ctx, newYorkSunny())
	require.NoError(err)

	require.NotEqual(first.AttemptID, second.AttemptID)
	require.NotEqual(first.Commitment, second.Commitment)
	require.Equal(int64(2), second.TicketID().Int64())
}

func TestSubmitDuplicateHandles(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	instance := mocks.NewMockInstance(ctrl)
	builder := mocks.NewMockInputBuilder(ctrl)

	fixed := &fhe.EncryptedInput{
		Handles: [][]byte{
			common.HexToHash("0x01").Bytes(),
			common.HexToHash("0x02").Bytes(),
		},
		Proof: []byte{0x02, 0x00, 0xaa},
	}
	backend.EXPECT().Init(gomock.Any()).Return(nil)
	backend.EXPECT().CreateInstance(gomock.Any(), fhe.LocalConfig).Return(instance, nil)
	instance.EXPECT().CreateEncryptedInput(bookAddress, alice).Return(builder).Times(2)
	builder.EXPECT().Add8(uint8(types.Sunny)).Times(2)
	builder.EXPECT().Add64(oneMilli.Uint64()).Times(2)
	builder.EXPECT().Encrypt(gomock.Any()).Return(fixed, nil).Times(2)

	o := f.orchestrator(backend, alice)
	first, err := o.Submit(ctx, newYorkSunny())
	require.NoError(err)
	require.Equal(submission.StatusConfirmed, first.Status)

	second, err := o.Submit(ctx, newYorkSunny())
	require.Error(err)
	require.Equal(submission.StatusRejected, second.Status)
	require.Equal(first.Commitment, second.Commitment)
	require.ErrorIs(err, wager.ErrTransactionReverted)
	require.Equal(wager.ReasonDuplicateCommitment, second.Err.Reason)
	require.Contains(second.Err.Message, simulated.ReasonCommitmentUsed)
	require.Equal(submission.StatusSubmitting, second.Trace[len(second.Trace)-1].From)
}

func TestSubmitMarketLocked(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	// The backend has no expectations: any encryption attempt fails the test.
	ctrl := gomock.NewController(t)
	o := f.orchestrator(mocks.NewMockBackend(ctrl), alice)

	f.now = genesis.Add(time.Hour + time.Second)
	outcome, err := o.Submit(context.Background(), newYorkSunny())
	require.ErrorIs(err, wager.ErrValidation)
	require.Equal(wager.ReasonMarketLocked, outcome.Err.Reason)
	require.Equal([]submission.Status{
		submission.StatusValidating,
		submission.StatusRejected,
	}, statuses(outcome.Trace))
	require.Nil(outcome.Encrypted)
	require.Equal(fhe.StatusIdle, f.provider.State().Status)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		from   common.Address
		params types.ForecastParams
		reason wager.RejectReason
	}{
		{
			name:   "wallet not connected",
			params: newYorkSunny(),
			reason: wager.ReasonWalletNotConnected,
		},
		{
			name:   "zero city",
			from:   alice,
			params: types.ForecastParams{Condition: types.Sunny, StakeWei: oneMilli},
			reason: wager.ReasonInvalidInput,
		},
		{
			name:   "condition out of range",
			from:   alice,
			params: types.ForecastParams{CityID: types.NewYorkCityID, Condition: 4, StakeWei: oneMilli},
			reason: wager.ReasonInvalidInput,
		},
		{
			name:   "zero stake",
			from:   alice,
			params: types.ForecastParams{CityID: types.NewYorkCityID, Condition: types.Rainy, StakeWei: new(big.Int)},
			reason: wager.ReasonZeroStake,
		},
		{
			name:   "negative stake",
			from:   alice,
			params: types.ForecastParams{CityID: types.NewYorkCityID, Condition: types.Rainy, StakeWei: big.NewInt(-1)},
			reason: wager.ReasonZeroStake,
		},
		{
			name:   "no market",
			from:   alice,
			params: types.ForecastParams{CityID: 2643743, Condition: types.Cloudy, StakeWei: oneMilli},
			reason: wager.ReasonMarketNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			f := newFixture(t)
			ctrl := gomock.NewController(t)
			o := f.orchestrator(mocks.NewMockBackend(ctrl), tt.from)

			outcome, err := o.Submit(context.Background(), tt.params)
			require.ErrorIs(err, wager.ErrValidation)
			require.Equal(tt.reason, outcome.Err.Reason)
			require.Equal(submission.StatusRejected, outcome.Status)
			require.Len(outcome.Trace, 2)
		})
	}
}

func TestSubmitInsufficientFunds(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.chain.SetBalance(alice, big.NewInt(1))

	o := f.orchestrator(mockfhe.New(), alice)
	outcome, err := o.Submit(context.Background(), newYorkSunny())
	require.ErrorIs(err, wager.ErrTransactionRejected)
	require.Equal(wager.ReasonInsufficientFunds, outcome.Err.Reason)
	require.NotNil(outcome.Encrypted)
}

func TestSubmitBackendInitFailure(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().Init(gomock.Any()).Return(errors.New("relayer unreachable")).Times(3)

	registry := prometheus.NewRegistry()
	o := f.orchestrator(backend, alice, submission.WithMetrics(metrics.NewWagerMetrics(registry)))
	outcome, err := o.Submit(context.Background(), newYorkSunny())
	require.ErrorIs(err, wager.ErrBackendInit)
	require.Equal([]submission.Status{
		submission.StatusValidating,
		submission.StatusEncrypting,
		submission.StatusRejected,
	}, statuses(outcome.Trace))
	require.Equal(fhe.StatusError, f.provider.State().Status)

	families, err := registry.Gather()
	require.NoError(err)
	require.NotEmpty(families)
}

func TestClaim(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	o := f.orchestrator(mockfhe.New(), alice)
	winner, err := o.Submit(ctx, newYorkSunny())
	require.NoError(err)
	loserParams := newYorkSunny()
	loserParams.Condition = types.Snowy
	loser, err := o.Submit(ctx, loserParams)
	require.NoError(err)

	f.chain.Reveal(winner.Encrypted.ConditionHandle, types.Sunny)
	f.chain.Reveal(loser.Encrypted.ConditionHandle, types.Snowy)
	f.now = genesis.Add(2 * time.Hour)
	require.NoError(f.chain.SettleCity(types.NewYorkCityID, types.Sunny, 2*wager.Scale))

	// Someone else's ticket is refused before any transaction.
	other := f.orchestrator(mockfhe.New(), bob)
	_, err = other.Claim(ctx, winner.TicketID(), nil, nil)
	require.ErrorIs(err, wager.ErrValidation)

	payout, err := o.Claim(ctx, winner.TicketID(), nil, nil)
	require.NoError(err)
	require.Zero(new(big.Int).Mul(oneMilli, big.NewInt(2)).Cmp(payout.Event.PayoutWei))

	payout, err = o.Claim(ctx, loser.TicketID(), nil, nil)
	require.NoError(err)
	require.Zero(payout.Event.PayoutWei.Sign())

	// The claimed flag is re-read after the claim.
	_, err = o.Claim(ctx, winner.TicketID(), nil, nil)
	require.ErrorIs(err, wager.ErrValidation)
}

func TestClaimBeforeSettlement(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	o := f.orchestrator(mockfhe.New(), alice)
	placed, err := o.Submit(ctx, newYorkSunny())
	require.NoError(err)

	_, err = o.Claim(ctx, placed.TicketID(), nil, nil)
	require.ErrorIs(err, wager.ErrTransactionReverted)
	require.ErrorContains(err, simulated.ReasonMarketNotSettled)
}
