// Copyright (C) 2024, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luxfi/wager/contract"
	"github.com/luxfi/wager/contract/simulated"
	"github.com/luxfi/wager/crypto/fhe"
	"github.com/luxfi/wager/crypto/fhe/mockfhe"
	"github.com/luxfi/wager/market"
	"github.com/luxfi/wager/metrics"
	"github.com/luxfi/wager/submission"
	"github.com/luxfi/wager/types"
)

var (
	bookAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	alice       = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	genesis     = time.Unix(1_700_000_000, 0)
)

type testServer struct {
	now   time.Time
	chain *simulated.Chain
	mux   *http.ServeMux
}

func newTestServer(t *testing.T) *testServer {
	s := &testServer{now: genesis}
	clock := func() time.Time { return s.now }

	s.chain = simulated.New(bookAddress, simulated.WithClock(clock))
	require.NoError(t, s.chain.CreateCityMarket(
		types.NewYorkCityID,
		types.ConditionCount,
		uint64(genesis.Add(time.Hour).Unix()),
	))

	logger := zap.NewNop()
	book := contract.NewBook(logger, bookAddress, s.chain, s.chain.Account(alice))
	store, err := market.NewStore(logger, book, market.Config{})
	require.NoError(t, err)
	store.WithClock(clock)

	provider := fhe.NewProvider(logger, mockfhe.New(), fhe.ProviderConfig{Network: fhe.LocalConfig})
	orchestrator := submission.NewOrchestrator(
		logger,
		book,
		fhe.NewEncryptor(logger, provider),
		store,
		submission.WithClock(clock),
	)

	m := metrics.NewWagerMetrics(prometheus.NewRegistry())
	s.mux = http.NewServeMux()
	NewHandler(logger, m, store, orchestrator, provider, 8).WithClock(clock).Register(s.mux)
	return s
}

func (s *testServer) do(t *testing.T, method, path, body string, out any) int {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestCities(t *testing.T) {
	s := newTestServer(t)

	var cities []types.City
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, CitiesPath, "", &cities))
	require.NotEmpty(t, cities)
	require.Equal(t, uint64(1), cities[0].ID)
}

func TestMarket(t *testing.T) {
	require := require.New(t)
	s := newTestServer(t)

	var m MarketResponse
	require.Equal(http.StatusOK, s.do(t, http.MethodGet, "/v1/markets/5128581", "", &m))
	require.True(m.Exists)
	require.Equal("New York", m.CityName)
	require.False(m.Locked)
	require.Equal("0", m.TotalDepositedWei)

	var errResp ErrorResponse
	require.Equal(http.StatusNotFound, s.do(t, http.MethodGet, "/v1/markets/2643743", "", &errResp))
	require.NotEmpty(errResp.Error)
	require.Equal(http.StatusBadRequest, s.do(t, http.MethodGet, "/v1/markets/abc", "", nil))
}

func TestSubmitAndLookup(t *testing.T) {
	require := require.New(t)
	s := newTestServer(t)

	var outcome OutcomeResponse
	code := s.do(t, http.MethodPost, ForecastPath, `{"cityId":5128581,"condition":"sunny","stake":"0.001"}`, &outcome)
	require.Equal(http.StatusOK, code)
	require.Equal(submission.StatusConfirmed, outcome.Status)
	require.Equal("1", outcome.TicketID)
	require.Equal("1000000000000000", outcome.StakeWei)
	require.Equal(alice.Hex(), outcome.Bettor)
	require.Len(outcome.Trace, 5)
	require.Nil(outcome.Error)

	var stored OutcomeResponse
	require.Equal(http.StatusOK, s.do(t, http.MethodGet, ForecastPath+"/"+outcome.AttemptID, "", &stored))
	require.Equal(outcome.Commitment, stored.Commitment)

	var ticket TicketResponse
	require.Equal(http.StatusOK, s.do(t, http.MethodGet, "/v1/tickets/1", "", &ticket))
	require.Equal(outcome.Commitment, ticket.Commitment)
	require.Equal(outcome.ConditionHandle, ticket.EncryptedCondition)

	var tickets []TicketResponse
	require.Equal(http.StatusOK, s.do(t, http.MethodGet, "/v1/markets/5128581/tickets?bettor="+alice.Hex(), "", &tickets))
	require.Len(tickets, 1)

	var m MarketResponse
	require.Equal(http.StatusOK, s.do(t, http.MethodGet, "/v1/markets/5128581", "", &m))
	require.Equal("1000000000000000", m.TotalDepositedWei)

	var recent []OutcomeResponse
	require.Equal(http.StatusOK, s.do(t, http.MethodGet, ForecastPath+"?limit=5", "", &recent))
	require.Len(recent, 1)

	var provider ProviderResponse
	require.Equal(http.StatusOK, s.do(t, http.MethodGet, ProviderPath, "", &provider))
	require.Equal(fhe.StatusReady.String(), provider.Status)
}

func TestSubmitRejected(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		code   int
		reason string
	}{
		{
			name:   "bad body",
			body:   `{"cityId":`,
			code:   http.StatusBadRequest,
			reason: "invalid input",
		},
		{
			name:   "unknown condition",
			body:   `{"cityId":5128581,"condition":"foggy","stake":"0.001"}`,
			code:   http.StatusBadRequest,
			reason: "invalid input",
		},
		{
			name:   "both stakes",
			body:   `{"cityId":5128581,"condition":"rainy","stake":"0.001","stakeWei":"1"}`,
			code:   http.StatusBadRequest,
			reason: "invalid input",
		},
		{
			name:   "malformed stake",
			body:   `{"cityId":5128581,"condition":"rainy","stake":"+1"}`,
			code:   http.StatusBadRequest,
			reason: "invalid input",
		},
		{
			name:   "zero stake",
			body:   `{"cityId":5128581,"condition":"rainy","stakeWei":"0"}`,
			code:   http.StatusBadRequest,
			reason: "zero stake",
		},
		{
			name:   "no market",
			body:   `{"cityId":2643743,"condition":"cloudy","stake":"0.01"}`,
			code:   http.StatusNotFound,
			reason: "market not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			s := newTestServer(t)

			var outcome OutcomeResponse
			require.Equal(tt.code, s.do(t, http.MethodPost, ForecastPath, tt.body, &outcome))
			require.Equal(submission.StatusRejected, outcome.Status)
			require.NotNil(outcome.Error)
			require.Equal(tt.reason, outcome.Error.Reason)
			if tt.code == http.StatusBadRequest {
				require.Equal("ValidationError", outcome.Error.Kind)
			}
		})
	}
}

func TestSubmitLockedMarket(t *testing.T) {
	require := require.New(t)
	s := newTestServer(t)
	s.now = genesis.Add(2 * time.Hour)

	var outcome OutcomeResponse
	code := s.do(t, http.MethodPost, ForecastPath, `{"cityId":5128581,"condition":"0","stake":"0.001"}`, &outcome)
	require.Equal(http.StatusBadRequest, code)
	require.Equal("ValidationError", outcome.Error.Kind)
	require.Equal("market locked", outcome.Error.Reason)
	require.Empty(outcome.ConditionHandle)

	var stored OutcomeResponse
	require.Equal(http.StatusOK, s.do(t, http.MethodGet, ForecastPath+"/"+outcome.AttemptID, "", &stored))
	require.Equal(submission.StatusRejected, stored.Status)
}

func TestUnknownOutcomeAndTicket(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, ForecastPath+"/nope", "", nil))
	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/tickets/42", "", nil))
	require.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/v1/tickets/0", "", nil))
}
