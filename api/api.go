// Copyright (C) 2024, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/cache"
	"github.com/luxfi/wager/crypto/fhe"
	"github.com/luxfi/wager/market"
	"github.com/luxfi/wager/metrics"
	"github.com/luxfi/wager/submission"
	"github.com/luxfi/wager/types"
)

const (
	CitiesPath   = "/v1/cities"
	MarketPath   = "/v1/markets/{cityID}"
	TicketsPath  = "/v1/markets/{cityID}/tickets"
	TicketPath   = "/v1/tickets/{ticketID}"
	ForecastPath = "/v1/forecasts"
	OutcomePath  = "/v1/forecasts/{attemptID}"
	ProviderPath = "/v1/provider"

	// DefaultSubmitTimeout covers encryption plus inclusion of the transaction.
	DefaultSubmitTimeout = 3 * time.Minute

	maxRequestBodyBytes = 1 << 16
	defaultRecentLimit  = 20
)

// Markets is the read side served by the API.
type Markets interface {
	Market(ctx context.Context, cityID uint64) (*types.CityMarket, error)
	Tickets(ctx context.Context, cityID uint64) ([]*types.Ticket, error)
	TicketsOf(ctx context.Context, cityID uint64, bettor common.Address) ([]*types.Ticket, error)
	Ticket(ctx context.Context, ticketID *big.Int) (*types.Ticket, error)
}

// Submitter places forecasts.
type Submitter interface {
	Submit(ctx context.Context, params types.ForecastParams) (*submission.Outcome, error)
}

// Handler serves the wager HTTP API. Outcomes of submissions made through it
// are kept in a bounded history for later lookup.
type Handler struct {
	logger        *zap.Logger
	metrics       *metrics.WagerMetrics
	markets       Markets
	submitter     Submitter
	provider      *fhe.Provider
	outcomes      *cache.FIFOCache[string, *submission.Outcome]
	now           func() time.Time
	submitTimeout time.Duration
}

func NewHandler(
	logger *zap.Logger,
	metrics *metrics.WagerMetrics,
	markets Markets,
	submitter Submitter,
	provider *fhe.Provider,
	historySize int,
) *Handler {
	return &Handler{
		logger:        logger,
		metrics:       metrics,
		markets:       markets,
		submitter:     submitter,
		provider:      provider,
		outcomes:      cache.NewFIFOCache[string, *submission.Outcome](historySize),
		now:           time.Now,
		submitTimeout: DefaultSubmitTimeout,
	}
}

// WithClock sets the time source used for lock status in responses.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// Register adds every route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET "+CitiesPath, h.instrument(CitiesPath, h.citiesHandler()))
	mux.Handle("GET "+MarketPath, h.instrument(MarketPath, h.marketHandler()))
	mux.Handle("GET "+TicketsPath, h.instrument(TicketsPath, h.ticketsHandler()))
	mux.Handle("GET "+TicketPath, h.instrument(TicketPath, h.ticketHandler()))
	mux.Handle("POST "+ForecastPath, h.instrument(ForecastPath, h.submitHandler()))
	mux.Handle("GET "+ForecastPath, h.instrument(ForecastPath, h.recentHandler()))
	mux.Handle("GET "+OutcomePath, h.instrument(OutcomePath, h.outcomeHandler()))
	mux.Handle("GET "+ProviderPath, h.instrument(ProviderPath, h.providerHandler()))
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *Handler) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		if h.metrics != nil {
			h.metrics.ObserveAPIRequest(route, rec.code)
		}
	})
}

func writeJSONError(
	logger *zap.Logger,
	w http.ResponseWriter,
	httpStatusCode int,
	errorMsg string,
) {
	writeJSON(logger, w, httpStatusCode, ErrorResponse{Error: errorMsg})
}

// writeInvalidForecast rejects a request before an attempt is started, using
// the same error body as a rejected outcome.
func writeInvalidForecast(logger *zap.Logger, w http.ResponseWriter, msg string) {
	err := wager.NewValidationError(wager.ReasonInvalidInput, "%s", msg)
	writeJSON(logger, w, http.StatusBadRequest, InvalidForecastResponse{
		Status: submission.StatusRejected,
		Error:  newErrorDetail(err),
	})
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, httpStatusCode int, body any) {
	resp, err := json.Marshal(body)
	if err != nil {
		msg := "Error marshalling JSON response"
		logger.Error(msg, zap.Error(err))
		resp = []byte(fmt.Sprintf(`{"error":%q}`, msg))
		httpStatusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)

	if _, err = w.Write(resp); err != nil {
		logger.Error("Error writing response", zap.Error(err))
	}
}

// statusForError maps a workflow failure to an HTTP status.
func statusForError(err *wager.Error) int {
	switch err.Kind {
	case wager.KindValidation:
		if err.Reason == wager.ReasonMarketNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case wager.KindTransactionReverted:
		return http.StatusConflict
	case wager.KindTransactionRejected:
		return http.StatusUnprocessableEntity
	case wager.KindBackendInit:
		return http.StatusServiceUnavailable
	case wager.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseCityID(r *http.Request) (uint64, error) {
	raw := r.PathValue("cityID")
	cityID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || cityID == 0 {
		return 0, fmt.Errorf("invalid city id %q", raw)
	}
	return cityID, nil
}

func (h *Handler) citiesHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(h.logger, w, http.StatusOK, types.Cities())
	})
}

func (h *Handler) marketHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cityID, err := parseCityID(r)
		if err != nil {
			writeJSONError(h.logger, w, http.StatusBadRequest, err.Error())
			return
		}
		m, err := h.markets.Market(r.Context(), cityID)
		if err != nil {
			h.logger.Warn("Failed to read market", zap.Uint64("cityID", cityID), zap.Error(err))
			writeJSONError(h.logger, w, http.StatusBadGateway, "Failed to read market")
			return
		}
		if !m.Exists {
			writeJSONError(h.logger, w, http.StatusNotFound, wager.ReasonMarketNotFound.Description())
			return
		}
		writeJSON(h.logger, w, http.StatusOK, newMarketResponse(m, h.now()))
	})
}

func (h *Handler) ticketsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cityID, err := parseCityID(r)
		if err != nil {
			writeJSONError(h.logger, w, http.StatusBadRequest, err.Error())
			return
		}

		var tickets []*types.Ticket
		if bettor := r.URL.Query().Get("bettor"); bettor != "" {
			if !common.IsHexAddress(bettor) {
				writeJSONError(h.logger, w, http.StatusBadRequest, "Invalid bettor address")
				return
			}
			tickets, err = h.markets.TicketsOf(r.Context(), cityID, common.HexToAddress(bettor))
		} else {
			tickets, err = h.markets.Tickets(r.Context(), cityID)
		}
		if err != nil {
			h.logger.Warn("Failed to read tickets", zap.Uint64("cityID", cityID), zap.Error(err))
			writeJSONError(h.logger, w, http.StatusBadGateway, "Failed to read tickets")
			return
		}

		resp := make([]TicketResponse, len(tickets))
		for i, t := range tickets {
			resp[i] = newTicketResponse(t)
		}
		writeJSON(h.logger, w, http.StatusOK, resp)
	})
}

func (h *Handler) ticketHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.PathValue("ticketID")
		ticketID, ok := new(big.Int).SetString(raw, 10)
		if !ok || ticketID.Sign() <= 0 {
			writeJSONError(h.logger, w, http.StatusBadRequest, fmt.Sprintf("invalid ticket id %q", raw))
			return
		}
		t, err := h.markets.Ticket(r.Context(), ticketID)
		if errors.Is(err, market.ErrTicketNotFound) {
			writeJSONError(h.logger, w, http.StatusNotFound, "Ticket not found")
			return
		}
		if err != nil {
			h.logger.Warn("Failed to read ticket", zap.Stringer("ticketID", ticketID), zap.Error(err))
			writeJSONError(h.logger, w, http.StatusBadGateway, "Failed to read ticket")
			return
		}
		writeJSON(h.logger, w, http.StatusOK, newTicketResponse(t))
	})
}

func parseForecastRequest(req ForecastRequest) (types.ForecastParams, error) {
	condition, err := types.ParseCondition(req.Condition)
	if err != nil {
		return types.ForecastParams{}, err
	}

	var stakeWei *big.Int
	switch {
	case req.Stake != "" && req.StakeWei != "":
		return types.ForecastParams{}, fmt.Errorf("set only one of stake and stakeWei")
	case req.Stake != "":
		if stakeWei, err = wager.ParseEther(req.Stake); err != nil {
			return types.ForecastParams{}, fmt.Errorf("invalid stake: %w", err)
		}
	case req.StakeWei != "":
		var ok bool
		if stakeWei, ok = new(big.Int).SetString(req.StakeWei, 10); !ok {
			return types.ForecastParams{}, fmt.Errorf("invalid stakeWei %q", req.StakeWei)
		}
	default:
		return types.ForecastParams{}, fmt.Errorf("stake is required")
	}

	return types.ForecastParams{
		CityID:    req.CityID,
		Condition: condition,
		StakeWei:  stakeWei,
	}, nil
}

func (h *Handler) submitHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ForecastRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
			msg := "Could not decode request body"
			h.logger.Warn(msg, zap.Error(err))
			writeInvalidForecast(h.logger, w, msg)
			return
		}
		params, err := parseForecastRequest(req)
		if err != nil {
			h.logger.Warn("Invalid forecast request", zap.Error(err))
			writeInvalidForecast(h.logger, w, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.submitTimeout)
		defer cancel()

		outcome, err := h.submitter.Submit(ctx, params)
		h.outcomes.Put(outcome.AttemptID, outcome)

		code := http.StatusOK
		if err != nil {
			e, ok := wager.AsError(err)
			if !ok {
				e = wager.Wrap(wager.KindUnknown, wager.ReasonNone, err)
			}
			code = statusForError(e)
		}
		writeJSON(h.logger, w, code, newOutcomeResponse(outcome))
	})
}

func (h *Handler) recentHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := defaultRecentLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeJSONError(h.logger, w, http.StatusBadRequest, "Invalid limit")
				return
			}
			limit = n
		}
		recent := h.outcomes.Recent(limit)
		resp := make([]OutcomeResponse, len(recent))
		for i, o := range recent {
			resp[i] = newOutcomeResponse(o)
		}
		writeJSON(h.logger, w, http.StatusOK, resp)
	})
}

func (h *Handler) outcomeHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		outcome, ok := h.outcomes.Peek(r.PathValue("attemptID"))
		if !ok {
			writeJSONError(h.logger, w, http.StatusNotFound, "Unknown submission")
			return
		}
		writeJSON(h.logger, w, http.StatusOK, newOutcomeResponse(outcome))
	})
}

func (h *Handler) providerHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		state := h.provider.State()
		writeJSON(h.logger, w, http.StatusOK, ProviderResponse{
			Status:  state.Status.String(),
			Message: state.Message,
		})
	})
}
