// Copyright (C) 2024, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"math/big"
	"time"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/submission"
	"github.com/luxfi/wager/types"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// ForecastRequest places a forecast. Condition is a name ("sunny") or an
// index ("0"); exactly one of Stake (ETH) and StakeWei must be set.
type ForecastRequest struct {
	CityID    uint64 `json:"cityId"`
	Condition string `json:"condition"`
	Stake     string `json:"stake"`
	StakeWei  string `json:"stakeWei"`
}

type MarketResponse struct {
	CityID             uint64    `json:"cityId"`
	CityName           string    `json:"cityName"`
	Exists             bool      `json:"exists"`
	ConditionCount     uint8     `json:"conditionCount"`
	LockTime           time.Time `json:"lockTime"`
	Locked             bool      `json:"locked"`
	Settled            bool      `json:"settled"`
	WinningCondition   string    `json:"winningCondition,omitempty"`
	PayoutRatio        uint64    `json:"payoutRatio"`
	TotalDepositedWei  string    `json:"totalDepositedWei"`
	TotalPaidWei       string    `json:"totalPaidWei"`
	GatewayRequestID   string    `json:"gatewayRequestId"`
	WinningTotalScaled uint64    `json:"winningTotalScaled"`
}

func newMarketResponse(m *types.CityMarket, now time.Time) MarketResponse {
	resp := MarketResponse{
		CityID:             m.CityID,
		CityName:           types.CityName(m.CityID),
		Exists:             m.Exists,
		ConditionCount:     m.ConditionCount,
		LockTime:           m.LockTime().UTC(),
		Locked:             m.Exists && m.LockedAt(now),
		Settled:            m.Settled,
		PayoutRatio:        m.PayoutRatio,
		TotalDepositedWei:  bigString(m.TotalDepositedWei),
		TotalPaidWei:       bigString(m.TotalPaidWei),
		GatewayRequestID:   bigString(m.GatewayRequestID),
		WinningTotalScaled: m.WinningTotalScaled,
	}
	if m.Settled {
		resp.WinningCondition = types.Condition(m.WinningCondition).String()
	}
	return resp
}

type TicketResponse struct {
	TicketID           string `json:"ticketId"`
	CityID             uint64 `json:"cityId"`
	Bettor             string `json:"bettor"`
	EncryptedCondition string `json:"encryptedCondition"`
	EncryptedStake     string `json:"encryptedStake"`
	Commitment         string `json:"commitment"`
	Claimed            bool   `json:"claimed"`
}

func newTicketResponse(t *types.Ticket) TicketResponse {
	return TicketResponse{
		TicketID:           bigString(t.TicketID),
		CityID:             t.CityID,
		Bettor:             t.Bettor.Hex(),
		EncryptedCondition: t.EncryptedCondition.Hex(),
		EncryptedStake:     t.EncryptedStake.Hex(),
		Commitment:         t.Commitment.Hex(),
		Claimed:            t.Claimed,
	}
}

type ErrorDetail struct {
	Kind        string `json:"kind"`
	Reason      string `json:"reason"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
}

// InvalidForecastResponse is returned when a forecast request is rejected
// before an attempt starts. Its fields match OutcomeResponse.
type InvalidForecastResponse struct {
	Status submission.Status `json:"status"`
	Error  *ErrorDetail      `json:"error"`
}

type OutcomeResponse struct {
	AttemptID       string                  `json:"attemptId"`
	Status          submission.Status       `json:"status"`
	CityID          uint64                  `json:"cityId"`
	Condition       string                  `json:"condition"`
	StakeWei        string                  `json:"stakeWei"`
	Bettor          string                  `json:"bettor"`
	ConditionHandle string                  `json:"conditionHandle,omitempty"`
	StakeHandle     string                  `json:"stakeHandle,omitempty"`
	Commitment      string                  `json:"commitment,omitempty"`
	TicketID        string                  `json:"ticketId,omitempty"`
	TxHash          string                  `json:"txHash,omitempty"`
	BlockNumber     uint64                  `json:"blockNumber,omitempty"`
	Error           *ErrorDetail            `json:"error,omitempty"`
	Trace           []submission.Transition `json:"trace"`
	StartedAt       time.Time               `json:"startedAt"`
	FinishedAt      time.Time               `json:"finishedAt"`
}

func newOutcomeResponse(o *submission.Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		AttemptID:  o.AttemptID,
		Status:     o.Status,
		CityID:     o.Params.CityID,
		Condition:  o.Params.Condition.String(),
		StakeWei:   bigString(o.Params.StakeWei),
		Bettor:     o.Bettor.Hex(),
		Trace:      o.Trace,
		StartedAt:  o.StartedAt,
		FinishedAt: o.FinishedAt,
	}
	if o.Encrypted != nil {
		resp.ConditionHandle = o.Encrypted.ConditionHandleHex()
		resp.StakeHandle = o.Encrypted.StakeHandleHex()
		resp.Commitment = o.Commitment.Hex()
	}
	if o.Placement != nil {
		resp.TxHash = o.Placement.TxHash.Hex()
		resp.BlockNumber = o.Placement.BlockNumber
		resp.TicketID = bigString(o.TicketID())
	}
	if o.Err != nil {
		resp.Error = newErrorDetail(o.Err)
	}
	return resp
}

func newErrorDetail(err *wager.Error) *ErrorDetail {
	return &ErrorDetail{
		Kind:        err.Kind.String(),
		Reason:      err.Reason.String(),
		Message:     err.Message,
		Description: err.Reason.Description(),
	}
}

type ProviderResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
