// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// CityMarket mirrors the contract's getCityMarket tuple.
type CityMarket struct {
	CityID             uint64   `json:"cityId"`
	Exists             bool     `json:"exists"`
	ConditionCount     uint8    `json:"conditionCount"`
	LockTimestamp      uint64   `json:"lockTimestamp"`
	Settled            bool     `json:"settled"`
	WinningCondition   uint8    `json:"winningCondition"`
	PayoutRatio        uint64   `json:"payoutRatio"`
	TotalDepositedWei  *big.Int `json:"totalDepositedWei"`
	TotalPaidWei       *big.Int `json:"totalPaidWei"`
	GatewayRequestID   *big.Int `json:"gatewayRequestId"`
	WinningTotalScaled uint64   `json:"winningTotalScaled"`
}

// LockTime is the moment betting closes.
func (m *CityMarket) LockTime() time.Time {
	return time.Unix(int64(m.LockTimestamp), 0)
}

// LockedAt reports whether the market no longer accepts forecasts at now.
func (m *CityMarket) LockedAt(now time.Time) bool {
	return now.Unix() >= int64(m.LockTimestamp)
}

// Ticket mirrors the contract's ForecastTicket struct.
type Ticket struct {
	TicketID           *big.Int       `json:"ticketId"`
	CityID             uint64         `json:"cityId"`
	Bettor             common.Address `json:"bettor"`
	EncryptedCondition common.Hash    `json:"encryptedCondition"`
	EncryptedStake     common.Hash    `json:"encryptedStake"`
	Commitment         Commitment     `json:"commitment"`
	Claimed            bool           `json:"claimed"`
}

// DecryptionJob mirrors the contract's gateway decryption bookkeeping.
type DecryptionJob struct {
	RequestID     *big.Int `json:"requestId"`
	CityID        uint64   `json:"cityId"`
	Fulfilled     bool     `json:"fulfilled"`
	PayoutRatio   uint64   `json:"payoutRatio"`
	PoolScaled    uint64   `json:"poolScaled"`
	WinningScaled uint64   `json:"winningScaled"`
}
