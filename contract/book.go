// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/luxfi/wager/types"
)

var (
	ErrReadOnly        = errors.New("book has no transactor")
	ErrTxFailed        = errors.New("transaction failed")
	ErrMissingEvent    = errors.New("receipt has no matching event")
	ErrNoContractCode  = errors.New("no contract code at address")
	errUnexpectedShape = errors.New("unexpected call result")
)

// Transactor signs, broadcasts and waits for a transaction carrying calldata.
// A returned receipt with a failed status is reported as an error.
type Transactor interface {
	SenderAddress() common.Address
	SendTx(
		ctx context.Context,
		to common.Address,
		value *big.Int,
		gasLimit uint64,
		callData []byte,
	) (*ethtypes.Receipt, error)
}

// Placement is the result of a mined placeForecast transaction.
type Placement struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Event       *ForecastPlaced
}

// Payout is the result of a mined claim transaction.
type Payout struct {
	TxHash      common.Hash
	BlockNumber uint64
	Event       *ForecastPaid
}

// Book is a typed client of one deployed WeatherWagerBook.
type Book struct {
	address    common.Address
	abi        abi.ABI
	bound      *bind.BoundContract
	caller     bind.ContractCaller
	transactor Transactor
	logger     *zap.Logger
}

// NewBook binds the contract at address. transactor may be nil for a
// read-only book.
func NewBook(
	logger *zap.Logger,
	address common.Address,
	caller bind.ContractCaller,
	transactor Transactor,
) *Book {
	contractABI := ABI()
	return &Book{
		address:    address,
		abi:        contractABI,
		bound:      bind.NewBoundContract(address, contractABI, caller, nil, nil),
		caller:     caller,
		transactor: transactor,
		logger:     logger.With(zap.Stringer("contractAddress", address)),
	}
}

func (b *Book) Address() common.Address {
	return b.address
}

// SenderAddress returns the transactor's account, or the zero address for a
// read-only book.
func (b *Book) SenderAddress() common.Address {
	if b.transactor == nil {
		return common.Address{}
	}
	return b.transactor.SenderAddress()
}

// CheckDeployed fails if no code is deployed at the contract address.
func (b *Book) CheckDeployed(ctx context.Context) error {
	code, err := b.caller.CodeAt(ctx, b.address, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch contract code: %w", err)
	}
	if len(code) == 0 {
		return fmt.Errorf("%w %s", ErrNoContractCode, b.address)
	}
	return nil
}

func (b *Book) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := b.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", method, errUnexpectedShape)
	}
	return out, nil
}

// Scale returns the fixed-point factor of payout ratios.
func (b *Book) Scale(ctx context.Context) (uint64, error) {
	out, err := b.call(ctx, MethodScale)
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint64)).(*uint64), nil
}

// CityMarket reads the market of cityID. A city without a market returns a
// market with Exists false.
func (b *Book) CityMarket(ctx context.Context, cityID uint64) (*types.CityMarket, error) {
	out, err := b.call(ctx, MethodGetCityMarket, new(big.Int).SetUint64(cityID))
	if err != nil {
		return nil, err
	}
	if len(out) != 10 {
		return nil, fmt.Errorf("%s: %w: %d values", MethodGetCityMarket, errUnexpectedShape, len(out))
	}
	lock := *abi.ConvertType(out[2], new(*big.Int)).(**big.Int)
	if !lock.IsUint64() {
		return nil, fmt.Errorf("%s: lock timestamp %s out of range", MethodGetCityMarket, lock)
	}
	return &types.CityMarket{
		CityID:             cityID,
		Exists:             *abi.ConvertType(out[0], new(bool)).(*bool),
		ConditionCount:     *abi.ConvertType(out[1], new(uint8)).(*uint8),
		LockTimestamp:      lock.Uint64(),
		Settled:            *abi.ConvertType(out[3], new(bool)).(*bool),
		WinningCondition:   *abi.ConvertType(out[4], new(uint8)).(*uint8),
		PayoutRatio:        *abi.ConvertType(out[5], new(uint64)).(*uint64),
		TotalDepositedWei:  *abi.ConvertType(out[6], new(*big.Int)).(**big.Int),
		TotalPaidWei:       *abi.ConvertType(out[7], new(*big.Int)).(**big.Int),
		GatewayRequestID:   *abi.ConvertType(out[8], new(*big.Int)).(**big.Int),
		WinningTotalScaled: *abi.ConvertType(out[9], new(uint64)).(*uint64),
	}, nil
}

// ticketTuple matches the field layout of WeatherWagerBook.ForecastTicket.
type ticketTuple struct {
	CityId             *big.Int
	Bettor             common.Address
	EncryptedCondition [32]byte
	EncryptedStake     [32]byte
	Commitment         [32]byte
	Claimed            bool
}

// Ticket reads one ticket.
func (b *Book) Ticket(ctx context.Context, ticketID *big.Int) (*types.Ticket, error) {
	out, err := b.call(ctx, MethodGetTicket, ticketID)
	if err != nil {
		return nil, err
	}
	t := abi.ConvertType(out[0], new(ticketTuple)).(*ticketTuple)
	return &types.Ticket{
		TicketID:           new(big.Int).Set(ticketID),
		CityID:             t.CityId.Uint64(),
		Bettor:             t.Bettor,
		EncryptedCondition: t.EncryptedCondition,
		EncryptedStake:     t.EncryptedStake,
		Commitment:         t.Commitment,
		Claimed:            t.Claimed,
	}, nil
}

// TicketsForCity lists the ticket ids placed on cityID in placement order.
func (b *Book) TicketsForCity(ctx context.Context, cityID uint64) ([]*big.Int, error) {
	out, err := b.call(ctx, MethodGetTicketsForCity, new(big.Int).SetUint64(cityID))
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

// decryptionJobTuple matches the field layout of WeatherWagerBook.DecryptionJob.
type decryptionJobTuple struct {
	CityId        *big.Int
	Fulfilled     bool
	PayoutRatio   uint64
	PoolScaled    uint64
	WinningScaled uint64
}

// DecryptionJob reads the settlement decryption request requestID.
func (b *Book) DecryptionJob(ctx context.Context, requestID *big.Int) (*types.DecryptionJob, error) {
	out, err := b.call(ctx, MethodGetDecryptionJob, requestID)
	if err != nil {
		return nil, err
	}
	j := abi.ConvertType(out[0], new(decryptionJobTuple)).(*decryptionJobTuple)
	return &types.DecryptionJob{
		RequestID:     new(big.Int).Set(requestID),
		CityID:        j.CityId.Uint64(),
		Fulfilled:     j.Fulfilled,
		PayoutRatio:   j.PayoutRatio,
		PoolScaled:    j.PoolScaled,
		WinningScaled: j.WinningScaled,
	}, nil
}

// PackPlaceForecast returns the calldata of placeForecast.
func (b *Book) PackPlaceForecast(
	cityID uint64,
	enc *types.EncryptedForecast,
	commitment types.Commitment,
) ([]byte, error) {
	return b.abi.Pack(
		MethodPlaceForecast,
		new(big.Int).SetUint64(cityID),
		[32]byte(enc.ConditionHandle),
		[32]byte(enc.StakeHandle),
		[]byte(enc.Proof),
		[32]byte(commitment),
	)
}

// PackClaim returns the calldata of claim.
func (b *Book) PackClaim(ticketID *big.Int, proofCondition, proofStake []byte) ([]byte, error) {
	if proofCondition == nil {
		proofCondition = []byte{}
	}
	if proofStake == nil {
		proofStake = []byte{}
	}
	return b.abi.Pack(MethodClaim, ticketID, proofCondition, proofStake)
}

// PlaceForecast submits an encrypted forecast with stakeWei attached and
// waits for it to be mined. The ticket id is taken from the ForecastPlaced
// event in the receipt.
func (b *Book) PlaceForecast(
	ctx context.Context,
	cityID uint64,
	enc *types.EncryptedForecast,
	commitment types.Commitment,
	stakeWei *big.Int,
	gasLimit uint64,
) (*Placement, error) {
	if b.transactor == nil {
		return nil, ErrReadOnly
	}
	callData, err := b.PackPlaceForecast(cityID, enc, commitment)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", MethodPlaceForecast, err)
	}

	receipt, err := b.transactor.SendTx(ctx, b.address, stakeWei, gasLimit, callData)
	if err != nil {
		return nil, err
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", ErrTxFailed, receipt.TxHash)
	}

	for _, log := range receipt.Logs {
		if log.Address != b.address || len(log.Topics) == 0 || log.Topics[0] != EventID(EventForecastPlaced) {
			continue
		}
		event, err := b.ParseForecastPlaced(*log)
		if err != nil {
			return nil, err
		}
		b.logger.Info(
			"Forecast placed",
			zap.Uint64("cityID", cityID),
			zap.String("ticketID", event.TicketId.String()),
			zap.Stringer("txHash", receipt.TxHash),
		)
		return &Placement{
			TxHash:      receipt.TxHash,
			BlockNumber: receipt.BlockNumber.Uint64(),
			GasUsed:     receipt.GasUsed,
			Event:       event,
		}, nil
	}
	return nil, fmt.Errorf("%w %s in tx %s", ErrMissingEvent, EventForecastPlaced, receipt.TxHash)
}

// Claim submits a claim for ticketID and returns the ForecastPaid event.
func (b *Book) Claim(
	ctx context.Context,
	ticketID *big.Int,
	proofCondition []byte,
	proofStake []byte,
	gasLimit uint64,
) (*Payout, error) {
	if b.transactor == nil {
		return nil, ErrReadOnly
	}
	callData, err := b.PackClaim(ticketID, proofCondition, proofStake)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", MethodClaim, err)
	}

	receipt, err := b.transactor.SendTx(ctx, b.address, new(big.Int), gasLimit, callData)
	if err != nil {
		return nil, err
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", ErrTxFailed, receipt.TxHash)
	}

	for _, log := range receipt.Logs {
		if log.Address != b.address || len(log.Topics) == 0 || log.Topics[0] != EventID(EventForecastPaid) {
			continue
		}
		event, err := b.ParseForecastPaid(*log)
		if err != nil {
			return nil, err
		}
		b.logger.Info(
			"Ticket claimed",
			zap.String("ticketID", ticketID.String()),
			zap.String("payoutWei", event.PayoutWei.String()),
			zap.Stringer("txHash", receipt.TxHash),
		)
		return &Payout{
			TxHash:      receipt.TxHash,
			BlockNumber: receipt.BlockNumber.Uint64(),
			Event:       event,
		}, nil
	}
	return nil, fmt.Errorf("%w %s in tx %s", ErrMissingEvent, EventForecastPaid, receipt.TxHash)
}
