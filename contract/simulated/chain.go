// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package simulated is an in-memory WeatherWagerBook with the revert rules
// of the deployed contract. It serves contract calls, accepts transactions
// and records event logs, so clients can run against it without a node.
package simulated

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/commitment"
	"github.com/luxfi/wager/contract"
	"github.com/luxfi/wager/types"
)

// Revert reasons, verbatim from the contract.
const (
	ReasonMarketExists      = "Market exists"
	ReasonMarketMissing     = "Market missing"
	ReasonConditionCount    = "Must have 4 conditions"
	ReasonLockInPast        = "Lock must be future"
	ReasonMarketLocked      = "Market locked"
	ReasonZeroStake         = "Stake must be positive"
	ReasonCommitmentUsed    = "Commitment used"
	ReasonInvalidCommitment = "Invalid commitment"
	ReasonMarketNotLocked   = "Market not locked"
	ReasonMarketSettled     = "Market settled"
	ReasonMarketNotSettled  = "Market not settled"
	ReasonInvalidCondition  = "Invalid condition"
	ReasonTicketMissing     = "Ticket missing"
	ReasonNotTicketOwner    = "Not ticket owner"
	ReasonTicketClaimed     = "Ticket claimed"
	ReasonUnsupportedMethod = "Unsupported method"
)

const (
	defaultGasUsed           = 350_000
	defaultChainID           = 31337
	placeholderCode          = "0x6080604052"
	insufficientFundsMessage = "insufficient funds for gas * price + value"
)

var (
	_ bind.ContractCaller = (*Chain)(nil)
	_ contract.Transactor = (*Account)(nil)

	errShortCallData = errors.New("call data shorter than a selector")
)

// RevertError is returned for a call or transaction the contract rejects.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	return "execution reverted: " + e.Reason
}

func revert(reason string) error {
	return &RevertError{Reason: reason}
}

type market struct {
	conditionCount     uint8
	lockTimestamp      uint64
	settled            bool
	winningCondition   uint8
	payoutRatio        uint64
	totalDepositedWei  *big.Int
	totalPaidWei       *big.Int
	gatewayRequestID   *big.Int
	winningTotalScaled uint64
}

type ticket struct {
	cityID             uint64
	bettor             common.Address
	encryptedCondition common.Hash
	encryptedStake     common.Hash
	commitment         common.Hash
	claimed            bool
	stakeWei           *big.Int
}

type decryptionJob struct {
	cityID        uint64
	fulfilled     bool
	payoutRatio   uint64
	poolScaled    uint64
	winningScaled uint64
}

// Option configures a Chain.
type Option func(*Chain)

// WithClock sets the source of block timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) {
		c.now = now
	}
}

// WithChainID sets the chain id reported to clients.
func WithChainID(chainID uint64) Option {
	return func(c *Chain) {
		c.chainID = chainID
	}
}

// Chain holds the contract state and the log history of one simulated chain.
type Chain struct {
	address common.Address
	abi     abi.ABI
	now     func() time.Time
	chainID uint64

	lock          sync.Mutex
	blockNumber   uint64
	markets       map[uint64]*market
	tickets       map[uint64]*ticket
	cityTickets   map[uint64][]uint64
	ticketCount   uint64
	commitments   map[common.Hash]struct{}
	balances      map[common.Address]*big.Int
	nonces        map[common.Address]uint64
	revealed      map[common.Hash]types.Condition
	jobs          map[uint64]*decryptionJob
	nextRequestID uint64
	logs          []ethtypes.Log
}

// New deploys a simulated book at address.
func New(address common.Address, opts ...Option) *Chain {
	c := &Chain{
		address:     address,
		abi:         contract.ABI(),
		now:         time.Now,
		chainID:     defaultChainID,
		markets:     make(map[uint64]*market),
		tickets:     make(map[uint64]*ticket),
		cityTickets: make(map[uint64][]uint64),
		commitments: make(map[common.Hash]struct{}),
		balances:    make(map[common.Address]*big.Int),
		nonces:      make(map[common.Address]uint64),
		revealed:    make(map[common.Hash]types.Condition),
		jobs:        make(map[uint64]*decryptionJob),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chain) Address() common.Address {
	return c.address
}

func (c *Chain) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).SetUint64(c.chainID), nil
}

// CreateCityMarket opens a market that locks at lockTimestamp.
func (c *Chain) CreateCityMarket(cityID uint64, conditionCount uint8, lockTimestamp uint64) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.markets[cityID]; ok {
		return revert(ReasonMarketExists)
	}
	if conditionCount != types.ConditionCount {
		return revert(ReasonConditionCount)
	}
	if lockTimestamp <= uint64(c.now().Unix()) {
		return revert(ReasonLockInPast)
	}
	c.markets[cityID] = &market{
		conditionCount:    conditionCount,
		lockTimestamp:     lockTimestamp,
		totalDepositedWei: new(big.Int),
		totalPaidWei:      new(big.Int),
		gatewayRequestID:  new(big.Int),
	}
	c.blockNumber++
	return nil
}

// SetBalance limits the funds of account. Accounts without a balance are
// unlimited.
func (c *Chain) SetBalance(account common.Address, wei *big.Int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.balances[account] = new(big.Int).Set(wei)
}

// Balance returns the balance of account and whether one was set.
func (c *Chain) Balance(account common.Address) (*big.Int, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	bal, ok := c.balances[account]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(bal), true
}

// Reveal records the plaintext behind a condition handle. Settlement only
// pays tickets whose condition has been revealed and matches the winner.
func (c *Chain) Reveal(conditionHandle common.Hash, condition types.Condition) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.revealed[conditionHandle] = condition
}

// SettleCity publishes the winning condition of a locked market along with
// the payout ratio scaled by wager.Scale.
func (c *Chain) SettleCity(cityID uint64, winning types.Condition, payoutRatio uint64) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	m, ok := c.markets[cityID]
	if !ok {
		return revert(ReasonMarketMissing)
	}
	if uint64(c.now().Unix()) < m.lockTimestamp {
		return revert(ReasonMarketNotLocked)
	}
	if m.settled {
		return revert(ReasonMarketSettled)
	}
	if !winning.Valid() {
		return revert(ReasonInvalidCondition)
	}

	c.nextRequestID++
	requestID := c.nextRequestID
	m.settled = true
	m.winningCondition = uint8(winning)
	m.payoutRatio = payoutRatio
	m.gatewayRequestID = new(big.Int).SetUint64(requestID)
	c.jobs[requestID] = &decryptionJob{
		cityID:      cityID,
		fulfilled:   true,
		payoutRatio: payoutRatio,
		poolScaled:  scaled(m.totalDepositedWei),
	}

	event := c.abi.Events[contract.EventCitySettled]
	data, err := event.Inputs.NonIndexed().Pack(uint8(winning), new(big.Int).SetUint64(requestID))
	if err != nil {
		return err
	}
	c.blockNumber++
	c.appendLogs(common.Hash{}, []ethtypes.Log{{
		Topics: []common.Hash{event.ID, common.BigToHash(new(big.Int).SetUint64(cityID))},
		Data:   data,
	}})
	return nil
}

// scaled converts wei to micro-ether, the unit of the contract's scaled totals.
func scaled(wei *big.Int) uint64 {
	return new(big.Int).Quo(wei, big.NewInt(1_000_000_000_000)).Uint64()
}

// Account returns a transactor that sends from account.
func (c *Chain) Account(account common.Address) *Account {
	return &Account{chain: c, from: account}
}

func (c *Chain) CodeAt(ctx context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if account != c.address {
		return nil, nil
	}
	return common.FromHex(placeholderCode), nil
}

// CallContract executes a call against the current state without changing
// it.
func (c *Chain) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if call.To == nil || *call.To != c.address {
		return nil, nil
	}
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	out, _, err := c.execute(call.From, value, call.Data, false)
	return out, err
}

func (c *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.blockNumber, nil
}

// FilterLogs returns the recorded logs matching the block range, addresses
// and topic-0 of q.
func (c *Chain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.lock.Lock()
	defer c.lock.Unlock()

	var out []ethtypes.Log
	for _, log := range c.logs {
		if q.FromBlock != nil && log.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && log.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && !slices.Contains(q.Addresses, log.Address) {
			continue
		}
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 && !slices.Contains(q.Topics[0], log.Topics[0]) {
			continue
		}
		out = append(out, copyLog(log))
	}
	return out, nil
}

// Logs returns every recorded log.
func (c *Chain) Logs() []ethtypes.Log {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := make([]ethtypes.Log, len(c.logs))
	for i, log := range c.logs {
		out[i] = copyLog(log)
	}
	return out
}

// execute runs one call. With commit false state is left untouched and no
// logs are produced. The caller holds the lock.
func (c *Chain) execute(from common.Address, value *big.Int, data []byte, commit bool) ([]byte, []ethtypes.Log, error) {
	if len(data) < 4 {
		return nil, nil, errShortCallData
	}
	method, err := c.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, revert(ReasonUnsupportedMethod)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s arguments: %w", method.Name, err)
	}

	switch method.Name {
	case contract.MethodScale:
		out, err := method.Outputs.Pack(uint64(wager.Scale))
		return out, nil, err
	case contract.MethodGetCityMarket:
		out, err := c.packCityMarket(method, args[0].(*big.Int))
		return out, nil, err
	case contract.MethodGetTicket:
		out, err := c.packTicket(method, args[0].(*big.Int))
		return out, nil, err
	case contract.MethodGetTicketsForCity:
		out, err := c.packTicketsForCity(method, args[0].(*big.Int))
		return out, nil, err
	case contract.MethodGetDecryptionJob:
		out, err := c.packDecryptionJob(method, args[0].(*big.Int))
		return out, nil, err
	case contract.MethodPlaceForecast:
		return c.placeForecast(method, from, value, args, commit)
	case contract.MethodClaim:
		return c.claim(from, args, commit)
	default:
		return nil, nil, revert(ReasonUnsupportedMethod)
	}
}

func (c *Chain) packCityMarket(method *abi.Method, cityID *big.Int) ([]byte, error) {
	m, ok := c.lookupMarket(cityID)
	if !ok {
		zero := new(big.Int)
		return method.Outputs.Pack(false, uint8(0), zero, false, uint8(0), uint64(0), zero, zero, zero, uint64(0))
	}
	return method.Outputs.Pack(
		true,
		m.conditionCount,
		new(big.Int).SetUint64(m.lockTimestamp),
		m.settled,
		m.winningCondition,
		m.payoutRatio,
		m.totalDepositedWei,
		m.totalPaidWei,
		m.gatewayRequestID,
		m.winningTotalScaled,
	)
}

type ticketTuple struct {
	CityId             *big.Int
	Bettor             common.Address
	EncryptedCondition [32]byte
	EncryptedStake     [32]byte
	Commitment         [32]byte
	Claimed            bool
}

func (c *Chain) packTicket(method *abi.Method, ticketID *big.Int) ([]byte, error) {
	tuple := ticketTuple{CityId: new(big.Int)}
	if t, ok := c.lookupTicket(ticketID); ok {
		tuple = ticketTuple{
			CityId:             new(big.Int).SetUint64(t.cityID),
			Bettor:             t.bettor,
			EncryptedCondition: t.encryptedCondition,
			EncryptedStake:     t.encryptedStake,
			Commitment:         t.commitment,
			Claimed:            t.claimed,
		}
	}
	return method.Outputs.Pack(tuple)
}

func (c *Chain) packTicketsForCity(method *abi.Method, cityID *big.Int) ([]byte, error) {
	ids := []*big.Int{}
	if cityID.IsUint64() {
		for _, id := range c.cityTickets[cityID.Uint64()] {
			ids = append(ids, new(big.Int).SetUint64(id))
		}
	}
	return method.Outputs.Pack(ids)
}

type decryptionJobTuple struct {
	CityId        *big.Int
	Fulfilled     bool
	PayoutRatio   uint64
	PoolScaled    uint64
	WinningScaled uint64
}

func (c *Chain) packDecryptionJob(method *abi.Method, requestID *big.Int) ([]byte, error) {
	tuple := decryptionJobTuple{CityId: new(big.Int)}
	if requestID.IsUint64() {
		if j, ok := c.jobs[requestID.Uint64()]; ok {
			tuple = decryptionJobTuple{
				CityId:        new(big.Int).SetUint64(j.cityID),
				Fulfilled:     j.fulfilled,
				PayoutRatio:   j.payoutRatio,
				PoolScaled:    j.poolScaled,
				WinningScaled: j.winningScaled,
			}
		}
	}
	return method.Outputs.Pack(tuple)
}

func (c *Chain) placeForecast(
	method *abi.Method,
	from common.Address,
	value *big.Int,
	args []interface{},
	commit bool,
) ([]byte, []ethtypes.Log, error) {
	cityID := args[0].(*big.Int)
	conditionHandle := common.Hash(args[1].([32]byte))
	stakeHandle := common.Hash(args[2].([32]byte))
	hash := common.Hash(args[4].([32]byte))

	m, ok := c.lookupMarket(cityID)
	if !ok {
		return nil, nil, revert(ReasonMarketMissing)
	}
	if uint64(c.now().Unix()) >= m.lockTimestamp {
		return nil, nil, revert(ReasonMarketLocked)
	}
	if value.Sign() <= 0 {
		return nil, nil, revert(ReasonZeroStake)
	}
	if _, used := c.commitments[hash]; used {
		return nil, nil, revert(ReasonCommitmentUsed)
	}
	if !commitment.Verify(hash, from, cityID.Uint64(), conditionHandle, stakeHandle) {
		return nil, nil, revert(ReasonInvalidCommitment)
	}

	ticketID := c.ticketCount + 1
	out, err := method.Outputs.Pack(new(big.Int).SetUint64(ticketID))
	if err != nil || !commit {
		return out, nil, err
	}

	c.ticketCount = ticketID
	c.tickets[ticketID] = &ticket{
		cityID:             cityID.Uint64(),
		bettor:             from,
		encryptedCondition: conditionHandle,
		encryptedStake:     stakeHandle,
		commitment:         hash,
		stakeWei:           new(big.Int).Set(value),
	}
	c.cityTickets[cityID.Uint64()] = append(c.cityTickets[cityID.Uint64()], ticketID)
	c.commitments[hash] = struct{}{}
	m.totalDepositedWei.Add(m.totalDepositedWei, value)

	event := c.abi.Events[contract.EventForecastPlaced]
	log := ethtypes.Log{
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(cityID),
			common.BytesToHash(from.Bytes()),
			common.BigToHash(new(big.Int).SetUint64(ticketID)),
		},
		Data: []byte{},
	}
	return out, []ethtypes.Log{log}, nil
}

func (c *Chain) claim(
	from common.Address,
	args []interface{},
	commit bool,
) ([]byte, []ethtypes.Log, error) {
	ticketID := args[0].(*big.Int)

	t, ok := c.lookupTicket(ticketID)
	if !ok {
		return nil, nil, revert(ReasonTicketMissing)
	}
	if t.bettor != from {
		return nil, nil, revert(ReasonNotTicketOwner)
	}
	if t.claimed {
		return nil, nil, revert(ReasonTicketClaimed)
	}
	m := c.markets[t.cityID]
	if !m.settled {
		return nil, nil, revert(ReasonMarketNotSettled)
	}

	payout := new(big.Int)
	if condition, ok := c.revealed[t.encryptedCondition]; ok && uint8(condition) == m.winningCondition {
		payout = wager.EstimatePayout(t.stakeWei, m.payoutRatio)
	}

	event := c.abi.Events[contract.EventForecastPaid]
	data, err := event.Inputs.NonIndexed().Pack(payout)
	if err != nil || !commit {
		return nil, nil, err
	}

	t.claimed = true
	m.totalPaidWei.Add(m.totalPaidWei, payout)
	if bal, ok := c.balances[from]; ok {
		bal.Add(bal, payout)
	}
	log := ethtypes.Log{
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(ticketID),
			common.BytesToHash(from.Bytes()),
		},
		Data: data,
	}
	return nil, []ethtypes.Log{log}, nil
}

func (c *Chain) lookupMarket(cityID *big.Int) (*market, bool) {
	if !cityID.IsUint64() {
		return nil, false
	}
	m, ok := c.markets[cityID.Uint64()]
	return m, ok
}

func (c *Chain) lookupTicket(ticketID *big.Int) (*ticket, bool) {
	if !ticketID.IsUint64() {
		return nil, false
	}
	t, ok := c.tickets[ticketID.Uint64()]
	return t, ok
}

// appendLogs stamps logs with the current block and records them. The
// caller holds the lock.
func (c *Chain) appendLogs(txHash common.Hash, logs []ethtypes.Log) []*ethtypes.Log {
	out := make([]*ethtypes.Log, 0, len(logs))
	for i := range logs {
		log := logs[i]
		log.Address = c.address
		log.BlockNumber = c.blockNumber
		log.TxHash = txHash
		log.Index = uint(len(c.logs))
		c.logs = append(c.logs, log)
		stored := copyLog(log)
		out = append(out, &stored)
	}
	return out
}

// Account is a funded externally owned account on the chain.
type Account struct {
	chain *Chain
	from  common.Address
}

func (a *Account) SenderAddress() common.Address {
	return a.from
}

// SendTx executes the call and mines it into a new block. Calls the contract
// would reject return a *RevertError without mining, as a node's gas
// estimation does.
func (a *Account) SendTx(
	ctx context.Context,
	to common.Address,
	value *big.Int,
	_ uint64,
	callData []byte,
) (*ethtypes.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if value == nil {
		value = new(big.Int)
	}
	c := a.chain

	c.lock.Lock()
	defer c.lock.Unlock()

	bal, limited := c.balances[a.from]
	if limited && bal.Cmp(value) < 0 {
		return nil, fmt.Errorf("%s: address %s have %s want %s", insufficientFundsMessage, a.from, bal, value)
	}
	if to != c.address {
		return nil, fmt.Errorf("no contract at %s", to)
	}

	_, logs, err := c.execute(a.from, value, callData, true)
	if err != nil {
		return nil, err
	}
	if limited {
		bal.Sub(bal, value)
	}

	nonce := c.nonces[a.from]
	c.nonces[a.from] = nonce + 1
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)
	txHash := crypto.Keccak256Hash(a.from.Bytes(), nonceBytes[:], callData)

	c.blockNumber++
	receiptLogs := c.appendLogs(txHash, logs)
	return &ethtypes.Receipt{
		Type:              ethtypes.DynamicFeeTxType,
		Status:            ethtypes.ReceiptStatusSuccessful,
		CumulativeGasUsed: defaultGasUsed,
		GasUsed:           defaultGasUsed,
		Logs:              receiptLogs,
		TxHash:            txHash,
		BlockNumber:       new(big.Int).SetUint64(c.blockNumber),
	}, nil
}

func copyLog(log ethtypes.Log) ethtypes.Log {
	log.Topics = append([]common.Hash(nil), log.Topics...)
	log.Data = append([]byte(nil), log.Data...)
	return log
}
