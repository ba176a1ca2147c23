// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package wager

import (
	"errors"
	"fmt"
)

// ErrorKind classifies where in the forecast workflow a failure happened.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindValidation is bad input caught before any network call.
	KindValidation
	// KindBackendInit means the encryption backend could not be initialized
	// within its attempt budget.
	KindBackendInit
	// KindEncryption means proof generation failed.
	KindEncryption
	// KindTransactionRejected means the transaction never made it on chain,
	// e.g. the signer declined it or the node refused it.
	KindTransactionRejected
	// KindTransactionReverted is a contract-level rejection.
	KindTransactionReverted
	// KindNetwork means the RPC endpoint was unreachable.
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindBackendInit:
		return "BackendInitError"
	case KindEncryption:
		return "EncryptionError"
	case KindTransactionRejected:
		return "TransactionRejected"
	case KindTransactionReverted:
		return "TransactionReverted"
	case KindNetwork:
		return "NetworkError"
	default:
		return "UnknownError"
	}
}

// RejectReason is the human readable category attached to an Error.
type RejectReason int

const (
	ReasonNone RejectReason = iota
	ReasonInvalidInput
	ReasonWalletNotConnected
	ReasonMarketNotFound
	ReasonMarketLocked
	ReasonUserCancelled
	ReasonInsufficientFunds
	ReasonDuplicateCommitment
	ReasonZeroStake
	ReasonRevert
)

func (r RejectReason) String() string {
	switch r {
	case ReasonInvalidInput:
		return "invalid input"
	case ReasonWalletNotConnected:
		return "wallet not connected"
	case ReasonMarketNotFound:
		return "market not found"
	case ReasonMarketLocked:
		return "market locked"
	case ReasonUserCancelled:
		return "user cancelled"
	case ReasonInsufficientFunds:
		return "insufficient funds"
	case ReasonDuplicateCommitment:
		return "duplicate commitment"
	case ReasonZeroStake:
		return "zero stake"
	case ReasonRevert:
		return "reverted"
	default:
		return "none"
	}
}

// Description is the message shown to a user for the reason.
func (r RejectReason) Description() string {
	switch r {
	case ReasonWalletNotConnected:
		return "Please connect your wallet to place a forecast"
	case ReasonMarketNotFound:
		return "No market exists for this city"
	case ReasonMarketLocked:
		return "Market is locked. Betting is closed for this city."
	case ReasonUserCancelled:
		return "Transaction was rejected by user"
	case ReasonInsufficientFunds:
		return "Insufficient ETH balance for this stake amount"
	case ReasonDuplicateCommitment:
		return "This forecast has already been submitted. Please try again."
	case ReasonZeroStake:
		return "Stake must be positive"
	case ReasonRevert:
		return "The contract rejected the transaction"
	default:
		return ""
	}
}

// Error is the failure type returned by the forecast workflow. Message keeps
// the underlying text verbatim; Reason carries the category.
type Error struct {
	Kind    ErrorKind
	Reason  RejectReason
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Reason != ReasonNone {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind and, when set on the target, reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == ReasonNone || t.Reason == e.Reason
}

// Sentinel targets for errors.Is.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrBackendInit         = &Error{Kind: KindBackendInit}
	ErrEncryption          = &Error{Kind: KindEncryption}
	ErrTransactionRejected = &Error{Kind: KindTransactionRejected}
	ErrTransactionReverted = &Error{Kind: KindTransactionReverted}
	ErrNetwork             = &Error{Kind: KindNetwork}
)

// NewValidationError returns a KindValidation error.
func NewValidationError(reason RejectReason, format string, args ...any) *Error {
	return &Error{
		Kind:    KindValidation,
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap builds an *Error of the given kind around err, keeping err's text.
func Wrap(kind ErrorKind, reason RejectReason, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Reason:  reason,
		Message: err.Error(),
		Err:     err,
	}
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
