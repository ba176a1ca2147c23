// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package submission

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/luxfi/wager"
	"github.com/luxfi/wager/contract"
	"github.com/luxfi/wager/vms/evm"
)

type pattern struct {
	substrings []string
	kind       wager.ErrorKind
	reason     wager.RejectReason
}

// Checked in order; the first match wins. Contract revert reasons are listed
// before the generic revert markers that wrap them.
var txErrorPatterns = []pattern{
	{
		substrings: []string{"user rejected", "user denied"},
		kind:       wager.KindTransactionRejected,
		reason:     wager.ReasonUserCancelled,
	},
	{
		substrings: []string{"insufficient funds"},
		kind:       wager.KindTransactionRejected,
		reason:     wager.ReasonInsufficientFunds,
	},
	{
		substrings: []string{"market locked"},
		kind:       wager.KindTransactionReverted,
		reason:     wager.ReasonMarketLocked,
	},
	{
		substrings: []string{"commitment used"},
		kind:       wager.KindTransactionReverted,
		reason:     wager.ReasonDuplicateCommitment,
	},
	{
		substrings: []string{"stake must be positive"},
		kind:       wager.KindTransactionReverted,
		reason:     wager.ReasonZeroStake,
	},
	{
		substrings: []string{"market missing", "market not found", "no market"},
		kind:       wager.KindTransactionReverted,
		reason:     wager.ReasonMarketNotFound,
	},
	{
		substrings: []string{"execution reverted", "revert"},
		kind:       wager.KindTransactionReverted,
		reason:     wager.ReasonRevert,
	},
	{
		substrings: []string{
			"connection refused",
			"connection reset",
			"no such host",
			"dial tcp",
			"i/o timeout",
			"tls handshake timeout",
			"unexpected eof",
		},
		kind:   wager.KindNetwork,
		reason: wager.ReasonNone,
	},
}

// ClassifyTxError maps an error returned while sending a transaction to the
// workflow taxonomy. The message of the original error is kept verbatim.
func ClassifyTxError(err error) *wager.Error {
	if err == nil {
		return nil
	}
	if e, ok := wager.AsError(err); ok {
		return e
	}

	msg := strings.ToLower(err.Error())
	for _, p := range txErrorPatterns {
		for _, s := range p.substrings {
			if strings.Contains(msg, s) {
				return wager.Wrap(p.kind, p.reason, err)
			}
		}
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return wager.Wrap(wager.KindTransactionRejected, wager.ReasonUserCancelled, err)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return wager.Wrap(wager.KindNetwork, wager.ReasonNone, err)
	case errors.Is(err, evm.ErrTxReverted), errors.Is(err, contract.ErrTxFailed):
		return wager.Wrap(wager.KindTransactionReverted, wager.ReasonRevert, err)
	}
	return wager.Wrap(wager.KindTransactionRejected, wager.ReasonNone, err)
}
