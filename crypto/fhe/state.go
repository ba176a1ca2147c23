// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package fhe

import "fmt"

// Status is the provider lifecycle position.
type Status int

const (
	StatusIdle Status = iota
	StatusInitializing
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusInitializing:
		return "initializing"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is a snapshot of the provider. Message is only set for StatusError.
type State struct {
	Status  Status
	Message string
}

func (s State) String() string {
	if s.Status == StatusError {
		return fmt.Sprintf("error(%s)", s.Message)
	}
	return s.Status.String()
}

// Listener receives state snapshots.
type Listener func(State)
