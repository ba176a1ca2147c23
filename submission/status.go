// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package submission

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the position of one submission attempt.
type Status int

const (
	StatusNotStarted Status = iota
	StatusValidating
	StatusEncrypting
	StatusCommitting
	StatusSubmitting
	StatusConfirmed
	StatusRejected
)

var statusNames = [...]string{
	StatusNotStarted: "not_started",
	StatusValidating: "validating",
	StatusEncrypting: "encrypting",
	StatusCommitting: "committing",
	StatusSubmitting: "submitting",
	StatusConfirmed:  "confirmed",
	StatusRejected:   "rejected",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// Terminal reports whether no further transition follows s.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for i, n := range statusNames {
		if n == name {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", name)
}

// Transition is one recorded status change.
type Transition struct {
	AttemptID string    `json:"attemptId"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	At        time.Time `json:"at"`
}

// Observer receives every transition of every attempt, synchronously and in
// order per attempt.
type Observer func(Transition)
