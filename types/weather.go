// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package types

import (
	"fmt"
	"strings"
)

// Condition is the weather outcome a forecast wagers on. The numeric values
// match the contract's enumeration.
type Condition uint8

const (
	Sunny Condition = iota
	Rainy
	Snowy
	Cloudy
)

// ConditionCount is the number of supported outcomes per market.
const ConditionCount = 4

var conditionNames = [ConditionCount]string{"sunny", "rainy", "snowy", "cloudy"}

var conditionLabels = [ConditionCount]string{"Clear skies", "Precipitation", "Snowfall", "Overcast"}

// AllConditions in display order.
func AllConditions() []Condition {
	return []Condition{Sunny, Rainy, Snowy, Cloudy}
}

func (c Condition) Valid() bool {
	return c < ConditionCount
}

func (c Condition) String() string {
	if !c.Valid() {
		return fmt.Sprintf("condition(%d)", uint8(c))
	}
	return conditionNames[c]
}

// Description is a short human readable label.
func (c Condition) Description() string {
	if !c.Valid() {
		return ""
	}
	return conditionLabels[c]
}

// ConditionFromIndex converts a contract index to a Condition, rejecting
// anything outside [0,3].
func ConditionFromIndex(i int) (Condition, error) {
	if i < 0 || i >= ConditionCount {
		return 0, fmt.Errorf("condition index %d out of range [0,%d]", i, ConditionCount-1)
	}
	return Condition(i), nil
}

// ParseCondition accepts either a name ("rainy") or an index ("1").
func ParseCondition(s string) (Condition, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range conditionNames {
		if s == name {
			return Condition(i), nil
		}
	}
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err == nil && fmt.Sprint(i) == s {
		return ConditionFromIndex(i)
	}
	return 0, fmt.Errorf("unknown weather condition %q", s)
}
