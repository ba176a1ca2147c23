// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

var ErrUnknownEvent = errors.New("unknown event")

// Field names follow the ABI argument names so that topics and data decode
// into them directly.

// ForecastPlaced is emitted once per accepted forecast.
type ForecastPlaced struct {
	CityId   *big.Int
	Bettor   common.Address
	TicketId *big.Int
	Raw      ethtypes.Log
}

// ForecastPaid is emitted when a ticket is claimed.
type ForecastPaid struct {
	TicketId  *big.Int
	Bettor    common.Address
	PayoutWei *big.Int
	Raw       ethtypes.Log
}

// CitySettled is emitted when a market's winning condition is published.
type CitySettled struct {
	CityId           *big.Int
	WinningCondition uint8
	RequestId        *big.Int
	Raw              ethtypes.Log
}

func (b *Book) ParseForecastPlaced(log ethtypes.Log) (*ForecastPlaced, error) {
	event := new(ForecastPlaced)
	if err := b.bound.UnpackLog(event, EventForecastPlaced, log); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", EventForecastPlaced, err)
	}
	event.Raw = log
	return event, nil
}

func (b *Book) ParseForecastPaid(log ethtypes.Log) (*ForecastPaid, error) {
	event := new(ForecastPaid)
	if err := b.bound.UnpackLog(event, EventForecastPaid, log); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", EventForecastPaid, err)
	}
	event.Raw = log
	return event, nil
}

func (b *Book) ParseCitySettled(log ethtypes.Log) (*CitySettled, error) {
	event := new(CitySettled)
	if err := b.bound.UnpackLog(event, EventCitySettled, log); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", EventCitySettled, err)
	}
	event.Raw = log
	return event, nil
}

// ParseEvent decodes any of the contract's events. The result is one of
// *ForecastPlaced, *ForecastPaid or *CitySettled.
func (b *Book) ParseEvent(log ethtypes.Log) (interface{}, error) {
	if len(log.Topics) == 0 {
		return nil, ErrUnknownEvent
	}
	switch log.Topics[0] {
	case EventID(EventForecastPlaced):
		return b.ParseForecastPlaced(log)
	case EventID(EventForecastPaid):
		return b.ParseForecastPaid(log)
	case EventID(EventCitySettled):
		return b.ParseCitySettled(log)
	default:
		return nil, fmt.Errorf("%w: topic %s", ErrUnknownEvent, log.Topics[0])
	}
}

// EventTopics returns the topic-0 filter matching every contract event.
func EventTopics() [][]common.Hash {
	return [][]common.Hash{{
		EventID(EventForecastPlaced),
		EventID(EventForecastPaid),
		EventID(EventCitySettled),
	}}
}
