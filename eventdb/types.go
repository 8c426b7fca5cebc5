// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/tx"
)

// Event represents tx.Event that can be stored in db.
type Event struct {
	Seq         uint64
	BlockNumber uint32
	BlockTime   uint64
	TxID        emy.Bytes32
	Index       uint32
	TxOrigin    emy.Address
	Address     emy.Address // always a contract address
	Topics      [5]*emy.Bytes32
	Data        []byte
}

func newEvent(r *tx.Receipt, index uint32, txEvent *tx.Event) *Event {
	ev := &Event{
		BlockNumber: r.BlockNumber,
		BlockTime:   r.BlockTime,
		TxID:        r.ID,
		Index:       index,
		TxOrigin:    r.Origin,
		Address:     txEvent.Address,
		Data:        txEvent.Data,
	}
	for i := 0; i < len(txEvent.Topics) && i < len(ev.Topics); i++ {
		topic := txEvent.Topics[i]
		ev.Topics[i] = &topic
	}
	return ev
}

type RangeType string

const (
	Block RangeType = "block"
	Time  RangeType = "time"
)

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range bounds a filter by block number or block time, both ends inclusive.
// A To lower than From leaves the upper end open.
type Range struct {
	Unit RangeType `json:"unit"`
	From uint64    `json:"from"`
	To   uint64    `json:"to"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// EventCriteria matches events by emitter and topics. Nil fields match anything.
type EventCriteria struct {
	Address *emy.Address    `json:"address"`
	Topics  [5]*emy.Bytes32 `json:"topics"`
}

// Match reports whether the event satisfies the criteria.
func (c *EventCriteria) Match(address emy.Address, topics []emy.Bytes32) bool {
	if c.Address != nil && *c.Address != address {
		return false
	}
	for i, topic := range c.Topics {
		if topic == nil {
			continue
		}
		if i >= len(topics) || topics[i] != *topic {
			return false
		}
	}
	return true
}

// Filter selects events. Criteria in CriteriaSet are OR-ed.
type Filter struct {
	CriteriaSet []*EventCriteria `json:"criteriaSet"`
	Range       *Range           `json:"range"`
	Options     *Options         `json:"options"`
	Order       Order            `json:"order"` // default asc
}
