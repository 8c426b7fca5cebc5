// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/eventdb"
)

type EventCriteria struct {
	Address *emy.Address `json:"address"`
	Topic0  *emy.Bytes32 `json:"topic0"`
	Topic1  *emy.Bytes32 `json:"topic1"`
	Topic2  *emy.Bytes32 `json:"topic2"`
	Topic3  *emy.Bytes32 `json:"topic3"`
	Topic4  *emy.Bytes32 `json:"topic4"`
}

func (c *EventCriteria) convert() *eventdb.EventCriteria {
	return &eventdb.EventCriteria{
		Address: c.Address,
		Topics:  [5]*emy.Bytes32{c.Topic0, c.Topic1, c.Topic2, c.Topic3, c.Topic4},
	}
}

type EventFilter struct {
	CriteriaSet []*EventCriteria `json:"criteriaSet"`
	Range       *eventdb.Range   `json:"range"`
	Options     *eventdb.Options `json:"options"`
	Order       eventdb.Order    `json:"order"`
}

func convertEventFilter(ef *EventFilter) *eventdb.Filter {
	f := &eventdb.Filter{
		Range:   ef.Range,
		Options: ef.Options,
		Order:   ef.Order,
	}
	for _, c := range ef.CriteriaSet {
		f.CriteriaSet = append(f.CriteriaSet, c.convert())
	}
	return f
}
