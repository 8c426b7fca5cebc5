// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package types holds the JSON forms shared by the api handlers.
package types

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/eventdb"
	"github.com/emylabs/emy/tx"
)

// Meta locates an event or receipt on the ledger.
type Meta struct {
	BlockNumber uint32      `json:"blockNumber"`
	BlockTime   uint64      `json:"blockTimestamp"`
	TxID        emy.Bytes32 `json:"txID"`
	TxOrigin    emy.Address `json:"txOrigin"`
}

type Event struct {
	Address emy.Address   `json:"address"`
	Topics  []emy.Bytes32 `json:"topics"`
	Data    hexutil.Bytes `json:"data"`
	Meta    *Meta         `json:"meta,omitempty"`
}

type Receipt struct {
	Meta
	To           emy.Address   `json:"to"`
	Reverted     bool          `json:"reverted"`
	RevertReason string        `json:"revertReason,omitempty"`
	Output       hexutil.Bytes `json:"output"`
	Events       []*Event      `json:"events"`
}

func metaOf(r *tx.Receipt) Meta {
	return Meta{
		BlockNumber: r.BlockNumber,
		BlockTime:   r.BlockTime,
		TxID:        r.ID,
		TxOrigin:    r.Origin,
	}
}

// ConvertReceipt converts a receipt into its JSON form.
func ConvertReceipt(r *tx.Receipt) *Receipt {
	receipt := &Receipt{
		Meta:         metaOf(r),
		To:           r.To,
		Reverted:     r.Reverted,
		RevertReason: r.RevertReason,
		Output:       r.Output,
		Events:       make([]*Event, 0, len(r.Events)),
	}
	for _, ev := range r.Events {
		receipt.Events = append(receipt.Events, &Event{
			Address: ev.Address,
			Topics:  ev.Topics,
			Data:    ev.Data,
		})
	}
	return receipt
}

// ReceiptEvents converts the events of a receipt, each carrying its meta.
func ReceiptEvents(r *tx.Receipt) []*Event {
	meta := metaOf(r)
	events := make([]*Event, 0, len(r.Events))
	for _, ev := range r.Events {
		events = append(events, &Event{
			Address: ev.Address,
			Topics:  ev.Topics,
			Data:    ev.Data,
			Meta:    &meta,
		})
	}
	return events
}

// ConvertIndexedEvent converts an event of the event db.
func ConvertIndexedEvent(e *eventdb.Event) *Event {
	ev := &Event{
		Address: e.Address,
		Topics:  make([]emy.Bytes32, 0, len(e.Topics)),
		Data:    e.Data,
		Meta: &Meta{
			BlockNumber: e.BlockNumber,
			BlockTime:   e.BlockTime,
			TxID:        e.TxID,
			TxOrigin:    e.TxOrigin,
		},
	}
	for _, topic := range e.Topics {
		if topic != nil {
			ev.Topics = append(ev.Topics, *topic)
		}
	}
	return ev
}
