// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb indexes contract events of executed receipts in sqlite.
package eventdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/log"
	"github.com/emylabs/emy/tx"
)

var logger = log.WithContext("pkg", "eventdb")

// EventDB manages all indexed events.
type EventDB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New create or open event db at given path.
func New(path string) (eventDB *EventDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if eventDB == nil {
			db.Close()
		}
	}()
	// an in-memory database lives as long as its connection
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, errors.Wrap(err, "create schema")
	}

	driverVer, _, _ := sqlite3.Version()
	logger.Debug("event db opened", "path", path, "sqlite", driverVer)
	return &EventDB{
		path,
		db,
		driverVer,
	}, nil
}

// NewMem create an event db in ram.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Close close the event db.
func (db *EventDB) Close() error {
	return db.db.Close()
}

func (db *EventDB) Path() string {
	return db.path
}

// Insert indexes all events of the receipt in one transaction.
// Reverted receipts carry no events and are skipped.
func (db *EventDB) Insert(ctx context.Context, r *tx.Receipt) error {
	if r.Reverted || len(r.Events) == 0 {
		return nil
	}
	dbTx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	stmt, err := dbTx.PrepareContext(ctx, "INSERT OR REPLACE INTO event(blockNumber, blockTime, txID, eventIndex, txOrigin, address, topic0, topic1, topic2, topic3, topic4, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		dbTx.Rollback()
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	for i, txEvent := range r.Events {
		ev := newEvent(r, uint32(i), txEvent)
		if _, err := stmt.ExecContext(ctx,
			ev.BlockNumber,
			ev.BlockTime,
			ev.TxID.Bytes(),
			ev.Index,
			ev.TxOrigin.Bytes(),
			ev.Address.Bytes(),
			topicValue(ev.Topics[0]),
			topicValue(ev.Topics[1]),
			topicValue(ev.Topics[2]),
			topicValue(ev.Topics[3]),
			topicValue(ev.Topics[4]),
			ev.Data,
		); err != nil {
			dbTx.Rollback()
			return errors.Wrap(err, "insert event")
		}
	}
	return dbTx.Commit()
}

// NewestBlockNumber returns the highest block number indexed, 0 if empty.
func (db *EventDB) NewestBlockNumber(ctx context.Context) (uint32, error) {
	var num uint32
	if err := db.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(blockNumber), 0) FROM event").Scan(&num); err != nil {
		return 0, errors.Wrap(err, "query newest block number")
	}
	return num, nil
}

// Filter returns events matched by the filter. A nil filter returns all
// events in insertion order.
func (db *EventDB) Filter(ctx context.Context, filter *Filter) ([]*Event, error) {
	if filter == nil {
		return db.query(ctx, "SELECT "+eventColumns+" FROM event ORDER BY seq ASC")
	}
	metricsHandleFilter(filter)

	var (
		args []any
		sb   strings.Builder
	)
	sb.WriteString("SELECT " + eventColumns + " FROM event WHERE 1")

	if filter.Range != nil {
		column := "blockNumber"
		if filter.Range.Unit == Time {
			column = "blockTime"
		}
		sb.WriteString(" AND " + column + " >= ?")
		args = append(args, filter.Range.From)
		if filter.Range.To >= filter.Range.From {
			sb.WriteString(" AND " + column + " <= ?")
			args = append(args, filter.Range.To)
		}
	}

	if len(filter.CriteriaSet) > 0 {
		sb.WriteString(" AND (")
		for i, criteria := range filter.CriteriaSet {
			if i > 0 {
				sb.WriteString(" OR ")
			}
			sb.WriteString("(1")
			if criteria.Address != nil {
				sb.WriteString(" AND address = ?")
				args = append(args, criteria.Address.Bytes())
			}
			for j, topic := range criteria.Topics {
				if topic != nil {
					fmt.Fprintf(&sb, " AND topic%d = ?", j)
					args = append(args, topic.Bytes())
				}
			}
			sb.WriteString(")")
		}
		sb.WriteString(")")
	}

	if filter.Order == DESC {
		sb.WriteString(" ORDER BY seq DESC")
	} else {
		sb.WriteString(" ORDER BY seq ASC")
	}

	if filter.Options != nil {
		sb.WriteString(" LIMIT ?, ?")
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.query(ctx, sb.String(), args...)
}

func (db *EventDB) query(ctx context.Context, stmt string, args ...any) ([]*Event, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			seq         uint64
			blockNumber uint32
			blockTime   uint64
			txID        []byte
			index       uint32
			txOrigin    []byte
			address     []byte
			topics      [5][]byte
			data        []byte
		)
		if err := rows.Scan(
			&seq,
			&blockNumber,
			&blockTime,
			&txID,
			&index,
			&txOrigin,
			&address,
			&topics[0],
			&topics[1],
			&topics[2],
			&topics[3],
			&topics[4],
			&data,
		); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		event := &Event{
			Seq:         seq,
			BlockNumber: blockNumber,
			BlockTime:   blockTime,
			TxID:        emy.BytesToBytes32(txID),
			Index:       index,
			TxOrigin:    emy.BytesToAddress(txOrigin),
			Address:     emy.BytesToAddress(address),
			Data:        data,
		}
		for i, topic := range topics {
			if len(topic) > 0 {
				h := emy.BytesToBytes32(topic)
				event.Topics[i] = &h
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate events")
	}
	return events, nil
}

func topicValue(topic *emy.Bytes32) []byte {
	if topic == nil {
		return nil
	}
	return topic.Bytes()
}
