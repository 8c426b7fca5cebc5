// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/eventdb"
	"github.com/emylabs/emy/tx"
)

var (
	contractA = emy.BytesToAddress([]byte("contractA"))
	contractB = emy.BytesToAddress([]byte("contractB"))
	topicX    = emy.BytesToBytes32([]byte("topicX"))
	topicY    = emy.BytesToBytes32([]byte("topicY"))
	origin    = emy.BytesToAddress([]byte("origin"))
)

func newReceipt(n uint32, events ...*tx.Event) *tx.Receipt {
	return &tx.Receipt{
		ID:          emy.Blake2b([]byte{byte(n >> 8), byte(n)}),
		BlockNumber: n,
		BlockTime:   1000 + uint64(n)*10,
		Origin:      origin,
		Events:      events,
	}
}

// fill inserts blocks 1..100; odd blocks emit from A with topicX, even ones
// emit from B with topics (topicY, topicX).
func fill(t *testing.T, db *eventdb.EventDB) {
	ctx := context.Background()
	for n := uint32(1); n <= 100; n++ {
		ev := &tx.Event{Address: contractA, Topics: []emy.Bytes32{topicX}, Data: []byte{byte(n)}}
		if n%2 == 0 {
			ev = &tx.Event{Address: contractB, Topics: []emy.Bytes32{topicY, topicX}, Data: []byte{byte(n)}}
		}
		require.NoError(t, db.Insert(ctx, newReceipt(n, ev)))
	}
}

func TestInsertAndFilterAll(t *testing.T) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	r := newReceipt(7,
		&tx.Event{Address: contractA, Topics: []emy.Bytes32{topicX, topicY}, Data: []byte("first")},
		&tx.Event{Address: contractB, Data: []byte("second")},
	)
	require.NoError(t, db.Insert(ctx, r))

	events, err := db.Filter(ctx, nil)
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, uint32(7), first.BlockNumber)
	assert.Equal(t, uint64(1070), first.BlockTime)
	assert.Equal(t, r.ID, first.TxID)
	assert.Equal(t, uint32(0), first.Index)
	assert.Equal(t, origin, first.TxOrigin)
	assert.Equal(t, contractA, first.Address)
	assert.Equal(t, topicX, *first.Topics[0])
	assert.Equal(t, topicY, *first.Topics[1])
	assert.Nil(t, first.Topics[2])
	assert.Equal(t, []byte("first"), first.Data)

	second := events[1]
	assert.Equal(t, uint32(1), second.Index)
	assert.Nil(t, second.Topics[0])
	assert.Less(t, first.Seq, second.Seq)
}

func TestInsertSkipsReverted(t *testing.T) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	r := newReceipt(1, &tx.Event{Address: contractA})
	r.Reverted = true
	require.NoError(t, db.Insert(ctx, r))
	require.NoError(t, db.Insert(ctx, newReceipt(2)))

	events, err := db.Filter(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestInsertIsIdempotent(t *testing.T) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	r := newReceipt(3, &tx.Event{Address: contractA})
	require.NoError(t, db.Insert(ctx, r))
	require.NoError(t, db.Insert(ctx, r))

	events, err := db.Filter(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestFilter(t *testing.T) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	fill(t, db)

	ctx := context.Background()
	a, b := contractA, contractB
	x, y := topicX, topicY

	tests := []struct {
		name   string
		filter *eventdb.Filter
		blocks []uint32
	}{
		{
			"block range",
			&eventdb.Filter{Range: &eventdb.Range{Unit: eventdb.Block, From: 10, To: 13}},
			[]uint32{10, 11, 12, 13},
		},
		{
			"time range",
			&eventdb.Filter{Range: &eventdb.Range{Unit: eventdb.Time, From: 1200, To: 1220}},
			[]uint32{20, 21, 22},
		},
		{
			"open upper bound",
			&eventdb.Filter{Range: &eventdb.Range{Unit: eventdb.Block, From: 98}},
			[]uint32{98, 99, 100},
		},
		{
			"address",
			&eventdb.Filter{
				Range:       &eventdb.Range{Unit: eventdb.Block, From: 1, To: 6},
				CriteriaSet: []*eventdb.EventCriteria{{Address: &b}},
			},
			[]uint32{2, 4, 6},
		},
		{
			"topic position matters",
			&eventdb.Filter{
				Range:       &eventdb.Range{Unit: eventdb.Block, From: 1, To: 6},
				CriteriaSet: []*eventdb.EventCriteria{{Topics: [5]*emy.Bytes32{&x}}},
			},
			[]uint32{1, 3, 5},
		},
		{
			"criteria are or-ed",
			&eventdb.Filter{
				Range: &eventdb.Range{Unit: eventdb.Block, From: 1, To: 4},
				CriteriaSet: []*eventdb.EventCriteria{
					{Address: &a, Topics: [5]*emy.Bytes32{&x}},
					{Topics: [5]*emy.Bytes32{&y, &x}},
				},
			},
			[]uint32{1, 2, 3, 4},
		},
		{
			"no match",
			&eventdb.Filter{CriteriaSet: []*eventdb.EventCriteria{{Address: &a, Topics: [5]*emy.Bytes32{&y}}}},
			nil,
		},
		{
			"desc with paging",
			&eventdb.Filter{
				Order:   eventdb.DESC,
				Options: &eventdb.Options{Offset: 2, Limit: 3},
			},
			[]uint32{98, 97, 96},
		},
		{
			"asc with paging",
			&eventdb.Filter{
				Order:   eventdb.ASC,
				Options: &eventdb.Options{Offset: 0, Limit: 2},
			},
			[]uint32{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := db.Filter(ctx, tt.filter)
			require.NoError(t, err)
			var blocks []uint32
			for _, ev := range events {
				blocks = append(blocks, ev.BlockNumber)
			}
			assert.Equal(t, tt.blocks, blocks)
		})
	}
}

func TestNewestBlockNumber(t *testing.T) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	num, err := db.NewestBlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), num)

	fill(t, db)
	num, err = db.NewestBlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), num)
}

func TestCriteriaMatch(t *testing.T) {
	a := contractA
	x, y := topicX, topicY

	c := &eventdb.EventCriteria{Address: &a, Topics: [5]*emy.Bytes32{nil, &y}}
	assert.True(t, c.Match(contractA, []emy.Bytes32{x, y}))
	assert.False(t, c.Match(contractB, []emy.Bytes32{x, y}))
	assert.False(t, c.Match(contractA, []emy.Bytes32{x}))
	assert.True(t, (&eventdb.EventCriteria{}).Match(contractB, nil))
}

func TestOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	db, err := eventdb.New(path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())

	ctx := context.Background()
	require.NoError(t, db.Insert(ctx, newReceipt(1, &tx.Event{Address: contractA})))
	require.NoError(t, db.Close())

	db, err = eventdb.New(path)
	require.NoError(t, err)
	defer db.Close()
	events, err := db.Filter(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
