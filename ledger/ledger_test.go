// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emylabs/emy/builtin"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/eventdb"
	"github.com/emylabs/emy/ledger"
	"github.com/emylabs/emy/lvldb"
	"github.com/emylabs/emy/state"
	"github.com/emylabs/emy/tx"
)

var (
	owner     = emy.BytesToAddress([]byte("owner"))
	alice     = emy.BytesToAddress([]byte("alice"))
	tokenAddr = emy.CreateContractAddress(owner, 0)
)

const genesisTime = 1_700_000_000

type tokenGenesis struct {
	id emy.Bytes32
}

func (g tokenGenesis) ID() emy.Bytes32   { return g.id }
func (g tokenGenesis) Timestamp() uint64 { return genesisTime }

func (g tokenGenesis) Build(st *state.State) error {
	builtin.Token.Deploy(st, tokenAddr)
	return builtin.Token.Native(tokenAddr, st).Initialize(owner, "Erc20my", "EMY", 18, big.NewInt(1_000))
}

var defaultGenesis = tokenGenesis{emy.Blake2b([]byte("genesis"))}

func newLedger(t *testing.T, db *lvldb.LevelDB, clock ledger.Clock, sink ledger.EventSink) *ledger.Ledger {
	l, err := ledger.New(db, defaultGenesis, clock, sink)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func newMemDB(t *testing.T) *lvldb.LevelDB {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func transfer(t *testing.T, to emy.Address, amount int64) *tx.Clause {
	data, err := builtin.Token.MustMethod("transfer").EncodeInput(to, big.NewInt(amount))
	require.NoError(t, err)
	return tx.NewClause(tokenAddr).WithData(data)
}

func balanceOf(t *testing.T, l *ledger.Ledger, addr emy.Address) *big.Int {
	data, err := builtin.Token.MustMethod("balanceOf").EncodeInput(addr)
	require.NoError(t, err)
	out, err := l.Call(context.Background(), addr, tx.NewClause(tokenAddr).WithData(data))
	require.NoError(t, err)
	require.False(t, out.Reverted())
	var balance *big.Int
	require.NoError(t, builtin.Token.MustMethod("balanceOf").DecodeOutput(out.Data, &balance))
	return balance
}

func TestGenesis(t *testing.T) {
	db := newMemDB(t)
	l, err := ledger.New(db, defaultGenesis, ledger.NewManualClock(genesisTime), nil)
	require.NoError(t, err)

	assert.Equal(t, ledger.Head{Number: 0, Time: genesisTime}, l.Head())
	assert.Equal(t, defaultGenesis.id, l.GenesisID())
	assert.Equal(t, big.NewInt(1_000), balanceOf(t, l, owner))
	l.Close()

	// reopen keeps the head and refuses a different genesis
	l, err = ledger.New(db, defaultGenesis, ledger.NewManualClock(genesisTime), nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), l.Head().Number)
	l.Close()

	_, err = ledger.New(db, tokenGenesis{emy.Blake2b([]byte("other"))}, ledger.SystemClock{}, nil)
	assert.ErrorIs(t, err, ledger.ErrGenesisMismatch)
}

func TestExecute(t *testing.T) {
	clock := ledger.NewManualClock(genesisTime + 10)
	l := newLedger(t, newMemDB(t), clock, nil)
	ctx := context.Background()

	r, err := l.Execute(ctx, owner, transfer(t, alice, 100))
	require.NoError(t, err)
	assert.False(t, r.Reverted)
	assert.Equal(t, uint32(1), r.BlockNumber)
	assert.Equal(t, uint64(genesisTime+10), r.BlockTime)
	assert.Equal(t, owner, r.Origin)
	assert.Equal(t, tokenAddr, r.To)
	require.Len(t, r.Events, 1)
	assert.Equal(t, builtin.Token.MustEvent("Transfer").ID(), r.Events[0].Topics[0])

	assert.Equal(t, ledger.Head{Number: 1, Time: genesisTime + 10}, l.Head())
	assert.Equal(t, big.NewInt(100), balanceOf(t, l, alice))

	got, err := l.Receipt(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestExecuteReverted(t *testing.T) {
	l := newLedger(t, newMemDB(t), ledger.NewManualClock(genesisTime), nil)

	r, err := l.Execute(context.Background(), alice, transfer(t, owner, 1))
	require.NoError(t, err)
	assert.True(t, r.Reverted)
	assert.Equal(t, "ds-math-sub-underflow", r.RevertReason)
	assert.Empty(t, r.Events)
	assert.Equal(t, uint32(1), l.Head().Number)
	assert.Equal(t, big.NewInt(1_000), balanceOf(t, l, owner))
}

func TestBlockTimeNeverDecreases(t *testing.T) {
	clock := ledger.NewManualClock(genesisTime + 100)
	l := newLedger(t, newMemDB(t), clock, nil)
	ctx := context.Background()

	r1, err := l.Execute(ctx, owner, transfer(t, alice, 1))
	require.NoError(t, err)

	clock.Set(genesisTime)
	r2, err := l.Execute(ctx, owner, transfer(t, alice, 1))
	require.NoError(t, err)
	assert.Equal(t, r1.BlockTime, r2.BlockTime)
	assert.Equal(t, uint32(2), r2.BlockNumber)
	assert.NotEqual(t, r1.ID, r2.ID)

	clock.Advance(200)
	r3, err := l.Execute(ctx, owner, transfer(t, alice, 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(genesisTime+200), r3.BlockTime)
}

func TestCallDoesNotCommit(t *testing.T) {
	l := newLedger(t, newMemDB(t), ledger.NewManualClock(genesisTime), nil)

	out, err := l.Call(context.Background(), owner, transfer(t, alice, 100))
	require.NoError(t, err)
	assert.True(t, out.Reverted())
	assert.Equal(t, "write protection", out.RevertErr.Reason())
	assert.Equal(t, uint32(0), l.Head().Number)
	assert.Zero(t, balanceOf(t, l, alice).Sign())
}

func TestReceiptPersisted(t *testing.T) {
	db := newMemDB(t)
	l, err := ledger.New(db, defaultGenesis, ledger.NewManualClock(genesisTime), nil)
	require.NoError(t, err)

	r, err := l.Execute(context.Background(), owner, transfer(t, alice, 5))
	require.NoError(t, err)
	l.Close()

	// a fresh ledger has a cold cache
	l = newLedger(t, db, ledger.NewManualClock(genesisTime), nil)
	assert.Equal(t, uint32(1), l.Head().Number)
	got, err := l.Receipt(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, r.Events, got.Events)

	_, err = l.Receipt(emy.Bytes32{1})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestReceiptByNumber(t *testing.T) {
	l := newLedger(t, newMemDB(t), ledger.NewManualClock(genesisTime), nil)
	ctx := context.Background()

	var ids []emy.Bytes32
	for i := 0; i < 3; i++ {
		r, err := l.Execute(ctx, owner, transfer(t, alice, 1))
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	// reverted blocks are indexed too
	r, err := l.Execute(ctx, alice, transfer(t, owner, 1_000))
	require.NoError(t, err)
	require.True(t, r.Reverted)
	ids = append(ids, r.ID)

	for i, id := range ids {
		got, err := l.ReceiptByNumber(uint32(i + 1))
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, uint32(i+1), got.BlockNumber)
	}

	_, err = l.ReceiptByNumber(0)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = l.ReceiptByNumber(5)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestIterateReceipts(t *testing.T) {
	l := newLedger(t, newMemDB(t), ledger.NewManualClock(genesisTime), nil)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := l.Execute(ctx, owner, transfer(t, alice, 1))
		require.NoError(t, err)
	}

	var numbers []uint32
	require.NoError(t, l.IterateReceipts(2, func(r *tx.Receipt) error {
		numbers = append(numbers, r.BlockNumber)
		return nil
	}))
	assert.Equal(t, []uint32{2, 3, 4}, numbers)

	numbers = nil
	require.NoError(t, l.IterateReceipts(0, func(r *tx.Receipt) error {
		numbers = append(numbers, r.BlockNumber)
		return nil
	}))
	assert.Equal(t, []uint32{1, 2, 3, 4}, numbers)

	stop := errors.New("stop")
	n := 0
	err := l.IterateReceipts(1, func(*tx.Receipt) error {
		n++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)

	require.NoError(t, l.IterateReceipts(5, func(*tx.Receipt) error {
		t.Fatal("no block after head")
		return nil
	}))
}

func TestSinkAndSubscribe(t *testing.T) {
	events, err := eventdb.NewMem()
	require.NoError(t, err)
	defer events.Close()

	l := newLedger(t, newMemDB(t), ledger.NewManualClock(genesisTime), events)
	ch := make(chan *tx.Receipt, 4)
	sub := l.Subscribe(ch)
	defer sub.Unsubscribe()

	ctx := context.Background()
	r1, err := l.Execute(ctx, owner, transfer(t, alice, 1))
	require.NoError(t, err)
	r2, err := l.Execute(ctx, alice, transfer(t, owner, 1000))
	require.NoError(t, err)
	require.True(t, r2.Reverted)

	for _, want := range []*tx.Receipt{r1, r2} {
		select {
		case got := <-ch:
			assert.Equal(t, want.ID, got.ID)
		case <-time.After(time.Second):
			t.Fatal("receipt not delivered")
		}
	}

	indexed, err := events.Filter(ctx, nil)
	require.NoError(t, err)
	require.Len(t, indexed, 1)
	assert.Equal(t, r1.ID, indexed[0].TxID)
	assert.Equal(t, tokenAddr, indexed[0].Address)
}

func TestClosed(t *testing.T) {
	l, err := ledger.New(newMemDB(t), defaultGenesis, ledger.SystemClock{}, nil)
	require.NoError(t, err)

	ch := make(chan *tx.Receipt)
	sub := l.Subscribe(ch)
	l.Close()

	select {
	case <-sub.Err():
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
	_, err = l.Execute(context.Background(), owner, transfer(t, alice, 1))
	assert.ErrorIs(t, err, ledger.ErrClosed)
	_, err = l.Call(context.Background(), owner, transfer(t, alice, 1))
	assert.ErrorIs(t, err, ledger.ErrClosed)
}

func TestCanceledContext(t *testing.T) {
	l := newLedger(t, newMemDB(t), ledger.SystemClock{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Execute(ctx, owner, transfer(t, alice, 1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint32(0), l.Head().Number)
}

func TestManualClock(t *testing.T) {
	c := ledger.NewManualClock(10)
	assert.Equal(t, uint64(10), c.Now())
	assert.Equal(t, uint64(15), c.Advance(5))
	c.Set(3)
	assert.Equal(t, uint64(3), c.Now())
	assert.NotZero(t, ledger.SystemClock{}.Now())
}

func TestView(t *testing.T) {
	clock := ledger.NewManualClock(genesisTime + 5)
	l := newLedger(t, newMemDB(t), clock, nil)

	err := l.View(func(st *state.State, head ledger.Head, now uint64) error {
		assert.Equal(t, uint32(0), head.Number)
		assert.Equal(t, uint64(genesisTime+5), now)
		balance, err := builtin.Token.Native(tokenAddr, st).BalanceOf(owner)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(1_000), balance)
		return nil
	})
	require.NoError(t, err)
}
