// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger serializes clause execution into numbered blocks and
// persists state, receipts and the head atomically.
package ledger

import (
	"context"
	"encoding/binary"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/emylabs/emy/cache"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/kv"
	"github.com/emylabs/emy/log"
	"github.com/emylabs/emy/runtime"
	"github.com/emylabs/emy/state"
	"github.com/emylabs/emy/tx"
)

const (
	propBucket    = kv.Bucket("p")
	receiptBucket = kv.Bucket("r")
	numberBucket  = kv.Bucket("n") // block number => tx id

	receiptCacheSize = 2048
)

var (
	logger = log.WithContext("pkg", "ledger")

	headKey      = []byte("head")
	genesisIDKey = []byte("genesis-id")

	// ErrNotFound is returned when a receipt does not exist.
	ErrNotFound = errors.New("not found")
	// ErrGenesisMismatch is returned when the db was initialized by another genesis.
	ErrGenesisMismatch = errors.New("genesis mismatch")
	ErrClosed          = errors.New("ledger closed")
)

// Head is the most recent block.
type Head struct {
	Number uint32 `json:"number"`
	Time   uint64 `json:"timestamp"`
}

// GenesisBuilder initializes the state of block 0.
type GenesisBuilder interface {
	ID() emy.Bytes32
	Timestamp() uint64
	Build(st *state.State) error
}

// EventSink indexes receipts once they are committed.
type EventSink interface {
	Insert(ctx context.Context, r *tx.Receipt) error
}

// Ledger executes clauses one at a time. Each execution is a block of its
// own, numbered after the head and stamped by the clock.
//
// It's thread-safe.
type Ledger struct {
	db        kv.Store
	props     kv.Getter
	clock     Clock
	sink      EventSink
	genesisID emy.Bytes32

	mu       sync.RWMutex
	head     atomic.Pointer[Head]
	closed   bool
	receipts *cache.LRU[emy.Bytes32, *tx.Receipt]

	feed  event.Feed
	scope event.SubscriptionScope
}

// New opens the ledger stored in db, building genesis if the db is empty.
// sink may be nil.
func New(db kv.Store, genesis GenesisBuilder, clock Clock, sink EventSink) (*Ledger, error) {
	receipts, err := cache.NewLRU[emy.Bytes32, *tx.Receipt](receiptCacheSize)
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		db:        db,
		props:     propBucket.NewGetter(db),
		clock:     clock,
		sink:      sink,
		genesisID: genesis.ID(),
		receipts:  receipts,
	}

	val, err := l.props.Get(genesisIDKey)
	if err != nil {
		if !l.props.IsNotFound(err) {
			return nil, errors.Wrap(err, "get genesis id")
		}
		if err := l.initGenesis(genesis); err != nil {
			return nil, err
		}
		return l, nil
	}
	if emy.BytesToBytes32(val) != l.genesisID {
		return nil, ErrGenesisMismatch
	}

	data, err := l.props.Get(headKey)
	if err != nil {
		return nil, errors.Wrap(err, "get head")
	}
	var head Head
	if err := rlp.DecodeBytes(data, &head); err != nil {
		return nil, errors.Wrap(err, "decode head")
	}
	l.head.Store(&head)
	metricHeadNumber().Set(int64(head.Number))
	logger.Info("ledger opened", "genesis", l.genesisID.AbbrevString(), "head", head.Number)
	return l, nil
}

func (l *Ledger) initGenesis(genesis GenesisBuilder) error {
	st := state.New(l.db)
	if err := genesis.Build(st); err != nil {
		return errors.Wrap(err, "build genesis")
	}
	head := &Head{Number: 0, Time: genesis.Timestamp()}

	batch := l.db.NewBatch()
	if err := st.Stage().Commit(batch); err != nil {
		return err
	}
	props := propBucket.NewPutter(batch)
	if err := props.Put(genesisIDKey, l.genesisID.Bytes()); err != nil {
		return err
	}
	if err := putHead(props, head); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "write genesis")
	}
	l.head.Store(head)
	metricHeadNumber().Set(0)
	logger.Info("genesis initialized", "id", l.genesisID.AbbrevString(), "time", head.Time)
	return nil
}

// GenesisID returns the id of the genesis the ledger was built from.
func (l *Ledger) GenesisID() emy.Bytes32 {
	return l.genesisID
}

// Head returns the current head.
func (l *Ledger) Head() Head {
	return *l.head.Load()
}

// nextBlock returns the number and time the next block would get.
// Block time never decreases.
func (l *Ledger) nextBlock() (uint32, uint64) {
	head := l.head.Load()
	now := l.clock.Now()
	if now < head.Time {
		now = head.Time
	}
	return head.Number + 1, now
}

// Execute runs the clause on behalf of origin in a new block and commits
// it. A reverted clause still produces a block and a receipt.
func (l *Ledger) Execute(ctx context.Context, origin emy.Address, clause *tx.Clause) (*tx.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	startTime := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}

	number, blockTime := l.nextBlock()
	id := tx.ComputeID(number, origin, clause)

	st := state.New(l.db)
	rt := runtime.New(st, number, blockTime)
	output, err := rt.ExecuteClause(clause, origin, id)
	if err != nil {
		return nil, errors.Wrap(err, "execute clause")
	}

	receipt := &tx.Receipt{
		ID:          id,
		BlockNumber: number,
		BlockTime:   blockTime,
		Origin:      origin,
		To:          clause.To(),
		Reverted:    output.Reverted(),
		Output:      output.Data,
		Events:      output.Events,
	}
	if output.Reverted() {
		receipt.RevertReason = output.RevertErr.Reason()
	}

	head := &Head{Number: number, Time: blockTime}
	if err := l.commit(st, receipt, head); err != nil {
		return nil, err
	}
	l.head.Store(head)
	l.receipts.Add(id, receipt)

	contract := output.Contract
	if contract == "" {
		contract = "none"
	}
	metricHeadNumber().Set(int64(number))
	metricExecutedCount().AddWithLabel(1, map[string]string{
		"contract": contract,
		"method":   output.Method,
		"reverted": strconv.FormatBool(receipt.Reverted),
	})
	metricExecutionDuration().ObserveWithLabels(time.Since(startTime).Milliseconds(), map[string]string{"contract": contract})

	logger.Debug("executed",
		"number", number,
		"tx", id.AbbrevString(),
		"origin", origin,
		"to", receipt.To,
		"method", output.Method,
		"reverted", receipt.Reverted,
		"events", len(receipt.Events),
	)

	// the ledger is the source of truth; a sink failure is logged and the
	// receipt stays retrievable
	if l.sink != nil {
		if err := l.sink.Insert(ctx, receipt); err != nil {
			logger.Error("failed to index events", "tx", id.AbbrevString(), "err", err)
		}
	}
	l.feed.Send(receipt)
	return receipt, nil
}

func (l *Ledger) commit(st *state.State, receipt *tx.Receipt, head *Head) error {
	batch := l.db.NewBatch()
	if err := st.Stage().Commit(batch); err != nil {
		return err
	}
	data, err := tx.EncodeReceipt(receipt)
	if err != nil {
		return err
	}
	if err := receiptBucket.NewPutter(batch).Put(receipt.ID.Bytes(), data); err != nil {
		return errors.Wrap(err, "put receipt")
	}
	if err := numberBucket.NewPutter(batch).Put(numberKey(receipt.BlockNumber), receipt.ID.Bytes()); err != nil {
		return errors.Wrap(err, "put receipt id")
	}
	if err := putHead(propBucket.NewPutter(batch), head); err != nil {
		return err
	}
	return errors.Wrap(batch.Write(), "write batch")
}

// Call runs the clause against a throwaway read-only view as if it were
// included in the next block. Nothing is committed.
func (l *Ledger) Call(ctx context.Context, caller emy.Address, clause *tx.Clause) (*runtime.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}

	number, blockTime := l.nextBlock()
	rt := runtime.New(state.NewReadOnly(l.db), number, blockTime)
	output, err := rt.ExecuteClause(clause, caller, emy.Bytes32{})
	if err != nil {
		return nil, errors.Wrap(err, "call clause")
	}
	contract := output.Contract
	if contract == "" {
		contract = "none"
	}
	metricCallCount().AddWithLabel(1, map[string]string{"contract": contract, "reverted": strconv.FormatBool(output.Reverted())})
	return output, nil
}

// View runs fn against a read-only state of the head. now is the time the
// next block would get. The state must not be used after fn returns.
func (l *Ledger) View(fn func(st *state.State, head Head, now uint64) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	_, now := l.nextBlock()
	return fn(state.NewReadOnly(l.db), *l.head.Load(), now)
}

// Receipt returns the receipt of the given tx id.
func (l *Ledger) Receipt(id emy.Bytes32) (*tx.Receipt, error) {
	return l.receipts.GetOrLoad(id, func(id emy.Bytes32) (*tx.Receipt, error) {
		getter := receiptBucket.NewGetter(l.db)
		data, err := getter.Get(id.Bytes())
		if err != nil {
			if getter.IsNotFound(err) {
				return nil, ErrNotFound
			}
			return nil, errors.Wrap(err, "get receipt")
		}
		return tx.DecodeReceipt(data)
	})
}

// ReceiptByNumber returns the receipt of block n. The genesis block has none.
func (l *Ledger) ReceiptByNumber(n uint32) (*tx.Receipt, error) {
	getter := numberBucket.NewGetter(l.db)
	data, err := getter.Get(numberKey(n))
	if err != nil {
		if getter.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get receipt id")
	}
	return l.Receipt(emy.BytesToBytes32(data))
}

// IterateReceipts calls fn with the receipts of blocks from number on, in
// block order. Blocks committed while iterating are not visited. A non-nil
// error from fn stops the iteration and is returned.
func (l *Ledger) IterateReceipts(from uint32, fn func(*tx.Receipt) error) error {
	it := numberBucket.Iterate(l.db, numberKey(from))
	defer it.Release()

	for it.Next() {
		r, err := l.Receipt(emy.BytesToBytes32(it.Value()))
		if err != nil {
			return errors.WithMessagef(err, "receipt #%v", binary.BigEndian.Uint32(it.Key()))
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return errors.Wrap(it.Error(), "iterate receipts")
}

// Subscribe delivers every committed receipt, reverted ones included, in
// ledger order. Execution waits for subscribers to receive, so the channel
// should be drained promptly.
func (l *Ledger) Subscribe(ch chan<- *tx.Receipt) event.Subscription {
	return l.scope.Track(l.feed.Subscribe(ch))
}

// Close stops accepting calls and ends all subscriptions. The underlying
// stores are owned by the caller.
func (l *Ledger) Close() {
	l.scope.Close()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	logger.Debug("closed")
}

func numberKey(n uint32) []byte {
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], n)
	return key[:]
}

func putHead(w kv.Putter, head *Head) error {
	data, err := rlp.EncodeToBytes(head)
	if err != nil {
		return errors.Wrap(err, "encode head")
	}
	return errors.Wrap(w.Put(headKey, data), "put head")
}
