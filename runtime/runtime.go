// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package runtime executes clauses against native contracts. Every call
// frame, nested ones included, runs in a state checkpoint that is reverted
// together with the frame's events when the frame fails.
package runtime

import (
	"github.com/pkg/errors"

	"github.com/emylabs/emy/abi"
	"github.com/emylabs/emy/builtin"
	"github.com/emylabs/emy/builtin/reverts"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/state"
	"github.com/emylabs/emy/tx"
	"github.com/emylabs/emy/xenv"
)

// MaxCallDepth limits the nesting of contract calls.
const MaxCallDepth = 64

var (
	ErrUnknownMethod  = reverts.New("unknown method")
	ErrCallDepth      = reverts.New("max call depth exceeded")
	ErrWriteProtected = reverts.New("write protection")
)

// Output is the result of a clause execution.
type Output struct {
	// Contract is the kind of the called contract, empty if it has no code.
	Contract string
	// Method is the name of the called method, empty if unresolved.
	Method string
	Data   []byte
	Events tx.Events
	// RevertErr is set when the call failed; its effects were discarded.
	RevertErr *reverts.ErrRevert
}

// Reverted returns whether the call failed.
func (o *Output) Reverted() bool {
	return o.RevertErr != nil
}

// Runtime executes clauses in the context of one block.
type Runtime struct {
	state    *state.State
	blockCtx *xenv.BlockContext
}

// New create a Runtime object.
func New(state *state.State, blockNumber uint32, blockTime uint64) *Runtime {
	return &Runtime{
		state: state,
		blockCtx: &xenv.BlockContext{
			Number: blockNumber,
			Time:   blockTime,
		},
	}
}

func (rt *Runtime) State() *state.State { return rt.state }
func (rt *Runtime) BlockNumber() uint32 { return rt.blockCtx.Number }
func (rt *Runtime) BlockTime() uint64   { return rt.blockCtx.Time }

// ExecuteClause calls clause.To() on behalf of origin. A revert is
// reported in the output; err is returned only for failures of the
// underlying storage, in which case the state must be discarded.
func (rt *Runtime) ExecuteClause(clause *tx.Clause, origin emy.Address, txID emy.Bytes32) (*Output, error) {
	output := &Output{}
	f := &frame{
		rt:     rt,
		txCtx:  &xenv.TransactionContext{ID: txID, Origin: origin},
		events: &output.Events,
		top:    output,
	}

	data, err := f.Call(origin, clause.To(), clause.Data())
	if err != nil {
		rev, ok := asRevert(err)
		if !ok {
			return nil, err
		}
		output.RevertErr = rev
		output.Events = nil
		return output, nil
	}
	output.Data = data
	return output, nil
}

func asRevert(err error) (*reverts.ErrRevert, bool) {
	var rev *reverts.ErrRevert
	if errors.As(err, &rev) {
		return rev, true
	}
	if errors.Is(err, state.ErrReadOnly) {
		return ErrWriteProtected, true
	}
	return nil, false
}

// frame is a call frame. It serves as the host of the methods it runs,
// so nested calls open frames one level deeper.
type frame struct {
	rt     *Runtime
	txCtx  *xenv.TransactionContext
	events *tx.Events
	depth  int
	// top receives the resolved contract and method of the outermost call.
	top *Output
}

// Call implements xenv.Host.
func (f *frame) Call(caller, to emy.Address, data []byte) ([]byte, error) {
	if f.depth >= MaxCallDepth {
		return nil, ErrCallDepth
	}
	st := f.rt.state
	code, err := st.GetCode(to)
	if err != nil {
		return nil, err
	}
	// calling an account without code has no effect
	if len(code) == 0 {
		return nil, nil
	}
	kind := string(code)
	if f.top != nil {
		f.top.Contract = kind
	}

	id, err := abi.ExtractMethodID(data)
	if err != nil {
		return nil, ErrUnknownMethod
	}
	method, ok := builtin.FindNativeMethod(kind, id)
	if !ok {
		return nil, ErrUnknownMethod
	}
	if f.top != nil {
		f.top.Method = method.ABI().Name()
	}

	checkpoint := st.NewCheckpoint()
	nEvents := len(*f.events)
	child := &frame{
		rt:     f.rt,
		txCtx:  f.txCtx,
		events: f.events,
		depth:  f.depth + 1,
	}
	env := xenv.New(method.ABI(), st, f.rt.blockCtx, f.txCtx, child, caller, to, data)
	out, err := method.Run(env)
	if err != nil {
		st.RevertTo(checkpoint)
		*f.events = (*f.events)[:nEvents]
		return nil, err
	}
	return out, nil
}

// AddEvent implements xenv.Host.
func (f *frame) AddEvent(ev *tx.Event) {
	*f.events = append(*f.events, ev)
}
