// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package xenv provides the environment native contract methods execute in.
package xenv

import (
	"github.com/pkg/errors"

	"github.com/emylabs/emy/abi"
	"github.com/emylabs/emy/builtin/reverts"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/state"
	"github.com/emylabs/emy/tx"
)

// BlockContext block context.
type BlockContext struct {
	Number uint32
	Time   uint64
}

// TransactionContext transaction context.
type TransactionContext struct {
	ID     emy.Bytes32
	Origin emy.Address
}

// Host executes nested calls and collects events on behalf of the running frame.
type Host interface {
	Call(caller, to emy.Address, data []byte) ([]byte, error)
	AddEvent(event *tx.Event)
}

// ErrInvalidInput is raised when call data does not match the method inputs.
var ErrInvalidInput = reverts.New("invalid call data")

// Environment an env to execute native method.
type Environment struct {
	abi      *abi.Method
	state    *state.State
	blockCtx *BlockContext
	txCtx    *TransactionContext
	host     Host
	caller   emy.Address
	to       emy.Address
	input    []byte
}

// New create a new env.
func New(
	abi *abi.Method,
	state *state.State,
	blockCtx *BlockContext,
	txCtx *TransactionContext,
	host Host,
	caller emy.Address,
	to emy.Address,
	input []byte,
) *Environment {
	return &Environment{
		abi:      abi,
		state:    state,
		blockCtx: blockCtx,
		txCtx:    txCtx,
		host:     host,
		caller:   caller,
		to:       to,
		input:    input,
	}
}

func (env *Environment) State() *state.State                     { return env.state }
func (env *Environment) TransactionContext() *TransactionContext { return env.txCtx }
func (env *Environment) BlockContext() *BlockContext             { return env.blockCtx }
func (env *Environment) Caller() emy.Address                     { return env.caller }
func (env *Environment) To() emy.Address                         { return env.to }
func (env *Environment) Method() *abi.Method                     { return env.abi }

// ParseArgs decodes the call data into val. Malformed input aborts the call.
func (env *Environment) ParseArgs(val any) {
	if err := env.abi.DecodeInput(env.input, val); err != nil {
		panic(ErrInvalidInput)
	}
}

// Log emits an event of the executing contract.
func (env *Environment) Log(ev *abi.Event, topics []emy.Bytes32, args ...any) {
	data, err := ev.Encode(args...)
	if err != nil {
		panic(errors.WithMessage(err, "encode native event"))
	}

	all := make([]emy.Bytes32, 0, len(topics)+1)
	all = append(all, ev.ID())
	all = append(all, topics...)
	env.host.AddEvent(&tx.Event{
		Address: env.to,
		Topics:  all,
		Data:    data,
	})
}

// Call calls another contract with this contract as the caller.
func (env *Environment) Call(to emy.Address, data []byte) ([]byte, error) {
	return env.host.Call(env.to, to, data)
}

// Run runs proc and encodes its output.
// Reverts and other errors raised by proc, returned or panicked, are returned as err.
func (env *Environment) Run(proc func(env *Environment) ([]any, error)) (data []byte, err error) {
	defer func() {
		if e := recover(); e != nil {
			if rec, ok := e.(error); ok {
				err = rec
			} else {
				panic(e)
			}
		}
	}()

	output, err := proc(env)
	if err != nil {
		return nil, err
	}
	data, err = env.abi.EncodeOutput(output...)
	if err != nil {
		return nil, errors.WithMessage(err, "encode native output")
	}
	return data, nil
}
