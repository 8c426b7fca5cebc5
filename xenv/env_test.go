// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emylabs/emy/abi"
	"github.com/emylabs/emy/builtin/reverts"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/tx"
)

const testABI = `[
	{"type":"function","name":"double","stateMutability":"pure","inputs":[{"name":"v","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"Doubled","anonymous":false,"inputs":[{"name":"who","type":"address","indexed":true},{"name":"v","type":"uint256","indexed":false}]}
]`

type recordingHost struct {
	events tx.Events
	calls  []emy.Address
}

func (h *recordingHost) Call(caller, to emy.Address, data []byte) ([]byte, error) {
	h.calls = append(h.calls, caller, to)
	return data, nil
}

func (h *recordingHost) AddEvent(ev *tx.Event) {
	h.events = append(h.events, ev)
}

func newEnv(t *testing.T, input []byte) (*Environment, *abi.ABI, *recordingHost) {
	a, err := abi.New([]byte(testABI))
	require.NoError(t, err)
	m, _ := a.MethodByName("double")
	host := &recordingHost{}
	env := New(m, nil, &BlockContext{Number: 1, Time: 10}, &TransactionContext{}, host,
		emy.BytesToAddress([]byte("caller")), emy.BytesToAddress([]byte("contract")), input)
	return env, a, host
}

func TestRun(t *testing.T) {
	a, err := abi.New([]byte(testABI))
	require.NoError(t, err)
	m, _ := a.MethodByName("double")
	input, err := m.EncodeInput(big.NewInt(21))
	require.NoError(t, err)

	env, a, host := newEnv(t, input)
	out, err := env.Run(func(env *Environment) ([]any, error) {
		var v *big.Int
		env.ParseArgs(&v)
		ev, _ := a.EventByName("Doubled")
		env.Log(ev, []emy.Bytes32{emy.BytesToBytes32(env.Caller().Bytes())}, v)
		return []any{new(big.Int).Mul(v, big.NewInt(2))}, nil
	})
	require.NoError(t, err)

	var result *big.Int
	require.NoError(t, m.DecodeOutput(out, &result))
	assert.Equal(t, big.NewInt(42), result)

	require.Len(t, host.events, 1)
	assert.Equal(t, env.To(), host.events[0].Address)
	assert.Len(t, host.events[0].Topics, 2)
}

func TestRunErrors(t *testing.T) {
	env, _, _ := newEnv(t, []byte{1, 2})

	_, err := env.Run(func(env *Environment) ([]any, error) {
		var v *big.Int
		env.ParseArgs(&v)
		return nil, nil
	})
	assert.Equal(t, ErrInvalidInput, err)

	_, err = env.Run(func(env *Environment) ([]any, error) {
		return nil, reverts.New("Only owner allowed")
	})
	assert.EqualError(t, err, "Only owner allowed")

	_, err = env.Run(func(env *Environment) ([]any, error) {
		panic(errors.New("storage broken"))
	})
	assert.EqualError(t, err, "storage broken")

	assert.Panics(t, func() {
		env.Run(func(env *Environment) ([]any, error) {
			panic("not an error")
		})
	})
}

func TestCall(t *testing.T) {
	env, _, host := newEnv(t, nil)
	target := emy.Address(common.HexToAddress("0x01"))

	out, err := env.Call(target, []byte{9})
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, out)
	assert.Equal(t, []emy.Address{env.To(), target}, host.calls)
}
