// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package solidity provides typed storage slots for native contracts,
// laid out the way a Solidity contract lays out its state variables.
package solidity

import (
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/state"
)

// Context binds storage helpers to a contract address and a state.
type Context struct {
	address emy.Address
	state   *state.State
}

func NewContext(address emy.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) Address() emy.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}

// Slot returns the position of the nth state variable.
func Slot(n uint64) emy.Bytes32 {
	var pos emy.Bytes32
	for i := 0; i < 8; i++ {
		pos[31-i] = byte(n >> (8 * i))
	}
	return pos
}
