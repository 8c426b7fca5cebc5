// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"fmt"

	"github.com/emylabs/emy/abi"
	"github.com/emylabs/emy/builtin/gen"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/state"
)

// contract is a kind of native contract. Every deployment of a kind stores
// the kind name as its code and shares the ABI and native methods.
type contract struct {
	name string
	ABI  *abi.ABI
}

func mustLoadContract(name string) *contract {
	abi, err := abi.New(gen.MustABI(name))
	if err != nil {
		panic(fmt.Errorf("load ABI for '%s': %w", name, err))
	}
	return &contract{name, abi}
}

// Name returns the contract kind.
func (c *contract) Name() string {
	return c.name
}

// Code returns the code stored at every deployment of this kind.
func (c *contract) Code() []byte {
	return []byte(c.name)
}

// Deploy marks addr as a deployment of this kind.
func (c *contract) Deploy(state *state.State, addr emy.Address) {
	state.SetCode(addr, c.Code())
}

// Is reports whether the contract at addr is of this kind.
func (c *contract) Is(state *state.State, addr emy.Address) (bool, error) {
	code, err := state.GetCode(addr)
	if err != nil {
		return false, err
	}
	return string(code) == c.name, nil
}

// MustMethod returns the named method, panic if absent.
func (c *contract) MustMethod(name string) *abi.Method {
	m, ok := c.ABI.MethodByName(name)
	if !ok {
		panic(fmt.Errorf("method '%s' not found in '%s'", name, c.name))
	}
	return m
}

// MustEvent returns the named event, panic if absent.
func (c *contract) MustEvent(name string) *abi.Event {
	ev, ok := c.ABI.EventByName(name)
	if !ok {
		panic(fmt.Errorf("event '%s' not found in '%s'", name, c.name))
	}
	return ev
}
