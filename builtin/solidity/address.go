// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import "github.com/emylabs/emy/emy"

// Address is a wrapper for storage and retrieval of an address.
type Address struct {
	context *Context
	pos     emy.Bytes32
}

func NewAddress(context *Context, pos emy.Bytes32) *Address {
	return &Address{context: context, pos: pos}
}

func (a *Address) Get() (emy.Address, error) {
	storage, err := a.context.state.GetStorage(a.context.address, a.pos)
	if err != nil {
		return emy.Address{}, err
	}
	return emy.BytesToAddress(storage.Bytes()), nil
}

func (a *Address) Set(addr emy.Address) {
	a.context.state.SetStorage(a.context.address, a.pos, emy.BytesToBytes32(addr.Bytes()))
}
