// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package builtin binds the native contracts to their ABI and registers
// the Go implementation of every ABI method.
package builtin

import (
	"github.com/emylabs/emy/builtin/dao"
	"github.com/emylabs/emy/builtin/staking"
	"github.com/emylabs/emy/builtin/token"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/state"
)

// Builtin contracts binding.
var (
	Token   = &tokenContract{mustLoadContract("Token")}
	Staking = &stakingContract{mustLoadContract("Staking")}
	Dao     = &daoContract{mustLoadContract("Dao")}
)

type (
	tokenContract   struct{ *contract }
	stakingContract struct{ *contract }
	daoContract     struct{ *contract }
)

func (t *tokenContract) Native(addr emy.Address, state *state.State) *token.Token {
	return token.New(addr, state)
}

func (s *stakingContract) Native(addr emy.Address, state *state.State, tokens staking.Tokens) *staking.Staking {
	return staking.New(addr, state, tokens)
}

func (d *daoContract) Native(addr emy.Address, state *state.State, calls dao.Calls) *dao.Dao {
	return dao.New(addr, state, calls)
}
