// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/emylabs/emy/abi"
	"github.com/emylabs/emy/builtin/reverts"
	"github.com/emylabs/emy/builtin/dao"
	"github.com/emylabs/emy/builtin/staking"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/xenv"
)

var (
	_ staking.Tokens = envCalls{}
	_ dao.Calls      = envCalls{}
)

// ErrNonContract is raised by typed token calls to an account without code.
var ErrNonContract = reverts.New("call to non-contract")

// envCalls reaches other contracts through nested calls made by the
// running contract.
type envCalls struct {
	env *xenv.Environment
}

func (c envCalls) call(to emy.Address, method *abi.Method, args ...any) ([]byte, error) {
	data, err := method.EncodeInput(args...)
	if err != nil {
		return nil, errors.WithMessage(err, "encode "+method.Name())
	}
	return c.env.Call(to, data)
}

// callToken calls a token method. Unlike an arbitrary call, the token must
// have code, otherwise the transfer would silently do nothing.
func (c envCalls) callToken(token emy.Address, method *abi.Method, args ...any) error {
	code, err := c.env.State().GetCode(token)
	if err != nil {
		return err
	}
	if len(code) == 0 {
		return ErrNonContract
	}
	_, err = c.call(token, method, args...)
	return err
}

func (c envCalls) TransferFrom(token, from, to emy.Address, amount *big.Int) error {
	return c.callToken(token, Token.MustMethod("transferFrom"), from, to, amount)
}

func (c envCalls) Transfer(token, to emy.Address, amount *big.Int) error {
	return c.callToken(token, Token.MustMethod("transfer"), to, amount)
}

func (c envCalls) Mint(token, to emy.Address, amount *big.Int) error {
	return c.callToken(token, Token.MustMethod("mint"), to, amount)
}

func (c envCalls) BalanceOf(stakingAddr, account emy.Address) (*big.Int, error) {
	method := Staking.MustMethod("balanceOf")
	out, err := c.call(stakingAddr, method, account)
	if err != nil {
		return nil, err
	}
	// an address without code answers with no data
	if len(out) == 0 {
		return new(big.Int), nil
	}
	var balance *big.Int
	if err := method.DecodeOutput(out, &balance); err != nil {
		return nil, xenv.ErrInvalidInput
	}
	return balance, nil
}

func (c envCalls) Call(target emy.Address, data []byte) error {
	_, err := c.env.Call(target, data)
	return err
}
