// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emylabs/emy/builtin/token"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/xenv"
)

func init() {
	var (
		transferEvent  = Token.MustEvent("Transfer")
		approvalEvent  = Token.MustEvent("Approval")
		minterSetEvent = Token.MustEvent("MinterSet")
	)

	native := func(env *xenv.Environment) *token.Token {
		return Token.Native(env.To(), env.State())
	}
	logTransfer := func(env *xenv.Environment, from, to emy.Address, value *big.Int) {
		env.Log(transferEvent, []emy.Bytes32{addressTopic(from), addressTopic(to)}, value)
	}

	register(Token.contract, []nativeDefine{
		{"name", func(env *xenv.Environment) ([]any, error) {
			name, err := native(env).Name()
			return []any{name}, err
		}},
		{"symbol", func(env *xenv.Environment) ([]any, error) {
			symbol, err := native(env).Symbol()
			return []any{symbol}, err
		}},
		{"decimals", func(env *xenv.Environment) ([]any, error) {
			decimals, err := native(env).Decimals()
			return []any{decimals}, err
		}},
		{"totalSupply", func(env *xenv.Environment) ([]any, error) {
			supply, err := native(env).TotalSupply()
			return []any{supply}, err
		}},
		{"balanceOf", func(env *xenv.Environment) ([]any, error) {
			var account common.Address
			env.ParseArgs(&account)
			balance, err := native(env).BalanceOf(emy.Address(account))
			return []any{balance}, err
		}},
		{"allowance", func(env *xenv.Environment) ([]any, error) {
			var args struct {
				Owner   common.Address
				Spender common.Address
			}
			env.ParseArgs(&args)
			allowance, err := native(env).Allowance(emy.Address(args.Owner), emy.Address(args.Spender))
			return []any{allowance}, err
		}},
		{"owner", func(env *xenv.Environment) ([]any, error) {
			owner, err := native(env).Owner()
			return []any{owner}, err
		}},
		{"minter", func(env *xenv.Environment) ([]any, error) {
			minter, err := native(env).Minter()
			return []any{minter}, err
		}},
		{"transfer", func(env *xenv.Environment) ([]any, error) {
			var args struct {
				To     common.Address
				Amount *big.Int
			}
			env.ParseArgs(&args)
			if err := native(env).Transfer(env.Caller(), emy.Address(args.To), args.Amount); err != nil {
				return nil, err
			}
			logTransfer(env, env.Caller(), emy.Address(args.To), args.Amount)
			return []any{true}, nil
		}},
		{"approve", func(env *xenv.Environment) ([]any, error) {
			var args struct {
				Spender common.Address
				Amount  *big.Int
			}
			env.ParseArgs(&args)
			if err := native(env).Approve(env.Caller(), emy.Address(args.Spender), args.Amount); err != nil {
				return nil, err
			}
			env.Log(approvalEvent, []emy.Bytes32{addressTopic(env.Caller()), addressTopic(emy.Address(args.Spender))}, args.Amount)
			return []any{true}, nil
		}},
		{"transferFrom", func(env *xenv.Environment) ([]any, error) {
			var args struct {
				From   common.Address
				To     common.Address
				Amount *big.Int
			}
			env.ParseArgs(&args)
			if err := native(env).TransferFrom(env.Caller(), emy.Address(args.From), emy.Address(args.To), args.Amount); err != nil {
				return nil, err
			}
			logTransfer(env, emy.Address(args.From), emy.Address(args.To), args.Amount)
			return []any{true}, nil
		}},
		{"mint", func(env *xenv.Environment) ([]any, error) {
			var args struct {
				To     common.Address
				Amount *big.Int
			}
			env.ParseArgs(&args)
			if err := native(env).Mint(env.Caller(), emy.Address(args.To), args.Amount); err != nil {
				return nil, err
			}
			logTransfer(env, emy.Address{}, emy.Address(args.To), args.Amount)
			return nil, nil
		}},
		{"burn", func(env *xenv.Environment) ([]any, error) {
			var args struct {
				From   common.Address
				Amount *big.Int
			}
			env.ParseArgs(&args)
			if err := native(env).Burn(env.Caller(), emy.Address(args.From), args.Amount); err != nil {
				return nil, err
			}
			logTransfer(env, emy.Address(args.From), emy.Address{}, args.Amount)
			return nil, nil
		}},
		{"setMinter", func(env *xenv.Environment) ([]any, error) {
			var minter common.Address
			env.ParseArgs(&minter)
			if err := native(env).SetMinter(env.Caller(), emy.Address(minter)); err != nil {
				return nil, err
			}
			env.Log(minterSetEvent, []emy.Bytes32{addressTopic(emy.Address(minter))})
			return nil, nil
		}},
	})
}
