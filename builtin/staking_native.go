// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emylabs/emy/builtin/staking"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/xenv"
)

func toBytes32s(proof [][32]byte) []emy.Bytes32 {
	out := make([]emy.Bytes32, len(proof))
	for i, p := range proof {
		out[i] = emy.Bytes32(p)
	}
	return out
}

func init() {
	var (
		stakedEvent       = Staking.MustEvent("Staked")
		unstakedEvent     = Staking.MustEvent("Unstaked")
		claimedEvent      = Staking.MustEvent("Claimed")
		adminChangedEvent = Staking.MustEvent("AdminChanged")
		poolChangedEvent  = Staking.MustEvent("PoolChanged")
		lpTokenSetEvent   = Staking.MustEvent("LPTokenSet")
		rootChangedEvent  = Staking.MustEvent("RootChanged")
		daoSetEvent       = Staking.MustEvent("DaoSet")
	)

	native := func(env *xenv.Environment) *staking.Staking {
		return Staking.Native(env.To(), env.State(), envCalls{env})
	}
	logClaimed := func(env *xenv.Environment, amount *big.Int) {
		if amount != nil {
			env.Log(claimedEvent, []emy.Bytes32{addressTopic(env.Caller())}, amount)
		}
	}
	now := func(env *xenv.Environment) uint64 {
		return env.BlockContext().Time
	}

	register(Staking.contract, []nativeDefine{
		{"stake", func(env *xenv.Environment) ([]any, error) {
			var args struct {
				Amount *big.Int
				Proof  [][32]byte
			}
			env.ParseArgs(&args)
			if err := native(env).Stake(env.Caller(), args.Amount, toBytes32s(args.Proof), now(env)); err != nil {
				return nil, err
			}
			env.Log(stakedEvent, []emy.Bytes32{addressTopic(env.Caller())}, args.Amount)
			return nil, nil
		}},
		{"unstake", func(env *xenv.Environment) ([]any, error) {
			var amount *big.Int
			env.ParseArgs(&amount)
			minted, err := native(env).Unstake(env.Caller(), amount, now(env))
			if err != nil {
				return nil, err
			}
			logClaimed(env, minted)
			env.Log(unstakedEvent, []emy.Bytes32{addressTopic(env.Caller())}, amount)
			return nil, nil
		}},
		{"claim", func(env *xenv.Environment) ([]any, error) {
			minted, err := native(env).Claim(env.Caller(), now(env))
			if err != nil {
				return nil, err
			}
			logClaimed(env, minted)
			return nil, nil
		}},
		{"claimable", func(env *xenv.Environment) ([]any, error) {
			amount, err := native(env).Claimable(env.Caller(), now(env))
			return []any{amount}, err
		}},
		{"isAllowed", func(env *xenv.Environment) ([]any, error) {
			var args struct {
				Account common.Address
				Proof   [][32]byte
			}
			env.ParseArgs(&args)
			ok, err := native(env).IsAllowed(emy.Address(args.Account), toBytes32s(args.Proof))
			return []any{ok}, err
		}},
		{"balanceOf", func(env *xenv.Environment) ([]any, error) {
			var account common.Address
			env.ParseArgs(&account)
			balance, err := native(env).BalanceOf(emy.Address(account))
			return []any{balance}, err
		}},
		{"allStaked", func(env *xenv.Environment) ([]any, error) {
			all, err := native(env).AllStaked()
			return []any{all}, err
		}},
		{"accountOf", func(env *xenv.Environment) ([]any, error) {
			var account common.Address
			env.ParseArgs(&account)
			acc, err := native(env).AccountOf(emy.Address(account))
			if err != nil {
				return nil, err
			}
			return []any{acc.Balance, acc.LastStakeTime, acc.LastAccrualTime}, nil
		}},
		{"pool", func(env *xenv.Environment) ([]any, error) {
			pool, err := native(env).Pool()
			return []any{pool}, err
		}},
		{"lpToken", func(env *xenv.Environment) ([]any, error) {
			addr, err := native(env).LPToken()
			return []any{addr}, err
		}},
		{"rewardToken", func(env *xenv.Environment) ([]any, error) {
			addr, err := native(env).RewardToken()
			return []any{addr}, err
		}},
		{"coolDown", func(env *xenv.Environment) ([]any, error) {
			v, err := native(env).CoolDown()
			return []any{v}, err
		}},
		{"freeze", func(env *xenv.Environment) ([]any, error) {
			v, err := native(env).Freeze()
			return []any{v}, err
		}},
		{"root", func(env *xenv.Environment) ([]any, error) {
			root, err := native(env).Root()
			return []any{root}, err
		}},
		{"owner", func(env *xenv.Environment) ([]any, error) {
			addr, err := native(env).Owner()
			return []any{addr}, err
		}},
		{"admin", func(env *xenv.Environment) ([]any, error) {
			addr, err := native(env).Admin()
			return []any{addr}, err
		}},
		{"dao", func(env *xenv.Environment) ([]any, error) {
			addr, err := native(env).Dao()
			return []any{addr}, err
		}},
		{"setAdmin", func(env *xenv.Environment) ([]any, error) {
			var admin common.Address
			env.ParseArgs(&admin)
			if err := native(env).SetAdmin(env.Caller(), emy.Address(admin)); err != nil {
				return nil, err
			}
			env.Log(adminChangedEvent, []emy.Bytes32{addressTopic(emy.Address(admin))})
			return nil, nil
		}},
		{"setPool", func(env *xenv.Environment) ([]any, error) {
			var pool *big.Int
			env.ParseArgs(&pool)
			if err := native(env).SetPool(env.Caller(), pool); err != nil {
				return nil, err
			}
			env.Log(poolChangedEvent, nil, pool)
			return nil, nil
		}},
		{"setLPToken", func(env *xenv.Environment) ([]any, error) {
			var token common.Address
			env.ParseArgs(&token)
			if err := native(env).SetLPToken(env.Caller(), emy.Address(token)); err != nil {
				return nil, err
			}
			env.Log(lpTokenSetEvent, []emy.Bytes32{addressTopic(emy.Address(token))})
			return nil, nil
		}},
		{"setRoot", func(env *xenv.Environment) ([]any, error) {
			var root common.Hash
			env.ParseArgs(&root)
			if err := native(env).SetRoot(env.Caller(), emy.Bytes32(root)); err != nil {
				return nil, err
			}
			env.Log(rootChangedEvent, nil, root)
			return nil, nil
		}},
		{"setDao", func(env *xenv.Environment) ([]any, error) {
			var dao common.Address
			env.ParseArgs(&dao)
			if err := native(env).SetDao(env.Caller(), emy.Address(dao)); err != nil {
				return nil, err
			}
			env.Log(daoSetEvent, []emy.Bytes32{addressTopic(emy.Address(dao))})
			return nil, nil
		}},
	})
}
