// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emylabs/emy/builtin/dao"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/xenv"
)

// proposalID narrows an ABI id to the stored index. Ids beyond uint64 never exist.
func proposalID(id *big.Int) (uint64, error) {
	if !id.IsUint64() {
		return 0, dao.ErrInvalidIndex
	}
	return id.Uint64(), nil
}

func init() {
	var (
		proposalAddedEvent    = Dao.MustEvent("ProposalAdded")
		votedEvent            = Dao.MustEvent("Voted")
		proposalFinishedEvent = Dao.MustEvent("ProposalFinished")
	)

	native := func(env *xenv.Environment) *dao.Dao {
		return Dao.Native(env.To(), env.State(), envCalls{env})
	}

	register(Dao.contract, []nativeDefine{
		{"addProposal", func(env *xenv.Environment) ([]any, error) {
			var args struct {
				Target      common.Address
				Data        []byte
				Description string
			}
			env.ParseArgs(&args)
			id, p, err := native(env).AddProposal(env.Caller(), emy.Address(args.Target), args.Data, args.Description, env.BlockContext().Time)
			if err != nil {
				return nil, err
			}
			env.Log(proposalAddedEvent, []emy.Bytes32{uintTopic(id), addressTopic(p.Target)}, p.Deadline, p.Description)
			return []any{new(big.Int).SetUint64(id)}, nil
		}},
		{"vote", func(env *xenv.Environment) ([]any, error) {
			var args struct {
				ID      *big.Int `abi:"id"`
				Support bool
			}
			env.ParseArgs(&args)
			id, err := proposalID(args.ID)
			if err != nil {
				return nil, err
			}
			weight, err := native(env).Vote(env.Caller(), id, args.Support, env.BlockContext().Time)
			if err != nil {
				return nil, err
			}
			env.Log(votedEvent, []emy.Bytes32{uintTopic(id), addressTopic(env.Caller())}, args.Support, weight)
			return nil, nil
		}},
		{"finishProposal", func(env *xenv.Environment) ([]any, error) {
			var rawID *big.Int
			env.ParseArgs(&rawID)
			id, err := proposalID(rawID)
			if err != nil {
				return nil, err
			}
			executed, err := native(env).FinishProposal(env.Caller(), id, env.BlockContext().Time)
			if err != nil {
				return nil, err
			}
			env.Log(proposalFinishedEvent, []emy.Bytes32{uintTopic(id)}, executed)
			return nil, nil
		}},
		{"proposal", func(env *xenv.Environment) ([]any, error) {
			var rawID *big.Int
			env.ParseArgs(&rawID)
			id, err := proposalID(rawID)
			if err != nil {
				return nil, err
			}
			p, err := native(env).Proposal(id)
			if err != nil {
				return nil, err
			}
			return []any{p.Target, p.Data, p.Description, p.CreatedAt, p.Deadline, p.VotesYes, p.VotesNo, p.Finished, p.Executed}, nil
		}},
		{"proposalCount", func(env *xenv.Environment) ([]any, error) {
			count, err := native(env).ProposalCount()
			if err != nil {
				return nil, err
			}
			return []any{new(big.Int).SetUint64(count)}, nil
		}},
		{"hasVoted", func(env *xenv.Environment) ([]any, error) {
			var args struct {
				ID    *big.Int `abi:"id"`
				Voter common.Address
			}
			env.ParseArgs(&args)
			if !args.ID.IsUint64() {
				return []any{false}, nil
			}
			voted, err := native(env).HasVoted(args.ID.Uint64(), emy.Address(args.Voter))
			return []any{voted}, err
		}},
		{"chairman", func(env *xenv.Environment) ([]any, error) {
			addr, err := native(env).Chairman()
			return []any{addr}, err
		}},
		{"quorum", func(env *xenv.Environment) ([]any, error) {
			q, err := native(env).Quorum()
			return []any{q}, err
		}},
		{"duration", func(env *xenv.Environment) ([]any, error) {
			d, err := native(env).Duration()
			return []any{d}, err
		}},
		{"staking", func(env *xenv.Environment) ([]any, error) {
			addr, err := native(env).Staking()
			return []any{addr}, err
		}},
	})
}
