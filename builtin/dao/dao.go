// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package dao implements the governance contract. The chairman files
// proposals, stakers vote with their staked balance as weight, and a
// winning proposal is executed as an arbitrary call made by the dao.
package dao

import (
	"math/big"

	"github.com/emylabs/emy/builtin/reverts"
	"github.com/emylabs/emy/builtin/solidity"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/log"
	"github.com/emylabs/emy/state"
)

var logger = log.WithContext("pkg", "dao")

var (
	ErrOnlyChairman       = reverts.New("Only chairman allowed")
	ErrChairmanVote       = reverts.New("Chairman cannot vote")
	ErrInvalidIndex       = reverts.New("Invalid proposal index")
	ErrVotingEnded        = reverts.New("Voting period has ended")
	ErrVotingNotEnded     = reverts.New("Voting period has not yet ended")
	ErrAlreadyVoted       = reverts.New("You have already voted")
	ErrAlreadyFinished    = reverts.New("Proposal has already finished")
	ErrAlreadyInitialized = reverts.New("dao already initialized")
)

// Calls reaches other contracts on behalf of the dao.
type Calls interface {
	// BalanceOf reads the staked balance of account from the staking contract.
	BalanceOf(staking, account emy.Address) (*big.Int, error)
	// Call runs data against target with the dao as caller.
	Call(target emy.Address, data []byte) error
}

// voterKey identifies a vote of voter on a proposal.
type voterKey struct {
	id    uint64
	voter emy.Address
}

func (k voterKey) Bytes() []byte {
	return append(solidity.Uint64Key(k.id).Bytes(), k.voter.Bytes()...)
}

// roleGate guards the chairman role.
type roleGate struct {
	holder *solidity.Address
}

func (g roleGate) has(addr emy.Address) (bool, error) {
	holder, err := g.holder.Get()
	if err != nil {
		return false, err
	}
	return addr == holder, nil
}

// Dao is the storage view of a deployed governance contract.
type Dao struct {
	addr      emy.Address
	calls     Calls
	chairman  *solidity.Address
	gate      roleGate
	staking   *solidity.Address
	quorum    *solidity.Uint256
	duration  *solidity.Uint64
	count     *solidity.Uint64
	proposals *solidity.Mapping[solidity.Uint64Key, *Proposal]
	voters    *solidity.Mapping[voterKey, bool]
}

// New creates the view of the dao at addr. calls may be nil when only the read surface is used.
func New(addr emy.Address, state *state.State, calls Calls) *Dao {
	ctx := solidity.NewContext(addr, state)
	chairman := solidity.NewAddress(ctx, solidity.Slot(0))
	return &Dao{
		addr:      addr,
		calls:     calls,
		chairman:  chairman,
		gate:      roleGate{chairman},
		staking:   solidity.NewAddress(ctx, solidity.Slot(1)),
		quorum:    solidity.NewUint256(ctx, solidity.Slot(2)),
		duration:  solidity.NewUint64(ctx, solidity.Slot(3)),
		count:     solidity.NewUint64(ctx, solidity.Slot(4)),
		proposals: solidity.NewMapping[solidity.Uint64Key, *Proposal](ctx, solidity.Slot(5)),
		voters:    solidity.NewMapping[voterKey, bool](ctx, solidity.Slot(6)),
	}
}

// Address returns the contract address.
func (d *Dao) Address() emy.Address {
	return d.addr
}

// Initialize configures a freshly deployed dao.
func (d *Dao) Initialize(chairman, staking emy.Address, quorum *big.Int, duration uint64) error {
	current, err := d.chairman.Get()
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return ErrAlreadyInitialized
	}
	d.chairman.Set(chairman)
	d.staking.Set(staking)
	d.quorum.Set(quorum)
	d.duration.Set(duration)
	return nil
}

func (d *Dao) Chairman() (emy.Address, error) { return d.chairman.Get() }
func (d *Dao) Staking() (emy.Address, error)  { return d.staking.Get() }
func (d *Dao) Quorum() (*big.Int, error)      { return d.quorum.Get() }
func (d *Dao) Duration() (uint64, error)      { return d.duration.Get() }
func (d *Dao) ProposalCount() (uint64, error) { return d.count.Get() }

// Proposal returns the proposal with the given id.
func (d *Dao) Proposal(id uint64) (*Proposal, error) {
	count, err := d.count.Get()
	if err != nil {
		return nil, err
	}
	if id >= count {
		return nil, ErrInvalidIndex
	}
	p, err := d.proposals.Get(solidity.Uint64Key(id))
	if err != nil {
		return nil, err
	}
	p.ID = id
	p.normalize()
	return p, nil
}

// HasVoted returns whether voter has voted on proposal id.
func (d *Dao) HasVoted(id uint64, voter emy.Address) (bool, error) {
	return d.voters.Get(voterKey{id, voter})
}

// AddProposal files a proposal to call target with data. Chairman only.
func (d *Dao) AddProposal(caller, target emy.Address, data []byte, description string, now uint64) (uint64, *Proposal, error) {
	ok, err := d.gate.has(caller)
	if err != nil {
		return 0, nil, err
	}
	if !ok {
		return 0, nil, ErrOnlyChairman
	}
	duration, err := d.duration.Get()
	if err != nil {
		return 0, nil, err
	}
	id, err := d.count.Get()
	if err != nil {
		return 0, nil, err
	}

	p := &Proposal{
		ID:          id,
		Target:      target,
		Data:        data,
		Description: description,
		CreatedAt:   now,
		Deadline:    now + duration,
		VotesYes:    new(big.Int),
		VotesNo:     new(big.Int),
	}
	if err := d.proposals.Set(solidity.Uint64Key(id), p); err != nil {
		return 0, nil, err
	}
	d.count.Set(id + 1)
	logger.Debug("proposal added", "id", id, "target", target, "deadline", p.Deadline)
	return id, p, nil
}

// Vote adds the staked balance of caller to the chosen side of proposal id.
// The weight counted is returned.
func (d *Dao) Vote(caller emy.Address, id uint64, support bool, now uint64) (*big.Int, error) {
	p, err := d.Proposal(id)
	if err != nil {
		return nil, err
	}
	isChairman, err := d.gate.has(caller)
	if err != nil {
		return nil, err
	}
	if isChairman {
		return nil, ErrChairmanVote
	}
	if now > p.Deadline {
		return nil, ErrVotingEnded
	}
	voted, err := d.HasVoted(id, caller)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, ErrAlreadyVoted
	}

	staking, err := d.staking.Get()
	if err != nil {
		return nil, err
	}
	weight, err := d.calls.BalanceOf(staking, caller)
	if err != nil {
		return nil, err
	}
	if support {
		p.VotesYes = new(big.Int).Add(p.VotesYes, weight)
	} else {
		p.VotesNo = new(big.Int).Add(p.VotesNo, weight)
	}
	if err := d.proposals.Set(solidity.Uint64Key(id), p); err != nil {
		return nil, err
	}
	if err := d.voters.Set(voterKey{id, caller}, true); err != nil {
		return nil, err
	}
	return weight, nil
}
