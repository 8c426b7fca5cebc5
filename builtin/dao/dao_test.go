// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dao

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emylabs/emy/builtin/reverts"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/lvldb"
	"github.com/emylabs/emy/state"
)

var (
	daoAddr     = emy.BytesToAddress([]byte("dao"))
	stakingAddr = emy.BytesToAddress([]byte("staking"))
	chairman    = emy.BytesToAddress([]byte("chairman"))
	alice       = emy.BytesToAddress([]byte("alice"))
	bob         = emy.BytesToAddress([]byte("bob"))
	target      = emy.BytesToAddress([]byte("target"))
)

const (
	duration = 100
	t0       = 5_000
)

type call struct {
	target emy.Address
	data   []byte
}

type fakeCalls struct {
	balances map[emy.Address]*big.Int
	calls    []call
	err      error
	onCall   func()
}

func (c *fakeCalls) BalanceOf(staking, account emy.Address) (*big.Int, error) {
	if staking != stakingAddr {
		return nil, reverts.New("wrong staking")
	}
	if b, ok := c.balances[account]; ok {
		return b, nil
	}
	return new(big.Int), nil
}

func (c *fakeCalls) Call(target emy.Address, data []byte) error {
	c.calls = append(c.calls, call{target, data})
	if c.onCall != nil {
		c.onCall()
	}
	return c.err
}

func newDao(t *testing.T, quorum int64) (*Dao, *fakeCalls) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	calls := &fakeCalls{balances: map[emy.Address]*big.Int{
		alice: big.NewInt(100),
		bob:   big.NewInt(90),
	}}
	d := New(daoAddr, state.New(db), calls)
	require.NoError(t, d.Initialize(chairman, stakingAddr, big.NewInt(quorum), duration))
	return d, calls
}

func TestInitialize(t *testing.T) {
	d, _ := newDao(t, 150)

	c, err := d.Chairman()
	require.NoError(t, err)
	assert.Equal(t, chairman, c)

	s, err := d.Staking()
	require.NoError(t, err)
	assert.Equal(t, stakingAddr, s)

	q, err := d.Quorum()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(150), q)

	dur, err := d.Duration()
	require.NoError(t, err)
	assert.Equal(t, uint64(duration), dur)

	assert.Equal(t, ErrAlreadyInitialized, d.Initialize(alice, stakingAddr, q, dur))
}

func TestAddProposal(t *testing.T) {
	d, _ := newDao(t, 150)

	_, _, err := d.AddProposal(alice, target, []byte{1}, "no", t0)
	assert.Equal(t, ErrOnlyChairman, err)

	for i := uint64(0); i < 3; i++ {
		id, p, err := d.AddProposal(chairman, target, []byte{1, 2, 3}, "set root", t0)
		require.NoError(t, err)
		assert.Equal(t, i, id)
		assert.Equal(t, uint64(t0+duration), p.Deadline)
	}

	count, err := d.ProposalCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	p, err := d.Proposal(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.ID)
	assert.Equal(t, target, p.Target)
	assert.Equal(t, []byte{1, 2, 3}, p.Data)
	assert.Equal(t, "set root", p.Description)
	assert.Equal(t, uint64(t0), p.CreatedAt)
	assert.Equal(t, 0, p.VotesYes.Sign())
	assert.Equal(t, 0, p.VotesNo.Sign())
	assert.False(t, p.Finished)
	assert.False(t, p.Executed)

	_, err = d.Proposal(3)
	assert.Equal(t, ErrInvalidIndex, err)
}

func TestVote(t *testing.T) {
	d, _ := newDao(t, 150)
	id, _, err := d.AddProposal(chairman, target, nil, "", t0)
	require.NoError(t, err)

	_, err = d.Vote(alice, id+1, true, t0)
	assert.Equal(t, ErrInvalidIndex, err)

	_, err = d.Vote(chairman, id, true, t0)
	assert.Equal(t, ErrChairmanVote, err)

	_, err = d.Vote(alice, id, true, t0+duration+1)
	assert.Equal(t, ErrVotingEnded, err)

	// the deadline itself is still open
	weight, err := d.Vote(alice, id, true, t0+duration)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), weight)

	_, err = d.Vote(alice, id, false, t0+1)
	assert.Equal(t, ErrAlreadyVoted, err)

	weight, err = d.Vote(bob, id, false, t0+1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(90), weight)

	p, err := d.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), p.VotesYes)
	assert.Equal(t, big.NewInt(90), p.VotesNo)

	voted, err := d.HasVoted(id, alice)
	require.NoError(t, err)
	assert.True(t, voted)

	voted, err = d.HasVoted(id, chairman)
	require.NoError(t, err)
	assert.False(t, voted)
}

func TestFinishProposalOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		quorum   int64
		yes, no  int64
		executed bool
	}{
		{"majority with quorum", 150, 100, 90, true},
		{"majority below quorum", 150, 100, 0, false},
		{"minority", 150, 90, 100, false},
		{"tie", 0, 100, 100, false},
		{"exact quorum", 190, 100, 90, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, calls := newDao(t, tt.quorum)
			calls.balances[alice] = big.NewInt(tt.yes)
			calls.balances[bob] = big.NewInt(tt.no)

			id, _, err := d.AddProposal(chairman, target, []byte("payload"), "", t0)
			require.NoError(t, err)
			_, err = d.Vote(alice, id, true, t0)
			require.NoError(t, err)
			_, err = d.Vote(bob, id, false, t0)
			require.NoError(t, err)

			executed, err := d.FinishProposal(alice, id, t0+duration)
			require.NoError(t, err)
			assert.Equal(t, tt.executed, executed)

			p, err := d.Proposal(id)
			require.NoError(t, err)
			assert.True(t, p.Finished)
			assert.Equal(t, tt.executed, p.Executed)

			if tt.executed {
				require.Len(t, calls.calls, 1)
				assert.Equal(t, target, calls.calls[0].target)
				assert.Equal(t, []byte("payload"), calls.calls[0].data)
			} else {
				assert.Empty(t, calls.calls)
			}
		})
	}
}

func TestFinishProposalGuards(t *testing.T) {
	d, _ := newDao(t, 0)
	id, _, err := d.AddProposal(chairman, target, nil, "", t0)
	require.NoError(t, err)

	_, err = d.FinishProposal(alice, id+1, t0+duration)
	assert.Equal(t, ErrInvalidIndex, err)

	_, err = d.FinishProposal(alice, id, t0+duration-1)
	assert.Equal(t, ErrVotingNotEnded, err)

	_, err = d.FinishProposal(alice, id, t0+duration)
	require.NoError(t, err)

	_, err = d.FinishProposal(alice, id, t0+duration+1)
	assert.Equal(t, ErrAlreadyFinished, err)
}

func TestFinishProposalMarksFinishedBeforeCall(t *testing.T) {
	d, calls := newDao(t, 0)
	id, _, err := d.AddProposal(chairman, target, nil, "", t0)
	require.NoError(t, err)
	_, err = d.Vote(alice, id, true, t0)
	require.NoError(t, err)

	var reentrant error
	calls.onCall = func() {
		_, reentrant = d.FinishProposal(bob, id, t0+duration)
	}
	executed, err := d.FinishProposal(alice, id, t0+duration)
	require.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, ErrAlreadyFinished, reentrant)
}

func TestFinishProposalCallFailure(t *testing.T) {
	d, calls := newDao(t, 0)
	id, _, err := d.AddProposal(chairman, target, nil, "", t0)
	require.NoError(t, err)
	_, err = d.Vote(alice, id, true, t0)
	require.NoError(t, err)

	calls.err = reverts.New("Only minter allowed")
	_, err = d.FinishProposal(alice, id, t0+duration)
	reason, ok := reverts.Reason(err)
	require.True(t, ok)
	assert.Equal(t, "Only minter allowed", reason)
}
