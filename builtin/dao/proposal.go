// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dao

import (
	"math/big"

	"github.com/emylabs/emy/emy"
)

// Proposal is a call the dao makes when the vote passes.
type Proposal struct {
	ID          uint64 `rlp:"-"`
	Target      emy.Address
	Data        []byte
	Description string
	CreatedAt   uint64
	Deadline    uint64
	VotesYes    *big.Int
	VotesNo     *big.Int
	Finished    bool
	Executed    bool
}

func (p *Proposal) normalize() {
	if p.VotesYes == nil {
		p.VotesYes = new(big.Int)
	}
	if p.VotesNo == nil {
		p.VotesNo = new(big.Int)
	}
}

// Passed returns whether yes outweighs no and the turnout reaches quorum.
func (p *Proposal) Passed(quorum *big.Int) bool {
	if p.VotesYes.Cmp(p.VotesNo) <= 0 {
		return false
	}
	turnout := new(big.Int).Add(p.VotesYes, p.VotesNo)
	return turnout.Cmp(quorum) >= 0
}
