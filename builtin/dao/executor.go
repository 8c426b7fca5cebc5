// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dao

import (
	"github.com/emylabs/emy/builtin/solidity"
	"github.com/emylabs/emy/emy"
)

// FinishProposal closes proposal id once its voting period is over and, if
// it passed, calls its target. The proposal is marked finished before the
// call, so a reentrant finish of the same id is rejected. A failing call is
// returned unchanged and the caller is expected to revert the whole frame.
func (d *Dao) FinishProposal(caller emy.Address, id uint64, now uint64) (bool, error) {
	p, err := d.Proposal(id)
	if err != nil {
		return false, err
	}
	if p.Finished {
		return false, ErrAlreadyFinished
	}
	if now < p.Deadline {
		return false, ErrVotingNotEnded
	}
	quorum, err := d.quorum.Get()
	if err != nil {
		return false, err
	}

	p.Finished = true
	p.Executed = p.Passed(quorum)
	if err := d.proposals.Set(solidity.Uint64Key(id), p); err != nil {
		return false, err
	}
	if !p.Executed {
		logger.Debug("proposal rejected", "id", id, "yes", p.VotesYes, "no", p.VotesNo)
		return false, nil
	}

	if err := d.calls.Call(p.Target, p.Data); err != nil {
		logger.Debug("proposal call failed", "id", id, "target", p.Target, "err", err)
		return false, err
	}
	logger.Info("proposal executed", "id", id, "target", p.Target, "by", caller)
	return true, nil
}
