// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package proposals

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/emylabs/emy/api/utils"
	"github.com/emylabs/emy/builtin"
	"github.com/emylabs/emy/builtin/dao"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/ledger"
	"github.com/emylabs/emy/state"
)

type Proposal struct {
	ID          uint64                `json:"id"`
	Target      emy.Address           `json:"target"`
	Data        hexutil.Bytes         `json:"data"`
	Description string                `json:"description"`
	CreatedAt   uint64                `json:"createdAt"`
	Deadline    uint64                `json:"deadline"`
	VotesYes    *math.HexOrDecimal256 `json:"votesYes"`
	VotesNo     *math.HexOrDecimal256 `json:"votesNo"`
	Finished    bool                  `json:"finished"`
	Executed    bool                  `json:"executed"`
	// Passed reports whether the current tally would execute.
	Passed bool `json:"passed"`
	// Open reports whether voting is still allowed.
	Open bool `json:"open"`
}

type Proposals struct {
	ledger *ledger.Ledger
	addr   emy.Address
}

func New(ledger *ledger.Ledger, addr emy.Address) *Proposals {
	return &Proposals{ledger, addr}
}

func (p *Proposals) handleGetProposal(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}

	var result *Proposal
	err = p.ledger.View(func(st *state.State, _ ledger.Head, now uint64) error {
		contract := builtin.Dao.Native(p.addr, st, nil)
		proposal, err := contract.Proposal(id)
		if err != nil {
			return err
		}
		quorum, err := contract.Quorum()
		if err != nil {
			return err
		}
		result = &Proposal{
			ID:          proposal.ID,
			Target:      proposal.Target,
			Data:        proposal.Data,
			Description: proposal.Description,
			CreatedAt:   proposal.CreatedAt,
			Deadline:    proposal.Deadline,
			VotesYes:    (*math.HexOrDecimal256)(proposal.VotesYes),
			VotesNo:     (*math.HexOrDecimal256)(proposal.VotesNo),
			Finished:    proposal.Finished,
			Executed:    proposal.Executed,
			Passed:      proposal.Passed(quorum),
			Open:        !proposal.Finished && now <= proposal.Deadline,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, dao.ErrInvalidIndex) {
			return utils.NotFound(err)
		}
		return err
	}
	return utils.WriteJSON(w, result)
}

func (p *Proposals) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{id}").
		Methods(http.MethodGet).
		Name("GET /proposals/{id}").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetProposal))
}
