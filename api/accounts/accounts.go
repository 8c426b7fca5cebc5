// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accounts

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/emylabs/emy/api/types"
	"github.com/emylabs/emy/api/utils"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/ledger"
	"github.com/emylabs/emy/tx"
)

// CallData is the body of POST /accounts/*.
type CallData struct {
	Caller *emy.Address   `json:"caller"`
	To     *emy.Address   `json:"to"`
	Data   *hexutil.Bytes `json:"data"`
}

type CallResult struct {
	Data         hexutil.Bytes  `json:"data"`
	Events       []*types.Event `json:"events"`
	Reverted     bool           `json:"reverted"`
	RevertReason string         `json:"revertReason,omitempty"`
}

type Accounts struct {
	ledger *ledger.Ledger
}

func New(ledger *ledger.Ledger) *Accounts {
	return &Accounts{ledger}
}

func (a *Accounts) handleCall(w http.ResponseWriter, req *http.Request) error {
	var body CallData
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.To == nil {
		return utils.BadRequest(errors.New("body.to: required"))
	}
	var caller emy.Address
	if body.Caller != nil {
		caller = *body.Caller
	}
	clause := tx.NewClause(*body.To)
	if body.Data != nil {
		clause = clause.WithData(*body.Data)
	}

	output, err := a.ledger.Call(req.Context(), caller, clause)
	if err != nil {
		return err
	}
	result := &CallResult{
		Data:     output.Data,
		Events:   make([]*types.Event, 0, len(output.Events)),
		Reverted: output.Reverted(),
	}
	for _, ev := range output.Events {
		result.Events = append(result.Events, &types.Event{
			Address: ev.Address,
			Topics:  ev.Topics,
			Data:    ev.Data,
		})
	}
	if output.Reverted() {
		result.RevertReason = output.RevertErr.Reason()
	}
	return utils.WriteJSON(w, result)
}

func (a *Accounts) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/*").
		Methods(http.MethodPost).
		Name("POST /accounts/*").
		HandlerFunc(utils.WrapHandlerFunc(a.handleCall))
}
