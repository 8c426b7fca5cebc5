// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package transactions

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

// Clause is the body of POST /transactions.
type Clause struct {
	Origin *emy.Address   `json:"origin"`
	To     *emy.Address   `json:"to"`
	Data   *hexutil.Bytes `json:"data"`
}

type Transactions struct {
	ledger *ledger.Ledger
}

func New(ledger *ledger.Ledger) *Transactions {
	return &Transactions{ledger}
}

func (t *Transactions) handleExecute(w http.ResponseWriter, req *http.Request) error {
	var body Clause
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Origin == nil {
		return utils.BadRequest(errors.New("body.origin: required"))
	}
	if body.To == nil {
		return utils.BadRequest(errors.New("body.to: required"))
	}
	clause := tx.NewClause(*body.To)
	if body.Data != nil {
		clause = clause.WithData(*body.Data)
	}

	receipt, err := t.ledger.Execute(req.Context(), *body.Origin, clause)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, types.ConvertReceipt(receipt))
}

func (t *Transactions) handleGetReceipt(w http.ResponseWriter, req *http.Request) error {
	id, err := emy.ParseBytes32(mux.Vars(req)["id"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}
	receipt, err := t.ledger.Receipt(id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return utils.WriteJSON(w, nil)
		}
		return err
	}
	return utils.WriteJSON(w, types.ConvertReceipt(receipt))
}

func (t *Transactions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /transactions").
		HandlerFunc(utils.WrapHandlerFunc(t.handleExecute))
	sub.Path("/{id}/receipt").
		Methods(http.MethodGet).
		Name("GET /transactions/{id}/receipt").
		HandlerFunc(utils.WrapHandlerFunc(t.handleGetReceipt))
}
