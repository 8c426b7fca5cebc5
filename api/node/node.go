// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/emylabs/emy/api/types"
	"github.com/emylabs/emy/api/utils"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/genesis"
	"github.com/emylabs/emy/ledger"
)

type Head struct {
	Number    uint32      `json:"number"`
	Timestamp uint64      `json:"timestamp"`
	GenesisID emy.Bytes32 `json:"genesisID"`
}

type Node struct {
	ledger      *ledger.Ledger
	deployments genesis.Deployments
}

func New(ledger *ledger.Ledger, deployments genesis.Deployments) *Node {
	return &Node{
		ledger,
		deployments,
	}
}

func (n *Node) handleGetHead(w http.ResponseWriter, req *http.Request) error {
	head := n.ledger.Head()
	return utils.WriteJSON(w, &Head{
		Number:    head.Number,
		Timestamp: head.Time,
		GenesisID: n.ledger.GenesisID(),
	})
}

func (n *Node) handleGetContracts(w http.ResponseWriter, req *http.Request) error {
	return utils.WriteJSON(w, n.deployments)
}

// handleGetBlockReceipt returns the receipt of the single clause a block
// carries, null for the genesis block or one beyond the head.
func (n *Node) handleGetBlockReceipt(w http.ResponseWriter, req *http.Request) error {
	number, err := strconv.ParseUint(mux.Vars(req)["number"], 10, 32)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "number"))
	}
	receipt, err := n.ledger.ReceiptByNumber(uint32(number))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return utils.WriteJSON(w, nil)
		}
		return err
	}
	return utils.WriteJSON(w, types.ConvertReceipt(receipt))
}

func (n *Node) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/head").
		Methods(http.MethodGet).
		Name("GET /node/head").
		HandlerFunc(utils.WrapHandlerFunc(n.handleGetHead))
	sub.Path("/contracts").
		Methods(http.MethodGet).
		Name("GET /node/contracts").
		HandlerFunc(utils.WrapHandlerFunc(n.handleGetContracts))
	sub.Path("/blocks/{number}/receipt").
		Methods(http.MethodGet).
		Name("GET /node/blocks/{number}/receipt").
		HandlerFunc(utils.WrapHandlerFunc(n.handleGetBlockReceipt))
}
