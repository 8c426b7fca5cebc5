// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/emylabs/emy/emy"
)

// Receipt represents the result of an executed clause.
type Receipt struct {
	ID          emy.Bytes32
	BlockNumber uint32
	BlockTime   uint64
	Origin      emy.Address
	To          emy.Address

	// Reverted is set when the call failed; no state change survived.
	Reverted     bool
	RevertReason string
	Output       []byte
	Events       Events
}

// ComputeID returns the id of the clause executed by origin in the given block.
func ComputeID(blockNumber uint32, origin emy.Address, clause *Clause) emy.Bytes32 {
	data, _ := rlp.EncodeToBytes([]any{blockNumber, origin, clause})
	return emy.Blake2b(data)
}

// EncodeReceipt encodes the receipt into its storage form, rlp compressed with snappy.
func EncodeReceipt(r *Receipt) ([]byte, error) {
	data, err := rlp.EncodeToBytes(r)
	if err != nil {
		return nil, errors.Wrap(err, "encode receipt")
	}
	return snappy.Encode(nil, data), nil
}

// DecodeReceipt decodes the storage form produced by EncodeReceipt.
func DecodeReceipt(data []byte) (*Receipt, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, errors.Wrap(err, "decompress receipt")
	}
	var r Receipt
	if err := rlp.DecodeBytes(raw, &r); err != nil {
		return nil, errors.Wrap(err, "decode receipt")
	}
	return &r, nil
}
