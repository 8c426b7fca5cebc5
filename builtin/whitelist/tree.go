// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package whitelist

import (
	"github.com/pkg/errors"

	"github.com/emylabs/emy/emy"
)

// ErrLeafNotFound is returned when a proof is requested for a leaf outside the tree.
var ErrLeafNotFound = errors.New("leaf not found")

// Tree is an off-ledger Merkle tree used to compute roots and proofs.
// Leaves keep the given order. An odd node at the end of a level is
// promoted to the next level unchanged.
type Tree struct {
	levels [][]emy.Bytes32
}

// NewTree builds a tree from leaves.
func NewTree(leaves []emy.Bytes32) *Tree {
	level := append([]emy.Bytes32(nil), leaves...)
	t := &Tree{levels: [][]emy.Bytes32{level}}
	for len(level) > 1 {
		next := make([]emy.Bytes32, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, HashPair(level[i], level[i+1]))
		}
		t.levels = append(t.levels, next)
		level = next
	}
	return t
}

// NewAddressTree builds a tree whose leaves are the given accounts.
func NewAddressTree(accounts []emy.Address) *Tree {
	leaves := make([]emy.Bytes32, 0, len(accounts))
	for _, a := range accounts {
		leaves = append(leaves, Leaf(a))
	}
	return NewTree(leaves)
}

// Root returns the root digest. An empty tree has a zero root.
func (t *Tree) Root() emy.Bytes32 {
	top := t.levels[len(t.levels)-1]
	if len(top) == 0 {
		return emy.Bytes32{}
	}
	return top[0]
}

// Leaves returns the number of leaves.
func (t *Tree) Leaves() int {
	return len(t.levels[0])
}

// Proof returns the sibling path of the first occurrence of leaf.
func (t *Tree) Proof(leaf emy.Bytes32) ([]emy.Bytes32, error) {
	index := -1
	for i, l := range t.levels[0] {
		if l == leaf {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, ErrLeafNotFound
	}

	var proof []emy.Bytes32
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		index /= 2
	}
	return proof, nil
}

// AddressProof returns the proof of account.
func (t *Tree) AddressProof(account emy.Address) ([]emy.Bytes32, error) {
	return t.Proof(Leaf(account))
}
