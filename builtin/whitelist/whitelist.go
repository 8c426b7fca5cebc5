// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package whitelist implements Merkle membership proofs over account addresses.
// Pairs are hashed in sorted order, so a proof is a plain list of siblings
// from the leaf up to the root.
package whitelist

import (
	"bytes"

	"github.com/emylabs/emy/emy"
)

// Leaf returns the leaf digest of an account.
func Leaf(account emy.Address) emy.Bytes32 {
	return emy.Keccak256(account.Bytes())
}

// HashPair hashes two nodes in canonical order.
func HashPair(a, b emy.Bytes32) emy.Bytes32 {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return emy.Keccak256(a[:], b[:])
}

// Verify recomputes the root from leaf and proof and compares it to root.
func Verify(root, leaf emy.Bytes32, proof []emy.Bytes32) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = HashPair(computed, sibling)
	}
	return computed == root
}

// IsAllowed reports whether account is a member of the tree with the given root.
func IsAllowed(root emy.Bytes32, account emy.Address, proof []emy.Bytes32) bool {
	return Verify(root, Leaf(account), proof)
}
