// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package emy

import (
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
)

// Blake2b hashes the concatenation of data to 256 bits. It derives ids,
// contract addresses and mapping slots.
func Blake2b(data ...[]byte) Bytes32 {
	if len(data) == 1 {
		return blake2b.Sum256(data[0])
	}
	h, _ := blake2b.New256(nil)
	for _, b := range data {
		h.Write(b)
	}
	var sum Bytes32
	h.Sum(sum[:0])
	return sum
}

var keccakPool = sync.Pool{
	New: func() any { return crypto.NewKeccakState() },
}

// Keccak256 hashes the concatenation of data with legacy keccak-256, the
// hash of event ids and whitelist leaves.
func Keccak256(data ...[]byte) (sum Bytes32) {
	h := keccakPool.Get().(crypto.KeccakState)
	defer keccakPool.Put(h)

	h.Reset()
	for _, b := range data {
		h.Write(b)
	}
	// Read avoids the state copy Sum makes
	h.Read(sum[:])
	return
}
