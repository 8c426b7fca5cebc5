// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package kv defines the key-value store the ledger persists state,
// receipts and its block index to.
package kv

// Getter reads values. A missing key is reported as an error that
// IsNotFound recognizes.
type Getter interface {
	Get(key []byte) ([]byte, error)
	IsNotFound(error) bool
}

// Putter writes values. A Batch is a Putter too, so the same writer code
// serves direct and batched writes.
type Putter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Store is the ledger's backing store.
type Store interface {
	Getter
	Putter

	// NewBatch starts a set of writes applied atomically by Write.
	NewBatch() Batch
	// Iterate walks the keys of r in ascending order.
	Iterate(r Range) Iterator
}

// StoreCloser is a Store owning its resources.
type StoreCloser interface {
	Store
	Close() error
}

type Batch interface {
	Putter

	Len() int
	Write() error
}

// Range is the key range [Start, Limit). A nil Limit is unbounded.
type Range struct {
	Start []byte
	Limit []byte
}

// Iterator must be released after use.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}
