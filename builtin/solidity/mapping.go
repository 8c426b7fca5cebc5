// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"encoding/binary"
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/emylabs/emy/emy"
)

type Key interface {
	Bytes() []byte
}

// Uint64Key makes an integer usable as a mapping key.
type Uint64Key uint64

func (k Uint64Key) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(k))
	return b[:]
}

// Mapping is a key/value storage abstraction for native contracts, similar to the mapping in Solidity.
// Values are rlp encoded.
type Mapping[K Key, V any] struct {
	context *Context
	basePos emy.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos emy.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) position(key K) emy.Bytes32 {
	return emy.Blake2b(key.Bytes(), m.basePos.Bytes())
}

// Get returns the value for key. A missing entry yields the zero value,
// or a pointer to a zero value when V is a pointer type.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	err = m.context.state.DecodeStorage(m.context.address, m.position(key), func(raw []byte) error {
		if reflect.ValueOf(value).Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		}
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

func (m *Mapping[K, V]) Set(key K, value V) error {
	return m.context.state.EncodeStorage(m.context.address, m.position(key), func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Delete clears the entry for key.
func (m *Mapping[K, V]) Delete(key K) {
	m.context.state.SetRawStorage(m.context.address, m.position(key), nil)
}
