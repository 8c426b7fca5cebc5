// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/kv"
	"github.com/emylabs/emy/stackedmap"
)

// Bucket is the kv bucket holding state entries.
const Bucket = kv.Bucket("s")

type keyKind byte

const (
	codeKind keyKind = iota + 1
	nonceKind
	storageKind
)

type stateKey struct {
	kind keyKind
	addr emy.Address
	slot emy.Bytes32
}

// encode returns the kv key of the entry.
func (k stateKey) encode() []byte {
	b := make([]byte, 0, 1+emy.AddressLength+32)
	b = append(b, byte(k.kind))
	b = append(b, k.addr[:]...)
	if k.kind == storageKind {
		b = append(b, k.slot[:]...)
	}
	return b
}

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// State manages the contracts state.
type State struct {
	db       kv.Getter
	sm       *stackedmap.StackedMap[stateKey, []byte]
	readOnly bool
}

// New create state object reading from the given source.
func New(db kv.Getter) *State {
	s := &State{db: Bucket.NewGetter(db)}
	s.sm = stackedmap.New(s.load)
	return s
}

// NewReadOnly creates a state whose write attempts panic with ErrReadOnly.
func NewReadOnly(db kv.Getter) *State {
	s := New(db)
	s.readOnly = true
	return s
}

// ErrReadOnly is the panic value of writes to a read-only state.
var ErrReadOnly = &Error{fmt.Errorf("write to read-only state")}

// load implements stackedmap.MapGetter.
func (s *State) load(key stateKey) ([]byte, bool, error) {
	v, err := s.db.Get(key.encode())
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, true, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

func (s *State) put(key stateKey, value []byte) {
	if s.readOnly {
		panic(ErrReadOnly)
	}
	s.sm.Put(key, value)
}

// ReadOnly returns whether the state rejects writes.
func (s *State) ReadOnly() bool {
	return s.readOnly
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr emy.Address, key emy.Bytes32) (emy.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return emy.Bytes32{}, err
	}
	if len(raw) == 0 {
		return emy.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return emy.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// customized storage value, return hash of raw data
		return emy.Blake2b(raw), nil
	}
	return emy.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr emy.Address, key, value emy.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, v)
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr emy.Address, key emy.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(stateKey{storageKind, addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data, nil
}

// SetRawStorage set storage value in rlp raw.
func (s *State) SetRawStorage(addr emy.Address, key emy.Bytes32, raw rlp.RawValue) {
	s.put(stateKey{storageKind, addr, key}, raw)
}

// EncodeStorage set storage value encoded by given enc method.
// Error returned by enc will be absorbed by State instance.
func (s *State) EncodeStorage(addr emy.Address, key emy.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be absorbed by State instance.
func (s *State) DecodeStorage(addr emy.Address, key emy.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// GetCode returns code for the given address.
// Native contracts store the name of their kind as code.
func (s *State) GetCode(addr emy.Address) ([]byte, error) {
	v, _, err := s.sm.Get(stateKey{kind: codeKind, addr: addr})
	if err != nil {
		return nil, &Error{err}
	}
	return v, nil
}

// SetCode set code for the given address.
func (s *State) SetCode(addr emy.Address, code []byte) {
	s.put(stateKey{kind: codeKind, addr: addr}, code)
}

// Exists returns whether a contract lives at the given address.
func (s *State) Exists(addr emy.Address) (bool, error) {
	code, err := s.GetCode(addr)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// GetNonce returns the number of contracts the account has deployed.
func (s *State) GetNonce(addr emy.Address) (uint64, error) {
	v, _, err := s.sm.Get(stateKey{kind: nonceKind, addr: addr})
	if err != nil {
		return 0, &Error{err}
	}
	if len(v) == 0 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(v), nil
}

// SetNonce set the nonce for the given address.
func (s *State) SetNonce(addr emy.Address, nonce uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], nonce)
	s.put(stateKey{kind: nonceKind, addr: addr}, b[:])
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Stage makes a stage object to commit changes.
func (s *State) Stage() *Stage {
	changes := make(map[stateKey][]byte)
	var order []stateKey
	s.sm.Journal(func(k stateKey, v []byte) bool {
		if _, ok := changes[k]; !ok {
			order = append(order, k)
		}
		changes[k] = v
		return true
	})
	return &Stage{changes: changes, order: order}
}
