// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reverts defines the revert error raised by native contracts.
package reverts

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
)

// errorSelector is the 4-byte selector of Error(string).
var errorSelector = []byte{0x08, 0xc3, 0x79, 0xa0}

// ErrRevert aborts a contract call. The reason is surfaced verbatim to the caller.
type ErrRevert struct {
	reason string
}

// New creates a revert error with the given reason.
func New(reason string) *ErrRevert {
	return &ErrRevert{reason: reason}
}

// Newf creates a revert error with a formatted reason.
func Newf(format string, args ...any) *ErrRevert {
	return &ErrRevert{reason: fmt.Sprintf(format, args...)}
}

func (e *ErrRevert) Error() string {
	return e.reason
}

// Reason returns the revert reason.
func (e *ErrRevert) Reason() string {
	return e.reason
}

// Bytes returns the reason encoded as Error(string) revert data.
func (e *ErrRevert) Bytes() []byte {
	if e == nil {
		return nil
	}

	msg := []byte(e.reason)
	padded := (len(msg) + 31) / 32 * 32

	// selector + offset + length + data padded to 32
	encoded := make([]byte, 0, 4+32+32+padded)
	encoded = append(encoded, errorSelector...)

	var word [32]byte
	binary.BigEndian.PutUint64(word[24:], 32)
	encoded = append(encoded, word[:]...)

	word = [32]byte{}
	binary.BigEndian.PutUint64(word[24:], uint64(len(msg)))
	encoded = append(encoded, word[:]...)

	data := make([]byte, padded)
	copy(data, msg)
	return append(encoded, data...)
}

// Decode parses Error(string) revert data back into a revert error.
// It returns nil if data is not well-formed revert data.
func Decode(data []byte) *ErrRevert {
	if !bytes.HasPrefix(data, errorSelector) {
		return nil
	}
	reason, err := ethabi.UnpackRevert(data)
	if err != nil {
		return nil
	}
	return New(reason)
}

// IsRevertErr returns whether err is, or wraps, a revert error.
func IsRevertErr(err any) bool {
	e, ok := err.(error)
	if !ok || e == nil {
		return false
	}
	var re *ErrRevert
	return errors.As(e, &re) && re != nil
}

// Reason returns the revert reason carried by err, if any.
func Reason(err error) (string, bool) {
	var re *ErrRevert
	if errors.As(err, &re) && re != nil {
		return re.reason, true
	}
	return "", false
}
