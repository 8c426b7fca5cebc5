// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/pkg/errors"

	"github.com/emylabs/emy/kv"
)

// Stage abstracts changes on the state which are ready to be committed.
type Stage struct {
	changes map[stateKey][]byte
	order   []stateKey
}

// Len returns the number of changed entries.
func (s *Stage) Len() int {
	return len(s.order)
}

// Commit writes changes into the given putter, usually a batch.
// Empty values delete the entry.
func (s *Stage) Commit(w kv.Putter) error {
	w = Bucket.NewPutter(w)
	for _, k := range s.order {
		v := s.changes[k]
		var err error
		if len(v) == 0 {
			err = w.Delete(k.encode())
		} else {
			err = w.Put(k.encode(), v)
		}
		if err != nil {
			return errors.Wrap(err, "commit state")
		}
	}
	return nil
}
