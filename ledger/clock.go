// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"sync"
	"time"
)

// Clock supplies block timestamps in unix seconds.
type Clock interface {
	Now() uint64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() uint64 { return uint64(time.Now().Unix()) }

// ManualClock only moves when told to. Useful for tests and simulations.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

func NewManualClock(now uint64) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t. Moving backwards is allowed, but the ledger
// never assigns a block time lower than its head.
func (c *ManualClock) Set(t uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d seconds and returns the new time.
func (c *ManualClock) Advance(d uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}
