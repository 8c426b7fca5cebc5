// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package co manages the life-cycle of goroutines.
package co

import (
	"sync"
)

// Goes runs goroutines that share one stop channel.
type Goes struct {
	wg   sync.WaitGroup
	once sync.Once
	stop chan struct{}
}

// NewGoes returns an empty Goes.
func NewGoes() *Goes {
	return &Goes{stop: make(chan struct{})}
}

// Go runs f in a goroutine. f should return once stop is closed.
func (g *Goes) Go(f func(stop <-chan struct{})) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f(g.stop)
	}()
}

// Stop closes the stop channel. It is safe to call more than once.
func (g *Goes) Stop() {
	g.once.Do(func() { close(g.stop) })
}

// Wait waits for all goroutines started by Go.
func (g *Goes) Wait() {
	g.wg.Wait()
}

// Done returns a channel closed when all goroutines have returned.
func (g *Goes) Done() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		g.wg.Wait()
	}()
	return done
}
