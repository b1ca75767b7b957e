// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"sync"
)

// Goes runs go routines and waits for them. The first error returned by a
// routine started with Try is kept.
type Goes struct {
	wg   sync.WaitGroup
	once sync.Once
	err  error
}

// Go runs f in a go routine.
func (g *Goes) Go(f func()) {
	g.wg.Go(f)
}

// Try runs f in a go routine and records its error.
func (g *Goes) Try(f func() error) {
	g.wg.Go(func() {
		if err := f(); err != nil {
			g.once.Do(func() { g.err = err })
		}
	})
}

// Wait waits for all go routines and returns the first recorded error.
func (g *Goes) Wait() error {
	g.wg.Wait()
	return g.err
}

// Done returns a channel closed when all go routines exit.
func (g *Goes) Done() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		g.wg.Wait()
	}()
	return done
}
