// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"runtime"
)

// Parallel to run a batch of work using as many CPU as it can.
// The returned channel is closed after cb returns and all queued works are done.
func Parallel(cb func(queue chan<- func())) <-chan struct{} {
	return ParallelN(runtime.NumCPU(), cb)
}

// ParallelN is like Parallel but runs at most n works at a time.
func ParallelN(n int, cb func(queue chan<- func())) <-chan struct{} {
	if n < 1 {
		n = 1
	}
	var goes Goes
	queue := make(chan func(), n*2)
	for range n {
		goes.Go(func() {
			for work := range queue {
				work()
			}
		})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		cb(queue)
		close(queue)
		goes.Wait()
	}()
	return done
}
