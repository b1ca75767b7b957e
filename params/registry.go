// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package params

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
)

var registry = struct {
	sync.RWMutex
	m map[string]*Params
}{
	m: map[string]*Params{
		MainNetName: MainNet(),
		TestNetName: TestNet(),
		RegTestName: RegTest(),
	},
}

// Select returns the registered params of the named network.
func Select(name string) (*Params, error) {
	registry.RLock()
	defer registry.RUnlock()

	p, ok := registry.m[name]
	if !ok {
		return nil, errors.Errorf("unknown network %q", name)
	}
	return p, nil
}

// Register registers params of a custom network. Registered networks can not be overwritten.
func Register(p *Params) error {
	if err := p.Validate(); err != nil {
		return err
	}

	registry.Lock()
	defer registry.Unlock()

	if _, ok := registry.m[p.Name]; ok {
		return errors.Errorf("can not overwrite params of network %q", p.Name)
	}
	registry.m[p.Name] = p
	return nil
}

// Override replaces the registered params of the named network with a copy
// modified by fn, for the lifetime of the test. The previous params are
// restored when the test and its subtests complete. Modified params that fail
// validation fail the test.
func Override(tb testing.TB, name string, fn func(*Params)) *Params {
	tb.Helper()

	registry.Lock()
	defer registry.Unlock()

	prev, ok := registry.m[name]
	if !ok {
		tb.Fatalf("override unknown network %q", name)
		return nil
	}
	modified := prev.With(fn)
	if err := modified.Validate(); err != nil {
		tb.Fatalf("override network %q: %v", name, err)
		return nil
	}
	registry.m[name] = modified

	tb.Cleanup(func() {
		registry.Lock()
		defer registry.Unlock()
		registry.m[name] = prev
	})
	return modified
}
