// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package serials is the set of spent zerocoin serial numbers.
package serials

import (
	"encoding/binary"
	"math/big"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/pw512/klimatas-core/cache"
	"github.com/pw512/klimatas-core/kts"
	"github.com/pw512/klimatas-core/kv"
)

// Bucket holds hash(serial) => spend height.
const Bucket kv.Bucket = "s"

// Key returns the key of serial in Bucket.
func Key(serial *big.Int) kts.Bytes32 {
	return kts.Blake2b(serial.Bytes())
}

// Cache remembers serials known to be spent in committed state, with the
// height they were spent at. It is shared by all sets opened on views of the
// same store.
//
// Every purge starts a new generation. A view only trusts entries of the
// generation it was opened in, spent at or below its base height, so entries
// committed later or on another branch are never seen.
type Cache struct {
	lru *cache.LRU
	gen atomic.Uint64
}

type cacheEntry struct {
	height uint32
	gen    uint64
}

// NewCache creates a cache holding up to size serials.
func NewCache(size int) (*Cache, error) {
	lru, err := cache.NewLRU(size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: lru}, nil
}

// Add marks the serial key as committed at height.
func (c *Cache) Add(key kts.Bytes32, height uint32) {
	c.lru.Add(key, cacheEntry{height, c.gen.Load()})
}

// Forget drops the serial key.
func (c *Cache) Forget(key kts.Bytes32) { c.lru.Remove(key) }

// Purge drops everything and starts a new generation.
func (c *Cache) Purge() {
	c.gen.Add(1)
	c.lru.Purge()
}

// Generation returns the current generation. Read it before opening the
// snapshot the cache is used with.
func (c *Cache) Generation() uint64 { return c.gen.Load() }

// Stats returns hit/miss counters.
func (c *Cache) Stats() (bool, int64, int64) { return c.lru.Stats() }

// Bounded is the cache as seen by a view opened at a base height.
type Bounded struct {
	c    *Cache
	gen  uint64
	base uint32
}

// Bound binds the cache to a view of the committed state at base, opened in
// generation gen.
func (c *Cache) Bound(gen uint64, base uint32) *Bounded {
	return &Bounded{c, gen, base}
}

func (b *Bounded) has(key kts.Bytes32) bool {
	v, ok := b.c.lru.Lookup(key)
	if !ok {
		return false
	}
	e := v.(cacheEntry)
	return e.gen == b.gen && e.height <= b.base
}

// Set is the serial set seen through a kv view.
type Set struct {
	store kv.GetPutter
	cache *Bounded
}

// New creates a set over view. c is optional.
func New(view kv.GetPutter, c *Bounded) *Set {
	return &Set{Bucket.NewGetPutter(view), c}
}

// Has returns whether the serial is spent.
func (s *Set) Has(serial *big.Int) (bool, error) {
	key := Key(serial)
	if s.cache != nil && s.cache.has(key) {
		return true, nil
	}
	has, err := s.store.Has(key[:])
	if err != nil {
		return false, errors.Wrap(err, "has serial")
	}
	return has, nil
}

// SpentAt returns the height the serial was spent at.
func (s *Set) SpentAt(serial *big.Int) (uint32, bool, error) {
	key := Key(serial)
	data, err := s.store.Get(key[:])
	if err != nil {
		if s.store.IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "get serial")
	}
	return binary.BigEndian.Uint32(data), true, nil
}

// Insert marks the serial spent at height. Inserting a spent serial is a
// double spend.
func (s *Set) Insert(serial *big.Int, height uint32) error {
	if has, err := s.Has(serial); err != nil {
		return err
	} else if has {
		return kts.Reject(kts.ReasonDoubleSerial, "serial %#x", serial)
	}
	key := Key(serial)
	return s.store.Put(key[:], binary.BigEndian.AppendUint32(nil, height))
}

// Remove marks the serial unspent.
func (s *Set) Remove(serial *big.Int) error {
	key := Key(serial)
	if s.cache != nil {
		s.cache.c.Forget(key)
	}
	return s.store.Delete(key[:])
}
