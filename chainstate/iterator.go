// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chainstate

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/pw512/klimatas-core/kv"
)

var errDirection = errors.New("iterator direction changed")

type overlayEntry struct {
	key []byte
	val []byte // nil for deleted
}

// mergedIterator merges the staged entries over a snapshot iterator. Staged
// entries shadow snapshot entries with the same key, and deleted entries hide
// them. The direction is fixed by the first move.
type mergedIterator struct {
	snap    kv.Iterator
	over    []overlayEntry
	i       int
	snapOK  bool
	dir     int // 0 unpositioned, 1 forward, -1 backward
	fromSet bool
	done    bool
	err     error
}

func newMergedIterator(snap kv.Iterator, over []overlayEntry) *mergedIterator {
	return &mergedIterator{snap: snap, over: over}
}

func (it *mergedIterator) First() bool {
	if it.dir == -1 {
		it.err = errDirection
		return false
	}
	it.dir = 1
	it.snapOK = it.snap.First()
	it.i = 0
	return it.settle()
}

func (it *mergedIterator) Last() bool {
	if it.dir == 1 {
		it.err = errDirection
		return false
	}
	it.dir = -1
	it.snapOK = it.snap.Last()
	it.i = len(it.over) - 1
	return it.settle()
}

func (it *mergedIterator) Next() bool {
	switch it.dir {
	case 0:
		return it.First()
	case -1:
		it.err = errDirection
		return false
	}
	if it.done {
		return false
	}
	it.advance()
	return it.settle()
}

func (it *mergedIterator) Prev() bool {
	switch it.dir {
	case 0:
		return it.Last()
	case 1:
		it.err = errDirection
		return false
	}
	if it.done {
		return false
	}
	it.advance()
	return it.settle()
}

func (it *mergedIterator) advance() {
	if it.fromSet {
		it.i += it.dir
	} else {
		it.snapOK = it.moveSnap()
	}
}

func (it *mergedIterator) moveSnap() bool {
	if it.dir > 0 {
		return it.snap.Next()
	}
	return it.snap.Prev()
}

// settle positions on the next visible entry in the current direction.
func (it *mergedIterator) settle() bool {
	for {
		overOK := it.i >= 0 && it.i < len(it.over)
		if !overOK && !it.snapOK {
			it.done = true
			return false
		}

		fromSet := overOK
		if overOK && it.snapOK {
			c := bytes.Compare(it.over[it.i].key, it.snap.Key()) * it.dir
			if c == 0 {
				// shadowed
				it.snapOK = it.moveSnap()
				continue
			}
			fromSet = c < 0
		}
		if fromSet && it.over[it.i].val == nil {
			it.i += it.dir
			continue
		}
		it.fromSet = fromSet
		return true
	}
}

func (it *mergedIterator) Key() []byte {
	if it.done || it.dir == 0 {
		return nil
	}
	if it.fromSet {
		return it.over[it.i].key
	}
	return it.snap.Key()
}

func (it *mergedIterator) Value() []byte {
	if it.done || it.dir == 0 {
		return nil
	}
	if it.fromSet {
		return it.over[it.i].val
	}
	return it.snap.Value()
}

func (it *mergedIterator) Release() {
	it.snap.Release()
}

func (it *mergedIterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.snap.Error()
}
