// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chainstate

import (
	"bytes"
	"slices"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/pw512/klimatas-core/accumulator"
	"github.com/pw512/klimatas-core/kv"
	"github.com/pw512/klimatas-core/serials"
	"github.com/pw512/klimatas-core/stackedmap"
)

var errNotFound = errors.New("not found")

var _ kv.View = (*Stage)(nil)

// Stage is a writable view of the state at a tip. Writes are kept in memory
// until the stage is committed; an uncommitted stage is simply released.
type Stage struct {
	state   *State
	snap    kv.Snapshot
	base    *Summary
	tip     *Summary
	overlay *stackedmap.StackedMap
	spent   *serials.Bounded
}

func newStage(state *State, snap kv.Snapshot, base *Summary, spent *serials.Bounded) *Stage {
	st := &Stage{
		state: state,
		snap:  snap,
		base:  base,
		spent: spent,
	}
	st.overlay = stackedmap.New(func(key any) (any, bool, error) {
		val, err := snap.Get([]byte(key.(string)))
		if err != nil {
			if snap.IsNotFound(err) {
				return nil, false, nil
			}
			return nil, false, err
		}
		return val, true, nil
	})
	return st
}

// Base returns the tip the stage was opened at.
func (st *Stage) Base() *Summary { return st.base }

// Tip returns the staged tip, or the base if no tip was staged.
func (st *Stage) Tip() *Summary {
	if st.tip != nil {
		return st.tip
	}
	return st.base
}

// SetTip stages the summary of a new tip. It must be the child of the base.
func (st *Stage) SetTip(s *Summary) error {
	if s.Height != st.base.Height+1 {
		return errors.Errorf("stage tip %v does not extend base %v", s.Height, st.base.Height)
	}
	data, err := rlp.EncodeToBytes(s)
	if err != nil {
		return err
	}
	if err := headerBucket.NewPutter(st).Put(heightKey(s.Height), data); err != nil {
		return err
	}
	if err := metaBucket.NewPutter(st).Put(tipKey, data); err != nil {
		return err
	}
	st.tip = s
	return nil
}

// Summary returns the summary of the block at height.
func (st *Stage) Summary(height uint32) (*Summary, error) {
	return loadSummary(headerBucket.NewGetter(st), heightKey(height))
}

// Ledger returns the accumulator ledger over the stage.
func (st *Stage) Ledger() *accumulator.Ledger {
	return accumulator.New(st.state.params, st)
}

// Serials returns the serial set over the stage.
func (st *Stage) Serials() *serials.Set {
	return serials.New(st, st.spent)
}

// Get implements kv.Getter.
func (st *Stage) Get(key []byte) ([]byte, error) {
	v, ok, err := st.overlay.Get(string(key))
	if err != nil {
		return nil, err
	}
	if !ok || v.([]byte) == nil {
		return nil, errNotFound
	}
	return v.([]byte), nil
}

// Has implements kv.Getter.
func (st *Stage) Has(key []byte) (bool, error) {
	v, ok, err := st.overlay.Get(string(key))
	if err != nil {
		return false, err
	}
	return ok && v.([]byte) != nil, nil
}

// IsNotFound implements kv.Getter.
func (st *Stage) IsNotFound(err error) bool {
	return err == errNotFound
}

// Put implements kv.Putter.
func (st *Stage) Put(key, val []byte) error {
	st.overlay.Put(string(key), append([]byte{}, val...))
	return nil
}

// Delete implements kv.Putter.
func (st *Stage) Delete(key []byte) error {
	st.overlay.Put(string(key), []byte(nil))
	return nil
}

// Iterate iterates the staged view over the range.
func (st *Stage) Iterate(r kv.Range) kv.Iterator {
	var over []overlayEntry
	for _, e := range st.entries() {
		if bytes.Compare(e.key, r.Start) >= 0 && (len(r.Limit) == 0 || bytes.Compare(e.key, r.Limit) < 0) {
			over = append(over, e)
		}
	}
	return newMergedIterator(st.snap.Iterate(r), over)
}

// entries returns the final value of every staged key, ordered by key.
func (st *Stage) entries() []overlayEntry {
	final := make(map[string][]byte)
	st.overlay.Journal(func(k, v any) bool {
		final[k.(string)] = v.([]byte)
		return true
	})
	entries := make([]overlayEntry, 0, len(final))
	for k, v := range final {
		entries = append(entries, overlayEntry{[]byte(k), v})
	}
	slices.SortFunc(entries, func(a, b overlayEntry) int {
		return bytes.Compare(a.key, b.key)
	})
	return entries
}

// Len returns the number of staged keys.
func (st *Stage) Len() int {
	return len(st.entries())
}

// Release releases the snapshot the stage reads from.
func (st *Stage) Release() {
	st.snap.Release()
}
