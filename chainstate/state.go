// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package chainstate persists the validation state: block summaries, the
// accumulator ledger and the serial set. A block's effects are staged in
// memory and committed in one atomic write together with an undo record,
// which lets the tip be rolled back up to the maximum reorg depth.
package chainstate

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/pw512/klimatas-core/kts"
	"github.com/pw512/klimatas-core/kv"
	"github.com/pw512/klimatas-core/log"
	"github.com/pw512/klimatas-core/metrics"
	"github.com/pw512/klimatas-core/params"
	"github.com/pw512/klimatas-core/serials"
)

var logger = log.WithContext("pkg", "chainstate")

const (
	metaBucket   kv.Bucket = "m"
	headerBucket kv.Bucket = "h" // height => summary
	undoBucket   kv.Bucket = "u" // height => undo record
)

var (
	tipKey  = []byte("tip")
	bestKey = []byte("best")
)

var (
	metricOps       = metrics.LazyLoadCounterVec("chainstate_ops_count", []string{"op"})
	metricUndoBytes = metrics.LazyLoadHistogram("chainstate_undo_bytes", []int64{64, 256, 1024, 4096, 16384, 65536})
)

// ErrStaleStage is returned when committing a stage opened at a tip that is
// no longer current.
var ErrStaleStage = errors.New("stage base is not the current tip")

// Summary is what validating a child block needs to know about a block.
type Summary struct {
	ID       kts.Bytes32
	Height   uint32
	Time     uint64
	Bits     uint32
	Modifier kts.Bytes32 // stake modifier after this block
}

func (s *Summary) String() string {
	return fmt.Sprintf("#%v %v", s.Height, s.ID.AbbrevString())
}

// Options tunes the state.
type Options struct {
	SerialCacheSize int
}

// State is the persistent validation state. Stages may be opened and
// evaluated concurrently; Commit and Rollback are serialized.
type State struct {
	params  *params.Params
	store   kv.Store
	serials *serials.Cache

	lock sync.Mutex
	tip  atomic.Pointer[Summary]
	best atomic.Uint32 // highest tip height reached
}

// New opens the state in store, initializing the genesis state on first use.
func New(store kv.Store, p *params.Params, opts Options) (*State, error) {
	if opts.SerialCacheSize <= 0 {
		opts.SerialCacheSize = 65536
	}
	cache, err := serials.NewCache(opts.SerialCacheSize)
	if err != nil {
		return nil, err
	}
	s := &State{
		params:  p,
		store:   store,
		serials: cache,
	}

	tip, err := loadSummary(metaBucket.NewGetter(store), tipKey)
	if err != nil {
		if !store.IsNotFound(errors.Cause(err)) {
			return nil, errors.Wrap(err, "load tip")
		}
		if err := s.initGenesis(); err != nil {
			return nil, err
		}
		return s, nil
	}

	genesis, err := loadSummary(headerBucket.NewGetter(store), heightKey(0))
	if err != nil {
		return nil, errors.Wrap(err, "load genesis")
	}
	if genesis.ID != p.GenesisID {
		return nil, kts.Fatal("genesis mismatch: stored %v, %v wants %v", genesis.ID, p.Name, p.GenesisID)
	}
	best, err := metaBucket.NewGetter(store).Get(bestKey)
	if err != nil {
		return nil, errors.Wrap(err, "load best")
	}
	s.tip.Store(tip)
	s.best.Store(binary.BigEndian.Uint32(best))
	logger.Debug("state opened", "tip", tip, "best", s.best.Load())
	return s, nil
}

func (s *State) initGenesis() error {
	genesis := &Summary{
		ID:     s.params.GenesisID,
		Height: 0,
		Time:   s.params.GenesisTime,
	}
	data, err := rlp.EncodeToBytes(genesis)
	if err != nil {
		return err
	}
	st := newStage(s, s.store.Snapshot(), genesis, nil)
	defer st.Release()

	if _, err := st.Ledger().ConnectBlock(0, nil); err != nil {
		return err
	}
	if err := headerBucket.NewPutter(st).Put(heightKey(0), data); err != nil {
		return err
	}
	if err := metaBucket.NewPutter(st).Put(tipKey, data); err != nil {
		return err
	}
	if err := metaBucket.NewPutter(st).Put(bestKey, heightKey(0)); err != nil {
		return err
	}

	bulk := s.store.Bulk()
	for _, e := range st.entries() {
		if err := bulk.Put(e.key, e.val); err != nil {
			return err
		}
	}
	if err := bulk.Write(); err != nil {
		return errors.Wrap(err, "write genesis")
	}
	s.tip.Store(genesis)
	logger.Info("initialized genesis state", "network", s.params.Name, "id", genesis.ID)
	return nil
}

// Params returns the params.
func (s *State) Params() *params.Params { return s.params }

// Tip returns the current tip.
func (s *State) Tip() *Summary { return s.tip.Load() }

// Best returns the highest tip height reached. Rollback depth is measured
// from it.
func (s *State) Best() uint32 { return s.best.Load() }

// SerialCache returns the committed serial cache.
func (s *State) SerialCache() *serials.Cache { return s.serials }

// NewStage opens a stage at the current tip. It also serves as a consistent
// read-only view; release it when done.
func (s *State) NewStage() (*Stage, error) {
	gen := s.serials.Generation()
	snap := s.store.Snapshot()
	tip, err := loadSummary(metaBucket.NewGetter(snap), tipKey)
	if err != nil {
		snap.Release()
		return nil, errors.Wrap(err, "load tip")
	}
	return newStage(s, snap, tip, s.serials.Bound(gen, tip.Height)), nil
}

// Commit atomically writes the stage, which must extend the current tip by
// one block. The stage should be released afterwards.
func (s *State) Commit(st *Stage) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	tip := s.Tip()
	if st.base.ID != tip.ID || st.base.Height != tip.Height {
		return ErrStaleStage
	}
	if st.tip == nil {
		return errors.New("stage has no tip")
	}

	entries := st.entries()
	undo := make([]undoEntry, 0, len(entries))
	for _, e := range entries {
		prev, err := st.snap.Get(e.key)
		if err != nil {
			if !st.snap.IsNotFound(err) {
				return errors.Wrap(err, "read undo")
			}
			undo = append(undo, undoEntry{Key: e.key})
			continue
		}
		undo = append(undo, undoEntry{Key: e.key, Value: prev, Exists: true})
	}
	undoData, err := encodeUndo(undo)
	if err != nil {
		return err
	}

	bulk := s.store.Bulk()
	for _, e := range entries {
		if e.val == nil {
			err = bulk.Delete(e.key)
		} else {
			err = bulk.Put(e.key, e.val)
		}
		if err != nil {
			return err
		}
	}
	height := st.tip.Height
	if err := undoBucket.NewPutter(bulk).Put(heightKey(height), undoData); err != nil {
		return err
	}
	best := s.best.Load()
	if height > best {
		best = height
		if err := metaBucket.NewPutter(bulk).Put(bestKey, heightKey(best)); err != nil {
			return err
		}
		// undo records at or below best-MaxReorgDepth can never be used
		if best >= s.params.MaxReorgDepth {
			if err := undoBucket.NewPutter(bulk).Delete(heightKey(best - s.params.MaxReorgDepth)); err != nil {
				return err
			}
		}
	}
	if err := bulk.Write(); err != nil {
		return errors.Wrap(err, "write stage")
	}

	s.tip.Store(st.tip)
	s.best.Store(best)
	for _, e := range entries {
		if e.val != nil && len(e.key) == len(serials.Bucket)+32 && string(e.key[:len(serials.Bucket)]) == string(serials.Bucket) {
			s.serials.Add(kts.BytesToBytes32(e.key[len(serials.Bucket):]), height)
		}
	}

	metricOps().AddWithLabel(1, map[string]string{"op": "commit"})
	metricUndoBytes().Observe(int64(len(undoData)))
	logger.Debug("committed", "tip", st.tip, "keys", len(entries), "undo", len(undoData))
	return nil
}

// Rollback reverts the tip block from its undo record and returns the new
// tip. Rolling back reaching the max reorg depth below the best height, or a
// block at or below the last hard checkpoint, is refused with a fatal error.
func (s *State) Rollback() (*Summary, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	tip := s.Tip()
	best := s.best.Load()
	if tip.Height == 0 {
		return nil, errors.New("cannot roll back genesis")
	}
	if depth := best - tip.Height; depth >= s.params.MaxReorgDepth {
		return nil, kts.Fatal("reorg depth %v reaches max %v, tip %v best %v", depth+1, s.params.MaxReorgDepth, tip.Height, best)
	}
	if h, ok := s.params.LastCheckpoint(); ok && tip.Height <= h {
		return nil, kts.Fatal("tip %v at or below checkpoint #%v", tip, h)
	}

	data, err := undoBucket.NewGetter(s.store).Get(heightKey(tip.Height))
	if err != nil {
		if s.store.IsNotFound(err) {
			return nil, kts.Fatal("missing undo record of %v", tip)
		}
		return nil, errors.Wrap(err, "get undo")
	}
	undo, err := decodeUndo(data)
	if err != nil {
		return nil, kts.Fatal("corrupted undo record of %v: %v", tip, err)
	}

	bulk := s.store.Bulk()
	for _, e := range undo {
		if e.Exists {
			err = bulk.Put(e.Key, e.Value)
		} else {
			err = bulk.Delete(e.Key)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := undoBucket.NewPutter(bulk).Delete(heightKey(tip.Height)); err != nil {
		return nil, err
	}
	if err := bulk.Write(); err != nil {
		return nil, errors.Wrap(err, "write rollback")
	}

	newTip, err := loadSummary(metaBucket.NewGetter(s.store), tipKey)
	if err != nil {
		return nil, errors.Wrap(err, "load tip")
	}
	s.tip.Store(newTip)
	s.serials.Purge()

	metricOps().AddWithLabel(1, map[string]string{"op": "rollback"})
	logger.Info("rolled back", "from", tip, "to", newTip, "best", best)
	return newTip, nil
}

type undoEntry struct {
	Key    []byte
	Value  []byte
	Exists bool
}

func encodeUndo(entries []undoEntry) ([]byte, error) {
	data, err := rlp.EncodeToBytes(entries)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, data), nil
}

func decodeUndo(data []byte) ([]undoEntry, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, err
	}
	var entries []undoEntry
	if err := rlp.DecodeBytes(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func loadSummary(getter kv.Getter, key []byte) (*Summary, error) {
	data, err := getter.Get(key)
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := rlp.DecodeBytes(data, &s); err != nil {
		return nil, errors.Wrap(err, "decode summary")
	}
	return &s, nil
}

func heightKey(h uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, h)
}
