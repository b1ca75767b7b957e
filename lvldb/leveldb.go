// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/pw512/klimatas-core/kv"
	"github.com/pw512/klimatas-core/metrics"
)

var _ kv.Store = (*LevelDB)(nil)

// Options options for creating level db instance.
type Options struct {
	CacheSize              int
	OpenFilesCacheCapacity int
}

var (
	writeOpt = opt.WriteOptions{}
	readOpt  = opt.ReadOptions{}
	scanOpt  = opt.ReadOptions{DontFillCache: true}
)

// the size a non-atomic bulk grows to before flushing.
const autoFlushSize = 32 * 1024

// LevelDB wraps level db impls.
type LevelDB struct {
	db        *leveldb.DB
	batchPool *sync.Pool
}

// New create a persistent level db instance.
// Create an empty one if not exists, or open if already there.
func New(path string, opts Options) (*LevelDB, error) {
	stg, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "new persistent level db")
	}
	return openLevelDB(stg, opts.CacheSize, opts.OpenFilesCacheCapacity)
}

// NewMem create a level db in memory.
func NewMem() (*LevelDB, error) {
	return openLevelDB(storage.NewMemStorage(), 0, 0)
}

func openLevelDB(stg storage.Storage, cacheSize, openFilesCacheCapacity int) (*LevelDB, error) {
	if cacheSize < 16 {
		cacheSize = 16
	}

	if openFilesCacheCapacity < 16 {
		openFilesCacheCapacity = 16
	}

	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: openFilesCacheCapacity,
		BlockCacheCapacity:     cacheSize / 2 * opt.MiB,
		WriteBuffer:            cacheSize / 4 * opt.MiB, // Two of these are used internally
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open level db")
	}
	return &LevelDB{
		db,
		&sync.Pool{
			New: func() any {
				return &leveldb.Batch{}
			},
		},
	}, nil
}

// IsNotFound to check if the error returned by Get indicates key not found.
func (ldb *LevelDB) IsNotFound(err error) bool {
	return err == leveldb.ErrNotFound
}

// Get retrieve value for given key.
// It returns an error if key not found. The error can be checked via IsNotFound.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	val, err := ldb.db.Get(key, &readOpt)
	// val will be []byte{} if error occurs, which is not expected
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Has returns whether a key exists.
func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.db.Has(key, &readOpt)
}

// Put save value fo give key.
func (ldb *LevelDB) Put(key, value []byte) error {
	return ldb.db.Put(key, value, &writeOpt)
}

// Delete deletes the give key and its value.
func (ldb *LevelDB) Delete(key []byte) error {
	return ldb.db.Delete(key, &writeOpt)
}

// Close close the level db.
// Later operations will all fail.
func (ldb *LevelDB) Close() error {
	return ldb.db.Close()
}

// Snapshot returns a consistent read-only view of the db.
// The returned snapshot must be released after use.
func (ldb *LevelDB) Snapshot() kv.Snapshot {
	s, err := ldb.db.GetSnapshot()
	if err != nil {
		return &errSnapshot{err}
	}
	return &struct {
		kv.GetFunc
		kv.HasFunc
		kv.IsNotFoundFunc
		kv.IterateFunc
		kv.ReleaseFunc
	}{
		func(key []byte) ([]byte, error) {
			val, err := s.Get(key, &readOpt)
			if err != nil {
				return nil, err
			}
			return val, nil
		},
		func(key []byte) (bool, error) { return s.Has(key, &readOpt) },
		ldb.IsNotFound,
		func(r kv.Range) kv.Iterator {
			return s.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, &scanOpt)
		},
		s.Release,
	}
}

// Bulk creates a bulk putter. Ops are buffered in a leveldb batch and written
// atomically by Write.
func (ldb *LevelDB) Bulk() kv.Bulk {
	batch := ldb.batchPool.Get().(*leveldb.Batch)
	batch.Reset()

	var (
		autoFlush bool
		written   bool
	)
	flushIfNeeded := func() error {
		if autoFlush && len(batch.Dump()) >= autoFlushSize {
			if err := ldb.db.Write(batch, &writeOpt); err != nil {
				return err
			}
			batch.Reset()
		}
		return nil
	}

	return &struct {
		kv.PutFunc
		kv.DeleteFunc
		kv.EnableAutoFlushFunc
		kv.WriteFunc
	}{
		func(key, val []byte) error {
			batch.Put(key, val)
			return flushIfNeeded()
		},
		func(key []byte) error {
			batch.Delete(key)
			return flushIfNeeded()
		},
		func() { autoFlush = true },
		func() error {
			if written {
				return errors.New("bulk already written")
			}
			written = true
			defer ldb.batchPool.Put(batch)
			if batch.Len() == 0 {
				return nil
			}
			return ldb.db.Write(batch, &writeOpt)
		},
	}
}

// Iterate create a iterator by range.
func (ldb *LevelDB) Iterate(r kv.Range) kv.Iterator {
	return ldb.db.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, &scanOpt)
}

// Stats returns backend statistics.
func (ldb *LevelDB) Stats() (metrics.StoreStats, error) {
	var s leveldb.DBStats
	if err := ldb.db.Stats(&s); err != nil {
		return metrics.StoreStats{}, err
	}
	return metrics.StoreStats{
		IORead:         s.IORead,
		IOWrite:        s.IOWrite,
		BlockCacheSize: s.BlockCacheSize,
		OpenedTables:   s.OpenedTablesCount,
		AliveSnapshots: s.AliveSnapshots,
		AliveIterators: s.AliveIterators,
	}, nil
}

// errSnapshot is returned when the db refuses to open a snapshot, e.g. after close.
type errSnapshot struct{ err error }

func (s *errSnapshot) Get([]byte) ([]byte, error)   { return nil, s.err }
func (s *errSnapshot) Has([]byte) (bool, error)     { return false, s.err }
func (s *errSnapshot) IsNotFound(error) bool        { return false }
func (s *errSnapshot) Iterate(kv.Range) kv.Iterator { return &errIterator{s.err} }
func (s *errSnapshot) Release()                     {}

type errIterator struct{ err error }

func (it *errIterator) First() bool   { return false }
func (it *errIterator) Last() bool    { return false }
func (it *errIterator) Next() bool    { return false }
func (it *errIterator) Prev() bool    { return false }
func (it *errIterator) Key() []byte   { return nil }
func (it *errIterator) Value() []byte { return nil }
func (it *errIterator) Release()      {}
func (it *errIterator) Error() error  { return it.err }
