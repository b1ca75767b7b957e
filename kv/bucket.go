// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb/util"
)

// Bucket provides logical bucket for kv store.
// Keys written through a bucket are prefixed with the bucket name, so
// buckets with distinct single-byte names never overlap.
type Bucket string

// Key returns the full key of the given bucket key.
func (b Bucket) Key(key []byte) []byte {
	return append(append(make([]byte, 0, len(b)+len(key)), b...), key...)
}

// NewGetter creates a bucket getter from the source getter.
func (b Bucket) NewGetter(src Getter) Getter {
	return &struct {
		GetFunc
		HasFunc
		IsNotFoundFunc
	}{
		func(key []byte) ([]byte, error) {
			buf := bufPool.Get().(*buf)
			defer bufPool.Put(buf)
			buf.k = append(append(buf.k[:0], b...), key...)

			return src.Get(buf.k)
		},
		func(key []byte) (bool, error) {
			buf := bufPool.Get().(*buf)
			defer bufPool.Put(buf)
			buf.k = append(append(buf.k[:0], b...), key...)

			return src.Has(buf.k)
		},
		src.IsNotFound,
	}
}

// NewPutter creates a bucket putter from the source putter.
func (b Bucket) NewPutter(src Putter) Putter {
	return &struct {
		PutFunc
		DeleteFunc
	}{
		func(key, val []byte) error {
			buf := bufPool.Get().(*buf)
			defer bufPool.Put(buf)
			buf.k = append(append(buf.k[:0], b...), key...)

			return src.Put(buf.k, val)
		},
		func(key []byte) error {
			buf := bufPool.Get().(*buf)
			defer bufPool.Put(buf)
			buf.k = append(append(buf.k[:0], b...), key...)

			return src.Delete(buf.k)
		},
	}
}

// NewSnapshot creates a bucket snapshot from the source snapshot.
func (b Bucket) NewSnapshot(src Snapshot) Snapshot {
	return &struct {
		Getter
		IterateFunc
		ReleaseFunc
	}{
		b.NewGetter(src),
		b.iterateFunc(src.Iterate),
		src.Release,
	}
}

// NewBulk creates a bucket bulk from the source bulk.
func (b Bucket) NewBulk(src Bulk) Bulk {
	return &struct {
		Putter
		EnableAutoFlushFunc
		WriteFunc
	}{
		b.NewPutter(src),
		src.EnableAutoFlush,
		src.Write,
	}
}

// NewGetPutter creates a bucket getter-putter from the source.
func (b Bucket) NewGetPutter(src GetPutter) GetPutter {
	return &struct {
		Getter
		Putter
	}{
		b.NewGetter(src),
		b.NewPutter(src),
	}
}

// NewView creates a bucket view from the source view.
func (b Bucket) NewView(src View) View {
	return &struct {
		Getter
		Putter
		IterateFunc
	}{
		b.NewGetter(src),
		b.NewPutter(src),
		b.iterateFunc(src.Iterate),
	}
}

// NewStore creates a bucket store from the source store.
func (b Bucket) NewStore(src Store) Store {
	return &struct {
		Getter
		Putter
		SnapshotFunc
		BulkFunc
		IterateFunc
	}{
		b.NewGetter(src),
		b.NewPutter(src),
		func() Snapshot { return b.NewSnapshot(src.Snapshot()) },
		func() Bulk { return b.NewBulk(src.Bulk()) },
		b.iterateFunc(src.Iterate),
	}
}

func (b Bucket) iterateFunc(src func(Range) Iterator) IterateFunc {
	return func(r Range) Iterator {
		r.Start = b.Key(r.Start)
		if len(r.Limit) == 0 {
			r.Limit = util.BytesPrefix([]byte(b)).Limit
		} else {
			r.Limit = b.Key(r.Limit)
		}
		iter := src(r)
		return &struct {
			FirstFunc
			LastFunc
			NextFunc
			PrevFunc
			KeyFunc
			ValueFunc
			ReleaseFunc
			ErrorFunc
		}{
			iter.First,
			iter.Last,
			iter.Next,
			iter.Prev,
			// strip the bucket
			func() []byte { return iter.Key()[len(b):] },
			iter.Value,
			iter.Release,
			iter.Error,
		}
	}
}

type buf struct {
	k []byte
}

var bufPool = sync.Pool{
	New: func() any {
		return &buf{}
	},
}
