// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pw512/klimatas-core/kv"
)

func TestLevelDB(t *testing.T) {
	var (
		key        = []byte("123")
		value      = []byte("456")
		inValidKey = []byte("abc")
	)

	disk, err := New(filepath.Join(t.TempDir(), "lvldb"), Options{16, 16})
	require.NoError(t, err)
	defer disk.Close()

	mem, err := NewMem()
	require.NoError(t, err)
	defer mem.Close()

	for _, db := range []*LevelDB{disk, mem} {
		assert.Nil(t, db.Put(key, value))

		got, err := db.Get(key)
		assert.Nil(t, err)
		assert.Equal(t, value, got)

		has, err := db.Has(key)
		assert.Nil(t, err)
		assert.True(t, has)

		has, err = db.Has(inValidKey)
		assert.Nil(t, err)
		assert.False(t, has)

		assert.Nil(t, db.Delete(key))
		_, err = db.Get(key)
		assert.True(t, db.IsNotFound(err))
	}
}

func TestLevelDBBulk(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	bulk := db.Bulk()
	assert.Nil(t, bulk.Put([]byte("a"), []byte("1")))
	assert.Nil(t, bulk.Put([]byte("b"), []byte("2")))

	// not visible before write
	has, _ := db.Has([]byte("a"))
	assert.False(t, has)

	assert.Nil(t, bulk.Write())
	got, err := db.Get([]byte("b"))
	assert.Nil(t, err)
	assert.Equal(t, []byte("2"), got)

	assert.Error(t, bulk.Write(), "second write must fail")

	bulk = db.Bulk()
	assert.Nil(t, bulk.Delete([]byte("a")))
	assert.Nil(t, bulk.Write())
	has, _ = db.Has([]byte("a"))
	assert.False(t, has)
}

func TestLevelDBSnapshot(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("k"), []byte("v1")))
	snap := db.Snapshot()
	defer snap.Release()

	require.NoError(t, db.Put([]byte("k"), []byte("v2")))
	require.NoError(t, db.Put([]byte("n"), []byte("x")))

	got, err := snap.Get([]byte("k"))
	assert.Nil(t, err)
	assert.Equal(t, []byte("v1"), got)

	_, err = snap.Get([]byte("n"))
	assert.True(t, snap.IsNotFound(err))
}

func TestLevelDBIterateBucket(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	a := kv.Bucket("a").NewStore(db)
	b := kv.Bucket("b").NewStore(db)
	for _, k := range []string{"3", "1", "2"} {
		require.NoError(t, a.Put([]byte(k), []byte("a"+k)))
	}
	require.NoError(t, b.Put([]byte("1"), []byte("b1")))

	var keys []string
	it := a.Iterate(kv.Range{})
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	it.Release()
	assert.Nil(t, it.Error())
	assert.Equal(t, []string{"1", "2", "3"}, keys)

	it = a.Iterate(kv.Range{Start: []byte("2")})
	assert.True(t, it.Last())
	assert.Equal(t, "3", string(it.Key()))
	assert.Equal(t, "a3", string(it.Value()))
	it.Release()

	snap := b.Snapshot()
	it = snap.Iterate(kv.Range{})
	keys = keys[:0]
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	it.Release()
	snap.Release()
	assert.Equal(t, []string{"1"}, keys)
}

func TestLevelDBStats(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	snap := db.Snapshot()
	s, err := db.Stats()
	assert.Nil(t, err)
	assert.Equal(t, int32(1), s.AliveSnapshots)
	snap.Release()

	db.Close()
	_, err = db.Stats()
	assert.Error(t, err)
}
