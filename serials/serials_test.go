// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package serials

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pw512/klimatas-core/kts"
	"github.com/pw512/klimatas-core/lvldb"
)

func TestSet(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	set := New(db, nil)
	serial := big.NewInt(12345)

	has, err := set.Has(serial)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, set.Insert(serial, 7))
	has, _ = set.Has(serial)
	assert.True(t, has)

	h, ok, err := set.SpentAt(serial)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(7), h)

	err = set.Insert(serial, 8)
	reason, _ := kts.ReasonOf(err)
	assert.Equal(t, kts.ReasonDoubleSerial, reason)

	require.NoError(t, set.Remove(serial))
	has, _ = set.Has(serial)
	assert.False(t, has)
	require.NoError(t, set.Insert(serial, 9), "removed serial can be spent again")

	// bucketed
	has, _ = db.Has(append([]byte(Bucket), Key(serial).Bytes()...))
	assert.True(t, has)
}

func TestSetCache(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	c, err := NewCache(16)
	require.NoError(t, err)
	set := New(db, c.Bound(c.Generation(), 10))
	serial := big.NewInt(42)

	require.NoError(t, set.Insert(serial, 1))
	c.Add(Key(serial), 1)

	has, _ := set.Has(serial)
	assert.True(t, has)
	_, hit, _ := c.Stats()
	assert.Equal(t, int64(1), hit)

	require.NoError(t, set.Remove(serial))
	has, _ = set.Has(serial)
	assert.False(t, has, "remove invalidates the cache")

	c.Add(Key(serial), 1)
	c.Purge()
	has, _ = set.Has(serial)
	assert.False(t, has)
}

func TestCacheBounds(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	c, err := NewCache(16)
	require.NoError(t, err)
	serial := big.NewInt(7)

	gen := c.Generation()
	atTen := New(db, c.Bound(gen, 10))

	// spent by a block above the base
	c.Add(Key(serial), 11)
	has, _ := atTen.Has(serial)
	assert.False(t, has)
	has, _ = New(db, c.Bound(gen, 11)).Has(serial)
	assert.True(t, has)

	// spent on another branch after a purge
	c.Purge()
	c.Add(Key(serial), 5)
	has, _ = atTen.Has(serial)
	assert.False(t, has)
	has, _ = New(db, c.Bound(c.Generation(), 10)).Has(serial)
	assert.True(t, has)
}
