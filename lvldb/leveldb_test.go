// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/scoreloop/kv"
)

func TestLevelDB(t *testing.T) {
	var (
		key        = []byte("123")
		value      = []byte("456")
		inValidKey = []byte("abc")
	)

	persistent, err := New(filepath.Join(t.TempDir(), "db"), Options{16, 16})
	require.NoError(t, err)
	defer persistent.Close()

	mem, err := NewMem()
	require.NoError(t, err)
	defer mem.Close()

	for _, db := range []*LevelDB{persistent, mem} {
		require.NoError(t, db.Put(key, value))

		got, err := db.Get(key)
		assert.NoError(t, err)
		assert.Equal(t, value, got)

		has, err := db.Has(key)
		assert.NoError(t, err)
		assert.True(t, has)

		has, err = db.Has(inValidKey)
		assert.NoError(t, err)
		assert.False(t, has)

		require.NoError(t, db.Delete(key))
		_, err = db.Get(key)
		assert.True(t, db.IsNotFound(err))
	}
}

func TestBulkAndSnapshot(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	snap := db.Snapshot()
	defer snap.Release()

	b := db.Bulk()
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	require.NoError(t, b.Put([]byte("b"), []byte("2")))
	assert.Equal(t, 2, b.Len())

	has, _ := db.Has([]byte("a"))
	assert.False(t, has, "bulk must not be visible before Write")

	require.NoError(t, b.Write())
	has, _ = db.Has([]byte("a"))
	assert.True(t, has)

	_, err = snap.Get([]byte("a"))
	assert.True(t, snap.IsNotFound(err), "snapshot must not see later writes")
}

func TestBucketIterate(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("prep1"), []byte("a")))
	require.NoError(t, db.Put([]byte("prep2"), []byte("b")))
	require.NoError(t, db.Put([]byte("inv1"), []byte("c")))

	store := kv.Bucket("prep").NewStore(db)
	it := store.Iterate(kv.Range{})
	defer it.Release()

	var keys, values []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
		values = append(values, string(it.Value()))
	}
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"1", "2"}, keys)
	assert.Equal(t, []string{"a", "b"}, values)
}
