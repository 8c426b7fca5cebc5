// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emylabs/emy/kv"
)

func TestLevelDB(t *testing.T) {
	var (
		key   = []byte("123")
		value = []byte("456")
	)

	disk, err := New(filepath.Join(t.TempDir(), "db"), Options{CacheSize: 16, OpenFilesCacheCapacity: 16})
	require.NoError(t, err)
	defer disk.Close()

	mem, err := NewMem()
	require.NoError(t, err)
	defer mem.Close()

	for _, db := range []*LevelDB{disk, mem} {
		require.NoError(t, db.Put(key, value))

		got, err := db.Get(key)
		require.NoError(t, err)
		assert.Equal(t, value, got)

		_, err = db.Get([]byte("abc"))
		assert.True(t, db.IsNotFound(err))

		require.NoError(t, db.Delete(key))
		_, err = db.Get(key)
		assert.True(t, db.IsNotFound(err))
	}
}

func TestLevelDBBatch(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	b := db.NewBatch()
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	require.NoError(t, b.Put([]byte("b"), []byte("2")))
	require.NoError(t, b.Delete([]byte("a")))
	assert.Equal(t, 3, b.Len())

	_, err = db.Get([]byte("b"))
	assert.True(t, db.IsNotFound(err), "batch not written yet")

	require.NoError(t, b.Write())

	v, err := db.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	_, err = db.Get([]byte("a"))
	assert.True(t, db.IsNotFound(err))
}

func TestLevelDBIterateSnapshot(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, db.Put([]byte(k), []byte(k)))
	}

	it := db.Iterate(kv.Range{Start: []byte("b"), Limit: []byte("d")})
	// not visible to an open iterator
	require.NoError(t, db.Put([]byte("bb"), nil))

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	it.Release()
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"b", "c"}, keys)
}
