// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emylabs/emy/kv"
	"github.com/emylabs/emy/lvldb"
)

func TestBucket(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	b1 := kv.Bucket("a")
	b2 := kv.Bucket("b")

	require.NoError(t, b1.NewPutter(db).Put([]byte("k"), []byte("v1")))
	require.NoError(t, b2.NewPutter(db).Put([]byte("k"), []byte("v2")))

	v, err := b1.NewGetter(db).Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	v, err = db.Get([]byte("bk"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)

	require.NoError(t, b1.NewPutter(db).Delete([]byte("k")))
	_, err = b1.NewGetter(db).Get([]byte("k"))
	assert.True(t, b1.NewGetter(db).IsNotFound(err))
}

func TestBucketIterate(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	b := kv.Bucket("n")
	for _, k := range []string{"1", "2", "3"} {
		require.NoError(t, b.NewPutter(db).Put([]byte(k), []byte("v"+k)))
	}
	// neighbours outside the bucket
	require.NoError(t, db.Put([]byte("m9"), nil))
	require.NoError(t, db.Put([]byte("o0"), nil))

	var keys, values []string
	it := b.Iterate(db, []byte("2"))
	for it.Next() {
		keys = append(keys, string(it.Key()))
		values = append(values, string(it.Value()))
	}
	it.Release()
	require.NoError(t, it.Error())

	assert.Equal(t, []string{"2", "3"}, keys)
	assert.Equal(t, []string{"v2", "v3"}, values)

	it = b.Iterate(db, nil)
	n := 0
	for it.Next() {
		n++
	}
	it.Release()
	assert.Equal(t, 3, n)
}
