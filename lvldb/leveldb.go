// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package lvldb implements kv.Store on goleveldb, on disk or in memory.
package lvldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/emylabs/emy/kv"
)

var _ kv.StoreCloser = (*LevelDB)(nil)

// minimum of both the cache size in MB and the open files capacity
const minCapacity = 16

// Options tunes the database. Values below the minimum are raised to it.
type Options struct {
	// CacheSize in MB, split between the block cache and the write buffer.
	CacheSize              int
	OpenFilesCacheCapacity int
}

func (o Options) toLevelDB() *opt.Options {
	cacheSize := max(o.CacheSize, minCapacity)
	return &opt.Options{
		OpenFilesCacheCapacity: max(o.OpenFilesCacheCapacity, minCapacity),
		BlockCacheCapacity:     cacheSize / 2 * opt.MiB,
		// two write buffers may be alive during compaction
		WriteBuffer: cacheSize / 4 * opt.MiB,
		Filter:      filter.NewBloomFilter(10),
	}
}

var (
	readOpts  = &opt.ReadOptions{}
	writeOpts = &opt.WriteOptions{}
)

// LevelDB is a kv store backed by goleveldb.
type LevelDB struct {
	db *leveldb.DB
}

// New opens the database at path, creating it if absent.
func New(path string, opts Options) (*LevelDB, error) {
	stg, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "open leveldb storage")
	}
	return open(stg, opts)
}

// NewMem creates a database held in memory, for tests and dry runs.
func NewMem() (*LevelDB, error) {
	return open(storage.NewMemStorage(), Options{})
}

func open(stg storage.Storage, opts Options) (*LevelDB, error) {
	db, err := leveldb.Open(stg, opts.toLevelDB())
	if err != nil {
		return nil, errors.Wrap(err, "open leveldb")
	}
	return &LevelDB{db}, nil
}

func (l *LevelDB) IsNotFound(err error) bool {
	return errors.Is(err, leveldb.ErrNotFound)
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	return l.db.Get(key, readOpts)
}

func (l *LevelDB) Put(key, value []byte) error {
	return l.db.Put(key, value, writeOpts)
}

func (l *LevelDB) Delete(key []byte) error {
	return l.db.Delete(key, writeOpts)
}

// Close releases the database. Later operations fail.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

func (l *LevelDB) NewBatch() kv.Batch {
	return &batch{l.db, new(leveldb.Batch)}
}

// Iterate iterates a consistent snapshot of r taken at the call.
func (l *LevelDB) Iterate(r kv.Range) kv.Iterator {
	return l.db.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, readOpts)
}

type batch struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	return nil
}

func (b *batch) Len() int     { return b.b.Len() }
func (b *batch) Write() error { return b.db.Write(b.b, writeOpts) }
