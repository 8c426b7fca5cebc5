// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import "github.com/syndtr/goleveldb/leveldb/util"

// Bucket namespaces keys of one kind by a common prefix.
type Bucket string

// Key returns the prefixed key.
func (b Bucket) Key(key []byte) []byte {
	return append([]byte(b), key...)
}

func (b Bucket) NewGetter(src Getter) Getter {
	return &bucketGetter{b, src}
}

func (b Bucket) NewPutter(src Putter) Putter {
	return &bucketPutter{b, src}
}

// From returns the range of bucket keys not less than key.
func (b Bucket) From(key []byte) Range {
	return Range{
		Start: b.Key(key),
		Limit: util.BytesPrefix([]byte(b)).Limit,
	}
}

// Iterate walks the bucket from key on. Keys are yielded without the
// bucket prefix.
func (b Bucket) Iterate(src Store, key []byte) Iterator {
	return &bucketIterator{src.Iterate(b.From(key)), len(b)}
}

type bucketGetter struct {
	b   Bucket
	src Getter
}

func (g *bucketGetter) Get(key []byte) ([]byte, error) { return g.src.Get(g.b.Key(key)) }
func (g *bucketGetter) IsNotFound(err error) bool      { return g.src.IsNotFound(err) }

type bucketPutter struct {
	b   Bucket
	src Putter
}

func (p *bucketPutter) Put(key, val []byte) error { return p.src.Put(p.b.Key(key), val) }
func (p *bucketPutter) Delete(key []byte) error   { return p.src.Delete(p.b.Key(key)) }

type bucketIterator struct {
	Iterator
	prefixLen int
}

func (it *bucketIterator) Key() []byte { return it.Iterator.Key()[it.prefixLen:] }
