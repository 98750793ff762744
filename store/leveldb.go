// Copyright (c) 2019 Perlin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package store

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var _ WriteBatch = (*leveldbWriteBatch)(nil)

type leveldbWriteBatch struct {
	batch *leveldb.Batch
}

func (b *leveldbWriteBatch) Put(key, value []byte) {
	b.batch.Put(key, value)
}

func (b *leveldbWriteBatch) Delete(key []byte) {
	b.batch.Delete(key)
}

func (b *leveldbWriteBatch) Clear() {
	b.batch.Reset()
}

func (b *leveldbWriteBatch) Count() int {
	return b.batch.Len()
}

func (b *leveldbWriteBatch) Destroy() {
	b.batch = nil
}

var _ KV = (*leveldbKV)(nil)

type leveldbKV struct {
	db *leveldb.DB
}

func NewLevelDB(dir string) (*leveldbKV, error) {
	opts := &opt.Options{
		Filter:       filter.NewBloomFilter(10),
		NoWriteMerge: true,
	}

	db, err := leveldb.OpenFile(dir, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Level DB")
	}

	return &leveldbKV{db: db}, nil
}

func (l *leveldbKV) Close() error {
	return l.db.Close()
}

func (l *leveldbKV) Get(key []byte) ([]byte, error) {
	buf, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, errors.Wrapf(ErrNotFound, "key %x", key)
	}

	return buf, err
}

func (l *leveldbKV) Put(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *leveldbKV) NewWriteBatch() WriteBatch {
	return &leveldbWriteBatch{
		batch: &leveldb.Batch{},
	}
}

func (l *leveldbKV) CommitWriteBatch(batch WriteBatch) error {
	wb, ok := batch.(*leveldbWriteBatch)
	if !ok {
		return errors.New("leveldb: not fed in a proper leveldb write batch")
	}

	return l.db.Write(wb.batch, nil)
}

func (l *leveldbKV) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *leveldbKV) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	iter := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	for iter.Next() {
		if err := fn(copyBytes(iter.Key()), copyBytes(iter.Value())); err != nil {
			return err
		}
	}

	return iter.Error()
}
