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
	"bytes"
	"os"
	"path"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("sortition")

type bboltOp struct {
	key, value []byte
	deleted    bool
}

var _ WriteBatch = (*bboltWriteBatch)(nil)

type bboltWriteBatch struct {
	ops []bboltOp
}

func (b *bboltWriteBatch) Put(key, value []byte) {
	b.ops = append(b.ops, bboltOp{key: copyBytes(key), value: copyBytes(value)})
}

func (b *bboltWriteBatch) Delete(key []byte) {
	b.ops = append(b.ops, bboltOp{key: copyBytes(key), deleted: true})
}

func (b *bboltWriteBatch) Clear() {
	b.ops = []bboltOp{}
}

func (b *bboltWriteBatch) Count() int {
	return len(b.ops)
}

func (b *bboltWriteBatch) Destroy() {
	// Do nothing
}

var _ KV = (*bboltKV)(nil)

type bboltKV struct {
	db *bolt.DB
}

func NewBbolt(dir string) (*bboltKV, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	db, err := bolt.Open(path.Join(dir, "sortition.db"), 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open bbolt db")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &bboltKV{db: db}, nil
}

func (b *bboltKV) Close() error {
	return b.db.Close()
}

func (b *bboltKV) Get(key []byte) ([]byte, error) {
	var value []byte

	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v == nil {
			return errors.Wrapf(ErrNotFound, "key %x", key)
		}

		value = copyBytes(v)
		return nil
	})

	return value, err
}

func (b *bboltKV) Put(key, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
}

func (b *bboltKV) Delete(key []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key)
	})
}

func (b *bboltKV) NewWriteBatch() WriteBatch {
	return &bboltWriteBatch{
		ops: make([]bboltOp, 0),
	}
}

func (b *bboltKV) CommitWriteBatch(batch WriteBatch) error {
	wb, ok := batch.(*bboltWriteBatch)
	if !ok {
		return errors.New("bbolt: not fed in a proper bbolt write batch")
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)

		for _, op := range wb.ops {
			var err error

			if op.deleted {
				err = bucket.Delete(op.key)
			} else {
				err = bucket.Put(op.key, op.value)
			}

			if err != nil {
				return err
			}
		}

		return nil
	})
}

func (b *bboltKV) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()

		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if err := fn(copyBytes(k), copyBytes(v)); err != nil {
				return err
			}
		}

		return nil
	})
}
