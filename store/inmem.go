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
	"sync"

	"github.com/huandu/skiplist"
	"github.com/pkg/errors"
)

type kvPair struct {
	key, value []byte
	deleted    bool
}

var _ WriteBatch = (*inmemWriteBatch)(nil)

type inmemWriteBatch struct {
	pairs []kvPair
}

func (b *inmemWriteBatch) Put(key, value []byte) {
	b.pairs = append(b.pairs, kvPair{key: copyBytes(key), value: copyBytes(value)})
}

func (b *inmemWriteBatch) Delete(key []byte) {
	b.pairs = append(b.pairs, kvPair{key: copyBytes(key), deleted: true})
}

func (b *inmemWriteBatch) Clear() {
	b.pairs = make([]kvPair, 0)
}

func (b *inmemWriteBatch) Count() int {
	return len(b.pairs)
}

func (b *inmemWriteBatch) Destroy() {
	b.pairs = nil
}

var _ KV = (*inmemKV)(nil)

type inmemKV struct {
	sync.RWMutex
	db *skiplist.SkipList
}

func NewInmem() *inmemKV {
	var comparator skiplist.GreaterThanFunc = func(lhs, rhs interface{}) bool {
		return bytes.Compare(lhs.([]byte), rhs.([]byte)) == 1
	}

	return &inmemKV{db: skiplist.New(comparator)}
}

func (s *inmemKV) Close() error {
	s.Lock()
	defer s.Unlock()

	s.db.Init()
	return nil
}

func (s *inmemKV) Get(key []byte) ([]byte, error) {
	s.RLock()
	defer s.RUnlock()

	buf, found := s.db.GetValue(key)
	if !found {
		return nil, errors.Wrapf(ErrNotFound, "key %x", key)
	}

	return copyBytes(buf.([]byte)), nil
}

func (s *inmemKV) Put(key, value []byte) error {
	s.Lock()
	defer s.Unlock()

	_ = s.db.Set(copyBytes(key), copyBytes(value))
	return nil
}

func (s *inmemKV) NewWriteBatch() WriteBatch {
	return new(inmemWriteBatch)
}

func (s *inmemKV) CommitWriteBatch(batch WriteBatch) error {
	wb, ok := batch.(*inmemWriteBatch)
	if !ok {
		return errors.New("inmem: not fed in a proper in-memory write batch")
	}

	s.Lock()
	defer s.Unlock()

	for _, pair := range wb.pairs {
		if pair.deleted {
			_ = s.db.Remove(pair.key)
			continue
		}

		_ = s.db.Set(pair.key, pair.value)
	}

	return nil
}

func (s *inmemKV) Delete(key []byte) error {
	s.Lock()
	defer s.Unlock()

	_ = s.db.Remove(key)
	return nil
}

func (s *inmemKV) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	s.RLock()

	var pairs []kvPair

	for elem := s.db.Front(); elem != nil; elem = elem.Next() {
		key := elem.Key().([]byte)
		if bytes.HasPrefix(key, prefix) {
			pairs = append(pairs, kvPair{key: copyBytes(key), value: copyBytes(elem.Value.([]byte))})
		}
	}

	s.RUnlock()

	for _, pair := range pairs {
		if err := fn(pair.key, pair.value); err != nil {
			return err
		}
	}

	return nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}

	return append(make([]byte, 0, len(b)), b...)
}
