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
	"errors"
	"io"
)

var (
	ErrNotFound = errors.New("not found")
)

type KV interface {
	io.Closer

	Get(key []byte) ([]byte, error)

	Put(key, value []byte) error

	NewWriteBatch() WriteBatch
	CommitWriteBatch(batch WriteBatch) error

	Delete(key []byte) error

	// Iterate calls fn for every key starting with prefix, in ascending key
	// order. Iteration stops at the first error returned by fn.
	Iterate(prefix []byte, fn func(key, value []byte) error) error
}

// WriteBatch batches a collection of put and delete operations in memory
// before it's committed to disk.
//
// Committing a write batch is atomic: either every operation in it becomes
// visible or none does.
type WriteBatch interface {
	Put(key, value []byte)
	Delete(key []byte)

	Clear()
	Count() int
	Destroy()
}

// Open opens a persistent store of the given kind ("level" or "bbolt") rooted
// at dir.
func Open(kind, dir string) (KV, error) {
	switch kind {
	case "level":
		return NewLevelDB(dir)
	case "bbolt":
		return NewBbolt(dir)
	}

	return nil, errors.New("unknown store kind " + kind)
}
