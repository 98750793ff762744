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
	"fmt"
	"io/ioutil"
	"math/rand"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kinds = []string{"inmem", "level", "bbolt"}

func TestKVExistence(t *testing.T) {
	for _, kind := range kinds {
		kind := kind

		t.Run(kind, func(t *testing.T) {
			db, cleanup := NewTestKV(t, kind)
			defer cleanup()

			_, err := db.Get([]byte("not_exist"))
			assert.Error(t, err)
			assert.Equal(t, ErrNotFound, errors.Cause(err))

			require.NoError(t, db.Put([]byte("exist"), []byte("value")))

			val, err := db.Get([]byte("exist"))
			assert.NoError(t, err)
			assert.Equal(t, []byte("value"), val)

			require.NoError(t, db.Delete([]byte("exist")))

			_, err = db.Get([]byte("exist"))
			assert.Equal(t, ErrNotFound, errors.Cause(err))
		})
	}
}

func TestKVWriteBatch(t *testing.T) {
	for _, kind := range kinds {
		kind := kind

		t.Run(kind, func(t *testing.T) {
			db, cleanup := NewTestKV(t, kind)
			defer cleanup()

			require.NoError(t, db.Put([]byte("key_doomed"), []byte("doomed")))

			wb := db.NewWriteBatch()
			wb.Put([]byte("key_batch1"), []byte("val_batch1"))
			wb.Put([]byte("key_batch2"), []byte("val_batch2"))
			wb.Delete([]byte("key_doomed"))
			assert.Equal(t, 3, wb.Count())
			require.NoError(t, db.CommitWriteBatch(wb))

			for _, key := range []string{"key_batch1", "key_batch2"} {
				val, err := db.Get([]byte(key))
				assert.NoError(t, err)
				assert.Equal(t, "val"+key[3:], string(val))
			}

			_, err := db.Get([]byte("key_doomed"))
			assert.Error(t, err)

			wb.Clear()
			assert.Equal(t, 0, wb.Count())
		})
	}
}

func TestKVIterateOrdered(t *testing.T) {
	for _, kind := range kinds {
		kind := kind

		t.Run(kind, func(t *testing.T) {
			db, cleanup := NewTestKV(t, kind)
			defer cleanup()

			perm := rand.Perm(32)
			for _, i := range perm {
				require.NoError(t, db.Put([]byte(fmt.Sprintf("a/%02d", i)), []byte{byte(i)}))
			}
			require.NoError(t, db.Put([]byte("b/00"), []byte{0xff}))

			var seen []byte

			err := db.Iterate([]byte("a/"), func(key, value []byte) error {
				seen = append(seen, value[0])
				return nil
			})
			assert.NoError(t, err)

			assert.Len(t, seen, 32)
			for i := range seen {
				assert.EqualValues(t, i, seen[i])
			}
		})
	}
}

func TestKVIterateStopsOnError(t *testing.T) {
	db, cleanup := NewTestKV(t, "inmem")
	defer cleanup()

	require.NoError(t, db.Put([]byte("k1"), []byte("v")))
	require.NoError(t, db.Put([]byte("k2"), []byte("v")))

	stop := errors.New("stop")
	calls := 0

	err := db.Iterate([]byte("k"), func(key, value []byte) error {
		calls++
		return stop
	})

	assert.Equal(t, stop, err)
	assert.Equal(t, 1, calls)
}

func TestOpen(t *testing.T) {
	for _, kind := range []string{"level", "bbolt"} {
		kind := kind

		t.Run(kind, func(t *testing.T) {
			dir, err := ioutil.TempDir("", "sortition-open-"+kind)
			require.NoError(t, err)
			defer os.RemoveAll(dir)

			db, err := Open(kind, dir)
			require.NoError(t, err)

			require.NoError(t, db.Put([]byte("k"), []byte("v")))
			require.NoError(t, db.Close())

			db, err = Open(kind, dir)
			require.NoError(t, err)

			val, err := db.Get([]byte("k"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), val)
			assert.NoError(t, db.Close())
		})
	}

	_, err := Open("paper", "")
	assert.Error(t, err)
}
