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
	"io/ioutil"
	"os"
	"testing"

	"github.com/syndtr/goleveldb/leveldb"
)

// NewTestKV returns a KV store for testing purposes. Supported kinds are
// "inmem", "level" and "bbolt".
func NewTestKV(t testing.TB, kv string) (KV, func()) {
	t.Helper()

	switch kv {
	case "inmem":
		inmemdb := NewInmem()
		return inmemdb, func() {
			if err := inmemdb.Close(); err != nil {
				t.Fatal(err)
			}
		}
	case "level", "bbolt":
		path, err := ioutil.TempDir("", "sortition-"+kv)
		if err != nil {
			t.Fatal(err)
		}

		var db KV

		if kv == "level" {
			db, err = NewLevelDB(path)
		} else {
			db, err = NewBbolt(path)
		}

		if err != nil {
			t.Fatalf("failed to create %s: %s", kv, err)
		}

		return db, func() {
			if err := db.Close(); err != nil && err != leveldb.ErrClosed {
				t.Fatal(err)
			}
			if err := os.RemoveAll(path); err != nil {
				t.Fatal(err)
			}
		}
	}

	t.Fatalf("unknown kv %s", kv)
	panic("unknown kv " + kv)
}
