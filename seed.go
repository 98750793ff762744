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

package sortition

import (
	"encoding/binary"
	"math/big"

	"github.com/perlin-network/sortition/sys"
	"golang.org/x/crypto/blake2b"
)

// stream is a deterministic sequence of 256-bit values derived from a seed:
// value i is blake2b-256(seed || uint64_be(i)).
type stream struct {
	seed    Seed
	counter uint64

	buf [sys.SizeSeed + 8]byte
}

func newStream(seed Seed) *stream {
	s := &stream{seed: seed}
	copy(s.buf[:], seed[:])

	return s
}

func (s *stream) next() [blake2b.Size256]byte {
	binary.BigEndian.PutUint64(s.buf[sys.SizeSeed:], s.counter)
	s.counter++

	return blake2b.Sum256(s.buf[:])
}

// nextMod returns the next stream value reduced modulo n, which must be
// positive.
func (s *stream) nextMod(n uint64) uint64 {
	h := s.next()

	v := new(big.Int).SetBytes(h[:])
	v.Mod(v, new(big.Int).SetUint64(n))

	return v.Uint64()
}
