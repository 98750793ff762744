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
	"encoding/hex"

	"github.com/perlin-network/sortition/sys"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// ID is the opaque identifier of a participant.
type ID [sys.SizeID]byte

// Seed is the public random value a group is drawn from.
type Seed [sys.SizeSeed]byte

var (
	ZeroID   ID
	ZeroSeed Seed
)

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

func (s Seed) String() string {
	return hex.EncodeToString(s[:])
}

// IDFromName derives an identifier by hashing a human readable name.
func IDFromName(name string) ID {
	return ID(blake2b.Sum256([]byte(name)))
}

// SeedFromBytes derives a seed by hashing arbitrary bytes.
func SeedFromBytes(buf []byte) Seed {
	return Seed(blake2b.Sum256(buf))
}

func ParseID(s string) (ID, error) {
	var id ID

	if err := decodeHex(id[:], s); err != nil {
		return id, errors.Wrap(err, "invalid participant id")
	}

	return id, nil
}

func ParseSeed(s string) (Seed, error) {
	var seed Seed

	if err := decodeHex(seed[:], s); err != nil {
		return seed, errors.Wrap(err, "invalid seed")
	}

	return seed, nil
}

func decodeHex(dst []byte, s string) error {
	buf, err := hex.DecodeString(s)
	if err != nil {
		return err
	}

	if len(buf) != len(dst) {
		return errors.Errorf("expected %d bytes, got %d", len(dst), len(buf))
	}

	copy(dst, buf)
	return nil
}
