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

package stakeledger

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/big"

	"github.com/golang/snappy"
	"github.com/perlin-network/sortition"
	"github.com/perlin-network/sortition/sys"
	"github.com/pkg/errors"
)

var (
	// Identifier-local prefixes.
	keyStake  = [...]byte{0x1}
	keyBonded = [...]byte{0x2}
	keyBanned = [...]byte{0x3}
	keyKnown  = [...]byte{0x4}

	// Global prefixes.
	keyOrder      = [...]byte{0x5}
	keyOrderLen   = [...]byte{0x6}
	keyJournal    = [...]byte{0x7}
	keyJournalSeq = [...]byte{0x8}
	keySlashes    = [...]byte{0x9}
	keySlashesLen = [...]byte{0xa}
)

func idKey(prefix []byte, id sortition.ID) []byte {
	return append(append(make([]byte, 0, len(prefix)+len(id)), prefix...), id[:]...)
}

func indexKey(prefix []byte, index uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], index)

	return buf
}

func encodeUint64(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)

	return buf[:]
}

func decodeUint64(buf []byte) (uint64, error) {
	if len(buf) != 8 {
		return 0, errors.Errorf("expected 8 bytes, got %d", len(buf))
	}

	return binary.BigEndian.Uint64(buf), nil
}

// encodeStake prefixes a zero byte so that a zero stake is never stored as an
// empty value. Decoding is big.Int.SetBytes.
func encodeStake(stake *big.Int) []byte {
	return append([]byte{0}, stake.Bytes()...)
}

func encodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}

	return []byte{0}
}

func marshalNotification(n sortition.Notification) []byte {
	var stake []byte
	if n.Stake != nil {
		stake = n.Stake.Bytes()
	}

	w := bytes.NewBuffer(make([]byte, 0, 8+1+sys.SizeID+1+2+len(stake)))

	w.Write(encodeUint64(n.Seq))
	w.WriteByte(byte(n.Kind))
	w.Write(n.ID[:])
	w.Write(encodeBool(n.Bonded))

	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(len(stake)))
	w.Write(buf[:])
	w.Write(stake)

	return w.Bytes()
}

func unmarshalNotification(r io.Reader) (sortition.Notification, error) {
	var (
		n   sortition.Notification
		buf [8]byte
	)

	if _, err := io.ReadFull(r, buf[:8]); err != nil {
		return n, errors.Wrap(err, "failed to decode notification seq")
	}

	n.Seq = binary.BigEndian.Uint64(buf[:8])

	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return n, errors.Wrap(err, "failed to decode notification kind")
	}

	n.Kind = sortition.NotificationKind(buf[0])

	if _, err := io.ReadFull(r, n.ID[:]); err != nil {
		return n, errors.Wrap(err, "failed to decode notification id")
	}

	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return n, errors.Wrap(err, "failed to decode notification bonding status")
	}

	n.Bonded = buf[0] == 1

	if _, err := io.ReadFull(r, buf[:2]); err != nil {
		return n, errors.Wrap(err, "failed to decode notification stake length")
	}

	stake := make([]byte, binary.BigEndian.Uint16(buf[:2]))

	if _, err := io.ReadFull(r, stake); err != nil {
		return n, errors.Wrap(err, "failed to decode notification stake")
	}

	n.Stake = new(big.Int).SetBytes(stake)

	return n, nil
}

// SlashRecord is a misbehavior report accepted by the ledger. Evidence is
// kept compressed at rest.
type SlashRecord struct {
	Index    uint64
	ID       sortition.ID
	Seed     sortition.Seed
	Evidence sortition.Evidence
}

func (s SlashRecord) Marshal() []byte {
	blob := snappy.Encode(nil, s.Evidence.Blob)

	w := bytes.NewBuffer(make([]byte, 0, 8+sys.SizeID+sys.SizeSeed+1+4+len(blob)))

	w.Write(encodeUint64(s.Index))
	w.Write(s.ID[:])
	w.Write(s.Seed[:])
	w.WriteByte(byte(s.Evidence.Kind))

	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(len(blob)))
	w.Write(buf[:])
	w.Write(blob)

	return w.Bytes()
}

func UnmarshalSlashRecord(r io.Reader) (SlashRecord, error) {
	var (
		s   SlashRecord
		buf [8]byte
	)

	if _, err := io.ReadFull(r, buf[:8]); err != nil {
		return s, errors.Wrap(err, "failed to decode slash index")
	}

	s.Index = binary.BigEndian.Uint64(buf[:8])

	if _, err := io.ReadFull(r, s.ID[:]); err != nil {
		return s, errors.Wrap(err, "failed to decode slashed id")
	}

	if _, err := io.ReadFull(r, s.Seed[:]); err != nil {
		return s, errors.Wrap(err, "failed to decode group seed")
	}

	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return s, errors.Wrap(err, "failed to decode evidence kind")
	}

	s.Evidence.Kind = sortition.EvidenceKind(buf[0])

	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return s, errors.Wrap(err, "failed to decode evidence length")
	}

	compressed := make([]byte, binary.BigEndian.Uint32(buf[:4]))

	if _, err := io.ReadFull(r, compressed); err != nil {
		return s, errors.Wrap(err, "failed to read evidence")
	}

	blob, err := snappy.Decode(nil, compressed)
	if err != nil {
		return s, errors.Wrap(err, "failed to decompress evidence")
	}

	s.Evidence.Blob = blob

	return s, nil
}
