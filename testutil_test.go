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
	"math/big"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// unitWeights weighs one unit of stake as one unit of weight.
func unitWeights() WeightFunc {
	return WeightFunc{MinimumStake: big.NewInt(1), WeightDivisor: big.NewInt(1)}
}

func newTestPool(opts ...PoolOption) *Pool {
	return NewPool(append([]PoolOption{WithWeightFunc(unitWeights())}, opts...)...)
}

func testID(i int) ID {
	return IDFromName("participant-" + strconv.Itoa(i))
}

func testSeed(i int) Seed {
	return SeedFromBytes([]byte("seed-" + strconv.Itoa(i)))
}

// fill inserts participants 0..len(weights)-1 with the given weights.
func fill(t testing.TB, pool *Pool, weights ...int64) []ID {
	t.Helper()

	ids := make([]ID, len(weights))

	for i, w := range weights {
		ids[i] = testID(i)
		require.NoError(t, pool.UpdateEligibility(ids[i], big.NewInt(w), true))
	}

	return ids
}

type stakeRecord struct {
	stake  *big.Int
	bonded bool
}

type slashRequest struct {
	id       ID
	seed     Seed
	evidence Evidence
}

// memLedger is a minimal in-memory StakeLedger and Slasher.
type memLedger struct {
	sync.Mutex

	records map[ID]stakeRecord
	order   []ID
	journal []Notification
	subs    []chan Notification

	slashed []slashRequest
}

func newMemLedger() *memLedger {
	return &memLedger{records: make(map[ID]stakeRecord)}
}

func (m *memLedger) emit(n Notification) Notification {
	n.Seq = uint64(len(m.journal)) + 1
	m.journal = append(m.journal, n)

	for _, ch := range m.subs {
		ch <- n
	}

	return n
}

func (m *memLedger) set(id ID, stake int64, bonded bool) Notification {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.records[id]; !ok {
		m.order = append(m.order, id)
	}

	m.records[id] = stakeRecord{stake: big.NewInt(stake), bonded: bonded}

	return m.emit(Notification{Kind: NotifyUpdate, ID: id, Stake: big.NewInt(stake), Bonded: bonded})
}

// setQuietly changes a record without journaling it, as a ledger observed
// only by polling would.
func (m *memLedger) setQuietly(id ID, stake int64, bonded bool) {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.records[id]; !ok {
		m.order = append(m.order, id)
	}

	m.records[id] = stakeRecord{stake: big.NewInt(stake), bonded: bonded}
}

func (m *memLedger) EligibleStake(id ID) (*big.Int, error) {
	m.Lock()
	defer m.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}

	return new(big.Int).Set(rec.stake), nil
}

func (m *memLedger) IsBonded(id ID) (bool, error) {
	m.Lock()
	defer m.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return false, ErrNotFound
	}

	return rec.bonded, nil
}

func (m *memLedger) Identifiers() ([]ID, error) {
	m.Lock()
	defer m.Unlock()

	return append([]ID(nil), m.order...), nil
}

func (m *memLedger) Journal(from uint64, fn func(Notification) error) error {
	m.Lock()
	journal := append([]Notification(nil), m.journal...)
	m.Unlock()

	for _, n := range journal {
		if n.Seq < from {
			continue
		}

		if err := fn(n); err != nil {
			return err
		}
	}

	return nil
}

func (m *memLedger) Subscribe() (<-chan Notification, func()) {
	m.Lock()
	defer m.Unlock()

	ch := make(chan Notification, 64)
	m.subs = append(m.subs, ch)

	return ch, func() {}
}

func (m *memLedger) Slash(id ID, seed Seed, evidence Evidence) error {
	m.Lock()
	defer m.Unlock()

	m.slashed = append(m.slashed, slashRequest{id: id, seed: seed, evidence: evidence})
	return nil
}
