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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectGroupDeterministic(t *testing.T) {
	a, b := newTestPool(), newTestPool()

	weights := []int64{5, 1, 9, 3, 3, 7, 2, 8, 6, 4}
	fill(t, a, weights...)
	fill(t, b, weights...)

	for i := 0; i < 100; i++ {
		ga, err := a.SelectGroup(testSeed(i), 5)
		require.NoError(t, err)

		gb, err := b.SelectGroup(testSeed(i), 5)
		require.NoError(t, err)

		assert.True(t, ga.Equal(gb))
		assert.Equal(t, testSeed(i), ga.Seed())

		again, err := a.SelectGroup(testSeed(i), 5)
		require.NoError(t, err)
		assert.Equal(t, ga.Members(), again.Members())
	}
}

func TestSelectGroupNoDuplicates(t *testing.T) {
	pool := newTestPool()
	fill(t, pool, 100, 1, 1, 1, 50, 1, 1, 25, 1, 1, 1, 1)

	for i := 0; i < 500; i++ {
		group, err := pool.SelectGroup(testSeed(i), 12)
		require.NoError(t, err)

		seen := make(map[ID]struct{})
		for _, id := range group.Members() {
			_, dup := seen[id]
			require.False(t, dup, "seed %d selected %s twice", i, id)
			seen[id] = struct{}{}
		}
	}
}

func TestSelectGroupResamples(t *testing.T) {
	pool := newTestPool()
	fill(t, pool, 1000, 1)

	var resampled int

	for i := 0; i < 10; i++ {
		members, weight, n, err := pool.selectGroup(testSeed(i), 2)
		require.NoError(t, err)
		assert.Len(t, members, 2)
		assert.EqualValues(t, 1001, weight)

		resampled += n
	}

	assert.NotZero(t, resampled)
}

func TestSelectGroupWeightedScenario(t *testing.T) {
	pool := newTestPool()

	a, b, c := IDFromName("A"), IDFromName("B"), IDFromName("C")

	require.NoError(t, pool.UpdateEligibility(a, big.NewInt(10), true))
	require.NoError(t, pool.UpdateEligibility(b, big.NewInt(20), true))
	require.NoError(t, pool.UpdateEligibility(c, big.NewInt(0), true))

	var firstA, firstB int

	for i := 0; i < 10000; i++ {
		group, err := pool.SelectGroup(testSeed(i), 2)
		require.NoError(t, err)
		require.False(t, group.Contains(c))

		switch group.Member(0) {
		case a:
			firstA++
		case b:
			firstB++
		}
	}

	require.NotZero(t, firstA)

	ratio := float64(firstB) / float64(firstA)
	assert.True(t, ratio > 1.8 && ratio < 2.2, "B/A ratio %f", ratio)
}

func TestSelectGroupAfterZeroingOut(t *testing.T) {
	pool := newTestPool()

	a, b := IDFromName("A"), IDFromName("B")

	require.NoError(t, pool.UpdateEligibility(a, big.NewInt(10), true))
	require.NoError(t, pool.UpdateEligibility(b, big.NewInt(20), true))

	require.NoError(t, pool.UpdateEligibility(a, big.NewInt(0), false))

	for i := 0; i < 100; i++ {
		group, err := pool.SelectGroup(testSeed(i), pool.EligibleCount())
		require.NoError(t, err)
		assert.Equal(t, []ID{b}, group.Members())
	}
}

func TestSelectGroupInsufficientPool(t *testing.T) {
	pool := newTestPool()

	_, err := pool.SelectGroup(testSeed(0), 1)
	require.True(t, IsInsufficientPool(err))

	fill(t, pool, 3, 0, 4, 5)

	_, err = pool.SelectGroup(testSeed(0), 3)
	require.NoError(t, err)

	_, err = pool.SelectGroup(testSeed(0), 4)
	require.True(t, IsInsufficientPool(err))

	insufficient := errors.Cause(err).(*InsufficientPoolError)
	assert.EqualValues(t, 12, insufficient.TotalWeight)
	assert.Equal(t, 3, insufficient.Eligible)
	assert.Equal(t, 4, insufficient.Requested)
}

func TestSelectGroupInvalidSize(t *testing.T) {
	pool := newTestPool()
	fill(t, pool, 1, 2, 3)

	for _, size := range []int{0, -1} {
		_, err := pool.SelectGroup(testSeed(0), size)
		assert.Equal(t, ErrInvalidGroupSize, errors.Cause(err))
	}
}

func TestSelectGroupMinGroupWeight(t *testing.T) {
	pool := newTestPool()
	fill(t, pool, 1, 1, 1, 100)

	_, err := pool.SelectGroup(testSeed(0), 4, WithMinGroupWeight(103))
	assert.NoError(t, err)

	_, err = pool.SelectGroup(testSeed(0), 4, WithMinGroupWeight(104))
	assert.Equal(t, ErrGroupUnderweight, errors.Cause(err))
}

func TestSelectGroupProportional(t *testing.T) {
	pool := newTestPool()
	ids := fill(t, pool, 1, 2, 3, 4, 5)

	const rounds = 20000

	counts := make(map[ID]int)

	for i := 0; i < rounds; i++ {
		group, err := pool.SelectGroup(testSeed(i), 1)
		require.NoError(t, err)
		counts[group.Member(0)]++
	}

	for i, id := range ids {
		expected := float64(i+1) / 15
		actual := float64(counts[id]) / rounds

		assert.InDelta(t, expected, actual, 0.015, "participant %d", i)
	}
}

func TestSelectGroupReplayRoundTrip(t *testing.T) {
	type update struct {
		id     ID
		stake  int64
		bonded bool
		evict  bool
	}

	var updates []update

	for i := 0; i < 40; i++ {
		updates = append(updates, update{id: testID(i), stake: int64(i%9 + 1), bonded: true})
	}

	updates = append(updates,
		update{id: testID(3), stake: 0, bonded: false},
		update{id: testID(8), evict: true},
		update{id: testID(100), stake: 42, bonded: true},
		update{id: testID(5), stake: 17, bonded: true},
	)

	apply := func(pool *Pool) {
		for _, u := range updates {
			if u.evict {
				require.NoError(t, pool.Evict(u.id))
				continue
			}

			require.NoError(t, pool.UpdateEligibility(u.id, big.NewInt(u.stake), u.bonded))
		}
	}

	original, replayed := newTestPool(), newTestPool()

	apply(original)
	apply(replayed)

	assert.Equal(t, original.TotalWeight(), replayed.TotalWeight())

	for r := uint64(0); r < original.TotalWeight(); r += 7 {
		expected, err := original.Draw(r)
		require.NoError(t, err)

		actual, err := replayed.Draw(r)
		require.NoError(t, err)

		assert.Equal(t, expected, actual)
	}

	for i := 0; i < 50; i++ {
		expected, err := original.SelectGroup(testSeed(i), 10)
		require.NoError(t, err)

		actual, err := replayed.SelectGroup(testSeed(i), 10)
		require.NoError(t, err)

		assert.True(t, expected.Equal(actual))
	}
}
