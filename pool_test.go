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
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateEligibility(t *testing.T) {
	pool := newTestPool()
	id := testID(0)

	// Nothing to insert without weight.
	require.NoError(t, pool.UpdateEligibility(id, big.NewInt(0), true))
	assert.False(t, pool.IsOperatorInPool(id))

	require.NoError(t, pool.UpdateEligibility(id, big.NewInt(5), true))
	assert.True(t, pool.IsOperatorInPool(id))
	assert.True(t, pool.IsEligible(id))
	assert.EqualValues(t, 5, pool.TotalWeight())

	// Idempotent.
	require.NoError(t, pool.UpdateEligibility(id, big.NewInt(5), true))
	assert.EqualValues(t, 5, pool.TotalWeight())
	assert.Equal(t, 1, pool.Len())

	// Unbonding drops the weight but keeps the slot.
	require.NoError(t, pool.UpdateEligibility(id, big.NewInt(5), false))
	assert.False(t, pool.IsEligible(id))
	assert.True(t, pool.IsOperatorInPool(id))
	assert.Zero(t, pool.TotalWeight())
	assert.Equal(t, 0, pool.EligibleCount())

	p, err := pool.Participant(id)
	require.NoError(t, err)
	assert.False(t, p.Eligible())
	assert.False(t, p.State.Has(Bonded))
	assert.Equal(t, 0, p.Stake.Cmp(big.NewInt(5)))

	require.NoError(t, pool.UpdateEligibility(id, big.NewInt(8), true))
	weight, err := pool.Weight(id)
	require.NoError(t, err)
	assert.EqualValues(t, 8, weight)
}

func TestBanUnban(t *testing.T) {
	pool := newTestPool()
	ids := fill(t, pool, 10, 20)

	require.NoError(t, pool.Ban(ids[0]))
	assert.True(t, pool.IsBanned(ids[0]))
	assert.False(t, pool.IsEligible(ids[0]))
	assert.EqualValues(t, 20, pool.TotalWeight())

	// A banned participant does not regain weight through updates.
	require.NoError(t, pool.UpdateEligibility(ids[0], big.NewInt(50), true))
	assert.EqualValues(t, 20, pool.TotalWeight())

	require.NoError(t, pool.Unban(ids[0]))
	assert.False(t, pool.IsBanned(ids[0]))
	assert.EqualValues(t, 70, pool.TotalWeight())
}

func TestBanUnknownIdentifier(t *testing.T) {
	pool := newTestPool()
	id := testID(7)

	require.NoError(t, pool.Ban(id))

	require.NoError(t, pool.UpdateEligibility(id, big.NewInt(10), true))
	assert.False(t, pool.IsOperatorInPool(id))
	assert.True(t, pool.IsOperatorUpToDate(id, big.NewInt(10), true))

	require.NoError(t, pool.Unban(id))
	assert.False(t, pool.IsOperatorUpToDate(id, big.NewInt(10), true))

	require.NoError(t, pool.UpdateEligibility(id, big.NewInt(10), true))
	assert.True(t, pool.IsEligible(id))
}

func TestEvict(t *testing.T) {
	pool := newTestPool(WithCapacity(2))
	ids := fill(t, pool, 1, 2)

	require.NoError(t, pool.Evict(ids[0]))
	assert.False(t, pool.IsOperatorInPool(ids[0]))
	assert.EqualValues(t, 2, pool.TotalWeight())

	err := pool.Evict(ids[0])
	assert.Equal(t, ErrNotFound, errors.Cause(err))

	// The freed slot is reused without growing.
	require.NoError(t, pool.UpdateEligibility(testID(5), big.NewInt(3), true))
	assert.Equal(t, 2, pool.Capacity())

	_, err = pool.Weight(ids[0])
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestPoolLock(t *testing.T) {
	pool := newTestPool()
	ids := fill(t, pool, 1, 2, 3)

	pool.LockPool()
	assert.True(t, pool.IsLocked())

	assert.Equal(t, ErrPoolLocked, errors.Cause(pool.UpdateEligibility(ids[0], big.NewInt(9), true)))
	assert.Equal(t, ErrPoolLocked, errors.Cause(pool.Ban(ids[0])))
	assert.Equal(t, ErrPoolLocked, errors.Cause(pool.Unban(ids[0])))
	assert.Equal(t, ErrPoolLocked, errors.Cause(pool.Evict(ids[0])))

	// Selection stays available.
	_, err := pool.SelectGroup(testSeed(0), 2)
	assert.NoError(t, err)

	pool.UnlockPool()
	assert.NoError(t, pool.UpdateEligibility(ids[0], big.NewInt(9), true))
	assert.EqualValues(t, 14, pool.TotalWeight())
}

func TestIsOperatorUpToDate(t *testing.T) {
	pool := newTestPool()
	id := fill(t, pool, 10)[0]

	assert.True(t, pool.IsOperatorUpToDate(id, big.NewInt(10), true))
	assert.False(t, pool.IsOperatorUpToDate(id, big.NewInt(11), true))
	assert.False(t, pool.IsOperatorUpToDate(id, big.NewInt(10), false))

	assert.True(t, pool.IsOperatorUpToDate(testID(99), big.NewInt(0), true))
	assert.False(t, pool.IsOperatorUpToDate(testID(99), big.NewInt(1), true))
}

func TestOperatorsSorted(t *testing.T) {
	pool := newTestPool()
	fill(t, pool, 1, 2, 3, 4, 5)

	ops := pool.Operators()
	require.Len(t, ops, 5)

	for i := 1; i < len(ops); i++ {
		assert.True(t, ops[i-1].ID.String() < ops[i].ID.String())
	}
}

func TestPoolConcurrentReadsAndWrites(t *testing.T) {
	pool := newTestPool()
	fill(t, pool, 5, 5, 5, 5, 5, 5, 5, 5)

	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		i := i

		wg.Add(2)

		go func() {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				assert.NoError(t, pool.UpdateEligibility(testID(i), big.NewInt(int64(j%7+1)), true))
			}
		}()

		go func() {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				group, err := pool.SelectGroup(testSeed(j), 4)
				if assert.NoError(t, err) {
					assert.Equal(t, 4, group.Size())
				}
			}
		}()
	}

	wg.Wait()

	checkSums(t, pool.tree)
}
