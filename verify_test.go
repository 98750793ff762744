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

func TestVerifyGroups(t *testing.T) {
	pool := newTestPool()
	fill(t, pool, 3, 1, 4, 1, 5, 9, 2, 6, 5, 3)

	var groups []*Group

	for i := 0; i < 16; i++ {
		group, err := pool.SelectGroup(testSeed(i), 4)
		require.NoError(t, err)

		groups = append(groups, group)
	}

	// A group whose order was tampered with.
	members := groups[3].Members()
	members[0], members[1] = members[1], members[0]
	groups[3] = NewGroup(groups[3].Seed(), members)

	// A group claiming a seed it was not drawn from.
	groups[5] = NewGroup(testSeed(1000), groups[5].Members())

	results := VerifyGroups(pool, append(groups, nil), 4)
	require.Len(t, results, 17)

	for i, err := range results[:16] {
		switch i {
		case 3, 5:
			assert.Equal(t, ErrGroupMismatch, errors.Cause(err), "group %d", i)
		default:
			assert.NoError(t, err, "group %d", i)
		}
	}

	assert.Error(t, results[16])
}

func TestVerifyGroupAfterPoolChange(t *testing.T) {
	pool := newTestPool()
	fill(t, pool, 1, 1, 1, 1)

	group, err := pool.SelectGroup(testSeed(0), 4)
	require.NoError(t, err)
	require.NoError(t, VerifyGroup(pool, group))

	require.NoError(t, pool.UpdateEligibility(testID(0), big.NewInt(0), true))

	assert.True(t, IsInsufficientPool(VerifyGroup(pool, group)))
}
