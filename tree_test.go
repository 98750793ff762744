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
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkSums asserts that every internal node holds the sum of its children.
func checkSums(t testing.TB, tree *Tree) {
	t.Helper()

	for node := tree.capacity - 1; node >= 1; node-- {
		require.Equal(t, tree.sums[2*node]+tree.sums[2*node+1], tree.sums[node], "node %d", node)
	}

	var nonZero int
	for pos := 0; pos < tree.capacity; pos++ {
		if tree.sums[tree.capacity+pos] > 0 {
			nonZero++
		}
	}

	require.Equal(t, nonZero, tree.NonZero())
}

func TestTreeSumsUnderRandomMutations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tree := NewTree(0)

	var present []ID

	for i := 0; i < 2000; i++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(present) == 0:
			id := testID(i)
			_, err := tree.Insert(id, uint64(rng.Intn(100)))
			require.NoError(t, err)
			present = append(present, id)
		case op == 1:
			id := present[rng.Intn(len(present))]
			pos, ok := tree.Position(id)
			require.True(t, ok)
			require.NoError(t, tree.Update(pos, uint64(rng.Intn(100))))
		default:
			j := rng.Intn(len(present))
			pos, ok := tree.Position(present[j])
			require.True(t, ok)
			require.NoError(t, tree.Remove(pos))
			present = append(present[:j], present[j+1:]...)
		}

		checkSums(t, tree)
	}

	assert.Equal(t, len(present), tree.Len())
}

func TestTreeCapacityDoubles(t *testing.T) {
	tree := NewTree(3)
	assert.Equal(t, 4, tree.Capacity())

	for i := 0; i < 5; i++ {
		pos, err := tree.Insert(testID(i), uint64(i+1))
		require.NoError(t, err)
		assert.Equal(t, i, pos)
	}

	assert.Equal(t, 8, tree.Capacity())
	assert.EqualValues(t, 15, tree.TotalWeight())

	// Positions survive growth.
	for i := 0; i < 5; i++ {
		id, weight, ok := tree.Leaf(i)
		require.True(t, ok)
		assert.Equal(t, testID(i), id)
		assert.EqualValues(t, i+1, weight)
	}

	checkSums(t, tree)
}

func TestTreeReusesFreedSlots(t *testing.T) {
	tree := NewTree(4)

	for i := 0; i < 4; i++ {
		_, err := tree.Insert(testID(i), 1)
		require.NoError(t, err)
	}

	require.NoError(t, tree.Remove(1))
	require.NoError(t, tree.Remove(2))

	pos, err := tree.Insert(testID(10), 5)
	require.NoError(t, err)
	assert.Equal(t, 2, pos)

	pos, err = tree.Insert(testID(11), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	assert.Equal(t, 4, tree.Capacity())
	assert.EqualValues(t, 12, tree.TotalWeight())

	_, _, ok := tree.Leaf(3)
	assert.True(t, ok)
}

func TestTreeDuplicateInsert(t *testing.T) {
	tree := NewTree(0)

	_, err := tree.Insert(testID(0), 1)
	require.NoError(t, err)

	_, err = tree.Insert(testID(0), 2)
	assert.Equal(t, ErrDuplicateIdentifier, errors.Cause(err))
}

func TestTreeDraw(t *testing.T) {
	tree := NewTree(4)

	// Weights 0, 3, 0, 2 lay out draw values [0,3) -> 1 and [3,5) -> 3.
	for i, w := range []uint64{0, 3, 0, 2} {
		_, err := tree.Insert(testID(i), w)
		require.NoError(t, err)
	}

	expected := []int{1, 1, 1, 3, 3}

	for r, pos := range expected {
		id, got, err := tree.Draw(uint64(r))
		require.NoError(t, err)
		assert.Equal(t, pos, got, "r=%d", r)
		assert.Equal(t, testID(pos), id)
	}

	_, _, err := tree.Draw(5)
	assert.Error(t, err)
}

func TestTreeDrawNeverLandsOnZeroWeight(t *testing.T) {
	tree := NewTree(16)

	for i := 0; i < 16; i++ {
		_, err := tree.Insert(testID(i), uint64(i%3))
		require.NoError(t, err)
	}

	for r := uint64(0); r < tree.TotalWeight(); r++ {
		_, pos, err := tree.Draw(r)
		require.NoError(t, err)

		_, weight, _ := tree.Leaf(pos)
		assert.NotZero(t, weight, "r=%d landed on position %d", r, pos)
	}
}

func TestTreeEmptyPool(t *testing.T) {
	tree := NewTree(0)

	_, _, err := tree.Draw(0)
	assert.Equal(t, ErrEmptyPool, errors.Cause(err))

	_, err = tree.Insert(testID(0), 0)
	require.NoError(t, err)

	_, _, err = tree.Draw(0)
	assert.Equal(t, ErrEmptyPool, errors.Cause(err))
}

func TestTreeExcludeOverlay(t *testing.T) {
	tree := NewTree(4)

	for i, w := range []uint64{1, 2, 3, 4} {
		_, err := tree.Insert(testID(i), w)
		require.NoError(t, err)
	}

	overlay := make(map[int]uint64)
	tree.exclude(3, overlay)
	tree.exclude(3, overlay)

	assert.EqualValues(t, 4, overlay[1])
	assert.EqualValues(t, 10, tree.TotalWeight())

	for r := uint64(0); r < 6; r++ {
		_, pos, err := tree.draw(r, overlay)
		require.NoError(t, err)
		assert.NotEqual(t, 3, pos)
	}

	_, _, err := tree.draw(6, overlay)
	assert.Error(t, err)
}
