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
	"github.com/pkg/errors"
)

const minTreeCapacity = 2

// Tree is an implicit binary tree over a flat array. Leaves live at
// [capacity, 2*capacity) of sums, and node i has children 2i and 2i+1, so
// sums[1] is the total weight. Capacity is always a power of two.
//
// Tree is not safe for concurrent use; Pool serializes access to it.
type Tree struct {
	capacity int

	sums []uint64
	ids  []ID
	used []bool

	// next is the first position never handed out. It only grows.
	next int
	free []int

	index   map[ID]int
	nonZero int
}

func NewTree(capacity int) *Tree {
	c := minTreeCapacity
	for c < capacity {
		c <<= 1
	}

	return &Tree{
		capacity: c,
		sums:     make([]uint64, 2*c),
		ids:      make([]ID, c),
		used:     make([]bool, c),
		index:    make(map[ID]int),
	}
}

func (t *Tree) Capacity() int {
	return t.capacity
}

// Len returns the number of occupied leaves, including those of weight 0.
func (t *Tree) Len() int {
	return len(t.index)
}

// NonZero returns the number of leaves with a positive weight.
func (t *Tree) NonZero() int {
	return t.nonZero
}

func (t *Tree) TotalWeight() uint64 {
	return t.sums[1]
}

func (t *Tree) Position(id ID) (int, bool) {
	pos, ok := t.index[id]
	return pos, ok
}

// Leaf returns the identifier and weight stored at a position.
func (t *Tree) Leaf(pos int) (ID, uint64, bool) {
	if pos < 0 || pos >= t.capacity || !t.used[pos] {
		return ZeroID, 0, false
	}

	return t.ids[pos], t.sums[t.capacity+pos], true
}

// Insert places id into a free slot. Slots released by Remove are reused
// before fresh ones, and the tree doubles when it runs out of fresh slots.
func (t *Tree) Insert(id ID, weight uint64) (int, error) {
	if _, exists := t.index[id]; exists {
		return 0, errors.Wrapf(ErrDuplicateIdentifier, "id %s", id)
	}

	var pos int

	if n := len(t.free); n > 0 {
		pos = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		if t.next == t.capacity {
			t.grow()
		}

		pos = t.next
		t.next++
	}

	t.ids[pos] = id
	t.used[pos] = true
	t.index[id] = pos

	t.set(pos, weight)

	return pos, nil
}

// Update sets the weight at an occupied position and fixes every ancestor.
func (t *Tree) Update(pos int, weight uint64) error {
	if pos < 0 || pos >= t.capacity || !t.used[pos] {
		return errors.Wrapf(ErrNotFound, "position %d", pos)
	}

	t.set(pos, weight)

	return nil
}

// Remove zeroes the leaf at pos and makes the slot available to Insert.
func (t *Tree) Remove(pos int) error {
	if err := t.Update(pos, 0); err != nil {
		return err
	}

	delete(t.index, t.ids[pos])

	t.ids[pos] = ZeroID
	t.used[pos] = false
	t.free = append(t.free, pos)

	return nil
}

// Draw descends from the root towards the leaf owning r, where r must lie in
// [0, TotalWeight()).
func (t *Tree) Draw(r uint64) (ID, int, error) {
	return t.draw(r, nil)
}

// draw descends using sums minus any temporarily excluded weight recorded in
// overlay, keyed by node index.
func (t *Tree) draw(r uint64, overlay map[int]uint64) (ID, int, error) {
	total := t.effective(1, overlay)
	if total == 0 {
		return ZeroID, 0, ErrEmptyPool
	}

	if r >= total {
		return ZeroID, 0, errors.Errorf("draw value %d out of range [0, %d)", r, total)
	}

	node := 1

	for node < t.capacity {
		left := 2 * node
		leftSum := t.effective(left, overlay)

		// An empty left subtree is never entered.
		if leftSum == 0 || r >= leftSum {
			r -= leftSum
			node = left + 1
		} else {
			node = left
		}
	}

	pos := node - t.capacity

	return t.ids[pos], pos, nil
}

func (t *Tree) effective(node int, overlay map[int]uint64) uint64 {
	return t.sums[node] - overlay[node]
}

// exclude records the weight of the leaf at pos as removed in overlay for
// every node on its root path, without touching the tree itself.
func (t *Tree) exclude(pos int, overlay map[int]uint64) {
	node := t.capacity + pos
	weight := t.effective(node, overlay)

	if weight == 0 {
		return
	}

	for ; node >= 1; node >>= 1 {
		overlay[node] += weight
	}
}

func (t *Tree) set(pos int, weight uint64) {
	node := t.capacity + pos
	old := t.sums[node]

	if old == weight {
		return
	}

	switch {
	case old == 0:
		t.nonZero++
	case weight == 0:
		t.nonZero--
	}

	for ; node >= 1; node >>= 1 {
		t.sums[node] = t.sums[node] - old + weight
	}
}

// grow doubles the capacity. Leaf positions are preserved, and ancestor sums
// are rebuilt bottom-up.
func (t *Tree) grow() {
	capacity := t.capacity * 2

	sums := make([]uint64, 2*capacity)
	copy(sums[capacity:], t.sums[t.capacity:])

	for node := capacity - 1; node >= 1; node-- {
		sums[node] = sums[2*node] + sums[2*node+1]
	}

	ids := make([]ID, capacity)
	copy(ids, t.ids)

	used := make([]bool, capacity)
	copy(used, t.used)

	t.capacity = capacity
	t.sums = sums
	t.ids = ids
	t.used = used
}
