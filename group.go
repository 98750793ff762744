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

// Group is the ordered, duplicate-free outcome of one selection call,
// together with the seed it was drawn from. It is immutable.
type Group struct {
	seed    Seed
	members []ID
}

func NewGroup(seed Seed, members []ID) *Group {
	return &Group{seed: seed, members: append([]ID(nil), members...)}
}

func (g *Group) Seed() Seed {
	return g.seed
}

func (g *Group) Size() int {
	return len(g.members)
}

// Members returns a copy of the ordered member list.
func (g *Group) Members() []ID {
	return append([]ID(nil), g.members...)
}

func (g *Group) Member(i int) ID {
	return g.members[i]
}

// IndexOf returns the position of id in the group, or -1.
func (g *Group) IndexOf(id ID) int {
	for i := range g.members {
		if g.members[i] == id {
			return i
		}
	}

	return -1
}

func (g *Group) Contains(id ID) bool {
	return g.IndexOf(id) >= 0
}

func (g *Group) Equal(other *Group) bool {
	if other == nil || g.seed != other.seed || len(g.members) != len(other.members) {
		return false
	}

	for i := range g.members {
		if g.members[i] != other.members[i] {
			return false
		}
	}

	return true
}
