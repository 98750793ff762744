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

package lru

import (
	"container/list"
	"sync"
)

// LRU is a bounded map which evicts the least recently used entry once it
// grows past its size.
type LRU struct {
	sync.Mutex

	size    int
	onEvict func(key, val interface{})

	elements map[interface{}]*list.Element
	access   *list.List // *entry
}

type entry struct {
	key interface{}
	val interface{}
}

func NewLRU(size int) *LRU {
	if size <= 0 {
		size = 1
	}

	return &LRU{
		size:     size,
		elements: make(map[interface{}]*list.Element, size),
		access:   list.New(),
	}
}

// OnEvict registers a callback invoked, with the lock held, for every entry
// pushed out by Put.
func (l *LRU) OnEvict(fn func(key, val interface{})) *LRU {
	l.Lock()
	l.onEvict = fn
	l.Unlock()

	return l
}

func (l *LRU) Load(key interface{}) (interface{}, bool) {
	l.Lock()
	defer l.Unlock()

	elem, ok := l.elements[key]
	if !ok {
		return nil, false
	}

	l.access.MoveToFront(elem)
	return elem.Value.(*entry).val, true
}

func (l *LRU) Put(key, val interface{}) {
	l.Lock()
	defer l.Unlock()

	if elem, ok := l.elements[key]; ok {
		elem.Value.(*entry).val = val
		l.access.MoveToFront(elem)
		return
	}

	l.elements[key] = l.access.PushFront(&entry{key: key, val: val})

	for len(l.elements) > l.size {
		back := l.access.Back()
		evicted := back.Value.(*entry)

		delete(l.elements, evicted.key)
		l.access.Remove(back)

		if l.onEvict != nil {
			l.onEvict(evicted.key, evicted.val)
		}
	}
}

func (l *LRU) Remove(key interface{}) {
	l.Lock()
	defer l.Unlock()

	if elem, ok := l.elements[key]; ok {
		delete(l.elements, key)
		l.access.Remove(elem)
	}
}

func (l *LRU) Len() int {
	l.Lock()
	defer l.Unlock()

	return len(l.elements)
}

// Recent returns up to n keys, most recently used first.
func (l *LRU) Recent(n int) []interface{} {
	l.Lock()
	defer l.Unlock()

	out := make([]interface{}, 0, n)

	for current := l.access.Front(); current != nil && len(out) < n; current = current.Next() {
		out = append(out, current.Value.(*entry).key)
	}

	return out
}
