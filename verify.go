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
	"sync"

	"github.com/pkg/errors"
)

// VerifyGroups re-runs the selection behind each recorded group against the
// current pool and reports, per group, whether it is reproduced exactly. The
// selections run concurrently on workers goroutines.
func VerifyGroups(pool *Pool, groups []*Group, workers int) []error {
	results := make([]error, len(groups))

	wp := NewWorkerPool()
	wp.Start(workers)
	defer wp.Stop()

	var wg sync.WaitGroup
	wg.Add(len(groups))

	for i := range groups {
		i := i

		wp.Queue(func() {
			defer wg.Done()
			results[i] = VerifyGroup(pool, groups[i])
		})
	}

	wg.Wait()

	return results
}

// VerifyGroup checks that selecting from pool with the group's seed and size
// yields the group again.
func VerifyGroup(pool *Pool, group *Group) error {
	if group == nil {
		return errors.New("nil group")
	}

	expected, err := pool.SelectGroup(group.Seed(), group.Size())
	if err != nil {
		return errors.Wrapf(err, "failed to reselect group %s", group.Seed())
	}

	if !expected.Equal(group) {
		return errors.Wrapf(ErrGroupMismatch, "seed %s", group.Seed())
	}

	return nil
}
