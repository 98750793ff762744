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
	"time"

	"github.com/perlin-network/sortition/log"
	"github.com/pkg/errors"
)

// SelectGroup draws size distinct participants with probability proportional
// to their weight. The outcome depends only on seed, size and the state of the
// pool, so anyone holding the same pool state can reproduce it.
//
// Slot i takes the next value of the seed stream modulo the working total and
// descends the tree with it. When the candidate was already selected earlier
// in the call, its weight is excluded for the remainder of the call, the
// working total shrinks accordingly, and the slot is redrawn from the next
// stream value. The persistent tree is never modified.
func (p *Pool) SelectGroup(seed Seed, size int, opts ...SelectOption) (*Group, error) {
	var o selectOptions
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()

	p.mu.RLock()
	members, weight, resampled, err := p.selectGroup(seed, size)
	p.mu.RUnlock()

	if err == nil && weight < o.minGroupWeight {
		err = errors.Wrapf(ErrGroupUnderweight, "group weighs %d, need %d", weight, o.minGroupWeight)
	}

	p.metrics.markSelection(start, resampled, err)

	logger := log.Pool("select")

	if err != nil {
		logger.Warn().
			Err(err).
			Hex("seed", seed[:]).
			Int("size", size).
			Msg("Failed to select group.")

		return nil, err
	}

	logger.Debug().
		Hex("seed", seed[:]).
		Int("size", size).
		Int("resampled", resampled).
		Msg("Selected group.")

	return &Group{seed: seed, members: members}, nil
}

type selectOptions struct {
	minGroupWeight uint64
}

type SelectOption func(*selectOptions)

// WithMinGroupWeight fails a selection whose members weigh less than w in
// total.
func WithMinGroupWeight(w uint64) SelectOption {
	return func(o *selectOptions) {
		o.minGroupWeight = w
	}
}

// selectGroup returns the members, their summed weight and the number of
// resampled draws.
func (p *Pool) selectGroup(seed Seed, size int) ([]ID, uint64, int, error) {
	if size <= 0 {
		return nil, 0, 0, errors.Wrapf(ErrInvalidGroupSize, "got %d", size)
	}

	total, eligible := p.tree.TotalWeight(), p.tree.NonZero()

	if total == 0 || eligible < size {
		return nil, 0, 0, &InsufficientPoolError{
			TotalWeight: total,
			Eligible:    eligible,
			Requested:   size,
		}
	}

	var (
		s        = newStream(seed)
		overlay  = make(map[int]uint64)
		selected = make(map[int]struct{}, size)
		members  = make([]ID, 0, size)

		weight    uint64
		resampled int
	)

	for len(members) < size {
		working := total - overlay[1]

		// Every remaining unit of weight belongs to a selected participant.
		if working == 0 {
			return nil, 0, resampled, &InsufficientPoolError{
				TotalWeight: total,
				Eligible:    eligible,
				Requested:   size,
			}
		}

		id, pos, err := p.tree.draw(s.nextMod(working), overlay)
		if err != nil {
			return nil, 0, resampled, errors.Wrap(err, "failed to draw from tree")
		}

		if _, dup := selected[pos]; dup {
			p.tree.exclude(pos, overlay)
			resampled++

			continue
		}

		selected[pos] = struct{}{}
		members = append(members, id)
		weight += p.tree.sums[p.tree.capacity+pos]
	}

	return members, weight, resampled, nil
}
