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
	"context"
	"math/big"
	"sync"

	"github.com/perlin-network/sortition/log"
	"github.com/phf/go-queue/queue"
	"github.com/pkg/errors"
)

// Follower keeps a pool in step with a stake ledger. Notifications are applied
// strictly in sequence order: early arrivals wait for the gap before them to
// fill, and anything at or below the last accepted sequence is dropped.
type Follower struct {
	mu sync.Mutex

	pool   *Pool
	ledger StakeLedger

	// next is the sequence number the follower accepts next.
	next uint64

	// future holds notifications that arrived ahead of next.
	future map[uint64]Notification

	// backlog holds accepted notifications, in order, that have not been
	// applied yet because the pool is locked.
	backlog *queue.Queue
}

func NewFollower(pool *Pool, ledger StakeLedger, next uint64) *Follower {
	if next == 0 {
		next = 1
	}

	return &Follower{
		pool:    pool,
		ledger:  ledger,
		next:    next,
		future:  make(map[uint64]Notification),
		backlog: queue.New(),
	}
}

// Next returns the sequence number the follower expects next.
func (f *Follower) Next() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.next
}

// Pending returns the number of accepted notifications not yet applied.
func (f *Follower) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.backlog.Len()
}

// Handle accepts one notification and applies every notification that has
// become applicable because of it.
func (f *Follower) Handle(n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.handle(n)
}

func (f *Follower) handle(n Notification) error {
	logger := log.Ledger("notify")

	switch {
	case n.Seq < f.next:
		logger.Debug().
			Uint64("seq", n.Seq).
			Uint64("expected", f.next).
			Msg("Dropped stale ledger notification.")

		return nil
	case n.Seq > f.next:
		f.future[n.Seq] = n

		logger.Debug().
			Uint64("seq", n.Seq).
			Uint64("expected", f.next).
			Msg("Buffered out-of-order ledger notification.")

		return nil
	}

	f.accept(n)

	for {
		pending, ok := f.future[f.next]
		if !ok {
			break
		}

		delete(f.future, f.next)
		f.accept(pending)
	}

	return f.drain()
}

// Flush applies any backlog left over from a locked pool.
func (f *Follower) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.drain()
}

func (f *Follower) accept(n Notification) {
	f.backlog.PushBack(n)
	f.next = n.Seq + 1
}

func (f *Follower) drain() error {
	for f.backlog.Len() > 0 {
		n := f.backlog.Front().(Notification)

		err := n.Apply(f.pool)

		if errors.Cause(err) == ErrPoolLocked {
			logger := log.Ledger("notify")
			logger.Debug().
				Uint64("seq", n.Seq).
				Int("backlog", f.backlog.Len()).
				Msg("Pool is locked; holding ledger notifications.")

			return nil
		}

		f.backlog.PopFront()

		if err != nil {
			return errors.Wrapf(err, "failed to apply ledger notification %d", n.Seq)
		}
	}

	return nil
}

// Run applies notifications from a ledger subscription until ctx is done.
// Anything journaled before the subscription began is caught up first.
func (f *Follower) Run(ctx context.Context) {
	ch, cancel := f.ledger.Subscribe()
	defer cancel()

	logger := log.Ledger("notify")

	if err := f.CatchUp(); err != nil {
		logger.Error().
			Err(err).
			Msg("Failed to catch up with ledger journal.")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}

			if err := f.Handle(n); err != nil {
				logger.Error().
					Err(err).
					Uint64("seq", n.Seq).
					Msg("Failed to apply ledger notification.")
			}
		}
	}
}

// CatchUp replays journaled notifications the follower has not seen yet,
// filling any gap left by notifications the subscription dropped.
func (f *Follower) CatchUp() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.catchUp()
}

func (f *Follower) catchUp() error {
	from := f.next

	err := f.ledger.Journal(from, func(n Notification) error {
		// Entries already buffered from the subscription drain ahead of us.
		if n.Seq < f.next {
			return nil
		}

		return f.handle(n)
	})

	if err != nil {
		return errors.Wrapf(err, "failed to catch up from seq %d", from)
	}

	return nil
}

// Join catches up with the journal, then reads id from the ledger and enters
// it into the pool. It fails if the ledger values give id no weight.
func (f *Follower) Join(id ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pool.IsBanned(id) {
		return errors.Wrapf(ErrBanned, "cannot join %s", id)
	}

	if _, err := f.refresh(id); err != nil {
		return err
	}

	if !f.pool.IsEligible(id) {
		return errors.Wrapf(ErrNotEligible, "cannot join %s", id)
	}

	return nil
}

// Refresh brings id up to date with the ledger. It reports whether the pool
// changed, either through journaled notifications or a polled value.
func (f *Follower) Refresh(id ID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := f.next

	polled, err := f.refresh(id)
	if err != nil {
		return false, err
	}

	return polled || f.next != start, nil
}

// refresh applies the journal before anything read by polling, so that
// inserts and evictions land in the same order Rebuild replays them. A polled
// value is applied directly only if the journal still does not account for it
// after a second catch-up. It reports whether a polled value was applied.
func (f *Follower) refresh(id ID) (bool, error) {
	stake, bonded, current, err := f.poll(id)
	if err != nil || current {
		return false, err
	}

	// The journal may have grown while the ledger was read.
	stake, bonded, current, err = f.poll(id)
	if err != nil || current {
		return false, err
	}

	if err := f.pool.UpdateEligibility(id, stake, bonded); err != nil {
		return false, err
	}

	logger := log.Ledger("refresh")
	logger.Warn().
		Hex("id", id[:]).
		Uint64("next", f.next).
		Msg("Applied a ledger value missing from the journal.")

	return true, nil
}

// poll catches up with the journal and reads id from the ledger, reporting
// whether the pool already agrees with what was read.
func (f *Follower) poll(id ID) (*big.Int, bool, bool, error) {
	if err := f.catchUp(); err != nil {
		return nil, false, false, err
	}

	if err := f.drain(); err != nil {
		return nil, false, false, err
	}

	if pending := f.backlog.Len(); pending > 0 {
		return nil, false, false, errors.Wrapf(ErrPoolLocked, "cannot poll %s with %d notifications pending", id, pending)
	}

	stake, bonded, err := f.read(id)
	if err != nil {
		return nil, false, false, err
	}

	return stake, bonded, f.pool.IsOperatorUpToDate(id, stake, bonded), nil
}

func (f *Follower) read(id ID) (*big.Int, bool, error) {
	stake, err := f.ledger.EligibleStake(id)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read eligible stake of %s", id)
	}

	bonded, err := f.ledger.IsBonded(id)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read bonding status of %s", id)
	}

	return stake, bonded, nil
}

// Resync catches up with the journal, then polls the ledger for the current
// stake and bonding status of every identifier it knows. Polled values the
// journal does not account for are applied directly.
func (f *Follower) Resync() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pool.IsLocked() {
		return errors.Wrap(ErrPoolLocked, "cannot resync")
	}

	if err := f.catchUp(); err != nil {
		return err
	}

	ids, err := f.ledger.Identifiers()
	if err != nil {
		return errors.Wrap(err, "failed to list ledger identifiers")
	}

	var updated int

	for _, id := range ids {
		changed, err := f.refresh(id)
		if err != nil {
			return err
		}

		if changed {
			updated++
		}
	}

	logger := log.Ledger("resync")
	logger.Info().
		Int("identifiers", len(ids)).
		Int("updated", updated).
		Uint64("total_weight", f.pool.TotalWeight()).
		Msg("Resynced pool with ledger.")

	return nil
}
