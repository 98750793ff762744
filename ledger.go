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

	"github.com/perlin-network/sortition/log"
	"github.com/pkg/errors"
)

// StakeLedger is the system of record for stake, delegation and bonding. The
// pool only ever reads from it.
type StakeLedger interface {
	// EligibleStake returns the stake of id counted towards its weight.
	EligibleStake(id ID) (*big.Int, error)

	// IsBonded reports whether id has unbonded capacity left to back a
	// group duty.
	IsBonded(id ID) (bool, error)

	// Identifiers lists every identifier known to the ledger, in the order
	// the ledger first saw them.
	Identifiers() ([]ID, error)

	// Journal calls fn for every notification with a sequence number of at
	// least from, in sequence order.
	Journal(from uint64, fn func(Notification) error) error

	// Subscribe streams notifications as the ledger emits them. The returned
	// function cancels the subscription.
	Subscribe() (<-chan Notification, func())
}

// Slasher receives misbehavior reports forwarded by a group consumer.
type Slasher interface {
	Slash(id ID, seed Seed, evidence Evidence) error
}

type NotificationKind uint8

const (
	NotifyUpdate NotificationKind = iota
	NotifyEvict
	NotifyBan
	NotifyUnban
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyUpdate:
		return "update"
	case NotifyEvict:
		return "evict"
	case NotifyBan:
		return "ban"
	case NotifyUnban:
		return "unban"
	}

	return "unknown"
}

// Notification is one ledger state change. Seq starts at 1 and increases by
// exactly one per notification.
type Notification struct {
	Seq    uint64
	Kind   NotificationKind
	ID     ID
	Stake  *big.Int
	Bonded bool
}

// Apply performs the pool mutation a notification calls for. Evicting an
// identifier the pool does not hold is logged and ignored.
func (n Notification) Apply(pool *Pool) error {
	switch n.Kind {
	case NotifyUpdate:
		return pool.UpdateEligibility(n.ID, n.Stake, n.Bonded)
	case NotifyEvict:
		err := pool.Evict(n.ID)

		if errors.Cause(err) == ErrNotFound {
			logger := log.Ledger("notify")
			logger.Warn().
				Uint64("seq", n.Seq).
				Hex("id", n.ID[:]).
				Msg("Ledger evicted an identifier unknown to the pool.")

			return nil
		}

		return err
	case NotifyBan:
		return pool.Ban(n.ID)
	case NotifyUnban:
		if err := pool.Unban(n.ID); err != nil {
			return err
		}

		return pool.UpdateEligibility(n.ID, n.Stake, n.Bonded)
	}

	return errors.Errorf("unknown notification kind %d", n.Kind)
}

// Rebuild constructs a pool by replaying the ledger journal from the start.
// Replaying the same journal always yields the same tree, so the rebuilt pool
// draws exactly like the pool that followed the ledger live. It returns the
// sequence number of the next notification to apply.
func Rebuild(ledger StakeLedger, opts ...PoolOption) (*Pool, uint64, error) {
	pool := NewPool(opts...)
	next := uint64(1)

	err := ledger.Journal(next, func(n Notification) error {
		if n.Seq != next {
			return errors.Errorf("journal gap: expected seq %d, got %d", next, n.Seq)
		}

		if err := n.Apply(pool); err != nil {
			return errors.Wrapf(err, "failed to replay seq %d", n.Seq)
		}

		next++
		return nil
	})

	if err != nil {
		return nil, 0, err
	}

	logger := log.Ledger("rebuild")
	logger.Info().
		Uint64("applied", next-1).
		Int("participants", pool.Len()).
		Uint64("total_weight", pool.TotalWeight()).
		Msg("Rebuilt pool from ledger journal.")

	return pool, next, nil
}
