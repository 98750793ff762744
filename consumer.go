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

	"github.com/perlin-network/sortition/log"
	"github.com/perlin-network/sortition/lru"
	"github.com/pkg/errors"
)

type EvidenceKind uint8

const (
	// EvidenceInactivity covers economic faults such as missing a duty.
	EvidenceInactivity EvidenceKind = iota

	// EvidenceInvalidShare and EvidenceEquivocation break the protocol
	// itself and get the offender banned from future groups.
	EvidenceInvalidShare
	EvidenceEquivocation
)

func (k EvidenceKind) String() string {
	switch k {
	case EvidenceInactivity:
		return "inactivity"
	case EvidenceInvalidShare:
		return "invalid_share"
	case EvidenceEquivocation:
		return "equivocation"
	}

	return "unknown"
}

func ParseEvidenceKind(s string) (EvidenceKind, error) {
	for _, k := range []EvidenceKind{EvidenceInactivity, EvidenceInvalidShare, EvidenceEquivocation} {
		if k.String() == s {
			return k, nil
		}
	}

	return 0, errors.Errorf("unknown evidence kind %q", s)
}

func (k EvidenceKind) ProtocolBreaking() bool {
	return k == EvidenceInvalidShare || k == EvidenceEquivocation
}

type Evidence struct {
	Kind EvidenceKind
	Blob []byte
}

// Consumer is the boundary the surrounding protocol uses to request groups
// and to report members that misbehaved while serving in one.
type Consumer struct {
	pool    *Pool
	slasher Slasher
	metrics *Metrics

	groups *lru.LRU // Seed -> *Group

	// deferred holds bans reported while the pool was locked.
	mu       sync.Mutex
	deferred map[ID]struct{}
}

func NewConsumer(pool *Pool, slasher Slasher, cacheSize int) *Consumer {
	groups := lru.NewLRU(cacheSize).OnEvict(func(key, _ interface{}) {
		seed := key.(Seed)

		logger := log.Consumer("evict")
		logger.Debug().
			Hex("seed", seed[:]).
			Msg("Forgot issued group.")
	})

	return &Consumer{
		pool:    pool,
		slasher: slasher,
		metrics:  pool.metrics,
		groups:   groups,
		deferred: make(map[ID]struct{}),
	}
}

func (c *Consumer) Pool() *Pool {
	return c.pool
}

// RequestGroup selects a group and remembers it so that misbehavior of its
// members can be reported later. Failures are returned as is; retrying once
// the pool has grown is up to the caller.
func (c *Consumer) RequestGroup(seed Seed, size int, opts ...SelectOption) (*Group, error) {
	group, err := c.pool.SelectGroup(seed, size, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to select group for seed %s", seed)
	}

	c.groups.Put(seed, group)

	logger := log.Consumer("request")
	logger.Info().
		Hex("seed", seed[:]).
		Int("size", group.Size()).
		Msg("Issued group.")

	return group, nil
}

// Group returns a group previously issued for seed.
func (c *Consumer) Group(seed Seed) (*Group, bool) {
	group, ok := c.groups.Load(seed)
	if !ok {
		return nil, false
	}

	return group.(*Group), true
}

// ReportMisbehavior forwards a report against a member of an issued group to
// the slasher. Protocol-breaking evidence additionally bans the member from
// future selections, or once the pool is unlocked if it is locked. A nil error
// acknowledges the report.
func (c *Consumer) ReportMisbehavior(id ID, seed Seed, evidence Evidence) error {
	group, ok := c.Group(seed)
	if !ok {
		return errors.Wrapf(ErrUnknownGroup, "seed %s", seed)
	}

	if !group.Contains(id) {
		return errors.Wrapf(ErrNotGroupMember, "%s in group %s", id, seed)
	}

	if err := c.slasher.Slash(id, seed, evidence); err != nil {
		return errors.Wrapf(err, "failed to forward report against %s", id)
	}

	c.metrics.markReported()

	logger := log.Consumer("report")
	logger.Info().
		Hex("id", id[:]).
		Hex("seed", seed[:]).
		Str("kind", evidence.Kind.String()).
		Int("evidence_len", len(evidence.Blob)).
		Msg("Reported misbehavior.")

	if !evidence.Kind.ProtocolBreaking() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.pool.Ban(id)

	if errors.Cause(err) == ErrPoolLocked {
		c.deferred[id] = struct{}{}

		logger.Info().
			Hex("id", id[:]).
			Int("deferred", len(c.deferred)).
			Msg("Pool is locked; deferred ban until it is unlocked.")

		return nil
	}

	if err != nil {
		return errors.Wrapf(err, "failed to ban %s", id)
	}

	return nil
}

// LockPool freezes the pool for the duty window of issued groups. Selection
// and reads keep working; ledger updates queue up in the follower and bans
// reported in the meantime are deferred.
func (c *Consumer) LockPool() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pool.LockPool()

	logger := log.Consumer("lock")
	logger.Info().
		Uint64("total_weight", c.pool.TotalWeight()).
		Msg("Locked pool.")
}

// UnlockPool lifts the lock and applies every ban deferred while it held.
func (c *Consumer) UnlockPool() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pool.UnlockPool()

	for id := range c.deferred {
		if err := c.pool.Ban(id); err != nil {
			return errors.Wrapf(err, "failed to apply deferred ban of %s", id)
		}

		delete(c.deferred, id)
	}

	logger := log.Consumer("lock")
	logger.Info().
		Uint64("total_weight", c.pool.TotalWeight()).
		Msg("Unlocked pool.")

	return nil
}

// DeferredBans returns the number of bans waiting for the pool to unlock.
func (c *Consumer) DeferredBans() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.deferred)
}
