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
	"bytes"
	"math/big"
	"sort"
	"sync"

	"github.com/perlin-network/sortition/log"
	"github.com/pkg/errors"
)

// Participant is a snapshot of one participant's metadata.
type Participant struct {
	ID     ID
	Stake  *big.Int
	Weight uint64
	State  EligibilityState
}

func (p Participant) Eligible() bool {
	return p.Weight > 0
}

type participant struct {
	stake  *big.Int
	bonded bool
	weight uint64
	state  EligibilityState
}

// Pool is the single owner of a sortition tree. Mutations hold the write lock
// for their whole duration, so readers only ever observe a tree whose
// ancestor sums are consistent.
type Pool struct {
	mu sync.RWMutex

	weigh   WeightFunc
	tree    *Tree
	metrics *Metrics

	participants map[ID]*participant
	banned       map[ID]struct{}

	locked bool
}

type PoolOption func(*Pool)

func WithWeightFunc(w WeightFunc) PoolOption {
	return func(p *Pool) {
		p.weigh = w
	}
}

func WithMetrics(m *Metrics) PoolOption {
	return func(p *Pool) {
		p.metrics = m
	}
}

// WithCapacity pre-sizes the tree, rounded up to a power of two.
func WithCapacity(n int) PoolOption {
	return func(p *Pool) {
		p.tree = NewTree(n)
	}
}

func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		weigh:        DefaultWeightFunc(),
		tree:         NewTree(0),
		participants: make(map[ID]*participant),
		banned:       make(map[ID]struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Pool) WeightFunc() WeightFunc {
	return p.weigh
}

// UpdateEligibility recomputes the weight of id from its eligible stake and
// bonding status. A new participant is inserted only once its weight is
// positive, and a participant whose weight drops to 0 keeps its slot.
func (p *Pool) UpdateEligibility(id ID, stake *big.Int, bonded bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.locked {
		return errors.Wrapf(ErrPoolLocked, "cannot update %s", id)
	}

	_, banned := p.banned[id]
	state, weight := p.weigh.Derive(stake, bonded, banned)

	rec, exists := p.participants[id]

	if !exists {
		if weight == 0 {
			return nil
		}

		if _, err := p.tree.Insert(id, weight); err != nil {
			return err
		}

		p.participants[id] = &participant{stake: copyStake(stake), bonded: bonded, weight: weight, state: state}
		p.metrics.markUpdated(p.tree.TotalWeight(), p.tree.NonZero())

		logger := log.Pool("insert")
		logger.Debug().
			Hex("id", id[:]).
			Uint64("weight", weight).
			Uint64("total_weight", p.tree.TotalWeight()).
			Msg("Inserted participant.")

		return nil
	}

	rec.stake = copyStake(stake)
	rec.bonded = bonded
	rec.state = state

	if rec.weight == weight {
		return nil
	}

	if err := p.setWeight(id, rec, weight); err != nil {
		return err
	}

	logger := log.Pool("update")
	logger.Debug().
		Hex("id", id[:]).
		Uint64("weight", weight).
		Str("state", state.String()).
		Uint64("total_weight", p.tree.TotalWeight()).
		Msg("Updated participant weight.")

	return nil
}

// Ban forces the weight of id to 0 and keeps it from regaining weight until
// Unban is called. Identifiers unknown to the pool may be banned ahead of
// their first update.
func (p *Pool) Ban(id ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.locked {
		return errors.Wrapf(ErrPoolLocked, "cannot ban %s", id)
	}

	if _, banned := p.banned[id]; banned {
		return nil
	}

	p.banned[id] = struct{}{}
	p.metrics.markBanned()

	if rec, exists := p.participants[id]; exists {
		rec.state &^= NotBanned

		if err := p.setWeight(id, rec, 0); err != nil {
			return err
		}
	}

	logger := log.Pool("ban")
	logger.Info().
		Hex("id", id[:]).
		Uint64("total_weight", p.tree.TotalWeight()).
		Msg("Banned participant.")

	return nil
}

// Unban lifts a ban and restores the weight implied by the participant's last
// known stake and bonding status.
func (p *Pool) Unban(id ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.locked {
		return errors.Wrapf(ErrPoolLocked, "cannot unban %s", id)
	}

	if _, banned := p.banned[id]; !banned {
		return nil
	}

	delete(p.banned, id)

	if rec, exists := p.participants[id]; exists {
		state, weight := p.weigh.Derive(rec.stake, rec.bonded, false)
		rec.state = state

		if err := p.setWeight(id, rec, weight); err != nil {
			return err
		}
	}

	logger := log.Pool("unban")
	logger.Info().
		Hex("id", id[:]).
		Uint64("total_weight", p.tree.TotalWeight()).
		Msg("Lifted participant ban.")

	return nil
}

// Evict removes id from the pool and reclaims its tree slot. A ban on id
// survives eviction.
func (p *Pool) Evict(id ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.locked {
		return errors.Wrapf(ErrPoolLocked, "cannot evict %s", id)
	}

	if _, exists := p.participants[id]; !exists {
		return errors.Wrapf(ErrNotFound, "cannot evict %s", id)
	}

	pos, _ := p.tree.Position(id)
	if err := p.tree.Remove(pos); err != nil {
		return err
	}

	delete(p.participants, id)
	p.metrics.markEvicted()
	p.metrics.markUpdated(p.tree.TotalWeight(), p.tree.NonZero())

	logger := log.Pool("evict")
	logger.Info().
		Hex("id", id[:]).
		Int("position", pos).
		Uint64("total_weight", p.tree.TotalWeight()).
		Msg("Evicted participant.")

	return nil
}

func (p *Pool) setWeight(id ID, rec *participant, weight uint64) error {
	pos, ok := p.tree.Position(id)
	if !ok {
		return errors.Wrapf(ErrNotFound, "no tree slot for %s", id)
	}

	if err := p.tree.Update(pos, weight); err != nil {
		return err
	}

	rec.weight = weight
	p.metrics.markUpdated(p.tree.TotalWeight(), p.tree.NonZero())

	return nil
}

func (p *Pool) IsEligible(id ID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, exists := p.participants[id]
	return exists && rec.weight > 0
}

func (p *Pool) IsBanned(id ID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, banned := p.banned[id]
	return banned
}

// IsOperatorInPool reports whether id holds a slot in the tree, whatever its
// current weight.
func (p *Pool) IsOperatorInPool(id ID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, exists := p.participants[id]
	return exists
}

// IsOperatorUpToDate reports whether the weight held for id equals the weight
// the given ledger values would produce. An operator absent from the pool is
// up to date only if those values weigh nothing.
func (p *Pool) IsOperatorUpToDate(id ID, stake *big.Int, bonded bool) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, banned := p.banned[id]
	_, weight := p.weigh.Derive(stake, bonded, banned)

	rec, exists := p.participants[id]
	if !exists {
		return weight == 0
	}

	return rec.weight == weight
}

func (p *Pool) Weight(id ID) (uint64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, exists := p.participants[id]
	if !exists {
		return 0, errors.Wrapf(ErrNotFound, "id %s", id)
	}

	return rec.weight, nil
}

func (p *Pool) Participant(id ID) (Participant, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, exists := p.participants[id]
	if !exists {
		return Participant{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}

	return rec.snapshot(id), nil
}

// Operators returns every participant, sorted by identifier.
func (p *Pool) Operators() []Participant {
	p.mu.RLock()

	out := make([]Participant, 0, len(p.participants))
	for id, rec := range p.participants {
		out = append(out, rec.snapshot(id))
	}

	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})

	return out
}

func (p *Pool) TotalWeight() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.tree.TotalWeight()
}

// Len returns the number of participants holding a slot.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.tree.Len()
}

func (p *Pool) EligibleCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.tree.NonZero()
}

func (p *Pool) Capacity() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.tree.Capacity()
}

// Draw returns the participant owning r in [0, TotalWeight()).
func (p *Pool) Draw(r uint64) (ID, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id, _, err := p.tree.Draw(r)
	return id, err
}

// LockPool refuses every mutation until UnlockPool is called. Reads and
// group selection remain available.
func (p *Pool) LockPool() {
	p.mu.Lock()
	p.locked = true
	p.mu.Unlock()
}

func (p *Pool) UnlockPool() {
	p.mu.Lock()
	p.locked = false
	p.mu.Unlock()
}

func (p *Pool) IsLocked() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.locked
}

func (rec *participant) snapshot(id ID) Participant {
	return Participant{
		ID:     id,
		Stake:  copyStake(rec.stake),
		Weight: rec.weight,
		State:  rec.state,
	}
}

func copyStake(stake *big.Int) *big.Int {
	if stake == nil {
		return new(big.Int)
	}

	return new(big.Int).Set(stake)
}
