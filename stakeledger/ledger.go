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

// Package stakeledger is a reference stake ledger persisted in a store.KV. It
// records stake, bonding and ban status per identifier, journals every change
// as a sequenced notification, and keeps the misbehavior reports it receives.
// It applies no economic rules of its own.
package stakeledger

import (
	"bytes"
	"math/big"
	"sync"

	"github.com/perlin-network/sortition"
	"github.com/perlin-network/sortition/log"
	"github.com/perlin-network/sortition/store"
	"github.com/pkg/errors"
)

const DefaultSubscriberBuffer = 1024

var (
	_ sortition.StakeLedger = (*Ledger)(nil)
	_ sortition.Slasher     = (*Ledger)(nil)
)

type Ledger struct {
	mu sync.Mutex

	kv store.KV

	seq     uint64 // last journaled sequence number
	order   uint64 // identifiers ever registered
	slashes uint64

	buffer      int
	nextSub     uint64
	subscribers map[uint64]chan sortition.Notification
}

type Option func(*Ledger)

// WithSubscriberBuffer sets how many notifications a subscriber may lag
// behind before further ones are dropped for it.
func WithSubscriberBuffer(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.buffer = n
		}
	}
}

// New opens a ledger over kv, resuming the counters it persisted earlier.
func New(kv store.KV, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		kv:          kv,
		buffer:      DefaultSubscriberBuffer,
		subscribers: make(map[uint64]chan sortition.Notification),
	}

	for _, opt := range opts {
		opt(l)
	}

	var err error

	if l.seq, err = l.readCounter(keyJournalSeq[:]); err != nil {
		return nil, errors.Wrap(err, "failed to read journal sequence")
	}

	if l.order, err = l.readCounter(keyOrderLen[:]); err != nil {
		return nil, errors.Wrap(err, "failed to read identifier count")
	}

	if l.slashes, err = l.readCounter(keySlashesLen[:]); err != nil {
		return nil, errors.Wrap(err, "failed to read slash count")
	}

	return l, nil
}

func (l *Ledger) readCounter(key []byte) (uint64, error) {
	buf, err := l.kv.Get(key)

	if errors.Cause(err) == store.ErrNotFound {
		return 0, nil
	}

	if err != nil {
		return 0, err
	}

	return decodeUint64(buf)
}

// Seq returns the sequence number of the last journaled notification.
func (l *Ledger) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.seq
}

func (l *Ledger) EligibleStake(id sortition.ID) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.known(id) {
		return nil, errors.Wrapf(sortition.ErrNotFound, "ledger has no record of %s", id)
	}

	return l.stake(id)
}

func (l *Ledger) IsBonded(id sortition.ID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.known(id) {
		return false, errors.Wrapf(sortition.ErrNotFound, "ledger has no record of %s", id)
	}

	return l.flag(keyBonded[:], id)
}

func (l *Ledger) IsBanned(id sortition.ID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.flag(keyBanned[:], id)
}

// Identifiers lists registered identifiers in registration order.
func (l *Ledger) Identifiers() ([]sortition.ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ids []sortition.ID

	err := l.kv.Iterate(keyOrder[:], func(_, value []byte) error {
		var id sortition.ID

		if len(value) != len(id) {
			return errors.Errorf("corrupt identifier record of %d bytes", len(value))
		}

		copy(id[:], value)
		ids = append(ids, id)

		return nil
	})

	if err != nil {
		return nil, errors.Wrap(err, "failed to iterate identifiers")
	}

	return ids, nil
}

// Set records the stake and bonding status of id, registering it if needed.
func (l *Ledger) Set(id sortition.ID, stake *big.Int, bonded bool) (sortition.Notification, error) {
	if stake == nil || stake.Sign() < 0 {
		return sortition.Notification{}, errors.Errorf("invalid stake %v for %s", stake, id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	batch := l.kv.NewWriteBatch()
	defer batch.Destroy()

	order := l.order

	if !l.known(id) {
		order++

		batch.Put(idKey(keyKnown[:], id), encodeUint64(order))
		batch.Put(indexKey(keyOrder[:], order), id[:])
		batch.Put(keyOrderLen[:], encodeUint64(order))
	}

	batch.Put(idKey(keyStake[:], id), encodeStake(stake))
	batch.Put(idKey(keyBonded[:], id), encodeBool(bonded))

	n := sortition.Notification{
		Kind:   sortition.NotifyUpdate,
		ID:     id,
		Stake:  new(big.Int).Set(stake),
		Bonded: bonded,
	}

	if err := l.commit(batch, &n); err != nil {
		return n, err
	}

	l.order = order

	logger := log.Ledger("stake")
	logger.Debug().
		Uint64("seq", n.Seq).
		Hex("id", id[:]).
		Str("stake", stake.String()).
		Bool("bonded", bonded).
		Msg("Recorded stake.")

	return n, nil
}

// SetStake changes the stake of id, keeping its bonding status.
func (l *Ledger) SetStake(id sortition.ID, stake *big.Int) (sortition.Notification, error) {
	bonded, err := l.IsBonded(id)
	if err != nil && errors.Cause(err) != sortition.ErrNotFound {
		return sortition.Notification{}, err
	}

	return l.Set(id, stake, bonded)
}

// SetBonded changes the bonding status of id, keeping its stake.
func (l *Ledger) SetBonded(id sortition.ID, bonded bool) (sortition.Notification, error) {
	stake, err := l.EligibleStake(id)
	if err != nil {
		return sortition.Notification{}, err
	}

	return l.Set(id, stake, bonded)
}

// Evict forgets the stake and bonding status of id. A ban on id outlives the
// eviction.
func (l *Ledger) Evict(id sortition.ID) (sortition.Notification, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	buf, err := l.kv.Get(idKey(keyKnown[:], id))
	if err != nil {
		return sortition.Notification{}, errors.Wrapf(sortition.ErrNotFound, "ledger has no record of %s", id)
	}

	order, err := decodeUint64(buf)
	if err != nil {
		return sortition.Notification{}, errors.Wrapf(err, "corrupt registration of %s", id)
	}

	batch := l.kv.NewWriteBatch()
	defer batch.Destroy()

	batch.Delete(idKey(keyKnown[:], id))
	batch.Delete(indexKey(keyOrder[:], order))
	batch.Delete(idKey(keyStake[:], id))
	batch.Delete(idKey(keyBonded[:], id))

	n := sortition.Notification{Kind: sortition.NotifyEvict, ID: id, Stake: new(big.Int)}

	if err := l.commit(batch, &n); err != nil {
		return n, err
	}

	return n, nil
}

func (l *Ledger) Ban(id sortition.ID) (sortition.Notification, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.ban(id)
}

func (l *Ledger) ban(id sortition.ID) (sortition.Notification, error) {
	batch := l.kv.NewWriteBatch()
	defer batch.Destroy()

	batch.Put(idKey(keyBanned[:], id), encodeBool(true))

	n := sortition.Notification{Kind: sortition.NotifyBan, ID: id, Stake: new(big.Int)}

	if err := l.commit(batch, &n); err != nil {
		return n, err
	}

	logger := log.Ledger("ban")
	logger.Info().
		Uint64("seq", n.Seq).
		Hex("id", id[:]).
		Msg("Banned identifier.")

	return n, nil
}

// Unban lifts a ban. The notification carries the current stake and bonding
// status of id so that its weight can be restored.
func (l *Ledger) Unban(id sortition.ID) (sortition.Notification, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stake, err := l.stake(id)
	if err != nil {
		return sortition.Notification{}, err
	}

	bonded, err := l.flag(keyBonded[:], id)
	if err != nil {
		return sortition.Notification{}, err
	}

	batch := l.kv.NewWriteBatch()
	defer batch.Destroy()

	batch.Delete(idKey(keyBanned[:], id))

	n := sortition.Notification{Kind: sortition.NotifyUnban, ID: id, Stake: stake, Bonded: bonded}

	if err := l.commit(batch, &n); err != nil {
		return n, err
	}

	return n, nil
}

// commit assigns n the next sequence number, journals it alongside batch,
// and publishes it once the batch is durable.
func (l *Ledger) commit(batch store.WriteBatch, n *sortition.Notification) error {
	n.Seq = l.seq + 1

	batch.Put(indexKey(keyJournal[:], n.Seq), marshalNotification(*n))
	batch.Put(keyJournalSeq[:], encodeUint64(n.Seq))

	if err := l.kv.CommitWriteBatch(batch); err != nil {
		return errors.Wrapf(err, "failed to commit %s notification for %s", n.Kind, n.ID)
	}

	l.seq = n.Seq
	l.publish(*n)

	return nil
}

func (l *Ledger) publish(n sortition.Notification) {
	for id, ch := range l.subscribers {
		select {
		case ch <- n:
		default:
			logger := log.Ledger("notify")
			logger.Warn().
				Uint64("seq", n.Seq).
				Uint64("subscriber", id).
				Msg("Subscriber is lagging behind; dropped notification.")
		}
	}
}

// Journal replays journaled notifications with a sequence number of at least
// from, in order.
func (l *Ledger) Journal(from uint64, fn func(sortition.Notification) error) error {
	l.mu.Lock()
	last := l.seq
	l.mu.Unlock()

	for seq := from; seq <= last; seq++ {
		if seq == 0 {
			continue
		}

		buf, err := l.kv.Get(indexKey(keyJournal[:], seq))
		if err != nil {
			return errors.Wrapf(err, "failed to read journal entry %d", seq)
		}

		n, err := unmarshalNotification(bytes.NewReader(buf))
		if err != nil {
			return errors.Wrapf(err, "corrupt journal entry %d", seq)
		}

		if err := fn(n); err != nil {
			return err
		}
	}

	return nil
}

// Subscribe streams every notification committed after the call. Notifications
// a slow subscriber cannot take are dropped for it, and can be recovered from
// the journal.
func (l *Ledger) Subscribe() (<-chan sortition.Notification, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextSub
	l.nextSub++

	ch := make(chan sortition.Notification, l.buffer)
	l.subscribers[id] = ch

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()

			if _, ok := l.subscribers[id]; ok {
				delete(l.subscribers, id)
				close(ch)
			}
		})
	}
}

// Slash records a misbehavior report. Protocol-breaking evidence also bans
// the offender in the ledger.
func (l *Ledger) Slash(id sortition.ID, seed sortition.Seed, evidence sortition.Evidence) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := SlashRecord{Index: l.slashes + 1, ID: id, Seed: seed, Evidence: evidence}

	batch := l.kv.NewWriteBatch()
	defer batch.Destroy()

	batch.Put(indexKey(keySlashes[:], record.Index), record.Marshal())
	batch.Put(keySlashesLen[:], encodeUint64(record.Index))

	if err := l.kv.CommitWriteBatch(batch); err != nil {
		return errors.Wrapf(err, "failed to record slash against %s", id)
	}

	l.slashes = record.Index

	logger := log.Ledger("slash")
	logger.Info().
		Uint64("index", record.Index).
		Hex("id", id[:]).
		Hex("seed", seed[:]).
		Str("kind", evidence.Kind.String()).
		Msg("Recorded slash request.")

	if !evidence.Kind.ProtocolBreaking() {
		return nil
	}

	banned, err := l.flag(keyBanned[:], id)
	if err != nil {
		return err
	}

	if banned {
		return nil
	}

	_, err = l.ban(id)
	return err
}

// Slashes calls fn for every recorded slash request, oldest first.
func (l *Ledger) Slashes(fn func(SlashRecord) error) error {
	return l.kv.Iterate(keySlashes[:], func(_, value []byte) error {
		record, err := UnmarshalSlashRecord(bytes.NewReader(value))
		if err != nil {
			return err
		}

		return fn(record)
	})
}

func (l *Ledger) SlashCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.slashes
}

// Close cancels every subscription. The underlying store is left open.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, ch := range l.subscribers {
		delete(l.subscribers, id)
		close(ch)
	}

	return nil
}

func (l *Ledger) known(id sortition.ID) bool {
	_, err := l.kv.Get(idKey(keyKnown[:], id))
	return err == nil
}

func (l *Ledger) stake(id sortition.ID) (*big.Int, error) {
	buf, err := l.kv.Get(idKey(keyStake[:], id))

	if errors.Cause(err) == store.ErrNotFound {
		return new(big.Int), nil
	}

	if err != nil {
		return nil, errors.Wrapf(err, "failed to read stake of %s", id)
	}

	return new(big.Int).SetBytes(buf), nil
}

func (l *Ledger) flag(prefix []byte, id sortition.ID) (bool, error) {
	buf, err := l.kv.Get(idKey(prefix, id))

	if errors.Cause(err) == store.ErrNotFound {
		return false, nil
	}

	if err != nil {
		return false, errors.Wrapf(err, "failed to read flag of %s", id)
	}

	return len(buf) == 1 && buf[0] == 1, nil
}
