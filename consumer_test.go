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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerRequestGroup(t *testing.T) {
	pool := newTestPool()
	fill(t, pool, 1, 2, 3, 4)

	consumer := NewConsumer(pool, newMemLedger(), 2)

	group, err := consumer.RequestGroup(testSeed(0), 3)
	require.NoError(t, err)

	issued, ok := consumer.Group(testSeed(0))
	require.True(t, ok)
	assert.True(t, group.Equal(issued))

	_, err = consumer.RequestGroup(testSeed(1), 5)
	assert.True(t, IsInsufficientPool(err))

	_, ok = consumer.Group(testSeed(1))
	assert.False(t, ok)

	// The oldest group falls out of the bounded cache.
	_, err = consumer.RequestGroup(testSeed(2), 1)
	require.NoError(t, err)
	_, err = consumer.RequestGroup(testSeed(3), 1)
	require.NoError(t, err)

	_, ok = consumer.Group(testSeed(0))
	assert.False(t, ok)
}

func TestConsumerReportMisbehavior(t *testing.T) {
	pool := newTestPool()
	ids := fill(t, pool, 5, 5, 5, 5, 5, 5)

	ledger := newMemLedger()
	consumer := NewConsumer(pool, ledger, 8)

	seed := testSeed(7)

	group, err := consumer.RequestGroup(seed, 3)
	require.NoError(t, err)

	var outsider ID
	for _, id := range ids {
		if !group.Contains(id) {
			outsider = id
			break
		}
	}

	evidence := Evidence{Kind: EvidenceInactivity, Blob: []byte("no response")}

	err = consumer.ReportMisbehavior(group.Member(0), testSeed(8), evidence)
	assert.Equal(t, ErrUnknownGroup, errors.Cause(err))

	err = consumer.ReportMisbehavior(outsider, seed, evidence)
	assert.Equal(t, ErrNotGroupMember, errors.Cause(err))

	assert.Empty(t, ledger.slashed)

	// Economic faults are forwarded without a ban.
	require.NoError(t, consumer.ReportMisbehavior(group.Member(0), seed, evidence))
	assert.False(t, pool.IsBanned(group.Member(0)))

	// Protocol-breaking faults also ban.
	equivocation := Evidence{Kind: EvidenceEquivocation, Blob: []byte("two signatures")}
	require.NoError(t, consumer.ReportMisbehavior(group.Member(1), seed, equivocation))
	assert.True(t, pool.IsBanned(group.Member(1)))
	assert.False(t, pool.IsEligible(group.Member(1)))

	require.Len(t, ledger.slashed, 2)
	assert.Equal(t, group.Member(1), ledger.slashed[1].id)
	assert.Equal(t, seed, ledger.slashed[1].seed)
	assert.Equal(t, equivocation, ledger.slashed[1].evidence)
}

func TestConsumerReportWhileLocked(t *testing.T) {
	pool := newTestPool()
	fill(t, pool, 5, 5, 5, 5)

	ledger := newMemLedger()
	consumer := NewConsumer(pool, ledger, 8)

	seed := testSeed(3)

	group, err := consumer.RequestGroup(seed, 2)
	require.NoError(t, err)

	cheat := group.Member(0)
	evidence := Evidence{Kind: EvidenceInvalidShare, Blob: []byte("bad share")}

	consumer.LockPool()
	assert.True(t, pool.IsLocked())

	// The report is accepted once; the ban waits for the lock to lift.
	require.NoError(t, consumer.ReportMisbehavior(cheat, seed, evidence))
	assert.Len(t, ledger.slashed, 1)
	assert.False(t, pool.IsBanned(cheat))
	assert.Equal(t, 1, consumer.DeferredBans())

	// Selection keeps working on the frozen pool.
	again, err := consumer.RequestGroup(testSeed(4), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Size())

	require.NoError(t, consumer.UnlockPool())
	assert.False(t, pool.IsLocked())
	assert.True(t, pool.IsBanned(cheat))
	assert.False(t, pool.IsEligible(cheat))
	assert.Equal(t, 0, consumer.DeferredBans())
	assert.EqualValues(t, 15, pool.TotalWeight())
}

func TestEvidenceKind(t *testing.T) {
	for _, k := range []EvidenceKind{EvidenceInactivity, EvidenceInvalidShare, EvidenceEquivocation} {
		parsed, err := ParseEvidenceKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseEvidenceKind("bribery")
	assert.Error(t, err)

	assert.False(t, EvidenceInactivity.ProtocolBreaking())
	assert.True(t, EvidenceInvalidShare.ProtocolBreaking())
	assert.True(t, EvidenceEquivocation.ProtocolBreaking())
}
