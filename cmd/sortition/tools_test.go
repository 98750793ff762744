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

package main

import (
	"math/big"
	"strings"
	"testing"

	"github.com/perlin-network/sortition"
	"github.com/perlin-network/sortition/stakeledger"
	"github.com/perlin-network/sortition/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitWeights() sortition.PoolOption {
	return sortition.WithWeightFunc(sortition.WeightFunc{
		MinimumStake:  big.NewInt(1),
		WeightDivisor: big.NewInt(1),
	})
}

func TestLoadCSV(t *testing.T) {
	explicit := sortition.IDFromName("explicit")

	input := strings.Join([]string{
		"id,stake,bonded",
		"# staked but unbonded",
		"alice, 10, false",
		"bob,20,true",
		explicit.String() + ",30,1",
	}, "\n")

	ledger, err := stakeledger.New(store.NewInmem())
	require.NoError(t, err)

	n, err := loadCSV(strings.NewReader(input), ledger)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ids, err := ledger.Identifiers()
	require.NoError(t, err)
	assert.Equal(t, []sortition.ID{sortition.IDFromName("alice"), sortition.IDFromName("bob"), explicit}, ids)

	bonded, err := ledger.IsBonded(sortition.IDFromName("alice"))
	require.NoError(t, err)
	assert.False(t, bonded)

	pool, _, err := sortition.Rebuild(ledger, unitWeights())
	require.NoError(t, err)
	assert.EqualValues(t, 50, pool.TotalWeight())
	assert.Equal(t, 2, pool.EligibleCount())
}

func TestLoadCSVErrors(t *testing.T) {
	for _, input := range []string{
		"alice,ten,true",
		"alice,10,maybe",
		"alice,10",
		"alice,-5,true",
	} {
		ledger, err := stakeledger.New(store.NewInmem())
		require.NoError(t, err)

		_, err = loadCSV(strings.NewReader(input), ledger)
		assert.Error(t, err, input)
	}
}

func TestParseOrHash(t *testing.T) {
	id := sortition.IDFromName("x")
	assert.Equal(t, id, parseOrHashID(id.String()))
	assert.Equal(t, id, parseOrHashID("x"))

	seed := sortition.SeedFromBytes([]byte("y"))
	assert.Equal(t, seed, parseOrHashSeed(seed.String()))
	assert.Equal(t, seed, parseOrHashSeed("y"))
}

func TestSimulate(t *testing.T) {
	pool := sortition.NewPool(unitWeights())

	weights := []int64{1, 2, 3, 4}
	for i, w := range weights {
		require.NoError(t, pool.UpdateEligibility(sortition.IDFromName(string(rune('a'+i))), big.NewInt(w), true))
	}

	const rounds = 20000

	tallies, err := simulate(pool, rounds, 1)
	require.NoError(t, err)
	require.Len(t, tallies, len(weights))

	for i, w := range weights {
		tally := tallies[sortition.IDFromName(string(rune('a'+i)))]
		require.NotNil(t, tally)

		assert.Equal(t, tally.first, tally.selected)
		assert.InDelta(t, float64(w)/10, float64(tally.first)/rounds, 0.015)
	}

	tallies, err = simulate(pool, 100, 4)
	require.NoError(t, err)

	for _, tally := range tallies {
		assert.Equal(t, 100, tally.selected)
	}

	_, err = simulate(pool, 1, 5)
	assert.True(t, sortition.IsInsufficientPool(err))
}

func TestLoadGroupsAndVerify(t *testing.T) {
	pool := sortition.NewPool(unitWeights())
	for i := 0; i < 8; i++ {
		require.NoError(t, pool.UpdateEligibility(sortition.IDFromName(string(rune('a'+i))), big.NewInt(int64(i+1)), true))
	}

	var rows []string
	for i := 0; i < 4; i++ {
		group, err := pool.SelectGroup(sortition.SeedFromBytes([]byte{byte(i)}), 3)
		require.NoError(t, err)

		row := group.Seed().String()
		for _, id := range group.Members() {
			row += "," + id.String()
		}

		rows = append(rows, row)
	}

	groups, err := loadGroups(strings.NewReader("# recorded\n" + strings.Join(rows, "\n")))
	require.NoError(t, err)
	require.Len(t, groups, 4)

	for _, err := range sortition.VerifyGroups(pool, groups, 2) {
		assert.NoError(t, err)
	}

	_, err = loadGroups(strings.NewReader("nothex," + sortition.IDFromName("a").String()))
	assert.Error(t, err)
}
