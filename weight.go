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
	"strings"

	"github.com/perlin-network/sortition/conf"
	"github.com/perlin-network/sortition/sys"
	"github.com/pkg/errors"
)

// EligibilityState collapses the conditions that gate a non-zero weight.
type EligibilityState uint8

const (
	Staked EligibilityState = 1 << iota
	Bonded
	NotBanned

	Eligible = Staked | Bonded | NotBanned
)

func (s EligibilityState) Has(flag EligibilityState) bool {
	return s&flag == flag
}

func (s EligibilityState) IsEligible() bool {
	return s.Has(Eligible)
}

func (s EligibilityState) String() string {
	var parts []string

	if s.Has(Staked) {
		parts = append(parts, "staked")
	}

	if s.Has(Bonded) {
		parts = append(parts, "bonded")
	}

	if s.Has(NotBanned) {
		parts = append(parts, "not-banned")
	} else {
		parts = append(parts, "banned")
	}

	return strings.Join(parts, "|")
}

// WeightFunc maps an eligible stake to a selection weight:
// floor(stake / WeightDivisor) when stake >= MinimumStake, 0 otherwise.
type WeightFunc struct {
	MinimumStake  *big.Int
	WeightDivisor *big.Int
}

func NewWeightFunc(minimumStake, weightDivisor *big.Int) (WeightFunc, error) {
	if weightDivisor == nil || weightDivisor.Sign() <= 0 {
		return WeightFunc{}, errors.Wrapf(ErrInvalidWeightFunc, "divisor %v", weightDivisor)
	}

	if minimumStake == nil || minimumStake.Sign() < 0 {
		return WeightFunc{}, errors.Wrapf(ErrInvalidWeightFunc, "minimum stake %v", minimumStake)
	}

	return WeightFunc{
		MinimumStake:  new(big.Int).Set(minimumStake),
		WeightDivisor: new(big.Int).Set(weightDivisor),
	}, nil
}

// DefaultWeightFunc reads its parameters from conf.
func DefaultWeightFunc() WeightFunc {
	return WeightFunc{
		MinimumStake:  conf.GetMinimumStake(),
		WeightDivisor: conf.GetWeightDivisor(),
	}
}

// Weight saturates at sys.MaxWeight. A nil or negative stake weighs 0, and
// so does every stake under a WeightFunc without a positive divisor.
func (w WeightFunc) Weight(stake *big.Int) uint64 {
	if w.WeightDivisor == nil || w.WeightDivisor.Sign() <= 0 {
		return 0
	}

	if stake == nil || stake.Sign() <= 0 {
		return 0
	}

	if w.MinimumStake != nil && stake.Cmp(w.MinimumStake) < 0 {
		return 0
	}

	q := new(big.Int).Quo(stake, w.WeightDivisor)

	if !q.IsUint64() || q.Uint64() > sys.MaxWeight {
		return sys.MaxWeight
	}

	return q.Uint64()
}

// Derive is the single place eligibility flags turn into a weight.
func (w WeightFunc) Derive(stake *big.Int, bonded, banned bool) (EligibilityState, uint64) {
	var state EligibilityState

	weight := w.Weight(stake)

	if weight > 0 {
		state |= Staked
	}

	if bonded {
		state |= Bonded
	}

	if !banned {
		state |= NotBanned
	}

	if !state.IsEligible() {
		return state, 0
	}

	return state, weight
}
