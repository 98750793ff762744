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

package sys

import "math/big"

const (
	// Sizes of identifiers and selection seeds, in bytes.
	SizeID   = 32
	SizeSeed = 32

	// MaxWeight caps a single participant's selection weight so that the sum of
	// up to 2^31 leaves still fits in a uint64.
	MaxWeight uint64 = 1<<32 - 1
)

var (
	// TokenPrecision is the number of base units in one whole token.
	TokenPrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	// DefaultMinimumStake is the smallest eligible stake which yields a non-zero
	// weight (40,000 tokens).
	DefaultMinimumStake = new(big.Int).Mul(big.NewInt(40000), TokenPrecision)

	// DefaultWeightDivisor converts base units into weight. One whole token is
	// one unit of weight.
	DefaultWeightDivisor = new(big.Int).Set(TokenPrecision)

	// DefaultGroupSize is the number of members selected for a group.
	DefaultGroupSize = 64

	// DefaultGroupCacheSize bounds how many issued groups a consumer remembers
	// for misbehavior reports.
	DefaultGroupCacheSize = 128

	// DefaultVerifierWorkers is the number of goroutines used to verify
	// recorded groups in bulk.
	DefaultVerifierWorkers = 4

	// DefaultResyncSpec is the cron schedule of the periodic ledger poll.
	DefaultResyncSpec = "@every 1m"
)
