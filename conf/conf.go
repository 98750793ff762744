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

package conf

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/perlin-network/sortition/sys"
)

type config struct {
	// Weight function parameters.
	minimumStake  *big.Int
	weightDivisor *big.Int

	// Number of members in a requested group when the caller does not
	// specify one.
	groupSize int

	// Number of issued groups remembered for misbehavior reports.
	groupCacheSize int

	// Number of goroutines used to verify recorded groups.
	verifierWorkers int

	// Cron schedule of the periodic ledger poll.
	resyncSpec string

	// Requests per second allowed per route and remote address.
	requestsPerSecond float64

	// shared secret for http api authorization
	secret string
}

var (
	l sync.RWMutex
	c = defaultConfig()
)

func defaultConfig() config {
	return config{
		minimumStake:  new(big.Int).Set(sys.DefaultMinimumStake),
		weightDivisor: new(big.Int).Set(sys.DefaultWeightDivisor),

		groupSize:       sys.DefaultGroupSize,
		groupCacheSize:  sys.DefaultGroupCacheSize,
		verifierWorkers: sys.DefaultVerifierWorkers,

		resyncSpec:        sys.DefaultResyncSpec,
		requestsPerSecond: 1000,
	}
}

type Option func(*config)

func WithMinimumStake(stake *big.Int) Option {
	return func(c *config) {
		c.minimumStake = new(big.Int).Set(stake)
	}
}

// WithWeightDivisor ignores non-positive divisors.
func WithWeightDivisor(divisor *big.Int) Option {
	return func(c *config) {
		if divisor.Sign() <= 0 {
			return
		}

		c.weightDivisor = new(big.Int).Set(divisor)
	}
}

func WithGroupSize(n int) Option {
	return func(c *config) {
		c.groupSize = n
	}
}

func WithGroupCacheSize(n int) Option {
	return func(c *config) {
		c.groupCacheSize = n
	}
}

func WithVerifierWorkers(n int) Option {
	return func(c *config) {
		c.verifierWorkers = n
	}
}

func WithResyncSpec(spec string) Option {
	return func(c *config) {
		c.resyncSpec = spec
	}
}

func WithRequestsPerSecond(rps float64) Option {
	return func(c *config) {
		c.requestsPerSecond = rps
	}
}

func WithSecret(s string) Option {
	return func(c *config) {
		c.secret = s
	}
}

func GetMinimumStake() *big.Int {
	l.RLock()
	t := new(big.Int).Set(c.minimumStake)
	l.RUnlock()

	return t
}

func GetWeightDivisor() *big.Int {
	l.RLock()
	t := new(big.Int).Set(c.weightDivisor)
	l.RUnlock()

	return t
}

func GetGroupSize() int {
	l.RLock()
	t := c.groupSize
	l.RUnlock()

	return t
}

func GetGroupCacheSize() int {
	l.RLock()
	t := c.groupCacheSize
	l.RUnlock()

	return t
}

func GetVerifierWorkers() int {
	l.RLock()
	t := c.verifierWorkers
	l.RUnlock()

	return t
}

func GetResyncSpec() string {
	l.RLock()
	t := c.resyncSpec
	l.RUnlock()

	return t
}

func GetRequestsPerSecond() float64 {
	l.RLock()
	t := c.requestsPerSecond
	l.RUnlock()

	return t
}

func GetSecret() string {
	l.RLock()
	t := c.secret
	l.RUnlock()

	return t
}

func Update(options ...Option) {
	l.Lock()

	for _, option := range options {
		option(&c)
	}

	l.Unlock()
}

func Stringify() string {
	l.RLock()
	s := fmt.Sprintf("%+v", c)
	l.RUnlock()

	return s
}

func Reset() {
	l.Lock()
	c = defaultConfig()
	l.Unlock()
}
