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

package api

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

// rateLimiter hands out one token bucket per route and remote address.
// Buckets idle for longer than ttl are swept by cleanup.
type rateLimiter struct {
	sync.Mutex

	perSecond rate.Limit
	burst     int
	ttl       time.Duration

	buckets map[bucketKey]*bucket
}

type bucketKey struct {
	route, addr string
}

type bucket struct {
	*rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(maxPerSec float64) *rateLimiter {
	return &rateLimiter{
		perSecond: rate.Limit(maxPerSec),
		burst:     int(math.Max(1, maxPerSec)),
		ttl:       time.Second,
		buckets:   make(map[bucketKey]*bucket),
	}
}

// allow takes a token from the bucket of route and addr, creating the bucket
// on first use.
func (r *rateLimiter) allow(route, addr string, now time.Time) bool {
	r.Lock()
	defer r.Unlock()

	key := bucketKey{route: route, addr: addr}

	b, exists := r.buckets[key]
	if !exists {
		b = &bucket{Limiter: rate.NewLimiter(r.perSecond, r.burst)}
		r.buckets[key] = b
	}

	b.lastSeen = now

	return b.AllowN(now, 1)
}

// sweep drops buckets that have not been used since now-ttl and returns how
// many are left.
func (r *rateLimiter) sweep(now time.Time) int {
	r.Lock()
	defer r.Unlock()

	for key, b := range r.buckets {
		if now.Sub(b.lastSeen) > r.ttl {
			delete(r.buckets, key)
		}
	}

	return len(r.buckets)
}

// cleanup sweeps idle buckets every interval until stop is called.
func (r *rateLimiter) cleanup(interval time.Duration) (stop func()) {
	var once sync.Once

	done := make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				r.sweep(now)
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// limit rejects requests to route beyond the allowed rate per remote address.
func (g *Gateway) limit(route string) middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if !g.rateLimiter.allow(route, ctx.RemoteIP().String(), time.Now()) {
				g.renderError(ctx, ErrTooManyRequests(errors.Errorf("rate limit of %s exceeded", route)))
				return
			}

			next(ctx)
		}
	}
}
