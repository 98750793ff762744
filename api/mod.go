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
	"fmt"
	"math/big"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/buaazp/fasthttprouter"
	"github.com/perlin-network/sortition"
	"github.com/perlin-network/sortition/log"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fastjson"
)

// EligibilityWriter records stake and bonding status changes. The pool picks
// them up through its ledger subscription.
type EligibilityWriter interface {
	Set(id sortition.ID, stake *big.Int, bonded bool) (sortition.Notification, error)
}

// Backlog applies ledger notifications held back while the pool was locked.
type Backlog interface {
	Flush() error
}

type Gateway struct {
	*Config
	addr string

	router *fasthttprouter.Router
	server *fasthttp.Server

	rateLimiter *rateLimiter

	parserPool *fastjson.ParserPool
	arenaPool  *fastjson.ArenaPool
}

type Config struct {
	Port int

	Consumer *sortition.Consumer

	// Ledger may be nil, in which case /eligibility is not served.
	Ledger EligibilityWriter

	// Backlog, if set, is flushed after the pool is unlocked.
	Backlog Backlog

	RequestsPerSecond float64

	// Timeout bounds each request handler. Zero disables it.
	Timeout time.Duration
}

func New(opts *Config) *Gateway {
	g := &Gateway{
		Config:      opts,
		parserPool:  new(fastjson.ParserPool),
		arenaPool:   new(fastjson.ArenaPool),
		rateLimiter: newRateLimiter(1000),
	}

	if opts.RequestsPerSecond > 0 {
		g.rateLimiter = newRateLimiter(opts.RequestsPerSecond)
	}

	g.addr = ":" + strconv.Itoa(opts.Port)

	// Setup HTTP router.
	g.router = fasthttprouter.New()

	// If the route does not exist for a method type (e.g. OPTIONS),
	// fasthttprouter will consider it to not exist. So, we need to override
	// notFound handler for OPTIONS method type to handle CORS.
	g.router.HandleOPTIONS = false
	g.router.NotFound = g.notFound()

	// Group endpoints.
	g.routeWithMiddleware("POST", "/group",
		g.requestGroup, true)
	g.routeWithMiddleware("GET", "/group/:seed",
		g.getGroup, false)
	g.routeWithMiddleware("POST", "/misbehavior",
		g.reportMisbehavior, true)

	// Pool endpoints.
	g.routeWithMiddleware("GET", "/pool",
		g.poolStatus, false)
	g.routeWithMiddleware("GET", "/operators/:id",
		g.getOperator, false, g.operatorScope)
	g.routeWithMiddleware("POST", "/pool/lock",
		g.lockPool, true, g.auth)
	g.routeWithMiddleware("POST", "/pool/unlock",
		g.unlockPool, true, g.auth)

	if opts.Ledger != nil {
		g.routeWithMiddleware("POST", "/eligibility",
			g.updateEligibility, true, g.auth)
	}

	g.server = &fasthttp.Server{Handler: g.router.Handler}

	return g
}

// Start listens to the given port. It does not block.
func (g *Gateway) Start() error {
	// Start the cleanup daemon
	stop := g.rateLimiter.cleanup(10 * time.Minute)

	httpLn, err := net.Listen("tcp4", g.addr)
	if err != nil {
		stop()
		return errors.Wrap(err, "Failed to listen to "+g.addr)
	}

	go func() {
		defer stop()

		if err := g.server.Serve(httpLn); err != nil {
			logger := log.API()
			logger.Fatal().Err(err).
				Str("addr", g.addr).
				Msg("Failed to start the HTTP server.")
		}
	}()

	logger := log.API()
	logger.Info().
		Str("addr", g.addr).
		Msg("Started the HTTP API server.")

	return nil
}

func (g *Gateway) Shutdown() {
	if err := g.server.Shutdown(); err != nil {
		logger := log.API()
		logger.Error().
			Err(err).
			Msg("Failed to stop the HTTP server")
	}
}

// helper fn to add middlewares
func (g *Gateway) routeWithMiddleware(method, route string,
	h fasthttp.RequestHandler, rateLimit bool, ms ...middleware) {

	// Middlewares to prepend to ms
	var topMs = make([]middleware, 0, 4)

	// The timeout runs the rest of the chain on its own goroutine, so it goes
	// before the recoverer.
	if g.Timeout > 0 {
		topMs = append(topMs, timeout(g.Timeout, "Request timed out."))
	}

	topMs = append(topMs, recoverer)

	if rateLimit {
		topMs = append(topMs, g.limit(route))
	}

	topMs = append(topMs, cors())

	g.router.Handle(method, route, chain(h, append(topMs, ms...)))
}

// notFound answers preflight requests for routes that exist under another
// method, and 404s everything else.
func (g *Gateway) notFound() fasthttp.RequestHandler {
	missing := func(ctx *fasthttp.RequestCtx) {
		ctx.Error(fasthttp.StatusMessage(fasthttp.StatusNotFound), fasthttp.StatusNotFound)
	}

	preflight := cors()(missing)

	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Method()) == http.MethodOptions {
			path := string(ctx.Path())
			lookup := new(fasthttp.RequestCtx)

			for _, method := range []string{http.MethodGet, http.MethodPost} {
				if h, _ := g.router.Lookup(method, path, lookup); h != nil {
					preflight(ctx)
					return
				}
			}
		}

		missing(ctx)
	}
}

func (g *Gateway) render(ctx *fasthttp.RequestCtx, m log.MarshalableArena) {
	g._render(ctx, m, http.StatusOK)
}

func (g *Gateway) renderError(ctx *fasthttp.RequestCtx, e *ErrResponse) {
	g._render(ctx, e, e.HTTPStatusCode)
}

func (g *Gateway) _render(ctx *fasthttp.RequestCtx, m log.MarshalableArena, status int) {
	arena := g.arenaPool.Get()
	defer g.arenaPool.Put(arena)

	b, err := m.MarshalArena(arena)
	if err != nil {
		ctx.Error(fmt.Sprintf(`{ "error": "render error: %s" }`, err.Error()), http.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBody(b)
}
