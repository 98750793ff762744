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
	"strconv"

	"github.com/perlin-network/sortition"
	"github.com/perlin-network/sortition/log"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

func (g *Gateway) poolStatus(ctx *fasthttp.RequestCtx) {
	pool := g.Consumer.Pool()

	g.render(ctx, &PoolStatus{
		TotalWeight: pool.TotalWeight(),
		Len:         pool.Len(),
		Eligible:    pool.EligibleCount(),
		Capacity:    pool.Capacity(),
		Locked:      pool.IsLocked(),

		DeferredBans: g.Consumer.DeferredBans(),
	})
}

func (g *Gateway) lockPool(ctx *fasthttp.RequestCtx) {
	g.Consumer.LockPool()

	g.render(ctx, &MsgResponse{Message: "Pool locked."})
}

func (g *Gateway) unlockPool(ctx *fasthttp.RequestCtx) {
	if err := g.Consumer.UnlockPool(); err != nil {
		g.renderError(ctx, ErrInternal(err))
		return
	}

	if g.Backlog != nil {
		if err := g.Backlog.Flush(); err != nil {
			g.renderError(ctx, ErrInternal(errors.Wrap(err, "failed to apply held ledger notifications")))
			return
		}
	}

	g.render(ctx, &MsgResponse{Message: "Pool unlocked."})
}

func (g *Gateway) getOperator(ctx *fasthttp.RequestCtx) {
	id, ok := ctx.UserValue("operator_id").(sortition.ID)
	if !ok {
		return
	}

	pool := g.Consumer.Pool()

	status := &OperatorStatus{
		ID:     id,
		Banned: pool.IsBanned(id),
		InPool: pool.IsOperatorInPool(id),
		Stake:  "0",
		State:  sortition.EligibilityState(0).String(),
	}

	p, err := pool.Participant(id)

	switch {
	case err == nil:
		status.Weight = p.Weight
		status.Eligible = p.Eligible()
		status.State = p.State.String()

		if p.Stake != nil {
			status.Stake = p.Stake.String()
		}
	case !status.Banned:
		g.renderError(ctx, ErrNotFound(errors.Wrapf(err, "could not find operator %x", id)))
		return
	}

	g.render(ctx, status)
}

func (g *Gateway) updateEligibility(ctx *fasthttp.RequestCtx) {
	req := new(eligibilityRequest)

	parser := g.parserPool.Get()
	err := req.bind(parser, ctx.PostBody())
	g.parserPool.Put(parser)

	if err != nil {
		g.renderError(ctx, ErrBadRequest(err))
		return
	}

	logger := log.API()
	log.Info(&logger, req)

	n, err := g.Ledger.Set(req.ID, req.Stake, req.Bonded)
	if err != nil {
		g.renderError(ctx, ErrInternal(errors.Wrapf(err, "failed to record eligibility of %x", req.ID)))
		return
	}

	g.render(ctx, &MsgResponse{Message: "Recorded ledger " + n.Kind.String() + " #" + strconv.FormatUint(n.Seq, 10) + "."})
}
