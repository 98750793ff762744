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
	"github.com/perlin-network/sortition"
	"github.com/perlin-network/sortition/log"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

func (g *Gateway) requestGroup(ctx *fasthttp.RequestCtx) {
	req := new(groupRequest)

	parser := g.parserPool.Get()
	err := req.bind(parser, ctx.PostBody())
	g.parserPool.Put(parser)

	if err != nil {
		g.renderError(ctx, ErrBadRequest(err))
		return
	}

	logger := log.API()
	log.Debug(&logger, req)

	var opts []sortition.SelectOption
	if req.MinWeight > 0 {
		opts = append(opts, sortition.WithMinGroupWeight(req.MinWeight))
	}

	group, err := g.Consumer.RequestGroup(req.Seed, req.Size, opts...)
	if err != nil {
		g.renderError(ctx, selectionError(err))
		return
	}

	g.render(ctx, &GroupResponse{group: group})
}

func (g *Gateway) getGroup(ctx *fasthttp.RequestCtx) {
	param, ok := ctx.UserValue("seed").(string)
	if !ok {
		g.renderError(ctx, ErrBadRequest(errors.New("could not cast seed into string")))
		return
	}

	seed, err := sortition.ParseSeed(param)
	if err != nil {
		g.renderError(ctx, ErrBadRequest(errors.Wrap(err, "seed must be presented as valid hex")))
		return
	}

	group, exists := g.Consumer.Group(seed)
	if !exists {
		g.renderError(ctx, ErrNotFound(errors.Errorf("could not find group issued for seed %x", seed)))
		return
	}

	g.render(ctx, &GroupResponse{group: group})
}

func (g *Gateway) reportMisbehavior(ctx *fasthttp.RequestCtx) {
	req := new(misbehaviorRequest)

	parser := g.parserPool.Get()
	err := req.bind(parser, ctx.PostBody())
	g.parserPool.Put(parser)

	if err != nil {
		g.renderError(ctx, ErrBadRequest(err))
		return
	}

	logger := log.API()
	log.Info(&logger, req)

	err = g.Consumer.ReportMisbehavior(req.ID, req.Seed, req.Evidence)

	switch errors.Cause(err) {
	case nil:
		g.render(ctx, &MsgResponse{Message: "Report accepted."})
	case sortition.ErrUnknownGroup:
		g.renderError(ctx, ErrNotFound(err))
	case sortition.ErrNotGroupMember:
		g.renderError(ctx, ErrBadRequest(err))
	default:
		g.renderError(ctx, ErrInternal(err))
	}
}

// selectionError maps a failed selection onto a response status.
func selectionError(err error) *ErrResponse {
	if sortition.IsInsufficientPool(err) {
		return ErrConflict(err)
	}

	switch errors.Cause(err) {
	case sortition.ErrInvalidGroupSize:
		return ErrBadRequest(err)
	case sortition.ErrEmptyPool, sortition.ErrGroupUnderweight, sortition.ErrPoolLocked:
		return ErrConflict(err)
	}

	return ErrInternal(err)
}
