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
	"crypto/subtle"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/perlin-network/sortition"
	"github.com/perlin-network/sortition/conf"
	"github.com/perlin-network/sortition/log"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

const authPrefix = "Bearer "

type middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// chain wraps f so that middlewares run in the order given.
func chain(f fasthttp.RequestHandler, middlewares []middleware) fasthttp.RequestHandler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		f = middlewares[i](f)
	}

	return f
}

func recoverer(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		defer func() {
			if rvr := recover(); rvr != nil {
				logger := log.API()
				logger.Error().
					Interface("panic", rvr).
					Bytes("path", ctx.Path()).
					Bytes("stack", debug.Stack()).
					Msg("Recovered from panic in request handler.")

				ctx.Error(http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		next(ctx)
	}
}

func timeout(d time.Duration, msg string) middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return fasthttp.TimeoutHandler(next, d, msg)
	}
}

// operatorScope parses the :id route parameter into a participant ID stored
// under "operator_id".
func (g *Gateway) operatorScope(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		param, ok := ctx.UserValue("id").(string)
		if !ok {
			g.renderError(ctx, ErrBadRequest(errors.New("could not cast id into string")))
			return
		}

		id, err := sortition.ParseID(param)
		if err != nil {
			g.renderError(ctx, ErrBadRequest(errors.Wrap(err, "operator ID must be presented as valid hex")))
			return
		}

		ctx.SetUserValue("operator_id", id)

		next(ctx)
	}
}

func bearerToken(ctx *fasthttp.RequestCtx) string {
	auth := string(ctx.Request.Header.Peek("Authorization"))
	if !strings.HasPrefix(auth, authPrefix) {
		return ""
	}

	return auth[len(authPrefix):]
}

// auth admits requests carrying the configured secret as a bearer token. With
// no secret configured, every request is refused.
func (g *Gateway) auth(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		secret := conf.GetSecret()

		if len(secret) > 0 && subtle.ConstantTimeCompare([]byte(bearerToken(ctx)), []byte(secret)) == 1 {
			next(ctx)
			return
		}

		ctx.Response.Header.Set("WWW-Authenticate", "Bearer realm=Restricted")
		g.renderError(ctx, ErrUnauthorized(errors.New("missing or invalid bearer token")))
	}
}
