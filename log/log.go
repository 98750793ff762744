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

package log

import (
	"github.com/rs/zerolog"
	"github.com/valyala/fastjson"
)

func init() { // nolint:gochecknoinits
	zerolog.MessageFieldName = "message"
	zerolog.LevelFieldName = "level"
	zerolog.ErrorFieldName = "error"

	setupChildLoggers()
}

// MarshalableEvent is implemented by values that know how to describe
// themselves in a log line. MarshalEvent is expected to send the event.
type MarshalableEvent interface {
	MarshalEvent(ev *zerolog.Event)
}

// MarshalableArena is implemented by values rendered as JSON over the API.
type MarshalableArena interface {
	MarshalArena(arena *fastjson.Arena) ([]byte, error)
}

// JSONObject is a request or response that is both logged and rendered.
type JSONObject interface {
	MarshalableEvent
	MarshalableArena
}

// Info logs loggable at info level, unless logger is filtered above it.
func Info(logger *zerolog.Logger, loggable MarshalableEvent) {
	if ev := logger.Info(); ev != nil {
		loggable.MarshalEvent(ev)
	}
}

// Debug logs loggable at debug level, unless logger is filtered above it.
func Debug(logger *zerolog.Logger, loggable MarshalableEvent) {
	if ev := logger.Debug(); ev != nil {
		loggable.MarshalEvent(ev)
	}
}
