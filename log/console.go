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
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fastjson"
)

// ConsoleWriter pretty-prints log lines, optionally restricted to a set of
// modules.
type ConsoleWriter struct {
	zerolog.ConsoleWriter

	FilteredModules map[string]struct{}

	mu     sync.Mutex
	parser fastjson.Parser
}

func FilterFor(modules ...string) func(w *ConsoleWriter) {
	return func(w *ConsoleWriter) {
		if len(modules) == 0 {
			return
		}

		w.FilteredModules = make(map[string]struct{}, len(modules))
		for _, mod := range modules {
			w.FilteredModules[mod] = struct{}{}
		}
	}
}

func NewConsoleWriter(out io.Writer, opts ...func(w *ConsoleWriter)) *ConsoleWriter {
	w := &ConsoleWriter{
		ConsoleWriter: zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen},
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

func (w *ConsoleWriter) Write(p []byte) (n int, err error) {
	if w.FilteredModules != nil {
		w.mu.Lock()
		defer w.mu.Unlock()

		v, err := w.parser.ParseBytes(p)
		if err != nil {
			return n, err
		}

		if _, ok := w.FilteredModules[string(v.GetStringBytes(KeyModule))]; !ok {
			return len(p), nil
		}
	}

	return w.ConsoleWriter.Write(p)
}
