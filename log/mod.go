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

	"github.com/rs/zerolog"
)

var (
	output = &multiWriter{
		writers: make(map[string]io.Writer),
	}
	logger = zerolog.New(output).With().Timestamp().Logger()

	node     zerolog.Logger
	pool     zerolog.Logger
	ledger   zerolog.Logger
	consumer zerolog.Logger
	api      zerolog.Logger
	metrics  zerolog.Logger
)

const (
	LoggerSortition = "sortition"
	LoggerConsole   = "console"

	KeyModule = "mod"
	KeyEvent  = "event"

	ModuleNode     = "node"
	ModulePool     = "pool"
	ModuleLedger   = "ledger"
	ModuleConsumer = "consumer"
	ModuleAPI      = "api"
	ModuleMetrics  = "metrics"
)

func setupChildLoggers() {
	node = logger.With().Str(KeyModule, ModuleNode).Logger()
	pool = logger.With().Str(KeyModule, ModulePool).Logger()
	ledger = logger.With().Str(KeyModule, ModuleLedger).Logger()
	consumer = logger.With().Str(KeyModule, ModuleConsumer).Logger()
	api = logger.With().Str(KeyModule, ModuleAPI).Logger()
	metrics = logger.With().Str(KeyModule, ModuleMetrics).Logger()
}

func SetLevel(level string) {
	if l, err := zerolog.ParseLevel(level); err == nil {
		node = node.Level(l)
		pool = pool.Level(l)
		ledger = ledger.Level(l)
		consumer = consumer.Level(l)
		api = api.Level(l)
		metrics = metrics.Level(l)
	}
}

func SetWriter(key string, writer io.Writer) {
	output.Set(key, writer)
}

func ClearWriter(key string) {
	output.Clear(key)
}

func Node() zerolog.Logger {
	return node
}

func Pool(event string) zerolog.Logger {
	return pool.With().Str(KeyEvent, event).Logger()
}

func Ledger(event string) zerolog.Logger {
	return ledger.With().Str(KeyEvent, event).Logger()
}

func Consumer(event string) zerolog.Logger {
	return consumer.With().Str(KeyEvent, event).Logger()
}

func API() zerolog.Logger {
	return api
}

func Metrics() zerolog.Logger {
	return metrics
}
