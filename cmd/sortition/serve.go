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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perlin-network/sortition"
	"github.com/perlin-network/sortition/api"
	"github.com/perlin-network/sortition/conf"
	"github.com/perlin-network/sortition/log"
	"github.com/perlin-network/sortition/stakeledger"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli"
)

var serveFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "api.port",
		Value: 9000,
		Usage: "Host an HTTP API at port `API_PORT`.",
	},
	cli.StringFlag{
		Name:   "api.secret",
		Usage:  "Shared secret required to record eligibility updates over HTTP.",
		EnvVar: "SORTITION_API_SECRET",
	},
	cli.Float64Flag{
		Name:  "api.rps",
		Value: conf.GetRequestsPerSecond(),
		Usage: "Requests per second allowed per route and remote address.",
	},
	cli.DurationFlag{
		Name:  "api.timeout",
		Value: 60 * time.Second,
		Usage: "Abort HTTP requests taking longer than `TIMEOUT`. Zero disables it.",
	},
	cli.IntFlag{
		Name:  "group.size",
		Value: conf.GetGroupSize(),
		Usage: "Group size used when a request does not name one.",
	},
	cli.IntFlag{
		Name:  "group.cache",
		Value: conf.GetGroupCacheSize(),
		Usage: "Number of issued groups remembered for misbehavior reports.",
	},
	cli.StringFlag{
		Name:  "resync",
		Value: conf.GetResyncSpec(),
		Usage: "Cron schedule `SPEC` of the full ledger poll.",
	},
}

func serve(c *cli.Context) error {
	weigh, err := applyWeightFlags(c)
	if err != nil {
		return err
	}

	conf.Update(
		conf.WithSecret(c.String("api.secret")),
		conf.WithRequestsPerSecond(c.Float64("api.rps")),
		conf.WithGroupSize(c.Int("group.size")),
		conf.WithGroupCacheSize(c.Int("group.cache")),
		conf.WithResyncSpec(c.String("resync")),
	)

	logger := log.Node()
	logger.Info().Str("conf", conf.Stringify()).Msg("Loaded configuration.")

	kv, err := openStore(c)
	if err != nil {
		return err
	}
	defer kv.Close()

	ledger, err := stakeledger.New(kv)
	if err != nil {
		return errors.Wrap(err, "failed to open stake ledger")
	}
	defer ledger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := sortition.NewMetrics(ctx)
	defer metrics.Stop()

	pool, next, err := sortition.Rebuild(ledger, weigh, sortition.WithMetrics(metrics))
	if err != nil {
		return errors.Wrap(err, "failed to rebuild pool from ledger")
	}

	logger.Info().
		Uint64("total_weight", pool.TotalWeight()).
		Int("operators", pool.Len()).
		Uint64("next_seq", next).
		Msg("Rebuilt pool from ledger.")

	follower := sortition.NewFollower(pool, ledger, next)
	go follower.Run(ctx)

	scheduler := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	if _, err := scheduler.AddFunc(conf.GetResyncSpec(), func() {
		if err := follower.Resync(); err != nil {
			logger := log.Ledger("resync")
			logger.Warn().Err(err).Msg("Failed to resync pool with ledger.")
		}
	}); err != nil {
		return errors.Wrapf(err, "invalid resync schedule %q", conf.GetResyncSpec())
	}

	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	gateway := api.New(&api.Config{
		Port:              c.Int("api.port"),
		Consumer:          sortition.NewConsumer(pool, ledger, conf.GetGroupCacheSize()),
		Ledger:            ledger,
		Backlog:           follower,
		RequestsPerSecond: conf.GetRequestsPerSecond(),
		Timeout:           c.Duration("api.timeout"),
	})

	if err := gateway.Start(); err != nil {
		return err
	}
	defer gateway.Shutdown()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	<-exit

	logger.Info().Msg("Shutting down.")

	return nil
}
