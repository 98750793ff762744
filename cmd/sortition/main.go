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
	"fmt"
	"os"
	"time"

	"github.com/perlin-network/sortition/log"
	"github.com/perlin-network/sortition/sys"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()

	app.Name = "sortition"
	app.Author = "Perlin Network"
	app.Email = "support@perlin.net"
	app.Version = sys.Version
	app.Usage = "stake-weighted group selection"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "loglevel, ll",
			Value: "info",
			Usage: "Minimum log level to output. Possible values: debug, info, warn, error, fatal, panic.",
		},
		cli.StringSliceFlag{
			Name:  "logmods",
			Usage: "Only print logs of the given modules.",
		},
	}

	app.Before = func(c *cli.Context) error {
		log.SetWriter(log.LoggerConsole, log.NewConsoleWriter(os.Stderr, log.FilterFor(c.StringSlice("logmods")...)))
		log.SetLevel(c.String("loglevel"))

		return nil
	}

	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Print(sys.BuildInfo())
		fmt.Printf("Built: %s\n", c.App.Compiled.Format(time.ANSIC))
	}

	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "follow a ledger database and serve groups over HTTP",
			Flags:  flags(storeFlags, weightFlags, serveFlags),
			Action: serve,
		},
		{
			Name:      "select",
			Usage:     "select a group from a CSV of id,stake,bonded rows",
			ArgsUsage: "CSV",
			Flags:     flags(weightFlags, selectFlags),
			Action:    selectAction,
		},
		{
			Name:      "simulate",
			Usage:     "compare empirical selection frequencies against weight shares",
			ArgsUsage: "CSV",
			Flags:     flags(weightFlags, simulateFlags),
			Action:    simulateAction,
		},
		{
			Name:      "verify",
			Usage:     "check recorded groups against a CSV of id,stake,bonded rows",
			ArgsUsage: "CSV",
			Flags:     flags(weightFlags, verifyFlags),
			Action:    verifyAction,
		},
		{
			Name:   "replay",
			Usage:  "rebuild a pool from a ledger database and summarize it",
			Flags:  flags(storeFlags, weightFlags),
			Action: replayAction,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger := log.Node()
		logger.Fatal().Err(err).Msg("Failed to parse configuration/command-line arguments.")
	}
}
