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
	"math/big"

	"github.com/perlin-network/sortition"
	"github.com/perlin-network/sortition/conf"
	"github.com/perlin-network/sortition/store"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var storeFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "db",
		Value: "db",
		Usage: "Directory of the ledger database `DIR`.",
	},
	cli.StringFlag{
		Name:  "store",
		Value: "level",
		Usage: "Ledger database engine `KIND` (level or bbolt).",
	},
}

var weightFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "min.stake",
		Value: conf.GetMinimumStake().String(),
		Usage: "Smallest stake, in base units, that yields a non-zero weight.",
	},
	cli.StringFlag{
		Name:  "weight.divisor",
		Value: conf.GetWeightDivisor().String(),
		Usage: "Base units of stake per unit of weight.",
	},
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, group := range groups {
		out = append(out, group...)
	}

	return out
}

// applyWeightFlags updates the configured weight function parameters and
// returns the resulting pool option.
func applyWeightFlags(c *cli.Context) (sortition.PoolOption, error) {
	minimumStake, ok := new(big.Int).SetString(c.String("min.stake"), 10)
	if !ok || minimumStake.Sign() < 0 {
		return nil, errors.Errorf("min.stake must be a non-negative integer, got %q", c.String("min.stake"))
	}

	divisor, ok := new(big.Int).SetString(c.String("weight.divisor"), 10)
	if !ok || divisor.Sign() <= 0 {
		return nil, errors.Errorf("weight.divisor must be a positive integer, got %q", c.String("weight.divisor"))
	}

	conf.Update(
		conf.WithMinimumStake(minimumStake),
		conf.WithWeightDivisor(divisor),
	)

	weigh, err := sortition.NewWeightFunc(conf.GetMinimumStake(), conf.GetWeightDivisor())
	if err != nil {
		return nil, err
	}

	return sortition.WithWeightFunc(weigh), nil
}

func openStore(c *cli.Context) (store.KV, error) {
	kv, err := store.Open(c.String("store"), c.String("db"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database at %q", c.String("store"), c.String("db"))
	}

	return kv, nil
}
