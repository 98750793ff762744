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
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/perlin-network/sortition"
	"github.com/perlin-network/sortition/conf"
	"github.com/perlin-network/sortition/stakeledger"
	"github.com/perlin-network/sortition/store"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var selectFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "seed",
		Usage: "Group seed `SEED`, either 32 bytes of hex or any string to hash.",
	},
	cli.IntFlag{
		Name:  "size",
		Value: conf.GetGroupSize(),
		Usage: "Number of members to select.",
	},
	cli.Uint64Flag{
		Name:  "min.weight",
		Usage: "Fail if the group weighs less than this in total.",
	},
}

var simulateFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "rounds",
		Value: 10000,
		Usage: "Number of seeds to select groups for.",
	},
	cli.IntFlag{
		Name:  "size",
		Value: 1,
		Usage: "Number of members to select per round.",
	},
}

// loadCSV records every id,stake,bonded row of r into ledger. An id that is
// not 32 bytes of hex is hashed into one. A header row starting with "id" and
// lines starting with '#' are skipped.
func loadCSV(r io.Reader, ledger *stakeledger.Ledger) (int, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true

	var n int

	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			return n, nil
		}

		if err != nil {
			return n, errors.Wrap(err, "failed to read csv")
		}

		if line == 1 && strings.EqualFold(record[0], "id") {
			continue
		}

		id := parseOrHashID(record[0])

		stake, ok := new(big.Int).SetString(record[1], 10)
		if !ok {
			return n, errors.Errorf("line %d: invalid stake %q", line, record[1])
		}

		bonded, err := strconv.ParseBool(record[2])
		if err != nil {
			return n, errors.Wrapf(err, "line %d: invalid bonding status", line)
		}

		if _, err := ledger.Set(id, stake, bonded); err != nil {
			return n, errors.Wrapf(err, "line %d", line)
		}

		n++
	}
}

func parseOrHashID(s string) sortition.ID {
	if id, err := sortition.ParseID(s); err == nil {
		return id
	}

	return sortition.IDFromName(s)
}

func parseOrHashSeed(s string) sortition.Seed {
	if seed, err := sortition.ParseSeed(s); err == nil {
		return seed
	}

	return sortition.SeedFromBytes([]byte(s))
}

// poolFromCSV loads a CSV file into an in-memory ledger and rebuilds a pool
// from it.
func poolFromCSV(path string, opts ...sortition.PoolOption) (*sortition.Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	defer f.Close()

	ledger, err := stakeledger.New(store.NewInmem())
	if err != nil {
		return nil, err
	}
	defer ledger.Close()

	if _, err := loadCSV(f, ledger); err != nil {
		return nil, errors.Wrapf(err, "failed to load %q", path)
	}

	pool, _, err := sortition.Rebuild(ledger, opts...)
	return pool, err
}

func csvArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", errors.New("expected exactly one CSV file argument")
	}

	return c.Args().First(), nil
}

func selectAction(c *cli.Context) error {
	weigh, err := applyWeightFlags(c)
	if err != nil {
		return err
	}

	path, err := csvArg(c)
	if err != nil {
		return err
	}

	pool, err := poolFromCSV(path, weigh)
	if err != nil {
		return err
	}

	seed := parseOrHashSeed(c.String("seed"))

	var opts []sortition.SelectOption
	if w := c.Uint64("min.weight"); w > 0 {
		opts = append(opts, sortition.WithMinGroupWeight(w))
	}

	group, err := pool.SelectGroup(seed, c.Int("size"), opts...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "seed\t%s\n", seed)
	fmt.Fprintln(w, "slot\tid\tweight\t")

	for i, id := range group.Members() {
		weight, err := pool.Weight(id)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%d\t%s\t%d\t\n", i, id, weight)
	}

	return w.Flush()
}

type tally struct {
	weight   uint64
	first    int
	selected int
}

// simulate selects a group for each of rounds consecutive seeds and counts
// how often each participant was drawn first and how often it was drawn at
// all.
func simulate(pool *sortition.Pool, rounds, size int) (map[sortition.ID]*tally, error) {
	tallies := make(map[sortition.ID]*tally)
	for _, p := range pool.Operators() {
		if p.Eligible() {
			tallies[p.ID] = &tally{weight: p.Weight}
		}
	}

	var buf [8]byte

	for i := 0; i < rounds; i++ {
		binary.BigEndian.PutUint64(buf[:], uint64(i))

		group, err := pool.SelectGroup(sortition.SeedFromBytes(buf[:]), size)
		if err != nil {
			return nil, errors.Wrapf(err, "round %d", i)
		}

		for slot, id := range group.Members() {
			t := tallies[id]
			if slot == 0 {
				t.first++
			}
			t.selected++
		}
	}

	return tallies, nil
}

func simulateAction(c *cli.Context) error {
	weigh, err := applyWeightFlags(c)
	if err != nil {
		return err
	}

	path, err := csvArg(c)
	if err != nil {
		return err
	}

	pool, err := poolFromCSV(path, weigh)
	if err != nil {
		return err
	}

	rounds := c.Int("rounds")
	if rounds <= 0 {
		return errors.New("rounds must be positive")
	}

	tallies, err := simulate(pool, rounds, c.Int("size"))
	if err != nil {
		return err
	}

	total := float64(pool.TotalWeight())

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "id\tweight\tshare\tfirst slot\tin group\t")

	for _, p := range pool.Operators() {
		t, ok := tallies[p.ID]
		if !ok {
			continue
		}

		fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\t%.4f\t\n",
			p.ID, t.weight,
			float64(t.weight)/total,
			float64(t.first)/float64(rounds),
			float64(t.selected)/float64(rounds),
		)
	}

	return w.Flush()
}

func replayAction(c *cli.Context) error {
	weigh, err := applyWeightFlags(c)
	if err != nil {
		return err
	}

	kv, err := openStore(c)
	if err != nil {
		return err
	}
	defer kv.Close()

	ledger, err := stakeledger.New(kv)
	if err != nil {
		return err
	}
	defer ledger.Close()

	pool, next, err := sortition.Rebuild(ledger, weigh)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "journal seq\t%d\n", ledger.Seq())
	fmt.Fprintf(w, "next seq\t%d\n", next)
	fmt.Fprintf(w, "operators\t%d\n", pool.Len())
	fmt.Fprintf(w, "eligible\t%d\n", pool.EligibleCount())
	fmt.Fprintf(w, "total weight\t%d\n", pool.TotalWeight())
	fmt.Fprintf(w, "slashes\t%d\n", ledger.SlashCount())

	return w.Flush()
}
