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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/perlin-network/sortition"
	"github.com/perlin-network/sortition/conf"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var verifyFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "groups",
		Usage: "CSV `FILE` of recorded groups, one seed,member,member,... row each.",
	},
	cli.IntFlag{
		Name:  "workers",
		Value: conf.GetVerifierWorkers(),
		Usage: "Number of groups verified concurrently.",
	},
}

// loadGroups reads one group per row: the seed followed by its members in
// slot order, all hex encoded.
func loadGroups(r io.Reader) ([]*sortition.Group, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var groups []*sortition.Group

	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			return groups, nil
		}

		if err != nil {
			return nil, errors.Wrap(err, "failed to read csv")
		}

		seed, err := sortition.ParseSeed(record[0])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		members := make([]sortition.ID, 0, len(record)-1)

		for _, field := range record[1:] {
			id, err := sortition.ParseID(field)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}

			members = append(members, id)
		}

		groups = append(groups, sortition.NewGroup(seed, members))
	}
}

func verifyAction(c *cli.Context) error {
	weigh, err := applyWeightFlags(c)
	if err != nil {
		return err
	}

	conf.Update(conf.WithVerifierWorkers(c.Int("workers")))

	path, err := csvArg(c)
	if err != nil {
		return err
	}

	pool, err := poolFromCSV(path, weigh)
	if err != nil {
		return err
	}

	f, err := os.Open(c.String("groups"))
	if err != nil {
		return errors.Wrapf(err, "failed to open groups file %q", c.String("groups"))
	}
	defer f.Close()

	groups, err := loadGroups(f)
	if err != nil {
		return err
	}

	results := sortition.VerifyGroups(pool, groups, conf.GetVerifierWorkers())

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "seed\tsize\tresult\t")

	var failed int

	for i, err := range results {
		result := "ok"
		if err != nil {
			result = err.Error()
			failed++
		}

		fmt.Fprintf(w, "%s\t%d\t%s\t\n", groups[i].Seed(), groups[i].Size(), result)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		return errors.Errorf("%d of %d groups failed verification", failed, len(groups))
	}

	return nil
}
