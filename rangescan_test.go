// Copyright (C) The HistDiff Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package histdiff

import (
	"errors"
	"io/ioutil"
	"os"

	"gopkg.in/check.v1"
)

type rangeScanSuite struct{}

var _ = check.Suite(&rangeScanSuite{})

func writeFile(c *check.C, name, content string) string {
	path := c.MkDir() + "/" + name
	c.Assert(ioutil.WriteFile(path, []byte(content), 0666), check.IsNil)
	return path
}

const scanTestData = "WellName\tMeta\tf1\tf2\tf3\n" +
	"A1\tx\t0.5\t5.0\tfoo\n" +
	"A1\tx\t2.5\t5.0\tbar\n" +
	"B1\tx\t-1.0\t5.0\tNaN\n" +
	"B1\tx\t99.9\t5.0\textra\tfield\n" + // skipped: too many fields
	"B1\n" // skipped: too few fields

func (s *rangeScanSuite) TestScanRanges(c *check.C) {
	cfg := &Config{
		Path:        writeFile(c, "cells.tsv", scanTestData),
		IDCols:      []string{"WellName"},
		UselessCols: []string{"Meta", "NotPresent"},
	}
	res, layout, err := scanRanges(cfg)
	c.Assert(err, check.IsNil)
	c.Check(layout.idCols, check.DeepEquals, []int{0})
	c.Check(res.Features, check.DeepEquals, []string{"f1", "f2"})
	c.Check(res.FeatIdx, check.DeepEquals, []int{2, 3})
	c.Check(res.Problematic, check.DeepEquals, []string{"f3"})
	c.Assert(res.MinMax, check.HasLen, 2)
	c.Check(res.MinMax[0], check.Equals, MinMax{Xlow: -1.0, Xhigh: 2.5})
	// constant feature: range widened to 2*xlow + 0.5
	c.Check(res.MinMax[1], check.Equals, MinMax{Xlow: 5.0, Xhigh: 10.5})
}

func (s *rangeScanSuite) TestDegenerateZero(c *check.C) {
	cfg := &Config{
		Path:   writeFile(c, "cells.tsv", "WellName\tf1\nA1\t0.0\nB1\t0\n"),
		IDCols: []string{"WellName"},
	}
	res, _, err := scanRanges(cfg)
	c.Assert(err, check.IsNil)
	c.Check(res.MinMax[0], check.Equals, MinMax{Xlow: 0, Xhigh: 1})
}

func (s *rangeScanSuite) TestMissingIdColumn(c *check.C) {
	cfg := &Config{
		Path:   writeFile(c, "cells.tsv", scanTestData),
		IDCols: []string{"NoSuchColumn"},
	}
	_, _, err := scanRanges(cfg)
	c.Check(errors.Is(err, ErrMissingIdColumn), check.Equals, true)
}

func (s *rangeScanSuite) TestEmptyInput(c *check.C) {
	cfg := &Config{
		Path:   writeFile(c, "cells.tsv", ""),
		IDCols: []string{"WellName"},
	}
	_, _, err := scanRanges(cfg)
	c.Check(errors.Is(err, ErrHeaderParse), check.Equals, true)
}

func (s *rangeScanSuite) TestMissingFile(c *check.C) {
	cfg := &Config{
		Path:   c.MkDir() + "/nonexistent.tsv",
		IDCols: []string{"WellName"},
	}
	_, _, err := scanRanges(cfg)
	c.Check(os.IsNotExist(err), check.Equals, true)
}

func (s *rangeScanSuite) TestProblematicReport(c *check.C) {
	prefix := c.MkDir() + "/plate7"
	cfg := &Config{
		Path:           writeFile(c, "cells.tsv", scanTestData),
		IDCols:         []string{"WellName"},
		UselessCols:    []string{"Meta"},
		ProblematicOut: prefix,
	}
	_, _, err := scanRanges(cfg)
	c.Assert(err, check.IsNil)
	buf, err := ioutil.ReadFile(prefix + "_problematicFeats.csv")
	c.Assert(err, check.IsNil)
	c.Check(string(buf), check.Equals, "f3,noValues\n")
}
