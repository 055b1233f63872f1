// Copyright (C) The HistDiff Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package histdiff

import (
	"errors"

	"gopkg.in/check.v1"
)

type scoreSuite struct{}

var _ = check.Suite(&scoreSuite{})

func (s *scoreSuite) TestHistSquareDiff(c *check.C) {
	exp := [][]float64{
		{2, 3, 4},
		{1, 5, 7},
		{3, 6, 9},
	}
	ctrl := []float64{2, 4, 6}
	// control proxy = 2*1 + 4*2 + 6*3 = 28
	// well proxies: 20, 32, 42
	scores, err := histSquareDiff(exp, ctrl, 1.0)
	c.Assert(err, check.IsNil)
	c.Check(scores, check.DeepEquals, []float64{-5, 3, 14})
}

func (s *scoreSuite) TestHistSquareDiffFactor(c *check.C) {
	exp := [][]float64{
		{1, 2, 3},
		{2, 4, 6},
		{3, 6, 9},
	}
	ctrl := []float64{1, 2, 3}
	scores, err := histSquareDiff(exp, ctrl, 2.0)
	c.Assert(err, check.IsNil)
	c.Check(scores, check.DeepEquals, []float64{14, 126, 350})
}

func (s *scoreSuite) TestHistSquareDiffIdentical(c *check.C) {
	row := []float64{0.25, 0.5, 0.25}
	scores, err := histSquareDiff([][]float64{row}, row, 1.0)
	c.Assert(err, check.IsNil)
	c.Check(scores, check.DeepEquals, []float64{0})
}

func (s *scoreSuite) TestHistSquareDiffSign(c *check.C) {
	// control mass in the upper bins, well mass in the lower ones
	scores, err := histSquareDiff([][]float64{{1, 0}}, []float64{0, 1}, 1.0)
	c.Assert(err, check.IsNil)
	c.Check(scores[0] <= 0, check.Equals, true)

	scores, err = histSquareDiff([][]float64{{0, 1}}, []float64{1, 0}, 1.0)
	c.Assert(err, check.IsNil)
	c.Check(scores[0] >= 0, check.Equals, true)
}

func (s *scoreSuite) TestHistSquareDiffShape(c *check.C) {
	_, err := histSquareDiff(nil, []float64{1, 2}, 1.0)
	c.Check(errors.Is(err, ErrShapeMismatch), check.Equals, true)

	_, err = histSquareDiff([][]float64{{1, 2, 3}}, []float64{1, 2}, 1.0)
	c.Check(errors.Is(err, ErrShapeMismatch), check.Equals, true)
}

func (s *scoreSuite) TestMissingControl(c *check.C) {
	hist := NewHist1D(2, 0, 1)
	hist.Fill([]float64{0.25, 0.75})
	hists := map[string]map[string]*Hist1D{
		"B1": {"f1": hist},
	}
	cfg, err := (&Config{
		Path:          "cells.tsv",
		IDCols:        []string{"WellName"},
		VehicleCntrls: []string{"Z99"},
	}).withDefaults()
	c.Assert(err, check.IsNil)
	_, err = scoreBlocks(cfg, []string{"f1"}, hists)
	c.Check(errors.Is(err, ErrMissingControl), check.Equals, true)
}

func (s *scoreSuite) TestControlPooling(c *check.C) {
	// two control wells pool additively
	a := NewHist1D(2, 0, 1)
	a.Fill([]float64{0.25})
	b := NewHist1D(2, 0, 1)
	b.Fill([]float64{0.75, 0.75})
	e := NewHist1D(2, 0, 1)
	e.Fill([]float64{0.25})
	hists := map[string]map[string]*Hist1D{
		"A1": {"f1": a},
		"A2": {"f1": b},
		"B1": {"f1": e},
	}
	cfg, err := (&Config{
		Path:          "cells.tsv",
		IDCols:        []string{"WellName"},
		VehicleCntrls: []string{"A1", "A2"},
	}).withDefaults()
	c.Assert(err, check.IsNil)
	scores, err := scoreBlocks(cfg, []string{"f1"}, hists)
	c.Assert(err, check.IsNil)
	// pooled control counts [1,2]: smoothed [1.25, 1.75],
	// normalized [5/12, 7/12]; proxy 5/12 + 14/12 = 19/12.
	// B1 counts [1,0]: smoothed [0.75, 0.25]; proxy 0.75+0.5 = 1.25
	// < 19/12, so the score is negative.
	c.Check(scores["B1"]["f1"] < 0, check.Equals, true)
	// pooling must not mutate the fill-scan histograms
	c.Check(a.Counts, check.DeepEquals, []float64{1, 0})
	c.Check(b.Counts, check.DeepEquals, []float64{0, 2})
}
