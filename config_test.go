// Copyright (C) The HistDiff Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package histdiff

import (
	"gopkg.in/check.v1"
)

type configSuite struct{}

var _ = check.Suite(&configSuite{})

func (s *configSuite) TestPlateDefinition(c *check.C) {
	plate := plateDefinition()
	c.Assert(plate, check.HasLen, 384)
	c.Check(plate[0], check.Equals, "A1")
	c.Check(plate[23], check.Equals, "A24")
	c.Check(plate[24], check.Equals, "B1")
	c.Check(plate[383], check.Equals, "P24")
}

func (s *configSuite) TestCleanWellNames(c *check.C) {
	c.Check(cleanWellNames([]string{"A01", "P24", "B9", "C007", "AA", "Z", ""}),
		check.DeepEquals, []string{"A1", "P24", "B9", "C7", "AA", "Z", ""})
}

func (s *configSuite) TestDefaults(c *check.C) {
	cfg, err := (&Config{Path: "cells.tsv", IDCols: []string{"WellName"}}).withDefaults()
	c.Assert(err, check.IsNil)
	c.Check(cfg.NBins, check.Equals, 20)
	c.Check(cfg.PlateDef, check.HasLen, 384)
	c.Assert(cfg.BlockDef, check.HasLen, 1)
	c.Check(cfg.BlockDef[0], check.DeepEquals, cfg.PlateDef)
}

func (s *configSuite) TestBlockSynthesis(c *check.C) {
	cfg, err := (&Config{
		Path:     "cells.tsv",
		IDCols:   []string{"WellName"},
		PlateDef: []string{"A1", "A2", "A3", "B1", "B2"},
		BlockDef: [][]string{{"A01", "A2"}, {"A3", "B1"}},
	}).withDefaults()
	c.Assert(err, check.IsNil)
	c.Assert(cfg.BlockDef, check.HasLen, 3)
	c.Check(cfg.BlockDef[2], check.DeepEquals, []string{"B2"})
}

func (s *configSuite) TestInvalid(c *check.C) {
	_, err := (&Config{IDCols: []string{"WellName"}}).withDefaults()
	c.Check(err, check.NotNil)
	_, err = (&Config{Path: "cells.tsv"}).withDefaults()
	c.Check(err, check.NotNil)
	_, err = (&Config{Path: "cells.tsv", IDCols: []string{"WellName"}, NBins: -1}).withDefaults()
	c.Check(err, check.NotNil)
}
