// Copyright (C) The HistDiff Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package histdiff

import (
	"errors"
	"fmt"
	"strconv"
)

// Config freezes the parameters of one scoring run.
type Config struct {
	// Path of the cell-by-cell TSV file. Files ending in ".gz" are
	// decompressed on the fly.
	Path string

	// IDCols are the header names whose field values, joined with
	// "_" in column order, form the well id of a row.
	IDCols []string

	// UselessCols are header names excluded from the feature list.
	// Names not present in the header are ignored.
	UselessCols []string

	// Verbose enables informational logging (timings, dropped
	// features, per-block progress).
	Verbose bool

	// BlockDef partitions the plate into independently scored
	// blocks. If non-nil, a synthetic block holding every plate
	// well not referenced (after well-name normalization) in any
	// listed block is appended. If nil, the whole plate is one
	// block.
	BlockDef [][]string

	// PlateDef lists the wells that belong to the plate. Rows whose
	// well id is not listed here are skipped. Defaults to the
	// standard 384-well enumeration A1..P24. Note membership is
	// tested against the raw id from the file, so a file using
	// zero-padded names ("A01") needs a matching PlateDef.
	PlateDef []string

	// VehicleCntrls are the wells pooled into each block's control
	// histogram, summed in the order given here.
	VehicleCntrls []string

	// NBins is the histogram bin count. 0 means the default, 20.
	NBins int

	// ProblematicOut, if non-empty, is a path prefix for a
	// "<prefix>_problematicFeats.csv" report listing features that
	// had no usable value in any row.
	ProblematicOut string
}

const defaultNBins = 20

// withDefaults returns a copy of cfg with defaults applied and the
// synthetic remainder block appended, without modifying cfg.
func (cfg *Config) withDefaults() (*Config, error) {
	c := *cfg
	if c.Path == "" {
		return nil, errors.New("config: no input path")
	}
	if len(c.IDCols) == 0 {
		return nil, errors.New("config: at least one id column is required")
	}
	if c.NBins < 0 {
		return nil, fmt.Errorf("config: invalid bin count %d", c.NBins)
	}
	if c.NBins == 0 {
		c.NBins = defaultNBins
	}
	if c.PlateDef == nil {
		c.PlateDef = plateDefinition()
	}
	if c.BlockDef == nil {
		c.BlockDef = [][]string{c.PlateDef}
	} else {
		c.BlockDef = append(append([][]string(nil), c.BlockDef...), remainderBlock(c.PlateDef, c.BlockDef))
	}
	return &c, nil
}

// plateDefinition enumerates the standard 384-well plate, letters A..P
// by numbers 1..24, without zero padding.
func plateDefinition() []string {
	wells := make([]string, 0, 384)
	for letter := byte('A'); letter <= 'P'; letter++ {
		for num := 1; num <= 24; num++ {
			wells = append(wells, fmt.Sprintf("%c%d", letter, num))
		}
	}
	return wells
}

// remainderBlock returns the plate wells not referenced in any of the
// given blocks, in plate order. Block entries are normalized before
// comparison so "A01" claims plate well "A1".
func remainderBlock(plateDef []string, blocks [][]string) []string {
	claimed := map[string]bool{}
	for _, block := range blocks {
		for _, well := range cleanWellNames(block) {
			claimed[well] = true
		}
	}
	var rest []string
	for _, well := range plateDef {
		if !claimed[well] {
			rest = append(rest, well)
		}
	}
	return rest
}

// cleanWellNames normalizes well names to the canonical unpadded form:
// "A01" becomes "A1", "P24" is unaffected. Names whose suffix is not a
// number pass through unchanged.
func cleanWellNames(wells []string) []string {
	cleaned := make([]string, len(wells))
	for i, name := range wells {
		cleaned[i] = name
		if len(name) < 2 {
			continue
		}
		if num, err := strconv.ParseUint(name[1:], 10, 32); err == nil {
			cleaned[i] = name[:1] + strconv.FormatUint(num, 10)
		}
	}
	return cleaned
}
