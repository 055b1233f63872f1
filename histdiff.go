// Copyright (C) The HistDiff Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package histdiff computes per-well, per-feature HistDiff scores
// from high-content cell-by-cell measurement files. The pipeline
// makes two streaming passes over the input: the first derives each
// feature's global value range, the second fills one fixed-range
// histogram per (well, feature) pair. Wells are then scored block by
// block against a pooled vehicle-control histogram using a signed
// squared-difference kernel.
package histdiff

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// ScoreMap holds the HistDiff score of every scored (well, feature)
// pair, keyed by well id as observed in the input file.
type ScoreMap map[string]map[string]float64

// CalculateScores runs the full pipeline described by config and
// returns the score of every experimental well for every usable
// feature. Partial results are never returned.
func CalculateScores(config *Config) (ScoreMap, error) {
	cfg, err := config.withDefaults()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ranges, layout, err := scanRanges(cfg)
	if err != nil {
		return nil, err
	}
	hists, err := fillScan(cfg, layout, ranges)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		log.Infof("read %s twice in %v", cfg.Path, time.Since(start))
	}

	start = time.Now()
	scores, err := scoreBlocks(cfg, ranges.Features, hists)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		log.Infof("scored %d wells x %d features in %v", len(scores), len(ranges.Features), time.Since(start))
	}
	return scores, nil
}

// Wells returns the scored well ids in lexicographic order.
func (m ScoreMap) Wells() []string {
	wells := make([]string, 0, len(m))
	for well := range m {
		wells = append(wells, well)
	}
	sort.Strings(wells)
	return wells
}

// Features returns the union of scored feature names in lexicographic
// order.
func (m ScoreMap) Features() []string {
	seen := map[string]bool{}
	var feats []string
	for _, featScores := range m {
		for feat := range featScores {
			if !seen[feat] {
				seen[feat] = true
				feats = append(feats, feat)
			}
		}
	}
	sort.Strings(feats)
	return feats
}

// WriteCSV writes the scores as a dense comma-separated table with an
// "id" key column and one column per feature, both in lexicographic
// order. Cells with no score are written as NaN.
func (m ScoreMap) WriteCSV(w io.Writer) error {
	wells := m.Wells()
	feats := m.Features()
	bw := bufio.NewWriter(w)
	bw.WriteString("id")
	for _, feat := range feats {
		bw.WriteString(",")
		bw.WriteString(feat)
	}
	bw.WriteString("\n")
	for _, well := range wells {
		bw.WriteString(well)
		featScores := m[well]
		for _, feat := range feats {
			bw.WriteString(",")
			if score, ok := featScores[feat]; ok {
				bw.WriteString(strconv.FormatFloat(score, 'g', -1, 64))
			} else {
				bw.WriteString("NaN")
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
