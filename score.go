// Copyright (C) The HistDiff Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package histdiff

import (
	"errors"
	"fmt"
	"runtime"
	"sort"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrMissingControl = errors.New("no pooled control histogram for feature")
	ErrShapeMismatch  = errors.New("experimental and control shapes do not match")
)

// cntrlWell is the synthetic well id holding a block's pooled control
// histograms during scoring.
const cntrlWell = "CNTRL"

// scoreBlocks scores every block of the configuration against its own
// pooled vehicle control and merges the per-block results. Blocks
// with no observed wells are skipped.
func scoreBlocks(cfg *Config, features []string, hists map[string]map[string]*Hist1D) (ScoreMap, error) {
	scores := ScoreMap{}
	for b, block := range cfg.BlockDef {
		group := selectBlock(hists, block)
		if len(group) == 0 {
			log.Debugf("block %d: no wells observed, skipping", b)
			continue
		}
		if cfg.Verbose {
			log.Infof("block %d: scoring %d wells", b, len(group))
		}
		blockScores, err := scoreBlock(cfg, features, group)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", b, err)
		}
		for well, featScores := range blockScores {
			m := scores[well]
			if m == nil {
				m = map[string]float64{}
				scores[well] = m
			}
			for feat, score := range featScores {
				m[feat] = score
			}
		}
	}
	return scores, nil
}

// selectBlock deep-clones the slice of the fill-scan map belonging to
// the given block, so smoothing and normalization below cannot
// disturb sibling blocks. Block well names are normalized before the
// lookup.
func selectBlock(hists map[string]map[string]*Hist1D, block []string) map[string]map[string]*Hist1D {
	selected := map[string]bool{}
	for _, well := range cleanWellNames(block) {
		selected[well] = true
	}
	group := map[string]map[string]*Hist1D{}
	for well, featHists := range hists {
		if !selected[well] {
			continue
		}
		clone := make(map[string]*Hist1D, len(featHists))
		for feat, h := range featHists {
			clone[feat] = h.Copy()
		}
		group[well] = clone
	}
	return group
}

func scoreBlock(cfg *Config, features []string, group map[string]map[string]*Hist1D) (ScoreMap, error) {
	// pool the vehicle controls, feature by feature, in declared
	// control order
	cntrl := map[string]*Hist1D{}
	for _, feat := range features {
		var sum *Hist1D
		for _, well := range cfg.VehicleCntrls {
			h, ok := group[well][feat]
			if !ok {
				continue
			}
			if sum == nil {
				sum = h.Copy()
			} else if err := sum.Add(h); err != nil {
				return nil, fmt.Errorf("pool control %s feature %s: %w", well, feat, err)
			}
		}
		if sum != nil {
			cntrl[feat] = sum
		}
	}
	group[cntrlWell] = cntrl

	for _, featHists := range group {
		for _, h := range featHists {
			h.Smooth(0.25)
			h.Normalize()
		}
	}

	wells := make([]string, 0, len(group)-1)
	for well := range group {
		if well != cntrlWell {
			wells = append(wells, well)
		}
	}
	sort.Strings(wells)

	featScores := make([]map[string]float64, len(features))
	var workers throttle
	workers.Max = runtime.NumCPU()
	for i, feat := range features {
		i, feat := i, feat
		workers.Go(func() error {
			exp := make([][]float64, 0, len(wells))
			wellIDs := make([]string, 0, len(wells))
			for _, well := range wells {
				if h, ok := group[well][feat]; ok {
					exp = append(exp, h.Counts)
					wellIDs = append(wellIDs, well)
				}
			}
			ch, ok := cntrl[feat]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingControl, feat)
			}
			scores, err := histSquareDiff(exp, ch.Counts, 1.0)
			if err != nil {
				return fmt.Errorf("feature %s: %w", feat, err)
			}
			m := make(map[string]float64, len(wellIDs))
			for k, well := range wellIDs {
				m[well] = scores[k]
			}
			featScores[i] = m
			return nil
		})
	}
	if err := workers.Wait(); err != nil {
		return nil, err
	}

	scores := ScoreMap{}
	for i, feat := range features {
		for well, score := range featScores[i] {
			m := scores[well]
			if m == nil {
				m = map[string]float64{}
				scores[well] = m
			}
			m[feat] = score
		}
	}
	return scores, nil
}

// histSquareDiff computes the signed squared-difference score of each
// experimental histogram against the control. exp is indexed by well,
// then by bin; ctrl is indexed by bin and must match the bin count of
// every row. The magnitude is the sum of squared per-bin residuals
// (the experimental counts scaled by factor); the sign is negative
// when the control's rank-weighted mean proxy exceeds the well's.
func histSquareDiff(exp [][]float64, ctrl []float64, factor float64) ([]float64, error) {
	if len(exp) == 0 {
		return nil, fmt.Errorf("%w: no experimental wells", ErrShapeMismatch)
	}
	nbins := len(ctrl)
	for k := range exp {
		if len(exp[k]) != nbins {
			return nil, fmt.Errorf("%w: well %d has %d bins, control has %d", ErrShapeMismatch, k, len(exp[k]), nbins)
		}
	}

	idx := make([]float64, nbins)
	for i := range idx {
		idx[i] = float64(i + 1)
	}
	ctrlProxy := floats.Dot(ctrl, idx)

	scores := make([]float64, len(exp))
	for k, row := range exp {
		var sum float64
		for i, c := range ctrl {
			d := c - row[i]*factor
			sum += d * d
		}
		if ctrlProxy > floats.Dot(row, idx) {
			sum = -sum
		}
		scores[k] = sum
	}
	return scores, nil
}
