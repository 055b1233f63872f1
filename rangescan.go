// Copyright (C) The HistDiff Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package histdiff

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// MinMax is the observed value range of one feature.
type MinMax struct {
	Xlow  float64
	Xhigh float64
}

// rangeScanResult is the outcome of the first pass over the file: the
// usable features in source order, their (possibly adjusted) ranges
// and row positions, and the features that had no usable value.
type rangeScanResult struct {
	Features    []string
	MinMax      []MinMax
	FeatIdx     []int
	Problematic []string
}

// rows are handed to scan workers in chunks to keep channel traffic
// low; every worker sees every chunk but only touches its own shard
// of the feature list.
const scanChunkRows = 256

// scanRanges streams the file once and computes each feature's global
// min and max over all rows, NaN marking "no finite value seen yet".
// Rows whose field count differs from the header are skipped. After
// the scan, degenerate ranges (xlow == xhigh) are widened so a
// histogram can be built on them, and features that never produced a
// finite value are split off as problematic.
func scanRanges(cfg *Config) (*rangeScanResult, *columnLayout, error) {
	in, err := openInput(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	defer in.Close()

	scanner := newRowScanner(in)
	header, err := scanner.Header()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", cfg.Path, err)
	}
	layout, err := resolveColumns(header, cfg.IDCols, cfg.UselessCols)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", cfg.Path, err)
	}

	nfeat := len(layout.featIdx)
	xlow := make([]float64, nfeat)
	xhigh := make([]float64, nfeat)
	for i := range xlow {
		xlow[i] = math.NaN()
		xhigh[i] = math.NaN()
	}

	nworkers := runtime.NumCPU()
	if nworkers > nfeat {
		nworkers = nfeat
	}
	if nworkers < 1 {
		nworkers = 1
	}
	feeds := make([]chan [][]string, nworkers)
	var wg WaitGroup
	for w := 0; w < nworkers; w++ {
		w := w
		feeds[w] = make(chan [][]string, 4)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range feeds[w] {
				for _, fields := range chunk {
					for i := w; i < nfeat; i += nworkers {
						v, err := strconv.ParseFloat(fields[layout.featIdx[i]], 64)
						if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
							continue
						}
						if math.IsNaN(xlow[i]) || v < xlow[i] {
							xlow[i] = v
						}
						if math.IsNaN(xhigh[i]) || v > xhigh[i] {
							xhigh[i] = v
						}
					}
				}
			}
			// widen degenerate ranges on this worker's shard
			for i := w; i < nfeat; i += nworkers {
				if math.IsNaN(xlow[i]) || xlow[i] != xhigh[i] {
					continue
				}
				if xlow[i] != 0 {
					xhigh[i] = 2*xlow[i] + 0.5
				} else {
					xhigh[i] = 1.0
				}
			}
		}()
	}

	chunk := make([][]string, 0, scanChunkRows)
	flush := func() {
		if len(chunk) == 0 {
			return
		}
		for _, feed := range feeds {
			feed <- chunk
		}
		chunk = make([][]string, 0, scanChunkRows)
	}
	rows, skipped := 0, 0
	for scanner.Scan() {
		fields := scanner.Fields()
		if len(fields) != len(header) {
			skipped++
			continue
		}
		rows++
		chunk = append(chunk, fields)
		if len(chunk) == scanChunkRows {
			flush()
		}
	}
	flush()
	for _, feed := range feeds {
		close(feed)
	}
	werr := wg.Wait()
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", cfg.Path, err)
	}
	if werr != nil {
		return nil, nil, werr
	}
	if skipped > 0 && cfg.Verbose {
		log.Infof("range scan: skipped %d rows with field count != %d", skipped, len(header))
	}

	res := &rangeScanResult{}
	for i, feat := range layout.features {
		if math.IsNaN(xlow[i]) {
			res.Problematic = append(res.Problematic, feat)
			continue
		}
		res.Features = append(res.Features, feat)
		res.MinMax = append(res.MinMax, MinMax{Xlow: xlow[i], Xhigh: xhigh[i]})
		res.FeatIdx = append(res.FeatIdx, layout.featIdx[i])
	}
	if len(res.Problematic) > 0 {
		if cfg.Verbose {
			log.Infof("range scan: no values found in features: %s", strings.Join(res.Problematic, " | "))
			log.Infof("range scan: %d usable features, %d problematic", len(res.Features), len(res.Problematic))
		}
		if cfg.ProblematicOut != "" {
			if err := writeProblematicReport(cfg.ProblematicOut, res.Problematic); err != nil {
				return nil, nil, err
			}
		}
	}
	if cfg.Verbose {
		log.Infof("range scan: %d rows, %d features", rows, len(res.Features))
	}
	return res, layout, nil
}

func writeProblematicReport(prefix string, feats []string) error {
	f, err := os.OpenFile(prefix+"_problematicFeats.csv", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	for _, feat := range feats {
		if _, err := fmt.Fprintf(f, "%s,noValues\n", feat); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}
