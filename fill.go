// Copyright (C) The HistDiff Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package histdiff

import (
	"fmt"
	"math"
	"runtime"
	"strconv"

	log "github.com/sirupsen/logrus"
)

type fillJob struct {
	hists  []*Hist1D // the row's well bundle, parallel to Features
	fields []string
}

// fillScan streams the file a second time and builds one histogram
// per (well, feature) pair, sized by the ranges from the first pass.
// A well's bundle is created on first encounter; rows whose well id
// is not in the plate definition are skipped, as are rows with a
// field count mismatch. Feature parsing and histogram filling are
// sharded across workers so each histogram has a single writer.
func fillScan(cfg *Config, layout *columnLayout, ranges *rangeScanResult) (map[string]map[string]*Hist1D, error) {
	in, err := openInput(cfg.Path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	scanner := newRowScanner(in)
	header, err := scanner.Header()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Path, err)
	}
	if len(header) != len(layout.header) {
		return nil, fmt.Errorf("%s: %w: header changed between passes", cfg.Path, ErrHeaderParse)
	}

	plate := make(map[string]bool, len(cfg.PlateDef))
	for _, well := range cfg.PlateDef {
		plate[well] = true
	}

	nfeat := len(ranges.Features)
	nworkers := runtime.NumCPU()
	if nworkers > nfeat {
		nworkers = nfeat
	}
	if nworkers < 1 {
		nworkers = 1
	}
	feeds := make([]chan []fillJob, nworkers)
	var wg WaitGroup
	for w := 0; w < nworkers; w++ {
		w := w
		feeds[w] = make(chan []fillJob, 4)
		wg.Add(1)
		go func() {
			defer wg.Done()
			var one [1]float64
			for chunk := range feeds[w] {
				for _, job := range chunk {
					for i := w; i < nfeat; i += nworkers {
						v, err := strconv.ParseFloat(job.fields[ranges.FeatIdx[i]], 64)
						if err != nil {
							v = math.NaN()
						}
						one[0] = v
						job.hists[i].Fill(one[:])
					}
				}
			}
		}()
	}

	bundles := map[string][]*Hist1D{}
	newBundle := func() []*Hist1D {
		hists := make([]*Hist1D, nfeat)
		for i, mm := range ranges.MinMax {
			hists[i] = NewHist1D(cfg.NBins, mm.Xlow, mm.Xhigh)
		}
		return hists
	}

	chunk := make([]fillJob, 0, scanChunkRows)
	flush := func() {
		if len(chunk) == 0 {
			return
		}
		for _, feed := range feeds {
			feed <- chunk
		}
		chunk = make([]fillJob, 0, scanChunkRows)
	}
	for scanner.Scan() {
		fields := scanner.Fields()
		if len(fields) != len(header) {
			continue
		}
		well := layout.wellID(fields)
		if !plate[well] {
			continue
		}
		hists, ok := bundles[well]
		if !ok {
			hists = newBundle()
			bundles[well] = hists
		}
		chunk = append(chunk, fillJob{hists: hists, fields: fields})
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
		return nil, fmt.Errorf("read %s: %w", cfg.Path, err)
	}
	if werr != nil {
		return nil, werr
	}
	if cfg.Verbose {
		log.Infof("fill scan: histograms for %d wells", len(bundles))
	}

	hists := make(map[string]map[string]*Hist1D, len(bundles))
	for well, bundle := range bundles {
		featHists := make(map[string]*Hist1D, nfeat)
		for i, feat := range ranges.Features {
			featHists[feat] = bundle[i]
		}
		hists[well] = featHists
	}
	return hists, nil
}
