// Copyright (C) The HistDiff Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package histdiff

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Hist1D is a fixed-range one-dimensional histogram. Counts are kept
// as float64 so a histogram can hold raw tallies, pooled sums, or
// smoothed/normalized weights interchangeably.
type Hist1D struct {
	NBins    int
	Xlow     float64
	Xhigh    float64
	BinWidth float64
	Bins     []float64 // bin centers
	Counts   []float64
}

// NewHist1D returns a zeroed histogram with nbins equal-width bins
// covering [xlow, xhigh]. Requires nbins >= 1 and xhigh > xlow.
func NewHist1D(nbins int, xlow, xhigh float64) *Hist1D {
	binWidth := (xhigh - xlow) / float64(nbins)
	bins := make([]float64, nbins)
	for i := range bins {
		bins[i] = xlow + (float64(i)+0.5)*binWidth
	}
	return &Hist1D{
		NBins:    nbins,
		Xlow:     xlow,
		Xhigh:    xhigh,
		BinWidth: binWidth,
		Bins:     bins,
		Counts:   make([]float64, nbins),
	}
}

// Fill tallies the given values. Values in [xlow, xhigh) land in
// their bin, the upper bound lands in the last bin, everything else
// (including NaN) is ignored.
func (h *Hist1D) Fill(data []float64) {
	for _, v := range data {
		if v >= h.Xlow && v < h.Xhigh {
			bin := int((v - h.Xlow) / h.BinWidth)
			if bin >= h.NBins {
				// guard against float division rounding up
				// just below the upper bound
				bin = h.NBins - 1
			}
			h.Counts[bin]++
		} else if v == h.Xhigh {
			h.Counts[h.NBins-1]++
		}
	}
}

// Add sums other's counts into h. The histograms must have the same
// binning.
func (h *Hist1D) Add(other *Hist1D) error {
	if h.NBins != other.NBins || h.Xlow != other.Xlow || h.Xhigh != other.Xhigh {
		return fmt.Errorf("add: incompatible histograms (%d,%g,%g) vs (%d,%g,%g)",
			h.NBins, h.Xlow, h.Xhigh, other.NBins, other.Xlow, other.Xhigh)
	}
	floats.Add(h.Counts, other.Counts)
	return nil
}

// Copy returns a histogram sharing nothing with h.
func (h *Hist1D) Copy() *Hist1D {
	c := *h
	c.Bins = append([]float64(nil), h.Bins...)
	c.Counts = append([]float64(nil), h.Counts...)
	return &c
}

// Smooth replaces the counts with a 3-tap exponentially smoothed copy.
func (h *Hist1D) Smooth(alpha float64) {
	h.Counts = exponentialSmoothing(h.Counts, alpha)
}

// Normalize scales the counts to sum to 1. All-zero counts stay zero.
func (h *Hist1D) Normalize() {
	sum := floats.Sum(h.Counts)
	if sum == 0 {
		for i := range h.Counts {
			h.Counts[i] = 0
		}
		return
	}
	floats.Scale(1/sum, h.Counts)
}

// exponentialSmoothing returns a smoothed copy of x where each value
// is pulled toward its neighbors by weight alpha. Edge values see only
// their single neighbor.
func exponentialSmoothing(x []float64, alpha float64) []float64 {
	n := len(x)
	smoothed := make([]float64, n)
	for i, xi := range x {
		switch {
		case n == 1:
			smoothed[i] = xi
		case i == 0:
			smoothed[i] = xi + alpha*(x[i+1]-xi)
		case i == n-1:
			smoothed[i] = xi + alpha*(x[i-1]-xi)
		default:
			smoothed[i] = xi + alpha*(x[i-1]-xi) + alpha*(x[i+1]-xi)
		}
	}
	return smoothed
}
