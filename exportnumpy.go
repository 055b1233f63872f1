// Copyright (C) The HistDiff Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package histdiff

import (
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
)

// exportNumpy runs the scoring pipeline and writes the result as a
// dense numpy matrix (wells x features, lexicographic order on both
// axes, NaN for missing cells) plus csv files mapping row indices to
// wells and column indices to features.
type exportNumpy struct {
	configFlags
	outputDir string
	loglevel  string
}

func (cmd *exportNumpy) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	cmd.configFlags.Flags(flags)
	flags.StringVar(&cmd.outputDir, "output-dir", ".", "output `directory`")
	flags.StringVar(&cmd.loglevel, "loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	lvl, err := log.ParseLevel(cmd.loglevel)
	if err != nil {
		return 2
	}
	log.SetLevel(lvl)

	cfg, err := cmd.configFlags.Config(lvl >= log.InfoLevel)
	if err != nil {
		return 2
	}

	scores, err := CalculateScores(cfg)
	if err != nil {
		return 1
	}

	wells := scores.Wells()
	feats := scores.Features()
	data := make([]float64, len(wells)*len(feats))
	for i, well := range wells {
		featScores := scores[well]
		for j, feat := range feats {
			if score, ok := featScores[feat]; ok {
				data[i*len(feats)+j] = score
			} else {
				data[i*len(feats)+j] = math.NaN()
			}
		}
	}

	log.Infof("writing matrix: %d rows x %d cols", len(wells), len(feats))
	f, err := os.OpenFile(cmd.outputDir+"/matrix.npy", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0777)
	if err != nil {
		return 1
	}
	defer f.Close()
	// gonpy closes our writer and ignores errors. Give it a
	// nopCloser so we can close f properly.
	npw, err := gonpy.NewWriter(nopCloser{f})
	if err != nil {
		return 1
	}
	npw.Shape = []int{len(wells), len(feats)}
	err = npw.WriteFloat64(data)
	if err != nil {
		return 1
	}
	err = f.Close()
	if err != nil {
		return 1
	}

	err = writeIndexCSV(cmd.outputDir+"/labels.csv", wells)
	if err != nil {
		return 1
	}
	err = writeIndexCSV(cmd.outputDir+"/columns.csv", feats)
	if err != nil {
		return 1
	}
	return 0
}

func writeIndexCSV(path string, names []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0777)
	if err != nil {
		return err
	}
	for i, name := range names {
		if _, err := fmt.Fprintf(f, "%d,%q,%q\n", i, name, "matrix.npy"); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}
