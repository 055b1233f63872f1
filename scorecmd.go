// Copyright (C) The HistDiff Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package histdiff

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// configFlags maps the shared pipeline options onto a FlagSet; the
// score and export-numpy commands both embed it.
type configFlags struct {
	input          string
	idCols         string
	uselessCols    string
	controls       string
	blockDefFile   string
	plateDefFile   string
	nbins          int
	problematicOut string
}

func (cf *configFlags) Flags(flags *flag.FlagSet) {
	flags.StringVar(&cf.input, "i", "", "input cell-by-cell tsv `file` (may be gzipped)")
	flags.StringVar(&cf.idCols, "id-cols", "WellName", "comma-separated well id `columns`")
	flags.StringVar(&cf.uselessCols, "useless-cols", "", "comma-separated `columns` to ignore")
	flags.StringVar(&cf.controls, "controls", "", "comma-separated vehicle control `wells`")
	flags.StringVar(&cf.blockDefFile, "block-def", "", "json `file` holding a list of well-name lists, one per analysis block")
	flags.StringVar(&cf.plateDefFile, "plate-def", "", "json `file` holding the list of plate wells (default: 384-well A1..P24)")
	flags.IntVar(&cf.nbins, "nbins", 0, "histogram bin `count` (default 20)")
	flags.StringVar(&cf.problematicOut, "output-problematic", "", "write features with no values to `prefix`_problematicFeats.csv")
}

func (cf *configFlags) Config(verbose bool) (*Config, error) {
	if cf.input == "" {
		return nil, fmt.Errorf("cannot run without -i input file")
	}
	if cf.controls == "" {
		return nil, fmt.Errorf("cannot run without -controls")
	}
	cfg := &Config{
		Path:           cf.input,
		IDCols:         commaSplit(cf.idCols),
		UselessCols:    commaSplit(cf.uselessCols),
		VehicleCntrls:  commaSplit(cf.controls),
		NBins:          cf.nbins,
		Verbose:        verbose,
		ProblematicOut: cf.problematicOut,
	}
	if cf.blockDefFile != "" {
		if err := loadJSON(cf.blockDefFile, &cfg.BlockDef); err != nil {
			return nil, err
		}
	}
	if cf.plateDefFile != "" {
		if err := loadJSON(cf.plateDefFile, &cfg.PlateDef); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func commaSplit(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadJSON(path string, dst interface{}) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(buf, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

type scorecmd struct {
	configFlags
	outputFilename string
	loglevel       string
}

func (cmd *scorecmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	cmd.configFlags.Flags(flags)
	flags.StringVar(&cmd.outputFilename, "o", "-", "output csv `file`")
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
	if log.IsLevelEnabled(log.DebugLevel) {
		logScoreSummary(scores)
	}

	var output io.WriteCloser
	if cmd.outputFilename == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.OpenFile(cmd.outputFilename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0777)
		if err != nil {
			return 1
		}
		defer output.Close()
	}
	err = scores.WriteCSV(output)
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}

// logScoreSummary logs the score distribution of each feature.
func logScoreSummary(scores ScoreMap) {
	for _, feat := range scores.Features() {
		var vals []float64
		for _, featScores := range scores {
			if v, ok := featScores[feat]; ok {
				vals = append(vals, v)
			}
		}
		mean, sd := stat.MeanStdDev(vals, nil)
		log.Debugf("feature %s: n=%d mean=%.4g stddev=%.4g", feat, len(vals), mean, sd)
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
