// Copyright (C) The HistDiff Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package histdiff

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
)

var (
	ErrHeaderParse     = errors.New("malformed header row")
	ErrMissingIdColumn = errors.New("id column not found in header")
)

// openInput opens the cell-by-cell file at path, transparently
// decompressing ".gz" files.
func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := pgzip.NewReader(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return gzipReadCloser{zr, f}, nil
}

type gzipReadCloser struct {
	*pgzip.Reader
	f *os.File
}

func (g gzipReadCloser) Close() error {
	err := g.Reader.Close()
	if err2 := g.f.Close(); err == nil {
		err = err2
	}
	return err
}

// rowScanner iterates over the lines of a tab-separated file with a
// single header row. Lines may be up to 64 MiB long.
type rowScanner struct {
	sc *bufio.Scanner
}

func newRowScanner(r io.Reader) *rowScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<20), 1<<26)
	return &rowScanner{sc: sc}
}

// Header consumes and splits the first line.
func (s *rowScanner) Header() ([]string, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: empty input", ErrHeaderParse)
	}
	header := splitRow(s.sc.Text())
	if len(header) == 1 && header[0] == "" {
		return nil, fmt.Errorf("%w: blank first line", ErrHeaderParse)
	}
	return header, nil
}

func (s *rowScanner) Scan() bool {
	return s.sc.Scan()
}

// Fields splits the current line. The returned slice is freshly
// allocated and safe to retain.
func (s *rowScanner) Fields() []string {
	return splitRow(s.sc.Text())
}

func (s *rowScanner) Err() error {
	return s.sc.Err()
}

func splitRow(line string) []string {
	return strings.Split(strings.TrimSuffix(line, "\r"), "\t")
}

// columnLayout is the resolved position of every column of interest.
type columnLayout struct {
	header   []string
	idCols   []int    // positions of the configured id columns, in order
	features []string // feature column names, in source order
	featIdx  []int    // positions of features, parallel to features
}

// resolveColumns maps the configured column names onto header
// positions. Unknown useless columns are silently ignored; a missing
// id column is an error.
func resolveColumns(header []string, idCols, uselessCols []string) (*columnLayout, error) {
	pos := map[string]int{}
	for i, name := range header {
		if _, ok := pos[name]; !ok {
			pos[name] = i
		}
	}
	layout := &columnLayout{header: header}
	skip := make([]bool, len(header))
	for _, name := range idCols {
		i, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingIdColumn, name)
		}
		layout.idCols = append(layout.idCols, i)
		skip[i] = true
	}
	for _, name := range uselessCols {
		if i, ok := pos[name]; ok {
			skip[i] = true
		}
	}
	for i, name := range header {
		if !skip[i] {
			layout.features = append(layout.features, name)
			layout.featIdx = append(layout.featIdx, i)
		}
	}
	return layout, nil
}

// wellID joins the row's id fields in configured column order.
func (layout *columnLayout) wellID(fields []string) string {
	if len(layout.idCols) == 1 {
		return fields[layout.idCols[0]]
	}
	parts := make([]string, len(layout.idCols))
	for i, col := range layout.idCols {
		parts[i] = fields[col]
	}
	return strings.Join(parts, "_")
}
