package csvfile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/dataclean/internal/core"
)

// ErrEmptyFile is returned when the input has no header row.
var ErrEmptyFile = errors.New("empty file")

// Options control how a CSV is read.
type Options struct {
	// Encoding forces a source encoding; empty means detect.
	Encoding Encoding
	// Types pins column types, skipping inference for those columns.
	Types map[string]core.FieldType
}

// LoadInfo describes a completed read.
type LoadInfo struct {
	Encoding Encoding
	Bytes    int64
	Rows     int
	Columns  int
}

// Read parses a CSV stream into a dataset named name. The header row names
// the columns; column types are inferred once from the full column.
func Read(r io.Reader, name string, opts Options) (*core.Dataset, LoadInfo, error) {
	counter := NewCountingReader(r, 0)
	br := bufio.NewReaderSize(counter, sniffSize)

	enc := opts.Encoding
	if enc == "" {
		head, err := br.Peek(sniffSize)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, LoadInfo{}, fmt.Errorf("read %s: %w", name, err)
		}
		if len(head) == 0 {
			return nil, LoadInfo{}, ErrEmptyFile
		}
		enc, err = Detect(head, err == io.EOF)
		if err != nil {
			return nil, LoadInfo{}, err
		}
	}

	decoded, err := enc.NewReader(br)
	if err != nil {
		return nil, LoadInfo{}, err
	}

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, LoadInfo{Encoding: enc}, ErrEmptyFile
	}
	if err != nil {
		return nil, LoadInfo{Encoding: enc}, fmt.Errorf("invalid csv: %w", err)
	}
	names := normalizeHeader(header)

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, LoadInfo{Encoding: enc}, fmt.Errorf("invalid csv: %w", err)
		}
		if len(rec) > len(names) {
			line, _ := cr.FieldPos(0)
			return nil, LoadInfo{Encoding: enc}, fmt.Errorf(
				"invalid csv: line %d has %d fields, header has %d", line, len(rec), len(names))
		}
		records = append(records, rec)
	}

	ds := build(name, names, records, opts.Types)
	info := LoadInfo{
		Encoding: enc,
		Bytes:    counter.BytesRead,
		Rows:     ds.Len(),
		Columns:  len(ds.Columns),
	}
	return ds, info, nil
}

// LoadFile reads the CSV at path. The dataset is named after the file
// without its extension.
func LoadFile(path string, opts Options) (*core.Dataset, LoadInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadInfo{}, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ds, info, err := Read(f, name, opts)
	if err != nil {
		return nil, info, fmt.Errorf("%s: %w", path, err)
	}
	return ds, info, nil
}

// normalizeHeader trims header names, names blank headers after their
// position and suffixes repeats with ".1", ".2", ...
func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))
	repeats := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for used[name] {
			repeats[h]++
			name = h + "." + strconv.Itoa(repeats[h])
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func build(name string, names []string, records [][]string, pinned map[string]core.FieldType) *core.Dataset {
	cols := make([]core.Column, len(names))
	for j, n := range names {
		t, ok := pinned[n]
		if !ok {
			t = inferType(records, j)
		}
		cols[j] = core.Column{Name: n, Type: t}
	}

	ds := core.NewDataset(name, cols)
	ds.Rows = make([]core.Row, 0, len(records))
	for _, rec := range records {
		row := make(core.Row, len(cols))
		for j, c := range cols {
			if j >= len(rec) {
				row[c.Name] = core.Null()
				continue
			}
			v, _ := core.ParseValue(rec[j], c.Type)
			row[c.Name] = v
		}
		ds.Append(row)
	}
	return ds
}
