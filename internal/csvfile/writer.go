package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/dataclean/internal/core"
)

// WriteDataset writes ds as UTF-8 CSV with a header row, preserving column
// and row order. Null cells are written empty.
func WriteDataset(w io.Writer, ds *core.Dataset) error {
	return writeRows(w, ds.ColumnNames(), ds.Rows)
}

// WriteBatch writes a quarantine batch in the column layout it was captured
// with.
func WriteBatch(w io.Writer, b core.QuarantineBatch) error {
	return writeRows(w, b.ColumnNames(), b.Rows)
}

func writeRows(w io.Writer, header []string, rows []core.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for _, row := range rows {
		for j, col := range header {
			rec[j] = row.Get(col).String()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes through fn into path atomically: data goes to a
// temporary file in the same directory which is renamed over path only if
// fn succeeds. Parent directories are created.
func WriteFile(path string, fn func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := fn(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
