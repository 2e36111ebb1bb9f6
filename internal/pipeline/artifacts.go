package pipeline

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/csvfile"
	"github.com/JonMunkholm/dataclean/internal/store"
)

// reportTimeLayout names run report files, e.g. cleaning_report_20240131_142500.log.
const reportTimeLayout = "20060102_150405"

// Paths are the directories a run writes into.
type Paths struct {
	OutputDir     string
	QuarantineDir string
	LogDir        string
}

// Under returns p with every directory nested below sub. The HTTP service
// uses it to keep the artifacts of each run apart.
func (p Paths) Under(sub string) Paths {
	return Paths{
		OutputDir:     filepath.Join(p.OutputDir, sub),
		QuarantineDir: filepath.Join(p.QuarantineDir, sub),
		LogDir:        filepath.Join(p.LogDir, sub),
	}
}

// CleanedPath is where the cleaned copy of dataset is written.
func (p Paths) CleanedPath(dataset string) string {
	return filepath.Join(p.OutputDir, "cleaned_"+dataset+".csv")
}

// QuarantinePath is where the rows quarantined for reason are written.
func (p Paths) QuarantinePath(dataset, reason string) string {
	return filepath.Join(p.QuarantineDir, dataset+"_"+reason+".csv")
}

// ReportPath is the run report file for a pipeline started at ts.
func (p Paths) ReportPath(ts time.Time) string {
	return filepath.Join(p.LogDir, "cleaning_report_"+ts.Format(reportTimeLayout)+".log")
}

// WriteArtifacts writes the cleaned dataset and one file per quarantine
// batch. Files are replaced atomically.
func (p Paths) WriteArtifacts(res *core.Result) (store.Artifacts, error) {
	var art store.Artifacts
	if res == nil || res.Dataset == nil {
		return art, core.ErrNilDataset
	}
	name := res.Dataset.Name

	cleaned := p.CleanedPath(name)
	err := csvfile.WriteFile(cleaned, func(w io.Writer) error {
		return csvfile.WriteDataset(w, res.Dataset)
	})
	if err != nil {
		return art, fmt.Errorf("write cleaned dataset: %w", err)
	}
	art.Cleaned = cleaned

	for _, b := range res.Quarantine {
		if b.Len() == 0 {
			continue
		}
		path := p.QuarantinePath(name, b.Reason)
		err := csvfile.WriteFile(path, func(w io.Writer) error {
			return csvfile.WriteBatch(w, b)
		})
		if err != nil {
			return art, fmt.Errorf("write quarantine %s: %w", b.Reason, err)
		}
		if art.Quarantine == nil {
			art.Quarantine = make(map[string]string)
		}
		art.Quarantine[b.Reason] = path
	}
	return art, nil
}
