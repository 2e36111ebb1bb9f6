package profile

import (
	"log/slog"
	"runtime"

	"github.com/JonMunkholm/dataclean/internal/core"
)

// Per-cell size estimates in bytes. Text cells pay a fixed object overhead
// on top of their content.
const (
	fixedCellBytes = 8
	boolCellBytes  = 1
	textCellBytes  = 49
	nullCellBytes  = 16
	indexBytes     = 128
)

// EstimateBytes approximates the in-memory size of ds the way a columnar
// dataframe would account it.
func EstimateBytes(ds *core.Dataset) int64 {
	total := int64(indexBytes)
	for _, c := range ds.Columns {
		for _, row := range ds.Rows {
			v := row.Get(c.Name)
			switch v.Kind {
			case core.KindNumber, core.KindDate:
				total += fixedCellBytes
			case core.KindBool:
				total += boolCellBytes
			case core.KindString:
				total += int64(textCellBytes + len(v.Str))
			default:
				total += nullCellBytes
			}
		}
	}
	return total
}

// EstimateMB is EstimateBytes in mebibytes.
func EstimateMB(ds *core.Dataset) float64 {
	return float64(EstimateBytes(ds)) / (1024 * 1024)
}

// MemoryMonitor logs dataset memory use at pipeline checkpoints and warns
// above a threshold.
type MemoryMonitor struct {
	ThresholdMB float64
	logger      *slog.Logger
}

// NewMemoryMonitor creates a monitor. A nil logger uses slog.Default().
func NewMemoryMonitor(thresholdMB float64, logger *slog.Logger) *MemoryMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryMonitor{ThresholdMB: thresholdMB, logger: logger}
}

// Check records the footprint of ds at stage and reports whether it is
// above the threshold. A non-positive threshold never warns.
func (m *MemoryMonitor) Check(ds *core.Dataset, stage string) (mb float64, high bool) {
	mb = EstimateMB(ds)

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m.logger.Info("memory usage",
		"dataset", ds.Name,
		"stage", stage,
		"dataset_mb", round2(mb),
		"heap_mb", round2(float64(ms.HeapAlloc)/(1024*1024)),
	)

	if m.ThresholdMB > 0 && mb > m.ThresholdMB {
		m.logger.Warn("high memory usage detected",
			"dataset", ds.Name,
			"stage", stage,
			"dataset_mb", round2(mb),
			"threshold_mb", m.ThresholdMB,
		)
		return mb, true
	}
	return mb, false
}
