package core

// Stable reasons for quarantine batches that do not come from a Rule.
const (
	ReasonPartialDuplicate = "partial_duplicate"
	ReasonWeekMismatch     = "week_mismatch"
)

// QuarantineBatch holds rows the engine refused to repair automatically.
// Batches are write-once: rows are copied when the batch is built and the
// batch is never merged back into the cleaned dataset.
type QuarantineBatch struct {
	Source     string   // Dataset name
	Reason     string   // Machine-readable reason, e.g. "deaths_vs_cases"
	Columns    []Column // Column layout at the time of quarantine
	Rows       []Row    // Copies of the quarantined rows, in dataset order
	RowIndices []int    // Indices in the dataset at the time of quarantine
}

// Len returns the number of quarantined rows.
func (b QuarantineBatch) Len() int {
	return len(b.Rows)
}

// ColumnNames returns the batch column names.
func (b QuarantineBatch) ColumnNames() []string {
	names := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		names[i] = c.Name
	}
	return names
}

// newQuarantineBatch snapshots the given rows of ds.
func newQuarantineBatch(ds *Dataset, reason string, indices []int) QuarantineBatch {
	batch := QuarantineBatch{
		Source:     ds.Name,
		Reason:     reason,
		Columns:    make([]Column, len(ds.Columns)),
		Rows:       make([]Row, 0, len(indices)),
		RowIndices: make([]int, len(indices)),
	}
	copy(batch.Columns, ds.Columns)
	copy(batch.RowIndices, indices)
	for _, i := range indices {
		batch.Rows = append(batch.Rows, ds.Rows[i].Clone())
	}
	return batch
}
