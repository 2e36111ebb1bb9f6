package core

// dedupe.go resolves duplicates in two passes:
//  1. Exact duplicates across all columns are removed, keeping the first
//     occurrence.
//  2. Rows colliding on the natural key are partial duplicates. Every member
//     of a colliding group is copied to a quarantine batch and left in the
//     dataset, since picking the canonical row needs a human.

// DuplicateGroup is a set of rows sharing the same natural key.
type DuplicateGroup struct {
	KeyColumns []string
	Rows       []int // Indices after exact-duplicate removal, ascending
}

// DedupResult reports what Resolve did.
type DedupResult struct {
	InitialRows    int
	FinalRows      int
	ExactRemoved   int
	Groups         []DuplicateGroup
	Partial        QuarantineBatch // Reason is always ReasonPartialDuplicate
	Skipped        bool            // True when a key column was missing
	MissingColumns []string
}

// PartialCount returns the number of rows involved in key collisions.
func (r DedupResult) PartialCount() int {
	return r.Partial.Len()
}

// Resolve removes exact duplicates from ds in place and reports natural-key
// collisions. A key column absent from ds turns the whole step into a no-op.
// An empty key skips the partial-duplicate pass only.
func Resolve(ds *Dataset, keyColumns []string) (DedupResult, error) {
	if ds == nil {
		return DedupResult{}, ErrNilDataset
	}

	res := DedupResult{
		InitialRows: ds.Len(),
		FinalRows:   ds.Len(),
		Partial:     QuarantineBatch{Source: ds.Name, Reason: ReasonPartialDuplicate},
	}

	if missing := ds.MissingColumns(keyColumns...); len(missing) > 0 {
		res.Skipped = true
		res.MissingColumns = missing
		return res, nil
	}

	res.ExactRemoved = removeExactDuplicates(ds)
	res.FinalRows = ds.Len()

	if len(keyColumns) == 0 {
		return res, nil
	}

	res.Groups = findKeyCollisions(ds, keyColumns)

	var members []int
	inGroup := make(map[int]bool)
	for _, g := range res.Groups {
		for _, i := range g.Rows {
			inGroup[i] = true
		}
	}
	for i := 0; i < ds.Len(); i++ {
		if inGroup[i] {
			members = append(members, i)
		}
	}
	if len(members) > 0 {
		res.Partial = newQuarantineBatch(ds, ReasonPartialDuplicate, members)
	}

	return res, nil
}

// CountExactDuplicates returns how many rows of ds repeat an earlier row
// across all columns. ds is not modified.
func CountExactDuplicates(ds *Dataset) int {
	seen := make(map[string]bool, ds.Len())
	dups := 0
	for i := range ds.Rows {
		k := ds.rowKey(i, nil)
		if seen[k] {
			dups++
			continue
		}
		seen[k] = true
	}
	return dups
}

// removeExactDuplicates drops every row identical to an earlier one.
// Retained rows keep their relative order.
func removeExactDuplicates(ds *Dataset) int {
	seen := make(map[string]bool, ds.Len())
	kept := ds.Rows[:0:0]
	for i := range ds.Rows {
		k := ds.rowKey(i, nil)
		if seen[k] {
			continue
		}
		seen[k] = true
		kept = append(kept, ds.Rows[i])
	}
	removed := ds.Len() - len(kept)
	ds.Rows = kept
	return removed
}

// findKeyCollisions groups rows by keyColumns and returns groups of two or
// more, ordered by first appearance.
func findKeyCollisions(ds *Dataset, keyColumns []string) []DuplicateGroup {
	byKey := make(map[string][]int)
	var order []string
	for i := range ds.Rows {
		k := ds.rowKey(i, keyColumns)
		if _, ok := byKey[k]; !ok {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], i)
	}

	var groups []DuplicateGroup
	for _, k := range order {
		rows := byKey[k]
		if len(rows) < 2 {
			continue
		}
		key := make([]string, len(keyColumns))
		copy(key, keyColumns)
		groups = append(groups, DuplicateGroup{KeyColumns: key, Rows: rows})
	}
	return groups
}
