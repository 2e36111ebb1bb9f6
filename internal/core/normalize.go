package core

// CoerceDates converts the named columns to dates in place. String cells
// that do not parse become null; the returned map holds, per column, how
// many non-null cells were nulled. Columns absent from ds are ignored.
func CoerceDates(ds *Dataset, columns []string) map[string]int {
	nulled := make(map[string]int, len(columns))

	for _, col := range columns {
		if !ds.HasColumn(col) {
			continue
		}
		count := 0
		for i, old := range ds.Rows {
			v := old.Get(col)
			var next Value
			switch v.Kind {
			case KindNull, KindDate:
				continue
			case KindString:
				s := CleanCell(v.Str)
				if t, ok := ParseDate(s); ok {
					next = Date(t)
				} else {
					next = Null()
					if !IsNullToken(s) {
						count++
					}
				}
			default:
				next = Null()
				count++
			}
			row := old.Clone()
			row[col] = next
			ds.Rows[i] = row
		}
		ds.SetColumnType(col, FieldDate)
		nulled[col] = count
	}

	return nulled
}
