package csvfile

import (
	"strings"

	"github.com/JonMunkholm/dataclean/internal/core"
)

// inferType picks the narrowest type every non-null cell of column j
// converts to: numeric, then bool, else text. Dates are not inferred; the
// cleaner coerces the date columns its dataset definition names.
func inferType(records [][]string, j int) core.FieldType {
	numeric, boolean, seen := true, true, false

	for _, rec := range records {
		if j >= len(rec) {
			continue
		}
		s := core.CleanCell(rec[j])
		if core.IsNullToken(s) {
			continue
		}
		seen = true
		if numeric {
			if _, ok := core.ParseNumber(s); !ok {
				numeric = false
			}
		}
		if boolean && !isBoolLiteral(s) {
			boolean = false
		}
		if !numeric && !boolean {
			return core.FieldText
		}
	}

	switch {
	case !seen:
		return core.FieldText
	case numeric:
		return core.FieldNumeric
	case boolean:
		return core.FieldBool
	}
	return core.FieldText
}

// isBoolLiteral accepts only spelled-out booleans. ParseBool also takes
// 1/0 and y/n, which would turn flag-like text columns into bools.
func isBoolLiteral(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	}
	return false
}
