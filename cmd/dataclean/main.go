// Command dataclean cleans raw public-health CSV datasets: it repairs or
// quarantines logically inconsistent rows, resolves duplicates and writes
// cleaned files, quarantine files and a run report.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
