package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataclean/internal/csvfile"
	"github.com/JonMunkholm/dataclean/internal/pipeline"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		keys     []string
		dataDir  string
		encoding string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Clean the raw datasets in the data directory",
		Long: `The run command cleans every registered dataset whose input file exists in the
data directory, writes cleaned_<dataset>.csv, one <dataset>_<reason>.csv per
quarantine reason and a cleaning_report_<timestamp>.log, and records each run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var enc csvfile.Encoding
			if encoding != "" {
				var err error
				if enc, err = csvfile.ParseEncoding(encoding); err != nil {
					return err
				}
			}
			if len(keys) == 0 {
				keys = a.cfg.Cleaning.Datasets
			}
			if dataDir == "" {
				dataDir = a.cfg.Cleaning.DataDir
			}

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			proc := pipeline.NewProcessor(a.settings(), st, a.cfg.Cleaning.MemoryThresholdMB, slog.Default())
			runner := pipeline.NewRunner(pipeline.RunnerConfig{
				DataDir:  dataDir,
				Paths:    a.paths(),
				Datasets: keys,
				Workers:  a.cfg.Pipeline.Workers,
				Timeout:  a.cfg.Pipeline.Timeout,
				Encoding: enc,
			}, proc, slog.Default())

			report, err := runner.Run(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, rec := range report.Runs {
				fmt.Fprintf(out, "%-24s %-9s %6d -> %-6d quarantined %-5d run %s\n",
					rec.Dataset, rec.Status, rec.InitialRows, rec.FinalRows, rec.QuarantinedRows, rec.ID)
			}
			for _, key := range report.Missing {
				fmt.Fprintf(out, "%-24s skipped (input file not found)\n", key)
			}
			if !report.Success() {
				return fmt.Errorf("pipeline finished with %d error(s)", len(report.Errors))
			}
			fmt.Fprintf(out, "Data cleaning pipeline completed in %s\n", report.Duration().Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&keys, "dataset", "d", nil, "Dataset key to clean (repeatable; default all or $CLEAN_DATASETS)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory holding the raw CSVs (default $CLEAN_DATA_DIR)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "Force the input encoding: utf-8, utf-8-sig, utf-16le, utf-16be, windows-1252, latin-1")
	return cmd
}
