package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/core/datasets"
)

func newDatasetsCmd(a *app) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List registered datasets and their rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			defs := core.All()
			out := cmd.OutOrStdout()

			if asYAML {
				data, err := datasets.MarshalRuleFile(defs)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tFILE\tRULES\tWEEK CHECK\tDEDUP KEY")
			for _, def := range defs {
				reasons := make([]string, len(def.Rules))
				for i, r := range def.Rules {
					reasons[i] = r.Reason
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n",
					def.Key, def.FileName, orDash(strings.Join(reasons, ",")),
					def.Week != nil, orDash(strings.Join(def.DedupKey, ",")))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print definitions in rule file format")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
