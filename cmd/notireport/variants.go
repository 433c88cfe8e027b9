package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"notireport/internal/app"
)

func newVariantsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List the available report variants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			svc, err := app.NewReportService(cfg, logger, nil)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tINPUTS\tDEFAULT FILE\tDESCRIPTION")
			for _, v := range svc.Variants() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ID, strings.Join(v.Inputs, ","), v.DefaultFilename, v.Description)
			}
			return tw.Flush()
		},
	}
}
