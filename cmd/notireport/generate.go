package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"notireport/internal/app"
	"notireport/internal/operations"
	"notireport/pkg/contracts/domain"
)

type generateOptions struct {
	variant   string
	input     string
	output    string
	month     int
	notifiers []string
	csvDir    string
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a report workbook from an input file",
		Long: `Validates the input, aggregates it for the chosen variant, renders the
charts and writes the workbook. The file lands in the configured output
directory under the variant's default name unless --output is given.

Example:
  notireport generate --variant comparativo-notificador --input notificaciones.xlsx \
      --notifier ARL --notifier COLP --month 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.variant, "variant", "v", "", "report variant id (see 'notireport variants')")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "input workbook (.xlsx) or delimited file (.csv)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output workbook path")
	cmd.Flags().IntVar(&opts.month, "month", 0, "restrict every table to one month (1-12)")
	cmd.Flags().StringArrayVar(&opts.notifiers, "notifier", nil, "notifier to compare; give exactly two")
	cmd.Flags().StringVar(&opts.csvDir, "csv-dir", "", "also export each table as CSV into this directory")
	_ = cmd.MarkFlagRequired("variant")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	ctx := cmd.Context()

	cfg, logger, err := root.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	svc, err := app.NewReportService(cfg, logger, nil)
	if err != nil {
		return err
	}

	in, err := os.Open(opts.input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	req := operations.Request{
		Variant:   domain.VariantID(opts.variant),
		Filename:  filepath.Base(opts.input),
		Input:     in,
		Month:     opts.month,
		Notifiers: opts.notifiers,
	}
	dir := ""
	if opts.output != "" {
		req.OutputName = filepath.Base(opts.output)
		dir = filepath.Dir(opts.output)
	}

	res, err := svc.Generate(ctx, req)
	if err != nil {
		return err
	}

	path, err := svc.Save(ctx, res, dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "report written to %s (%d records, %d skipped rows)\n", path, res.Summary.Records, len(res.Skipped))
	for _, s := range res.Skipped {
		fmt.Fprintf(out, "  skipped line %d: %s\n", s.Line, s.Reason)
	}

	if opts.csvDir != "" {
		paths, err := svc.ExportTables(ctx, res, opts.csvDir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(out, "table exported to %s\n", p)
		}
	}
	return nil
}
