package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"medstat/adapters/excel"
	"medstat/internal/preview"
)

func newPreviewCmd() *cobra.Command {
	var (
		search   string
		fromRow  string
		toRow    string
		drop     []string
		out      string
		limit    int
		sheet    string
		maxRows  int
		describe bool
	)

	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Preview and filter a local CSV or Excel file",
		Long: `Open a local file in the preview store, apply a row filter and column
selection, and print the visible rows. With --out the confirmed selection is
written to a CSV or XLSX file.

Example: medstat-cli preview trial.xlsx --search placebo --from 1 --to 50 --drop patient_id --out placebo.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := excel.DefaultReaderConfig()
			cfg.Sheet = sheet
			cfg.MaxRows = maxRows
			ds, err := excel.NewDataReader(args[0]).WithConfig(cfg).ReadDataset()
			if err != nil {
				return err
			}

			store := preview.New()
			store.Open(ds, filepath.Base(args[0]), nil)
			store.SetFilter(search, fromRow, toRow)
			for _, col := range drop {
				if _, ok := ds.Column(col); !ok {
					return fmt.Errorf("column %q not found in %s", col, args[0])
				}
				if included(store, col) {
					store.ToggleColumn(col)
				}
			}

			w := cmd.OutOrStdout()
			printSnapshot(w, store.Snapshot(limit))

			if describe {
				result, _ := store.Result()
				fmt.Fprintln(w)
				printSummaries(w, preview.Summarize(result))
			}

			if out == "" {
				return nil
			}
			result, _ := store.ConfirmSelection()
			if err := excel.WriteFile(out, result); err != nil {
				return err
			}
			fmt.Fprintf(w, "wrote %d rows x %d columns to %s\n", result.RowCount(), result.ColumnCount(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive text every shown row must contain")
	cmd.Flags().StringVar(&fromRow, "from", "", "First row to keep (1-based)")
	cmd.Flags().StringVar(&toRow, "to", "", "Last row to keep (1-based)")
	cmd.Flags().StringSliceVar(&drop, "drop", nil, "Columns to exclude")
	cmd.Flags().StringVar(&out, "out", "", "Write the selection to this .csv or .xlsx file")
	cmd.Flags().IntVar(&limit, "limit", 20, "Rows to print")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read (default: first)")
	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "Stop reading after this many rows (0 = all)")
	cmd.Flags().BoolVar(&describe, "describe", false, "Print per-column summaries of the selection")
	return cmd
}

func included(store *preview.Store, name string) bool {
	for _, c := range store.Columns() {
		if c.Name == name {
			return c.Included
		}
	}
	return false
}
