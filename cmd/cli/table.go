package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"medstat/domain/dataset"
	"medstat/internal/preview"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// printSnapshot prints the visible rows restricted to the included columns
func printSnapshot(w io.Writer, snap preview.Snapshot) {
	fmt.Fprintf(w, "%s: %d of %d rows match, %d of %d columns included\n",
		snap.Label, snap.MatchCount, snap.TotalRows, snap.IncludedCount, len(snap.Columns))

	header := []string{"#"}
	var keep []int
	for i, col := range snap.Columns {
		if col.Included {
			header = append(header, col.Name)
			keep = append(keep, i)
		}
	}

	table := newTable(w, header)
	for _, row := range snap.Rows {
		line := []string{strconv.Itoa(row.Index)}
		for _, i := range keep {
			line = append(line, row.Values[i])
		}
		table.Append(line)
	}
	table.Render()

	if snap.Truncated {
		fmt.Fprintf(w, "(showing the first %d rows)\n", len(snap.Rows))
	}
}

func printColumns(w io.Writer, cols []dataset.Column) {
	table := newTable(w, []string{"Column", "Type", "Missing", "Unique", "Sample"})
	for _, c := range cols {
		sample := ""
		if len(c.SampleValues) > 0 {
			sample = c.SampleValues[0]
		}
		table.Append([]string{c.Name, string(c.Type), strconv.Itoa(c.Missing), strconv.Itoa(c.Unique), sample})
	}
	table.Render()
}

func printSummaries(w io.Writer, sums []preview.ColumnSummary) {
	table := newTable(w, []string{"Column", "Type", "N", "Missing", "Unique", "Mean", "SD", "Min", "Max"})
	for _, s := range sums {
		line := []string{s.Name, string(s.Type), strconv.Itoa(s.Count), strconv.Itoa(s.Missing), strconv.Itoa(s.Unique)}
		if n := s.Numeric; n != nil {
			line = append(line, fmtFloat(n.Mean), fmtFloat(n.StdDev), fmtFloat(n.Min), fmtFloat(n.Max))
		} else {
			line = append(line, "", "", "", "")
		}
		table.Append(line)
	}
	table.Render()
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
