//go:build wasip1

package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteText writes an aligned summary table without terminal styling.
// Failed units are listed after the table.
func WriteText(w io.Writer, reports []BenchmarkReport, f Formatter) error {
	rows, failed := textRows(reports, f)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(textColumns, "\t")+"\t")
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	return writeFailed(w, failed)
}
