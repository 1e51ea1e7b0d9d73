//go:build !wasip1

package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

// WriteText writes an aligned summary table. The header is bold when w is
// a terminal. Failed units are listed after the table.
func WriteText(w io.Writer, reports []BenchmarkReport, f Formatter) error {
	rows, failed := textRows(reports, f)

	re := lipgloss.NewRenderer(w)
	cell := re.NewStyle().PaddingRight(2)
	head := cell
	if isTerminal(w) {
		head = head.Bold(true)
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(false).
		Headers(textColumns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return head
			case col >= 2 && col <= 4:
				return cell.Align(lipgloss.Right)
			default:
				return cell
			}
		})

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	return writeFailed(w, failed)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
