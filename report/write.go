package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/platform"
)

// Format names a report serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatSCSV Format = "scsv"
	FormatText Format = "text"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatCSV, FormatSCSV, FormatText}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}

	return "", fmt.Errorf("%w: unknown report format %q", config.ErrConfiguration, s)
}

// Extension is the file extension conventionally used for f.
func (f Format) Extension() string {
	switch f {
	case FormatCSV, FormatSCSV:
		return ".csv"
	case FormatText:
		return ".txt"
	default:
		return ".json"
	}
}

// Write serializes reports in format f.
func Write(w io.Writer, f Format, reports []BenchmarkReport) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, reports)
	case FormatCSV:
		return WriteCSV(w, reports)
	case FormatSCSV:
		return WriteSCSV(w, reports)
	case FormatText:
		return WriteText(w, reports, DefaultFormatter)
	default:
		return fmt.Errorf("%w: unknown report format %q", config.ErrConfiguration, f)
	}
}

// WriteFile renders reports and stores them at path through fio.
func WriteFile(fio platform.FileIO, path string, f Format, reports []BenchmarkReport) error {
	var buf bytes.Buffer
	if err := Write(&buf, f, reports); err != nil {
		return err
	}

	if err := fio.WriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}

	return nil
}

// ReadFile loads a JSON report through fio.
func ReadFile(fio platform.FileIO, path string) ([]BenchmarkReport, error) {
	data, err := fio.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}

	reports, err := ReadJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}

	return reports, nil
}

// WriteCSV writes one comma-separated row per report.
func WriteCSV(w io.Writer, reports []BenchmarkReport) error {
	return writeDelimited(w, reports, ',', func(v float64) string {
		return strconv.FormatFloat(v, 'f', 6, 64)
	})
}

// WriteSCSV writes semicolon-separated rows with decimal commas, the
// layout spreadsheet tools expect in comma-decimal locales.
func WriteSCSV(w io.Writer, reports []BenchmarkReport) error {
	return writeDelimited(w, reports, ';', func(v float64) string {
		return formatDecimalComma(v, 6)
	})
}

func writeDelimited(w io.Writer, reports []BenchmarkReport, sep rune, num func(float64) string) error {
	params := paramNames(reports)

	cw := csv.NewWriter(w)
	cw.Comma = sep

	header := []string{"Benchmark", "Mode", "Samples", "Score", "Score Error (99.9%)", "Unit"}
	for _, p := range params {
		header = append(header, "Param: "+p)
	}
	header = append(header, "Error")

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range reports {
		row := []string{r.Benchmark, r.Mode, strconv.Itoa(r.MeasurementIterations), "", "", ""}
		if m := r.PrimaryMetric; m != nil {
			row[3] = num(m.Score)
			row[4] = num(m.ScoreError)
			row[5] = m.ScoreUnit
		}

		for _, p := range params {
			v, _ := config.Options(r.Params).Get(p)
			row = append(row, v)
		}
		row = append(row, r.Error)

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", r.ID(), err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// paramNames collects parameter names across reports in first-seen order.
func paramNames(reports []BenchmarkReport) []string {
	var names []string
	seen := make(map[string]bool)

	for _, r := range reports {
		for _, p := range r.Params {
			if !seen[p.Key] {
				seen[p.Key] = true
				names = append(names, p.Key)
			}
		}
	}

	return names
}

var textColumns = []string{"Benchmark", "Mode", "Cnt", "Score", "Error", "Units"}

// textRows lays out one row per report and collects the failed ones.
func textRows(reports []BenchmarkReport, f Formatter) ([][]string, []BenchmarkReport) {
	rows := make([][]string, 0, len(reports))
	var failed []BenchmarkReport

	for _, r := range reports {
		row := []string{r.ID(), r.Mode, strconv.Itoa(r.MeasurementIterations), "FAILED", "", ""}
		if m := r.PrimaryMetric; m != nil && !r.Failed() {
			row[3] = f.Format(m.Score)
			row[4] = "± " + f.Format(m.ScoreError)
			row[5] = m.ScoreUnit
		} else {
			failed = append(failed, r)
		}
		rows = append(rows, row)
	}

	return rows, failed
}

func writeFailed(w io.Writer, failed []BenchmarkReport) error {
	if len(failed) == 0 {
		return nil
	}

	if _, err := fmt.Fprintln(w, "\nFailed:"); err != nil {
		return err
	}
	for _, r := range failed {
		if _, err := fmt.Fprintf(w, "  %s: %s\n", r.ID(), r.Error); err != nil {
			return err
		}
	}

	return nil
}
