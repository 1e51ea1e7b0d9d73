package report

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// maxPrecision is the most fraction digits humanize.FormatFloat renders.
const maxPrecision = 9

// Formatter renders numbers for human-readable output. Grouping separates
// thousands with ','. When SignificantDigits is positive it overrides
// Precision with a precision derived from each value's magnitude.
type Formatter struct {
	Precision         int
	SignificantDigits int
	Grouping          bool
}

// DefaultFormatter is used by the text report.
var DefaultFormatter = Formatter{Precision: 3, Grouping: true}

// Format renders v.
func (f Formatter) Format(v float64) string {
	precision := f.Precision
	if f.SignificantDigits > 0 {
		precision = significantPrecision(v, f.SignificantDigits)
	}

	return humanize.FormatFloat(pattern(precision, f.Grouping, '.'), v)
}

// FormatNumber renders v with thousands grouping and a fixed number of
// fraction digits: FormatNumber(1200, 4) == "1,200.0000".
func FormatNumber(v float64, precision int) string {
	return Formatter{Precision: precision, Grouping: true}.Format(v)
}

// FormatSignificant renders v grouped, with enough fraction digits to show
// digits significant digits. The integer part is never truncated, so
// FormatSignificant(1234.5, 3) == "1,235".
func FormatSignificant(v float64, digits int) string {
	return Formatter{SignificantDigits: digits, Grouping: true}.Format(v)
}

// formatDecimalComma renders v ungrouped with a ',' decimal separator.
func formatDecimalComma(v float64, precision int) string {
	return humanize.FormatFloat(pattern(precision, false, ','), v)
}

func significantPrecision(v float64, digits int) int {
	v = math.Abs(v)
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return clampPrecision(digits - 1)
	}

	magnitude := int(math.Floor(math.Log10(v)))

	// Rounding to the shown digits may carry into the next power of ten.
	scale := math.Pow10(digits - 1 - magnitude)
	if math.Round(v*scale)/scale >= math.Pow10(magnitude+1) {
		magnitude++
	}

	return clampPrecision(digits - 1 - magnitude)
}

func clampPrecision(p int) int {
	return min(max(p, 0), maxPrecision)
}

// pattern builds a humanize.FormatFloat directive such as "#,###.####".
func pattern(precision int, grouping bool, decimal byte) string {
	precision = clampPrecision(precision)

	var b strings.Builder
	b.WriteByte('#')
	if grouping {
		b.WriteString(",###")
	}
	b.WriteByte(decimal)
	b.WriteString(strings.Repeat("#", precision))

	return b.String()
}
