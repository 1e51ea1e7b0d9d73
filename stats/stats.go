// Package stats summarizes per-iteration benchmark samples: mean, standard
// deviation, interpolated quantiles and a Student-t confidence interval.
package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrInvalidArgument is matched by errors caused by misuse of this package.
// They indicate a bug in the caller, not bad user input.
var ErrInvalidArgument = errors.New("invalid statistics argument")

// InvalidQuantileError reports a quantile outside [0, 1] or NaN.
type InvalidQuantileError struct {
	Q float64
}

func (e *InvalidQuantileError) Error() string {
	return fmt.Sprintf("quantile %v is not in [0, 1]", e.Q)
}

func (e *InvalidQuantileError) Unwrap() error { return ErrInvalidArgument }

// InvalidArgumentError reports a sample the engine cannot use.
type InvalidArgumentError struct {
	Index int
	Value float64
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("sample %d is not finite: %v", e.Index, e.Value)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// PercentileRanks are the percentiles every report carries.
var PercentileRanks = []float64{0, 25, 50, 75, 90, 99, 99.9, 99.99, 100}

// Percentile pairs a rank in percent with its value.
type Percentile struct {
	Rank  float64
	Value float64
}

// Statistics holds a sorted copy of a sample set. The zero value, and the
// result of New on an empty slice, is a degenerate set whose every summary
// is zero.
type Statistics struct {
	values []float64
}

// New copies and sorts samples. Samples must be finite.
func New(samples []float64) (*Statistics, error) {
	for i, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &InvalidArgumentError{Index: i, Value: v}
		}
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	return &Statistics{values: sorted}, nil
}

// N is the number of samples.
func (s *Statistics) N() int { return len(s.values) }

// Values returns a sorted copy of the samples.
func (s *Statistics) Values() []float64 { return slices.Clone(s.values) }

func (s *Statistics) Min() float64 {
	if len(s.values) == 0 {
		return 0
	}

	return s.values[0]
}

func (s *Statistics) Max() float64 {
	if len(s.values) == 0 {
		return 0
	}

	return s.values[len(s.values)-1]
}

// Quantile returns the q-quantile using position p = q*(n+1) with linear
// interpolation between neighbouring order statistics. Quantile(0) is the
// minimum and Quantile(1) the maximum.
func (s *Statistics) Quantile(q float64) (float64, error) {
	if math.IsNaN(q) || q < 0 || q > 1 {
		return 0, &InvalidQuantileError{Q: q}
	}

	n := len(s.values)
	if n == 0 {
		return 0, nil
	}

	p := q * float64(n+1)
	switch {
	case p < 1:
		return s.values[0], nil
	case p >= float64(n):
		return s.values[n-1], nil
	}

	lower := math.Floor(p)
	frac := p - lower
	lo := s.values[int(lower)-1]
	hi := s.values[int(lower)]

	return lo + frac*(hi-lo), nil
}

// Mean is the arithmetic mean.
func (s *Statistics) Mean() float64 {
	if len(s.values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range s.values {
		sum += v
	}

	return sum / float64(len(s.values))
}

// StandardDeviation is the sample standard deviation computed in two
// passes. It is zero for fewer than two samples.
func (s *Statistics) StandardDeviation() float64 {
	n := len(s.values)
	if n <= 1 {
		return 0
	}

	mean := s.Mean()

	var sumSq float64
	for _, v := range s.values {
		d := v - mean
		sumSq += d * d
	}

	return math.Sqrt(sumSq / float64(n-1))
}

// Percentiles evaluates every rank in PercentileRanks.
func (s *Statistics) Percentiles() []Percentile {
	out := make([]Percentile, len(PercentileRanks))
	for i, rank := range PercentileRanks {
		// Ranks are constants within [0, 100]; Quantile cannot fail.
		v, _ := s.Quantile(rank / 100)
		out[i] = Percentile{Rank: rank, Value: v}
	}

	return out
}

// ConfidenceLevel of the interval returned by ConfidenceInterval.
const ConfidenceLevel = 0.999

// ConfidenceInterval returns the error margin around the mean and the
// interval [mean-err, mean+err] at ConfidenceLevel.
func (s *Statistics) ConfidenceInterval() (margin float64, lo float64, hi float64) {
	n := len(s.values)
	mean := s.Mean()
	if n <= 1 {
		return 0, mean, mean
	}

	stdErr := s.StandardDeviation() / math.Sqrt(float64(n))
	margin = tCritical(n-1) * stdErr

	return margin, mean - margin, mean + margin
}
