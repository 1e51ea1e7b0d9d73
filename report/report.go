// Package report assembles benchmark results into report records and
// serializes them.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/stats"
	"github.com/weiihann/microbench/suite"
)

// BenchmarkReport is the record for one (benchmark × parameter assignment)
// unit. Failed units carry Error and no PrimaryMetric.
type BenchmarkReport struct {
	Benchmark             string  `json:"benchmark"`
	Mode                  string  `json:"mode"`
	WarmupIterations      int     `json:"warmupIterations"`
	WarmupTime            string  `json:"warmupTime"`
	MeasurementIterations int     `json:"measurementIterations"`
	MeasurementTime       string  `json:"measurementTime"`
	Params                Params  `json:"params,omitempty"`
	PrimaryMetric         *Metric `json:"primaryMetric,omitempty"`
	Error                 string  `json:"error,omitempty"`
}

// Metric is the scored result of a unit, expressed in ScoreUnit.
type Metric struct {
	Score            float64     `json:"score"`
	ScoreError       float64     `json:"scoreError"`
	ScoreConfidence  [2]float64  `json:"scoreConfidence"`
	ScorePercentiles Percentiles `json:"scorePercentiles"`
	ScoreUnit        string      `json:"scoreUnit"`
	RawData          [][]float64 `json:"rawData"`
}

// ID is the unit identifier "name | k1=v1 | k2=v2".
func (r BenchmarkReport) ID() string {
	return suite.UnitID(r.Benchmark, config.Options(r.Params))
}

// Failed reports whether the unit was aborted.
func (r BenchmarkReport) Failed() bool { return r.Error != "" }

// Build scores the measurement samples of u. Samples are ops/s for
// Throughput and ns/op for AverageTime; they are converted to cfg's output
// unit here and nowhere else.
func Build(u suite.Unit, cfg config.RunConfiguration, samples []float64) (BenchmarkReport, error) {
	r := header(u.FullName(), u.Params, cfg)

	scale := Scale(cfg.Mode, cfg.OutputTimeUnit)
	converted := make([]float64, len(samples))
	for i, s := range samples {
		converted[i] = s * scale
	}

	st, err := stats.New(converted)
	if err != nil {
		return BenchmarkReport{}, fmt.Errorf("score %s: %w", u.ID(), err)
	}

	margin, lo, hi := st.ConfidenceInterval()

	r.PrimaryMetric = &Metric{
		Score:            st.Mean(),
		ScoreError:       margin,
		ScoreConfidence:  [2]float64{lo, hi},
		ScorePercentiles: percentiles(st),
		ScoreUnit:        ScoreUnit(cfg.Mode, cfg.OutputTimeUnit),
		RawData:          [][]float64{converted},
	}

	return r, nil
}

// Failure records a unit that was aborted by err.
func Failure(u suite.Unit, cfg config.RunConfiguration, err error) BenchmarkReport {
	return FailureOf(u.FullName(), u.Params, cfg, err)
}

// FailureOf records a failed unit known only by name, such as one whose
// worker process died before writing a report.
func FailureOf(benchmark string, params config.Options, cfg config.RunConfiguration, err error) BenchmarkReport {
	r := header(benchmark, params, cfg)
	r.Error = err.Error()

	return r
}

func header(benchmark string, params config.Options, cfg config.RunConfiguration) BenchmarkReport {
	iterTime := formatTime(cfg.IterationTime, cfg.IterationTimeUnit)

	return BenchmarkReport{
		Benchmark:             benchmark,
		Mode:                  cfg.Mode.Short(),
		WarmupIterations:      cfg.Warmups,
		WarmupTime:            iterTime,
		MeasurementIterations: cfg.Iterations,
		MeasurementTime:       iterTime,
		Params:                Params(params.Clone()),
	}
}

// Scale converts a raw sample (ops/s or ns/op) into the output unit.
func Scale(mode config.Mode, unit config.TimeUnit) float64 {
	if mode == config.AverageTime {
		return 1 / float64(unit.Nanos())
	}

	return float64(unit.Nanos()) / 1e9
}

// ScoreUnit is "ops/<unit>" for Throughput and "<unit>/op" for
// AverageTime.
func ScoreUnit(mode config.Mode, unit config.TimeUnit) string {
	if mode == config.AverageTime {
		return unit.String() + "/op"
	}

	return "ops/" + unit.String()
}

func formatTime(n int64, unit config.TimeUnit) string {
	return strconv.FormatInt(n, 10) + " " + unit.String()
}

func percentiles(st *stats.Statistics) Percentiles {
	ps := st.Percentiles()
	out := make(Percentiles, len(ps))
	for i, p := range ps {
		out[i] = Percentile{Rank: p.Rank, Value: p.Value}
	}

	return out
}

// Percentile is one entry of the percentile table.
type Percentile struct {
	Rank  float64
	Value float64
}

// Percentiles marshals as a JSON object keyed by rank ("0.0", "99.9", ...)
// in ascending rank order.
type Percentiles []Percentile

// RankKey renders a percentile rank as an object key.
func RankKey(rank float64) string {
	s := strconv.FormatFloat(rank, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}

func (p Percentiles) MarshalJSON() ([]byte, error) {
	return marshalObject(len(p), func(i int) (string, any) {
		return RankKey(p[i].Rank), p[i].Value
	})
}

func (p *Percentiles) UnmarshalJSON(data []byte) error {
	out := Percentiles{}

	err := unmarshalObject(data, func(key string, raw json.RawMessage) error {
		rank, err := strconv.ParseFloat(key, 64)
		if err != nil {
			return fmt.Errorf("parse percentile rank %q: %w", key, err)
		}

		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("parse percentile %q: %w", key, err)
		}

		out = append(out, Percentile{Rank: rank, Value: v})

		return nil
	})
	if err != nil {
		return err
	}

	*p = out

	return nil
}

// Params marshals as a JSON object in declaration order.
type Params config.Options

func (p Params) MarshalJSON() ([]byte, error) {
	return marshalObject(len(p), func(i int) (string, any) {
		return p[i].Key, p[i].Value
	})
}

func (p *Params) UnmarshalJSON(data []byte) error {
	var out Params

	err := unmarshalObject(data, func(key string, raw json.RawMessage) error {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("parse parameter %q: %w", key, err)
		}

		out = append(out, config.Option{Key: key, Value: v})

		return nil
	})
	if err != nil {
		return err
	}

	*p = out

	return nil
}

func marshalObject(n int, entry func(i int) (string, any)) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, value := entry(i)

		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}

		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// unmarshalObject walks a JSON object's members in document order.
func unmarshalObject(data []byte, member func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("expected JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		if err := member(key, raw); err != nil {
			return err
		}
	}

	_, err = dec.Token()

	return err
}

// WriteJSON writes reports as an indented JSON array.
func WriteJSON(w io.Writer, reports []BenchmarkReport) error {
	if reports == nil {
		reports = []BenchmarkReport{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(reports)
}

// ReadJSON parses a JSON array written by WriteJSON.
func ReadJSON(r io.Reader) ([]BenchmarkReport, error) {
	var reports []BenchmarkReport
	if err := json.NewDecoder(r).Decode(&reports); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}

	return reports, nil
}
