package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/microbench/blackhole"
	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/platform"
	"github.com/weiihann/microbench/suite"
)

func testUnit(params config.Options) suite.Unit {
	d := &suite.Descriptor{
		Name: "suites.Sorting",
		New:  func() any { return new(int) },
		Benchmarks: []suite.Benchmark{{
			Name: "ints",
			Run:  func(any, blackhole.Blackhole) any { return nil },
		}},
	}

	return suite.Unit{Suite: d, Benchmark: &d.Benchmarks[0], Params: params}
}

func testConfig(mode config.Mode, unit config.TimeUnit) config.RunConfiguration {
	return config.RunConfiguration{
		Iterations:        3,
		Warmups:           1,
		IterationTime:     100,
		IterationTimeUnit: config.Milliseconds,
		OutputTimeUnit:    unit,
		Mode:              mode,
	}
}

func TestBuildThroughput(t *testing.T) {
	u := testUnit(config.Options{{Key: "size", Value: "10"}, {Key: "dist", Value: "uniform"}})

	r, err := Build(u, testConfig(config.Throughput, config.Milliseconds), []float64{3e6, 1e6, 2e6})
	require.NoError(t, err)

	assert.Equal(t, "suites.Sorting.ints", r.Benchmark)
	assert.Equal(t, "suites.Sorting.ints | size=10 | dist=uniform", r.ID())
	assert.Equal(t, "thrpt", r.Mode)
	assert.Equal(t, "100 ms", r.WarmupTime)
	assert.Equal(t, "100 ms", r.MeasurementTime)
	assert.Equal(t, 1, r.WarmupIterations)
	assert.Equal(t, 3, r.MeasurementIterations)
	assert.False(t, r.Failed())

	m := r.PrimaryMetric
	require.NotNil(t, m)
	assert.Equal(t, "ops/ms", m.ScoreUnit)
	assert.InDelta(t, 2000, m.Score, 1e-9)
	assert.Greater(t, m.ScoreError, 0.0)
	assert.InDelta(t, m.Score-m.ScoreError, m.ScoreConfidence[0], 1e-9)
	assert.InDelta(t, m.Score+m.ScoreError, m.ScoreConfidence[1], 1e-9)

	require.Len(t, m.RawData, 1)
	require.Len(t, m.RawData[0], 3)
	assert.InDelta(t, 3000, m.RawData[0][0], 1e-9)

	require.Len(t, m.ScorePercentiles, 9)
	assert.InDelta(t, 1000, m.ScorePercentiles[0].Value, 1e-9)
	assert.InDelta(t, 3000, m.ScorePercentiles[8].Value, 1e-9)
}

func TestBuildAverageTime(t *testing.T) {
	r, err := Build(testUnit(nil), testConfig(config.AverageTime, config.Microseconds), []float64{1000, 3000})
	require.NoError(t, err)

	assert.Equal(t, "avgt", r.Mode)
	assert.Equal(t, "us/op", r.PrimaryMetric.ScoreUnit)
	assert.InDelta(t, 2, r.PrimaryMetric.Score, 1e-12)
	assert.Equal(t, "suites.Sorting.ints", r.ID())
}

func TestBuildSingleSample(t *testing.T) {
	r, err := Build(testUnit(nil), testConfig(config.AverageTime, config.Nanoseconds), []float64{42})
	require.NoError(t, err)

	assert.Equal(t, 42.0, r.PrimaryMetric.Score)
	assert.Equal(t, 0.0, r.PrimaryMetric.ScoreError)
	assert.Equal(t, [2]float64{42, 42}, r.PrimaryMetric.ScoreConfidence)
}

func TestBuildRejectsNaN(t *testing.T) {
	_, err := Build(testUnit(nil), testConfig(config.Throughput, config.Seconds), []float64{1, math.NaN()})
	assert.Error(t, err)
}

func TestScale(t *testing.T) {
	tests := []struct {
		mode config.Mode
		unit config.TimeUnit
		want float64
	}{
		{config.Throughput, config.Seconds, 1},
		{config.Throughput, config.Microseconds, 1e-6},
		{config.Throughput, config.Minutes, 60},
		{config.AverageTime, config.Nanoseconds, 1},
		{config.AverageTime, config.Milliseconds, 1e-6},
	}

	for _, tt := range tests {
		got := Scale(tt.mode, tt.unit)
		if diff := got - tt.want; diff > 1e-15 || diff < -1e-15 {
			t.Errorf("Scale(%s, %s) = %g, want %g", tt.mode, tt.unit, got, tt.want)
		}
	}
}

func TestJSONLayout(t *testing.T) {
	u := testUnit(config.Options{{Key: "size", Value: "10"}, {Key: "dist", Value: "exp"}})

	ok, err := Build(u, testConfig(config.Throughput, config.Seconds), []float64{1, 2, 3})
	require.NoError(t, err)

	failed := Failure(testUnit(nil), testConfig(config.Throughput, config.Seconds), errors.New("boom"))

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []BenchmarkReport{ok, failed}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "[\n  {"), out)
	assert.Contains(t, out, `"params": {`)
	assert.Less(t, strings.Index(out, `"size": "10"`), strings.Index(out, `"dist": "exp"`))
	assert.Contains(t, out, `"0.0": 1`)
	assert.Contains(t, out, `"99.99": 3`)
	assert.Contains(t, out, `"100.0": 3`)
	assert.Contains(t, out, `"scoreUnit": "ops/s"`)
	assert.Contains(t, out, `"error": "boom"`)
	assert.Equal(t, 1, strings.Count(out, `"primaryMetric"`))
	assert.Equal(t, 1, strings.Count(out, `"params"`))
}

func TestJSONReadBack(t *testing.T) {
	u := testUnit(config.Options{{Key: "size", Value: "10"}, {Key: "dist", Value: "exp"}})
	want, err := Build(u, testConfig(config.AverageTime, config.Nanoseconds), []float64{5, 7, 9, 11})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []BenchmarkReport{want}))

	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want, got[0])
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestReadJSONInvalid(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`[{"params": ["not", "an", "object"]}]`))
	assert.Error(t, err)
}

func sampleReports(t *testing.T) []BenchmarkReport {
	t.Helper()

	ok, err := Build(
		testUnit(config.Options{{Key: "size", Value: "1000"}}),
		testConfig(config.Throughput, config.Milliseconds),
		[]float64{2e6, 2e6, 2e6},
	)
	require.NoError(t, err)

	failed := Failure(
		testUnit(config.Options{{Key: "size", Value: "0"}}),
		testConfig(config.Throughput, config.Milliseconds),
		errors.New("trial setup failed"),
	)

	return []BenchmarkReport{ok, failed}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReports(t)))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"Benchmark", "Mode", "Samples", "Score", "Score Error (99.9%)", "Unit", "Param: size", "Error",
	}, rows[0])
	assert.Equal(t, []string{
		"suites.Sorting.ints", "thrpt", "3", "2000.000000", "0.000000", "ops/ms", "1000", "",
	}, rows[1])
	assert.Equal(t, "trial setup failed", rows[2][7])
	assert.Empty(t, rows[2][3])
}

func TestWriteSCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSCSV(&buf, sampleReports(t)))

	r := csv.NewReader(&buf)
	r.Comma = ';'

	rows, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "2000,000000", rows[1][3])
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReports(t), DefaultFormatter))
	out := buf.String()

	for _, want := range []string{
		"Benchmark", "Score",
		"suites.Sorting.ints | size=1000", "2,000.000", "ops/ms",
		"FAILED", "Failed:", "size=0: trial setup failed",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "no styling when not a terminal")
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats {
		got, err := ParseFormat(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestWriteFileReadFile(t *testing.T) {
	fio := platform.OSFiles{}
	path := filepath.Join(t.TempDir(), "nested", "native.json")
	reports := sampleReports(t)

	require.NoError(t, WriteFile(fio, path, FormatJSON, reports))

	got, err := ReadFile(fio, path)
	require.NoError(t, err)
	assert.Equal(t, reports, got)

	_, err = ReadFile(fio, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
