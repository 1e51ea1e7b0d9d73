// Package suites holds the benchmark suites built into the worker binary,
// together with the deterministic dataset generator they share.
package suites

import (
	"fmt"
	"math"
	mrand "math/rand"
	"slices"
)

// Distribution shapes generated integer values.
type Distribution string

const (
	Uniform     Distribution = "uniform"
	Exponential Distribution = "exponential"
	PowerLaw    Distribution = "power-law"
	Sorted      Distribution = "sorted"
	Reversed    Distribution = "reversed"
)

// Distributions lists every supported distribution.
var Distributions = []Distribution{Uniform, Exponential, PowerLaw, Sorted, Reversed}

// ParseDistribution validates a distribution name.
func ParseDistribution(s string) (Distribution, error) {
	for _, d := range Distributions {
		if string(d) == s {
			return d, nil
		}
	}

	return "", fmt.Errorf("unknown distribution %q", s)
}

// DatasetConfig controls dataset generation.
type DatasetConfig struct {
	Size         int
	Min          int64
	Max          int64
	Distribution Distribution
	Seed         int64
	// RecordSize is the average payload length produced by Records.
	RecordSize int
}

// Generator produces deterministic datasets from a DatasetConfig.
type Generator struct {
	cfg DatasetConfig
	rng *mrand.Rand
}

// NewGenerator creates a Generator from the given DatasetConfig.
func NewGenerator(cfg DatasetConfig) *Generator {
	return &Generator{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

// Ints returns Size values in [Min, Max] shaped by the configured
// distribution.
func (g *Generator) Ints() []int64 {
	out := make([]int64, g.cfg.Size)
	lo, hi := g.cfg.Min, max(g.cfg.Max, g.cfg.Min)
	span := float64(hi - lo)

	switch g.cfg.Distribution {
	case PowerLaw:
		alpha := 1.5
		for i := range out {
			u := g.rng.Float64()
			v := 1 / math.Pow(1-u, 1/alpha)
			out[i] = lo + int64(math.Min(v-1, span))
		}

	case Exponential:
		lambda := math.Log(2) / math.Max(span/4, 1)
		for i := range out {
			u := g.rng.Float64()
			v := -math.Log(1-u) / lambda
			out[i] = lo + int64(math.Min(v, span))
		}

	default:
		for i := range out {
			out[i] = lo + g.rng.Int63n(hi-lo+1)
		}
	}

	switch g.cfg.Distribution {
	case Sorted:
		slices.Sort(out)
	case Reversed:
		slices.Sort(out)
		slices.Reverse(out)
	}

	return out
}

// Records returns Size random payloads whose lengths fall in
// [RecordSize, 2*RecordSize).
func (g *Generator) Records() [][]byte {
	out := make([][]byte, g.cfg.Size)
	for i := range out {
		out[i] = g.payload()
	}

	return out
}

// Payload returns one random payload of exactly n bytes.
func (g *Generator) Payload(n int) []byte {
	buf := make([]byte, n)
	g.rng.Read(buf)

	return buf
}

func (g *Generator) payload() []byte {
	size := g.cfg.RecordSize
	if size > 0 {
		size += g.rng.Intn(g.cfg.RecordSize)
	}

	return g.Payload(size)
}
