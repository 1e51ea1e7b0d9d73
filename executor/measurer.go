package executor

import (
	"math"
	"time"

	"github.com/weiihann/microbench/blackhole"
	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/platform"
	"github.com/weiihann/microbench/suite"
)

// maxCycles bounds the batch size so a near-zero per-call estimate cannot
// produce an iteration that never ends.
const maxCycles = int64(1) << 40

// IterationResult is the raw measurement of one timed batch.
type IterationResult struct {
	ElapsedNanos int64
	Invocations  int64
}

// Measurer times batches of invocations and adapts the batch size so each
// batch lasts about the target iteration time.
type Measurer struct {
	clock       platform.TimeSource
	bh          blackhole.Blackhole
	targetNanos int64
	cycles      int64
}

// NewMeasurer starts with a batch of one invocation.
func NewMeasurer(clock platform.TimeSource, bh blackhole.Blackhole, target time.Duration) *Measurer {
	return &Measurer{
		clock:       clock,
		bh:          bh,
		targetNanos: int64(target),
		cycles:      1,
	}
}

// Cycles is the batch size the next Measure call will use.
func (m *Measurer) Cycles() int64 { return m.cycles }

// Measure runs b's operation Cycles() times back to back inside one timed
// block, then re-estimates the batch size from the observed per-call cost.
// A panic in the operation propagates to the caller.
func (m *Measurer) Measure(state any, b *suite.Benchmark) IterationResult {
	cycles := m.cycles
	run, bh := b.Run, m.bh

	var block func()
	if b.UsesBlackhole {
		block = func() {
			for i := int64(0); i < cycles; i++ {
				run(state, bh)
			}
		}
	} else {
		block = func() {
			for i := int64(0); i < cycles; i++ {
				bh.Consume(run(state, bh))
			}
		}
	}

	elapsed := m.clock.Measure(block)
	m.cycles = nextCycles(m.targetNanos, elapsed, cycles)

	return IterationResult{ElapsedNanos: elapsed, Invocations: cycles}
}

// nextCycles returns max(1, round(target / (elapsed/cycles))). A zero
// reading means the batch was below clock resolution; double it.
func nextCycles(targetNanos, elapsed, cycles int64) int64 {
	var next int64
	if elapsed <= 0 {
		next = cycles * 2
	} else {
		perCall := float64(elapsed) / float64(cycles)
		estimate := math.Round(float64(targetNanos) / perCall)
		if estimate >= float64(maxCycles) {
			next = maxCycles
		} else {
			next = int64(estimate)
		}
	}

	return min(max(next, 1), maxCycles)
}

// Sample derives the per-iteration value recorded for mode: operations per
// second for Throughput, nanoseconds per operation for AverageTime. Elapsed
// time is clamped to one nanosecond.
func Sample(mode config.Mode, r IterationResult) float64 {
	elapsed := float64(max(r.ElapsedNanos, 1))
	invocations := float64(r.Invocations)

	if mode == config.AverageTime {
		return elapsed / invocations
	}

	return invocations / (elapsed / 1e9)
}
