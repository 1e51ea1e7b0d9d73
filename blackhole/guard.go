package blackhole

import (
	"math"
	"math/rand/v2"
	"sync/atomic"
)

const maxRefMask = 1<<30 - 1

// Guard implements the branch-guard strategy. Every consume compares the
// value against a pair v0, v1 with v1 == v0+1; no value can equal both, so
// the guarded branch never runs. v0 is read atomically on each call, which
// keeps the compiler from treating the pair as constant and folding the
// comparison away.
//
// This depends on the Go compiler not reasoning across atomic loads. That is
// current compiler behaviour, not a language guarantee; prefer Ring when in
// doubt.
type Guard struct {
	v0 atomic.Int64
	v1 int64

	f0 atomic.Uint64
	f1 float64

	// refMask gates the rare spill of references.
	refMask uint64
	lcg     uint64
	ref     any

	spill *Ring
}

func NewGuard() *Guard {
	g := &Guard{
		refMask: 1,
		lcg:     rand.Uint64(),
		spill:   NewRing(),
	}
	g.refresh()

	return g
}

func (g *Guard) refresh() {
	v := rand.Int64()
	g.v0.Store(v)
	g.v1 = v + 1

	f := rand.Float64()
	g.f0.Store(math.Float64bits(f))
	g.f1 = f + 1
}

//go:noinline
func (g *Guard) ConsumeInt64(v int64) {
	if v == g.v0.Load() && v == g.v1 {
		g.spill.ConsumeInt64(v)
		g.refresh()
	}
}

//go:noinline
func (g *Guard) ConsumeFloat64(v float64) {
	if v == math.Float64frombits(g.f0.Load()) && v == g.f1 {
		g.spill.ConsumeFloat64(v)
		g.refresh()
	}
}

// Consume stores v on a pseudo-random schedule whose mask widens over time,
// so reference stores stay rare on the hot path.
//
//go:noinline
func (g *Guard) Consume(v any) {
	g.lcg = g.lcg*6364136223846793005 + 1442695040888963407
	if g.lcg&g.refMask == 0 {
		g.ref = v
		if g.refMask < maxRefMask {
			g.refMask = (g.refMask << 1) | 1
		}
	}
}

func (g *Guard) ConsumeBool(v bool) {
	if v {
		g.ConsumeInt64(1)
		return
	}
	g.ConsumeInt64(0)
}

func (g *Guard) ConsumeRune(v rune)       { g.ConsumeInt64(int64(v)) }
func (g *Guard) ConsumeInt8(v int8)       { g.ConsumeInt64(int64(v)) }
func (g *Guard) ConsumeInt16(v int16)     { g.ConsumeInt64(int64(v)) }
func (g *Guard) ConsumeInt32(v int32)     { g.ConsumeInt64(int64(v)) }
func (g *Guard) ConsumeFloat32(v float32) { g.ConsumeFloat64(float64(v)) }
