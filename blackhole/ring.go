package blackhole

import (
	"fmt"
	"io"
	"math"
)

// Slot count found empirically.
const ringSize = 13

// Ring stores every consumed value into the next slot of a fixed circular
// buffer. It needs no volatile semantics: the buffer is heap state that
// Flush can observe, so stores into it cannot be elided.
type Ring struct {
	refs [ringSize]any
	ints [ringSize]int64
	ri   int
	ii   int
}

func NewRing() *Ring {
	return &Ring{}
}

//go:noinline
func (r *Ring) Consume(v any) {
	r.refs[r.ri] = v
	r.ri++
	if r.ri == ringSize {
		r.ri = 0
	}
}

//go:noinline
func (r *Ring) ConsumeInt64(v int64) {
	r.ints[r.ii] = v
	r.ii++
	if r.ii == ringSize {
		r.ii = 0
	}
}

func (r *Ring) ConsumeBool(v bool) {
	if v {
		r.ConsumeInt64(1)
		return
	}
	r.ConsumeInt64(0)
}

func (r *Ring) ConsumeRune(v rune)   { r.ConsumeInt64(int64(v)) }
func (r *Ring) ConsumeInt8(v int8)   { r.ConsumeInt64(int64(v)) }
func (r *Ring) ConsumeInt16(v int16) { r.ConsumeInt64(int64(v)) }
func (r *Ring) ConsumeInt32(v int32) { r.ConsumeInt64(int64(v)) }

func (r *Ring) ConsumeFloat32(v float32) {
	r.ConsumeInt64(int64(math.Float32bits(v)))
}

func (r *Ring) ConsumeFloat64(v float64) {
	r.ConsumeInt64(int64(math.Float64bits(v)))
}

// Flush writes a checksum of the buffer to w. It exists for diagnostics and
// must not be called while measuring.
func (r *Ring) Flush(w io.Writer) error {
	var sum int64
	for _, v := range r.ints {
		sum += v
	}

	refs := 0
	for _, v := range r.refs {
		if v != nil {
			refs++
		}
	}

	_, err := fmt.Fprintf(w, "blackhole: sum=%d refs=%d\n", sum, refs)

	return err
}
