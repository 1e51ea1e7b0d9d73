// Package blackhole provides sinks that keep benchmark results live so the
// compiler cannot discard the computation that produced them.
package blackhole

import "fmt"

// Blackhole consumes values of every primitive kind and opaque references.
// A Blackhole is owned by one executor and is not safe for concurrent use.
type Blackhole interface {
	Consume(v any)
	ConsumeBool(v bool)
	ConsumeRune(v rune)
	ConsumeInt8(v int8)
	ConsumeInt16(v int16)
	ConsumeInt32(v int32)
	ConsumeInt64(v int64)
	ConsumeFloat32(v float32)
	ConsumeFloat64(v float64)
}

// Strategy names.
const (
	StrategyRing  = "ring"
	StrategyGuard = "guard"
)

// New returns a blackhole for the named strategy. An empty name selects the
// ring strategy.
func New(strategy string) (Blackhole, error) {
	switch strategy {
	case "", StrategyRing:
		return NewRing(), nil
	case StrategyGuard:
		return NewGuard(), nil
	default:
		return nil, fmt.Errorf("unknown blackhole strategy %q", strategy)
	}
}
