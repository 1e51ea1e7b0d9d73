package platform

import "time"

// TimeSource measures the elapsed nanoseconds of a block of work. Calls are
// synchronous: Measure returns only after block has returned.
type TimeSource interface {
	Measure(block func()) int64
}

// MonotonicClock reads Go's monotonic clock around the block.
type MonotonicClock struct{}

func (MonotonicClock) Measure(block func()) int64 {
	start := time.Now()
	block()

	return int64(time.Since(start))
}

// Bridge runs block on behalf of the caller and returns its elapsed
// nanoseconds, as measured by a host outside the Go runtime.
type Bridge func(block func()) int64

// BridgeClock delegates timing to a host-provided bridge.
type BridgeClock struct {
	bridge Bridge
}

// NewBridgeClock falls back to MonotonicClock when bridge is nil.
func NewBridgeClock(bridge Bridge) BridgeClock {
	if bridge == nil {
		bridge = MonotonicClock{}.Measure
	}

	return BridgeClock{bridge: bridge}
}

func (c BridgeClock) Measure(block func()) int64 {
	elapsed := c.bridge(block)
	if elapsed < 0 {
		return 0
	}

	return elapsed
}
