package executor

import (
	"strconv"

	"github.com/weiihann/microbench/blackhole"
	"github.com/weiihann/microbench/config"
)

// Advanced option keys the Go executor understands. Other keys belong to
// other executors and are ignored.
const (
	OptionBlackhole = "blackhole"
	OptionCPU       = "cpu"
)

// Advanced is the decoded subset of advanced options this executor acts on.
type Advanced struct {
	Blackhole string
	// CPU is the processor to pin to, or -1 for none.
	CPU int
}

// ParseAdvanced decodes the options this executor understands.
func ParseAdvanced(opts config.Options) (Advanced, error) {
	adv := Advanced{CPU: -1}

	if v, ok := opts.Get(OptionBlackhole); ok {
		if _, err := blackhole.New(v); err != nil {
			return Advanced{}, &config.InvalidValueError{
				Key:    config.AdvancedPrefix + OptionBlackhole,
				Value:  v,
				Reason: err.Error(),
			}
		}
		adv.Blackhole = v
	}

	if v, ok := opts.Get(OptionCPU); ok {
		cpu, err := strconv.Atoi(v)
		if err != nil || cpu < 0 {
			return Advanced{}, &config.InvalidValueError{
				Key:    config.AdvancedPrefix + OptionCPU,
				Value:  v,
				Reason: "must be a non-negative integer",
			}
		}
		adv.CPU = cpu
	}

	return adv, nil
}
