//go:build linux

package platform

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// PinToCPU locks the calling goroutine to its OS thread and restricts that
// thread to one CPU. The lock is never released; call it from the goroutine
// that runs the executor.
func PinToCPU(cpu int) error {
	if cpu < 0 || cpu >= runtime.NumCPU() {
		return fmt.Errorf("cpu %d out of range [0,%d)", cpu, runtime.NumCPU())
	}

	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)

	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("set affinity to cpu %d: %w", cpu, err)
	}

	return nil
}
