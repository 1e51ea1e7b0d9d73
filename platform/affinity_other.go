//go:build !linux

package platform

import "errors"

// ErrAffinityUnsupported is returned by PinToCPU off Linux.
var ErrAffinityUnsupported = errors.New("cpu pinning is only supported on linux")

func PinToCPU(cpu int) error {
	return ErrAffinityUnsupported
}
