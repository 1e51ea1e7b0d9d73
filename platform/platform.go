// Package platform selects the per-environment capabilities the executor
// depends on: a monotonic time source and file access.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Kind identifies an execution environment family.
type Kind string

const (
	// Native is a regular operating-system process.
	Native Kind = "native"
	// WASI is a wasip1 module run by a WebAssembly runtime.
	WASI Kind = "wasi"
	// Browser is a js/wasm module hosted by a JavaScript engine.
	Browser Kind = "browser"
)

var nativeOS = map[string]bool{
	"aix":       true,
	"android":   true,
	"darwin":    true,
	"dragonfly": true,
	"freebsd":   true,
	"illumos":   true,
	"ios":       true,
	"linux":     true,
	"netbsd":    true,
	"openbsd":   true,
	"solaris":   true,
	"windows":   true,
}

// UnsupportedEnvironmentError is returned when no known environment matches
// the running process.
type UnsupportedEnvironmentError struct {
	GOOS   string
	GOARCH string
}

func (e *UnsupportedEnvironmentError) Error() string {
	return fmt.Sprintf("unsupported execution environment %s/%s", e.GOOS, e.GOARCH)
}

// Environment is computed once at process entry and passed down.
type Environment struct {
	Kind   Kind
	GOOS   string
	GOARCH string
	Clock  TimeSource
	Files  FileIO
}

func (e Environment) String() string {
	return fmt.Sprintf("%s (%s/%s)", e.Kind, e.GOOS, e.GOARCH)
}

// Detect inspects the running process.
func Detect() (Environment, error) {
	return DetectFrom(runtime.GOOS, runtime.GOARCH)
}

// DetectFrom builds the environment for the given platform pair.
func DetectFrom(goos, goarch string) (Environment, error) {
	env := Environment{GOOS: goos, GOARCH: goarch, Files: OSFiles{}}

	switch {
	case goos == "js" && goarch == "wasm":
		env.Kind = Browser
		env.Clock = NewBridgeClock(hostBridge())
	case goos == "wasip1" && goarch == "wasm":
		env.Kind = WASI
		env.Clock = MonotonicClock{}
	case nativeOS[goos]:
		env.Kind = Native
		env.Clock = MonotonicClock{}
	default:
		return Environment{}, &UnsupportedEnvironmentError{GOOS: goos, GOARCH: goarch}
	}

	return env, nil
}

// FileIO is the file access a worker needs.
type FileIO interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

// OSFiles implements FileIO on the local filesystem.
type OSFiles struct{}

func (OSFiles) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile creates missing parent directories.
func (OSFiles) WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	return os.WriteFile(path, data, 0o644)
}
