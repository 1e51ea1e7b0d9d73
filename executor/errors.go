package executor

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrHook is matched by every *HookError.
var ErrHook = errors.New("benchmark hook failed")

// Phase names the part of a trial that failed.
type Phase string

const (
	PhaseTrialSetup        Phase = "trial setup"
	PhaseParameters        Phase = "parameter injection"
	PhaseIterationSetup    Phase = "iteration setup"
	PhaseOperation         Phase = "operation"
	PhaseIterationTeardown Phase = "iteration teardown"
	PhaseTrialTeardown     Phase = "trial teardown"
)

// HookError reports a failure inside benchmark code. It aborts only the
// unit it occurred in.
type HookError struct {
	Benchmark string
	Phase     Phase
	Err       error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Benchmark, e.Phase, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

func (e *HookError) Is(target error) bool { return target == ErrHook }

// PanicError wraps a value recovered from a panic in benchmark code.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// call runs fn and converts an error or panic into a *HookError.
func call(benchmark string, phase Phase, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HookError{
				Benchmark: benchmark,
				Phase:     phase,
				Err:       &PanicError{Value: r, Stack: debug.Stack()},
			}
		}
	}()

	if err := fn(); err != nil {
		return &HookError{Benchmark: benchmark, Phase: phase, Err: err}
	}

	return nil
}
