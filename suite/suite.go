// Package suite describes benchmarks as the executor sees them: a state
// type with lifecycle hooks, declared parameters, and the operations to
// measure. Descriptors are produced by code generation or written by hand;
// this package only reads them.
package suite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/weiihann/microbench/blackhole"
	"github.com/weiihann/microbench/config"
)

// Hook is a setup or teardown callback run against a state instance.
type Hook func(state any) error

// Operation is the measured call. Its return value is fed to the blackhole
// unless the benchmark consumes the blackhole itself.
type Operation func(state any, bh blackhole.Blackhole) any

// ParameterSpec declares a parameter and the values it takes.
type ParameterSpec struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Descriptor describes one state type and the benchmarks it owns.
type Descriptor struct {
	// Name qualifies benchmark names, e.g. "suites.Sorting".
	Name string

	// New creates a fresh state instance for each trial.
	New func() any

	// Setup and Teardown run once per trial.
	Setup    Hook
	Teardown Hook

	Parameters []ParameterSpec

	// SetParameter injects one parameter value into a state instance.
	SetParameter func(state any, name, value string) error

	Benchmarks []Benchmark

	// Defaults are suite-level configuration values layered between the
	// engine defaults and the run overrides.
	Defaults config.Overrides
}

// Benchmark is one measured operation.
type Benchmark struct {
	Name string
	Run  Operation

	// UsesBlackhole is set when Run consumes the blackhole argument itself.
	UsesBlackhole bool

	// Setup and Teardown run around every iteration.
	Setup    Hook
	Teardown Hook
}

// FullName is the qualified name of b within d.
func (d *Descriptor) FullName(b *Benchmark) string {
	return d.Name + "." + b.Name
}

// Parameter returns the declared spec for name.
func (d *Descriptor) Parameter(name string) (ParameterSpec, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}

	return ParameterSpec{}, false
}

// Validate checks the descriptor for structural mistakes.
func (d *Descriptor) Validate() error {
	var errs []error

	if d.Name == "" {
		errs = append(errs, errors.New("suite has no name"))
	}
	if d.New == nil {
		errs = append(errs, fmt.Errorf("suite %s has no state factory", d.Name))
	}
	if len(d.Parameters) > 0 && d.SetParameter == nil {
		errs = append(errs, fmt.Errorf("suite %s declares parameters without a setter", d.Name))
	}

	seen := make(map[string]bool)
	for _, p := range d.Parameters {
		if !config.ValidOptionKey(p.Name) || strings.Contains(p.Name, ",") {
			errs = append(errs, fmt.Errorf("suite %s: invalid parameter name %q", d.Name, p.Name))
		}
		if len(p.Values) == 0 {
			errs = append(errs, fmt.Errorf("suite %s: parameter %s has no values", d.Name, p.Name))
		}
		for _, v := range p.Values {
			if !config.ValidOptionValue(v) {
				errs = append(errs, fmt.Errorf("suite %s: parameter %s has unencodable value %q", d.Name, p.Name, v))
			}
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("suite %s: duplicate parameter %s", d.Name, p.Name))
		}
		seen[p.Name] = true
	}

	names := make(map[string]bool)
	for _, b := range d.Benchmarks {
		if b.Name == "" || b.Run == nil {
			errs = append(errs, fmt.Errorf("suite %s: benchmark %q is incomplete", d.Name, b.Name))
		}
		if names[b.Name] {
			errs = append(errs, fmt.Errorf("suite %s: duplicate benchmark %s", d.Name, b.Name))
		}
		names[b.Name] = true
	}

	return errors.Join(errs...)
}

// Lookup finds a benchmark by its full name.
func Lookup(suites []*Descriptor, fullName string) (*Descriptor, *Benchmark, bool) {
	for _, d := range suites {
		for i := range d.Benchmarks {
			if d.FullName(&d.Benchmarks[i]) == fullName {
				return d, &d.Benchmarks[i], true
			}
		}
	}

	return nil, nil, false
}

// Returning adapts a typed operation whose result the engine consumes.
func Returning[S any, T any](name string, fn func(s *S) T) Benchmark {
	return Benchmark{
		Name: name,
		Run: func(state any, _ blackhole.Blackhole) any {
			return fn(state.(*S))
		},
	}
}

// Consuming adapts a typed operation that feeds the blackhole itself.
func Consuming[S any](name string, fn func(s *S, bh blackhole.Blackhole)) Benchmark {
	return Benchmark{
		Name: name,
		Run: func(state any, bh blackhole.Blackhole) any {
			fn(state.(*S), bh)
			return nil
		},
		UsesBlackhole: true,
	}
}

// StateHook adapts a typed hook.
func StateHook[S any](fn func(s *S) error) Hook {
	return func(state any) error {
		return fn(state.(*S))
	}
}
