package suite

import (
	"fmt"
	"strings"

	"github.com/weiihann/microbench/config"
)

// Assignment holds one concrete value per declared parameter, in
// declaration order.
type Assignment = config.Options

// Assignments enumerates the Cartesian product of the declared values in
// declaration order. The first parameter is the outermost loop, so the last
// one varies fastest. No parameters yields one empty assignment.
func Assignments(specs []ParameterSpec) []Assignment {
	out := []Assignment{nil}

	for _, spec := range specs {
		next := make([]Assignment, 0, len(out)*len(spec.Values))
		for _, prefix := range out {
			for _, v := range spec.Values {
				a := make(Assignment, len(prefix), len(prefix)+1)
				copy(a, prefix)
				next = append(next, append(a, config.Option{Key: spec.Name, Value: v}))
			}
		}
		out = next
	}

	return out
}

// Resolve checks a requested assignment against d's declared parameters
// and returns it in declaration order. Values need not be among the
// declared ones.
func (d *Descriptor) Resolve(requested Assignment) (Assignment, error) {
	for _, opt := range requested {
		if _, ok := d.Parameter(opt.Key); !ok {
			return nil, fmt.Errorf("suite %s has no parameter %q", d.Name, opt.Key)
		}
	}

	var out Assignment
	for _, p := range d.Parameters {
		v, ok := requested.Get(p.Name)
		if !ok {
			return nil, fmt.Errorf("no value for parameter %s of suite %s", p.Name, d.Name)
		}
		out = append(out, config.Option{Key: p.Name, Value: v})
	}

	return out, nil
}

// UnitID identifies a benchmark run with one assignment:
// "name | k1=v1 | k2=v2".
func UnitID(fullName string, params Assignment) string {
	if len(params) == 0 {
		return fullName
	}

	var b strings.Builder
	b.WriteString(fullName)
	for _, p := range params {
		b.WriteString(" | ")
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}

	return b.String()
}

// Unit is one (benchmark × parameter assignment) pair, the granularity at
// which the executor isolates failures.
type Unit struct {
	Suite     *Descriptor
	Benchmark *Benchmark
	Params    Assignment
}

// FullName is the qualified benchmark name without parameters.
func (u Unit) FullName() string {
	return u.Suite.FullName(u.Benchmark)
}

// ID includes the parameter values.
func (u Unit) ID() string {
	return UnitID(u.FullName(), u.Params)
}

// Units expands suites into every unit accepted by f, suite by suite and
// benchmark by benchmark in declaration order.
func Units(suites []*Descriptor, f Filter) []Unit {
	var units []Unit

	for _, d := range suites {
		assignments := Assignments(d.Parameters)
		for i := range d.Benchmarks {
			b := &d.Benchmarks[i]
			if !f.Match(d.FullName(b)) {
				continue
			}
			for _, a := range assignments {
				units = append(units, Unit{Suite: d, Benchmark: b, Params: a})
			}
		}
	}

	return units
}
