package suites

import (
	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/suite"
)

type fibState struct {
	n int
}

// Fib measures recursive and iterative fibonacci. Both return their
// result and let the engine consume it.
func Fib() *suite.Descriptor {
	const name = "suites.Fib"

	mode := config.AverageTime
	unit := config.Nanoseconds

	return &suite.Descriptor{
		Name: name,
		New:  func() any { return &fibState{} },
		Parameters: []suite.ParameterSpec{
			{Name: "n", Values: []string{"10", "20"}},
		},
		SetParameter: func(state any, param, value string) error {
			if param != "n" {
				return unknownParameter(name, param)
			}

			n, err := positiveInt(param, value)
			if err != nil {
				return err
			}
			state.(*fibState).n = n

			return nil
		},
		Benchmarks: []suite.Benchmark{
			suite.Returning("recursive", func(s *fibState) int { return fibRecursive(s.n) }),
			suite.Returning("iterative", func(s *fibState) int { return fibIterative(s.n) }),
		},
		Defaults: config.Overrides{
			Mode:           &mode,
			OutputTimeUnit: &unit,
		},
	}
}

func fibRecursive(n int) int {
	if n < 2 {
		return n
	}

	return fibRecursive(n-1) + fibRecursive(n-2)
}

func fibIterative(n int) int {
	a, b := 0, 1
	for i := 0; i < n; i++ {
		a, b = b, a+b
	}

	return a
}
