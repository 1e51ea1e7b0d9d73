package suites

import (
	"fmt"
	"strconv"

	"github.com/weiihann/microbench/suite"
)

// datasetSeed keeps every run over identical inputs.
const datasetSeed = 42

// All returns fresh descriptors for every built-in suite.
func All() []*suite.Descriptor {
	return []*suite.Descriptor{
		Sorting(),
		Hashing(),
		Fib(),
	}
}

func positiveInt(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", name, n)
	}

	return n, nil
}

func unknownParameter(suiteName, name string) error {
	return fmt.Errorf("suite %s has no parameter %q", suiteName, name)
}
