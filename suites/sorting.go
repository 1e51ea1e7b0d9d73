package suites

import (
	"cmp"
	"slices"

	"github.com/weiihann/microbench/blackhole"
	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/suite"
)

type sortingState struct {
	size int
	dist Distribution

	input []int64
	work  []int64
	next  int
}

// Sorting measures sorting and searching int64 slices of varying size and
// value distribution.
func Sorting() *suite.Descriptor {
	const name = "suites.Sorting"

	mode := config.AverageTime
	unit := config.Microseconds

	return &suite.Descriptor{
		Name: name,
		New:  func() any { return &sortingState{} },
		Parameters: []suite.ParameterSpec{
			{Name: "size", Values: []string{"100", "10000"}},
			{Name: "distribution", Values: []string{string(Uniform), string(PowerLaw), string(Reversed)}},
		},
		SetParameter: func(state any, param, value string) error {
			s := state.(*sortingState)

			switch param {
			case "size":
				n, err := positiveInt(param, value)
				if err != nil {
					return err
				}
				s.size = n
			case "distribution":
				d, err := ParseDistribution(value)
				if err != nil {
					return err
				}
				s.dist = d
			default:
				return unknownParameter(name, param)
			}

			return nil
		},
		Setup: suite.StateHook(func(s *sortingState) error {
			gen := NewGenerator(DatasetConfig{
				Size:         s.size,
				Max:          int64(s.size) * 10,
				Distribution: s.dist,
				Seed:         datasetSeed,
			})
			s.input = gen.Ints()
			s.work = make([]int64, len(s.input))

			return nil
		}),
		Benchmarks: []suite.Benchmark{
			suite.Returning("sortInts", func(s *sortingState) int64 {
				copy(s.work, s.input)
				slices.Sort(s.work)

				return s.work[0]
			}),
			suite.Returning("sortStableFunc", func(s *sortingState) int64 {
				copy(s.work, s.input)
				slices.SortStableFunc(s.work, cmp.Compare[int64])

				return s.work[len(s.work)-1]
			}),
			{
				Name: "binarySearch",
				Run: func(state any, bh blackhole.Blackhole) any {
					s := state.(*sortingState)
					key := s.input[s.next%len(s.input)]
					s.next++

					i, found := slices.BinarySearch(s.work, key)
					bh.ConsumeBool(found)
					bh.ConsumeInt64(int64(i))

					return nil
				},
				UsesBlackhole: true,
				Setup: suite.StateHook(func(s *sortingState) error {
					copy(s.work, s.input)
					slices.Sort(s.work)
					s.next = 0

					return nil
				}),
			},
		},
		Defaults: config.Overrides{
			Mode:           &mode,
			OutputTimeUnit: &unit,
		},
	}
}
