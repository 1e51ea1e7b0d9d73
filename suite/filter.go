package suite

import (
	"fmt"
	"regexp"
)

// Filter selects benchmarks by full name. A name passes when it matches any
// include pattern (or there are none) and no exclude pattern.
type Filter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

func NewFilter(include, exclude []string) (Filter, error) {
	var f Filter

	for _, p := range include {
		re, err := regexp.Compile(p)
		if err != nil {
			return Filter{}, fmt.Errorf("compile include pattern %q: %w", p, err)
		}
		f.include = append(f.include, re)
	}

	for _, p := range exclude {
		re, err := regexp.Compile(p)
		if err != nil {
			return Filter{}, fmt.Errorf("compile exclude pattern %q: %w", p, err)
		}
		f.exclude = append(f.exclude, re)
	}

	return f, nil
}

func (f Filter) Match(name string) bool {
	for _, re := range f.exclude {
		if re.MatchString(name) {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}

	for _, re := range f.include {
		if re.MatchString(name) {
			return true
		}
	}

	return false
}
