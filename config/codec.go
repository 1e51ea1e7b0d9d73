package config

import (
	"strconv"
	"strings"
)

// Map literal keys.
const (
	KeyIterations        = "iterations"
	KeyWarmups           = "warmups"
	KeyIterationTime     = "iterationTime"
	KeyIterationTimeUnit = "iterationTimeUnit"
	KeyOutputTimeUnit    = "outputTimeUnit"
	KeyMode              = "mode"

	// AdvancedPrefix marks keys passed through to platform executors.
	AdvancedPrefix = "advanced:"
)

const pairSeparator = ", "

// ParseMap splits a literal of the form {k1=v1, k2=v2} into ordered pairs.
// Values are not escaped: a value containing ", " cannot be represented.
func ParseMap(text string) (Options, error) {
	s := strings.TrimSpace(text)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, &MalformedMapError{Input: text, Reason: "not wrapped in braces"}
	}

	inner := s[1 : len(s)-1]
	if inner == "" {
		return nil, nil
	}
	if strings.ContainsAny(inner, "{}") {
		return nil, &MalformedMapError{Input: text, Reason: "unbalanced braces"}
	}

	pairs := strings.Split(inner, pairSeparator)
	out := make(Options, 0, len(pairs))
	seen := make(map[string]struct{}, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, &MalformedMapError{
				Input:  text,
				Reason: "pair " + strconv.Quote(pair) + " has no '='",
			}
		}
		if key == "" {
			return nil, &MalformedMapError{
				Input:  text,
				Reason: "pair " + strconv.Quote(pair) + " has an empty key",
			}
		}
		if _, dup := seen[key]; dup {
			return nil, &MalformedMapError{
				Input:  text,
				Reason: "duplicate key " + strconv.Quote(key),
			}
		}

		seen[key] = struct{}{}
		out = append(out, Option{Key: key, Value: value})
	}

	return out, nil
}

// FormatMap renders pairs as {k1=v1, k2=v2}.
func FormatMap(o Options) string {
	var b strings.Builder

	b.WriteByte('{')
	for i, opt := range o {
		if i > 0 {
			b.WriteString(pairSeparator)
		}
		b.WriteString(opt.Key)
		b.WriteByte('=')
		b.WriteString(opt.Value)
	}
	b.WriteByte('}')

	return b.String()
}

var requiredKeys = []string{
	KeyIterations,
	KeyWarmups,
	KeyIterationTime,
	KeyIterationTimeUnit,
	KeyOutputTimeUnit,
	KeyMode,
}

// Parse decodes a map literal into a validated RunConfiguration. Unknown
// keys without the advanced prefix are ignored.
func Parse(text string) (RunConfiguration, error) {
	m, err := ParseMap(text)
	if err != nil {
		return RunConfiguration{}, err
	}

	for _, key := range requiredKeys {
		if _, ok := m.Get(key); !ok {
			return RunConfiguration{}, &MissingParameterError{Key: key}
		}
	}

	var c RunConfiguration

	for _, opt := range m {
		if name, ok := strings.CutPrefix(opt.Key, AdvancedPrefix); ok {
			if name == "" {
				return RunConfiguration{}, &InvalidAdvancedKeyError{Key: opt.Key}
			}

			c.Advanced = append(c.Advanced, Option{Key: name, Value: opt.Value})

			continue
		}

		if err := c.set(opt.Key, opt.Value); err != nil {
			return RunConfiguration{}, err
		}
	}

	if err := c.Validate(); err != nil {
		return RunConfiguration{}, err
	}

	return c, nil
}

func (c *RunConfiguration) set(key, value string) error {
	invalid := func(err error) error {
		return &InvalidValueError{Key: key, Value: value, Reason: err.Error()}
	}

	switch key {
	case KeyIterations:
		n, err := strconv.Atoi(value)
		if err != nil {
			return invalid(err)
		}
		c.Iterations = n

	case KeyWarmups:
		n, err := strconv.Atoi(value)
		if err != nil {
			return invalid(err)
		}
		c.Warmups = n

	case KeyIterationTime:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return invalid(err)
		}
		c.IterationTime = n

	case KeyIterationTimeUnit, KeyOutputTimeUnit:
		u, err := ParseTimeUnit(value)
		if err != nil {
			return invalid(err)
		}
		if key == KeyIterationTimeUnit {
			c.IterationTimeUnit = u
		} else {
			c.OutputTimeUnit = u
		}

	case KeyMode:
		m, err := ParseMode(value)
		if err != nil {
			return invalid(err)
		}
		c.Mode = m
	}

	return nil
}

// Format renders c as a map literal that Parse reads back unchanged.
func Format(c RunConfiguration) string {
	pairs := Options{
		{Key: KeyIterations, Value: strconv.Itoa(c.Iterations)},
		{Key: KeyWarmups, Value: strconv.Itoa(c.Warmups)},
		{Key: KeyIterationTime, Value: strconv.FormatInt(c.IterationTime, 10)},
		{Key: KeyIterationTimeUnit, Value: c.IterationTimeUnit.String()},
		{Key: KeyOutputTimeUnit, Value: c.OutputTimeUnit.String()},
		{Key: KeyMode, Value: c.Mode.String()},
	}

	for _, opt := range c.Advanced {
		pairs = append(pairs, Option{Key: AdvancedPrefix + opt.Key, Value: opt.Value})
	}

	return FormatMap(pairs)
}
