// Package handoff encodes the three-line file a launching host writes to
// tell a spawned worker which benchmark unit to run and how.
//
// The format is:
//
//	benchmark: <name>
//	configuration: <map literal>
//	parameters: <map literal>
package handoff

import (
	"fmt"
	"strings"

	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/platform"
)

const (
	prefixBenchmark     = "benchmark:"
	prefixConfiguration = "configuration:"
	prefixParameters    = "parameters:"
)

// InvalidHandoffFormatError reports a hand-off text whose shape is wrong.
type InvalidHandoffFormatError struct {
	Reason string
}

func (e *InvalidHandoffFormatError) Error() string {
	return "invalid hand-off format: " + e.Reason
}

func (e *InvalidHandoffFormatError) Unwrap() error { return config.ErrConfiguration }

// Handoff names one benchmark unit and the configuration to run it with.
type Handoff struct {
	Benchmark     string
	Configuration config.RunConfiguration
	Parameters    config.Options
}

// Encode renders h in the three-line format.
func Encode(h Handoff) string {
	var b strings.Builder

	b.WriteString(prefixBenchmark + " ")
	b.WriteString(h.Benchmark)
	b.WriteByte('\n')
	b.WriteString(prefixConfiguration + " ")
	b.WriteString(config.Format(h.Configuration))
	b.WriteByte('\n')
	b.WriteString(prefixParameters + " ")
	b.WriteString(config.FormatMap(h.Parameters))
	b.WriteByte('\n')

	return b.String()
}

// Decode parses the three-line format. A trailing newline is allowed;
// anything else that is not exactly three non-empty prefixed lines fails
// with *InvalidHandoffFormatError.
func Decode(text string) (Handoff, error) {
	text = strings.TrimRight(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := strings.Split(text, "\n")

	if len(lines) != 3 {
		return Handoff{}, &InvalidHandoffFormatError{
			Reason: fmt.Sprintf("expected 3 lines, got %d", len(lines)),
		}
	}

	name, err := field(lines[0], prefixBenchmark)
	if err != nil {
		return Handoff{}, err
	}

	cfgText, err := field(lines[1], prefixConfiguration)
	if err != nil {
		return Handoff{}, err
	}

	paramText, err := field(lines[2], prefixParameters)
	if err != nil {
		return Handoff{}, err
	}

	cfg, err := config.Parse(cfgText)
	if err != nil {
		return Handoff{}, fmt.Errorf("parse configuration: %w", err)
	}

	params, err := config.ParseMap(paramText)
	if err != nil {
		return Handoff{}, fmt.Errorf("parse parameters: %w", err)
	}

	return Handoff{
		Benchmark:     name,
		Configuration: cfg,
		Parameters:    params,
	}, nil
}

func field(line, prefix string) (string, error) {
	value, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return "", &InvalidHandoffFormatError{
			Reason: fmt.Sprintf("line %q does not start with %q", line, prefix),
		}
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", &InvalidHandoffFormatError{
			Reason: fmt.Sprintf("line %q has no value", line),
		}
	}

	return value, nil
}

// ReadFile reads and decodes a hand-off file.
func ReadFile(fio platform.FileIO, path string) (Handoff, error) {
	data, err := fio.ReadFile(path)
	if err != nil {
		return Handoff{}, fmt.Errorf("read hand-off %s: %w", path, err)
	}

	h, err := Decode(string(data))
	if err != nil {
		return Handoff{}, fmt.Errorf("decode hand-off %s: %w", path, err)
	}

	return h, nil
}

// WriteFile encodes h to path.
func WriteFile(fio platform.FileIO, path string, h Handoff) error {
	if err := fio.WriteFile(path, []byte(Encode(h))); err != nil {
		return fmt.Errorf("write hand-off %s: %w", path, err)
	}

	return nil
}
