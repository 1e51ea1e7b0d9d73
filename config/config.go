// Package config defines the validated parameters of one benchmark run and
// the map-literal text form used to pass them between processes.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// TimeUnit is one of the fixed set of units a run may be configured in.
type TimeUnit int

const (
	Nanoseconds TimeUnit = iota + 1
	Microseconds
	Milliseconds
	Seconds
	Minutes
)

var unitSymbols = map[TimeUnit]string{
	Nanoseconds:  "ns",
	Microseconds: "us",
	Milliseconds: "ms",
	Seconds:      "s",
	Minutes:      "min",
}

var unitAliases = map[string]TimeUnit{
	"ns":           Nanoseconds,
	"nanoseconds":  Nanoseconds,
	"us":           Microseconds,
	"µs":           Microseconds,
	"microseconds": Microseconds,
	"ms":           Milliseconds,
	"milliseconds": Milliseconds,
	"s":            Seconds,
	"sec":          Seconds,
	"seconds":      Seconds,
	"m":            Minutes,
	"min":          Minutes,
	"minutes":      Minutes,
}

// ParseTimeUnit accepts the short symbol or the long name of a unit,
// case-insensitively.
func ParseTimeUnit(s string) (TimeUnit, error) {
	if u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u, nil
	}

	return 0, fmt.Errorf("unknown time unit %q", s)
}

// Valid reports whether u is one of the enumerated units.
func (u TimeUnit) Valid() bool {
	_, ok := unitSymbols[u]
	return ok
}

func (u TimeUnit) String() string {
	if s, ok := unitSymbols[u]; ok {
		return s
	}

	return "TimeUnit(" + strconv.Itoa(int(u)) + ")"
}

// Duration is the length of one unit.
func (u TimeUnit) Duration() time.Duration {
	switch u {
	case Nanoseconds:
		return time.Nanosecond
	case Microseconds:
		return time.Microsecond
	case Milliseconds:
		return time.Millisecond
	case Seconds:
		return time.Second
	case Minutes:
		return time.Minute
	default:
		return 0
	}
}

// Nanos is the length of one unit in nanoseconds.
func (u TimeUnit) Nanos() float64 {
	return float64(u.Duration())
}

func (u TimeUnit) MarshalText() ([]byte, error) {
	if !u.Valid() {
		return nil, fmt.Errorf("invalid time unit %d", int(u))
	}

	return []byte(u.String()), nil
}

func (u *TimeUnit) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeUnit(string(b))
	if err != nil {
		return err
	}

	*u = parsed

	return nil
}

// Mode selects what a score measures.
type Mode int

const (
	// Throughput scores operations per unit of time.
	Throughput Mode = iota + 1
	// AverageTime scores time per operation.
	AverageTime
)

// ParseMode accepts "Throughput"/"thrpt" and "AverageTime"/"avgt".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "throughput", "thrpt":
		return Throughput, nil
	case "averagetime", "avgt":
		return AverageTime, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

func (m Mode) Valid() bool {
	return m == Throughput || m == AverageTime
}

func (m Mode) String() string {
	switch m {
	case Throughput:
		return "Throughput"
	case AverageTime:
		return "AverageTime"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Short is the abbreviation used in reports.
func (m Mode) Short() string {
	switch m {
	case Throughput:
		return "thrpt"
	case AverageTime:
		return "avgt"
	default:
		return m.String()
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mode %d", int(m))
	}

	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}

// RunConfiguration holds the parameters of one benchmark run. It is a value
// type: construct it with Merge or Parse and pass copies around.
type RunConfiguration struct {
	Iterations        int      `key:"iterations" validate:"gt=0"`
	Warmups           int      `key:"warmups" validate:"gte=0"`
	IterationTime     int64    `key:"iterationTime" validate:"gt=0"`
	IterationTimeUnit TimeUnit `key:"iterationTimeUnit" validate:"timeunit"`
	OutputTimeUnit    TimeUnit `key:"outputTimeUnit" validate:"timeunit"`
	Mode              Mode     `key:"mode" validate:"mode"`
	Advanced          Options  `key:"advanced" validate:"dive"`
}

// Default returns the engine defaults used when neither the suite nor the
// run says otherwise.
func Default() RunConfiguration {
	return RunConfiguration{
		Iterations:        5,
		Warmups:           3,
		IterationTime:     1,
		IterationTimeUnit: Seconds,
		OutputTimeUnit:    Seconds,
		Mode:              Throughput,
	}
}

// IterationDuration is the per-iteration time budget.
func (c RunConfiguration) IterationDuration() time.Duration {
	return time.Duration(c.IterationTime) * c.IterationTimeUnit.Duration()
}

// String renders c as a map literal.
func (c RunConfiguration) String() string {
	return Format(c)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if k := f.Tag.Get("key"); k != "" {
			return k
		}

		return f.Name
	})

	_ = v.RegisterValidation("timeunit", func(fl validator.FieldLevel) bool {
		return TimeUnit(fl.Field().Int()).Valid()
	})
	_ = v.RegisterValidation("mode", func(fl validator.FieldLevel) bool {
		return Mode(fl.Field().Int()).Valid()
	})
	_ = v.RegisterValidation("optionkey", func(fl validator.FieldLevel) bool {
		return ValidOptionKey(fl.Field().String())
	})
	_ = v.RegisterValidation("optionvalue", func(fl validator.FieldLevel) bool {
		return ValidOptionValue(fl.Field().String())
	})

	return v
}

// ValidOptionKey reports whether s can be written as a map-literal key.
func ValidOptionKey(s string) bool {
	return validOptionText(s, true)
}

// ValidOptionValue reports whether s can be written as a map-literal value.
func ValidOptionValue(s string) bool {
	return validOptionText(s, false)
}

func validOptionText(s string, key bool) bool {
	if strings.ContainsAny(s, "{}") || strings.Contains(s, ", ") {
		return false
	}
	if key && (s == "" || strings.Contains(s, "=")) {
		return false
	}

	return true
}

// Validate checks every field and returns an *InvalidValueError naming the
// first offending key.
func (c RunConfiguration) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate configuration: %w", err)
	}

	fe := verrs[0]
	key := fe.Field()
	if strings.HasPrefix(fe.Namespace(), "RunConfiguration.advanced") {
		key = "advanced"
	}

	return &InvalidValueError{
		Key:    key,
		Value:  fmt.Sprint(fe.Value()),
		Reason: "failed " + fe.Tag() + " check",
	}
}

// Overrides carries optional values layered over a base configuration.
// Nil fields leave the base untouched.
type Overrides struct {
	Iterations        *int
	Warmups           *int
	IterationTime     *int64
	IterationTimeUnit *TimeUnit
	OutputTimeUnit    *TimeUnit
	Mode              *Mode
	Advanced          Options
}

// Merge layers each overrides value over base in order; later layers win
// field by field and advanced options win key by key. The result is
// validated.
func Merge(base RunConfiguration, layers ...Overrides) (RunConfiguration, error) {
	c := base
	c.Advanced = base.Advanced.Clone()

	for _, o := range layers {
		if o.Iterations != nil {
			c.Iterations = *o.Iterations
		}
		if o.Warmups != nil {
			c.Warmups = *o.Warmups
		}
		if o.IterationTime != nil {
			c.IterationTime = *o.IterationTime
		}
		if o.IterationTimeUnit != nil {
			c.IterationTimeUnit = *o.IterationTimeUnit
		}
		if o.OutputTimeUnit != nil {
			c.OutputTimeUnit = *o.OutputTimeUnit
		}
		if o.Mode != nil {
			c.Mode = *o.Mode
		}
		for _, opt := range o.Advanced {
			c.Advanced = c.Advanced.With(opt.Key, opt.Value)
		}
	}

	if len(c.Advanced) == 0 {
		c.Advanced = nil
	}

	if err := c.Validate(); err != nil {
		return RunConfiguration{}, err
	}

	return c, nil
}
