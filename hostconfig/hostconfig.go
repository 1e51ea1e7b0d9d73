// Package hostconfig loads the host's microbench.yaml: which targets to
// build and run, and the configuration every unit is run with.
package hostconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/weiihann/microbench/config"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "microbench.yaml"

// Kind is the execution environment a target's worker runs in.
type Kind string

const (
	KindNative Kind = "native"
	KindWASI   Kind = "wasip1"
	KindJS     Kind = "js"
)

// Target is one worker binary and the environment it runs in.
type Target struct {
	Name string `yaml:"name" validate:"required,targetname"`
	Kind Kind   `yaml:"kind" validate:"oneof=native wasip1 js"`

	// Package is the Go package of the worker main, built per target.
	// Binary skips the build and runs an existing worker.
	Package string `yaml:"package" validate:"required_without=Binary"`
	Binary  string `yaml:"binary"`

	// Runner prefixes the worker command line, e.g. [wazero, run] for
	// wasip1 or [node, wasm_exec_node.js] for js.
	Runner []string          `yaml:"runner"`
	Env    map[string]string `yaml:"env"`
	Args   []string          `yaml:"args"`
}

// Overrides is the YAML form of config.Overrides.
type Overrides struct {
	Iterations        *int             `yaml:"iterations" validate:"omitempty,gt=0"`
	Warmups           *int             `yaml:"warmups" validate:"omitempty,gte=0"`
	IterationTime     *int64           `yaml:"iterationTime" validate:"omitempty,gt=0"`
	IterationTimeUnit *config.TimeUnit `yaml:"iterationTimeUnit"`
	OutputTimeUnit    *config.TimeUnit `yaml:"outputTimeUnit"`
	Mode              *config.Mode     `yaml:"mode"`
	Advanced          Advanced         `yaml:"advanced"`
}

// Config converts o for config.Merge.
func (o Overrides) Config() config.Overrides {
	return config.Overrides{
		Iterations:        o.Iterations,
		Warmups:           o.Warmups,
		IterationTime:     o.IterationTime,
		IterationTimeUnit: o.IterationTimeUnit,
		OutputTimeUnit:    o.OutputTimeUnit,
		Mode:              o.Mode,
		Advanced:          config.Options(o.Advanced),
	}
}

// Advanced decodes a YAML mapping into ordered options, keeping document
// order.
type Advanced config.Options

func (a *Advanced) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: advanced must be a mapping", node.Line)
	}

	out := make(Advanced, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: advanced option %s must be a scalar", v.Line, k.Value)
		}
		out = append(out, config.Option{Key: k.Value, Value: v.Value})
	}

	*a = out

	return nil
}

// Config is the host configuration file. Parameters replaces the declared
// values of parameters by name.
type Config struct {
	Targets       []Target            `yaml:"targets" validate:"required,min=1,dive"`
	Configuration Overrides           `yaml:"configuration"`
	Parameters    map[string][]string `yaml:"parameters" validate:"dive,keys,optionkey,endkeys,min=1,dive,optionvalue"`
	Include       []string            `yaml:"include"`
	Exclude       []string            `yaml:"exclude"`
	ReportDir     string              `yaml:"reportDir" validate:"required"`
	ReportFormat  string              `yaml:"reportFormat" validate:"oneof=json csv scsv text"`
	Parallelism   int                 `yaml:"parallelism" validate:"gte=1"`
	UnitTimeout   time.Duration       `yaml:"unitTimeout" validate:"gte=0"`
}

// Default is used when no configuration file exists: one native target
// running the built-in worker.
func Default() *Config {
	c := &Config{
		Targets: []Target{{
			Name:    "native",
			Package: "./cmd/microbench-worker",
		}},
	}
	c.applyDefaults()

	return c
}

func (c *Config) applyDefaults() {
	for i := range c.Targets {
		if c.Targets[i].Kind == "" {
			c.Targets[i].Kind = KindNative
		}
	}
	if c.ReportDir == "" {
		c.ReportDir = "reports"
	}
	if c.ReportFormat == "" {
		c.ReportFormat = "json"
	}
	if c.Parallelism == 0 {
		c.Parallelism = 1
	}
	if c.UnitTimeout == 0 {
		c.UnitTimeout = 30 * time.Minute
	}
}

var targetName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("targetname", func(fl validator.FieldLevel) bool {
		return targetName.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("optionkey", func(fl validator.FieldLevel) bool {
		return config.ValidOptionKey(fl.Field().String())
	})
	_ = v.RegisterValidation("optionvalue", func(fl validator.FieldLevel) bool {
		return config.ValidOptionValue(fl.Field().String())
	})

	return v
}

// Validate checks field constraints, target name uniqueness and the
// include/exclude patterns.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	seen := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate target %q", config.ErrConfiguration, t.Name)
		}
		seen[t.Name] = true
	}

	for _, p := range append(append([]string(nil), c.Include...), c.Exclude...) {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w: pattern %q: %w", config.ErrConfiguration, p, err)
		}
	}

	if _, err := config.Merge(config.Default(), c.Configuration.Config()); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	return nil
}

// Target returns the target called name.
func (c *Config) Target(name string) (Target, bool) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t, true
		}
	}

	return Target{}, false
}

// Parse decodes and validates a configuration document. Unknown fields are
// rejected.
func Parse(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Config
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode yaml: %w", config.ErrConfiguration, err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Load reads path. A missing file at DefaultPath yields Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && path == DefaultPath {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	c, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	return c, nil
}
