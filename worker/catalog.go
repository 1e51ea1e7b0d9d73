package worker

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/suite"
)

// CatalogEntry describes one benchmark a worker can run. Configuration is
// the engine defaults with the suite's defaults applied, as a map literal.
type CatalogEntry struct {
	Benchmark     string                `json:"benchmark"`
	Parameters    []suite.ParameterSpec `json:"parameters,omitempty"`
	Configuration string                `json:"configuration"`
}

// Units expands e into one parameter assignment per unit.
func (e CatalogEntry) Units() []suite.Assignment {
	return suite.Assignments(e.Parameters)
}

// Catalog lists the benchmarks accepted by f.
func Catalog(suites []*suite.Descriptor, f suite.Filter) ([]CatalogEntry, error) {
	var entries []CatalogEntry

	for _, d := range suites {
		cfg, err := config.Merge(config.Default(), d.Defaults)
		if err != nil {
			return nil, fmt.Errorf("defaults of suite %s: %w", d.Name, err)
		}

		for i := range d.Benchmarks {
			name := d.FullName(&d.Benchmarks[i])
			if !f.Match(name) {
				continue
			}

			entries = append(entries, CatalogEntry{
				Benchmark:     name,
				Parameters:    d.Parameters,
				Configuration: config.Format(cfg),
			})
		}
	}

	return entries, nil
}

// WriteCatalog writes entries as a JSON array.
func WriteCatalog(w io.Writer, entries []CatalogEntry) error {
	if entries == nil {
		entries = []CatalogEntry{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(entries)
}

// ReadCatalog parses the output of WriteCatalog.
func ReadCatalog(r io.Reader) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	return entries, nil
}
