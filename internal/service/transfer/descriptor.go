// Package transfer moves staged upload rows into the permanent versioned
// tables through a closed registry of transfer routines.
package transfer

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"cm-admin/internal/domain"
)

//go:embed routines.yaml
var defaultRoutines []byte

// castPattern admits plain SQL type names such as numeric, date or
// numeric(12,4). Casts are spliced into SQL, so nothing else is allowed.
var castPattern = regexp.MustCompile(`^[a-z][a-z0-9_ ]*(\(\d+(,\s*\d+)?\))?$`)

// Descriptor declares one transfer routine.
type Descriptor struct {
	Name        string                `yaml:"name"`
	Destination string                `yaml:"destination"`
	Strategy    domain.AppendStrategy `yaml:"strategy"`
	Columns     []domain.AppendColumn `yaml:"columns"`

	destination domain.TableRef
}

// DestinationTable returns the parsed destination table.
func (d Descriptor) DestinationTable() domain.TableRef { return d.destination }

type descriptorFile struct {
	Routines []Descriptor `yaml:"routines"`
}

// LoadDescriptors reads the routine descriptors from path, or the embedded
// defaults when path is empty.
func LoadDescriptors(path string) ([]Descriptor, error) {
	data := defaultRoutines
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read routines file: %w", err)
		}
		data = b
	}
	return ParseDescriptors(data)
}

// ParseDescriptors decodes and validates a routines document.
func ParseDescriptors(data []byte) ([]Descriptor, error) {
	var f descriptorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, domain.ErrConfiguration("parse routines: %v", err)
	}
	if len(f.Routines) == 0 {
		return nil, domain.ErrConfiguration("no transfer routines declared")
	}

	seen := make(map[string]bool, len(f.Routines))
	for i := range f.Routines {
		d := &f.Routines[i]
		if err := d.validate(); err != nil {
			return nil, err
		}
		if seen[d.Name] {
			return nil, domain.ErrConfiguration("duplicate transfer routine %q", d.Name)
		}
		seen[d.Name] = true
	}
	return f.Routines, nil
}

func (d *Descriptor) validate() error {
	if d.Name == "" {
		return domain.ErrConfiguration("transfer routine without a name")
	}
	dest, err := domain.ParseTableRef(d.Destination)
	if err != nil || dest.Schema == "" {
		return domain.ErrConfiguration("routine %s: destination must be schema.table, got %q", d.Name, d.Destination)
	}
	d.destination = dest

	switch d.Strategy {
	case "":
		d.Strategy = domain.StrategySet
	case domain.StrategySet, domain.StrategyRow:
	default:
		return domain.ErrConfiguration("routine %s: unknown strategy %q", d.Name, d.Strategy)
	}

	if len(d.Columns) == 0 {
		return domain.ErrConfiguration("routine %s: no columns", d.Name)
	}
	for _, c := range d.Columns {
		if c.Name == "" {
			return domain.ErrConfiguration("routine %s: column without a name", d.Name)
		}
		if c.Cast != "" && !castPattern.MatchString(c.Cast) {
			return domain.ErrConfiguration("routine %s: invalid cast %q for column %s", d.Name, c.Cast, c.Name)
		}
	}
	return nil
}
