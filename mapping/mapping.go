// Package mapping holds custom type mappings: IDL types that are replaced by a type supplied
// outside the compiler wherever they are used as a field, parameter, result or element type.
package mapping

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ifabos/go-idlc/typesys"
)

// Entry maps one IDL type to an external Go type
type Entry struct {
	// IDL is the IDL name of the mapped type, "::m::T" or "m.T"
	IDL string `toml:"idl" yaml:"idl"`
	// Type is the qualified Go type, for example "time.Time"
	Type string `toml:"type" yaml:"type"`
	// Import is the import path of the Go type
	Import string `toml:"import,omitempty" yaml:"import,omitempty"`
}

// File is the root structure of a custom mapping file
type File struct {
	Mappings []Entry `toml:"mapping" yaml:"mappings"`
}

// Table is the set of custom mappings used by one compiler
type Table struct {
	entries map[string]*typesys.Type
	logger  *slog.Logger
}

// NewTable creates an empty table
func NewTable(logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Table{entries: make(map[string]*typesys.Type), logger: logger}
}

// Normalize converts an IDL name to the dot separated key used by the table
func Normalize(idlName string) string {
	name := strings.TrimPrefix(idlName, "::")
	return strings.ReplaceAll(name, "::", ".")
}

// Add registers a mapping. A name that is already mapped keeps its first mapping, and false
// is returned.
func (t *Table) Add(e Entry) bool {
	key := Normalize(e.IDL)
	if prev, exists := t.entries[key]; exists {
		t.logger.Warn("duplicate custom mapping ignored",
			"idl", e.IDL, "kept", prev.QualifiedName(), "ignored", e.Type)
		return false
	}
	t.entries[key] = typesys.NewExternal(e.Type, e.Import)
	return true
}

// AddFile registers every mapping of f
func (t *Table) AddFile(f *File) {
	for _, e := range f.Mappings {
		t.Add(e)
	}
}

// Lookup returns the external type mapped for a qualified name
func (t *Table) Lookup(qualified string) (*typesys.Type, bool) {
	ext, ok := t.entries[Normalize(qualified)]
	return ext, ok
}

// Len returns the number of mappings
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Names returns the mapped names in sorted order
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Substitute replaces the compact type of d when it is mapped. The result keeps the tags of d.
func (t *Table) Substitute(d typesys.TypeDescriptor) typesys.TypeDescriptor {
	if t == nil || d.IsZero() {
		return d
	}
	compact := d.Compact()
	ext, ok := t.entries[compact.QualifiedName()]
	if !ok {
		return d
	}
	return compact.WithType(ext)
}

// ParseTOML decodes a TOML mapping file
func ParseTOML(data []byte) (*File, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse mapping file: %w", err)
	}
	return &f, f.validate()
}

// ParseYAML decodes a YAML mapping file
func ParseYAML(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse mapping file: %w", err)
	}
	return &f, f.validate()
}

func (f *File) validate() error {
	for i, e := range f.Mappings {
		if e.IDL == "" || e.Type == "" {
			return fmt.Errorf("mapping %d: idl and type are required", i)
		}
	}
	return nil
}

// LoadFile reads a mapping file; the format is chosen by extension (.toml, .yaml, .yml)
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return ParseTOML(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported mapping file %s", path)
	}
}

// Load builds a table from several mapping files, in order
func Load(logger *slog.Logger, paths ...string) (*Table, error) {
	t := NewTable(logger)
	for _, path := range paths {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		t.AddFile(f)
		t.logger.Debug("loaded custom mappings", "file", path, "count", len(f.Mappings))
	}
	return t, nil
}
