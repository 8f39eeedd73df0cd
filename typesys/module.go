package typesys

import (
	"errors"
	"sort"

	"github.com/google/uuid"
)

// Common module errors
var (
	ErrDuplicateDefinition = errors.New("duplicate definition")
	ErrTypeNotFound        = errors.New("type not found")
	ErrAnonymousType       = errors.New("anonymous types cannot be added to a module")
)

// Module is the unit of generated types handed to persistence
type Module struct {
	Name string
	ID   uuid.UUID

	types  map[string]*Type
	byID   map[string]*Type
	order  []*Type
	sealed bool
}

// NewModule creates an empty module with a fresh identity
func NewModule(name string) *Module {
	return &Module{
		Name:  name,
		ID:    uuid.New(),
		types: make(map[string]*Type),
		byID:  make(map[string]*Type),
	}
}

// Add registers a named type
func (m *Module) Add(t *Type) error {
	if t.Kind == TC_SEQUENCE || t.Kind == TC_ARRAY || t.Name == "" {
		return ErrAnonymousType
	}
	name := t.QualifiedName()
	if _, exists := m.types[name]; exists {
		return ErrDuplicateDefinition
	}
	m.types[name] = t
	if t.RepositoryID != "" {
		m.byID[t.RepositoryID] = t
	}
	m.order = append(m.order, t)
	return nil
}

// Lookup finds a type by qualified name
func (m *Module) Lookup(qualified string) (*Type, error) {
	if t, ok := m.types[qualified]; ok {
		return t, nil
	}
	return nil, ErrTypeNotFound
}

// LookupID finds a type by repository id
func (m *Module) LookupID(repositoryID string) (*Type, error) {
	if t, ok := m.byID[repositoryID]; ok {
		return t, nil
	}
	return nil, ErrTypeNotFound
}

// Contents returns the types of a kind in definition order; TC_NULL selects all
func (m *Module) Contents(limit TCKind) []*Type {
	results := []*Type{}
	for _, t := range m.order {
		if limit == TC_NULL || t.Kind == limit {
			results = append(results, t)
		}
	}
	return results
}

// Len returns the number of types
func (m *Module) Len() int {
	return len(m.order)
}

// Namespaces returns the sorted set of namespaces used by the module's types
func (m *Module) Namespaces() []string {
	seen := make(map[string]bool)
	for _, t := range m.order {
		seen[t.Namespace] = true
	}
	result := make([]string, 0, len(seen))
	for ns := range seen {
		result = append(result, ns)
	}
	sort.Strings(result)
	return result
}

// InNamespace returns the types declared directly in ns, in definition order
func (m *Module) InNamespace(ns string) []*Type {
	var result []*Type
	for _, t := range m.order {
		if t.Namespace == ns {
			result = append(result, t)
		}
	}
	return result
}

// Incomplete returns the types that were never finalized
func (m *Module) Incomplete() []*Type {
	var result []*Type
	for _, t := range m.order {
		if !t.complete {
			result = append(result, t)
		}
	}
	return result
}

// Seal marks the module as saved
func (m *Module) Seal() {
	m.sealed = true
}

// IsSealed reports whether Seal was called
func (m *Module) IsSealed() bool {
	return m.sealed
}
