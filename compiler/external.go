package compiler

import (
	"github.com/ifabos/go-idlc/typesys"
)

// ReferenceSource supplies types produced outside the current session, for example a module
// manifest written by an earlier run
type ReferenceSource interface {
	LookupType(qualifiedName string) (*typesys.Type, bool)
}

type moduleSource struct {
	module *typesys.Module
}

// ModuleReference exposes an in-memory module as a reference source
func ModuleReference(m *typesys.Module) ReferenceSource {
	return moduleSource{module: m}
}

func (s moduleSource) LookupType(qualifiedName string) (*typesys.Type, bool) {
	t, err := s.module.Lookup(qualifiedName)
	if err != nil {
		return nil, false
	}
	return t, true
}

// ExternalTypeResolver searches the reference sources of a session in order
type ExternalTypeResolver struct {
	sources []ReferenceSource
}

// NewExternalTypeResolver creates a resolver over sources; earlier sources win
func NewExternalTypeResolver(sources ...ReferenceSource) *ExternalTypeResolver {
	return &ExternalTypeResolver{sources: sources}
}

// Resolve returns the first type with the qualified name. The caller verifies the
// repository id.
func (r *ExternalTypeResolver) Resolve(qualifiedName string) (*typesys.Type, bool) {
	if r == nil {
		return nil, false
	}
	for _, src := range r.sources {
		if t, ok := src.LookupType(qualifiedName); ok {
			return t, true
		}
	}
	return nil, false
}
