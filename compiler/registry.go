package compiler

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/ifabos/go-idlc/symtab"
	"github.com/ifabos/go-idlc/typesys"
)

type entryState int

const (
	stateForward entryState = iota
	stateDefined
	stateExternal
)

type entry struct {
	typ   *typesys.Type
	state entryState
}

// TypeManager is the registry of the types of a session, keyed by the declaring symbol. An
// entry is forward (a stub members can still be added to), defined, or external (taken from
// a reference source). forward only ever becomes defined; external never changes.
type TypeManager struct {
	module   *typesys.Module
	table    *symtab.SymbolTable
	resolver *ExternalTypeResolver
	diags    *Diagnostics
	logger   *slog.Logger

	entries   map[*symtab.Symbol]*entry
	typedefs  map[*symtab.Symbol]typesys.TypeDescriptor
	published map[*symtab.Symbol]*typesys.Type
}

func newTypeManager(module *typesys.Module, table *symtab.SymbolTable, resolver *ExternalTypeResolver,
	diags *Diagnostics, logger *slog.Logger) *TypeManager {
	return &TypeManager{
		module:    module,
		table:     table,
		resolver:  resolver,
		diags:     diags,
		logger:    logger,
		entries:   make(map[*symtab.Symbol]*entry),
		typedefs:  make(map[*symtab.Symbol]typesys.TypeDescriptor),
		published: make(map[*symtab.Symbol]*typesys.Type),
	}
}

// RegisterForwardDeclaration registers the stub of a type whose members follow later
func (m *TypeManager) RegisterForwardDeclaration(stub *typesys.Type, sym *symtab.Symbol) error {
	if _, exists := m.entries[sym]; exists {
		return internalf("type %s is already declared", sym.IDLName())
	}
	if err := m.module.Add(stub); err != nil {
		return &InternalError{Msg: "failed to add " + sym.IDLName(), Err: err}
	}
	m.entries[sym] = &entry{typ: stub, state: stateForward}
	m.logger.Debug("type forward declared", "type", stub.QualifiedName())
	return nil
}

// CompleteTypeDefinition finalizes a stub registered with RegisterForwardDeclaration
func (m *TypeManager) CompleteTypeDefinition(sym *symtab.Symbol) error {
	e, ok := m.entries[sym]
	if !ok || e.state != stateForward {
		return internalf("type %s is not forward declared", sym.IDLName())
	}
	e.typ.Complete()
	e.state = stateDefined
	m.logger.Debug("type defined", "type", e.typ.QualifiedName(), "kind", e.typ.Kind.String())
	return nil
}

// RegisterTypeDefinition registers a type that is complete on arrival
func (m *TypeManager) RegisterTypeDefinition(t *typesys.Type, sym *symtab.Symbol) error {
	if _, exists := m.entries[sym]; exists {
		return internalf("type %s is already declared", sym.IDLName())
	}
	if err := m.module.Add(t); err != nil {
		return &InternalError{Msg: "failed to add " + sym.IDLName(), Err: err}
	}
	t.Complete()
	m.entries[sym] = &entry{typ: t, state: stateDefined}
	m.logger.Debug("type defined", "type", t.QualifiedName(), "kind", t.Kind.String())
	return nil
}

// IsForwardDeclared reports whether only a stub exists for sym
func (m *TypeManager) IsForwardDeclared(sym *symtab.Symbol) bool {
	e, ok := m.entries[sym]
	return ok && e.state == stateForward
}

// IsFullyDeclared reports whether sym names a defined or external type
func (m *TypeManager) IsFullyDeclared(sym *symtab.Symbol) bool {
	e, ok := m.entries[sym]
	return ok && e.state != stateForward
}

// IsKnown reports whether any entry exists for sym
func (m *TypeManager) IsKnown(sym *symtab.Symbol) bool {
	_, ok := m.entries[sym]
	return ok
}

// Lookup returns the registered type of sym, stub or not
func (m *TypeManager) Lookup(sym *symtab.Symbol) (*typesys.Type, bool) {
	e, ok := m.entries[sym]
	if !ok {
		return nil, false
	}
	return e.typ, true
}

// CheckSkip reports whether the definition of sym must not be generated: it was generated
// by an earlier file, or a reference source supplies it. Reference types are registered as
// external entries on first sight.
func (m *TypeManager) CheckSkip(sym *symtab.Symbol) bool {
	if e, ok := m.entries[sym]; ok {
		switch e.state {
		case stateDefined:
			m.diags.add(DiagSkippedDuplicate, sym.IDLName(), "type already defined, skipping its redeclaration")
			return true
		case stateExternal:
			return true
		}
		return false
	}
	if _, ok := m.typedefs[sym]; ok {
		m.diags.add(DiagSkippedDuplicate, sym.IDLName(), "typedef already defined, skipping its redeclaration")
		return true
	}
	if t := m.GetExternalType(sym); t != nil {
		m.entries[sym] = &entry{typ: t, state: stateExternal}
		m.logger.Debug("type taken from reference", "type", t.QualifiedName())
		return true
	}
	return false
}

// GetExternalType looks sym up in the reference sources. A type found by name but carrying a
// different repository id is reported and ignored.
func (m *TypeManager) GetExternalType(sym *symtab.Symbol) *typesys.Type {
	t, ok := m.resolver.Resolve(sym.QualifiedName())
	if !ok {
		return nil
	}
	if id := m.table.ConstructRepositoryID(sym); t.RepositoryID != id {
		m.diags.add(DiagRepositoryIDMismatch, sym.IDLName(),
			"reference type %s has repository id %s, expected %s", t.QualifiedName(), t.RepositoryID, id)
		return nil
	}
	return t
}

// RegisterTypedef records the descriptor an alias stands for
func (m *TypeManager) RegisterTypedef(sym *symtab.Symbol, d typesys.TypeDescriptor) error {
	if _, exists := m.typedefs[sym]; exists {
		return internalf("typedef %s is already registered", sym.IDLName())
	}
	m.typedefs[sym] = d
	return nil
}

// Typedef returns the descriptor of an alias
func (m *TypeManager) Typedef(sym *symtab.Symbol) (typesys.TypeDescriptor, bool) {
	d, ok := m.typedefs[sym]
	return d, ok
}

// HasTypedef reports whether sym is a registered alias
func (m *TypeManager) HasTypedef(sym *symtab.Symbol) bool {
	_, ok := m.typedefs[sym]
	return ok
}

// PublishRecursion makes a type under construction visible to its own members
func (m *TypeManager) PublishRecursion(sym *symtab.Symbol, t *typesys.Type) {
	m.published[sym] = t
}

// UnpublishRecursion ends the visibility set up by PublishRecursion
func (m *TypeManager) UnpublishRecursion(sym *symtab.Symbol) {
	delete(m.published, sym)
}

// Published returns the type under construction for sym
func (m *TypeManager) Published(sym *symtab.Symbol) (*typesys.Type, bool) {
	t, ok := m.published[sym]
	return t, ok
}

// AssertAllTypesDefined fails when a stub was never completed
func (m *TypeManager) AssertAllTypesDefined() error {
	incomplete := m.module.Incomplete()
	if len(incomplete) == 0 {
		return nil
	}
	names := make([]string, len(incomplete))
	for i, t := range incomplete {
		names[i] = t.QualifiedName()
	}
	sort.Strings(names)
	return internalf("types not completed: %s", strings.Join(names, ", "))
}
