package symtab

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Scope is a node of the scope graph
type Scope struct {
	name      string
	parent    *Scope
	children  map[string]*Scope
	childList []*Scope
	symbols   map[string]*Symbol
	symList   []*Symbol
	pragmaIDs map[string]string
	inherited []*Scope
	typeScope bool
	pragma    bool
}

func newScope(name string, parent *Scope, typeScope, pragma bool) *Scope {
	s := &Scope{
		name:      name,
		parent:    parent,
		children:  make(map[string]*Scope),
		symbols:   make(map[string]*Symbol),
		pragmaIDs: make(map[string]string),
		typeScope: typeScope,
		pragma:    pragma,
	}
	if parent != nil {
		parent.children[name] = s
		parent.childList = append(parent.childList, s)
	}
	return s
}

func (s *Scope) Name() string      { return s.name }
func (s *Scope) Parent() *Scope    { return s.parent }
func (s *Scope) IsTypeScope() bool { return s.typeScope }

// IsPragma reports whether the scope was opened by a #pragma prefix directive
func (s *Scope) IsPragma() bool { return s.pragma }

// Children returns the child scopes in creation order
func (s *Scope) Children() []*Scope { return s.childList }

// Child finds a direct child scope, looking through pragma scopes transparently
func (s *Scope) Child(name string) *Scope {
	if c, ok := s.children[name]; ok {
		return c
	}
	for _, c := range s.childList {
		if c.pragma {
			if found := c.Child(name); found != nil {
				return found
			}
		}
	}
	return nil
}

// Symbol finds a symbol declared in s, looking through pragma scopes transparently
func (s *Scope) Symbol(name string) *Symbol {
	if sym, ok := s.symbols[name]; ok {
		return sym
	}
	for _, c := range s.childList {
		if c.pragma {
			if found := c.Symbol(name); found != nil {
				return found
			}
		}
	}
	return nil
}

// Symbols returns the symbols declared directly in s in declaration order
func (s *Scope) Symbols() []*Symbol { return s.symList }

func (s *Scope) redefined(name string, err error) error {
	return &ScopeError{Scope: s.IDLName(), Symbol: name, Err: err}
}

func (s *Scope) put(name string, kind SymbolKind, unit string) *Symbol {
	sym := &Symbol{name: name, scope: s, kind: kind, unit: unit}
	s.symbols[name] = sym
	s.symList = append(s.symList, sym)
	return sym
}

// AddSymbol adds a full definition. A forward declaration of the same name is completed in
// place. A definition made by another compilation unit is returned unchanged so the caller
// can skip it.
func (s *Scope) AddSymbol(name, unit string) (*Symbol, error) {
	if sym, ok := s.symbols[name]; ok {
		switch {
		case sym.kind == SymbolForward:
			sym.kind = SymbolDefinition
			sym.unit = unit
			return sym, nil
		case sym.kind == SymbolDefinition && sym.unit != unit:
			return sym, nil
		}
		return nil, s.redefined(name, ErrSymbolRedefined)
	}
	return s.put(name, SymbolDefinition, unit), nil
}

// AddSymbolValue adds a constant or enumerator
func (s *Scope) AddSymbolValue(name, unit string) (*Symbol, error) {
	if sym, ok := s.symbols[name]; ok {
		if sym.kind == SymbolValue && sym.unit != unit {
			return sym, nil
		}
		return nil, s.redefined(name, ErrSymbolRedefined)
	}
	return s.put(name, SymbolValue, unit), nil
}

// AddFwdDecl records a forward declaration; any existing symbol makes it a no-op
func (s *Scope) AddFwdDecl(name, unit string) *Symbol {
	if sym, ok := s.symbols[name]; ok {
		return sym
	}
	return s.put(name, SymbolForward, unit)
}

// AddTypeDef adds a typedef name
func (s *Scope) AddTypeDef(name, unit string) (*Symbol, error) {
	if sym, ok := s.symbols[name]; ok {
		if sym.kind == SymbolTypedef && sym.unit != unit {
			return sym, nil
		}
		return nil, s.redefined(name, ErrTypedefExists)
	}
	return s.put(name, SymbolTypedef, unit), nil
}

// AddPragmaID overrides the repository id of name; assigning the same id again is allowed
func (s *Scope) AddPragmaID(name, id string) error {
	if prev, ok := s.pragmaIDs[name]; ok && prev != id {
		return &ScopeError{
			Scope:  s.IDLName(),
			Symbol: name,
			Err:    fmt.Errorf("%w: last value %s, redefinition %s", ErrPragmaIDRedefined, prev, id),
		}
	}
	s.pragmaIDs[name] = id
	return nil
}

// PragmaID returns the repository id override for name
func (s *Scope) PragmaID(name string) (string, bool) {
	id, ok := s.pragmaIDs[name]
	return id, ok
}

// AddInheritedScope makes the symbols of base visible from s
func (s *Scope) AddInheritedScope(base *Scope) {
	for _, cur := range s.inherited {
		if cur == base {
			return
		}
	}
	s.inherited = append(s.inherited, base)
}

// InheritedScopes returns the scopes added with AddInheritedScope
func (s *Scope) InheritedScopes() []*Scope { return s.inherited }

// IDLName returns the "::" separated IDL name of the scope, skipping pragma scopes
func (s *Scope) IDLName() string {
	var parts []string
	for cur := s; cur != nil && cur.parent != nil; cur = cur.parent {
		if !cur.pragma {
			parts = append([]string{cur.name}, parts...)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "::" + strings.Join(parts, "::")
}

// QualifiedName returns the dot separated target namespace of the scope; type scopes
// contribute "<name>_package"
func (s *Scope) QualifiedName() string {
	var parts []string
	for cur := s; cur != nil && cur.parent != nil; cur = cur.parent {
		name := cur.name
		if cur.typeScope {
			name += "_package"
		}
		parts = append([]string{MapName(name)}, parts...)
	}
	return strings.Join(parts, ".")
}

// QualifiedNameFor returns the target name of a symbol declared in s
func (s *Scope) QualifiedNameFor(symbolName string) string {
	ns := s.QualifiedName()
	if ns == "" {
		return MapName(symbolName)
	}
	return ns + "." + MapName(symbolName)
}

// RepositoryIDPart returns the repository id path of the scope. A pragma scope contributes
// its own prefix only; ordinary scopes drop one leading escape underscore.
func (s *Scope) RepositoryIDPart() string {
	if s.pragma {
		return s.name
	}
	result := strings.TrimPrefix(s.name, "_")
	if s.parent != nil {
		if parentPart := s.parent.RepositoryIDPart(); parentPart != "" {
			if result == "" {
				return parentPart
			}
			result = parentPart + "/" + result
		}
	}
	return result
}

// ForwardOnly returns every symbol below s that was never completed
func (s *Scope) ForwardOnly() []*Symbol {
	var result []*Symbol
	for _, sym := range s.symList {
		if sym.kind == SymbolForward {
			result = append(result, sym)
		}
	}
	for _, c := range s.childList {
		result = append(result, c.ForwardOnly()...)
	}
	return result
}

// CheckAllFwdCompleted fails with one error per symbol that is only forward declared
func (s *Scope) CheckAllFwdCompleted() error {
	var result error
	for _, sym := range s.ForwardOnly() {
		result = multierror.Append(result, &ScopeError{
			Scope:  sym.scope.IDLName(),
			Symbol: sym.name,
			Err:    ErrOnlyForwardDeclared,
		})
	}
	return result
}

func (s *Scope) String() string {
	var b strings.Builder
	s.dump(&b, 0)
	return b.String()
}

func (s *Scope) dump(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%sscope %q\n", indent, s.name)
	for _, sym := range s.symList {
		fmt.Fprintf(b, "%s  %s %s\n", indent, sym.kind, sym.name)
	}
	for _, c := range s.childList {
		c.dump(b, depth+1)
	}
}
