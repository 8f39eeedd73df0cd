// Package symtab is the scope graph of an IDL compilation session: nested scopes, the
// symbols declared in them, forward-declaration bookkeeping and repository ids.
package symtab

import (
	"errors"
	"fmt"

	"github.com/ifabos/go-idlc/literal"
)

// Common scope errors
var (
	ErrSymbolRedefined     = errors.New("symbol redefined")
	ErrTypedefExists       = errors.New("typedef not possible, this type already exists")
	ErrTopScopeClose       = errors.New("top scope can't be closed")
	ErrPragmaIDRedefined   = errors.New("pragma id redefined")
	ErrOnlyForwardDeclared = errors.New("type only forward declared")
)

// ScopeError reports a violated scope invariant for a symbol
type ScopeError struct {
	Scope  string
	Symbol string
	Err    error
}

func (e *ScopeError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Symbol)
	}
	return fmt.Sprintf("%v: %s (in scope %s)", e.Err, e.Symbol, e.Scope)
}

func (e *ScopeError) Unwrap() error {
	return e.Err
}

// SymbolKind tells what kind of declaration a symbol stands for
type SymbolKind int

const (
	SymbolDefinition SymbolKind = iota
	SymbolForward
	SymbolTypedef
	SymbolValue
)

// String returns the string representation of the SymbolKind
func (k SymbolKind) String() string {
	switch k {
	case SymbolDefinition:
		return "definition"
	case SymbolForward:
		return "forward"
	case SymbolTypedef:
		return "typedef"
	case SymbolValue:
		return "value"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", k)
	}
}

// Symbol is one declared name in a scope
type Symbol struct {
	name  string
	scope *Scope
	kind  SymbolKind
	unit  string
	value literal.Literal
}

func (s *Symbol) Name() string     { return s.name }
func (s *Symbol) Scope() *Scope    { return s.scope }
func (s *Symbol) Kind() SymbolKind { return s.kind }
func (s *Symbol) IsForward() bool  { return s.kind == SymbolForward }

// Unit returns the compilation unit that declared the symbol
func (s *Symbol) Unit() string { return s.unit }

// Value returns the literal bound to a value symbol, or nil before evaluation
func (s *Symbol) Value() literal.Literal { return s.value }

// SetValue binds the evaluated literal of a constant or enumerator
func (s *Symbol) SetValue(v literal.Literal) { s.value = v }

// QualifiedName returns the dot separated target name of the symbol
func (s *Symbol) QualifiedName() string {
	return s.scope.QualifiedNameFor(s.name)
}

// IDLName returns the "::" separated IDL name
func (s *Symbol) IDLName() string {
	prefix := s.scope.IDLName()
	if prefix == "" {
		return "::" + s.name
	}
	return prefix + "::" + s.name
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s %s", s.kind, s.IDLName())
}
