package compiler

import (
	"errors"
	"fmt"

	"github.com/ifabos/go-idlc/idl"
)

// Rules violated by invalid IDL
var (
	ErrSyntax              = errors.New("malformed IDL")
	ErrUndeclared          = errors.New("name not declared")
	ErrNotAType            = errors.New("name does not denote a type")
	ErrNotAConstant        = errors.New("name does not denote a constant")
	ErrUsedBeforeDefined   = errors.New("type used before its definition")
	ErrRecursiveType       = errors.New("recursive type only allowed through a sequence")
	ErrAbstractLocal       = errors.New("an interface can't be abstract and local")
	ErrFlavorMismatch      = errors.New("definition does not match its forward declaration")
	ErrInvalidBase         = errors.New("invalid base type")
	ErrIncompleteBase      = errors.New("base type is only forward declared")
	ErrConcreteParentFirst = errors.New("the concrete base value type must be the first base")
	ErrTwoConcreteParents  = errors.New("a value type can inherit from at most one concrete value type")
	ErrTruncatable         = errors.New("truncatable requires a concrete base value type")
	ErrInvalidSupports     = errors.New("a value type can only support interfaces")
	ErrSupportsConcrete    = errors.New("a value type can support at most one concrete interface")
	ErrBoxedValue          = errors.New("a value type can't be boxed")
	ErrDuplicateMember     = errors.New("duplicate member name")
	ErrDuplicateParam      = errors.New("duplicate parameter name")
	ErrNotAnException      = errors.New("raises clause names a type that is not an exception")
	ErrOneway              = errors.New("a oneway operation must return void and take only in parameters")
	ErrDiscriminatorType   = errors.New("invalid union discriminator type")
	ErrUnionLabels         = errors.New("invalid union labels")
	ErrLabelType           = errors.New("case label not assignable to the discriminator")
	ErrDuplicateLabel      = errors.New("duplicate case label")
	ErrDuplicateDefault    = errors.New("more than one default case")
	ErrConstantType        = errors.New("invalid constant type")
	ErrConstantValue       = errors.New("invalid constant value")
	ErrBound               = errors.New("bound must be a non-negative integer")
	ErrDimension           = errors.New("array dimension must be a positive integer")
	ErrSessionFinalized    = errors.New("session already finalized")
)

// InvalidIDLError reports a semantic violation in the compiled IDL. It names the symbol and
// the broken rule; Err carries the underlying cause, if any.
type InvalidIDLError struct {
	Symbol string
	Rule   error
	Pos    idl.Position
	Err    error
}

func (e *InvalidIDLError) Error() string {
	msg := e.Rule.Error()
	if e.Symbol != "" {
		msg = fmt.Sprintf("%s: %s", e.Symbol, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Pos.Line > 0 {
		msg = fmt.Sprintf("%s: %s", e.Pos, msg)
	}
	return "invalid IDL: " + msg
}

func (e *InvalidIDLError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Rule}
	}
	return []error{e.Rule, e.Err}
}

// InternalError reports a broken precondition of the compiler itself
type InternalError struct {
	Msg string
	Err error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("internal compiler error: %s: %v", e.Msg, e.Err)
	}
	return "internal compiler error: " + e.Msg
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

func internalf(format string, args ...any) error {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}
