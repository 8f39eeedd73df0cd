// Package idlc is the root package of the IDL compiler. It compiles OMG IDL into a module
// of target types and re-exports the entry points of the compiler packages.
package idlc

import (
	"fmt"

	"github.com/ifabos/go-idlc/compiler"
	"github.com/ifabos/go-idlc/typesys"
)

// Re-export important types from the compiler packages
type (
	// Session owns the scope graph and the type registry of one target module
	Session = compiler.Session

	// Options configures a Session
	Options = compiler.Options

	// Module is a target module of generated types
	Module = typesys.Module

	// Type is one generated type
	Type = typesys.Type

	// InvalidIDLError reports a semantic or syntax error in the input
	InvalidIDLError = compiler.InvalidIDLError
)

// NewSession creates a new compiler session
func NewSession(opts Options) (*Session, error) {
	return compiler.NewSession(opts)
}

// Compile compiles the files in order into one module and finalizes it. The first invalid
// file stops the compilation.
func Compile(opts Options, files ...string) (*Module, error) {
	s, err := compiler.NewSession(opts)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if err := s.CompileFile(file); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}
	return s.Finalize()
}
