package compiler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/ifabos/go-idlc/idl"
	"github.com/ifabos/go-idlc/literal"
	"github.com/ifabos/go-idlc/mapping"
	"github.com/ifabos/go-idlc/symtab"
	"github.com/ifabos/go-idlc/typesys"
)

// ModuleWriter persists the module produced by a session
type ModuleWriter interface {
	// BeginModule is called once, before any file is compiled
	BeginModule(name, outputLocation string) error
	// SaveModule receives the sealed module at the end of the session
	SaveModule(m *typesys.Module) error
}

// Options configures a session
type Options struct {
	ModuleName     string
	OutputLocation string
	// Mappings replaces IDL types by existing target types at their use sites
	Mappings *mapping.Table
	// References are searched for types already defined elsewhere
	References []ReferenceSource
	Mode       literal.Mode
	Logger     *slog.Logger
	Writer     ModuleWriter

	IncludeDirs []string
	Defines     []string
}

// Session compiles a sequence of IDL files into one module. The files share the scope
// graph and the type registry, so a later file sees what earlier files defined.
type Session struct {
	table    *symtab.SymbolTable
	types    *TypeManager
	module   *typesys.Module
	parser   *idl.Parser
	mappings *mapping.Table
	mode     literal.Mode
	diags    *Diagnostics
	logger   *slog.Logger
	writer   ModuleWriter

	finalized bool
}

// NewSession creates a session and announces the module to the writer
func NewSession(opts Options) (*Session, error) {
	if opts.ModuleName == "" {
		return nil, errors.New("module name is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("module", opts.ModuleName)

	table := symtab.New()
	module := typesys.NewModule(opts.ModuleName)
	diags := newDiagnostics(logger)
	s := &Session{
		table:    table,
		module:   module,
		parser:   idl.NewParser(table, opts.IncludeDirs...),
		mappings: opts.Mappings,
		mode:     opts.Mode,
		diags:    diags,
		logger:   logger,
		writer:   opts.Writer,
	}
	s.types = newTypeManager(module, table, NewExternalTypeResolver(opts.References...), diags, logger)
	for _, def := range opts.Defines {
		s.parser.Define(def)
	}

	if s.writer != nil {
		if err := s.writer.BeginModule(opts.ModuleName, opts.OutputLocation); err != nil {
			return nil, fmt.Errorf("failed to begin module %s: %w", opts.ModuleName, err)
		}
	}
	logger.Debug("session started", "output", opts.OutputLocation, "mode", opts.Mode)
	return s, nil
}

// SetIncludeHandler replaces the file system lookup of included files
func (s *Session) SetIncludeHandler(handler func(string) (io.Reader, error)) {
	s.parser.SetIncludeHandler(handler)
}

// Parse parses one compilation unit, declaring its names in the session's scope graph
func (s *Session) Parse(unit string, r io.Reader) (*idl.Specification, error) {
	if s.finalized {
		return nil, ErrSessionFinalized
	}
	spec, err := s.parser.Parse(unit, r)
	if err != nil {
		var se *idl.SyntaxError
		if errors.As(err, &se) {
			return nil, &InvalidIDLError{Pos: se.Pos, Rule: ErrSyntax, Err: se}
		}
		return nil, fmt.Errorf("failed to parse %s: %w", unit, err)
	}
	return spec, nil
}

// Generate materializes the definitions of a parsed unit. Forward declarations left open
// by the units parsed so far are reported before anything is generated.
func (s *Session) Generate(spec *idl.Specification) error {
	if s.finalized {
		return ErrSessionFinalized
	}
	if err := s.checkForwards(); err != nil {
		return err
	}
	if err := newGenerator(s).Generate(spec); err != nil {
		return err
	}
	return s.checkForwards()
}

// Compile parses and generates one compilation unit
func (s *Session) Compile(unit string, r io.Reader) error {
	spec, err := s.Parse(unit, r)
	if err != nil {
		return err
	}
	s.logger.Info("compiling", "unit", unit)
	return s.Generate(spec)
}

// CompileFile compiles the IDL file at path
func (s *Session) CompileFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return s.Compile(path, f)
}

// Finalize verifies that every declared type has been defined, seals the module and hands
// it to the writer. No file can be compiled afterwards.
func (s *Session) Finalize() (*typesys.Module, error) {
	if s.finalized {
		return nil, ErrSessionFinalized
	}
	if err := s.checkForwards(); err != nil {
		return nil, err
	}
	if err := s.types.AssertAllTypesDefined(); err != nil {
		return nil, err
	}
	s.module.Seal()
	s.finalized = true
	if s.writer != nil {
		if err := s.writer.SaveModule(s.module); err != nil {
			return nil, fmt.Errorf("failed to save module %s: %w", s.module.Name, err)
		}
	}
	s.logger.Info("module finalized", "types", s.module.Len())
	return s.module, nil
}

func (s *Session) checkForwards() error {
	if err := s.table.CheckAllFwdDeclsComplete(); err != nil {
		return &InvalidIDLError{Rule: symtab.ErrOnlyForwardDeclared, Err: err}
	}
	return nil
}

// Module returns the module under construction
func (s *Session) Module() *typesys.Module { return s.module }

// SymbolTable returns the scope graph shared by all units
func (s *Session) SymbolTable() *symtab.SymbolTable { return s.table }

// Types returns the type registry
func (s *Session) Types() *TypeManager { return s.types }

// Diagnostics returns the notices collected so far
func (s *Session) Diagnostics() *Diagnostics { return s.diags }

// ImplementationsExpected lists the value types for which an implementation has to be
// provided, by qualified name
func (s *Session) ImplementationsExpected() []string {
	var names []string
	for _, t := range s.module.Contents(typesys.TC_VALUE) {
		if t.ImplExpected {
			names = append(names, t.QualifiedName())
		}
	}
	sort.Strings(names)
	return names
}
