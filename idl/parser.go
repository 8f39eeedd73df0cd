// Package idl reads CORBA IDL: it preprocesses the source, parses it into a Specification
// tree and primes the session's symbol table with every declared name.
package idl

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ifabos/go-idlc/symtab"
	"github.com/ifabos/go-idlc/typesys"
)

var (
	pragmaPrefix = regexp.MustCompile(`^#\s*pragma\s+prefix\s+"([^"]*)"\s*$`)
	pragmaID     = regexp.MustCompile(`^#\s*pragma\s+ID\s+((?:::)?[A-Za-z_]\w*(?:::[A-Za-z_]\w*)*)\s+"([^"]*)"\s*$`)
	pragmaOther  = regexp.MustCompile(`^#\s*pragma\b`)
)

var keywords = map[string]bool{
	"abstract": true, "any": true, "attribute": true, "boolean": true, "case": true,
	"char": true, "const": true, "context": true, "custom": true, "default": true,
	"double": true, "enum": true, "exception": true, "factory": true, "FALSE": true,
	"fixed": true, "float": true, "in": true, "inout": true, "interface": true,
	"local": true, "long": true, "module": true, "native": true, "Object": true,
	"octet": true, "oneway": true, "out": true, "private": true, "public": true,
	"raises": true, "readonly": true, "sequence": true, "short": true, "string": true,
	"struct": true, "supports": true, "switch": true, "TRUE": true, "truncatable": true,
	"typedef": true, "unsigned": true, "union": true, "ValueBase": true, "valuetype": true,
	"void": true, "wchar": true, "wstring": true,
}

// SyntaxError reports malformed input, or a declaration rejected by the symbol table
type SyntaxError struct {
	Pos Position
	Msg string
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Parser represents an IDL parser that reads and parses IDL files
type Parser struct {
	lexer        *lexer
	currentToken *token
	table        *symtab.SymbolTable
	pp           *Preprocessor
	inAngle      int
}

// NewParser creates a parser that declares every parsed name in table. All files of a
// session share the table.
func NewParser(table *symtab.SymbolTable, includeDirs ...string) *Parser {
	if table == nil {
		table = symtab.New()
	}
	return &Parser{
		table: table,
		pp:    NewPreprocessor(includeDirs...),
	}
}

// SetIncludeHandler sets a handler for #include directives
func (p *Parser) SetIncludeHandler(handler func(string) (io.Reader, error)) {
	p.pp.SetIncludeHandler(handler)
}

// Define adds a preprocessor macro, "NAME" or "NAME=value"
func (p *Parser) Define(definition string) {
	p.pp.Define(definition)
}

// SymbolTable returns the table primed by the parser
func (p *Parser) SymbolTable() *symtab.SymbolTable {
	return p.table
}

// ParseFile parses an IDL file
func (p *Parser) ParseFile(path string) (*Specification, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return p.Parse(path, bytes.NewReader(data))
}

// Parse parses the compilation unit read from reader
func (p *Parser) Parse(unit string, reader io.Reader) (*Specification, error) {
	source, err := p.pp.Process(unit, reader)
	if err != nil {
		return nil, err
	}
	p.lexer = newLexer(unit, strings.NewReader(source))
	p.table.SetUnit(unit)
	p.inAngle = 0

	// Get the first token
	if err := p.nextToken(); err != nil {
		return nil, err
	}

	spec := &Specification{node: node{At: p.currentToken.pos}, Unit: unit}
	spec.Definitions, err = p.parseDefinitions(false)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// nextToken advances to the next token
func (p *Parser) nextToken() error {
	var err error
	p.currentToken, err = p.lexer.nextToken()
	if err != nil {
		return &SyntaxError{Pos: p.lexer.pos, Msg: err.Error()}
	}
	return nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: p.currentToken.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) declError(pos Position, err error) error {
	return &SyntaxError{Pos: pos, Msg: err.Error(), Err: err}
}

func (p *Parser) here() node {
	return node{At: p.currentToken.pos}
}

func (p *Parser) isKeyword(kw string) bool {
	return p.currentToken.typ == tokenIdentifier && p.currentToken.value == kw
}

func (p *Parser) is(typ tokenType) bool {
	return p.currentToken.typ == typ
}

func (p *Parser) isOperator(op string) bool {
	return p.currentToken.typ == tokenOperator && p.currentToken.value == op
}

// expect checks the current token type and advances past it
func (p *Parser) expect(typ tokenType, what string) error {
	if p.currentToken.typ != typ {
		return p.errorf("expected %s, got %s", what, p.currentToken)
	}
	return p.nextToken()
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return p.errorf("expected %s, got %s", kw, p.currentToken)
	}
	return p.nextToken()
}

func (p *Parser) expectOperator(op string) error {
	if !p.isOperator(op) {
		return p.errorf("expected %s, got %s", op, p.currentToken)
	}
	return p.nextToken()
}

// expectCloseAngle consumes one '>', splitting a '>>' token
func (p *Parser) expectCloseAngle() error {
	if p.isOperator(">>") {
		p.currentToken = &token{typ: tokenOperator, value: ">", pos: p.currentToken.pos}
		return nil
	}
	return p.expectOperator(">")
}

// parseIdentifier returns the current identifier, which must not be a keyword
func (p *Parser) parseIdentifier(what string) (string, error) {
	if p.currentToken.typ != tokenIdentifier || keywords[p.currentToken.value] {
		return "", p.errorf("expected %s, got %s", what, p.currentToken)
	}
	name := p.currentToken.value
	return name, p.nextToken()
}

// parseDefinitions parses definitions up to '}' (nested) or the end of file
func (p *Parser) parseDefinitions(nested bool) ([]Node, error) {
	var defs []Node
	for {
		if p.is(tokenEOF) {
			if nested {
				return nil, p.errorf("expected }, got %s", p.currentToken)
			}
			return defs, nil
		}
		if nested && p.is(tokenCloseBrace) {
			return defs, nil
		}

		def, err := p.parseDefinition()
		if err != nil {
			return nil, err
		}
		if def != nil {
			defs = append(defs, def)
		}
	}
}

// parseDefinition parses a module level definition
func (p *Parser) parseDefinition() (Node, error) {
	if p.is(tokenPreprocessor) {
		return p.parsePragma()
	}
	if p.currentToken.typ != tokenIdentifier {
		return nil, p.errorf("unexpected token: %s", p.currentToken)
	}

	switch p.currentToken.value {
	case "module":
		return p.parseModule()
	case "abstract", "local", "interface", "custom", "valuetype":
		return p.parseInterfaceOrValue()
	case "exception":
		return p.parseException()
	}
	return p.parseCommonDefinition()
}

// parseCommonDefinition parses the definitions allowed in modules, interfaces and value
// types alike
func (p *Parser) parseCommonDefinition() (Node, error) {
	var def Node
	var err error
	switch p.currentToken.value {
	case "struct":
		def, err = p.parseStruct()
	case "union":
		def, err = p.parseUnion()
	case "enum":
		def, err = p.parseEnum()
	case "typedef":
		def, err = p.parseTypedef()
	case "const":
		def, err = p.parseConst()
	case "exception":
		return p.parseException()
	case "native":
		return nil, p.errorf("native types are not supported")
	default:
		return nil, p.errorf("unexpected token: %s", p.currentToken)
	}
	if err != nil {
		return nil, err
	}
	return def, p.expect(tokenSemicolon, ";")
}

// parsePragma handles the directives the preprocessor passed through
func (p *Parser) parsePragma() (Node, error) {
	directive := p.currentToken.value
	at := p.here()

	switch {
	case pragmaPrefix.MatchString(directive):
		prefix := pragmaPrefix.FindStringSubmatch(directive)[1]
		p.table.OpenPragmaScope(prefix)
		return &PragmaPrefix{node: at, Prefix: prefix}, p.nextToken()
	case pragmaID.MatchString(directive):
		m := pragmaID.FindStringSubmatch(directive)
		name := &ScopedName{node: at, Absolute: strings.HasPrefix(m[1], "::")}
		name.Parts = strings.Split(strings.TrimPrefix(m[1], "::"), "::")
		start := p.table.CurrentScope()
		if name.Absolute {
			start = p.table.TopScope()
		}
		sym := p.table.ResolveScopedNameToSymbol(start, name.Parts)
		if sym == nil {
			return nil, p.errorf("#pragma ID for undeclared name %s", name)
		}
		if err := sym.Scope().AddPragmaID(sym.Name(), m[2]); err != nil {
			return nil, p.declError(at.At, err)
		}
		return &PragmaID{node: at, Name: name, ID: m[2]}, p.nextToken()
	case pragmaOther.MatchString(directive):
		// unknown pragmas are ignored
		return nil, p.nextToken()
	}
	return nil, p.errorf("unexpected preprocessor directive: %s", directive)
}

// parseModule parses an IDL module
func (p *Parser) parseModule() (Node, error) {
	mod := &Module{node: p.here()}
	// Skip "module" token
	if err := p.nextToken(); err != nil {
		return nil, err
	}

	var err error
	if mod.Name, err = p.parseIdentifier("module name"); err != nil {
		return nil, err
	}
	if err := p.expect(tokenOpenBrace, "{"); err != nil {
		return nil, err
	}

	p.table.OpenScope(mod.Name, false)
	if mod.Definitions, err = p.parseDefinitions(true); err != nil {
		return nil, err
	}
	if err := p.table.CloseScope(); err != nil {
		return nil, p.declError(mod.At, err)
	}

	if err := p.expect(tokenCloseBrace, "}"); err != nil {
		return nil, err
	}
	return mod, p.expect(tokenSemicolon, ";")
}

// parseInterfaceOrValue parses interfaces and value types with their modifiers
func (p *Parser) parseInterfaceOrValue() (Node, error) {
	at := p.here()
	var abstract, local, custom bool
	for {
		switch {
		case p.isKeyword("abstract"):
			abstract = true
		case p.isKeyword("local"):
			local = true
		case p.isKeyword("custom"):
			custom = true
		case p.isKeyword("interface"):
			if custom {
				return nil, p.errorf("custom is only allowed for value types")
			}
			return p.parseInterface(at, abstract, local)
		case p.isKeyword("valuetype"):
			if local {
				return nil, p.errorf("local is only allowed for interfaces")
			}
			return p.parseValue(at, abstract, custom)
		default:
			return nil, p.errorf("expected interface or valuetype, got %s", p.currentToken)
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
}

// parseInterface parses an IDL interface or its forward declaration
func (p *Parser) parseInterface(at node, abstract, local bool) (Node, error) {
	// Skip "interface" token
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	name, err := p.parseIdentifier("interface name")
	if err != nil {
		return nil, err
	}

	if p.is(tokenSemicolon) {
		p.table.AddFwdDecl(name)
		fwd := &ForwardDecl{node: at, Name: name, Kind: ForwardInterface, Abstract: abstract, Local: local}
		return fwd, p.nextToken()
	}

	iface := &Interface{node: at, Name: name, Abstract: abstract, Local: local}
	if p.is(tokenColon) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if iface.Bases, err = p.parseScopedNameList(); err != nil {
			return nil, err
		}
	}

	if _, err := p.table.AddSymbol(name); err != nil {
		return nil, p.declError(at.At, err)
	}
	if err := p.expect(tokenOpenBrace, "{"); err != nil {
		return nil, err
	}
	p.table.OpenScope(name, true)
	if iface.Body, err = p.parseBody(false); err != nil {
		return nil, err
	}
	if err := p.table.CloseScope(); err != nil {
		return nil, p.declError(at.At, err)
	}
	if err := p.expect(tokenCloseBrace, "}"); err != nil {
		return nil, err
	}
	return iface, p.expect(tokenSemicolon, ";")
}

// parseValue parses value types, value boxes and their forward declarations
func (p *Parser) parseValue(at node, abstract, custom bool) (Node, error) {
	// Skip "valuetype" token
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	name, err := p.parseIdentifier("value type name")
	if err != nil {
		return nil, err
	}

	switch {
	case p.is(tokenSemicolon):
		if custom {
			return nil, p.errorf("a forward declaration can't be custom")
		}
		p.table.AddFwdDecl(name)
		fwd := &ForwardDecl{node: at, Name: name, Kind: ForwardValue, Abstract: abstract}
		return fwd, p.nextToken()
	case p.is(tokenColon), p.is(tokenOpenBrace), p.isKeyword("supports"):
	default:
		if abstract || custom {
			return nil, p.errorf("a value box can't be abstract or custom")
		}
		box := &ValueBox{node: at, Name: name}
		if box.Type, err = p.parseTypeSpec(true); err != nil {
			return nil, err
		}
		if _, err := p.table.AddSymbol(name); err != nil {
			return nil, p.declError(at.At, err)
		}
		return box, p.expect(tokenSemicolon, ";")
	}

	value := &ValueType{node: at, Name: name, Abstract: abstract, Custom: custom}
	if p.is(tokenColon) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if p.isKeyword("truncatable") {
			value.Truncatable = true
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
		if value.Bases, err = p.parseScopedNameList(); err != nil {
			return nil, err
		}
	}
	if p.isKeyword("supports") {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if value.Supports, err = p.parseScopedNameList(); err != nil {
			return nil, err
		}
	}

	if _, err := p.table.AddSymbol(name); err != nil {
		return nil, p.declError(at.At, err)
	}
	if err := p.expect(tokenOpenBrace, "{"); err != nil {
		return nil, err
	}
	p.table.OpenScope(name, true)
	if value.Body, err = p.parseBody(true); err != nil {
		return nil, err
	}
	if err := p.table.CloseScope(); err != nil {
		return nil, p.declError(at.At, err)
	}
	if err := p.expect(tokenCloseBrace, "}"); err != nil {
		return nil, err
	}
	return value, p.expect(tokenSemicolon, ";")
}

// parseBody parses the exports of an interface, or of a value type when value is set
func (p *Parser) parseBody(value bool) ([]Node, error) {
	var body []Node
	for !p.is(tokenCloseBrace) {
		if p.is(tokenEOF) {
			return nil, p.errorf("expected }, got %s", p.currentToken)
		}

		var export Node
		var err error
		switch {
		case p.is(tokenPreprocessor):
			export, err = p.parsePragma()
		case p.isKeyword("readonly"), p.isKeyword("attribute"):
			export, err = p.parseAttribute()
		case value && (p.isKeyword("public") || p.isKeyword("private")):
			export, err = p.parseStateMember()
		case value && p.isKeyword("factory"):
			export, err = p.parseInitializer()
		case p.isKeyword("struct"), p.isKeyword("union"), p.isKeyword("enum"),
			p.isKeyword("typedef"), p.isKeyword("const"), p.isKeyword("exception"),
			p.isKeyword("native"):
			export, err = p.parseCommonDefinition()
		default:
			export, err = p.parseOperation()
		}
		if err != nil {
			return nil, err
		}
		if export != nil {
			body = append(body, export)
		}
	}
	return body, nil
}

// parseStruct parses a struct definition without the trailing ';'
func (p *Parser) parseStruct() (*Struct, error) {
	s := &Struct{node: p.here()}
	// Skip "struct" token
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	var err error
	if s.Name, err = p.parseIdentifier("struct name"); err != nil {
		return nil, err
	}
	if p.is(tokenSemicolon) {
		return nil, p.errorf("forward declared structs are not supported: %s", s.Name)
	}
	if _, err := p.table.AddSymbol(s.Name); err != nil {
		return nil, p.declError(s.At, err)
	}
	if err := p.expect(tokenOpenBrace, "{"); err != nil {
		return nil, err
	}

	p.table.OpenScope(s.Name, true)
	if s.Members, err = p.parseMembers(); err != nil {
		return nil, err
	}
	if err := p.table.CloseScope(); err != nil {
		return nil, p.declError(s.At, err)
	}
	if len(s.Members) == 0 {
		return nil, p.errorf("struct %s has no members", s.Name)
	}
	return s, p.expect(tokenCloseBrace, "}")
}

// parseException parses an exception including the trailing ';'
func (p *Parser) parseException() (Node, error) {
	e := &Exception{node: p.here()}
	// Skip "exception" token
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	var err error
	if e.Name, err = p.parseIdentifier("exception name"); err != nil {
		return nil, err
	}
	if _, err := p.table.AddSymbol(e.Name); err != nil {
		return nil, p.declError(e.At, err)
	}
	if err := p.expect(tokenOpenBrace, "{"); err != nil {
		return nil, err
	}

	p.table.OpenScope(e.Name, true)
	if e.Members, err = p.parseMembers(); err != nil {
		return nil, err
	}
	if err := p.table.CloseScope(); err != nil {
		return nil, p.declError(e.At, err)
	}
	if err := p.expect(tokenCloseBrace, "}"); err != nil {
		return nil, err
	}
	return e, p.expect(tokenSemicolon, ";")
}

// parseMembers parses struct or exception members up to '}'
func (p *Parser) parseMembers() ([]*Member, error) {
	var members []*Member
	for !p.is(tokenCloseBrace) {
		m := &Member{node: p.here()}
		var err error
		if m.Type, err = p.parseTypeSpec(true); err != nil {
			return nil, err
		}
		if m.Declarators, err = p.parseDeclarators(); err != nil {
			return nil, err
		}
		if err := p.expect(tokenSemicolon, ";"); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// parseUnion parses a union definition without the trailing ';'
func (p *Parser) parseUnion() (*Union, error) {
	u := &Union{node: p.here()}
	// Skip "union" token
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	var err error
	if u.Name, err = p.parseIdentifier("union name"); err != nil {
		return nil, err
	}
	if _, err := p.table.AddSymbol(u.Name); err != nil {
		return nil, p.declError(u.At, err)
	}
	if err := p.expectKeyword("switch"); err != nil {
		return nil, err
	}
	if err := p.expect(tokenOpenParen, "("); err != nil {
		return nil, err
	}

	p.table.OpenScope(u.Name, true)
	if u.Discriminator, err = p.parseTypeSpec(true); err != nil {
		return nil, err
	}
	if err := p.expect(tokenCloseParen, ")"); err != nil {
		return nil, err
	}
	if err := p.expect(tokenOpenBrace, "{"); err != nil {
		return nil, err
	}

	for !p.is(tokenCloseBrace) {
		c, err := p.parseCase()
		if err != nil {
			return nil, err
		}
		u.Cases = append(u.Cases, c)
	}
	if err := p.table.CloseScope(); err != nil {
		return nil, p.declError(u.At, err)
	}
	if len(u.Cases) == 0 {
		return nil, p.errorf("union %s has no cases", u.Name)
	}
	return u, p.expect(tokenCloseBrace, "}")
}

// parseCase parses the labels and the element of one union arm
func (p *Parser) parseCase() (*Case, error) {
	c := &Case{node: p.here()}
	for p.isKeyword("case") || p.isKeyword("default") {
		label := &CaseLabel{node: p.here(), Default: p.isKeyword("default")}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if !label.Default {
			var err error
			if label.Value, err = p.parseConstExpr(); err != nil {
				return nil, err
			}
		}
		if err := p.expect(tokenColon, ":"); err != nil {
			return nil, err
		}
		c.Labels = append(c.Labels, label)
	}
	if len(c.Labels) == 0 {
		return nil, p.errorf("expected case or default, got %s", p.currentToken)
	}

	var err error
	if c.Type, err = p.parseTypeSpec(true); err != nil {
		return nil, err
	}
	if c.Declarator, err = p.parseDeclarator(); err != nil {
		return nil, err
	}
	return c, p.expect(tokenSemicolon, ";")
}

// parseEnum parses an enum definition without the trailing ';'
func (p *Parser) parseEnum() (*Enum, error) {
	e := &Enum{node: p.here()}
	// Skip "enum" token
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	var err error
	if e.Name, err = p.parseIdentifier("enum name"); err != nil {
		return nil, err
	}
	if _, err := p.table.AddSymbol(e.Name); err != nil {
		return nil, p.declError(e.At, err)
	}
	if err := p.expect(tokenOpenBrace, "{"); err != nil {
		return nil, err
	}

	for {
		pos := p.currentToken.pos
		name, err := p.parseIdentifier("enumerator")
		if err != nil {
			return nil, err
		}
		// enumerators are declared in the scope enclosing the enum
		if _, err := p.table.AddSymbolValue(name); err != nil {
			return nil, p.declError(pos, err)
		}
		e.Enumerators = append(e.Enumerators, name)
		if !p.is(tokenComma) {
			break
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		// a trailing comma is tolerated
		if p.is(tokenCloseBrace) {
			break
		}
	}
	return e, p.expect(tokenCloseBrace, "}")
}

// parseTypedef parses a typedef without the trailing ';'
func (p *Parser) parseTypedef() (*Typedef, error) {
	td := &Typedef{node: p.here()}
	// Skip "typedef" token
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	var err error
	if td.Type, err = p.parseTypeSpec(true); err != nil {
		return nil, err
	}
	if td.Declarators, err = p.parseDeclarators(); err != nil {
		return nil, err
	}
	for _, d := range td.Declarators {
		if _, err := p.table.AddTypeDef(d.Name); err != nil {
			return nil, p.declError(d.At, err)
		}
	}
	return td, nil
}

// parseConst parses a constant declaration without the trailing ';'
func (p *Parser) parseConst() (*Const, error) {
	c := &Const{node: p.here()}
	// Skip "const" token
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	var err error
	if c.Type, err = p.parseTypeSpec(false); err != nil {
		return nil, err
	}
	if c.Name, err = p.parseIdentifier("constant name"); err != nil {
		return nil, err
	}
	if err := p.expectOperator("="); err != nil {
		return nil, err
	}
	if c.Value, err = p.parseConstExpr(); err != nil {
		return nil, err
	}
	if _, err := p.table.AddSymbolValue(c.Name); err != nil {
		return nil, p.declError(c.At, err)
	}
	return c, nil
}

// parseAttribute parses "[readonly] attribute type name, ...;"
func (p *Parser) parseAttribute() (Node, error) {
	attr := &Attribute{node: p.here()}
	if p.isKeyword("readonly") {
		attr.Readonly = true
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	if err := p.expectKeyword("attribute"); err != nil {
		return nil, err
	}

	var err error
	if attr.Type, err = p.parseTypeSpec(false); err != nil {
		return nil, err
	}
	for {
		name, err := p.parseIdentifier("attribute name")
		if err != nil {
			return nil, err
		}
		attr.Names = append(attr.Names, name)
		if !p.is(tokenComma) {
			break
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	if p.isKeyword("getraises") || p.isKeyword("setraises") {
		return nil, p.errorf("attribute exceptions are not supported")
	}
	return attr, p.expect(tokenSemicolon, ";")
}

// parseOperation parses "[oneway] type name(params) [raises(...)];"
func (p *Parser) parseOperation() (Node, error) {
	op := &Operation{node: p.here()}
	if p.isKeyword("oneway") {
		op.Oneway = true
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}

	var err error
	if p.isKeyword("void") {
		op.Result = &BaseType{node: p.here(), Kind: typesys.TC_VOID}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	} else if op.Result, err = p.parseTypeSpec(false); err != nil {
		return nil, err
	}

	if op.Name, err = p.parseIdentifier("operation name"); err != nil {
		return nil, err
	}
	if op.Params, err = p.parseParams(false); err != nil {
		return nil, err
	}
	if op.Raises, err = p.parseRaises(); err != nil {
		return nil, err
	}
	if p.isKeyword("context") {
		return nil, p.errorf("operation contexts are not supported")
	}
	return op, p.expect(tokenSemicolon, ";")
}

// parseStateMember parses "public|private type declarators;"
func (p *Parser) parseStateMember() (Node, error) {
	sm := &StateMember{node: p.here(), Private: p.isKeyword("private")}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	var err error
	if sm.Type, err = p.parseTypeSpec(true); err != nil {
		return nil, err
	}
	if sm.Declarators, err = p.parseDeclarators(); err != nil {
		return nil, err
	}
	return sm, p.expect(tokenSemicolon, ";")
}

// parseInitializer parses "factory name(in params) [raises(...)];"
func (p *Parser) parseInitializer() (Node, error) {
	init := &Initializer{node: p.here()}
	// Skip "factory" token
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	var err error
	if init.Name, err = p.parseIdentifier("factory name"); err != nil {
		return nil, err
	}
	if init.Params, err = p.parseParams(true); err != nil {
		return nil, err
	}
	if init.Raises, err = p.parseRaises(); err != nil {
		return nil, err
	}
	return init, p.expect(tokenSemicolon, ";")
}

// parseParams parses a parenthesized parameter list; factories only take in parameters
func (p *Parser) parseParams(factory bool) ([]*Param, error) {
	if err := p.expect(tokenOpenParen, "("); err != nil {
		return nil, err
	}
	var params []*Param
	for !p.is(tokenCloseParen) {
		if len(params) > 0 {
			if err := p.expect(tokenComma, ","); err != nil {
				return nil, err
			}
		}
		param := &Param{node: p.here()}
		switch {
		case p.isKeyword("in"):
			param.Mode = typesys.PARAM_IN
		case p.isKeyword("out") && !factory:
			param.Mode = typesys.PARAM_OUT
		case p.isKeyword("inout") && !factory:
			param.Mode = typesys.PARAM_INOUT
		default:
			return nil, p.errorf("expected parameter mode, got %s", p.currentToken)
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		var err error
		if param.Type, err = p.parseTypeSpec(false); err != nil {
			return nil, err
		}
		if param.Name, err = p.parseIdentifier("parameter name"); err != nil {
			return nil, err
		}
		params = append(params, param)
	}
	return params, p.nextToken()
}

// parseRaises parses an optional raises clause
func (p *Parser) parseRaises() ([]*ScopedName, error) {
	if !p.isKeyword("raises") {
		return nil, nil
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.expect(tokenOpenParen, "("); err != nil {
		return nil, err
	}
	names, err := p.parseScopedNameList()
	if err != nil {
		return nil, err
	}
	return names, p.expect(tokenCloseParen, ")")
}

// parseDeclarators parses a comma separated declarator list
func (p *Parser) parseDeclarators() ([]*Declarator, error) {
	var decls []*Declarator
	for {
		d, err := p.parseDeclarator()
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
		if !p.is(tokenComma) {
			return decls, nil
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
}

// parseDeclarator parses a name with optional array dimensions
func (p *Parser) parseDeclarator() (*Declarator, error) {
	d := &Declarator{node: p.here()}
	var err error
	if d.Name, err = p.parseIdentifier("declarator"); err != nil {
		return nil, err
	}
	for p.is(tokenOpenBracket) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		dim, err := p.parseConstExpr()
		if err != nil {
			return nil, err
		}
		d.Dims = append(d.Dims, dim)
		if err := p.expect(tokenCloseBracket, "]"); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// parseScopedNameList parses a comma separated list of scoped names
func (p *Parser) parseScopedNameList() ([]*ScopedName, error) {
	var names []*ScopedName
	for {
		name, err := p.parseScopedName()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if !p.is(tokenComma) {
			return names, nil
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
}

// parseScopedName parses "[::]a::b::c"
func (p *Parser) parseScopedName() (*ScopedName, error) {
	name := &ScopedName{node: p.here()}
	if p.is(tokenScope) {
		name.Absolute = true
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	for {
		part, err := p.parseIdentifier("name")
		if err != nil {
			return nil, err
		}
		name.Parts = append(name.Parts, part)
		if !p.is(tokenScope) {
			return name, nil
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
}

// parseTypeSpec parses a type; constructed types (struct, union, enum) are only accepted
// when constructed is set
func (p *Parser) parseTypeSpec(constructed bool) (TypeSpec, error) {
	at := p.here()
	if p.is(tokenScope) {
		return p.parseScopedName()
	}
	if p.currentToken.typ != tokenIdentifier {
		return nil, p.errorf("expected type, got %s", p.currentToken)
	}

	simple := func(kind typesys.TCKind) (TypeSpec, error) {
		return &BaseType{node: at, Kind: kind}, p.nextToken()
	}

	switch p.currentToken.value {
	case "short":
		return simple(typesys.TC_SHORT)
	case "float":
		return simple(typesys.TC_FLOAT)
	case "double":
		return simple(typesys.TC_DOUBLE)
	case "char":
		return simple(typesys.TC_CHAR)
	case "wchar":
		return simple(typesys.TC_WCHAR)
	case "boolean":
		return simple(typesys.TC_BOOLEAN)
	case "octet":
		return simple(typesys.TC_OCTET)
	case "any":
		return simple(typesys.TC_ANY)
	case "Object":
		return simple(typesys.TC_OBJREF)
	case "long":
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		return p.parseLongTail(at, false)
	case "unsigned":
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		switch {
		case p.isKeyword("short"):
			return simple(typesys.TC_USHORT)
		case p.isKeyword("long"):
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			return p.parseLongTail(at, true)
		}
		return nil, p.errorf("expected short or long after unsigned, got %s", p.currentToken)
	case "string", "wstring":
		return p.parseStringType(at)
	case "sequence":
		return p.parseSequenceType(at)
	case "struct", "union", "enum":
		if !constructed {
			return nil, p.errorf("a %s definition is not allowed here", p.currentToken.value)
		}
		switch p.currentToken.value {
		case "struct":
			return p.parseStruct()
		case "union":
			return p.parseUnion()
		default:
			return p.parseEnum()
		}
	case "fixed", "ValueBase", "void":
		return nil, p.errorf("type %s is not supported here", p.currentToken.value)
	}
	return p.parseScopedName()
}

// parseLongTail finishes "long", "long long" and "long double" after the first "long"
func (p *Parser) parseLongTail(at node, unsigned bool) (TypeSpec, error) {
	switch {
	case p.isKeyword("long"):
		kind := typesys.TC_LONGLONG
		if unsigned {
			kind = typesys.TC_ULONGLONG
		}
		return &BaseType{node: at, Kind: kind}, p.nextToken()
	case p.isKeyword("double"):
		return nil, p.errorf("long double is not supported")
	}
	if unsigned {
		return &BaseType{node: at, Kind: typesys.TC_ULONG}, nil
	}
	return &BaseType{node: at, Kind: typesys.TC_LONG}, nil
}

// parseStringType parses string, wstring and their bounded forms
func (p *Parser) parseStringType(at node) (TypeSpec, error) {
	s := &StringType{node: at, Wide: p.isKeyword("wstring")}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if !p.isOperator("<") {
		return s, nil
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	var err error
	if s.Bound, err = p.parseAngleExpr(); err != nil {
		return nil, err
	}
	return s, p.expectCloseAngle()
}

// parseSequenceType parses "sequence<T>" and "sequence<T, N>"
func (p *Parser) parseSequenceType(at node) (TypeSpec, error) {
	seq := &SequenceType{node: at}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.expectOperator("<"); err != nil {
		return nil, err
	}
	p.inAngle++
	elem, err := p.parseTypeSpec(false)
	p.inAngle--
	if err != nil {
		return nil, err
	}
	seq.Elem = elem
	if p.is(tokenComma) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if seq.Bound, err = p.parseAngleExpr(); err != nil {
			return nil, err
		}
	}
	return seq, p.expectCloseAngle()
}

// parseAngleExpr parses an expression inside <...>, where '>' ends the expression
func (p *Parser) parseAngleExpr() (Expr, error) {
	p.inAngle++
	defer func() { p.inAngle-- }()
	return p.parseConstExpr()
}

// parseConstExpr parses a constant expression with the IDL operator precedence
func (p *Parser) parseConstExpr() (Expr, error) {
	return p.parseBinary(0)
}

var precedence = [][]string{
	{"|"},
	{"^"},
	{"&"},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *Parser) parseBinary(level int) (Expr, error) {
	if level == len(precedence) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for p.is(tokenOperator) && contains(precedence[level], p.currentToken.value) {
		op := p.currentToken.value
		if op == ">>" && p.inAngle > 0 {
			break
		}
		at := p.here()
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{node: at, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.isOperator("-") || p.isOperator("+") || p.isOperator("~") {
		u := &UnaryExpr{node: p.here(), Op: p.currentToken.value}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		var err error
		if u.X, err = p.parsePrimary(); err != nil {
			return nil, err
		}
		return u, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	at := p.here()
	tok := p.currentToken

	switch tok.typ {
	case tokenOpenParen:
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		saved := p.inAngle
		p.inAngle = 0
		inner, err := p.parseConstExpr()
		p.inAngle = saved
		if err != nil {
			return nil, err
		}
		return inner, p.expect(tokenCloseParen, ")")
	case tokenInteger:
		return &IntegerLit{node: at, Text: tok.value}, p.nextToken()
	case tokenFloat:
		return &FloatLit{node: at, Text: tok.value}, p.nextToken()
	case tokenChar, tokenWChar:
		return &CharLit{node: at, Body: tok.value, Wide: tok.typ == tokenWChar}, p.nextToken()
	case tokenString, tokenWString:
		lit := &StringLit{node: at, Wide: tok.typ == tokenWString}
		// adjacent string literals are concatenated
		var body strings.Builder
		for p.is(tok.typ) {
			body.WriteString(p.currentToken.value)
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
		lit.Body = body.String()
		return lit, nil
	case tokenIdentifier:
		switch tok.value {
		case "TRUE", "FALSE":
			return &BoolLit{node: at, Value: tok.value == "TRUE"}, p.nextToken()
		case "Infinity":
			return &FloatLit{node: at, Text: tok.value}, p.nextToken()
		}
		return p.parseScopedName()
	case tokenScope:
		return p.parseScopedName()
	}
	return nil, p.errorf("expected expression, got %s", tok)
}

func contains(list []string, s string) bool {
	for _, cur := range list {
		if cur == s {
			return true
		}
	}
	return false
}
