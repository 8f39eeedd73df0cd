package idl

import (
	"fmt"

	"github.com/ifabos/go-idlc/typesys"
)

// Position locates a node in the preprocessed source
type Position struct {
	File string
	Line int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("line %d", p.Line)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Node is an element of the specification tree. The set of node types is closed: every
// implementation lives in this file.
type Node interface {
	Pos() Position
	isNode()
}

// TypeSpec is a node that denotes a type
type TypeSpec interface {
	Node
	isTypeSpec()
}

// Expr is a constant expression
type Expr interface {
	Node
	isExpr()
}

type node struct {
	At Position
}

func (n node) Pos() Position { return n.At }
func (node) isNode()         {}

// Specification is the tree of one compilation unit
type Specification struct {
	node
	Unit        string
	Definitions []Node
}

// Module is "module Name { ... };"
type Module struct {
	node
	Name        string
	Definitions []Node
}

// Interface is a concrete, abstract or local interface definition
type Interface struct {
	node
	Name     string
	Abstract bool
	Local    bool
	Bases    []*ScopedName
	Body     []Node
}

// ForwardKind tells what a forward declaration declares
type ForwardKind int

const (
	ForwardInterface ForwardKind = iota
	ForwardValue
)

// ForwardDecl is "interface Name;" or "valuetype Name;"
type ForwardDecl struct {
	node
	Name     string
	Kind     ForwardKind
	Abstract bool
	Local    bool
}

// ValueType is a concrete or abstract value type definition
type ValueType struct {
	node
	Name        string
	Abstract    bool
	Custom      bool
	Truncatable bool
	Bases       []*ScopedName
	Supports    []*ScopedName
	Body        []Node
}

// ValueBox is "valuetype Name <type>;"
type ValueBox struct {
	node
	Name string
	Type TypeSpec
}

// StateMember is a public or private data member of a value type
type StateMember struct {
	node
	Private     bool
	Type        TypeSpec
	Declarators []*Declarator
}

// Initializer is a value type factory declaration
type Initializer struct {
	node
	Name   string
	Params []*Param
	Raises []*ScopedName
}

// Struct is a struct definition; it may also appear inline as a TypeSpec
type Struct struct {
	node
	Name    string
	Members []*Member
}

// Exception is an exception definition
type Exception struct {
	node
	Name    string
	Members []*Member
}

// Member is one member line of a struct or exception
type Member struct {
	node
	Type        TypeSpec
	Declarators []*Declarator
}

// Declarator is a declared name with optional array dimensions
type Declarator struct {
	node
	Name string
	Dims []Expr
}

// Union is a discriminated union definition
type Union struct {
	node
	Name          string
	Discriminator TypeSpec
	Cases         []*Case
}

// Case is one arm of a union
type Case struct {
	node
	Labels     []*CaseLabel
	Type       TypeSpec
	Declarator *Declarator
}

// CaseLabel is "case <expr>:" or "default:"
type CaseLabel struct {
	node
	Default bool
	Value   Expr
}

// Enum is an enum definition
type Enum struct {
	node
	Name        string
	Enumerators []string
}

// Const is a constant declaration
type Const struct {
	node
	Name  string
	Type  TypeSpec
	Value Expr
}

// Typedef declares one or more aliases of a type
type Typedef struct {
	node
	Type        TypeSpec
	Declarators []*Declarator
}

// Operation is an operation of an interface or value type
type Operation struct {
	node
	Name   string
	Oneway bool
	Result TypeSpec
	Params []*Param
	Raises []*ScopedName
}

// Param is an operation or factory parameter
type Param struct {
	node
	Name string
	Mode typesys.ParameterMode
	Type TypeSpec
}

// Attribute declares one or more attributes sharing a type
type Attribute struct {
	node
	Readonly bool
	Type     TypeSpec
	Names    []string
}

// PragmaPrefix is "#pragma prefix "p"" at its position in the definition list
type PragmaPrefix struct {
	node
	Prefix string
}

// PragmaID is "#pragma ID Name "IDL:...""
type PragmaID struct {
	node
	Name *ScopedName
	ID   string
}

// BaseType is a primitive type such as "unsigned long" or "any"
type BaseType struct {
	node
	Kind typesys.TCKind
}

// StringType is string or wstring, optionally bounded
type StringType struct {
	node
	Wide  bool
	Bound Expr
}

// SequenceType is "sequence<T>" or "sequence<T, N>"
type SequenceType struct {
	node
	Elem  TypeSpec
	Bound Expr
}

// ScopedName is a possibly qualified name; it is used both as a type and as an expression
type ScopedName struct {
	node
	Parts    []string
	Absolute bool
}

func (n *ScopedName) String() string {
	s := ""
	for i, part := range n.Parts {
		if i > 0 || n.Absolute {
			s += "::"
		}
		s += part
	}
	return s
}

// IntegerLit is an integer literal in decimal, octal or hexadecimal notation
type IntegerLit struct {
	node
	Text string
}

// FloatLit is a floating point literal
type FloatLit struct {
	node
	Text string
}

// CharLit is a character literal; Body keeps the escape sequences
type CharLit struct {
	node
	Body string
	Wide bool
}

// StringLit is a string literal; Body keeps the escape sequences
type StringLit struct {
	node
	Body string
	Wide bool
}

// BoolLit is TRUE or FALSE
type BoolLit struct {
	node
	Value bool
}

// BinaryExpr is a binary constant expression
type BinaryExpr struct {
	node
	Op    string
	Left  Expr
	Right Expr
}

// UnaryExpr is "-x", "+x" or "~x"
type UnaryExpr struct {
	node
	Op string
	X  Expr
}

func (*BaseType) isTypeSpec()     {}
func (*StringType) isTypeSpec()   {}
func (*SequenceType) isTypeSpec() {}
func (*ScopedName) isTypeSpec()   {}
func (*Struct) isTypeSpec()       {}
func (*Union) isTypeSpec()        {}
func (*Enum) isTypeSpec()         {}

func (*ScopedName) isExpr() {}
func (*IntegerLit) isExpr() {}
func (*FloatLit) isExpr()   {}
func (*CharLit) isExpr()    {}
func (*StringLit) isExpr()  {}
func (*BoolLit) isExpr()    {}
func (*BinaryExpr) isExpr() {}
func (*UnaryExpr) isExpr()  {}
