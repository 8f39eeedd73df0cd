// Package literal implements IDL constant values and the constant-expression algebra over
// them. Literals are immutable; every operation returns a new value or an error.
package literal

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/ifabos/go-idlc/typesys"
)

// Kind is the family of a literal
type Kind int

const (
	KindInteger Kind = iota
	KindFloat
	KindChar
	KindString
	KindBoolean
	KindEnumValue
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindEnumValue:
		return "enum"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", k)
	}
}

// Literal is a typed IDL constant value
type Literal interface {
	Kind() Kind
	String() string
	// Value returns the Go value: *big.Int, float64, rune, string, bool or EnumValue
	Value() any

	IntValue() (*big.Int, error)
	FloatValue() (float64, error)
	CharValue() (rune, error)
	StringValue() (string, error)
	BoolValue() (bool, error)

	Or(Literal) (Literal, error)
	Xor(Literal) (Literal, error)
	And(Literal) (Literal, error)
	ShiftLeft(Literal) (Literal, error)
	ShiftRight(Literal) (Literal, error)
	Mul(Literal) (Literal, error)
	Div(Literal) (Literal, error)
	Mod(Literal) (Literal, error)
	Add(Literal) (Literal, error)
	Sub(Literal) (Literal, error)
	// Negate is the unary ~ operator
	Negate() (Literal, error)
	// InvertSign is the unary - operator
	InvertSign() (Literal, error)

	IsAssignableTo(target typesys.TypeDescriptor) bool
	Convert(target typesys.TypeDescriptor, mode Mode) (any, error)
}

// opaque supplies the failing default for every operation; each family overrides what it
// supports
type opaque struct {
	kind Kind
	text string
}

func (o opaque) Kind() Kind     { return o.kind }
func (o opaque) String() string { return o.text }

func (o opaque) want(k Kind) error {
	return &OperandError{Want: k, Found: o.kind, Operand: o.text}
}

func (o opaque) op(op string) error {
	return &OperandError{Op: op, Found: o.kind, Operand: o.text}
}

func (o opaque) IntValue() (*big.Int, error)   { return nil, o.want(KindInteger) }
func (o opaque) FloatValue() (float64, error)  { return 0, o.want(KindFloat) }
func (o opaque) CharValue() (rune, error)      { return 0, o.want(KindChar) }
func (o opaque) StringValue() (string, error)  { return "", o.want(KindString) }
func (o opaque) BoolValue() (bool, error)      { return false, o.want(KindBoolean) }
func (o opaque) Or(Literal) (Literal, error)   { return nil, o.op("|") }
func (o opaque) Xor(Literal) (Literal, error)  { return nil, o.op("^") }
func (o opaque) And(Literal) (Literal, error)  { return nil, o.op("&") }
func (o opaque) Mul(Literal) (Literal, error)  { return nil, o.op("*") }
func (o opaque) Div(Literal) (Literal, error)  { return nil, o.op("/") }
func (o opaque) Mod(Literal) (Literal, error)  { return nil, o.op("%") }
func (o opaque) Add(Literal) (Literal, error)  { return nil, o.op("+") }
func (o opaque) Sub(Literal) (Literal, error)  { return nil, o.op("-") }
func (o opaque) Negate() (Literal, error)      { return nil, o.op("~") }
func (o opaque) InvertSign() (Literal, error)  { return nil, o.op("unary -") }
func (o opaque) ShiftLeft(Literal) (Literal, error) {
	return nil, o.op("<<")
}
func (o opaque) ShiftRight(Literal) (Literal, error) {
	return nil, o.op(">>")
}

var (
	minInt64  = big.NewInt(math.MinInt64)
	maxInt64  = big.NewInt(math.MaxInt64)
	maxUint64 = new(big.Int).SetUint64(math.MaxUint64)
	two64     = new(big.Int).Lsh(big.NewInt(1), 64)
)

// Integer is an integer literal. Parsed values cover [MinInt64, MaxUint64]; arithmetic on
// them is exact, and the 64-bit wraparound is applied when the result is converted.
type Integer struct {
	opaque
	v *big.Int
}

// NewInteger creates an integer literal
func NewInteger(v int64) Integer {
	return newInteger(big.NewInt(v))
}

// NewUnsigned creates an integer literal from an unsigned value
func NewUnsigned(v uint64) Integer {
	return newInteger(new(big.Int).SetUint64(v))
}

// NewBigInteger creates an integer literal, failing when v is outside the 64-bit domains
func NewBigInteger(v *big.Int) (Integer, error) {
	if v.Cmp(minInt64) < 0 {
		return Integer{}, &RangeError{Text: v.String(), Reason: "too small"}
	}
	if v.Cmp(maxUint64) > 0 {
		return Integer{}, &RangeError{Text: v.String(), Reason: "too big"}
	}
	return newInteger(new(big.Int).Set(v)), nil
}

func newInteger(v *big.Int) Integer {
	return Integer{opaque: opaque{kind: KindInteger, text: v.String()}, v: v}
}

// folded returns the value reduced to the 64-bit domain. Values already inside it are
// kept; any other value is taken modulo 2^64, the way native unsigned arithmetic wraps.
func (i Integer) folded() *big.Int {
	if i.v.Cmp(minInt64) >= 0 && i.v.Cmp(maxUint64) <= 0 {
		return i.v
	}
	return new(big.Int).Mod(i.v, two64)
}

func (i Integer) Value() any                  { return new(big.Int).Set(i.v) }
func (i Integer) IntValue() (*big.Int, error) { return new(big.Int).Set(i.v), nil }

// Sign returns -1, 0 or +1
func (i Integer) Sign() int { return i.v.Sign() }

func (i Integer) binary(other Literal, f func(z, x, y *big.Int) *big.Int) (Literal, error) {
	y, err := other.IntValue()
	if err != nil {
		return nil, err
	}
	return newInteger(f(new(big.Int), i.v, y)), nil
}

func (i Integer) Or(other Literal) (Literal, error)  { return i.binary(other, (*big.Int).Or) }
func (i Integer) Xor(other Literal) (Literal, error) { return i.binary(other, (*big.Int).Xor) }
func (i Integer) And(other Literal) (Literal, error) { return i.binary(other, (*big.Int).And) }
func (i Integer) Mul(other Literal) (Literal, error) { return i.binary(other, (*big.Int).Mul) }
func (i Integer) Add(other Literal) (Literal, error) { return i.binary(other, (*big.Int).Add) }
func (i Integer) Sub(other Literal) (Literal, error) { return i.binary(other, (*big.Int).Sub) }

func (i Integer) Div(other Literal) (Literal, error) {
	if err := checkDivisor(other); err != nil {
		return nil, err
	}
	return i.binary(other, (*big.Int).Quo)
}

func (i Integer) Mod(other Literal) (Literal, error) {
	if err := checkDivisor(other); err != nil {
		return nil, err
	}
	return i.binary(other, (*big.Int).Rem)
}

func checkDivisor(other Literal) error {
	y, err := other.IntValue()
	if err != nil {
		return err
	}
	if y.Sign() == 0 {
		return &OperandError{Op: "/", Found: KindInteger, Operand: "0 (division by zero)"}
	}
	return nil
}

func (i Integer) shiftAmount(op string, other Literal) (uint, error) {
	y, err := other.IntValue()
	if err != nil {
		return 0, err
	}
	if y.Sign() < 0 || y.Cmp(big.NewInt(64)) >= 0 {
		return 0, &OperandError{Op: op, Found: KindInteger,
			Operand: fmt.Sprintf("%s (shift must be between 0 and 63)", y)}
	}
	return uint(y.Uint64()), nil
}

func (i Integer) ShiftLeft(other Literal) (Literal, error) {
	n, err := i.shiftAmount("<<", other)
	if err != nil {
		return nil, err
	}
	return newInteger(new(big.Int).Lsh(i.v, n)), nil
}

func (i Integer) ShiftRight(other Literal) (Literal, error) {
	n, err := i.shiftAmount(">>", other)
	if err != nil {
		return nil, err
	}
	return newInteger(new(big.Int).Rsh(i.v, n)), nil
}

func (i Integer) Negate() (Literal, error) {
	return newInteger(new(big.Int).Not(i.v)), nil
}

func (i Integer) InvertSign() (Literal, error) {
	return newInteger(new(big.Int).Neg(i.v)), nil
}

// Float is a double precision literal
type Float struct {
	opaque
	v float64
}

// NewFloat creates a float literal
func NewFloat(v float64) Float {
	return Float{opaque: opaque{kind: KindFloat, text: formatFloat(v)}, v: v}
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if _, err := strconv.Atoi(s); err == nil {
		s += ".0"
	}
	return s
}

func (f Float) Value() any                   { return f.v }
func (f Float) FloatValue() (float64, error) { return f.v, nil }

func (f Float) binary(other Literal, op func(x, y float64) float64) (Literal, error) {
	y, err := other.FloatValue()
	if err != nil {
		return nil, err
	}
	return NewFloat(op(f.v, y)), nil
}

func (f Float) Add(other Literal) (Literal, error) {
	return f.binary(other, func(x, y float64) float64 { return x + y })
}

func (f Float) Sub(other Literal) (Literal, error) {
	return f.binary(other, func(x, y float64) float64 { return x - y })
}

func (f Float) Mul(other Literal) (Literal, error) {
	return f.binary(other, func(x, y float64) float64 { return x * y })
}

func (f Float) Div(other Literal) (Literal, error) {
	return f.binary(other, func(x, y float64) float64 { return x / y })
}

func (f Float) Mod(other Literal) (Literal, error) {
	return f.binary(other, math.Mod)
}

func (f Float) InvertSign() (Literal, error) {
	return NewFloat(-f.v), nil
}

// Char is a char or wchar literal
type Char struct {
	opaque
	v    rune
	Wide bool
}

// NewChar creates a char literal
func NewChar(v rune, wide bool) Char {
	text := strconv.QuoteRune(v)
	if wide {
		text = "L" + text
	}
	return Char{opaque: opaque{kind: KindChar, text: text}, v: v, Wide: wide}
}

func (c Char) Value() any               { return c.v }
func (c Char) CharValue() (rune, error) { return c.v, nil }

// String is a string or wstring literal
type String struct {
	opaque
	v    string
	Wide bool
}

// NewString creates a string literal
func NewString(v string, wide bool) String {
	text := strconv.Quote(v)
	if wide {
		text = "L" + text
	}
	return String{opaque: opaque{kind: KindString, text: text}, v: v, Wide: wide}
}

func (s String) Value() any                   { return s.v }
func (s String) StringValue() (string, error) { return s.v, nil }

// Boolean is TRUE or FALSE
type Boolean struct {
	opaque
	v bool
}

// NewBoolean creates a boolean literal
func NewBoolean(v bool) Boolean {
	text := "FALSE"
	if v {
		text = "TRUE"
	}
	return Boolean{opaque: opaque{kind: KindBoolean, text: text}, v: v}
}

func (b Boolean) Value() any               { return b.v }
func (b Boolean) BoolValue() (bool, error) { return b.v, nil }

// Negate is logical negation for booleans
func (b Boolean) Negate() (Literal, error) {
	return NewBoolean(!b.v), nil
}

// EnumValue is an enumerator of a generated enum type
type EnumValue struct {
	opaque
	Enum    *typesys.Type
	Ordinal int
}

// NewEnumValue creates an enumerator literal
func NewEnumValue(enum *typesys.Type, ordinal int) EnumValue {
	text := fmt.Sprintf("%s(%d)", enum.QualifiedName(), ordinal)
	if ordinal >= 0 && ordinal < len(enum.Enumerators) {
		text = enum.QualifiedName() + "." + enum.Enumerators[ordinal]
	}
	return EnumValue{opaque: opaque{kind: KindEnumValue, text: text}, Enum: enum, Ordinal: ordinal}
}

func (e EnumValue) Value() any { return e }
