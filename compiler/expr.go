package compiler

import (
	"fmt"
	"math"
	"math/big"

	"github.com/hashicorp/go-multierror"

	"github.com/ifabos/go-idlc/idl"
	"github.com/ifabos/go-idlc/literal"
	"github.com/ifabos/go-idlc/symtab"
	"github.com/ifabos/go-idlc/typesys"
)

// evalExpr evaluates a constant expression in the scope of info
func (g *Generator) evalExpr(info BuildInfo, e idl.Expr) (literal.Literal, error) {
	switch n := e.(type) {
	case *idl.IntegerLit:
		v, err := literal.ParseInteger(n.Text)
		if err != nil {
			return nil, g.invalid(n, n.Text, ErrConstantValue, err)
		}
		return v, nil
	case *idl.FloatLit:
		v, err := literal.ParseFloat(n.Text)
		if err != nil {
			return nil, g.invalid(n, n.Text, ErrConstantValue, err)
		}
		return v, nil
	case *idl.CharLit:
		v, err := literal.ParseChar(n.Body, n.Wide)
		if err != nil {
			return nil, g.invalid(n, n.Body, ErrConstantValue, err)
		}
		return v, nil
	case *idl.StringLit:
		v, err := literal.ParseString(n.Body, n.Wide)
		if err != nil {
			return nil, g.invalid(n, n.Body, ErrConstantValue, err)
		}
		return v, nil
	case *idl.BoolLit:
		return literal.NewBoolean(n.Value), nil
	case *idl.ScopedName:
		sym, err := g.resolveSymbol(info, n)
		if err != nil {
			return nil, err
		}
		if sym.Kind() != symtab.SymbolValue || sym.Value() == nil {
			return nil, g.invalid(n, sym.IDLName(), ErrNotAConstant, nil)
		}
		return sym.Value(), nil
	case *idl.BinaryExpr:
		return g.evalBinary(info, n)
	case *idl.UnaryExpr:
		return g.evalUnary(info, n)
	}
	return nil, internalf("%s: unknown expression %T", e.Pos(), e)
}

func (g *Generator) evalBinary(info BuildInfo, n *idl.BinaryExpr) (literal.Literal, error) {
	left, err := g.evalExpr(info, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := g.evalExpr(info, n.Right)
	if err != nil {
		return nil, err
	}

	var result literal.Literal
	switch n.Op {
	case "|":
		result, err = left.Or(right)
	case "^":
		result, err = left.Xor(right)
	case "&":
		result, err = left.And(right)
	case "<<":
		result, err = left.ShiftLeft(right)
	case ">>":
		result, err = left.ShiftRight(right)
	case "*":
		result, err = left.Mul(right)
	case "/":
		result, err = left.Div(right)
	case "%":
		result, err = left.Mod(right)
	case "+":
		result, err = left.Add(right)
	case "-":
		result, err = left.Sub(right)
	default:
		return nil, internalf("%s: unknown operator %s", n.Pos(), n.Op)
	}
	if err != nil {
		return nil, g.invalid(n, "", ErrConstantValue, err)
	}
	return result, nil
}

func (g *Generator) evalUnary(info BuildInfo, n *idl.UnaryExpr) (literal.Literal, error) {
	x, err := g.evalExpr(info, n.X)
	if err != nil {
		return nil, err
	}

	var result literal.Literal
	switch n.Op {
	case "-":
		result, err = x.InvertSign()
	case "~":
		result, err = x.Negate()
	case "+":
		result = x
		if x.Kind() != literal.KindInteger && x.Kind() != literal.KindFloat {
			err = &literal.OperandError{Op: "unary +", Found: x.Kind(), Operand: x.String()}
		}
	default:
		return nil, internalf("%s: unknown operator %s", n.Pos(), n.Op)
	}
	if err != nil {
		return nil, g.invalid(n, "", ErrConstantValue, err)
	}
	return result, nil
}

// evalSize evaluates a sequence bound or array dimension, which must not be below least
func (g *Generator) evalSize(info BuildInfo, e idl.Expr, rule error, least int64) (int, error) {
	lit, err := g.evalExpr(info, e)
	if err != nil {
		return 0, err
	}
	v, err := lit.IntValue()
	if err != nil {
		return 0, g.invalid(e, "", rule, err)
	}
	if !v.IsInt64() || v.Cmp(big.NewInt(least)) < 0 || v.Int64() > math.MaxInt32 {
		return 0, g.invalid(e, "", rule, fmt.Errorf("%s", v))
	}
	return int(v.Int64()), nil
}

// scanLabels evaluates every case label of a union before anything is generated. All
// labels that are not assignable to the discriminator or used twice are reported together.
func (g *Generator) scanLabels(info BuildInfo, n *idl.Union, disc typesys.TypeDescriptor) ([][]any, error) {
	var errs error
	result := make([][]any, len(n.Cases))
	seen := make(map[any]bool)
	hasDefault := false
	for i, c := range n.Cases {
		for _, label := range c.Labels {
			if label.Default {
				if hasDefault {
					errs = multierror.Append(errs, fmt.Errorf("%s: %w", label.Pos(), ErrDuplicateDefault))
					continue
				}
				hasDefault = true
				result[i] = append(result[i], typesys.DefaultLabel)
				continue
			}
			lit, err := g.evalExpr(info, label.Value)
			if err != nil {
				return nil, err
			}
			if !lit.IsAssignableTo(disc) {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w: %s", label.Pos(), ErrLabelType, lit))
				continue
			}
			v, err := lit.Convert(disc, g.mode)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w: %w", label.Pos(), ErrLabelType, err))
				continue
			}
			if seen[v] {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w: %s", label.Pos(), ErrDuplicateLabel, lit))
				continue
			}
			seen[v] = true
			result[i] = append(result[i], v)
		}
	}
	if errs != nil {
		return nil, g.invalid(n, info.Symbol.IDLName(), ErrUnionLabels, errs)
	}
	return result, nil
}

func (g *Generator) visitConst(info BuildInfo, n *idl.Const) error {
	sym, err := g.symbolOf(info, n.Name, n)
	if err != nil {
		return err
	}
	if g.types.CheckSkip(sym) {
		if t, ok := g.types.Lookup(sym); ok && t.Const != nil && sym.Value() == nil {
			sym.SetValue(literalFor(t.Const.Type, t.Const.Value))
		}
		return nil
	}

	declared, err := g.resolveType(info, n.Type)
	if err != nil {
		return err
	}
	// a boxed value type holds a constant of its payload; the box stays as a tag
	target := declared.Separated()
	if !isConstantType(target) {
		return g.invalid(n, sym.IDLName(), ErrConstantType, fmt.Errorf("%s", declared))
	}
	lit, err := g.evalExpr(info, n.Value)
	if err != nil {
		return err
	}
	if g.mode == literal.LegacyOctet && literal.NeedsOctetShim(lit, target) {
		g.diags.add(DiagOctetShim, sym.IDLName(), "negative octet value %s reinterpreted as unsigned", lit)
	}
	value, err := lit.Convert(target, g.mode)
	if err != nil {
		return g.invalid(n, sym.IDLName(), ErrConstantValue, err)
	}
	sym.SetValue(literalFor(target, value))

	t := g.newType(sym, typesys.TC_CONST_HOLDER)
	t.Const = &typesys.Constant{
		Type:   target,
		Value:  value,
		Native: target.Type.Kind != typesys.TC_ENUM,
	}
	return g.types.RegisterTypeDefinition(t, sym)
}

// literalFor rebuilds a literal from a converted constant value, so that later references
// see the value as it was stored
func literalFor(target typesys.TypeDescriptor, v any) literal.Literal {
	kind := target.Type.Kind
	switch x := v.(type) {
	case int16:
		return literal.NewInteger(int64(x))
	case int32:
		if kind == typesys.TC_WCHAR {
			return literal.NewChar(x, true)
		}
		return literal.NewInteger(int64(x))
	case int64:
		return literal.NewInteger(x)
	case uint8:
		if kind == typesys.TC_CHAR {
			return literal.NewChar(rune(x), false)
		}
		return literal.NewUnsigned(uint64(x))
	case uint16:
		return literal.NewUnsigned(uint64(x))
	case uint32:
		if kind == typesys.TC_ENUM {
			return literal.NewEnumValue(target.Type, int(x))
		}
		return literal.NewUnsigned(uint64(x))
	case uint64:
		return literal.NewUnsigned(x)
	case float32:
		return literal.NewFloat(float64(x))
	case float64:
		return literal.NewFloat(x)
	case string:
		return literal.NewString(x, kind == typesys.TC_WSTRING)
	case bool:
		return literal.NewBoolean(x)
	}
	return nil
}
