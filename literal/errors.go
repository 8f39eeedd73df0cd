package literal

import "fmt"

// OperandError reports an operation applied to a literal of the wrong family
type OperandError struct {
	Op      string
	Want    Kind
	Found   Kind
	Operand string
}

func (e *OperandError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("operator %s not allowed for %s operand %s", e.Op, e.Found, e.Operand)
	}
	return fmt.Sprintf("require %s %s operand, but found %s %s operand: %s",
		article(e.Want), e.Want, article(e.Found), e.Found, e.Operand)
}

// RangeError reports a literal that does not fit its target, or text that is not a number
// in the requested base
type RangeError struct {
	Text   string
	Target string
	Reason string
}

func (e *RangeError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("literal %s does not fit into %s", e.Text, e.Target)
	}
	return fmt.Sprintf("invalid number %s: %s", e.Text, e.Reason)
}

// MismatchError reports a literal whose family cannot be assigned to the target type
type MismatchError struct {
	Found  Kind
	Target string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("the %s literal is not assignable to a constant with type %s", e.Found, e.Target)
}

func article(k Kind) string {
	if k == KindInteger || k == KindEnumValue {
		return "an"
	}
	return "a"
}
