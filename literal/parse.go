package literal

import (
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

const (
	minBase = 2
	maxBase = 36
)

// ParseInteger parses an IDL integer literal: decimal, octal with a leading 0, or
// hexadecimal with a 0x prefix
func ParseInteger(text string) (Integer, error) {
	body, base := text, 10
	switch {
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		body, base = text[2:], 16
	case len(text) > 1 && text[0] == '0':
		body, base = text[1:], 8
	}
	v, err := ParseBase(body, base)
	if err != nil {
		if re, ok := err.(*RangeError); ok {
			re.Text = text
		}
		return Integer{}, err
	}
	return newInteger(v), nil
}

// ParseBase converts text in the given base (2 to 36) into an integer within
// [MinInt64, MaxUint64]
func ParseBase(text string, base int) (*big.Int, error) {
	if base < minBase || base > maxBase {
		return nil, &RangeError{Text: text, Reason: "base not supported: " + strconv.Itoa(base)}
	}
	body := strings.TrimSpace(text)
	negative := false
	if strings.HasPrefix(body, "-") {
		negative = true
		body = body[1:]
	}
	if body == "" {
		return nil, &RangeError{Text: text, Reason: "no digits"}
	}
	result := new(big.Int)
	b := big.NewInt(int64(base))
	for _, ch := range body {
		digit, err := parseDigit(ch, base)
		if err != nil {
			return nil, &RangeError{Text: text, Reason: err.Error()}
		}
		result.Mul(result, b)
		result.Add(result, big.NewInt(digit))
		if !negative && result.Cmp(maxUint64) > 0 {
			return nil, &RangeError{Text: text, Reason: "too big to parse"}
		}
		if negative && result.Cmp(new(big.Int).Neg(minInt64)) > 0 {
			return nil, &RangeError{Text: text, Reason: "too small to parse"}
		}
	}
	if negative {
		result.Neg(result)
	}
	return result, nil
}

type digitError string

func (e digitError) Error() string { return string(e) }

func parseDigit(ch rune, base int) (int64, error) {
	var digit int64
	switch {
	case ch >= '0' && ch <= '9':
		digit = int64(ch - '0')
	case ch >= 'a' && ch <= 'z':
		digit = int64(ch-'a') + 10
	case ch >= 'A' && ch <= 'Z':
		digit = int64(ch-'A') + 10
	default:
		return 0, digitError("invalid character in value: " + string(ch))
	}
	if digit >= int64(base) {
		return 0, digitError("digit " + string(ch) + " not allowed in base " + strconv.Itoa(base))
	}
	return digit, nil
}

// ParseFloat parses a floating point literal; "Infinity" is accepted
func ParseFloat(text string) (Float, error) {
	if text == "Infinity" {
		return ParseFloat("+Inf")
	}
	v, err := strconv.ParseFloat(strings.TrimRight(text, "dD"), 64)
	if err != nil {
		return Float{}, &RangeError{Text: text, Reason: "not a floating point number"}
	}
	return NewFloat(v), nil
}

// Unescape decodes the body of a char or string literal (without quotes)
func Unescape(body string) ([]rune, error) {
	var result []rune
	in := []rune(body)
	for i := 0; i < len(in); i++ {
		if in[i] != '\\' {
			result = append(result, in[i])
			continue
		}
		i++
		if i >= len(in) {
			return nil, &RangeError{Text: body, Reason: "dangling escape"}
		}
		switch c := in[i]; c {
		case 'n':
			result = append(result, '\n')
		case 't':
			result = append(result, '\t')
		case 'v':
			result = append(result, '\v')
		case 'b':
			result = append(result, '\b')
		case 'r':
			result = append(result, '\r')
		case 'f':
			result = append(result, '\f')
		case 'a':
			result = append(result, '\a')
		case '\\', '?', '\'', '"':
			result = append(result, c)
		case 'x', 'u':
			limit := 2
			if c == 'u' {
				limit = 4
			}
			j := i + 1
			for j < len(in) && j-i <= limit && isHex(in[j]) {
				j++
			}
			if j == i+1 {
				return nil, &RangeError{Text: body, Reason: "escape without hex digits"}
			}
			v, _ := strconv.ParseUint(string(in[i+1:j]), 16, 32)
			result = append(result, rune(v))
			i = j - 1
		default:
			if c < '0' || c > '7' {
				return nil, &RangeError{Text: body, Reason: "unknown escape \\" + string(c)}
			}
			j := i
			for j < len(in) && j-i < 3 && in[j] >= '0' && in[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(string(in[i:j]), 8, 32)
			result = append(result, rune(v))
			i = j - 1
		}
	}
	return result, nil
}

func isHex(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// ParseChar decodes the body of a char literal
func ParseChar(body string, wide bool) (Char, error) {
	runes, err := Unescape(body)
	if err != nil {
		return Char{}, err
	}
	if len(runes) != 1 {
		return Char{}, &RangeError{Text: body, Reason: "char literal must hold exactly one character"}
	}
	return NewChar(runes[0], wide), nil
}

// ParseString decodes the body of a string literal
func ParseString(body string, wide bool) (String, error) {
	runes, err := Unescape(body)
	if err != nil {
		return String{}, err
	}
	return NewString(string(runes), wide), nil
}
