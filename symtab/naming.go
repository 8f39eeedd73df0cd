package symtab

import (
	"go/token"
	"unicode"
)

// predeclared identifiers of the target language that generated names must not shadow
var predeclared = map[string]bool{
	"any": true, "bool": true, "byte": true, "comparable": true, "complex64": true,
	"complex128": true, "error": true, "float32": true, "float64": true, "int": true,
	"int8": true, "int16": true, "int32": true, "int64": true, "rune": true, "string": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"uintptr": true, "true": true, "false": true, "iota": true, "nil": true,
	"append": true, "cap": true, "clear": true, "close": true, "complex": true, "copy": true,
	"delete": true, "imag": true, "len": true, "make": true, "max": true, "min": true,
	"new": true, "panic": true, "print": true, "println": true, "real": true,
	"recover": true,
}

// MapName escapes an IDL identifier that would clash with a keyword or predeclared
// identifier, or that does not start with a letter or underscore, by prefixing "_"
func MapName(name string) string {
	if name == "" {
		return name
	}
	first := []rune(name)[0]
	if token.IsKeyword(name) || predeclared[name] || !(unicode.IsLetter(first) || first == '_') {
		return "_" + name
	}
	return name
}
