package compiler

import (
	"context"
	"fmt"
	"log/slog"
)

// DiagnosticKind classifies a notice produced while compiling
type DiagnosticKind int

const (
	// DiagSkippedDuplicate: a definition already generated by an earlier file was skipped
	DiagSkippedDuplicate DiagnosticKind = iota
	// DiagRepositoryIDMismatch: a reference type matched by name but not by repository id
	DiagRepositoryIDMismatch
	// DiagOctetShim: a negative octet constant was accepted in legacy mode
	DiagOctetShim
	// DiagImplementationExpected: a value type needs a user supplied implementation
	DiagImplementationExpected
)

// String returns the string representation of the DiagnosticKind
func (k DiagnosticKind) String() string {
	switch k {
	case DiagSkippedDuplicate:
		return "skipped-duplicate"
	case DiagRepositoryIDMismatch:
		return "repository-id-mismatch"
	case DiagOctetShim:
		return "octet-shim"
	case DiagImplementationExpected:
		return "implementation-expected"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", k)
	}
}

// Diagnostic is one non-fatal notice
type Diagnostic struct {
	Kind    DiagnosticKind
	Symbol  string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Symbol, d.Message)
}

// Diagnostics collects the notices of a session and logs each as it is added
type Diagnostics struct {
	logger *slog.Logger
	list   []Diagnostic
}

func newDiagnostics(logger *slog.Logger) *Diagnostics {
	return &Diagnostics{logger: logger}
}

func (d *Diagnostics) add(kind DiagnosticKind, symbol, format string, args ...any) {
	diag := Diagnostic{Kind: kind, Symbol: symbol, Message: fmt.Sprintf(format, args...)}
	d.list = append(d.list, diag)

	level := slog.LevelWarn
	if kind == DiagSkippedDuplicate || kind == DiagImplementationExpected {
		level = slog.LevelInfo
	}
	d.logger.Log(context.Background(), level, diag.Message, "kind", kind.String(), "symbol", symbol)
}

// All returns the notices in the order they were produced
func (d *Diagnostics) All() []Diagnostic {
	return append([]Diagnostic(nil), d.list...)
}

// OfKind returns the notices of one kind
func (d *Diagnostics) OfKind(kind DiagnosticKind) []Diagnostic {
	var result []Diagnostic
	for _, diag := range d.list {
		if diag.Kind == kind {
			result = append(result, diag)
		}
	}
	return result
}
