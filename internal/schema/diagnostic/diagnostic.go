// Package diagnostic provides shared types for schema loading diagnostics.
//
// It is kept apart from the parser package so schema sources can report
// diagnostics without importing the parser.
package diagnostic

import (
	"context"
	"fmt"

	"github.com/electwix/sqlcomplete/internal/schema/model"
)

// Severity indicates the seriousness of a diagnostic.
type Severity int

const (
	// SeverityError marks a statement that could not be applied to the catalog.
	SeverityError Severity = iota
	// SeverityWarning marks a statement that was applied with loss of detail.
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic captures parser feedback for callers to display.
type Diagnostic struct {
	Path     string
	Line     int
	Column   int
	Message  string
	Severity Severity
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Path, d.Line, d.Column, d.Severity, d.Message)
}

// SchemaParser parses SQL DDL and produces a schema catalog.
type SchemaParser interface {
	Parse(ctx context.Context, path string, content []byte) (*model.Catalog, []Diagnostic, error)
}
