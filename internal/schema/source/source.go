// Package source defines the read-only schema introspection contract used by
// completion, together with its implementations: a live SQLite connection,
// a catalog loaded from DDL files, a caching decorator and a disconnected
// placeholder.
package source

import (
	"context"
	"errors"
	"strings"

	"github.com/electwix/sqlcomplete/internal/dialect"
)

// ErrNotConnected is returned by every lookup on a source without a usable
// database handle.
var ErrNotConnected = errors.New("schema source is not connected")

// RowID is the name of the implicit rowid pseudo column.
const RowID = "ROWID"

// Table is a resolved table or view name.
type Table struct {
	Database string
	Name     string
	View     bool
	// WithoutRowID marks tables declared WITHOUT ROWID.
	WithoutRowID bool
}

// Column is a resolved column of a table or view.
type Column struct {
	Database   string
	Table      string
	Name       string
	Type       string
	PrimaryKey bool
	// RowID marks the implicit rowid pseudo column.
	RowID bool
}

// Source is a read-only view of a database schema. An empty database name
// means the default search order (temp, main, then attached databases).
type Source interface {
	Connected() bool
	Tables(ctx context.Context, database string) ([]Table, error)
	Columns(ctx context.Context, database, table string) ([]Column, error)
	Indexes(ctx context.Context, database string) ([]string, error)
	Triggers(ctx context.Context, database string) ([]string, error)
	Views(ctx context.Context, database string) ([]string, error)
	Databases(ctx context.Context) ([]string, error)
	Pragmas(ctx context.Context, d dialect.Dialect) ([]string, error)
	Functions(ctx context.Context, d dialect.Dialect) ([]dialect.Function, error)
	Collations(ctx context.Context) ([]string, error)
}

// withRowID appends the rowid pseudo column unless a declared column already
// uses the name.
func withRowID(cols []Column, database, table string) []Column {
	for _, col := range cols {
		if strings.EqualFold(col.Name, RowID) {
			return cols
		}
	}
	return append(cols, Column{Database: database, Table: table, Name: RowID, Type: "INTEGER", RowID: true})
}

// catalogPragmas and catalogFunctions serve the static part of every source.
func catalogPragmas(d dialect.Dialect) ([]string, error) {
	c, err := dialect.Load(d)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), c.Pragmas...), nil
}

func catalogFunctions(d dialect.Dialect) ([]dialect.Function, error) {
	c, err := dialect.Load(d)
	if err != nil {
		return nil, err
	}
	return append([]dialect.Function(nil), c.Functions...), nil
}

func catalogCollations(d dialect.Dialect) []string {
	c, err := dialect.Load(d)
	if err != nil {
		return nil
	}
	return append([]string(nil), c.Collations...)
}
