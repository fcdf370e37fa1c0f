package source

import (
	"context"
	"strings"

	"github.com/electwix/sqlcomplete/internal/dialect"
	"github.com/electwix/sqlcomplete/internal/schema/model"
)

// Catalog serves a schema loaded from DDL files. Objects live in the main
// database unless they were declared TEMP.
type Catalog struct {
	catalog *model.Catalog
	dialect dialect.Dialect
}

// NewCatalog wraps c. The catalog must not be modified afterwards.
func NewCatalog(c *model.Catalog, d dialect.Dialect) *Catalog {
	if !d.Valid() {
		d = dialect.SQLite3
	}
	return &Catalog{catalog: c, dialect: d}
}

// Connected reports whether a catalog is present.
func (c *Catalog) Connected() bool {
	return c != nil && c.catalog != nil
}

// Tables lists the catalog tables visible in database.
func (c *Catalog) Tables(_ context.Context, database string) ([]Table, error) {
	if !c.Connected() {
		return nil, ErrNotConnected
	}
	var out []Table
	for _, t := range c.catalog.SortedTables() {
		db := databaseOf(t.Temp)
		if inDatabase(database, db) {
			out = append(out, Table{Database: db, Name: t.Name, WithoutRowID: t.WithoutRowID})
		}
	}
	sortTables(out)
	return out, nil
}

// Columns lists the columns of a table or view.
func (c *Catalog) Columns(_ context.Context, database, table string) ([]Column, error) {
	if !c.Connected() {
		return nil, ErrNotConnected
	}
	if t := c.catalog.Table(table); t != nil && inDatabase(database, databaseOf(t.Temp)) {
		cols := make([]Column, 0, len(t.Columns)+1)
		for _, col := range t.Columns {
			cols = append(cols, Column{
				Database:   database,
				Table:      t.Name,
				Name:       col.Name,
				Type:       col.Type,
				PrimaryKey: col.PrimaryKey,
			})
		}
		if t.HasRowID() {
			cols = withRowID(cols, database, t.Name)
		}
		return cols, nil
	}
	if v := c.catalog.View(table); v != nil && inDatabase(database, databaseOf(v.Temp)) {
		cols := make([]Column, len(v.Columns))
		for i, name := range v.Columns {
			cols[i] = Column{Database: database, Table: v.Name, Name: name}
		}
		return cols, nil
	}
	return nil, nil
}

// Indexes lists index names.
func (c *Catalog) Indexes(_ context.Context, database string) ([]string, error) {
	if !c.Connected() {
		return nil, ErrNotConnected
	}
	var out []string
	for _, idx := range c.catalog.SortedIndexes() {
		if c.tableVisible(database, idx.Table) {
			out = append(out, idx.Name)
		}
	}
	return out, nil
}

// Triggers lists trigger names.
func (c *Catalog) Triggers(_ context.Context, database string) ([]string, error) {
	if !c.Connected() {
		return nil, ErrNotConnected
	}
	var out []string
	for _, trg := range c.catalog.SortedTriggers() {
		if c.tableVisible(database, trg.Table) {
			out = append(out, trg.Name)
		}
	}
	return out, nil
}

// Views lists view names.
func (c *Catalog) Views(_ context.Context, database string) ([]string, error) {
	if !c.Connected() {
		return nil, ErrNotConnected
	}
	var out []string
	for _, v := range c.catalog.SortedViews() {
		if inDatabase(database, databaseOf(v.Temp)) {
			out = append(out, v.Name)
		}
	}
	return out, nil
}

// Databases returns main and temp.
func (c *Catalog) Databases(context.Context) ([]string, error) {
	if !c.Connected() {
		return nil, ErrNotConnected
	}
	return []string{"main", "temp"}, nil
}

// Pragmas returns the dialect's pragma catalog.
func (c *Catalog) Pragmas(_ context.Context, d dialect.Dialect) ([]string, error) {
	if !c.Connected() {
		return nil, ErrNotConnected
	}
	return catalogPragmas(d)
}

// Functions returns the dialect's function catalog.
func (c *Catalog) Functions(_ context.Context, d dialect.Dialect) ([]dialect.Function, error) {
	if !c.Connected() {
		return nil, ErrNotConnected
	}
	return catalogFunctions(d)
}

// Collations returns the built-in collations of the catalog's dialect.
func (c *Catalog) Collations(context.Context) ([]string, error) {
	if !c.Connected() {
		return nil, ErrNotConnected
	}
	return catalogCollations(c.dialect), nil
}

// tableVisible reports whether objects attached to table belong to database.
// Objects on unknown tables are listed under main.
func (c *Catalog) tableVisible(database, table string) bool {
	if t := c.catalog.Table(table); t != nil {
		return inDatabase(database, databaseOf(t.Temp))
	}
	return database == "" || strings.EqualFold(database, "main")
}

func databaseOf(temp bool) string {
	if temp {
		return "temp"
	}
	return "main"
}

var _ Source = (*Catalog)(nil)
