// Package model defines normalized schema catalog types produced by the DDL
// parser.
package model

import (
	"cmp"
	"slices"
	"strings"
)

// Catalog represents the schema objects discovered in DDL files. Maps are
// keyed by CanonicalName.
type Catalog struct {
	Tables   map[string]*Table
	Views    map[string]*View
	Indexes  map[string]*Index
	Triggers map[string]*Trigger
}

// NewCatalog constructs a catalog with initialized maps.
func NewCatalog() *Catalog {
	return &Catalog{
		Tables:   make(map[string]*Table),
		Views:    make(map[string]*View),
		Indexes:  make(map[string]*Index),
		Triggers: make(map[string]*Trigger),
	}
}

// Table models a table definition.
type Table struct {
	Name         string
	Temp         bool
	Columns      []*Column
	PrimaryKey   []string
	WithoutRowID bool
	Strict       bool
	Pos          Position
}

// Column describes a table column.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

// Index describes a CREATE INDEX statement.
type Index struct {
	Name   string
	Table  string
	Unique bool
	Pos    Position
}

// View represents a CREATE VIEW statement. Columns holds the names the view
// exposes, either declared or derived from its SELECT.
type View struct {
	Name    string
	Temp    bool
	Columns []string
	SQL     string
	Pos     Position
}

// Trigger describes a CREATE TRIGGER statement.
type Trigger struct {
	Name   string
	Table  string
	Timing string
	Event  string
	Pos    Position
}

// Position locates a definition in its source file.
type Position struct {
	Path   string
	Line   int
	Column int
}

// CanonicalName folds a name for catalog keys.
func CanonicalName(name string) string {
	return strings.ToLower(name)
}

// Table looks up a table by name, ignoring case.
func (c *Catalog) Table(name string) *Table {
	return c.Tables[CanonicalName(name)]
}

// View looks up a view by name, ignoring case.
func (c *Catalog) View(name string) *View {
	return c.Views[CanonicalName(name)]
}

// Column looks up a column by name, ignoring case.
func (t *Table) Column(name string) *Column {
	for _, col := range t.Columns {
		if strings.EqualFold(col.Name, name) {
			return col
		}
	}
	return nil
}

// HasRowID reports whether the table has the implicit rowid column, i.e. it
// is not WITHOUT ROWID.
func (t *Table) HasRowID() bool {
	return !t.WithoutRowID
}

// RowIDAlias returns the column aliasing the rowid ("INTEGER PRIMARY KEY"),
// or nil.
func (t *Table) RowIDAlias() *Column {
	if t.WithoutRowID || len(t.PrimaryKey) != 1 {
		return nil
	}
	col := t.Column(t.PrimaryKey[0])
	if col == nil || !strings.EqualFold(col.Type, "INTEGER") {
		return nil
	}
	return col
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = col.Name
	}
	return out
}

// SortedTables returns the tables ordered by name.
func (c *Catalog) SortedTables() []*Table {
	return sortedValues(c.Tables, func(t *Table) string { return t.Name })
}

// SortedViews returns the views ordered by name.
func (c *Catalog) SortedViews() []*View {
	return sortedValues(c.Views, func(v *View) string { return v.Name })
}

// SortedIndexes returns the indexes ordered by name.
func (c *Catalog) SortedIndexes() []*Index {
	return sortedValues(c.Indexes, func(i *Index) string { return i.Name })
}

// SortedTriggers returns the triggers ordered by name.
func (c *Catalog) SortedTriggers() []*Trigger {
	return sortedValues(c.Triggers, func(t *Trigger) string { return t.Name })
}

// DropTable removes a table together with its indexes and triggers.
func (c *Catalog) DropTable(name string) bool {
	key := CanonicalName(name)
	if _, ok := c.Tables[key]; !ok {
		return false
	}
	delete(c.Tables, key)
	for k, idx := range c.Indexes {
		if CanonicalName(idx.Table) == key {
			delete(c.Indexes, k)
		}
	}
	for k, trg := range c.Triggers {
		if CanonicalName(trg.Table) == key {
			delete(c.Triggers, k)
		}
	}
	return true
}

func sortedValues[T any](m map[string]T, name func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b T) int {
		return cmp.Compare(strings.ToLower(name(a)), strings.ToLower(name(b)))
	})
	return out
}
