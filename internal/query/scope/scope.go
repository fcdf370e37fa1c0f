// Package scope resolves the tables and columns visible to a select core.
//
// A Scope is rebuilt for every request from the parsed statement tree and a
// schema source. Lookup failures never abort resolution: a table the source
// cannot describe stays in scope without columns.
package scope

import (
	"context"

	"github.com/electwix/sqlcomplete/internal/logging"
	"github.com/electwix/sqlcomplete/internal/query/ast"
	"github.com/electwix/sqlcomplete/internal/schema/source"
)

// maxDepth bounds subquery and CTE projection.
const maxDepth = 8

// Kind tells where a scope table comes from.
type Kind int

const (
	KindTable Kind = iota
	KindSubquery
	KindCTE
)

func (k Kind) String() string {
	switch k {
	case KindSubquery:
		return "subquery"
	case KindCTE:
		return "cte"
	}
	return "table"
}

// Table is one FROM clause member. Name is the real table name, the CTE
// name, or the alias of a subquery.
type Table struct {
	Database string
	Name     string
	Alias    string
	Kind     Kind
}

// Visible returns the name the table is referenced by.
func (t Table) Visible() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

func (t Table) key() string {
	return ast.Fold(t.Name)
}

// Column is a column available through a scope table. Table holds the real
// table name even when the table is referenced through an alias; it is empty
// for columns of an unaliased subquery.
type Column struct {
	Database string
	Table    string
	Name     string
	Type     string
	RowID    bool
}

// Scope is the resolved name space of one core.
type Scope struct {
	Core    ast.CoreID
	Tables  []Table
	Columns []Column
	Aliases *AliasMap
	// ResultAliases are the aliases given to result columns.
	ResultAliases []string
	// CTEs are the common table names visible to the core.
	CTEs []string

	ParentTables  []Table
	ParentColumns []Column
	ParentAliases *AliasMap

	seen map[string]bool
}

// New returns an empty scope.
func New() *Scope {
	return &Scope{
		Core:          ast.NoCore,
		Aliases:       NewAliasMap(),
		ParentAliases: NewAliasMap(),
		seen:          make(map[string]bool),
	}
}

// add registers t and, the first time its name is seen, its columns.
func (s *Scope) add(t Table, cols []Column) {
	s.Tables = append(s.Tables, t)
	s.Aliases.Register(t, t.Alias)
	if s.seen[t.key()] {
		return
	}
	s.seen[t.key()] = true
	s.Columns = append(s.Columns, cols...)
}

// Qualifier returns the name a column of table should be qualified with:
// its first alias, or the table name itself.
func (s *Scope) Qualifier(table string) string {
	if aliases := s.Aliases.Aliases(table); len(aliases) > 0 {
		return aliases[0]
	}
	if aliases := s.ParentAliases.Aliases(table); len(aliases) > 0 {
		return aliases[0]
	}
	return table
}

// LookupQualifier returns the columns reachable through qualifier, which
// may be an alias, a table or CTE name, or a subquery alias. The current
// core wins over its parents. The boolean reports whether qualifier named
// anything in scope.
func (s *Scope) LookupQualifier(database, qualifier string) ([]Column, bool) {
	if cols, ok := lookup(s.Tables, s.Aliases, s.Columns, database, qualifier); ok {
		return cols, true
	}
	return lookup(s.ParentTables, s.ParentAliases, s.ParentColumns, database, qualifier)
}

func lookup(tables []Table, aliases *AliasMap, cols []Column, database, qualifier string) ([]Column, bool) {
	if database == "" {
		if t, ok := aliases.Table(qualifier); ok {
			return columnsOf(cols, t.Name), true
		}
	}
	q := ast.Fold(qualifier)
	for _, t := range tables {
		if ast.Fold(t.Name) != q {
			continue
		}
		if database != "" && ast.Fold(t.Database) != ast.Fold(database) {
			continue
		}
		return columnsOf(cols, t.Name), true
	}
	return nil, false
}

func columnsOf(cols []Column, table string) []Column {
	key := ast.Fold(table)
	var out []Column
	for _, c := range cols {
		if c.Table != "" && ast.Fold(c.Table) == key {
			out = append(out, c)
		}
	}
	return out
}

// Resolver resolves cores of one parsed query against a schema source.
type Resolver struct {
	src source.Source
	q   *ast.Query
	log logging.Logger
}

// NewResolver returns a resolver. A nil logger discards output.
func NewResolver(src source.Source, q *ast.Query, log logging.Logger) *Resolver {
	if src == nil {
		src = source.Disconnected()
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Resolver{src: src, q: q, log: log}
}

// Resolve resolves core id of q with a discarding logger.
func Resolve(ctx context.Context, src source.Source, q *ast.Query, id ast.CoreID) *Scope {
	return NewResolver(src, q, nil).Resolve(ctx, id)
}

// Resolve returns the tables and columns visible inside core id.
func (r *Resolver) Resolve(ctx context.Context, id ast.CoreID) *Scope {
	s := New()
	s.Core = id
	core := r.q.Core(id)
	if core == nil {
		return s
	}
	r.fill(ctx, s, core, 0)
	for _, rc := range core.Columns {
		if rc.Alias != "" {
			s.ResultAliases = append(s.ResultAliases, rc.Alias)
		}
	}
	for _, cte := range r.visibleCTEs(id) {
		s.CTEs = append(s.CTEs, cte.Name)
	}
	return s
}

// ResolveParents resolves every enclosing core in parents, innermost first,
// into the parent fields of s. An alias bound in an inner core shadows the
// same alias bound further out.
func (r *Resolver) ResolveParents(ctx context.Context, s *Scope, parents []ast.CoreID) {
	seen := make(map[string]bool)
	for i := len(parents) - 1; i >= 0; i-- {
		ps := r.Resolve(ctx, parents[i])
		for _, t := range ps.Tables {
			s.ParentTables = append(s.ParentTables, t)
			s.ParentAliases.Register(t, t.Alias)
			if seen[t.key()] {
				continue
			}
			seen[t.key()] = true
			s.ParentColumns = append(s.ParentColumns, columnsOf(ps.Columns, t.Name)...)
		}
	}
}

// AddTable puts the named table into s under each alias, or under its own
// name when no alias is given. It is used for the targets of UPDATE, DELETE,
// INSERT and triggers.
func (r *Resolver) AddTable(ctx context.Context, s *Scope, name ast.Name, aliases ...string) {
	if name.IsZero() {
		return
	}
	cols := r.tableColumns(ctx, name)
	t := Table{Database: name.Database, Name: canonicalName(name.Name, cols)}
	if len(aliases) == 0 {
		s.add(t, cols)
		return
	}
	for _, alias := range aliases {
		t.Alias = alias
		s.add(t, cols)
	}
}

// AddOuterTable puts the named table into the parent fields of s under each
// alias, the way a trigger body sees its OLD and NEW rows. Without aliases
// the table is visible under its own name.
func (r *Resolver) AddOuterTable(ctx context.Context, s *Scope, name ast.Name, aliases ...string) {
	if name.IsZero() {
		return
	}
	cols := r.tableColumns(ctx, name)
	t := Table{Database: name.Database, Name: canonicalName(name.Name, cols)}
	if len(aliases) == 0 {
		s.ParentTables = append(s.ParentTables, t)
	}
	for _, alias := range aliases {
		t.Alias = alias
		s.ParentTables = append(s.ParentTables, t)
		s.ParentAliases.Register(t, alias)
	}
	s.ParentColumns = append(s.ParentColumns, cols...)
}

func (r *Resolver) fill(ctx context.Context, s *Scope, core *ast.Core, depth int) {
	for _, from := range core.From {
		switch from.Kind {
		case ast.SourceTable:
			r.addNamed(ctx, s, core.ID, from.Name, from.Alias, depth)
		case ast.SourceSubquery:
			cols := r.project(ctx, from.Subquery, depth+1)
			if from.Alias == "" {
				s.Columns = append(s.Columns, cols...)
				continue
			}
			for i := range cols {
				cols[i].Table = from.Alias
			}
			s.add(Table{Name: from.Alias, Kind: KindSubquery}, cols)
		case ast.SourceFunction:
			// Table-valued functions contribute no columns.
		}
	}
}

func (r *Resolver) addNamed(ctx context.Context, s *Scope, id ast.CoreID, name ast.Name, alias string, depth int) {
	if name.Database == "" {
		if cte, ok := r.lookupCTE(id, name.Name); ok {
			cols := r.cteColumns(ctx, cte, depth+1)
			s.add(Table{Name: cte.Name, Alias: alias, Kind: KindCTE}, cols)
			return
		}
	}
	cols := r.tableColumns(ctx, name)
	s.add(Table{Database: name.Database, Name: canonicalName(name.Name, cols), Alias: alias}, cols)
}

func (r *Resolver) tableColumns(ctx context.Context, name ast.Name) []Column {
	found, err := r.src.Columns(ctx, name.Database, name.Name)
	if err != nil {
		r.log.Debug("column lookup failed", "table", name.String(), "error", err)
		return nil
	}
	table := name.Name
	if len(found) > 0 && found[0].Table != "" {
		table = found[0].Table
	}
	cols := make([]Column, len(found))
	for i, c := range found {
		cols[i] = Column{
			Database: name.Database,
			Table:    table,
			Name:     c.Name,
			Type:     c.Type,
			RowID:    c.RowID,
		}
	}
	return cols
}

// canonicalName prefers the table spelling the schema source reported.
func canonicalName(name string, cols []Column) string {
	if len(cols) > 0 && cols[0].Table != "" {
		return cols[0].Table
	}
	return name
}

// visibleCTEs lists the common tables visible to core id, nearest first.
func (r *Resolver) visibleCTEs(id ast.CoreID) []ast.CTE {
	var out []ast.CTE
	for _, cid := range append([]ast.CoreID{id}, r.q.Parents(id)...) {
		if core := r.q.Core(cid); core != nil {
			out = append(out, core.CTEs...)
		}
	}
	return out
}

func (r *Resolver) lookupCTE(id ast.CoreID, name string) (ast.CTE, bool) {
	key := ast.Fold(name)
	for _, cte := range r.visibleCTEs(id) {
		if ast.Fold(cte.Name) == key {
			return cte, true
		}
	}
	return ast.CTE{}, false
}

func (r *Resolver) cteColumns(ctx context.Context, cte ast.CTE, depth int) []Column {
	var cols []Column
	if len(cte.Columns) > 0 {
		for _, name := range cte.Columns {
			cols = append(cols, Column{Name: name})
		}
	} else {
		cols = r.project(ctx, cte.Cores, depth)
	}
	for i := range cols {
		cols[i].Table = cte.Name
	}
	return cols
}

// project returns the result columns of a possibly compound select. Compound
// selects take their column names from the first core.
func (r *Resolver) project(ctx context.Context, cores []ast.CoreID, depth int) []Column {
	if depth > maxDepth || len(cores) == 0 {
		return nil
	}
	core := r.q.Core(cores[0])
	if core == nil || core.Values {
		return nil
	}
	inner := New()
	r.fill(ctx, inner, core, depth)

	var out []Column
	for _, rc := range core.Columns {
		switch {
		case rc.Star && rc.Table == "":
			out = appendProjected(out, inner.Columns)
		case rc.Star:
			cols, _ := inner.LookupQualifier("", rc.Table)
			out = appendProjected(out, cols)
		default:
			name := rc.OutputName()
			if name == "" {
				continue
			}
			out = append(out, Column{Name: name, Type: inner.columnType(rc.Table, rc.Name)})
		}
	}
	return out
}

// appendProjected copies cols as subquery output, dropping the rowid pseudo
// column that "*" never expands to.
func appendProjected(out, cols []Column) []Column {
	for _, c := range cols {
		if c.RowID {
			continue
		}
		out = append(out, Column{Name: c.Name, Type: c.Type})
	}
	return out
}

func (s *Scope) columnType(qualifier, name string) string {
	if name == "" {
		return ""
	}
	cols := s.Columns
	if qualifier != "" {
		cols, _ = s.LookupQualifier("", qualifier)
	}
	key := ast.Fold(name)
	for _, c := range cols {
		if ast.Fold(c.Name) == key {
			return c.Type
		}
	}
	return ""
}
