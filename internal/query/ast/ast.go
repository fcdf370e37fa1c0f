// Package ast defines the statement tree produced by the query parser.
//
// Statements carry a sealed Node body. SELECT cores are stored in an arena on
// the Query and refer to their enclosing core through CoreID, so nested
// subqueries never hold pointers back into their parent.
package ast

import (
	"strings"

	"github.com/electwix/sqlcomplete/internal/schema/tokenizer"
)

// CoreID indexes Query.Cores.
type CoreID int

// NoCore marks a core without an enclosing core.
const NoCore CoreID = -1

// Unset marks an absent byte offset.
const Unset = -1

// Query is the parse result for one SQL buffer.
type Query struct {
	SQL        string
	Tokens     []tokenizer.Token
	Statements []*Statement
	Cores      []*Core
}

// Core returns the core for id, or nil when id is out of range.
func (q *Query) Core(id CoreID) *Core {
	if id < 0 || int(id) >= len(q.Cores) {
		return nil
	}
	return q.Cores[id]
}

// Parents returns the enclosing cores of id, innermost first.
func (q *Query) Parents(id CoreID) []CoreID {
	var out []CoreID
	core := q.Core(id)
	for core != nil && core.Parent != NoCore {
		out = append(out, core.Parent)
		core = q.Core(core.Parent)
	}
	return out
}

// Diagnostics collects the stop markers of every statement, including
// statements nested in trigger bodies.
func (q *Query) Diagnostics() []Diagnostic {
	var out []Diagnostic
	var walk func([]*Statement)
	walk = func(stmts []*Statement) {
		for _, stmt := range stmts {
			if stmt.Err != nil {
				out = append(out, *stmt.Err)
			}
			if trig, ok := stmt.Body.(*CreateTriggerStmt); ok {
				walk(trig.Body)
			}
		}
	}
	walk(q.Statements)
	return out
}

// Diagnostic marks where parsing of a statement stopped.
type Diagnostic struct {
	Offset  int
	Line    int
	Column  int
	Message string
}

// Statement is one parsed SQL statement.
type Statement struct {
	Body Node
	// Tokens holds the significant tokens of the statement, including a
	// terminating semicolon.
	Tokens []tokenizer.Token
	// Start and End are the byte range covered by Tokens.
	Start, End int
	Terminated bool
	// Cores lists every core created while parsing this statement.
	Cores []CoreID
	// Err is set when parsing stopped before the end of the statement.
	Err *Diagnostic
}

// Contains reports whether offset lies within the statement's byte range.
func (s *Statement) Contains(offset int) bool {
	return offset >= s.Start && offset <= s.End
}

// Node is implemented by every statement body.
type Node interface {
	node()
}

// Name is a possibly database-qualified object name.
type Name struct {
	Database string
	Name     string
	Start    int
	End      int
}

// IsZero reports whether the name was never parsed.
func (n Name) IsZero() bool {
	return n.Name == ""
}

func (n Name) String() string {
	if n.Database == "" {
		return n.Name
	}
	return n.Database + "." + n.Name
}

// SelectStmt is a simple or compound SELECT.
type SelectStmt struct {
	Cores []CoreID
}

// InsertStmt is INSERT or REPLACE.
type InsertStmt struct {
	Table   Name
	Alias   string
	Columns []string
	// ColumnsOpen is the offset after the column list's "(", ColumnsClose the
	// offset of its ")".
	ColumnsOpen  int
	ColumnsClose int
	Select       []CoreID
}

// UpdateStmt is UPDATE.
type UpdateStmt struct {
	Table       Name
	Alias       string
	SetStart    int
	Assignments []Assignment
	WhereStart  int
}

// Assignment is one "column = expr" pair in an UPDATE SET list.
type Assignment struct {
	Columns    []string
	Start      int
	ValueStart int
}

// DeleteStmt is DELETE.
type DeleteStmt struct {
	Table      Name
	Alias      string
	WhereStart int
}

// CreateTableStmt is CREATE TABLE, including the AS SELECT form.
type CreateTableStmt struct {
	Table       Name
	Temp        bool
	IfNotExists bool
	// Open is the offset after the definition list's "(", Close the offset of
	// its ")".
	Open        int
	Close       int
	Columns     []ColumnDef
	Constraints []TableConstraint
	AsSelect    []CoreID
}

// ColumnDef is one column definition in CREATE TABLE.
type ColumnDef struct {
	Name  string
	Type  string
	Start int
	End   int
}

// TableConstraint is a table-level constraint in CREATE TABLE.
type TableConstraint struct {
	Kind    string
	Columns []string
	Start   int
	End     int
}

// CreateIndexStmt is CREATE INDEX.
type CreateIndexStmt struct {
	Index      Name
	Table      Name
	Unique     bool
	Open       int
	Close      int
	WhereStart int
}

// CreateViewStmt is CREATE VIEW.
type CreateViewStmt struct {
	View    Name
	Columns []string
	Select  []CoreID
}

// CreateTriggerStmt is CREATE TRIGGER. Body holds the statements between
// BEGIN and END.
type CreateTriggerStmt struct {
	Trigger    Name
	Timing     string
	Event      string
	Table      Name
	WhenStart  int
	BeginStart int
	EndStart   int
	Body       []*Statement
}

// InBody reports whether offset lies between BEGIN and END.
func (t *CreateTriggerStmt) InBody(offset int) bool {
	if t.BeginStart == Unset || offset < t.BeginStart+len("BEGIN") {
		return false
	}
	return t.EndStart == Unset || offset <= t.EndStart
}

// PragmaStmt is PRAGMA.
type PragmaStmt struct {
	Name Name
}

// OtherStmt is any statement the parser does not model in detail.
type OtherStmt struct {
	Verb string
}

func (*SelectStmt) node()        {}
func (*InsertStmt) node()        {}
func (*UpdateStmt) node()        {}
func (*DeleteStmt) node()        {}
func (*CreateTableStmt) node()   {}
func (*CreateIndexStmt) node()   {}
func (*CreateViewStmt) node()    {}
func (*CreateTriggerStmt) node() {}
func (*PragmaStmt) node()        {}
func (*OtherStmt) node()         {}

// Clause identifies a clause of a select core.
type Clause int

const (
	ClauseColumns Clause = iota
	ClauseFrom
	ClauseWhere
	ClauseGroupBy
	ClauseHaving
	ClauseWindow
	ClauseOrderBy
	ClauseLimit
	clauseCount
)

func (c Clause) String() string {
	switch c {
	case ClauseColumns:
		return "columns"
	case ClauseFrom:
		return "FROM"
	case ClauseWhere:
		return "WHERE"
	case ClauseGroupBy:
		return "GROUP BY"
	case ClauseHaving:
		return "HAVING"
	case ClauseWindow:
		return "WINDOW"
	case ClauseOrderBy:
		return "ORDER BY"
	case ClauseLimit:
		return "LIMIT"
	}
	return "unknown"
}

// Core is one SELECT (or VALUES) unit of a possibly compound select.
type Core struct {
	ID     CoreID
	Parent CoreID
	// Start is the offset of the SELECT keyword. End is the offset of the
	// token that closed the core; it is only meaningful when Closed.
	Start  int
	End    int
	Closed bool
	Values bool

	Distinct bool
	Columns  []ResultColumn
	From     []Source
	CTEs     []CTE

	// clauses holds, per clause, the offset just after the clause keyword.
	clauses [clauseCount]int
}

// NewCore returns a core with every clause marked absent.
func NewCore(id, parent CoreID, start int) *Core {
	c := &Core{ID: id, Parent: parent, Start: start, End: Unset}
	for i := range c.clauses {
		c.clauses[i] = Unset
	}
	c.clauses[ClauseColumns] = start
	return c
}

// SetClause records the offset just after the keyword opening clause.
func (c *Core) SetClause(cl Clause, offset int) {
	c.clauses[cl] = offset
}

// ClauseOffset returns the offset recorded for cl.
func (c *Core) ClauseOffset(cl Clause) (int, bool) {
	off := c.clauses[cl]
	return off, off != Unset
}

// Has reports whether the clause is present.
func (c *Core) Has(cl Clause) bool {
	return c.clauses[cl] != Unset
}

// ClauseAt returns the last clause whose keyword ends at or before offset.
func (c *Core) ClauseAt(offset int) Clause {
	found := ClauseColumns
	best := Unset
	for cl := ClauseColumns; cl < clauseCount; cl++ {
		off := c.clauses[cl]
		if off == Unset || off > offset {
			continue
		}
		if off >= best {
			best = off
			found = cl
		}
	}
	return found
}

// Contains reports whether offset lies inside the core.
func (c *Core) Contains(offset int) bool {
	if offset < c.Start {
		return false
	}
	return !c.Closed || offset <= c.End
}

// ResultColumn is one entry of the result-column list.
type ResultColumn struct {
	Star bool
	// Table is the qualifier of "t.*" or of a qualified column reference.
	Table string
	// Name is set when the expression is a plain column reference.
	Name  string
	Alias string
	Start int
	End   int
}

// OutputName is the name the column is visible under from outside the core.
func (rc ResultColumn) OutputName() string {
	if rc.Alias != "" {
		return rc.Alias
	}
	return rc.Name
}

// SourceKind distinguishes FROM clause items.
type SourceKind int

const (
	SourceTable SourceKind = iota
	SourceSubquery
	SourceFunction
)

// Source is one FROM clause item.
type Source struct {
	Kind  SourceKind
	Name  Name
	Alias string
	// Subquery holds the cores of a subquery source, compound members in order.
	Subquery []CoreID
	// Join is the join operator preceding the item, empty for the first.
	Join string
	// ConstraintStart is the offset after ON or USING, ConstraintEnd the offset
	// where the constraint stopped. ConstraintEnd is Unset while it is still
	// open at the end of input.
	ConstraintStart int
	ConstraintEnd   int
	Start           int
	End             int
}

// Visible returns the name the source is referenced by.
func (s Source) Visible() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name.Name
}

// InConstraint reports whether offset lies in the ON or USING constraint.
func (s Source) InConstraint(offset int) bool {
	if s.ConstraintStart == Unset || offset < s.ConstraintStart {
		return false
	}
	return s.ConstraintEnd == Unset || offset <= s.ConstraintEnd
}

// CTE is a common table expression visible to a core.
type CTE struct {
	Name    string
	Columns []string
	Cores   []CoreID
	Start   int
	End     int
}

// Fold normalizes a name for case-insensitive lookups.
func Fold(name string) string {
	return strings.ToUpper(name)
}
