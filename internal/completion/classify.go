package completion

import (
	"strings"

	"github.com/electwix/sqlcomplete/internal/query/ast"
	"github.com/electwix/sqlcomplete/internal/schema/tokenizer"
)

// prevWindow is how many significant tokens before the cursor are kept.
const prevWindow = 5

// Hint names the kind of schema object a preceding keyword asks for, as in
// "DROP INDEX" or "PRAGMA".
type Hint int

const (
	HintNone Hint = iota
	HintTable
	HintIndex
	HintTrigger
	HintView
	HintPragma
	HintCollation
	HintDatabase
)

// TablePos is the cursor position inside a CREATE TABLE statement.
type TablePos int

const (
	TableHeader TablePos = iota
	TableDefStart
	TableColumnType
	TableColumnConstraint
	TableConstraint
	TableConstraintColumns
	TableCheck
	TableReferences
	TableReferencedColumns
	TableTypeArgs
	TableOptions
)

// Qualifier is a "name." or "database.name." reference before the cursor.
type Qualifier struct {
	Database string
	Name     string
}

// IsZero reports whether no qualifier precedes the cursor.
func (q Qualifier) IsZero() bool {
	return q.Name == ""
}

// Classification describes where the cursor sits in a parsed query.
type Classification struct {
	Context   Context
	Statement *ast.Statement
	// Core is the innermost select core containing the cursor, and Parents
	// its enclosing cores, innermost first.
	Core    ast.CoreID
	Parents []ast.CoreID
	Clause  ast.Clause
	// Depth is the parenthesis depth of the cursor within its clause.
	Depth int
	// Prev holds the significant tokens before the cursor, nearest first.
	Prev      []tokenizer.Token
	Qualifier Qualifier
	Hint      Hint
	// AtStart is set when a new statement may begin at the cursor.
	AtStart bool

	// Target is the table an UPDATE, DELETE, INSERT or CREATE INDEX works on.
	Target      ast.Name
	TargetAlias string
	// Outer is the UPDATE or DELETE target seen by a subquery of that
	// statement.
	Outer      ast.Name
	OuterAlias string
	// Trigger is the CREATE TRIGGER statement around the cursor.
	Trigger *ast.CreateTriggerStmt
	// TriggerBody is set between the statements of a trigger body.
	TriggerBody bool

	TablePos TablePos
	// Favored are the column names defined earlier in a CREATE TABLE.
	Favored []string
	// RefTable is the table of "REFERENCES t(" when TablePos is
	// TableReferencedColumns.
	RefTable string
}

// Previous returns the significant token right before the cursor.
func (c Classification) Previous() tokenizer.Token {
	return c.prev(0)
}

// TwoBack returns the significant token before Previous.
func (c Classification) TwoBack() tokenizer.Token {
	return c.prev(1)
}

func (c Classification) prev(i int) tokenizer.Token {
	if i < len(c.Prev) {
		return c.Prev[i]
	}
	return tokenizer.Token{}
}

// Classify determines the completion context of cursor in q. The word being
// completed must already have been removed from the query text.
func Classify(q *ast.Query, cursor int) Classification {
	c := Classification{Core: ast.NoCore, Clause: ast.ClauseColumns}
	c.Prev = previousTokens(q.Tokens, cursor)
	c.Qualifier = qualifierOf(c.Prev)

	stmt := locate(q.Statements, cursor, ast.Unset)
	if stmt == nil || startsStatement(c.Prev) {
		c.Context = ContextNone
		c.AtStart = len(c.Prev) == 0 || c.Previous().IsOperator(";") || startsStatement(c.Prev)
		return c
	}
	c.Statement = stmt
	classifyStatement(q, &c, stmt, cursor)
	c.Hint = objectHint(c)
	return c
}

// locate returns the statement the cursor belongs to. Trailing input after
// an unterminated last statement continues it. limit, when set, extends the
// last statement up to that offset.
func locate(stmts []*ast.Statement, cursor, limit int) *ast.Statement {
	for i, s := range stmts {
		if len(s.Tokens) == 0 {
			continue
		}
		if cursor <= s.Start {
			return nil
		}
		end := s.End
		if s.Terminated {
			end = s.End - 1
		}
		if cursor <= end {
			return s
		}
		if !s.Terminated && i == len(stmts)-1 && (limit == ast.Unset || cursor <= limit) {
			return s
		}
	}
	return nil
}

func classifyStatement(q *ast.Query, c *Classification, stmt *ast.Statement, cursor int) {
	if trig, ok := stmt.Body.(*ast.CreateTriggerStmt); ok {
		classifyTrigger(q, c, trig, cursor)
		return
	}
	if id := innermostCore(q, stmt, cursor); id != ast.NoCore {
		classifyCore(q, c, stmt, id, cursor)
		switch body := stmt.Body.(type) {
		case *ast.UpdateStmt:
			c.Outer, c.OuterAlias = body.Table, body.Alias
		case *ast.DeleteStmt:
			c.Outer, c.OuterAlias = body.Table, body.Alias
		}
		return
	}

	c.Context = ContextExpr
	switch body := stmt.Body.(type) {
	case *ast.InsertStmt:
		c.Target, c.TargetAlias = body.Table, body.Alias
		if body.ColumnsOpen != ast.Unset && cursor >= body.ColumnsOpen &&
			(body.ColumnsClose == ast.Unset || cursor <= body.ColumnsClose) {
			c.Context = ContextInsertColumn
		}
	case *ast.UpdateStmt:
		c.Target, c.TargetAlias = body.Table, body.Alias
		if body.SetStart != ast.Unset && cursor >= body.SetStart &&
			(body.WhereStart == ast.Unset || cursor < body.WhereStart) &&
			!inAssignmentValue(stmt.Tokens, body.SetStart, cursor) {
			c.Context = ContextUpdateColumn
		}
	case *ast.DeleteStmt:
		c.Target, c.TargetAlias = body.Table, body.Alias
	case *ast.CreateIndexStmt:
		c.Target = body.Table
	case *ast.CreateTableStmt:
		classifyCreateTable(c, stmt, body, cursor)
	}
}

func classifyTrigger(q *ast.Query, c *Classification, trig *ast.CreateTriggerStmt, cursor int) {
	c.Trigger = trig
	if trig.InBody(cursor) {
		if body := locate(trig.Body, cursor, trig.EndStart); body != nil {
			c.Statement = body
			classifyStatement(q, c, body, cursor)
			return
		}
		c.Context = ContextCreateTrigger
		c.TriggerBody = true
		return
	}
	if trig.WhenStart != ast.Unset && cursor >= trig.WhenStart &&
		(trig.BeginStart == ast.Unset || cursor <= trig.BeginStart) {
		c.Context = ContextExpr
		return
	}
	c.Context = ContextCreateTrigger
}

// innermostCore returns the core of stmt that contains cursor and starts
// last, or ast.NoCore.
func innermostCore(q *ast.Query, stmt *ast.Statement, cursor int) ast.CoreID {
	best := ast.NoCore
	bestStart := -1
	for _, id := range stmt.Cores {
		core := q.Core(id)
		if core == nil || cursor <= core.Start || !core.Contains(cursor) {
			continue
		}
		if core.Start > bestStart {
			best, bestStart = id, core.Start
		}
	}
	return best
}

func classifyCore(q *ast.Query, c *Classification, stmt *ast.Statement, id ast.CoreID, cursor int) {
	core := q.Core(id)
	c.Core = id
	c.Parents = q.Parents(id)
	c.Clause = core.ClauseAt(cursor)
	start, _ := core.ClauseOffset(c.Clause)
	depth, open := openParen(stmt.Tokens, start, cursor)
	c.Depth = depth

	switch {
	case core.Values:
		c.Context = ContextExpr
	case c.Clause == ast.ClauseFrom:
		c.Context = ContextFrom
		for _, src := range core.From {
			if src.InConstraint(cursor) {
				c.Context = ContextExpr
			}
		}
		if open >= 1 && stmt.Tokens[open-1].IsName() {
			// Table-valued function arguments.
			c.Context = ContextExpr
		}
	case depth > 0:
		c.Context = ContextExpr
	default:
		c.Context = clauseContexts[c.Clause]
	}
}

var clauseContexts = map[ast.Clause]Context{
	ast.ClauseColumns: ContextResultColumn,
	ast.ClauseFrom:    ContextFrom,
	ast.ClauseWhere:   ContextWhere,
	ast.ClauseGroupBy: ContextGroupBy,
	ast.ClauseHaving:  ContextHaving,
	ast.ClauseWindow:  ContextExpr,
	ast.ClauseOrderBy: ContextOrderBy,
	ast.ClauseLimit:   ContextLimit,
}

// openParen scans tokens between from and cursor and returns the depth of
// unclosed parentheses and the index of the innermost one, or -1.
func openParen(tokens []tokenizer.Token, from, cursor int) (int, int) {
	var stack []int
	for i, tok := range tokens {
		if tok.Start < from {
			continue
		}
		if tok.End > cursor {
			break
		}
		switch {
		case tok.IsOperator("("):
			stack = append(stack, i)
		case tok.IsOperator(")") && len(stack) > 0:
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) == 0 {
		return 0, -1
	}
	return len(stack), stack[len(stack)-1]
}

// inAssignmentValue reports whether the cursor follows the "=" of an UPDATE
// assignment rather than sitting at a column position.
func inAssignmentValue(tokens []tokenizer.Token, setStart, cursor int) bool {
	value := false
	depth := 0
	for _, tok := range tokens {
		if tok.Start < setStart {
			continue
		}
		if tok.End > cursor {
			break
		}
		switch {
		case tok.IsOperator("("):
			depth++
		case tok.IsOperator(")"):
			depth--
		case depth == 0 && tok.IsOperator("="):
			value = true
		case depth == 0 && tok.IsOperator(","):
			value = false
		}
	}
	return value
}

var tableConstraintStarters = map[string]bool{
	"CONSTRAINT": true,
	"PRIMARY":    true,
	"UNIQUE":     true,
	"CHECK":      true,
	"FOREIGN":    true,
}

func classifyCreateTable(c *Classification, stmt *ast.Statement, body *ast.CreateTableStmt, cursor int) {
	c.Context = ContextCreateTable
	c.Target = body.Table
	switch {
	case body.Open == ast.Unset || cursor < body.Open:
		c.TablePos = TableHeader
		return
	case body.Close != ast.Unset && cursor > body.Close:
		c.TablePos = TableOptions
		return
	}

	// Split the definition list at top-level commas; elem is the current
	// definition up to the cursor.
	var elem []tokenizer.Token
	elemStart := body.Open
	depth := 0
	for _, tok := range stmt.Tokens {
		if tok.Start < body.Open {
			continue
		}
		if tok.End > cursor {
			break
		}
		switch {
		case tok.IsOperator("("):
			depth++
		case tok.IsOperator(")"):
			depth--
		case depth == 0 && tok.IsOperator(","):
			elem = elem[:0]
			elemStart = tok.End
			continue
		}
		elem = append(elem, tok)
	}
	for _, col := range body.Columns {
		if col.Start < elemStart {
			c.Favored = append(c.Favored, col.Name)
		}
	}

	if _, open := openParen(elem, 0, cursor); open >= 0 {
		before := elem[:open]
		last := lastToken(before)
		switch {
		case last.IsKeyword("KEY"), last.IsKeyword("UNIQUE"):
			c.TablePos = TableConstraintColumns
		case last.IsKeyword("CHECK"), last.IsKeyword("DEFAULT"), last.IsKeyword("AS"):
			c.TablePos = TableCheck
		case len(before) >= 2 && before[len(before)-2].IsKeyword("REFERENCES"):
			c.TablePos = TableReferencedColumns
			c.RefTable = last.Value()
		default:
			c.TablePos = TableTypeArgs
		}
		if c.TablePos != TableConstraintColumns && c.TablePos != TableCheck {
			c.Favored = nil
		}
		return
	}
	c.Favored = nil

	switch {
	case len(elem) == 0:
		c.TablePos = TableDefStart
	case lastToken(elem).IsKeyword("REFERENCES"):
		c.TablePos = TableReferences
	case elem[0].Kind == tokenizer.KindKeyword && tableConstraintStarters[strings.ToUpper(elem[0].Text)]:
		c.TablePos = TableConstraint
	case len(elem) == 1:
		c.TablePos = TableColumnType
	default:
		c.TablePos = TableColumnConstraint
	}
}

func lastToken(tokens []tokenizer.Token) tokenizer.Token {
	if len(tokens) == 0 {
		return tokenizer.Token{}
	}
	return tokens[len(tokens)-1]
}

// previousTokens returns up to prevWindow significant tokens ending at or
// before cursor, nearest first.
func previousTokens(tokens []tokenizer.Token, cursor int) []tokenizer.Token {
	var out []tokenizer.Token
	for i := len(tokens) - 1; i >= 0 && len(out) < prevWindow; i-- {
		tok := tokens[i]
		if tok.End > cursor || !tok.Significant() {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// qualifierOf recognises "name." and "db.name." right before the cursor.
func qualifierOf(prev []tokenizer.Token) Qualifier {
	if len(prev) < 2 || !prev[0].IsOperator(".") || !isNameToken(prev[1]) {
		return Qualifier{}
	}
	q := Qualifier{Name: prev[1].Value()}
	if len(prev) >= 4 && prev[2].IsOperator(".") && isNameToken(prev[3]) {
		q.Database = prev[3].Value()
	}
	return q
}

func isNameToken(tok tokenizer.Token) bool {
	return tok.IsName() || tok.Kind == tokenizer.KindString
}

// startsStatement reports whether the tokens before the cursor only prefix
// a statement, as "EXPLAIN" and "EXPLAIN QUERY PLAN" do.
func startsStatement(prev []tokenizer.Token) bool {
	if len(prev) == 0 {
		return false
	}
	switch {
	case prev[0].IsKeyword("EXPLAIN"):
		return true
	case prev[0].IsKeyword("PLAN") && len(prev) > 1 && prev[1].IsKeyword("QUERY"):
		return true
	}
	return false
}

// objectHint derives the object kind a keyword before the cursor asks for.
// A qualifier between the keyword and the cursor is skipped.
func objectHint(c Classification) Hint {
	prev := c.Prev
	if !c.Qualifier.IsZero() {
		skip := 2
		if c.Qualifier.Database != "" {
			skip = 4
		}
		prev = prev[min(skip, len(prev)):]
	}
	at := func(i int) tokenizer.Token {
		if i < len(prev) {
			return prev[i]
		}
		return tokenizer.Token{}
	}
	kw := func(i int, words ...string) bool {
		for _, w := range words {
			if at(i).IsKeyword(w) {
				return true
			}
		}
		return false
	}
	dropped := func(i int) Hint {
		switch strings.ToUpper(at(i).Text) {
		case "INDEX":
			return HintIndex
		case "TRIGGER":
			return HintTrigger
		case "VIEW":
			return HintView
		case "TABLE":
			return HintTable
		}
		return HintNone
	}

	switch {
	case kw(0, "PRAGMA"):
		return HintPragma
	case kw(0, "COLLATE"):
		return HintCollation
	case kw(0, "REINDEX"):
		return HintIndex
	case kw(0, "BY") && kw(1, "INDEXED"):
		return HintIndex
	case kw(0, "INDEX", "TRIGGER", "VIEW", "TABLE") && kw(1, "DROP"):
		return dropped(0)
	case kw(0, "EXISTS") && kw(1, "IF") && kw(3, "DROP"):
		return dropped(2)
	case kw(0, "TABLE") && kw(1, "ALTER"):
		return HintTable
	case kw(0, "INTO") && kw(1, "INSERT", "REPLACE"):
		return HintTable
	case kw(0, "INTO") && kw(2, "OR"):
		return HintTable
	case kw(0, "UPDATE") && isUpdate(c.Statement):
		return HintTable
	case kw(1, "OR") && kw(2, "UPDATE") && isUpdate(c.Statement):
		return HintTable
	case kw(0, "FROM") && kw(1, "DELETE"):
		return HintTable
	case kw(0, "ON") && (c.Trigger != nil && c.Context == ContextCreateTrigger || isCreateIndex(c.Statement)):
		return HintTable
	case kw(0, "REFERENCES"):
		return HintTable
	case kw(0, "DETACH"), kw(0, "DATABASE") && kw(1, "DETACH"):
		return HintDatabase
	}
	return HintNone
}

func isUpdate(stmt *ast.Statement) bool {
	if stmt == nil {
		return false
	}
	_, ok := stmt.Body.(*ast.UpdateStmt)
	return ok
}

func isCreateIndex(stmt *ast.Statement) bool {
	if stmt == nil {
		return false
	}
	_, ok := stmt.Body.(*ast.CreateIndexStmt)
	return ok
}
