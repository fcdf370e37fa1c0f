package completion

import (
	"context"
	"strings"

	"github.com/electwix/sqlcomplete/internal/dialect"
	"github.com/electwix/sqlcomplete/internal/logging"
	"github.com/electwix/sqlcomplete/internal/query/ast"
	"github.com/electwix/sqlcomplete/internal/query/scope"
	"github.com/electwix/sqlcomplete/internal/schema/source"
	"github.com/electwix/sqlcomplete/internal/schema/tokenizer"
)

var (
	clauseKeywords = []string{
		"FROM", "WHERE", "GROUP", "HAVING", "WINDOW", "ORDER", "LIMIT",
		"UNION", "INTERSECT", "EXCEPT",
	}
	exprKeywords = []string{
		"AND", "OR", "NOT", "IS", "IN", "LIKE", "GLOB", "REGEXP", "MATCH",
		"BETWEEN", "ESCAPE", "COLLATE", "ISNULL", "NOTNULL",
		"NULL", "EXISTS", "CASE", "CAST", "CURRENT_DATE", "CURRENT_TIME",
		"CURRENT_TIMESTAMP",
	}
	joinKeywords = []string{
		"JOIN", "LEFT", "RIGHT", "FULL", "INNER", "CROSS", "NATURAL",
		"ON", "USING", "AS", "INDEXED", "NOT",
	}
	triggerBodyKeywords = []string{"INSERT", "UPDATE", "DELETE", "SELECT", "REPLACE", "WITH", "END"}
	triggerEvents       = []string{"DELETE", "INSERT", "UPDATE"}
	conflictKeywords    = []string{"ABORT", "FAIL", "IGNORE", "REPLACE", "ROLLBACK"}
)

// generator collects the raw candidates of one request.
type generator struct {
	ctx context.Context
	cls Classification
	sc  *scope.Scope
	cat *dialect.Catalog
	src source.Source
	log logging.Logger
	out []ExpectedToken
}

// generate fills g.out. It reports whether the candidates are a forced
// continuation that must not be pruned by the context-keyword filter.
func (g *generator) generate() bool {
	if words := continuation(g.cls); words != nil {
		g.keywords(words...)
		return true
	}
	if g.cls.Hint != HintNone {
		g.objects(g.cls.Hint, g.cls.Qualifier.Name)
		return false
	}
	if !g.cls.Qualifier.IsZero() {
		g.qualified()
		return false
	}

	switch g.cls.Context {
	case ContextNone:
		if g.cls.AtStart {
			g.keywords(g.cat.Statements...)
		}
		if g.cls.Previous().IsKeyword("EXPLAIN") {
			g.keywords("QUERY")
		}
	case ContextResultColumn:
		g.expression(true)
		if g.cls.Previous().IsKeyword("SELECT") {
			g.keywords("DISTINCT", "ALL")
		}
		g.keywords("AS")
		g.keywords(clauseKeywords...)
	case ContextFrom:
		g.from()
	case ContextWhere, ContextHaving:
		g.expression(true)
		g.keywords(clauseKeywords...)
	case ContextGroupBy:
		g.columns(false)
		g.resultAliases()
		g.keywords(clauseKeywords...)
	case ContextOrderBy:
		g.columns(false)
		g.resultAliases()
		g.keywords("ASC", "DESC", "COLLATE", "NULLS")
		g.keywords(clauseKeywords...)
	case ContextLimit:
		g.keywords("OFFSET")
	case ContextUpdateColumn, ContextInsertColumn:
		g.targetColumns()
	case ContextCreateTable:
		g.createTable()
	case ContextCreateTrigger:
		g.createTrigger()
	case ContextExpr:
		g.expression(true)
		g.exprContinuations()
	}
	return false
}

func (g *generator) add(t ExpectedToken) {
	g.out = append(g.out, t)
}

// pseudoKeywords are accepted by the grammar without being reserved words.
var pseudoKeywords = map[string]bool{"ROWID": true, "STRICT": true}

func (g *generator) keywords(words ...string) {
	for _, w := range words {
		if g.cat.Supports(w) || pseudoKeywords[w] {
			g.add(ExpectedToken{Type: TypeKeyword, Value: w, Priority: PriorityKeyword})
		}
	}
}

func (g *generator) lookupFailed(what string, err error) {
	g.log.Debug("schema lookup failed", "kind", what, "error", err)
}

// expression offers what may start or continue an expression: columns,
// qualifying table names, functions and operator keywords.
func (g *generator) expression(functions bool) {
	g.columns(true)
	g.scopeTables()
	if functions {
		g.functions()
	}
	g.keywords(exprKeywords...)
}

// exprContinuations adds the clause or statement keywords that may follow
// an expression in its statement.
func (g *generator) exprContinuations() {
	if g.cls.Depth > 0 {
		return
	}
	if g.cls.Core != ast.NoCore {
		if g.cls.Clause == ast.ClauseFrom {
			g.keywords(joinKeywords...)
		}
		g.keywords(clauseKeywords...)
		return
	}
	if g.cls.Statement == nil {
		return
	}
	switch body := g.cls.Statement.Body.(type) {
	case *ast.UpdateStmt:
		if body.WhereStart == ast.Unset {
			g.keywords("WHERE", "FROM")
		}
		g.keywords("RETURNING")
	case *ast.DeleteStmt:
		if body.WhereStart == ast.Unset {
			g.keywords("WHERE")
		}
		g.keywords("RETURNING")
	case *ast.InsertStmt:
		g.keywords("VALUES", "SELECT", "DEFAULT", "ON", "RETURNING")
	case *ast.CreateIndexStmt:
		g.keywords("ASC", "DESC", "COLLATE", "WHERE")
	case *ast.CreateViewStmt:
		g.keywords("AS", "SELECT", "VALUES", "WITH")
	case *ast.CreateTriggerStmt:
		g.keywords("BEGIN")
	}
}

// columns offers the columns in scope. Parent core columns follow at a lower
// priority when withParents is set.
func (g *generator) columns(withParents bool) {
	ambiguous := ambiguousColumns(g.sc.Columns)
	for _, c := range g.sc.Columns {
		tok := columnToken(c, PriorityColumn)
		if c.Table != "" && ambiguous[ast.Fold(c.Name)] {
			tok.Prefix = g.sc.Qualifier(c.Table) + "."
		}
		g.add(tok)
	}
	if !withParents {
		return
	}
	for _, c := range g.sc.ParentColumns {
		if g.cls.Trigger != nil && ast.Fold(c.Table) == ast.Fold(g.cls.Trigger.Table.Name) {
			g.rowColumns(c)
			continue
		}
		tok := columnToken(c, PriorityParentColumn)
		if c.Table != "" {
			tok.Prefix = g.sc.Qualifier(c.Table) + "."
		}
		g.add(tok)
	}
}

// rowColumns offers a trigger table column through the OLD and NEW rows the
// trigger event provides.
func (g *generator) rowColumns(c scope.Column) {
	for _, row := range triggerRows(g.cls.Trigger.Event) {
		tok := columnToken(c, PriorityParentColumn)
		tok.ContextInfo = row
		tok.Prefix = row + "."
		g.add(tok)
	}
}

func columnToken(c scope.Column, priority int) ExpectedToken {
	if c.RowID {
		priority = min(priority, PriorityRowID)
	}
	return ExpectedToken{
		Type:        TypeColumn,
		Value:       c.Name,
		ContextInfo: c.Table,
		Label:       c.Type,
		Priority:    priority,
	}
}

// ambiguousColumns returns the folded names carried by more than one table.
func ambiguousColumns(cols []scope.Column) map[string]bool {
	owner := make(map[string]string)
	out := make(map[string]bool)
	for _, c := range cols {
		if c.Table == "" {
			continue
		}
		name, table := ast.Fold(c.Name), ast.Fold(c.Table)
		if prev, ok := owner[name]; ok && prev != table {
			out[name] = true
			continue
		}
		owner[name] = table
	}
	return out
}

// scopeTables offers the names tables in scope are referenced by, for
// qualification.
func (g *generator) scopeTables() {
	for _, t := range g.sc.Tables {
		g.add(scopeTableToken(t, PriorityTable))
	}
	for _, t := range g.sc.ParentTables {
		g.add(scopeTableToken(t, PriorityParentColumn))
	}
}

func scopeTableToken(t scope.Table, priority int) ExpectedToken {
	tok := ExpectedToken{Type: TypeTable, Value: t.Visible(), Label: t.Kind.String(), Priority: priority}
	if t.Alias != "" {
		tok.ContextInfo = t.Name
	}
	return tok
}

func (g *generator) resultAliases() {
	for _, alias := range g.sc.ResultAliases {
		g.add(ExpectedToken{Type: TypeColumn, Value: alias, Label: "alias", Priority: PriorityColumn})
	}
}

// targetColumns offers the columns of the UPDATE or INSERT target only.
func (g *generator) targetColumns() {
	cols, _ := g.sc.LookupQualifier(g.cls.Target.Database, g.cls.Target.Name)
	for _, c := range cols {
		g.add(columnToken(c, PriorityColumn))
	}
}

func (g *generator) functions() {
	fns, err := g.src.Functions(g.ctx, g.cat.Dialect)
	if err != nil {
		g.lookupFailed("functions", err)
		fns = g.cat.Functions
	}
	var order []string
	signatures := make(map[string][]string)
	for _, fn := range fns {
		if _, ok := signatures[fn.Name]; !ok {
			order = append(order, fn.Name)
		}
		signatures[fn.Name] = append(signatures[fn.Name], fn.Signature)
	}
	for _, name := range order {
		g.add(ExpectedToken{
			Type:     TypeFunction,
			Value:    name + "(",
			Label:    strings.Join(signatures[name], "; "),
			Priority: PriorityFunction,
		})
	}
}

// from handles the FROM clause: object names right after FROM, JOIN or a
// comma, join and clause keywords after a complete table reference.
func (g *generator) from() {
	prev := g.cls.Previous()
	if len(g.cls.Prev) == 0 || prev.IsKeyword("FROM") || prev.IsKeyword("JOIN") ||
		prev.IsOperator(",") || prev.IsOperator("(") {
		g.tables("", true)
		for _, name := range g.sc.CTEs {
			g.add(ExpectedToken{Type: TypeTable, Value: name, Label: "cte", Priority: PriorityTable})
		}
		g.databases()
		if prev.IsOperator("(") {
			g.keywords("SELECT", "VALUES", "WITH")
		}
		return
	}
	g.keywords(joinKeywords...)
	g.keywords(clauseKeywords...)
}

func (g *generator) tables(database string, views bool) {
	tables, err := g.src.Tables(g.ctx, database)
	if err != nil {
		g.lookupFailed("tables", err)
		return
	}
	for _, t := range tables {
		typ := TypeTable
		if t.View {
			if !views {
				continue
			}
			typ = TypeView
		}
		g.add(ExpectedToken{Type: typ, Value: t.Name, Label: t.Database, Priority: PriorityTable})
	}
	if !views {
		return
	}
	names, err := g.src.Views(g.ctx, database)
	if err != nil {
		g.lookupFailed("views", err)
		return
	}
	for _, name := range names {
		g.add(ExpectedToken{Type: TypeView, Value: name, Priority: PriorityTable})
	}
}

func (g *generator) databases() {
	names, err := g.src.Databases(g.ctx)
	if err != nil {
		g.lookupFailed("databases", err)
		return
	}
	for _, name := range names {
		g.add(ExpectedToken{Type: TypeDatabase, Value: name, Priority: PriorityDatabase})
	}
}

// objects offers the schema objects a hint asks for.
func (g *generator) objects(h Hint, database string) {
	names := func(what string, typ TokenType, list func(context.Context, string) ([]string, error)) {
		found, err := list(g.ctx, database)
		if err != nil {
			g.lookupFailed(what, err)
			return
		}
		for _, name := range found {
			g.add(ExpectedToken{Type: typ, Value: name, Priority: PriorityObject})
		}
	}

	switch h {
	case HintTable:
		views := !g.cls.Previous().IsKeyword("TABLE")
		g.tables(database, views)
		if database == "" {
			g.databases()
		}
	case HintIndex:
		names("indexes", TypeIndex, g.src.Indexes)
	case HintTrigger:
		names("triggers", TypeTrigger, g.src.Triggers)
	case HintView:
		names("views", TypeView, g.src.Views)
	case HintDatabase:
		g.databases()
	case HintPragma:
		pragmas, err := g.src.Pragmas(g.ctx, g.cat.Dialect)
		if err != nil {
			g.lookupFailed("pragmas", err)
			pragmas = g.cat.Pragmas
		}
		for _, name := range pragmas {
			g.add(ExpectedToken{Type: TypePragma, Value: name, Priority: PriorityObject})
		}
	case HintCollation:
		collations, err := g.src.Collations(g.ctx)
		if err != nil {
			g.lookupFailed("collations", err)
			collations = g.cat.Collations
		}
		for _, name := range collations {
			g.add(ExpectedToken{Type: TypeCollation, Value: name, Priority: PriorityObject})
		}
	}
}

// qualified handles "name." and "db.name.": columns of a table, alias or
// OLD/NEW row, otherwise tables of a database.
func (g *generator) qualified() {
	q := g.cls.Qualifier
	if g.cls.Context == ContextFrom {
		g.tables(q.Name, true)
		return
	}
	if cols, ok := g.sc.LookupQualifier(q.Database, q.Name); ok {
		for _, c := range cols {
			g.add(columnToken(c, PriorityColumn))
		}
		return
	}
	cols, err := g.src.Columns(g.ctx, q.Database, q.Name)
	if err != nil {
		g.lookupFailed("columns", err)
	}
	if len(cols) > 0 {
		for _, c := range cols {
			g.add(columnToken(scope.Column{Database: c.Database, Table: c.Table, Name: c.Name, Type: c.Type, RowID: c.RowID}, PriorityColumn))
		}
		return
	}
	if q.Database == "" {
		g.tables(q.Name, true)
	}
}

func (g *generator) createTable() {
	favored := func() {
		for _, name := range g.cls.Favored {
			g.add(ExpectedToken{Type: TypeColumn, Value: name, ContextInfo: g.cls.Target.Name, Priority: PriorityFavored})
		}
	}

	switch g.cls.TablePos {
	case TableHeader:
		switch prev := g.cls.Previous(); {
		case prev.IsKeyword("TABLE"):
			g.keywords("IF")
		case prev.IsKeyword("EXISTS"):
		default:
			g.keywords("AS")
		}
	case TableDefStart:
		g.keywords(g.cat.TableConstraints...)
	case TableColumnType:
		for _, typ := range g.cat.Types {
			g.add(ExpectedToken{Type: TypeOther, Value: typ, Label: "type", Priority: PriorityKeyword})
		}
		g.keywords(g.cat.ColumnConstraints...)
	case TableColumnConstraint:
		g.keywords(g.cat.ColumnConstraints...)
	case TableConstraint:
		if g.cls.Previous().IsOperator(")") {
			g.keywords("REFERENCES", "ON")
			return
		}
		g.keywords(g.cat.TableConstraints...)
	case TableConstraintColumns:
		favored()
		g.keywords("ASC", "DESC", "COLLATE")
	case TableCheck:
		favored()
		g.functions()
		g.keywords(exprKeywords...)
	case TableReferencedColumns:
		if ast.Fold(g.cls.RefTable) == ast.Fold(g.cls.Target.Name) {
			favored()
			return
		}
		cols, err := g.src.Columns(g.ctx, "", g.cls.RefTable)
		if err != nil {
			g.lookupFailed("columns", err)
			return
		}
		for _, c := range cols {
			if !c.RowID {
				g.add(ExpectedToken{Type: TypeColumn, Value: c.Name, ContextInfo: c.Table, Label: c.Type, Priority: PriorityColumn})
			}
		}
	case TableOptions:
		g.keywords("WITHOUT", "STRICT")
	}
}

func (g *generator) createTrigger() {
	if g.cls.TriggerBody {
		g.keywords(triggerBodyKeywords...)
		return
	}
	prev, back := g.cls.Previous(), g.cls.TwoBack()
	switch {
	case prev.IsKeyword("TRIGGER"):
		g.keywords("IF")
	case prev.IsKeyword("EXISTS"):
	case prev.IsKeyword("BEFORE"), prev.IsKeyword("AFTER"), prev.IsKeyword("OF") && back.IsKeyword("INSTEAD"):
		g.keywords(triggerEvents...)
	case prev.IsKeyword("DELETE"), prev.IsKeyword("INSERT"):
		g.keywords("ON")
	case prev.IsKeyword("UPDATE"):
		g.keywords("ON", "OF")
	case prev.IsKeyword("ROW"):
		g.keywords("WHEN", "BEGIN")
	case back.IsKeyword("ON"):
		g.keywords("FOR", "WHEN", "BEGIN")
	case back.IsKeyword("TRIGGER"), back.IsKeyword("EXISTS"):
		g.keywords("BEFORE", "AFTER", "INSTEAD")
		g.keywords(triggerEvents...)
	default:
		g.keywords("ON")
	}
}

// triggerRows returns the row references a trigger event provides.
func triggerRows(event string) []string {
	switch event {
	case "INSERT":
		return []string{"NEW"}
	case "DELETE":
		return []string{"OLD"}
	}
	return []string{"OLD", "NEW"}
}

// continuation returns the only keywords that may follow keywords such as
// GROUP or PRIMARY, or nil.
func continuation(c Classification) []string {
	prev, back := c.Previous(), c.TwoBack()
	if prev.Kind != tokenizer.KindKeyword {
		return nil
	}
	kw := strings.ToUpper(prev.Text)
	first := c.Statement != nil && len(c.Statement.Tokens) > 0 && c.Statement.Tokens[0].Start == prev.Start
	createTable := false
	if c.Statement != nil {
		_, createTable = c.Statement.Body.(*ast.CreateTableStmt)
	}

	switch kw {
	case "GROUP", "ORDER", "PARTITION":
		return []string{"BY"}
	case "PRIMARY", "FOREIGN":
		return []string{"KEY"}
	case "NATURAL":
		return []string{"JOIN", "LEFT", "RIGHT", "FULL", "INNER", "CROSS"}
	case "LEFT", "RIGHT", "FULL":
		return []string{"JOIN", "OUTER"}
	case "INNER", "CROSS", "OUTER":
		return []string{"JOIN"}
	case "UNION":
		return []string{"ALL", "SELECT"}
	case "INTERSECT", "EXCEPT":
		return []string{"SELECT"}
	case "QUERY":
		return []string{"PLAN"}
	case "WITHOUT":
		return []string{"ROWID"}
	case "INSTEAD":
		return []string{"OF"}
	case "FOR":
		return []string{"EACH"}
	case "EACH":
		return []string{"ROW"}
	case "NULLS":
		return []string{"FIRST", "LAST"}
	case "INDEXED":
		return []string{"BY"}
	case "IF":
		return []string{"NOT", "EXISTS"}
	case "ALTER":
		return []string{"TABLE"}
	case "DROP":
		return []string{"INDEX", "TABLE", "TRIGGER", "VIEW"}
	case "CREATE":
		return []string{"TABLE", "INDEX", "VIEW", "TRIGGER", "TEMP", "TEMPORARY", "UNIQUE", "VIRTUAL"}
	case "TEMP", "TEMPORARY":
		if back.IsKeyword("CREATE") {
			return []string{"TABLE", "VIEW", "TRIGGER"}
		}
	case "UNIQUE":
		if back.IsKeyword("CREATE") {
			return []string{"INDEX"}
		}
	case "NOT":
		switch {
		case back.IsKeyword("IF"):
			return []string{"EXISTS"}
		case createTable && c.TablePos == TableColumnConstraint:
			return []string{"NULL"}
		}
	case "OR":
		if back.IsKeyword("INSERT") || back.IsKeyword("UPDATE") {
			return conflictKeywords
		}
	case "INSERT":
		if first {
			return []string{"INTO", "OR"}
		}
	case "REPLACE":
		if first || back.IsKeyword("OR") && len(c.Prev) > 2 && c.Prev[2].IsKeyword("INSERT") {
			return []string{"INTO"}
		}
	case "ABORT", "FAIL", "IGNORE", "ROLLBACK":
		if back.IsKeyword("OR") && len(c.Prev) > 2 && c.Prev[2].IsKeyword("INSERT") {
			return []string{"INTO"}
		}
	case "DELETE":
		if first {
			return []string{"FROM"}
		}
	case "BEGIN":
		if first {
			return []string{"DEFERRED", "IMMEDIATE", "EXCLUSIVE", "TRANSACTION"}
		}
	case "ON":
		if createTable && c.TablePos != TableHeader {
			return []string{"CONFLICT", "DELETE", "UPDATE"}
		}
	case "GENERATED":
		if createTable {
			return []string{"ALWAYS"}
		}
	}
	return nil
}
