// Package parser loads SQLite DDL files into a schema catalog.
//
// Statements are parsed with the error-tolerant query parser; each CREATE,
// ALTER and DROP statement is then applied to the catalog in file order, so
// later files see the objects created by earlier ones.
package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/electwix/sqlcomplete/internal/query/ast"
	queryparser "github.com/electwix/sqlcomplete/internal/query/parser"
	"github.com/electwix/sqlcomplete/internal/schema/diagnostic"
	"github.com/electwix/sqlcomplete/internal/schema/model"
	"github.com/electwix/sqlcomplete/internal/schema/tokenizer"
)

// Parser implements diagnostic.SchemaParser for SQLite DDL.
type Parser struct{}

var _ diagnostic.SchemaParser = Parser{}

// Parse builds a new catalog from one DDL file.
func (Parser) Parse(ctx context.Context, path string, content []byte) (*model.Catalog, []diagnostic.Diagnostic, error) {
	catalog := model.NewCatalog()
	diags, err := Apply(ctx, catalog, path, content)
	if err != nil {
		return nil, diags, err
	}
	return catalog, diags, nil
}

// Apply applies the DDL in content to catalog. It only fails when ctx is
// done; malformed statements produce diagnostics.
func Apply(ctx context.Context, catalog *model.Catalog, path string, content []byte) ([]diagnostic.Diagnostic, error) {
	sql := string(content)
	q, _ := queryparser.ParseString(sql)
	l := &loader{q: q, catalog: catalog, path: path}
	for _, stmt := range q.Statements {
		if err := ctx.Err(); err != nil {
			return l.diags, fmt.Errorf("load %s: %w", path, err)
		}
		l.apply(stmt)
	}
	return l.diags, nil
}

type loader struct {
	q       *ast.Query
	catalog *model.Catalog
	path    string
	diags   []diagnostic.Diagnostic
}

func (l *loader) apply(stmt *ast.Statement) {
	if len(stmt.Tokens) == 0 || (len(stmt.Tokens) == 1 && stmt.Terminated) {
		return
	}
	if stmt.Err != nil {
		l.addDiag(stmt.Err.Line, stmt.Err.Column, diagnostic.SeverityError, "%s", stmt.Err.Message)
		return
	}
	pos := l.position(stmt.Tokens[0])
	switch body := stmt.Body.(type) {
	case *ast.CreateTableStmt:
		l.createTable(stmt, body, pos)
	case *ast.CreateIndexStmt:
		l.createIndex(body, pos)
	case *ast.CreateViewStmt:
		l.createView(stmt, body, pos)
	case *ast.CreateTriggerStmt:
		l.createTrigger(body, pos)
	case *ast.OtherStmt:
		switch body.Verb {
		case "ALTER":
			l.alter(stmt, pos)
		case "DROP":
			l.drop(stmt, pos)
		case "BEGIN", "COMMIT", "END", "PRAGMA", "":
		default:
			l.addDiagAt(pos, diagnostic.SeverityWarning, "%s statement ignored", body.Verb)
		}
	case *ast.PragmaStmt:
	default:
		l.addDiagAt(pos, diagnostic.SeverityWarning, "statement ignored")
	}
}

func (l *loader) createTable(stmt *ast.Statement, body *ast.CreateTableStmt, pos model.Position) {
	if l.exists(body.Table.Name) {
		if !body.IfNotExists {
			l.addDiagAt(pos, diagnostic.SeverityError, "object %q already exists", body.Table.Name)
		}
		return
	}
	table := &model.Table{Name: body.Table.Name, Temp: body.Temp || isTempDatabase(body.Table.Database), Pos: pos}
	if len(body.AsSelect) > 0 {
		for _, name := range l.deriveColumns(body.AsSelect, 0) {
			table.Columns = append(table.Columns, &model.Column{Name: name})
		}
		l.catalog.Tables[model.CanonicalName(table.Name)] = table
		return
	}

	for _, def := range body.Columns {
		col := &model.Column{Name: def.Name, Type: def.Type}
		toks := tokensWithin(stmt.Tokens, def.Start, def.End)
		for i := range toks {
			switch {
			case toks[i].IsKeyword("PRIMARY") && i+1 < len(toks) && toks[i+1].IsKeyword("KEY"):
				col.PrimaryKey = true
			case toks[i].IsKeyword("NOT") && i+1 < len(toks) && toks[i+1].IsKeyword("NULL"):
				col.NotNull = true
			}
		}
		if col.PrimaryKey {
			table.PrimaryKey = []string{col.Name}
		}
		table.Columns = append(table.Columns, col)
	}
	for _, tc := range body.Constraints {
		if tc.Kind != "PRIMARY KEY" {
			continue
		}
		table.PrimaryKey = append([]string(nil), tc.Columns...)
		for _, name := range tc.Columns {
			if col := table.Column(name); col != nil {
				col.PrimaryKey = true
			} else {
				l.addDiagAt(pos, diagnostic.SeverityError, "primary key references unknown column %q on table %s", name, table.Name)
			}
		}
	}
	for _, tok := range stmt.Tokens {
		if tok.Start <= body.Close {
			continue
		}
		switch {
		case strings.EqualFold(tok.Text, "ROWID"):
			table.WithoutRowID = true
		case strings.EqualFold(tok.Text, "STRICT"):
			table.Strict = true
		}
	}
	l.catalog.Tables[model.CanonicalName(table.Name)] = table
}

func (l *loader) createIndex(body *ast.CreateIndexStmt, pos model.Position) {
	key := model.CanonicalName(body.Index.Name)
	if _, ok := l.catalog.Indexes[key]; ok {
		l.addDiagAt(pos, diagnostic.SeverityError, "index %q already exists", body.Index.Name)
		return
	}
	if l.catalog.Table(body.Table.Name) == nil {
		l.addDiagAt(pos, diagnostic.SeverityWarning, "index %q references unknown table %q", body.Index.Name, body.Table.Name)
	}
	l.catalog.Indexes[key] = &model.Index{
		Name:   body.Index.Name,
		Table:  body.Table.Name,
		Unique: body.Unique,
		Pos:    pos,
	}
}

func (l *loader) createView(stmt *ast.Statement, body *ast.CreateViewStmt, pos model.Position) {
	if l.exists(body.View.Name) {
		l.addDiagAt(pos, diagnostic.SeverityError, "object %q already exists", body.View.Name)
		return
	}
	view := &model.View{
		Name:    body.View.Name,
		Temp:    isTempDatabase(body.View.Database),
		Columns: body.Columns,
		SQL:     strings.TrimSuffix(strings.TrimSpace(l.q.SQL[stmt.Start:stmt.End]), ";"),
		Pos:     pos,
	}
	if len(view.Columns) == 0 {
		view.Columns = l.deriveColumns(body.Select, 0)
	}
	l.catalog.Views[model.CanonicalName(view.Name)] = view
}

func (l *loader) createTrigger(body *ast.CreateTriggerStmt, pos model.Position) {
	key := model.CanonicalName(body.Trigger.Name)
	if _, ok := l.catalog.Triggers[key]; ok {
		l.addDiagAt(pos, diagnostic.SeverityError, "trigger %q already exists", body.Trigger.Name)
		return
	}
	l.catalog.Triggers[key] = &model.Trigger{
		Name:   body.Trigger.Name,
		Table:  body.Table.Name,
		Timing: body.Timing,
		Event:  body.Event,
		Pos:    pos,
	}
}

// alter handles ALTER TABLE ... ADD/DROP/RENAME.
func (l *loader) alter(stmt *ast.Statement, pos model.Position) {
	c := cursor{toks: stmt.Tokens}
	c.next() // ALTER
	if !c.keyword("TABLE") {
		l.addDiagAt(pos, diagnostic.SeverityError, "expected TABLE after ALTER")
		return
	}
	name := c.qualifiedName()
	table := l.catalog.Table(name)
	if table == nil {
		l.addDiagAt(pos, diagnostic.SeverityError, "ALTER TABLE references unknown table %q", name)
		return
	}
	switch {
	case c.keyword("ADD"):
		c.keyword("COLUMN")
		colName := c.name()
		if colName == "" {
			l.addDiagAt(pos, diagnostic.SeverityError, "expected column name")
			return
		}
		var typ []string
		for tok := c.peek(); tok.IsName(); tok = c.peek() {
			typ = append(typ, c.next().Text)
		}
		typeName := strings.Join(typ, " ")
		if len(typ) > 0 && c.peek().IsOperator("(") {
			for tok := c.next(); tok.Kind != tokenizer.KindEOF; tok = c.next() {
				typeName += tok.Text
				if tok.IsOperator(")") {
					break
				}
			}
		}
		table.Columns = append(table.Columns, &model.Column{Name: colName, Type: typeName})
	case c.keyword("DROP"):
		c.keyword("COLUMN")
		colName := c.name()
		for i, col := range table.Columns {
			if strings.EqualFold(col.Name, colName) {
				table.Columns = append(table.Columns[:i], table.Columns[i+1:]...)
				return
			}
		}
		l.addDiagAt(pos, diagnostic.SeverityError, "unknown column %q on table %s", colName, table.Name)
	case c.keyword("RENAME"):
		if c.keyword("TO") {
			newName := c.name()
			delete(l.catalog.Tables, model.CanonicalName(table.Name))
			l.renameTableRefs(table.Name, newName)
			table.Name = newName
			l.catalog.Tables[model.CanonicalName(newName)] = table
			return
		}
		c.keyword("COLUMN")
		from := c.name()
		c.keyword("TO")
		to := c.name()
		if col := table.Column(from); col != nil && to != "" {
			col.Name = to
			for i, pk := range table.PrimaryKey {
				if strings.EqualFold(pk, from) {
					table.PrimaryKey[i] = to
				}
			}
			return
		}
		l.addDiagAt(pos, diagnostic.SeverityError, "unknown column %q on table %s", from, table.Name)
	default:
		l.addDiagAt(pos, diagnostic.SeverityWarning, "unsupported ALTER TABLE form ignored")
	}
}

func (l *loader) renameTableRefs(from, to string) {
	for _, idx := range l.catalog.Indexes {
		if strings.EqualFold(idx.Table, from) {
			idx.Table = to
		}
	}
	for _, trg := range l.catalog.Triggers {
		if strings.EqualFold(trg.Table, from) {
			trg.Table = to
		}
	}
}

// drop handles DROP TABLE/VIEW/INDEX/TRIGGER [IF EXISTS] name.
func (l *loader) drop(stmt *ast.Statement, pos model.Position) {
	c := cursor{toks: stmt.Tokens}
	c.next() // DROP
	kind := strings.ToUpper(c.next().Text)
	ifExists := false
	if c.keyword("IF") {
		c.keyword("EXISTS")
		ifExists = true
	}
	name := c.qualifiedName()
	key := model.CanonicalName(name)
	found := false
	switch kind {
	case "TABLE":
		found = l.catalog.DropTable(name)
	case "VIEW":
		_, found = l.catalog.Views[key]
		delete(l.catalog.Views, key)
	case "INDEX":
		_, found = l.catalog.Indexes[key]
		delete(l.catalog.Indexes, key)
	case "TRIGGER":
		_, found = l.catalog.Triggers[key]
		delete(l.catalog.Triggers, key)
	default:
		l.addDiagAt(pos, diagnostic.SeverityWarning, "DROP %s ignored", kind)
		return
	}
	if !found && !ifExists {
		l.addDiagAt(pos, diagnostic.SeverityError, "no such %s: %s", strings.ToLower(kind), name)
	}
}

func (l *loader) exists(name string) bool {
	return l.catalog.Table(name) != nil || l.catalog.View(name) != nil
}

func (l *loader) position(tok tokenizer.Token) model.Position {
	return model.Position{Path: l.path, Line: tok.Line, Column: tok.Column}
}

func (l *loader) addDiagAt(pos model.Position, severity diagnostic.Severity, format string, args ...any) {
	l.addDiag(pos.Line, pos.Column, severity, format, args...)
}

func (l *loader) addDiag(line, column int, severity diagnostic.Severity, format string, args ...any) {
	if line == 0 {
		line = 1
	}
	if column == 0 {
		column = 1
	}
	l.diags = append(l.diags, diagnostic.Diagnostic{
		Path:     l.path,
		Line:     line,
		Column:   column,
		Message:  fmt.Sprintf(format, args...),
		Severity: severity,
	})
}

func isTempDatabase(db string) bool {
	return strings.EqualFold(db, "temp")
}

func tokensWithin(toks []tokenizer.Token, start, end int) []tokenizer.Token {
	var out []tokenizer.Token
	for _, tok := range toks {
		if tok.Start >= start && tok.End <= end {
			out = append(out, tok)
		}
	}
	return out
}

// cursor walks the significant tokens of a statement the query parser only
// recorded as a verb.
type cursor struct {
	toks []tokenizer.Token
	pos  int
}

func (c *cursor) peek() tokenizer.Token {
	if c.pos >= len(c.toks) {
		return tokenizer.Token{Kind: tokenizer.KindEOF}
	}
	return c.toks[c.pos]
}

func (c *cursor) next() tokenizer.Token {
	tok := c.peek()
	if c.pos < len(c.toks) {
		c.pos++
	}
	return tok
}

func (c *cursor) keyword(word string) bool {
	if c.peek().IsKeyword(word) {
		c.pos++
		return true
	}
	return false
}

func (c *cursor) name() string {
	tok := c.peek()
	if !tok.IsName() && tok.Kind != tokenizer.KindString {
		return ""
	}
	c.pos++
	return tok.Value()
}

// qualifiedName reads "name" or "db.name" and returns the object name.
func (c *cursor) qualifiedName() string {
	name := c.name()
	if c.peek().IsOperator(".") {
		c.pos++
		name = c.name()
	}
	return name
}
