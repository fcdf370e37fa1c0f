package parser

import (
	"strings"

	"github.com/electwix/sqlcomplete/internal/query/ast"
	"github.com/electwix/sqlcomplete/internal/schema/tokenizer"
)

var (
	indexWhereStops = stops()
	triggerWhen     = stops("BEGIN")
)

var tableConstraintStarters = map[string]struct{}{
	"CONSTRAINT": {},
	"PRIMARY":    {},
	"UNIQUE":     {},
	"CHECK":      {},
	"FOREIGN":    {},
}

var columnConstraintStarters = map[string]struct{}{
	"CONSTRAINT": {},
	"PRIMARY":    {},
	"NOT":        {},
	"NULL":       {},
	"UNIQUE":     {},
	"CHECK":      {},
	"DEFAULT":    {},
	"COLLATE":    {},
	"REFERENCES": {},
	"GENERATED":  {},
	"AS":         {},
}

func (p *Parser) parseCreate() {
	p.advance() // CREATE
	temp := false
	if p.matchKeyword("TEMP", "TEMPORARY") {
		p.advance()
		temp = true
	}
	unique := false
	if p.matchKeyword("UNIQUE") {
		p.advance()
		unique = true
	}
	switch {
	case p.matchKeyword("TABLE"):
		p.parseCreateTable(temp)
	case p.matchKeyword("INDEX"):
		p.parseCreateIndex(unique)
	case p.matchKeyword("VIEW"):
		p.parseCreateView()
	case p.matchKeyword("TRIGGER"):
		p.parseCreateTrigger()
	case p.matchKeyword("VIRTUAL"):
		p.stmt.Body = &ast.OtherStmt{Verb: "CREATE VIRTUAL TABLE"}
		p.skipRest()
	default:
		p.stmt.Body = &ast.OtherStmt{Verb: "CREATE"}
		p.fail(p.current(), "expected TABLE, INDEX, VIEW or TRIGGER after CREATE")
	}
}

func (p *Parser) parseCreateTable(temp bool) {
	stmt := &ast.CreateTableStmt{Temp: temp, Open: ast.Unset, Close: ast.Unset}
	p.stmt.Body = stmt
	p.advance() // TABLE
	stmt.IfNotExists = p.skipIfNotExists()
	stmt.Table = p.parseQualifiedName("table name")
	if p.matchKeyword("AS") {
		p.advance()
		p.parseSelect(ast.NoCore, nil, &stmt.AsSelect)
		return
	}
	stmt.Open = p.expectOperator("(").End
	for !p.matchOperator(")") {
		p.parseTableElement(stmt)
		if p.matchOperator(",") {
			p.advance()
		} else if !p.matchOperator(")") {
			p.fail(p.current(), "expected \",\" or \")\"")
		}
	}
	stmt.Close = p.advance().Start
	// WITHOUT ROWID, STRICT
	p.skipRest()
}

func (p *Parser) parseTableElement(stmt *ast.CreateTableStmt) {
	tok := p.current()
	if _, ok := tableConstraintStarters[strings.ToUpper(tok.Text)]; ok && tok.Kind == tokenizer.KindKeyword {
		tc := ast.TableConstraint{Start: tok.Start}
		if p.matchKeyword("CONSTRAINT") {
			p.advance()
			p.expectName("constraint name")
		}
		kindTok := p.current()
		if _, ok := tableConstraintStarters[strings.ToUpper(kindTok.Text)]; !ok || kindTok.Kind != tokenizer.KindKeyword {
			p.fail(kindTok, "expected table constraint")
		}
		tc.Kind = strings.ToUpper(p.advance().Text)
		if tc.Kind == "PRIMARY" || tc.Kind == "FOREIGN" {
			p.expectKeyword("KEY")
			tc.Kind += " KEY"
		}
		stmt.Constraints = append(stmt.Constraints, tc)
		idx := len(stmt.Constraints) - 1
		if p.matchOperator("(") && tc.Kind != "CHECK" {
			stmt.Constraints[idx].Columns = p.constraintColumns()
		}
		p.skipElement()
		stmt.Constraints[idx].End = p.previous().End
		return
	}

	name := p.expectName("column name")
	stmt.Columns = append(stmt.Columns, ast.ColumnDef{Name: name.Value(), Start: name.Start, End: name.End})
	idx := len(stmt.Columns) - 1
	stmt.Columns[idx].Type = p.parseTypeName()
	p.skipElement()
	stmt.Columns[idx].End = p.previous().End
}

// parseTypeName consumes an optional declared type such as "VARCHAR(20)" or
// "DOUBLE PRECISION".
func (p *Parser) parseTypeName() string {
	var parts []string
	for {
		tok := p.current()
		if tok.Kind != tokenizer.KindIdentifier && !tok.IsName() {
			break
		}
		if _, ok := columnConstraintStarters[strings.ToUpper(tok.Text)]; ok && tok.Kind == tokenizer.KindKeyword {
			break
		}
		parts = append(parts, p.advance().Text)
	}
	if len(parts) == 0 {
		return ""
	}
	typ := strings.Join(parts, " ")
	if p.matchOperator("(") {
		var b strings.Builder
		for !p.atEnd() {
			tok := p.advance()
			b.WriteString(tok.Text)
			if tok.IsOperator(")") {
				break
			}
		}
		typ += b.String()
	}
	return typ
}

// constraintColumns reads the column names of "(a, b COLLATE x DESC)" with
// the cursor on "(" and leaves the cursor after ")" when present.
func (p *Parser) constraintColumns() []string {
	p.advance()
	var cols []string
	expectName := true
	for !p.atEnd() {
		tok := p.current()
		switch {
		case tok.IsOperator(")"):
			p.advance()
			return cols
		case tok.IsOperator(","):
			expectName = true
		case expectName && tok.IsName():
			cols = append(cols, tok.Value())
			expectName = false
		default:
			expectName = false
		}
		p.advance()
	}
	return cols
}

// skipElement consumes the rest of a table element up to "," or ")" at
// depth zero.
func (p *Parser) skipElement() {
	depth := 0
	for !p.atEnd() {
		tok := p.current()
		if depth == 0 && (tok.IsOperator(",") || tok.IsOperator(")")) {
			return
		}
		switch {
		case tok.IsOperator("("):
			depth++
		case tok.IsOperator(")"):
			depth--
		}
		p.advance()
	}
}

func (p *Parser) parseCreateIndex(unique bool) {
	stmt := &ast.CreateIndexStmt{Unique: unique, Open: ast.Unset, Close: ast.Unset, WhereStart: ast.Unset}
	p.stmt.Body = stmt
	p.advance() // INDEX
	p.skipIfNotExists()
	stmt.Index = p.parseQualifiedName("index name")
	p.expectKeyword("ON")
	stmt.Table = p.parseQualifiedName("table name")
	stmt.Open = p.expectOperator("(").End
	p.skipExpr(ast.NoCore, indexWhereStops, false)
	stmt.Close = p.expectOperator(")").Start
	if p.matchKeyword("WHERE") {
		stmt.WhereStart = p.advance().End
		p.skipExpr(ast.NoCore, nil, false)
	}
}

func (p *Parser) parseCreateView() {
	stmt := &ast.CreateViewStmt{}
	p.stmt.Body = stmt
	p.advance() // VIEW
	p.skipIfNotExists()
	stmt.View = p.parseQualifiedName("view name")
	if p.matchOperator("(") {
		stmt.Columns, _ = p.parseNameList("column name")
	}
	p.expectKeyword("AS")
	p.parseSelect(ast.NoCore, nil, &stmt.Select)
}

func (p *Parser) parseCreateTrigger() {
	stmt := &ast.CreateTriggerStmt{WhenStart: ast.Unset, BeginStart: ast.Unset, EndStart: ast.Unset}
	p.stmt.Body = stmt
	p.advance() // TRIGGER
	p.skipIfNotExists()
	stmt.Trigger = p.parseQualifiedName("trigger name")
	switch {
	case p.matchKeyword("BEFORE", "AFTER"):
		stmt.Timing = strings.ToUpper(p.advance().Text)
	case p.matchKeyword("INSTEAD"):
		p.advance()
		p.expectKeyword("OF")
		stmt.Timing = "INSTEAD OF"
	}
	if !p.matchKeyword("DELETE", "INSERT", "UPDATE") {
		p.fail(p.current(), "expected DELETE, INSERT or UPDATE")
	}
	stmt.Event = strings.ToUpper(p.advance().Text)
	if stmt.Event == "UPDATE" && p.matchKeyword("OF") {
		p.advance()
		for {
			p.expectName("column name")
			if !p.matchOperator(",") {
				break
			}
			p.advance()
		}
	}
	p.expectKeyword("ON")
	stmt.Table = p.parseQualifiedName("table name")
	if p.matchKeyword("FOR") {
		p.advance()
		p.expectKeyword("EACH")
		p.expectKeyword("ROW")
	}
	if p.matchKeyword("WHEN") {
		stmt.WhenStart = p.advance().End
		p.skipExpr(ast.NoCore, triggerWhen, false)
	}
	stmt.BeginStart = p.expectKeyword("BEGIN").Start
	for {
		group, end := p.triggerBodyStatement()
		if len(group) > 0 {
			stmt.Body = append(stmt.Body, parseStatement(p.q, group))
		}
		if end {
			break
		}
		if p.isEOF() {
			p.fail(p.current(), "expected END")
		}
	}
	stmt.EndStart = p.expectKeyword("END").Start
}

// triggerBodyStatement collects the tokens of the next statement in a trigger
// body. It reports whether the body's END keyword is next.
func (p *Parser) triggerBodyStatement() ([]tokenizer.Token, bool) {
	start := p.pos
	caseDepth := 0
	for !p.isEOF() {
		tok := p.current()
		switch {
		case tok.IsKeyword("CASE"):
			caseDepth++
		case tok.IsKeyword("END"):
			if caseDepth == 0 {
				return p.tokens[start:p.pos], true
			}
			caseDepth--
		case tok.IsOperator(";"):
			p.advance()
			return p.tokens[start:p.pos], false
		}
		p.advance()
	}
	return p.tokens[start:p.pos], false
}

func (p *Parser) parsePragma() {
	stmt := &ast.PragmaStmt{}
	p.stmt.Body = stmt
	p.advance() // PRAGMA
	stmt.Name = p.parseQualifiedName("pragma name")
	p.skipRest()
}
