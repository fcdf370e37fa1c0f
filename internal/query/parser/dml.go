package parser

import (
	"github.com/electwix/sqlcomplete/internal/query/ast"
)

var (
	assignmentStops = stops(",", "FROM", "WHERE", "RETURNING", "ORDER", "LIMIT")
	updateFromStops = stops("WHERE", "RETURNING", "ORDER", "LIMIT")
	dmlWhereStops   = stops("RETURNING", "ORDER", "LIMIT")
)

func (p *Parser) parseInsert() {
	stmt := &ast.InsertStmt{ColumnsOpen: ast.Unset, ColumnsClose: ast.Unset}
	p.stmt.Body = stmt
	if p.advance().IsKeyword("INSERT") && p.matchKeyword("OR") {
		p.advance()
		p.expectName("conflict resolution")
	}
	p.expectKeyword("INTO")
	stmt.Table = p.parseQualifiedName("table name")
	if p.matchKeyword("AS") {
		p.advance()
		stmt.Alias = p.expectName("table alias").Value()
	}
	if p.matchOperator("(") {
		stmt.ColumnsOpen = p.advance().End
		for !p.matchOperator(")") {
			stmt.Columns = append(stmt.Columns, p.expectName("column name").Value())
			if p.matchOperator(",") {
				p.advance()
			} else if !p.matchOperator(")") {
				p.fail(p.current(), "expected \")\"")
			}
		}
		stmt.ColumnsClose = p.advance().Start
	}
	switch {
	case p.startsSelect():
		p.parseSelect(ast.NoCore, nil, &stmt.Select)
	case p.matchKeyword("DEFAULT"):
		p.advance()
		p.expectKeyword("VALUES")
	case p.atEnd():
		return
	default:
		p.fail(p.current(), "expected VALUES or SELECT")
	}
	// Upsert and RETURNING clauses.
	p.skipRest()
}

func (p *Parser) parseUpdate() {
	stmt := &ast.UpdateStmt{SetStart: ast.Unset, WhereStart: ast.Unset}
	p.stmt.Body = stmt
	p.advance()
	if p.matchKeyword("OR") {
		p.advance()
		p.expectName("conflict resolution")
	}
	stmt.Table = p.parseQualifiedName("table name")
	stmt.Alias = p.parseDMLAlias()
	stmt.SetStart = p.expectKeyword("SET").End
	for {
		a := ast.Assignment{Start: p.current().Start, ValueStart: ast.Unset}
		if p.matchOperator("(") {
			a.Columns, _ = p.parseNameList("column name")
		} else {
			a.Columns = []string{p.expectName("column name").Value()}
		}
		stmt.Assignments = append(stmt.Assignments, a)
		stmt.Assignments[len(stmt.Assignments)-1].ValueStart = p.expectOperator("=").End
		p.skipExpr(ast.NoCore, assignmentStops, false)
		if !p.matchOperator(",") {
			break
		}
		p.advance()
	}
	if p.matchKeyword("FROM") {
		p.advance()
		p.skipExpr(ast.NoCore, updateFromStops, false)
	}
	if p.matchKeyword("WHERE") {
		stmt.WhereStart = p.advance().End
		p.skipExpr(ast.NoCore, dmlWhereStops, false)
	}
	p.skipRest()
}

func (p *Parser) parseDelete() {
	stmt := &ast.DeleteStmt{WhereStart: ast.Unset}
	p.stmt.Body = stmt
	p.advance()
	p.expectKeyword("FROM")
	stmt.Table = p.parseQualifiedName("table name")
	stmt.Alias = p.parseDMLAlias()
	if p.matchKeyword("WHERE") {
		stmt.WhereStart = p.advance().End
		p.skipExpr(ast.NoCore, dmlWhereStops, false)
	}
	p.skipRest()
}

// parseDMLAlias parses the optional alias and index hint after the target
// table of UPDATE and DELETE.
func (p *Parser) parseDMLAlias() string {
	alias := ""
	if p.matchKeyword("AS") {
		p.advance()
		alias = p.expectName("table alias").Value()
	}
	switch {
	case p.matchKeyword("INDEXED"):
		p.advance()
		p.expectKeyword("BY")
		p.expectName("index name")
	case p.matchKeyword("NOT"):
		p.advance()
		p.expectKeyword("INDEXED")
	}
	return alias
}
