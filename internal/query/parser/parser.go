// Package parser builds statement trees from SQL tokens.
//
// The parser never gives up on a buffer: each statement is parsed until the
// first token it cannot place, the partial tree built so far is kept, and a
// Diagnostic records where parsing stopped. Parsing then resumes at the next
// statement.
package parser

import (
	"fmt"
	"strings"

	"github.com/electwix/sqlcomplete/internal/query/ast"
	"github.com/electwix/sqlcomplete/internal/schema/tokenizer"
)

// ParseString tokenizes and parses sql.
func ParseString(sql string) (*ast.Query, []ast.Diagnostic) {
	return Parse(sql, tokenizer.Scan(sql))
}

// Parse builds the statement tree for tokens, which must be the full token
// stream of sql. Statements are split on top-level semicolons.
func Parse(sql string, tokens []tokenizer.Token) (*ast.Query, []ast.Diagnostic) {
	q := &ast.Query{SQL: sql, Tokens: tokens}
	for _, group := range splitStatements(tokenizer.Significant(tokens)) {
		q.Statements = append(q.Statements, parseStatement(q, group))
	}
	return q, q.Diagnostics()
}

// bailout unwinds the parser after a fatal diagnostic was recorded.
type bailout struct{}

// Parser holds the state for one statement.
type Parser struct {
	q      *ast.Query
	stmt   *ast.Statement
	tokens []tokenizer.Token
	pos    int
	// ctes are the statement-level common table expressions parsed so far.
	ctes []ast.CTE
}

func parseStatement(q *ast.Query, tokens []tokenizer.Token) (stmt *ast.Statement) {
	stmt = &ast.Statement{Tokens: tokens}
	if n := len(tokens); n > 0 {
		stmt.Start = tokens[0].Start
		stmt.End = tokens[n-1].End
		stmt.Terminated = tokens[n-1].IsOperator(";")
	}
	p := &Parser{q: q, stmt: stmt, tokens: tokens}
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
		}
		p.finish()
	}()
	p.parseStatement()
	return stmt
}

func (p *Parser) parseStatement() {
	if p.atEnd() {
		p.stmt.Body = &ast.OtherStmt{}
		p.expectEnd()
		return
	}
	if p.matchKeyword("EXPLAIN") {
		p.advance()
		if p.matchKeyword("QUERY") {
			p.advance()
			p.expectKeyword("PLAN")
		}
	}
	if p.matchKeyword("WITH") {
		p.parseWith(ast.NoCore, true)
	}
	tok := p.current()
	switch {
	case tok.IsKeyword("SELECT"), tok.IsKeyword("VALUES"):
		body := &ast.SelectStmt{}
		p.stmt.Body = body
		p.parseSelect(ast.NoCore, nil, &body.Cores)
	case tok.IsKeyword("INSERT"), tok.IsKeyword("REPLACE"):
		p.parseInsert()
	case tok.IsKeyword("UPDATE"):
		p.parseUpdate()
	case tok.IsKeyword("DELETE"):
		p.parseDelete()
	case tok.IsKeyword("CREATE"):
		p.parseCreate()
	case tok.IsKeyword("PRAGMA"):
		p.parsePragma()
	case tok.Kind == tokenizer.KindKeyword:
		p.stmt.Body = &ast.OtherStmt{Verb: strings.ToUpper(tok.Text)}
		p.skipRest()
	default:
		p.stmt.Body = &ast.OtherStmt{}
		p.fail(tok, "unexpected %q at start of statement", tok.Text)
	}
	p.expectEnd()
}

// finish closes the bookkeeping of a statement once parsing ended, whether
// normally or through a bailout.
func (p *Parser) finish() {
	if p.stmt.Body == nil {
		p.stmt.Body = &ast.OtherStmt{}
	}
	for _, id := range p.stmt.Cores {
		core := p.q.Core(id)
		if !core.Closed {
			core.End = p.stmt.End
		}
	}
}

func (p *Parser) newCore(parent ast.CoreID, start int, ctes []ast.CTE) *ast.Core {
	id := ast.CoreID(len(p.q.Cores))
	core := ast.NewCore(id, parent, start)
	if parent == ast.NoCore && len(p.ctes) > 0 {
		core.CTEs = append(core.CTEs, p.ctes...)
	}
	core.CTEs = append(core.CTEs, ctes...)
	p.q.Cores = append(p.q.Cores, core)
	p.stmt.Cores = append(p.stmt.Cores, id)
	return core
}

func (p *Parser) expectEnd() {
	if p.isEOF() {
		return
	}
	tok := p.current()
	if tok.IsOperator(";") && p.pos == len(p.tokens)-1 {
		p.advance()
		return
	}
	p.fail(tok, "unexpected %q", tok.Text)
}

func (p *Parser) fail(tok tokenizer.Token, format string, args ...any) {
	p.stmt.Err = &ast.Diagnostic{
		Offset:  tok.Start,
		Line:    tok.Line,
		Column:  tok.Column,
		Message: fmt.Sprintf(format, args...),
	}
	panic(bailout{})
}

func (p *Parser) current() tokenizer.Token {
	return p.peek(0)
}

func (p *Parser) peek(n int) tokenizer.Token {
	if p.pos+n >= len(p.tokens) {
		return tokenizer.Token{Kind: tokenizer.KindEOF, Start: p.stmt.End, End: p.stmt.End}
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) previous() tokenizer.Token {
	if p.pos == 0 {
		return tokenizer.Token{Start: p.stmt.Start, End: p.stmt.Start}
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) advance() tokenizer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) isEOF() bool {
	return p.pos >= len(p.tokens)
}

// atEnd reports whether the statement has no more tokens to parse.
func (p *Parser) atEnd() bool {
	return p.isEOF() || p.current().IsOperator(";")
}

func (p *Parser) matchKeyword(words ...string) bool {
	tok := p.current()
	for _, w := range words {
		if tok.IsKeyword(w) {
			return true
		}
	}
	return false
}

func (p *Parser) matchOperator(op string) bool {
	return p.current().IsOperator(op)
}

func (p *Parser) expectKeyword(word string) tokenizer.Token {
	if !p.matchKeyword(word) {
		p.fail(p.current(), "expected %s", word)
	}
	return p.advance()
}

func (p *Parser) expectOperator(op string) tokenizer.Token {
	if !p.matchOperator(op) {
		p.fail(p.current(), "expected %q", op)
	}
	return p.advance()
}

func (p *Parser) expectName(what string) tokenizer.Token {
	tok := p.current()
	if !tok.IsName() && tok.Kind != tokenizer.KindString {
		p.fail(tok, "expected %s", what)
	}
	return p.advance()
}

// parseQualifiedName parses "name" or "database.name".
func (p *Parser) parseQualifiedName(what string) ast.Name {
	first := p.expectName(what)
	name := ast.Name{Name: first.Value(), Start: first.Start, End: first.End}
	if p.matchOperator(".") {
		p.advance()
		second := p.expectName(what)
		name.Database = name.Name
		name.Name = second.Value()
		name.End = second.End
	}
	return name
}

func (p *Parser) skipIfNotExists() bool {
	if !p.matchKeyword("IF") {
		return false
	}
	p.advance()
	p.expectKeyword("NOT")
	p.expectKeyword("EXISTS")
	return true
}

// parseNameList parses "(a, b, ...)" with the cursor on "(". It returns the
// names and the offset after "(".
func (p *Parser) parseNameList(what string) ([]string, int) {
	open := p.expectOperator("(")
	var names []string
	for {
		names = append(names, p.expectName(what).Value())
		if p.matchOperator(",") {
			p.advance()
			continue
		}
		p.expectOperator(")")
		return names, open.End
	}
}

// skipRest consumes every remaining token of the statement, registering
// any subqueries it encounters.
func (p *Parser) skipRest() {
	for !p.atEnd() {
		p.skipExpr(ast.NoCore, nil, false)
		if p.matchOperator(")") {
			p.advance()
		}
	}
}

// splitStatements groups significant tokens into statements. A semicolon
// inside a trigger body does not end the CREATE TRIGGER statement.
func splitStatements(tokens []tokenizer.Token) [][]tokenizer.Token {
	var groups [][]tokenizer.Token
	start := 0
	trigger, inBody := false, false
	caseDepth := 0
	for i, tok := range tokens {
		if i == start {
			trigger = isTriggerStart(tokens[start:])
			inBody, caseDepth = false, 0
		}
		if trigger {
			switch {
			case tok.IsKeyword("BEGIN") && !inBody:
				inBody = true
			case tok.IsKeyword("CASE") && inBody:
				caseDepth++
			case tok.IsKeyword("END") && inBody:
				if caseDepth > 0 {
					caseDepth--
				} else {
					inBody, trigger = false, false
				}
			}
		}
		if tok.IsOperator(";") && !inBody {
			groups = append(groups, tokens[start:i+1])
			start = i + 1
		}
	}
	if start < len(tokens) {
		groups = append(groups, tokens[start:])
	}
	return groups
}

func isTriggerStart(tokens []tokenizer.Token) bool {
	i := 0
	if i >= len(tokens) || !tokens[i].IsKeyword("CREATE") {
		return false
	}
	i++
	if i < len(tokens) && (tokens[i].IsKeyword("TEMP") || tokens[i].IsKeyword("TEMPORARY")) {
		i++
	}
	return i < len(tokens) && tokens[i].IsKeyword("TRIGGER")
}
