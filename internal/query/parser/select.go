package parser

import (
	"strings"

	"github.com/electwix/sqlcomplete/internal/query/ast"
	"github.com/electwix/sqlcomplete/internal/schema/tokenizer"
)

// stopSet lists the keywords and operators that end an expression at
// nesting depth zero.
type stopSet map[string]struct{}

func stops(words ...string) stopSet {
	set := make(stopSet, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func (s stopSet) has(tok tokenizer.Token) bool {
	switch tok.Kind {
	case tokenizer.KindKeyword:
		_, ok := s[strings.ToUpper(tok.Text)]
		return ok
	case tokenizer.KindOperator:
		_, ok := s[tok.Text]
		return ok
	}
	return false
}

var (
	resultColumnStops = stops(",", "AS", "FROM", "WHERE", "GROUP", "HAVING", "WINDOW", "ORDER", "LIMIT", "UNION", "INTERSECT", "EXCEPT")
	constraintStops   = stops(",", "JOIN", "LEFT", "RIGHT", "FULL", "INNER", "CROSS", "NATURAL", "WHERE", "GROUP", "HAVING", "WINDOW", "ORDER", "LIMIT", "UNION", "INTERSECT", "EXCEPT")
	whereStops        = stops("GROUP", "HAVING", "WINDOW", "ORDER", "LIMIT", "UNION", "INTERSECT", "EXCEPT", "RETURNING", "ON")
	groupStops        = stops("HAVING", "WINDOW", "ORDER", "LIMIT", "UNION", "INTERSECT", "EXCEPT")
	havingStops       = stops("WINDOW", "ORDER", "LIMIT", "UNION", "INTERSECT", "EXCEPT")
	windowStops       = stops("ORDER", "LIMIT", "UNION", "INTERSECT", "EXCEPT")
	orderStops        = stops("LIMIT", "UNION", "INTERSECT", "EXCEPT")
	limitStops        = stops("UNION", "INTERSECT", "EXCEPT", "ON", "RETURNING")
	valuesStops       = stops("UNION", "INTERSECT", "EXCEPT", "ORDER", "LIMIT", "ON", "RETURNING")
)

// startsSelect reports whether the current token opens a select.
func (p *Parser) startsSelect() bool {
	return p.matchKeyword("SELECT", "VALUES", "WITH")
}

// parseWith parses a WITH clause. Statement-level CTEs become visible to
// every top-level core of the statement; nested ones are returned.
func (p *Parser) parseWith(parent ast.CoreID, statementLevel bool) []ast.CTE {
	p.expectKeyword("WITH")
	if p.matchKeyword("RECURSIVE") {
		p.advance()
	}
	var ctes []ast.CTE
	for {
		nameTok := p.expectName("common table name")
		cte := ast.CTE{Name: nameTok.Value(), Start: nameTok.Start}
		if p.matchOperator("(") {
			cte.Columns, _ = p.parseNameList("column name")
		}
		p.expectKeyword("AS")
		if p.matchKeyword("NOT") {
			p.advance()
		}
		if p.matchKeyword("MATERIALIZED") {
			p.advance()
		}
		p.expectOperator("(")
		// A common table is visible inside its own body, which is how
		// recursive ones refer to themselves.
		if statementLevel {
			p.ctes = append(p.ctes, cte)
			p.parseCTEBody(parent, nil, &cte)
			p.ctes[len(p.ctes)-1] = cte
		} else {
			ctes = append(ctes, cte)
			p.parseCTEBody(parent, ctes[:len(ctes):len(ctes)], &cte)
			ctes[len(ctes)-1] = cte
		}
		if !p.matchOperator(",") {
			return ctes
		}
		p.advance()
	}
}

// parseSelect parses a possibly compound select, appending each core to out
// as soon as it is created.
func (p *Parser) parseSelect(parent ast.CoreID, ctes []ast.CTE, out *[]ast.CoreID) {
	if p.matchKeyword("WITH") {
		ctes = append(ctes, p.parseWith(parent, false)...)
	}
	for {
		core := p.parseCore(parent, ctes, out)
		if !p.matchKeyword("UNION", "INTERSECT", "EXCEPT") {
			return
		}
		op := p.advance()
		core.End = op.Start
		core.Closed = true
		if op.IsKeyword("UNION") && p.matchKeyword("ALL") {
			p.advance()
		}
	}
}

// parseCTEBody parses the body of cte with visible in scope. The cores
// created for the body hold a copy of cte taken before its body was known;
// they are pointed at the finished one even when parsing bails out.
func (p *Parser) parseCTEBody(parent ast.CoreID, visible []ast.CTE, cte *ast.CTE) {
	first := len(p.q.Cores)
	defer func() {
		cte.End = p.previous().End
		for _, core := range p.q.Cores[first:] {
			for i, c := range core.CTEs {
				if c.Start == cte.Start && c.Name == cte.Name {
					core.CTEs[i] = *cte
				}
			}
		}
	}()
	p.parseSubqueryWith(parent, visible, &cte.Cores)
}

// parseSubquery parses a parenthesized select whose "(" was consumed and
// closes its last core at the matching ")".
func (p *Parser) parseSubquery(parent ast.CoreID, out *[]ast.CoreID) {
	p.parseSubqueryWith(parent, nil, out)
}

func (p *Parser) parseSubqueryWith(parent ast.CoreID, ctes []ast.CTE, out *[]ast.CoreID) {
	p.parseSelect(parent, ctes, out)
	closing := p.expectOperator(")")
	if n := len(*out); n > 0 {
		last := p.q.Core((*out)[n-1])
		last.End = closing.Start
		last.Closed = true
	}
}

func (p *Parser) parseCore(parent ast.CoreID, ctes []ast.CTE, out *[]ast.CoreID) *ast.Core {
	tok := p.current()
	if !tok.IsKeyword("SELECT") && !tok.IsKeyword("VALUES") {
		p.fail(tok, "expected SELECT")
	}
	core := p.newCore(parent, tok.Start, ctes)
	*out = append(*out, core.ID)
	p.advance()

	if tok.IsKeyword("VALUES") {
		core.Values = true
		p.skipExpr(core.ID, valuesStops, false)
	} else {
		if p.matchKeyword("DISTINCT", "ALL") {
			core.Distinct = p.advance().IsKeyword("DISTINCT")
		}
		p.parseResultColumns(core)
		if p.matchKeyword("FROM") {
			core.SetClause(ast.ClauseFrom, p.advance().End)
			p.parseFrom(core)
		}
		if p.matchKeyword("WHERE") {
			core.SetClause(ast.ClauseWhere, p.advance().End)
			p.skipExpr(core.ID, whereStops, false)
		}
		if p.matchKeyword("GROUP") {
			p.advance()
			core.SetClause(ast.ClauseGroupBy, p.expectKeyword("BY").End)
			p.skipExpr(core.ID, groupStops, false)
		}
		if p.matchKeyword("HAVING") {
			core.SetClause(ast.ClauseHaving, p.advance().End)
			p.skipExpr(core.ID, havingStops, false)
		}
		if p.matchKeyword("WINDOW") {
			core.SetClause(ast.ClauseWindow, p.advance().End)
			p.skipExpr(core.ID, windowStops, false)
		}
	}
	if p.matchKeyword("ORDER") {
		p.advance()
		core.SetClause(ast.ClauseOrderBy, p.expectKeyword("BY").End)
		p.skipExpr(core.ID, orderStops, false)
	}
	if p.matchKeyword("LIMIT") {
		core.SetClause(ast.ClauseLimit, p.advance().End)
		p.skipExpr(core.ID, limitStops, false)
	}
	return core
}

func (p *Parser) parseResultColumns(core *ast.Core) {
	for {
		start := p.current()
		rc := ast.ResultColumn{Start: start.Start}
		switch {
		case start.IsOperator("*"):
			rc.Star = true
			p.advance()
		case start.IsName() && p.peek(1).IsOperator(".") && p.peek(2).IsOperator("*"):
			rc.Star = true
			rc.Table = start.Value()
			p.pos += 3
		default:
			from := p.pos
			if p.skipExpr(core.ID, resultColumnStops, true) == 0 {
				if p.atEnd() || resultColumnStops.has(p.current()) || p.matchOperator(")") {
					// Empty column slot, e.g. "SELECT  FROM t" while typing.
					if p.matchOperator(",") {
						p.advance()
						continue
					}
					return
				}
				p.fail(p.current(), "expected result column")
			}
			rc.Table, rc.Name = columnReference(p.tokens[from:p.pos])
		}
		if p.matchKeyword("AS") {
			p.advance()
			rc.Alias = p.expectName("column alias").Value()
		} else if isAliasToken(p.current()) {
			rc.Alias = p.advance().Value()
		}
		rc.End = p.previous().End
		core.Columns = append(core.Columns, rc)
		if !p.matchOperator(",") {
			return
		}
		p.advance()
	}
}

// columnReference returns the qualifier and column of an expression that is
// a plain, possibly qualified, column reference.
func columnReference(tokens []tokenizer.Token) (string, string) {
	switch {
	case len(tokens) == 1 && tokens[0].IsName():
		return "", tokens[0].Value()
	case len(tokens) == 3 && tokens[0].IsName() && tokens[1].IsOperator(".") && tokens[2].IsName():
		return tokens[0].Value(), tokens[2].Value()
	case len(tokens) == 5 && tokens[0].IsName() && tokens[1].IsOperator(".") && tokens[2].IsName() &&
		tokens[3].IsOperator(".") && tokens[4].IsName():
		return tokens[2].Value(), tokens[4].Value()
	}
	return "", ""
}

func (p *Parser) parseFrom(core *ast.Core) {
	join := ""
	for {
		if p.atEnd() || whereStops.has(p.current()) || p.matchKeyword("WHERE") {
			// "FROM" with nothing after it yet.
			if join == "" {
				return
			}
			p.fail(p.current(), "expected table name")
		}
		p.parseSource(core, join)
		next, ok := p.parseJoinOperator()
		if !ok {
			return
		}
		join = next
	}
}

func (p *Parser) parseSource(core *ast.Core, join string) {
	tok := p.current()
	src := ast.Source{
		Join:            join,
		Start:           tok.Start,
		ConstraintStart: ast.Unset,
		ConstraintEnd:   ast.Unset,
	}
	switch {
	case tok.IsOperator("("):
		p.advance()
		if !p.startsSelect() {
			p.parseFrom(core)
			p.expectOperator(")")
			return
		}
		src.Kind = ast.SourceSubquery
		core.From = append(core.From, src)
		p.parseSubquery(core.ID, &core.From[len(core.From)-1].Subquery)
	case tok.IsName() || tok.Kind == tokenizer.KindString:
		src.Name = p.parseQualifiedName("table name")
		if p.matchOperator("(") {
			src.Kind = ast.SourceFunction
			p.advance()
			p.skipExpr(core.ID, nil, false)
			p.expectOperator(")")
		}
		core.From = append(core.From, src)
	default:
		p.fail(tok, "expected table name")
	}

	s := &core.From[len(core.From)-1]
	if p.matchKeyword("AS") {
		p.advance()
		s.Alias = p.expectName("table alias").Value()
	} else if isAliasToken(p.current()) {
		s.Alias = p.advance().Value()
	}
	s.End = p.previous().End
	switch {
	case p.matchKeyword("INDEXED"):
		p.advance()
		p.expectKeyword("BY")
		p.expectName("index name")
	case p.matchKeyword("NOT"):
		p.advance()
		p.expectKeyword("INDEXED")
	}
	switch {
	case p.matchKeyword("ON"):
		s.ConstraintStart = p.advance().End
		p.skipExpr(core.ID, constraintStops, false)
		if !p.isEOF() {
			s.ConstraintEnd = p.current().Start
		}
	case p.matchKeyword("USING"):
		s.ConstraintStart = p.advance().End
		p.expectOperator("(")
		for !p.matchOperator(")") {
			p.expectName("column name")
			if p.matchOperator(",") {
				p.advance()
			} else if !p.matchOperator(")") {
				p.fail(p.current(), "expected \")\"")
			}
		}
		s.ConstraintEnd = p.advance().Start
	}
	s.End = p.previous().End
}

// parseJoinOperator consumes "," or a JOIN operator and returns its text.
func (p *Parser) parseJoinOperator() (string, bool) {
	if p.matchOperator(",") {
		p.advance()
		return ",", true
	}
	var words []string
	for p.matchKeyword("NATURAL", "LEFT", "RIGHT", "FULL", "OUTER", "INNER", "CROSS") {
		words = append(words, strings.ToUpper(p.advance().Text))
	}
	if p.matchKeyword("JOIN") {
		p.advance()
		return strings.Join(append(words, "JOIN"), " "), true
	}
	if len(words) > 0 {
		p.fail(p.current(), "expected JOIN")
	}
	return "", false
}

// skipExpr consumes an expression up to a stop token, a closing parenthesis
// or the end of the statement at nesting depth zero. Parenthesized selects
// become child cores of owner. With aliasable set, a name directly following
// a complete operand ends the expression, as in "SELECT a b". It returns the
// number of tokens consumed at depth zero.
func (p *Parser) skipExpr(owner ast.CoreID, stop stopSet, aliasable bool) int {
	depth, count := 0, 0
	var prev tokenizer.Token
	for !p.atEnd() {
		tok := p.current()
		if depth == 0 {
			if tok.IsOperator(")") || stop.has(tok) {
				return count
			}
			if aliasable && count > 0 && isAliasToken(tok) && endsOperand(prev) {
				return count
			}
		}
		p.advance()
		if depth == 0 {
			count++
		}
		prev = tok
		switch {
		case tok.IsOperator("("):
			if p.startsSelect() {
				var ids []ast.CoreID
				p.parseSubquery(owner, &ids)
				prev = p.previous()
				continue
			}
			depth++
		case tok.IsOperator(")"):
			depth--
		}
	}
	return count
}

// endsOperand reports whether tok can be the last token of an operand.
func endsOperand(tok tokenizer.Token) bool {
	switch tok.Kind {
	case tokenizer.KindIdentifier, tokenizer.KindString, tokenizer.KindNumber,
		tokenizer.KindBlob, tokenizer.KindParam:
		return true
	case tokenizer.KindOperator:
		return tok.Text == ")"
	case tokenizer.KindKeyword:
		switch strings.ToUpper(tok.Text) {
		case "NULL", "END", "CURRENT_DATE", "CURRENT_TIME", "CURRENT_TIMESTAMP":
			return true
		}
	}
	return false
}

// isAliasToken reports whether tok can be an alias given without AS.
func isAliasToken(tok tokenizer.Token) bool {
	if tok.Kind == tokenizer.KindIdentifier {
		return true
	}
	if !tok.IsName() {
		return false
	}
	switch strings.ToUpper(tok.Text) {
	case "LIKE", "GLOB", "MATCH", "REGEXP", "ASC", "DESC", "NULLS", "FIRST", "LAST", "DO":
		return false
	}
	return true
}
