package completion

import (
	"cmp"
	"slices"
	"strings"

	"github.com/electwix/sqlcomplete/internal/query/ast"
	"github.com/electwix/sqlcomplete/internal/schema/tokenizer"
)

var clauseOf = map[string]ast.Clause{
	"FROM":   ast.ClauseFrom,
	"WHERE":  ast.ClauseWhere,
	"GROUP":  ast.ClauseGroupBy,
	"HAVING": ast.ClauseHaving,
	"WINDOW": ast.ClauseWindow,
	"ORDER":  ast.ClauseOrderBy,
	"LIMIT":  ast.ClauseLimit,
}

// infixKeywords can only follow a complete operand.
var infixKeywords = toSet(
	"AND", "OR", "IS", "IN", "LIKE", "GLOB", "REGEXP", "MATCH", "BETWEEN",
	"ESCAPE", "COLLATE", "ISNULL", "NOTNULL", "AS", "ASC", "DESC", "NULLS",
	"UNION", "INTERSECT", "EXCEPT", "JOIN", "LEFT", "RIGHT", "FULL", "INNER",
	"CROSS", "NATURAL", "ON", "USING", "INDEXED", "OFFSET", "RETURNING",
	"FROM", "WHERE", "GROUP", "HAVING", "WINDOW", "ORDER", "LIMIT",
)

// prefixKeywords start an operand and cannot follow one.
var prefixKeywords = toSet(
	"NULL", "EXISTS", "CASE", "CAST", "CURRENT_DATE", "CURRENT_TIME",
	"CURRENT_TIMESTAMP", "DISTINCT", "ALL",
)

// operatorNames are fallback keywords that act as operators or clause
// words, never as the end of an operand.
var operatorNames = toSet(
	"LIKE", "GLOB", "MATCH", "REGEXP", "BY", "CAST", "IF", "OF", "FOR",
	"EACH", "DO", "WITH", "RAISE", "PRAGMA", "EXPLAIN",
)

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// filterPrefix keeps the candidates whose value starts with partial,
// ignoring case.
func filterPrefix(tokens []ExpectedToken, partial string) []ExpectedToken {
	if partial == "" {
		return tokens
	}
	prefix := strings.ToLower(partial)
	out := tokens[:0]
	for _, t := range tokens {
		if strings.HasPrefix(strings.ToLower(t.Value), prefix) {
			out = append(out, t)
		}
	}
	return out
}

// filterKeywords drops keyword candidates that cannot follow the tokens
// before the cursor: clauses the core already has or has passed, infix
// keywords without a left operand and operand starters after one.
func filterKeywords(tokens []ExpectedToken, c Classification, core *ast.Core) []ExpectedToken {
	operand := endsOperand(c.Prev)
	out := tokens[:0]
	for _, t := range tokens {
		if t.Type != TypeKeyword || keywordFits(t.Value, c, core, operand) {
			out = append(out, t)
		}
	}
	return out
}

func keywordFits(kw string, c Classification, core *ast.Core, operand bool) bool {
	if cl, ok := clauseOf[kw]; ok && core != nil && !clauseFits(cl, c.Clause, core) {
		return false
	}
	switch {
	case infixKeywords[kw]:
		return operand
	case prefixKeywords[kw]:
		return !operand
	}
	return true
}

// clauseFits reports whether clause cl may start after the current clause
// of core.
func clauseFits(cl, current ast.Clause, core *ast.Core) bool {
	if cl <= current || core.Has(cl) {
		return false
	}
	for between := current + 1; between < cl; between++ {
		if core.Has(between) {
			return false
		}
	}
	return true
}

// endsOperand reports whether the nearest token in prev completes an
// operand.
func endsOperand(prev []tokenizer.Token) bool {
	if len(prev) == 0 {
		return false
	}
	tok := prev[0]
	switch tok.Kind {
	case tokenizer.KindIdentifier, tokenizer.KindString, tokenizer.KindNumber,
		tokenizer.KindBlob, tokenizer.KindParam:
		return true
	case tokenizer.KindOperator:
		switch tok.Text {
		case ")":
			return true
		case "*":
			return len(prev) < 2 || startsStar(prev[1])
		}
	case tokenizer.KindKeyword:
		kw := strings.ToUpper(tok.Text)
		switch kw {
		case "NULL", "END", "CURRENT_DATE", "CURRENT_TIME", "CURRENT_TIMESTAMP":
			return true
		}
		return tok.IsName() && !operatorNames[kw]
	}
	return false
}

// startsStar reports whether a "*" after tok is a wildcard rather than a
// multiplication.
func startsStar(tok tokenizer.Token) bool {
	return tok.IsKeyword("SELECT") || tok.IsKeyword("DISTINCT") || tok.IsKeyword("ALL") ||
		tok.IsOperator(",") || tok.IsOperator(".") || tok.IsOperator("(")
}

// dedupe collapses candidates equal in type, value and context info,
// keeping the highest priority.
func dedupe(tokens []ExpectedToken) []ExpectedToken {
	index := make(map[tokenKey]int, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if i, ok := index[t.key()]; ok {
			if t.Priority > out[i].Priority {
				out[i] = t
			}
			continue
		}
		index[t.key()] = len(out)
		out = append(out, t)
	}
	return out
}

// sortTokens orders by descending priority, then case-insensitive value.
// The remaining fields only make the order total.
func sortTokens(tokens []ExpectedToken) {
	slices.SortFunc(tokens, func(a, b ExpectedToken) int {
		return cmp.Or(
			cmp.Compare(b.Priority, a.Priority),
			strings.Compare(strings.ToLower(a.Value), strings.ToLower(b.Value)),
			strings.Compare(a.Value, b.Value),
			cmp.Compare(a.Type, b.Type),
			strings.Compare(a.ContextInfo, b.ContextInfo),
			strings.Compare(a.Prefix, b.Prefix),
			strings.Compare(a.Label, b.Label),
		)
	})
}
