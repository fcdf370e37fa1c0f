package tokenizer

import (
	"strconv"
	"strings"
)

// Kind represents the classification of a scanned token.
type Kind int

const (
	// KindInvalid represents a zero Token.
	KindInvalid Kind = iota
	// KindIdentifier represents bare or quoted identifiers.
	KindIdentifier
	// KindKeyword represents words found in the SQLite keyword catalog.
	KindKeyword
	// KindNumber represents numeric literals.
	KindNumber
	// KindString represents string literals using single quotes.
	KindString
	// KindBlob represents blob literals of the form X'...'.
	KindBlob
	// KindOperator represents punctuation and operator symbols.
	KindOperator
	// KindParam represents bind parameters (?, ?1, :name, @name, $name).
	KindParam
	// KindSpace represents a run of whitespace.
	KindSpace
	// KindComment represents line and block comments.
	KindComment
	// KindOther represents bytes the scanner does not recognise.
	KindOther
	// KindEOF marks the logical end of the input. It is zero-width.
	KindEOF
)

// Token is a unit emitted by the scanner. Text is always the raw source slice
// src[Start:End], so consecutive tokens partition the input.
type Token struct {
	Kind   Kind
	Text   string
	Start  int
	End    int
	Line   int
	Column int
	// Quoted marks identifiers wrapped in "", [] or ``.
	Quoted bool
	// Unterminated marks strings, quoted identifiers, blobs and block
	// comments that run to the end of input without a closing delimiter.
	Unterminated bool
}

// Significant reports whether the token carries syntax.
func (t Token) Significant() bool {
	switch t.Kind {
	case KindSpace, KindComment, KindEOF, KindInvalid:
		return false
	}
	return true
}

// IsKeyword reports whether the token is the given keyword.
func (t Token) IsKeyword(word string) bool {
	return t.Kind == KindKeyword && strings.EqualFold(t.Text, word)
}

// IsOperator reports whether the token is the given operator or punctuation.
func (t Token) IsOperator(op string) bool {
	return t.Kind == KindOperator && t.Text == op
}

// IsName reports whether the token may be used as a name: identifiers and
// fallback keywords.
func (t Token) IsName() bool {
	switch t.Kind {
	case KindIdentifier:
		return true
	case KindKeyword:
		return IsFallbackKeyword(t.Text)
	}
	return false
}

// Value returns the identifier text without quoting delimiters. Keywords
// keep their source spelling so fallback keywords used as names round-trip.
func (t Token) Value() string {
	switch t.Kind {
	case KindIdentifier:
		if t.Quoted {
			return unwrap(t.Text, t.Unterminated)
		}
	case KindString:
		return unwrap(t.Text, t.Unterminated)
	}
	return t.Text
}

// Contains reports whether offset lies within the token's byte range,
// counting the end boundary.
func (t Token) Contains(offset int) bool {
	return offset >= t.Start && offset <= t.End
}

// Significant returns the tokens that carry syntax, dropping spaces,
// comments and the EOF marker.
func Significant(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Significant() {
			out = append(out, tok)
		}
	}
	return out
}

// IsKeyword reports whether the provided string matches a known keyword.
func IsKeyword(s string) bool {
	if s == "" {
		return false
	}
	_, ok := keywords[strings.ToUpper(s)]
	return ok
}

// IsFallbackKeyword reports whether SQLite accepts the keyword as an
// identifier when the grammar would otherwise fail.
func IsFallbackKeyword(s string) bool {
	_, ok := fallbackKeywords[strings.ToUpper(s)]
	return ok
}

// Keywords returns the keyword catalog in no particular order.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for kw := range keywords {
		out = append(out, kw)
	}
	return out
}

// NormalizeIdentifier removes optional quoting from identifiers while unescaping content.
func NormalizeIdentifier(text string) string {
	if len(text) < 2 {
		return text
	}
	switch text[0] {
	case '"', '[', '`', '\'':
		if text[len(text)-1] != closingQuote(text[0]) {
			return text
		}
		return unwrap(text, false)
	default:
		return text
	}
}

func unwrap(text string, unterminated bool) string {
	if text == "" {
		return text
	}
	open := text[0]
	closer := closingQuote(open)
	inner := text[1:]
	if !unterminated && len(inner) > 0 && inner[len(inner)-1] == closer {
		inner = inner[:len(inner)-1]
	}
	if open == '[' {
		return inner
	}
	double := string([]byte{closer, closer})
	return strings.ReplaceAll(inner, double, string(closer))
}

func closingQuote(open byte) byte {
	if open == '[' {
		return ']'
	}
	return open
}

var keywords = toSet(
	"ABORT", "ACTION", "ADD", "AFTER", "ALL", "ALTER", "ALWAYS", "ANALYZE",
	"AND", "AS", "ASC", "ATTACH", "AUTOINCREMENT", "BEFORE", "BEGIN",
	"BETWEEN", "BY", "CASCADE", "CASE", "CAST", "CHECK", "COLLATE", "COLUMN",
	"COMMIT", "CONFLICT", "CONSTRAINT", "CREATE", "CROSS", "CURRENT",
	"CURRENT_DATE", "CURRENT_TIME", "CURRENT_TIMESTAMP", "DATABASE", "DEFAULT",
	"DEFERRABLE", "DEFERRED", "DELETE", "DESC", "DETACH", "DISTINCT", "DO",
	"DROP", "EACH", "ELSE", "END", "ESCAPE", "EXCEPT", "EXCLUDE", "EXCLUSIVE",
	"EXISTS", "EXPLAIN", "FAIL", "FILTER", "FIRST", "FOLLOWING", "FOR",
	"FOREIGN", "FROM", "FULL", "GENERATED", "GLOB", "GROUP", "GROUPS",
	"HAVING", "IF", "IGNORE", "IMMEDIATE", "IN", "INDEX", "INDEXED",
	"INITIALLY", "INNER", "INSERT", "INSTEAD", "INTERSECT", "INTO", "IS",
	"ISNULL", "JOIN", "KEY", "LAST", "LEFT", "LIKE", "LIMIT", "MATCH",
	"MATERIALIZED", "NATURAL", "NO", "NOT", "NOTHING", "NOTNULL", "NULL",
	"NULLS", "OF", "OFFSET", "ON", "OR", "ORDER", "OTHERS", "OUTER", "OVER",
	"PARTITION", "PLAN", "PRAGMA", "PRECEDING", "PRIMARY", "QUERY", "RAISE",
	"RANGE", "RECURSIVE", "REFERENCES", "REGEXP", "REINDEX", "RELEASE",
	"RENAME", "REPLACE", "RESTRICT", "RETURNING", "RIGHT", "ROLLBACK", "ROW",
	"ROWS", "SAVEPOINT", "SELECT", "SET", "TABLE", "TEMP", "TEMPORARY",
	"THEN", "TIES", "TO", "TRANSACTION", "TRIGGER", "UNBOUNDED", "UNION",
	"UNIQUE", "UPDATE", "USING", "VACUUM", "VALUES", "VIEW", "VIRTUAL", "WHEN",
	"WHERE", "WINDOW", "WITH", "WITHOUT",
)

var fallbackKeywords = toSet(
	"ABORT", "ACTION", "AFTER", "ALWAYS", "ANALYZE", "ASC", "ATTACH", "BEFORE",
	"BEGIN", "BY", "CASCADE", "CAST", "COLUMN", "CONFLICT", "CURRENT",
	"CURRENT_DATE", "CURRENT_TIME", "CURRENT_TIMESTAMP", "DATABASE",
	"DEFERRED", "DESC", "DETACH", "DO", "EACH", "END", "EXCLUDE", "EXCLUSIVE",
	"EXPLAIN", "FAIL", "FIRST", "FOLLOWING", "FOR", "GENERATED", "GLOB",
	"GROUPS", "IF", "IGNORE", "IMMEDIATE", "INITIALLY", "INSTEAD", "KEY",
	"LAST", "LIKE", "MATCH", "MATERIALIZED", "NO", "NULLS", "OF", "OFFSET",
	"OTHERS", "PARTITION", "PLAN", "PRAGMA", "PRECEDING", "QUERY", "RAISE",
	"RANGE", "RECURSIVE", "REGEXP", "REINDEX", "RELEASE", "RENAME", "REPLACE",
	"RESTRICT", "ROW", "ROWS", "SAVEPOINT", "TEMP", "TIES", "TRIGGER",
	"UNBOUNDED", "VACUUM", "VIEW", "VIRTUAL", "WITH", "WITHOUT",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "Invalid"
	case KindIdentifier:
		return "Identifier"
	case KindKeyword:
		return "Keyword"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindBlob:
		return "Blob"
	case KindOperator:
		return "Operator"
	case KindParam:
		return "Param"
	case KindSpace:
		return "Space"
	case KindComment:
		return "Comment"
	case KindOther:
		return "Other"
	case KindEOF:
		return "EOF"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}
