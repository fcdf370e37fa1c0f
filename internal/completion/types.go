package completion

import "strings"

// TokenType classifies a completion candidate.
type TokenType int

const (
	TypeKeyword TokenType = iota
	TypeTable
	TypeColumn
	TypeDatabase
	TypeFunction
	TypePragma
	TypeCollation
	TypeIndex
	TypeTrigger
	TypeView
	TypeOther
)

var typeNames = [...]string{
	TypeKeyword:   "keyword",
	TypeTable:     "table",
	TypeColumn:    "column",
	TypeDatabase:  "database",
	TypeFunction:  "function",
	TypePragma:    "pragma",
	TypeCollation: "collation",
	TypeIndex:     "index",
	TypeTrigger:   "trigger",
	TypeView:      "view",
	TypeOther:     "other",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// MarshalText renders the type by name in JSON output.
func (t TokenType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Candidate priorities. Higher sorts first.
const (
	PriorityColumn       = 100
	PriorityFavored      = 90
	PriorityTable        = 80
	PriorityObject       = 70
	PriorityParentColumn = 60
	PriorityRowID        = 50
	PriorityFunction     = 40
	PriorityDatabase     = 30
	PriorityKeyword      = 20
)

// ExpectedToken is one completion candidate. Two candidates are duplicates
// when Type, Value and ContextInfo match.
type ExpectedToken struct {
	Type TokenType `json:"type"`
	// Value is the text to insert.
	Value string `json:"value"`
	// ContextInfo disambiguates equal values, e.g. the table owning a column.
	ContextInfo string `json:"context_info,omitempty"`
	Label       string `json:"label,omitempty"`
	// Prefix is inserted before Value, e.g. "users." for an ambiguous column.
	Prefix   string `json:"prefix,omitempty"`
	Priority int    `json:"priority"`
}

func (e ExpectedToken) String() string {
	var b strings.Builder
	b.WriteString(e.Type.String())
	b.WriteByte(' ')
	b.WriteString(e.Prefix)
	b.WriteString(e.Value)
	if e.ContextInfo != "" {
		b.WriteString(" (")
		b.WriteString(e.ContextInfo)
		b.WriteByte(')')
	}
	return b.String()
}

type tokenKey struct {
	typ         TokenType
	value       string
	contextInfo string
}

func (e ExpectedToken) key() tokenKey {
	return tokenKey{e.Type, e.Value, e.ContextInfo}
}

// Context is the syntactic position of the cursor.
type Context int

const (
	ContextNone Context = iota
	ContextResultColumn
	ContextFrom
	ContextWhere
	ContextGroupBy
	ContextHaving
	ContextOrderBy
	ContextLimit
	ContextUpdateColumn
	ContextInsertColumn
	ContextCreateTable
	ContextCreateTrigger
	ContextExpr
)

var contextNames = [...]string{
	ContextNone:          "none",
	ContextResultColumn:  "result-column",
	ContextFrom:          "from",
	ContextWhere:         "where",
	ContextGroupBy:       "group-by",
	ContextHaving:        "having",
	ContextOrderBy:       "order-by",
	ContextLimit:         "limit",
	ContextUpdateColumn:  "update-column",
	ContextInsertColumn:  "insert-column",
	ContextCreateTable:   "create-table",
	ContextCreateTrigger: "create-trigger",
	ContextExpr:          "expr",
}

func (c Context) String() string {
	if c >= 0 && int(c) < len(contextNames) {
		return contextNames[c]
	}
	return "unknown"
}

// MarshalText renders the context by name in JSON output.
func (c Context) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Results is the outcome of one completion request.
type Results struct {
	ExpectedTokens []ExpectedToken `json:"expected_tokens"`
	// PartialToken is the fragment typed before the cursor.
	PartialToken string `json:"partial_token"`
	// WrappedToken is set when PartialToken sits inside an open quote.
	WrappedToken bool    `json:"wrapped_token"`
	Context      Context `json:"context"`
}
