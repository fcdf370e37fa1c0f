package completion

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/electwix/sqlcomplete/internal/query/ast"
	"github.com/electwix/sqlcomplete/internal/query/parser"
)

func TestClauseFits(t *testing.T) {
	q, _ := parser.ParseString("SELECT a FROM t WHERE a > 1 ORDER BY a")
	core := q.Core(0)
	tests := []struct {
		clause  ast.Clause
		current ast.Clause
		want    bool
	}{
		{ast.ClauseGroupBy, ast.ClauseWhere, true},
		{ast.ClauseHaving, ast.ClauseWhere, true},
		{ast.ClauseWhere, ast.ClauseFrom, false},
		{ast.ClauseFrom, ast.ClauseWhere, false},
		{ast.ClauseLimit, ast.ClauseWhere, false},
		{ast.ClauseLimit, ast.ClauseOrderBy, true},
	}
	for _, tt := range tests {
		if got := clauseFits(tt.clause, tt.current, core); got != tt.want {
			t.Errorf("clauseFits(%v, %v) = %v, want %v", tt.clause, tt.current, got, tt.want)
		}
	}
}

func TestEndsOperand(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT", false},
		{"SELECT a", true},
		{"SELECT 'x'", true},
		{"SELECT *", true},
		{"SELECT a *", false},
		{"SELECT (a)", true},
		{"SELECT a =", false},
		{"SELECT NULL", true},
		{"SELECT a LIKE", false},
		{"SELECT t.key", true},
	}
	for _, tt := range tests {
		q, _ := parser.ParseString(tt.sql)
		prev := previousTokens(q.Tokens, len(tt.sql))
		if got := endsOperand(prev); got != tt.want {
			t.Errorf("endsOperand(%q) = %v, want %v", tt.sql, got, tt.want)
		}
	}
	if endsOperand(nil) {
		t.Error("endsOperand(nil) = true")
	}
}

func TestDedupeKeepsHighestPriority(t *testing.T) {
	in := []ExpectedToken{
		{Type: TypeColumn, Value: "id", ContextInfo: "users", Priority: PriorityParentColumn},
		{Type: TypeColumn, Value: "id", ContextInfo: "orders", Priority: PriorityColumn},
		{Type: TypeColumn, Value: "id", ContextInfo: "users", Priority: PriorityColumn},
		{Type: TypeKeyword, Value: "id", Priority: PriorityKeyword},
	}
	want := []ExpectedToken{
		{Type: TypeColumn, Value: "id", ContextInfo: "users", Priority: PriorityColumn},
		{Type: TypeColumn, Value: "id", ContextInfo: "orders", Priority: PriorityColumn},
		{Type: TypeKeyword, Value: "id", Priority: PriorityKeyword},
	}
	if diff := cmp.Diff(want, dedupe(in)); diff != "" {
		t.Errorf("dedupe mismatch (-want +got):\n%s", diff)
	}
}

func TestSortTokens(t *testing.T) {
	tokens := []ExpectedToken{
		{Type: TypeKeyword, Value: "FROM", Priority: PriorityKeyword},
		{Type: TypeColumn, Value: "name", ContextInfo: "users", Priority: PriorityColumn},
		{Type: TypeFunction, Value: "abs(", Priority: PriorityFunction},
		{Type: TypeColumn, Value: "Age", ContextInfo: "users", Priority: PriorityColumn},
		{Type: TypeTable, Value: "users", Priority: PriorityTable},
	}
	sortTokens(tokens)

	var got []string
	for _, tok := range tokens {
		got = append(got, tok.Value)
	}
	want := []string{"Age", "name", "users", "abs(", "FROM"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterPrefix(t *testing.T) {
	in := []ExpectedToken{
		{Type: TypeColumn, Value: "Name"},
		{Type: TypeColumn, Value: "age"},
		{Type: TypeKeyword, Value: "NATURAL"},
	}
	var got []string
	for _, tok := range filterPrefix(in, "na") {
		got = append(got, tok.Value)
	}
	if diff := cmp.Diff([]string{"Name", "NATURAL"}, got); diff != "" {
		t.Errorf("filterPrefix mismatch (-want +got):\n%s", diff)
	}
}
