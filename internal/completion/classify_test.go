package completion

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/electwix/sqlcomplete/internal/query/ast"
	"github.com/electwix/sqlcomplete/internal/query/parser"
)

// classifyAt classifies the position of the "|" marker in sql.
func classifyAt(t *testing.T, marked string) Classification {
	t.Helper()
	cursor := strings.Index(marked, "|")
	if cursor < 0 {
		t.Fatalf("no cursor marker in %q", marked)
	}
	sql := marked[:cursor] + marked[cursor+1:]
	q, _ := parser.ParseString(sql)
	return Classify(q, cursor)
}

func TestClassifyContext(t *testing.T) {
	tests := []struct {
		sql  string
		want Context
	}{
		{"|", ContextNone},
		{"SELECT 1; |", ContextNone},
		{"EXPLAIN |", ContextNone},
		{"EXPLAIN QUERY PLAN |", ContextNone},
		{"SELECT | FROM users", ContextResultColumn},
		{"SELECT a, | FROM users", ContextResultColumn},
		{"SELECT * FROM |", ContextFrom},
		{"SELECT * FROM users u, |", ContextFrom},
		{"SELECT * FROM users WHERE |", ContextWhere},
		{"SELECT * FROM users WHERE (|", ContextExpr},
		{"SELECT * FROM users WHERE a = 1 AND | GROUP BY a", ContextWhere},
		{"SELECT a FROM users GROUP BY |", ContextGroupBy},
		{"SELECT a FROM users GROUP BY a HAVING |", ContextHaving},
		{"SELECT a FROM users ORDER BY |", ContextOrderBy},
		{"SELECT a FROM users LIMIT |", ContextLimit},
		{"SELECT count(|", ContextExpr},
		{"SELECT * FROM users u JOIN orders o ON |", ContextExpr},
		{"SELECT * FROM json_each(|", ContextExpr},
		{"VALUES (|", ContextExpr},
		{"UPDATE users SET |", ContextUpdateColumn},
		{"UPDATE users SET name = |", ContextExpr},
		{"UPDATE users SET name = 1, |", ContextUpdateColumn},
		{"UPDATE users SET name = lower(a, |", ContextExpr},
		{"UPDATE users SET name = 1 WHERE |", ContextExpr},
		{"DELETE FROM users WHERE |", ContextExpr},
		{"INSERT INTO users (|", ContextInsertColumn},
		{"INSERT INTO users (id, |) VALUES (1, 2)", ContextInsertColumn},
		{"INSERT INTO users (id) VALUES (|", ContextExpr},
		{"CREATE TABLE t (|", ContextCreateTable},
		{"CREATE INDEX i ON users (|", ContextExpr},
		{"CREATE TRIGGER tr |", ContextCreateTrigger},
		{"CREATE TRIGGER tr AFTER INSERT ON users BEGIN |", ContextCreateTrigger},
		{"CREATE TRIGGER tr AFTER INSERT ON users WHEN |", ContextExpr},
		{"CREATE TRIGGER tr AFTER INSERT ON users BEGIN UPDATE orders SET |", ContextUpdateColumn},
		{"CREATE TRIGGER tr AFTER INSERT ON users BEGIN SELECT 1; | END", ContextCreateTrigger},
		{"SELECT 1; SELECT * FROM |", ContextFrom},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			if got := classifyAt(t, tt.sql).Context; got != tt.want {
				t.Errorf("Context = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyAtStart(t *testing.T) {
	for _, sql := range []string{"|", "SELECT 1;|", "SELECT 1; |", "EXPLAIN |"} {
		if c := classifyAt(t, sql); !c.AtStart {
			t.Errorf("%q: AtStart = false", sql)
		}
	}
	if c := classifyAt(t, "SELECT |"); c.AtStart {
		t.Error("SELECT: AtStart = true")
	}
}

func TestClassifyNestedCore(t *testing.T) {
	c := classifyAt(t, "SELECT (SELECT id FROM orders WHERE |) FROM users")
	if c.Context != ContextWhere {
		t.Fatalf("Context = %v, want where", c.Context)
	}
	if c.Core != 1 {
		t.Errorf("Core = %d, want the inner core 1", c.Core)
	}
	if diff := cmp.Diff([]ast.CoreID{0}, c.Parents); diff != "" {
		t.Errorf("Parents mismatch (-want +got):\n%s", diff)
	}

	outer := classifyAt(t, "SELECT (SELECT id FROM orders) FROM users WHERE |")
	if outer.Core != 0 || len(outer.Parents) != 0 {
		t.Errorf("outer = core %d parents %v", outer.Core, outer.Parents)
	}
}

func TestClassifyPreviousTokens(t *testing.T) {
	c := classifyAt(t, "SELECT a FROM t WHERE x = |")
	if got := c.Previous().Text; got != "=" {
		t.Errorf("Previous = %q, want =", got)
	}
	if got := c.TwoBack().Text; got != "x" {
		t.Errorf("TwoBack = %q, want x", got)
	}
	if len(c.Prev) != prevWindow {
		t.Errorf("len(Prev) = %d, want %d", len(c.Prev), prevWindow)
	}

	empty := classifyAt(t, "|")
	if empty.Previous().Text != "" || empty.TwoBack().Text != "" {
		t.Errorf("empty input has previous tokens %v", empty.Prev)
	}
}

func TestClassifyQualifier(t *testing.T) {
	tests := []struct {
		sql  string
		want Qualifier
	}{
		{"SELECT u.| FROM users u", Qualifier{Name: "u"}},
		{"SELECT main.users.| FROM users", Qualifier{Database: "main", Name: "users"}},
		{`SELECT "my table".| FROM "my table"`, Qualifier{Name: "my table"}},
		{"SELECT 1.|", Qualifier{}},
		{"SELECT u |", Qualifier{}},
	}
	for _, tt := range tests {
		if got := classifyAt(t, tt.sql).Qualifier; got != tt.want {
			t.Errorf("%q: Qualifier = %+v, want %+v", tt.sql, got, tt.want)
		}
	}
}

func TestClassifyHint(t *testing.T) {
	tests := []struct {
		sql  string
		want Hint
	}{
		{"PRAGMA |", HintPragma},
		{"SELECT a COLLATE |", HintCollation},
		{"REINDEX |", HintIndex},
		{"SELECT * FROM users INDEXED BY |", HintIndex},
		{"DROP INDEX |", HintIndex},
		{"DROP TRIGGER |", HintTrigger},
		{"DROP VIEW |", HintView},
		{"DROP VIEW main.|", HintView},
		{"DROP TABLE |", HintTable},
		{"DROP TABLE IF EXISTS |", HintTable},
		{"ALTER TABLE |", HintTable},
		{"INSERT INTO |", HintTable},
		{"REPLACE INTO |", HintTable},
		{"INSERT OR IGNORE INTO |", HintTable},
		{"UPDATE |", HintTable},
		{"DELETE FROM |", HintTable},
		{"CREATE INDEX i ON |", HintTable},
		{"CREATE TRIGGER tr AFTER DELETE ON |", HintTable},
		{"CREATE TABLE t (a INT REFERENCES |", HintTable},
		{"DETACH |", HintDatabase},
		{"DETACH DATABASE |", HintDatabase},
		{"SELECT * FROM a JOIN b ON |", HintNone},
		{"SELECT * FROM |", HintNone},
	}
	for _, tt := range tests {
		if got := classifyAt(t, tt.sql).Hint; got != tt.want {
			t.Errorf("%q: Hint = %v, want %v", tt.sql, got, tt.want)
		}
	}
}

func TestClassifyDMLTarget(t *testing.T) {
	tests := []struct {
		sql   string
		table string
		alias string
	}{
		{"UPDATE users AS u SET |", "users", "u"},
		{"DELETE FROM main.orders WHERE |", "orders", ""},
		{"INSERT INTO users (|", "users", ""},
		{"CREATE INDEX i ON orders (|", "orders", ""},
	}
	for _, tt := range tests {
		c := classifyAt(t, tt.sql)
		if c.Target.Name != tt.table || c.TargetAlias != tt.alias {
			t.Errorf("%q: target = %q alias %q, want %q alias %q", tt.sql, c.Target.Name, c.TargetAlias, tt.table, tt.alias)
		}
	}
}

func TestClassifyOuterTarget(t *testing.T) {
	tests := []struct {
		sql   string
		table string
		alias string
	}{
		{"UPDATE users SET name = (SELECT | FROM orders)", "users", ""},
		{"DELETE FROM users AS u WHERE id IN (SELECT user_id FROM orders WHERE |)", "users", "u"},
		{"INSERT INTO users SELECT | FROM orders", "", ""},
		{"SELECT (SELECT | FROM orders) FROM users", "", ""},
	}
	for _, tt := range tests {
		c := classifyAt(t, tt.sql)
		if c.Core == ast.NoCore {
			t.Errorf("%q: no core found", tt.sql)
		}
		if c.Outer.Name != tt.table || c.OuterAlias != tt.alias {
			t.Errorf("%q: outer = %q alias %q, want %q alias %q", tt.sql, c.Outer.Name, c.OuterAlias, tt.table, tt.alias)
		}
	}
}

func TestClassifyCreateTable(t *testing.T) {
	tests := []struct {
		sql     string
		pos     TablePos
		favored []string
		ref     string
	}{
		{sql: "CREATE TABLE t |", pos: TableHeader},
		{sql: "CREATE TABLE t (|", pos: TableDefStart},
		{sql: "CREATE TABLE t (a |", pos: TableColumnType},
		{sql: "CREATE TABLE t (a INT |", pos: TableColumnConstraint},
		{sql: "CREATE TABLE t (a INT, b INT, |", pos: TableDefStart},
		{sql: "CREATE TABLE t (a VARCHAR(|", pos: TableTypeArgs},
		{sql: "CREATE TABLE t (a INT, b INT, PRIMARY KEY (|", pos: TableConstraintColumns, favored: []string{"a", "b"}},
		{sql: "CREATE TABLE t (a INT, UNIQUE (a, |", pos: TableConstraintColumns, favored: []string{"a"}},
		{sql: "CREATE TABLE t (a INT, CHECK (|", pos: TableCheck, favored: []string{"a"}},
		{sql: "CREATE TABLE t (a INT, b INT DEFAULT (|", pos: TableCheck, favored: []string{"a"}},
		{sql: "CREATE TABLE t (a INT, CONSTRAINT |", pos: TableConstraint},
		{sql: "CREATE TABLE t (a INT REFERENCES |", pos: TableReferences},
		{sql: "CREATE TABLE t (a INT REFERENCES users(|", pos: TableReferencedColumns, ref: "users"},
		{sql: "CREATE TABLE t (a INT) |", pos: TableOptions},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			c := classifyAt(t, tt.sql)
			if c.Context != ContextCreateTable {
				t.Fatalf("Context = %v", c.Context)
			}
			if c.TablePos != tt.pos {
				t.Errorf("TablePos = %d, want %d", c.TablePos, tt.pos)
			}
			if diff := cmp.Diff(tt.favored, c.Favored); diff != "" {
				t.Errorf("Favored mismatch (-want +got):\n%s", diff)
			}
			if c.RefTable != tt.ref {
				t.Errorf("RefTable = %q, want %q", c.RefTable, tt.ref)
			}
			if c.Target.Name != "t" {
				t.Errorf("Target = %q", c.Target.Name)
			}
		})
	}
}

func TestClassifyTrigger(t *testing.T) {
	c := classifyAt(t, "CREATE TRIGGER tr AFTER UPDATE ON users BEGIN UPDATE orders SET total = NEW.|")
	if c.Trigger == nil {
		t.Fatal("Trigger not set")
	}
	if c.Trigger.Event != "UPDATE" || c.Trigger.Table.Name != "users" {
		t.Errorf("trigger = %s on %s", c.Trigger.Event, c.Trigger.Table.Name)
	}
	if c.Qualifier != (Qualifier{Name: "NEW"}) {
		t.Errorf("Qualifier = %+v", c.Qualifier)
	}
	if c.Target.Name != "orders" {
		t.Errorf("Target = %q, want the body statement's table", c.Target.Name)
	}

	body := classifyAt(t, "CREATE TRIGGER tr AFTER INSERT ON users BEGIN |")
	if !body.TriggerBody {
		t.Error("TriggerBody = false between body statements")
	}
	header := classifyAt(t, "CREATE TRIGGER tr AFTER INSERT ON users |")
	if header.TriggerBody {
		t.Error("TriggerBody = true in the header")
	}
}
