package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/electwix/sqlcomplete/internal/schema/diagnostic"
	"github.com/electwix/sqlcomplete/internal/schema/model"
)

func TestParseFixture(t *testing.T) {
	catalog, diags := parseFixture(t, "schema.sql")
	if hasErrors(diags) {
		t.Fatalf("unexpected diagnostics: %s", formatDiagnostics(diags))
	}

	users := lookupTable(t, catalog, "users")
	if diff := cmp.Diff([]string{"id", "name", "age", "email"}, users.ColumnNames()); diff != "" {
		t.Errorf("users columns mismatch (-want +got):\n%s", diff)
	}
	if alias := users.RowIDAlias(); alias == nil || alias.Name != "id" {
		t.Errorf("users rowid alias = %+v, want id", alias)
	}
	if !users.Column("name").NotNull {
		t.Errorf("users.name should be NOT NULL")
	}
	if got := users.Column("email").Type; got != "VARCHAR(255)" {
		t.Errorf("users.email type = %q, want VARCHAR(255)", got)
	}

	orders := lookupTable(t, catalog, "orders")
	if diff := cmp.Diff([]string{"id"}, orders.PrimaryKey); diff != "" {
		t.Errorf("orders primary key mismatch (-want +got):\n%s", diff)
	}

	settings := lookupTable(t, catalog, "settings")
	if !settings.WithoutRowID {
		t.Errorf("settings should be WITHOUT ROWID")
	}
	if diff := cmp.Diff([]string{"key", "value"}, settings.ColumnNames()); diff != "" {
		t.Errorf("settings columns mismatch (-want +got):\n%s", diff)
	}

	view := catalog.View("big_orders")
	if view == nil {
		t.Fatal("view big_orders missing")
	}
	if diff := cmp.Diff([]string{"id", "customer", "o.total * 2"}, view.Columns); diff != "" {
		t.Errorf("view columns mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(view.SQL, "CREATE VIEW big_orders AS") {
		t.Errorf("view SQL = %q", view.SQL)
	}

	idx := catalog.Indexes["users_name"]
	if idx == nil || !idx.Unique || idx.Table != "users" {
		t.Errorf("index users_name = %+v", idx)
	}
	trg := catalog.Triggers["orders_audit"]
	if trg == nil || trg.Table != "orders" || trg.Event != "INSERT" || trg.Timing != "AFTER" {
		t.Errorf("trigger orders_audit = %+v", trg)
	}
	if users.Pos.Line != 2 || users.Pos.Path == "" {
		t.Errorf("users position = %+v", users.Pos)
	}
}

func TestApplyAcrossFiles(t *testing.T) {
	ctx := context.Background()
	catalog := model.NewCatalog()
	if _, err := Apply(ctx, catalog, "a.sql", []byte("CREATE TABLE a (x INT, y INT);")); err != nil {
		t.Fatalf("apply a.sql: %v", err)
	}
	diags, err := Apply(ctx, catalog, "b.sql", []byte("CREATE VIEW v AS SELECT * FROM a;"))
	if err != nil {
		t.Fatalf("apply b.sql: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %s", formatDiagnostics(diags))
	}
	if diff := cmp.Diff([]string{"x", "y"}, catalog.View("v").Columns); diff != "" {
		t.Errorf("view columns mismatch (-want +got):\n%s", diff)
	}
}

func TestDiagnostics(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		wantMsg  string
		severity diagnostic.Severity
	}{
		{
			name:     "syntax error",
			sql:      "CREATE TABLE t (a INT,, b INT);",
			wantMsg:  "expected column name",
			severity: diagnostic.SeverityError,
		},
		{
			name:     "duplicate table",
			sql:      "CREATE TABLE t (a); CREATE TABLE t (b);",
			wantMsg:  `object "t" already exists`,
			severity: diagnostic.SeverityError,
		},
		{
			name:     "unknown primary key column",
			sql:      "CREATE TABLE t (a INT, PRIMARY KEY (b));",
			wantMsg:  `primary key references unknown column "b"`,
			severity: diagnostic.SeverityError,
		},
		{
			name:     "index on unknown table",
			sql:      "CREATE INDEX i ON missing (a);",
			wantMsg:  `references unknown table "missing"`,
			severity: diagnostic.SeverityWarning,
		},
		{
			name:     "drop missing",
			sql:      "DROP TABLE nothing;",
			wantMsg:  "no such table: nothing",
			severity: diagnostic.SeverityError,
		},
		{
			name:     "ignored statement",
			sql:      "VACUUM;",
			wantMsg:  "VACUUM statement ignored",
			severity: diagnostic.SeverityWarning,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags, err := Parser{}.Parse(context.Background(), "test.sql", []byte(tt.sql))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(diags) == 0 {
				t.Fatalf("expected a diagnostic containing %q", tt.wantMsg)
			}
			d := diags[0]
			if !strings.Contains(d.Message, tt.wantMsg) {
				t.Errorf("message = %q, want substring %q", d.Message, tt.wantMsg)
			}
			if d.Severity != tt.severity {
				t.Errorf("severity = %v, want %v", d.Severity, tt.severity)
			}
			if d.Path != "test.sql" || d.Line < 1 || d.Column < 1 {
				t.Errorf("diagnostic position = %s", d)
			}
		})
	}
}

func TestAlterAndDrop(t *testing.T) {
	sql := `
CREATE TABLE t (a INT, b INT);
CREATE INDEX t_a ON t (a);
ALTER TABLE t RENAME COLUMN b TO c;
ALTER TABLE t DROP COLUMN a;
ALTER TABLE t RENAME TO u;
CREATE TABLE gone (x);
DROP TABLE IF EXISTS gone;
DROP VIEW IF EXISTS never;
`
	catalog, diags, err := Parser{}.Parse(context.Background(), "alter.sql", []byte(sql))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %s", formatDiagnostics(diags))
	}
	if catalog.Table("t") != nil {
		t.Errorf("table t should have been renamed")
	}
	u := lookupTable(t, catalog, "u")
	if diff := cmp.Diff([]string{"c"}, u.ColumnNames()); diff != "" {
		t.Errorf("u columns mismatch (-want +got):\n%s", diff)
	}
	if got := catalog.Indexes["t_a"].Table; got != "u" {
		t.Errorf("index table = %q, want u", got)
	}
	if catalog.Table("gone") != nil {
		t.Errorf("table gone should have been dropped")
	}
}

func TestParseHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Parser{}.Parse(ctx, "x.sql", []byte("CREATE TABLE t (a);"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Parse error = %v, want context.Canceled", err)
	}
}

func parseFixture(t *testing.T, filename string) (*model.Catalog, []diagnostic.Diagnostic) {
	t.Helper()
	path := filepath.Join("testdata", filename)
	src, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	catalog, diags, err := Parser{}.Parse(context.Background(), path, src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return catalog, diags
}

func lookupTable(t *testing.T, catalog *model.Catalog, name string) *model.Table {
	t.Helper()
	table := catalog.Table(name)
	if table == nil {
		t.Fatalf("table %q not found", name)
	}
	return table
}

func hasErrors(diags []diagnostic.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == diagnostic.SeverityError {
			return true
		}
	}
	return false
}

func formatDiagnostics(diags []diagnostic.Diagnostic) string {
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n")
}
