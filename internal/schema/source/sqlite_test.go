package source

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/electwix/sqlcomplete/internal/dialect"
	"github.com/electwix/sqlcomplete/internal/sqlite"
)

const testSchema = `
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INT);
CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER REFERENCES users(id), total REAL);
CREATE TABLE settings (key TEXT PRIMARY KEY, value TEXT) WITHOUT ROWID;
CREATE INDEX orders_user ON orders (user_id);
CREATE VIEW adults AS SELECT id, name FROM users WHERE age >= 18;
CREATE TRIGGER users_cleanup AFTER DELETE ON users BEGIN DELETE FROM orders WHERE user_id = OLD.id; END;
CREATE TEMP TABLE scratch (x);
`

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(sqlite.ModernC, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// Every pooled connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.ExecContext(context.Background(), testSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func TestSQLiteTables(t *testing.T) {
	ctx := context.Background()
	src := NewSQLite(openTestDB(t))

	tables, err := src.Tables(ctx, "")
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	want := []Table{
		{Database: "main", Name: "orders"},
		{Database: "main", Name: "settings", WithoutRowID: true},
		{Database: "main", Name: "users"},
		{Database: "temp", Name: "scratch"},
	}
	if diff := cmp.Diff(want, tables); diff != "" {
		t.Errorf("Tables mismatch (-want +got):\n%s", diff)
	}

	mainOnly, err := src.Tables(ctx, "MAIN")
	if err != nil {
		t.Fatalf("Tables(MAIN): %v", err)
	}
	if len(mainOnly) != 3 {
		t.Errorf("Tables(MAIN) = %d tables, want 3", len(mainOnly))
	}
}

func TestSQLiteColumns(t *testing.T) {
	ctx := context.Background()
	src := NewSQLite(openTestDB(t))

	tests := []struct {
		table string
		want  []string
		rowid bool
	}{
		{table: "users", want: []string{"id", "name", "age", RowID}, rowid: true},
		{table: "USERS", want: []string{"id", "name", "age", RowID}, rowid: true},
		{table: "settings", want: []string{"key", "value"}},
		{table: "adults", want: []string{"id", "name"}},
		{table: "missing"},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			cols, err := src.Columns(ctx, "", tt.table)
			if err != nil {
				t.Fatalf("Columns(%s): %v", tt.table, err)
			}
			var names []string
			for _, c := range cols {
				names = append(names, c.Name)
			}
			if diff := cmp.Diff(tt.want, names); diff != "" {
				t.Errorf("Columns(%s) mismatch (-want +got):\n%s", tt.table, diff)
			}
			if tt.rowid && !cols[len(cols)-1].RowID {
				t.Errorf("last column of %s should be the rowid pseudo column", tt.table)
			}
		})
	}

	cols, err := src.Columns(ctx, "main", "users")
	if err != nil {
		t.Fatalf("Columns(main, users): %v", err)
	}
	if !cols[0].PrimaryKey || cols[0].Database != "main" {
		t.Errorf("users.id = %+v", cols[0])
	}
}

func TestSQLiteObjects(t *testing.T) {
	ctx := context.Background()
	src := NewSQLite(openTestDB(t))

	check := func(name string, got []string, err error, want []string) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", name, diff)
		}
	}

	indexes, err := src.Indexes(ctx, "")
	check("Indexes", indexes, err, []string{"orders_user"})
	triggers, err := src.Triggers(ctx, "")
	check("Triggers", triggers, err, []string{"users_cleanup"})
	views, err := src.Views(ctx, "")
	check("Views", views, err, []string{"adults"})

	dbs, err := src.Databases(ctx)
	if err != nil {
		t.Fatalf("Databases: %v", err)
	}
	if !slices.Contains(dbs, "main") || !slices.Contains(dbs, "temp") {
		t.Errorf("Databases = %v, want main and temp", dbs)
	}

	colls, err := src.Collations(ctx)
	if err != nil {
		t.Fatalf("Collations: %v", err)
	}
	for _, want := range []string{"BINARY", "NOCASE", "RTRIM"} {
		if !slices.Contains(colls, want) {
			t.Errorf("Collations = %v, missing %s", colls, want)
		}
	}

	pragmas, err := src.Pragmas(ctx, dialect.SQLite3)
	if err != nil {
		t.Fatalf("Pragmas: %v", err)
	}
	if !slices.Contains(pragmas, "table_info") || !slices.IsSorted(pragmas) {
		t.Errorf("Pragmas should be sorted and contain table_info")
	}

	fns, err := src.Functions(ctx, dialect.SQLite3)
	if err != nil {
		t.Fatalf("Functions: %v", err)
	}
	if !slices.ContainsFunc(fns, func(f dialect.Function) bool { return f.Name == "abs" }) {
		t.Errorf("Functions missing abs")
	}
}

func TestSQLiteClosed(t *testing.T) {
	ctx := context.Background()
	src := NewSQLite(openTestDB(t))
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if src.Connected() {
		t.Fatal("Connected() after Close")
	}
	if _, err := src.Tables(ctx, ""); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Tables after Close error = %v, want ErrNotConnected", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestFunctionFromArity(t *testing.T) {
	tests := []struct {
		narg int
		want dialect.Function
	}{
		{narg: 0, want: dialect.Function{Name: "f", Signature: "f()"}},
		{narg: 2, want: dialect.Function{Name: "f", Args: []string{"X1", "X2"}, Signature: "f(X1, X2)"}},
		{narg: -1, want: dialect.Function{Name: "f", Variadic: true, Signature: "f(...)"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, functionFromArity("f", tt.narg)); diff != "" {
			t.Errorf("functionFromArity(%d) mismatch (-want +got):\n%s", tt.narg, diff)
		}
	}
}
