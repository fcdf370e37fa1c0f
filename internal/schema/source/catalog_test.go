package source

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/electwix/sqlcomplete/internal/dialect"
	schemaparser "github.com/electwix/sqlcomplete/internal/schema/parser"
)

func loadCatalog(t *testing.T, ddl string) *Catalog {
	t.Helper()
	c, diags, err := schemaparser.Parser{}.Parse(context.Background(), "schema.sql", []byte(ddl))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	if len(diags) > 0 {
		t.Fatalf("schema diagnostics: %v", diags)
	}
	return NewCatalog(c, dialect.SQLite3)
}

func TestCatalogSource(t *testing.T) {
	ctx := context.Background()
	src := loadCatalog(t, testSchema)

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

	temp, err := src.Tables(ctx, "temp")
	if err != nil || len(temp) != 1 || temp[0].Name != "scratch" {
		t.Errorf("Tables(temp) = %v, %v", temp, err)
	}

	cols, err := src.Columns(ctx, "", "Users")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	wantCols := []Column{
		{Table: "users", Name: "id", Type: "INTEGER", PrimaryKey: true},
		{Table: "users", Name: "name", Type: "TEXT"},
		{Table: "users", Name: "age", Type: "INT"},
		{Table: "users", Name: RowID, Type: "INTEGER", RowID: true},
	}
	if diff := cmp.Diff(wantCols, cols); diff != "" {
		t.Errorf("Columns mismatch (-want +got):\n%s", diff)
	}

	viewCols, err := src.Columns(ctx, "", "adults")
	if err != nil {
		t.Fatalf("Columns(adults): %v", err)
	}
	if len(viewCols) != 2 || viewCols[1].Name != "name" {
		t.Errorf("Columns(adults) = %+v", viewCols)
	}

	if cols, _ := src.Columns(ctx, "temp", "users"); cols != nil {
		t.Errorf("Columns(temp, users) = %+v, want none", cols)
	}

	indexes, _ := src.Indexes(ctx, "")
	triggers, _ := src.Triggers(ctx, "main")
	views, _ := src.Views(ctx, "")
	colls, _ := src.Collations(ctx)
	got := [][]string{indexes, triggers, views, colls}
	wantNames := [][]string{{"orders_user"}, {"users_cleanup"}, {"adults"}, {"BINARY", "NOCASE", "RTRIM"}}
	if diff := cmp.Diff(wantNames, got); diff != "" {
		t.Errorf("object names mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogSourceNil(t *testing.T) {
	src := NewCatalog(nil, "")
	if src.Connected() {
		t.Fatal("nil catalog should not be connected")
	}
	if _, err := src.Columns(context.Background(), "", "users"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Columns error = %v, want ErrNotConnected", err)
	}
}

func TestDisconnected(t *testing.T) {
	ctx := context.Background()
	src := Disconnected()
	if src.Connected() {
		t.Fatal("Disconnected().Connected() = true")
	}
	if _, err := src.Tables(ctx, ""); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Tables error = %v", err)
	}
	if _, err := src.Functions(ctx, dialect.SQLite3); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Functions error = %v", err)
	}
}
