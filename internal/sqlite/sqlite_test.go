package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
)

func TestDriverName(t *testing.T) {
	name, err := DriverName("")
	if err != nil {
		t.Fatalf("DriverName(\"\"): %v", err)
	}
	if name != "sqlite" {
		t.Errorf("DriverName(\"\") = %q, want sqlite", name)
	}
	if _, err := DriverName("oracle"); !errors.Is(err, ErrDriverUnavailable) {
		t.Errorf("DriverName(oracle) error = %v, want ErrDriverUnavailable", err)
	}
	if !slices.Contains(Available(), ModernC) {
		t.Errorf("Available() = %v, want it to contain %s", Available(), ModernC)
	}
}

func TestReadOnlyDSN(t *testing.T) {
	tests := map[string]string{
		"app.db":      "file:app.db?mode=ro",
		"/tmp/a?b.db": "file:/tmp/a%3fb.db?mode=ro",
		"dir/#1/x.db": "file:dir/%231/x.db?mode=ro",
	}
	for in, want := range tests {
		if got := ReadOnlyDSN(in); got != want {
			t.Errorf("ReadOnlyDSN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenReadOnly(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ro.db")

	rw, err := Open(ModernC, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := rw.ExecContext(ctx, "CREATE TABLE t (a)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	ro, err := OpenReadOnly(ModernC, path)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer ro.Close()

	var n int
	if err := ro.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 1 {
		t.Errorf("sqlite_master rows = %d, want 1", n)
	}
	if _, err := ro.ExecContext(ctx, "CREATE TABLE u (b)"); err == nil {
		t.Errorf("write on read-only connection succeeded")
	}
}
