package parser

import (
	"context"
	"testing"
)

// FuzzParse checks that loading arbitrary DDL never panics or fails.
func FuzzParse(f *testing.F) {
	f.Add("CREATE TABLE t (id INTEGER PRIMARY KEY) WITHOUT ROWID;")
	f.Add("CREATE TEMP TABLE IF NOT EXISTS s.t AS SELECT 1 AS a;")
	f.Add("CREATE VIEW v(a, b) AS SELECT * FROM users;")
	f.Add("CREATE TRIGGER tr AFTER INSERT ON t BEGIN UPDATE t SET a = NEW.a; END;")
	f.Add("ALTER TABLE users RENAME TO people; DROP INDEX idx;")

	f.Fuzz(func(t *testing.T, input string) {
		catalog, diags, err := Parser{}.Parse(context.Background(), "fuzz.sql", []byte(input))
		if err != nil {
			t.Fatalf("Parse failed on live context: %v", err)
		}
		if catalog == nil {
			t.Fatalf("nil catalog with %d diagnostics", len(diags))
		}
	})
}
