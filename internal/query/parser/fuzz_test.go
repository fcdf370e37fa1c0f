package parser

import (
	"testing"
)

// FuzzParse checks that parsing never panics and statement ranges stay ordered.
func FuzzParse(f *testing.F) {
	f.Add("SELECT * FROM users WHERE id = :id;")
	f.Add("SELECT (SELECT id FROM orders WHERE ) FROM users")
	f.Add("CREATE TRIGGER t AFTER INSERT ON a BEGIN SELECT 1; END")
	f.Add("WITH x AS (SELECT 1) SELECT * FROM x")

	f.Fuzz(func(t *testing.T, input string) {
		q, _ := ParseString(input)
		prev := 0
		for _, stmt := range q.Statements {
			if stmt.Start < prev || stmt.End < stmt.Start {
				t.Fatalf("statement range [%d,%d) out of order after %d", stmt.Start, stmt.End, prev)
			}
			prev = stmt.End
		}
	})
}
