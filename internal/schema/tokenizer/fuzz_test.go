package tokenizer

import (
	"testing"
)

// FuzzScan checks that scanning never panics and always partitions the input.
func FuzzScan(f *testing.F) {
	f.Add("CREATE TABLE users (id INTEGER);")
	f.Add("SELECT * FROM users WHERE id = ?;")
	f.Add("INSERT INTO users (name) VALUES ('test');")
	f.Add("-- comment\nSELECT 1;")
	f.Add("/* block */ SELECT 2;")
	f.Add("SELECT \"unterminated")

	f.Fuzz(func(t *testing.T, input string) {
		pos := 0
		for _, tok := range Scan(input) {
			if tok.Start != pos || tok.End < tok.Start {
				t.Fatalf("token %+v breaks partition at %d", tok, pos)
			}
			pos = tok.End
		}
		if pos != len(input) {
			t.Fatalf("tokens cover %d bytes, want %d", pos, len(input))
		}
	})
}
