package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/electwix/sqlcomplete/internal/completion"
	"github.com/electwix/sqlcomplete/internal/sqlite"
)

const testSchema = `
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INT);
CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER, total REAL);
CREATE INDEX orders_user ON orders (user_id);
`

func writeSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.sql")
	if err := os.WriteFile(path, []byte(testSchema), 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	return path
}

func runCmd(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := run(context.Background(), args, strings.NewReader(stdin), stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func decode(t *testing.T, out string) completion.Results {
	t.Helper()
	var res struct {
		ExpectedTokens []struct {
			Type        string `json:"type"`
			Value       string `json:"value"`
			ContextInfo string `json:"context_info"`
		} `json:"expected_tokens"`
		PartialToken string `json:"partial_token"`
		Context      string `json:"context"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	var tokens []completion.ExpectedToken
	for _, e := range res.ExpectedTokens {
		tokens = append(tokens, completion.ExpectedToken{Value: e.Type + ":" + e.Value, ContextInfo: e.ContextInfo})
	}
	return completion.Results{ExpectedTokens: tokens, PartialToken: res.PartialToken}
}

func hasValue(res completion.Results, value, contextInfo string) bool {
	for _, e := range res.ExpectedTokens {
		if e.Value == value && e.ContextInfo == contextInfo {
			return true
		}
	}
	return false
}

func TestRunSchemaFileJSON(t *testing.T) {
	schema := writeSchema(t)

	code, stdout, stderr := runCmd(t, "SELECT na| FROM users", "-schema", schema, "-marker", "|", "-format", "json")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr)
	}
	res := decode(t, stdout)
	if res.PartialToken != "na" {
		t.Errorf("partial = %q", res.PartialToken)
	}
	if !hasValue(res, "column:name", "users") {
		t.Errorf("column name missing from %s", stdout)
	}
}

func TestRunTextOutput(t *testing.T) {
	schema := writeSchema(t)

	code, stdout, stderr := runCmd(t, "DROP INDEX ", "-schema", schema)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr)
	}
	if !strings.Contains(stdout, "index") || !strings.Contains(stdout, "orders_user") {
		t.Errorf("stdout %q lacks the index", stdout)
	}
}

func TestRunDatabaseSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := sqlite.Open(sqlite.ModernC, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	code, stdout, stderr := runCmd(t, "SELECT * FROM orders WHERE ", "-db", path, "-format", "json")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr)
	}
	res := decode(t, stdout)
	if !hasValue(res, "column:total", "orders") {
		t.Errorf("column total missing from %s", stdout)
	}
}

func TestRunInputFileAndLimit(t *testing.T) {
	schema := writeSchema(t)
	input := filepath.Join(t.TempDir(), "query.sql")
	if err := os.WriteFile(input, []byte("SELECT * FROM "), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	code, stdout, stderr := runCmd(t, "", "-schema", schema, "-limit", "1", "-format", "json", input)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr)
	}
	if res := decode(t, stdout); len(res.ExpectedTokens) != 1 {
		t.Errorf("got %d candidates, want 1", len(res.ExpectedTokens))
	}
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ddl.sql"), []byte(testSchema), 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	configPath := filepath.Join(dir, "sqlcomplete.toml")
	config := "schemas = [\"*.sql\"]\n\n[cache]\nenabled = false\n"
	if err := os.WriteFile(configPath, []byte(config), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	code, stdout, stderr := runCmd(t, "UPDATE users SET ", "-config", configPath, "-format", "json")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr)
	}
	if !hasValue(decode(t, stdout), "column:age", "users") {
		t.Errorf("column age missing from %s", stdout)
	}
}

func TestRunHighlight(t *testing.T) {
	code, _, stderr := runCmd(t, "SELECT 1", "-highlight", "-cursor", "6")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr)
	}
	if !strings.Contains(stderr, ansiCursor+cursorGlyph+ansiReset) {
		t.Errorf("stderr %q lacks the cursor mark", stderr)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		code  int
	}{
		{"unknown flag", "", []string{"--nope"}, exitUsage},
		{"bad dialect", "", []string{"-dialect", "oracle"}, exitUsage},
		{"bad driver", "", []string{"-driver", "odbc"}, exitUsage},
		{"missing marker", "SELECT", []string{"-marker", "@"}, exitUsage},
		{"missing input", "", []string{filepath.Join(t.TempDir(), "absent.sql")}, exitRuntime},
		{"missing config", "", []string{"-config", filepath.Join(t.TempDir(), "absent.toml")}, exitRuntime},
		{"missing database", "", []string{"-db", filepath.Join(t.TempDir(), "absent.db")}, exitRuntime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCmd(t, tt.stdin, tt.args...)
			if code != tt.code {
				t.Fatalf("exit code = %d, want %d; stderr=%q", code, tt.code, stderr)
			}
			if stderr == "" {
				t.Error("expected an error message on stderr")
			}
		})
	}
}

func TestRunHelp(t *testing.T) {
	code, stdout, _ := runCmd(t, "", "-h")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout, "-marker") {
		t.Errorf("help output %q lacks flags", stdout)
	}
}

func TestRunVerboseLogsCacheStats(t *testing.T) {
	schema := writeSchema(t)

	code, _, stderr := runCmd(t, "SELECT u.| FROM users u", "-schema", schema, "-marker", "|", "-v")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr=%q", code, stderr)
	}
	for _, want := range []string{"request_id=", "msg=\"schema cache\"", "misses=", "expired=0"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr = %q, want to contain %q", stderr, want)
		}
	}
}
