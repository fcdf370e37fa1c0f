package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNew_DefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf})

	logger.Debug("debug suppressed")
	if got := buf.Len(); got != 0 {
		t.Fatalf("expected debug output to be suppressed, got %d bytes", got)
	}

	logger.Info("visible message")
	if out := buf.String(); !strings.Contains(out, "visible message") {
		t.Fatalf("expected info log to contain message, got %q", out)
	}
}

func TestNew_VerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Verbose: true, Writer: &buf})

	logger.Debug("debug visible")
	if out := buf.String(); !strings.Contains(out, "debug visible") {
		t.Fatalf("expected debug output when verbose, got %q", out)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Format: FormatJSON, Writer: &buf})

	logger.Info("completion finished", "candidates", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record["msg"] != "completion finished" || record["candidates"] != float64(3) {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestSlogAdapterLevels(t *testing.T) {
	tests := []struct {
		name string
		log  func(Logger)
		want []string
	}{
		{"debug", func(l Logger) { l.Debug("scope resolved", "tables", 2) }, []string{"level=DEBUG", "scope resolved", "tables=2"}},
		{"info", func(l Logger) { l.Info("source opened") }, []string{"level=INFO", "source opened"}},
		{"warn", func(l Logger) { l.Warn("columns unavailable", "table", "users") }, []string{"level=WARN", "table=users"}},
		{"error", func(l Logger) { l.Error("completion aborted") }, []string{"level=ERROR", "completion aborted"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewSlogAdapter(New(Options{Verbose: true, Writer: &buf})))
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output = %q, want to contain %q", out, w)
				}
			}
		})
	}
}

func TestSlogAdapterNil(t *testing.T) {
	NewSlogAdapter(nil).Info("dropped")
}

func TestForRequest(t *testing.T) {
	var buf bytes.Buffer
	log := ForRequest(New(Options{Writer: &buf}), "r1")
	log.With("cursor", 7).Info("completion finished")

	out := buf.String()
	for _, w := range []string{"request_id=r1", "cursor=7"} {
		if !strings.Contains(out, w) {
			t.Errorf("output = %q, want to contain %q", out, w)
		}
	}
}

func TestElapsed(t *testing.T) {
	attr := Elapsed(time.Now().Add(-time.Second))
	if attr.Key != ElapsedKey {
		t.Errorf("Key = %q", attr.Key)
	}
	if attr.Value.Kind() != slog.KindDuration || attr.Value.Duration() < time.Second {
		t.Errorf("Value = %v, want at least 1s", attr.Value)
	}
}

func TestNopLogger(t *testing.T) {
	var logger Logger = NewNopLogger()
	logger.Debug("debug")
	logger.Warn("warn")
	if child := logger.With("key", "value"); child != logger {
		t.Error("With should return the same NopLogger")
	}
}
