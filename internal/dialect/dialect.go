// Package dialect provides the static keyword, function, pragma and collation
// catalogs of the supported SQLite dialects.
//
// Catalogs are embedded YAML documents decoded once per process and shared
// read-only afterwards.
package dialect

import (
	"errors"
	"fmt"
	"strings"
)

// Dialect names a SQLite syntax variant.
type Dialect string

const (
	// SQLite3 is the current SQLite grammar.
	SQLite3 Dialect = "sqlite3"
	// SQLite2 is the legacy SQLite 2 grammar.
	SQLite2 Dialect = "sqlite2"
)

// ErrUnknown is returned for dialect names that are not supported.
var ErrUnknown = errors.New("unknown dialect")

// Parse maps a user supplied name to a Dialect. The empty string selects
// SQLite3.
func Parse(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sqlite", "sqlite3":
		return SQLite3, nil
	case "sqlite2":
		return SQLite2, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknown, name)
}

// All returns the supported dialects.
func All() []Dialect {
	return []Dialect{SQLite3, SQLite2}
}

func (d Dialect) String() string {
	return string(d)
}

// Valid reports whether d is a supported dialect.
func (d Dialect) Valid() bool {
	return d == SQLite3 || d == SQLite2
}
