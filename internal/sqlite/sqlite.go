// Package sqlite opens read-only SQLite connections for live schema
// introspection.
//
// The pure Go modernc.org/sqlite driver is always available. The CGO
// github.com/mattn/go-sqlite3 driver is compiled in with the cgo_sqlite build
// tag:
//
//	go build -tags cgo_sqlite ./cmd/sqlcomplete
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Driver names a SQLite driver implementation.
type Driver string

const (
	// ModernC is the pure Go modernc.org/sqlite driver.
	ModernC Driver = "modernc"
	// MattN is the CGO github.com/mattn/go-sqlite3 driver.
	MattN Driver = "mattn"
)

// ErrDriverUnavailable is returned when a driver was not compiled in.
var ErrDriverUnavailable = errors.New("sqlite driver not available in this build")

// registered maps compiled-in drivers to their database/sql driver names.
var registered = map[Driver]string{}

func register(d Driver, sqlName string) {
	registered[d] = sqlName
}

// Available returns the drivers compiled into this binary.
func Available() []Driver {
	out := make([]Driver, 0, len(registered))
	for d := range registered {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// DriverName returns the database/sql driver name for d. The empty driver
// selects ModernC.
func DriverName(d Driver) (string, error) {
	if d == "" {
		d = ModernC
	}
	name, ok := registered[d]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDriverUnavailable, d)
	}
	return name, nil
}

// Open opens a SQLite database with the given driver.
func Open(d Driver, dataSourceName string) (*sql.DB, error) {
	name, err := DriverName(d)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dataSourceName, err)
	}
	return db, nil
}

// OpenReadOnly opens the database file at path in read-only mode.
func OpenReadOnly(d Driver, path string) (*sql.DB, error) {
	return Open(d, ReadOnlyDSN(path))
}

// ReadOnlyDSN builds a URI data source name opening path read-only. Both
// drivers accept the SQLite URI form.
func ReadOnlyDSN(path string) string {
	path = strings.ReplaceAll(path, "?", "%3f")
	path = strings.ReplaceAll(path, "#", "%23")
	return "file:" + path + "?mode=ro"
}
