//go:build cgo_sqlite

// CGO SQLite driver. Requires CGO_ENABLED=1.

package sqlite

import (
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
)

func init() {
	register(MattN, "sqlite3")
}
