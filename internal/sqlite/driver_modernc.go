package sqlite

import (
	_ "modernc.org/sqlite" // registers "sqlite"
)

func init() {
	register(ModernC, "sqlite")
}
