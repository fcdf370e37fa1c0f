package source

import (
	"context"

	"github.com/electwix/sqlcomplete/internal/dialect"
)

// disconnected fails every lookup with ErrNotConnected.
type disconnected struct{}

// Disconnected returns a source without a database. Completion against it
// only offers keywords and catalog functions.
func Disconnected() Source {
	return disconnected{}
}

func (disconnected) Connected() bool { return false }

func (disconnected) Tables(context.Context, string) ([]Table, error) {
	return nil, ErrNotConnected
}

func (disconnected) Columns(context.Context, string, string) ([]Column, error) {
	return nil, ErrNotConnected
}

func (disconnected) Indexes(context.Context, string) ([]string, error) {
	return nil, ErrNotConnected
}

func (disconnected) Triggers(context.Context, string) ([]string, error) {
	return nil, ErrNotConnected
}

func (disconnected) Views(context.Context, string) ([]string, error) {
	return nil, ErrNotConnected
}

func (disconnected) Databases(context.Context) ([]string, error) {
	return nil, ErrNotConnected
}

func (disconnected) Pragmas(context.Context, dialect.Dialect) ([]string, error) {
	return nil, ErrNotConnected
}

func (disconnected) Functions(context.Context, dialect.Dialect) ([]dialect.Function, error) {
	return nil, ErrNotConnected
}

func (disconnected) Collations(context.Context) ([]string, error) {
	return nil, ErrNotConnected
}
