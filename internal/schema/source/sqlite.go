package source

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/electwix/sqlcomplete/internal/dialect"
)

// SQLite introspects a live database through database/sql. It only issues
// SELECT statements against sqlite_master and the pragma table-valued
// functions.
type SQLite struct {
	db     *sql.DB
	closed atomic.Bool
}

// NewSQLite wraps db. The caller keeps ownership of db unless Close is used.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Connected reports whether the source still has a database handle.
func (s *SQLite) Connected() bool {
	return s != nil && s.db != nil && !s.closed.Load()
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	if s.closed.Swap(true) || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Tables lists the ordinary tables of database, skipping internal sqlite_
// tables. An empty database lists main and temp.
func (s *SQLite) Tables(ctx context.Context, database string) ([]Table, error) {
	return s.tableList(ctx, database, "table")
}

// Views lists view names of database.
func (s *SQLite) Views(ctx context.Context, database string) ([]string, error) {
	views, err := s.tableList(ctx, database, "view")
	if err != nil {
		return nil, err
	}
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Name
	}
	return out, nil
}

func (s *SQLite) tableList(ctx context.Context, database, kind string) ([]Table, error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT schema, name, wr FROM pragma_table_list WHERE type = ? AND name NOT LIKE 'sqlite\_%' ESCAPE '\'`, kind)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", kind, err)
	}
	defer rows.Close()

	var out []Table
	for rows.Next() {
		var t Table
		var wr int
		if err := rows.Scan(&t.Database, &t.Name, &wr); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		if !inDatabase(database, t.Database) {
			continue
		}
		t.View = kind == "view"
		t.WithoutRowID = wr != 0
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %ss: %w", kind, err)
	}
	sortTables(out)
	return out, nil
}

// Columns lists the columns of a table or view. Tables with a rowid also get
// the ROWID pseudo column.
func (s *SQLite) Columns(ctx context.Context, database, table string) ([]Column, error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}
	query := `SELECT name, type, pk FROM pragma_table_info(?)`
	args := []any{table}
	if database != "" {
		query = `SELECT name, type, pk FROM pragma_table_info(?, ?)`
		args = append(args, database)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		col := Column{Database: database, Table: table}
		var pk int
		if err := rows.Scan(&col.Name, &col.Type, &pk); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		col.PrimaryKey = pk > 0
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, nil
	}

	rowid, err := s.hasRowID(ctx, database, table)
	if err != nil {
		return nil, err
	}
	if rowid {
		cols = withRowID(cols, database, table)
	}
	return cols, nil
}

func (s *SQLite) hasRowID(ctx context.Context, database, table string) (bool, error) {
	query := `SELECT type, wr FROM pragma_table_list WHERE name = ? COLLATE NOCASE`
	args := []any{table}
	if database != "" {
		query += ` AND schema = ? COLLATE NOCASE`
		args = append(args, database)
	}
	var kind string
	var wr int
	err := s.db.QueryRowContext(ctx, query+` LIMIT 1`, args...).Scan(&kind, &wr)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect table %s: %w", table, err)
	}
	return kind == "table" && wr == 0, nil
}

// Indexes lists user-created index names of database.
func (s *SQLite) Indexes(ctx context.Context, database string) ([]string, error) {
	return s.masterNames(ctx, database, "index")
}

// Triggers lists trigger names of database.
func (s *SQLite) Triggers(ctx context.Context, database string) ([]string, error) {
	return s.masterNames(ctx, database, "trigger")
}

func (s *SQLite) masterNames(ctx context.Context, database, kind string) ([]string, error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}
	databases := []string{database}
	if database == "" {
		databases = []string{"main", "temp"}
	}
	var out []string
	for _, db := range databases {
		query := fmt.Sprintf(`SELECT name FROM %s.sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite\_%%' ESCAPE '\'`, quoteIdent(db))
		names, err := s.strings(ctx, query, kind)
		if err != nil {
			return nil, fmt.Errorf("list %ss of %s: %w", kind, db, err)
		}
		out = append(out, names...)
	}
	slices.SortFunc(out, compareFold)
	return slices.Compact(out), nil
}

// Databases lists the attached database names in attachment order.
func (s *SQLite) Databases(ctx context.Context) ([]string, error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}
	names, err := s.strings(ctx, `SELECT name FROM pragma_database_list ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	if !slices.Contains(names, "temp") {
		names = append(names, "temp")
	}
	return names, nil
}

// Pragmas returns the dialect's pragma catalog, merged with the pragmas the
// connected library reports for SQLite3.
func (s *SQLite) Pragmas(ctx context.Context, d dialect.Dialect) ([]string, error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}
	out, err := catalogPragmas(d)
	if err != nil {
		return nil, err
	}
	if d == dialect.SQLite3 {
		// pragma_pragma_list is missing when SQLite is built without
		// introspection pragmas.
		if live, err := s.strings(ctx, `SELECT name FROM pragma_pragma_list`); err == nil {
			out = append(out, live...)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// Functions returns the dialect's function catalog, completed with the
// functions registered on the connection for SQLite3.
func (s *SQLite) Functions(ctx context.Context, d dialect.Dialect) ([]dialect.Function, error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}
	out, err := catalogFunctions(d)
	if err != nil {
		return nil, err
	}
	if d != dialect.SQLite3 {
		return out, nil
	}
	known := make(map[string]struct{}, len(out))
	for _, fn := range out {
		known[fn.Name] = struct{}{}
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name, narg FROM pragma_function_list WHERE builtin = 0 ORDER BY name, narg`)
	if err != nil {
		return out, nil
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var narg int
		if err := rows.Scan(&name, &narg); err != nil {
			return nil, fmt.Errorf("scan function: %w", err)
		}
		name = strings.ToLower(name)
		if _, ok := known[name]; ok {
			continue
		}
		out = append(out, functionFromArity(name, narg))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list functions: %w", err)
	}
	slices.SortStableFunc(out, func(a, b dialect.Function) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// Collations lists the collations registered on the connection.
func (s *SQLite) Collations(ctx context.Context) ([]string, error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}
	names, err := s.strings(ctx, `SELECT name FROM pragma_collation_list`)
	if err != nil {
		return nil, fmt.Errorf("list collations: %w", err)
	}
	slices.SortFunc(names, compareFold)
	return names, nil
}

func (s *SQLite) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// functionFromArity describes a function known only by name and argument
// count; narg -1 means any number of arguments.
func functionFromArity(name string, narg int) dialect.Function {
	fn := dialect.Function{Name: name}
	if narg < 0 {
		fn.Variadic = true
	}
	for i := range max(narg, 0) {
		fn.Args = append(fn.Args, fmt.Sprintf("X%d", i+1))
	}
	fn.Signature = fn.Format()
	return fn
}

// inDatabase reports whether an object of db is visible under the requested
// database name.
func inDatabase(requested, db string) bool {
	if requested == "" {
		return strings.EqualFold(db, "main") || strings.EqualFold(db, "temp")
	}
	return strings.EqualFold(requested, db)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func compareFold(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func sortTables(tables []Table) {
	slices.SortFunc(tables, func(a, b Table) int {
		if c := compareFold(a.Database, b.Database); c != 0 {
			return c
		}
		return compareFold(a.Name, b.Name)
	})
}

var _ Source = (*SQLite)(nil)
