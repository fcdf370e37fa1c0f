// Package main implements the sqlcomplete CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/electwix/sqlcomplete/internal/cache"
	"github.com/electwix/sqlcomplete/internal/cli"
	"github.com/electwix/sqlcomplete/internal/completion"
	"github.com/electwix/sqlcomplete/internal/config"
	"github.com/electwix/sqlcomplete/internal/dialect"
	"github.com/electwix/sqlcomplete/internal/fileset"
	"github.com/electwix/sqlcomplete/internal/logging"
	"github.com/electwix/sqlcomplete/internal/schema/model"
	schemaparser "github.com/electwix/sqlcomplete/internal/schema/parser"
	"github.com/electwix/sqlcomplete/internal/schema/source"
	"github.com/electwix/sqlcomplete/internal/sqlite"
)

// Exit codes.
const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
)

func main() {
	code := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := cli.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(stdout, err.Error())
			return exitOK
		}
		_, _ = fmt.Fprintln(stderr, err.Error())
		return exitUsage
	}

	plan, warnings, err := loadPlan(opts)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		if errors.Is(err, cli.ErrUsage) {
			return exitUsage
		}
		return exitRuntime
	}

	logger := logging.New(logging.Options{
		Verbose: plan.Log.Verbose,
		Format:  logging.Format(plan.Log.Format),
		Writer:  stderr,
	})
	for _, w := range warnings {
		logger.Warn(w)
	}

	sql, err := readInput(opts.Args, stdin)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return exitRuntime
	}
	sql, cursor, err := placeCursor(sql, opts)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return exitUsage
	}

	src, closeSource, err := openSource(ctx, plan, logger)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return exitRuntime
	}
	defer closeSource()

	if opts.Highlight {
		if err := highlight(stderr, sql, cursor); err != nil {
			logger.Debug("highlight failed", "error", err)
		}
	}

	res := completion.NewEngine(logger).Complete(ctx, completion.Request{
		SQL:     sql,
		Cursor:  cursor,
		Source:  src,
		Dialect: plan.Dialect,
	})
	if opts.Limit > 0 && len(res.ExpectedTokens) > opts.Limit {
		res.ExpectedTokens = res.ExpectedTokens[:opts.Limit]
	}

	if err := printResults(stdout, opts.Format, res); err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return exitRuntime
	}
	return exitOK
}

// loadPlan reads the configuration file and applies command line overrides.
// A missing default configuration file is not an error.
func loadPlan(opts cli.Options) (config.Plan, []string, error) {
	plan := config.Default()
	var warnings []string

	_, statErr := os.Stat(opts.ConfigPath)
	if opts.ConfigSet || statErr == nil {
		res, err := config.Load(opts.ConfigPath, config.LoadOptions{Strict: opts.StrictConfig})
		if err != nil {
			return plan, nil, err
		}
		plan, warnings = res.Plan, res.Warnings
	}

	if opts.Dialect != "" {
		d, err := dialect.Parse(opts.Dialect)
		if err != nil {
			return plan, nil, fmt.Errorf("%w: -dialect: %w", cli.ErrUsage, err)
		}
		plan.Dialect = d
	}
	switch sqlite.Driver(opts.Driver) {
	case "":
	case sqlite.ModernC, sqlite.MattN:
		plan.Driver = sqlite.Driver(opts.Driver)
	default:
		return plan, nil, fmt.Errorf("%w: unsupported -driver %q", cli.ErrUsage, opts.Driver)
	}
	if opts.Database != "" {
		plan.Database = opts.Database
		plan.Schemas = nil
	}
	if len(opts.Schemas) > 0 {
		paths, err := resolveSchemaFlags(opts.Schemas)
		if err != nil {
			return plan, nil, fmt.Errorf("-schema: %w", err)
		}
		plan.Schemas = paths
	}
	if opts.Verbose {
		plan.Log.Verbose = true
	}
	return plan, warnings, nil
}

// resolveSchemaFlags expands -schema globs. Relative patterns resolve against
// the working directory, absolute ones against their parent directory.
func resolveSchemaFlags(patterns []string) ([]string, error) {
	var out []string
	for _, pattern := range patterns {
		base, glob := ".", pattern
		if filepath.IsAbs(pattern) {
			base, glob = filepath.Split(pattern)
		}
		resolver, err := fileset.NewOSResolver(base)
		if err != nil {
			return nil, err
		}
		paths, err := resolver.Resolve([]string{glob})
		if err != nil {
			return nil, err
		}
		out = append(out, paths...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}

// placeCursor resolves the cursor offset and strips the marker from sql.
func placeCursor(sql string, opts cli.Options) (string, int, error) {
	switch {
	case opts.Marker != "":
		i := strings.Index(sql, opts.Marker)
		if i < 0 {
			return "", 0, fmt.Errorf("%w: marker %q not found in input", cli.ErrUsage, opts.Marker)
		}
		return sql[:i] + sql[i+len(opts.Marker):], i, nil
	case opts.Cursor == cli.NoCursor:
		return sql, len(sql), nil
	}
	return sql, opts.Cursor, nil
}

// openSource builds the schema source the plan describes: a live database,
// DDL files, or nothing. Live and file sources are cached when enabled.
func openSource(ctx context.Context, plan config.Plan, logger *slog.Logger) (source.Source, func(), error) {
	noop := func() {}
	var (
		src     source.Source
		closeFn = noop
	)

	switch {
	case plan.Database != "":
		if _, err := os.Stat(plan.Database); err != nil {
			return nil, noop, fmt.Errorf("open database: %w", err)
		}
		db, err := sqlite.OpenReadOnly(plan.Driver, plan.Database)
		if err != nil {
			return nil, noop, err
		}
		src = source.NewSQLite(db)
		closeFn = func() { _ = db.Close() }
		logger.Debug("schema source", "kind", "database", "path", plan.Database, "driver", string(plan.Driver))
	case len(plan.Schemas) > 0:
		catalog := model.NewCatalog()
		for _, path := range plan.Schemas {
			content, err := os.ReadFile(path)
			if err != nil {
				return nil, noop, fmt.Errorf("read schema: %w", err)
			}
			diags, err := schemaparser.Apply(ctx, catalog, path, content)
			if err != nil {
				return nil, noop, err
			}
			for _, d := range diags {
				logger.Warn("schema diagnostic", "diagnostic", d.String())
			}
		}
		src = source.NewCatalog(catalog, plan.Dialect)
		logger.Debug("schema source", "kind", "ddl", "files", len(plan.Schemas))
	default:
		return nil, noop, nil
	}

	if plan.Cache.Enabled {
		mc := cache.NewMemoryCache()
		src = source.NewCached(src, mc, plan.Cache.TTL)
		closeInner := closeFn
		closeFn = func() {
			expired := mc.Cleanup()
			hits, misses := mc.Stats()
			logger.Debug("schema cache", "hits", hits, "misses", misses, "entries", mc.Len(), "expired", expired)
			closeInner()
		}
	}
	return src, closeFn, nil
}

func printResults(w io.Writer, format string, res completion.Results) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, tok := range res.ExpectedTokens {
		_, _ = fmt.Fprintf(tw, "%s\t%s%s\t%s\t%s\n", tok.Type, tok.Prefix, tok.Value, tok.ContextInfo, tok.Label)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
