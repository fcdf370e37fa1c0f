// Package config loads and validates the sqlcomplete configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/electwix/sqlcomplete/internal/dialect"
	"github.com/electwix/sqlcomplete/internal/fileset"
	"github.com/electwix/sqlcomplete/internal/sqlite"
)

// DefaultPath is the configuration file looked up when none is named.
const DefaultPath = "sqlcomplete.toml"

// DefaultCacheTTL bounds how long schema metadata is reused.
const DefaultCacheTTL = 30 * time.Second

// ErrUnknownDialect is returned for a dialect the engine has no catalog for.
var ErrUnknownDialect = dialect.ErrUnknown

// Log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// CacheConfig mirrors the [cache] table.
type CacheConfig struct {
	Enabled *bool  `toml:"enabled"`
	TTL     string `toml:"ttl"`
}

// LogConfig mirrors the [log] table.
type LogConfig struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"`
}

// Config mirrors the expected sqlcomplete TOML schema.
type Config struct {
	Dialect  string        `toml:"dialect"`
	Driver   sqlite.Driver `toml:"driver"`
	Database string        `toml:"database"`
	Schemas  []string      `toml:"schemas"`
	Cache    CacheConfig   `toml:"cache"`
	Log      LogConfig     `toml:"log"`
}

// Cache is the resolved metadata cache setting.
type Cache struct {
	Enabled bool
	TTL     time.Duration
}

// Log is the resolved logging setting.
type Log struct {
	Verbose bool
	Format  string
}

// Plan is the fully resolved configuration. Paths are absolute.
type Plan struct {
	Dialect  dialect.Dialect
	Driver   sqlite.Driver
	Database string
	Schemas  []string
	Cache    Cache
	Log      Log
}

// Default returns the plan used when no configuration file exists.
func Default() Plan {
	return Plan{
		Dialect: dialect.SQLite3,
		Driver:  sqlite.ModernC,
		Cache:   Cache{Enabled: true, TTL: DefaultCacheTTL},
		Log:     Log{Format: FormatText},
	}
}

// LoadOptions tunes config loading behavior.
type LoadOptions struct {
	Strict   bool
	Resolver *fileset.Resolver
}

// Result wraps a loaded plan alongside any non-fatal warnings.
type Result struct {
	Plan     Plan
	Warnings []string
}

// UnknownKeysError lists configuration keys the loader does not recognise.
// Nested keys are reported as "table.key".
type UnknownKeysError struct {
	Path string
	Keys []string
}

func (e *UnknownKeysError) Error() string {
	return fmt.Sprintf("%s: unknown configuration keys: %s", e.Path, strings.Join(e.Keys, ", "))
}

// Load reads, validates, and resolves a sqlcomplete configuration file.
func Load(path string, opts LoadOptions) (Result, error) {
	var res Result

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(path, data, opts)
}

// Parse validates and resolves configuration data read from path.
func Parse(path string, data []byte, opts LoadOptions) (Result, error) {
	var res Result

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	unknown, err := collectUnknownKeys(data)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		keysErr := &UnknownKeysError{Path: path, Keys: unknown}
		if opts.Strict {
			return res, keysErr
		}
		res.Warnings = append(res.Warnings, keysErr.Error())
	}

	plan := Default()

	plan.Dialect, err = dialect.Parse(cfg.Dialect)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	plan.Driver, err = resolveDriver(path, cfg.Driver)
	if err != nil {
		return res, err
	}

	plan.Cache, err = resolveCache(path, cfg.Cache)
	if err != nil {
		return res, err
	}

	plan.Log, err = resolveLog(path, cfg.Log)
	if err != nil {
		return res, err
	}

	baseDir := filepath.Dir(path)
	if cfg.Database != "" {
		plan.Database = resolvePath(baseDir, cfg.Database)
	}

	if len(cfg.Schemas) > 0 {
		var resolver fileset.Resolver
		if opts.Resolver != nil {
			resolver = *opts.Resolver
		} else {
			resolver, err = fileset.NewOSResolver(baseDir)
			if err != nil {
				return res, fmt.Errorf("%s: %w", path, err)
			}
		}
		plan.Schemas, err = resolvePatterns(resolver, "schemas", cfg.Schemas)
		if err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
	}

	res.Plan = plan
	return res, nil
}

// knownKeys lists the accepted keys per table; "" is the top level.
var knownKeys = map[string][]string{
	"":      {"dialect", "driver", "database", "schemas", "cache", "log"},
	"cache": {"enabled", "ttl"},
	"log":   {"verbose", "format"},
}

func collectUnknownKeys(data []byte) ([]string, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	unknown := make([]string, 0)
	for key, value := range raw {
		if !slices.Contains(knownKeys[""], key) {
			unknown = append(unknown, key)
			continue
		}
		nested, ok := knownKeys[key]
		if !ok {
			continue
		}
		record, ok := value.(map[string]any)
		if !ok {
			continue
		}
		for sub := range record {
			if !slices.Contains(nested, sub) {
				unknown = append(unknown, key+"."+sub)
			}
		}
	}
	return unknown, nil
}

func resolveDriver(path string, driver sqlite.Driver) (sqlite.Driver, error) {
	switch driver {
	case "":
		return sqlite.ModernC, nil
	case sqlite.ModernC, sqlite.MattN:
		return driver, nil
	}
	return "", fmt.Errorf("%s: unsupported driver %q", path, driver)
}

func resolveCache(path string, c CacheConfig) (Cache, error) {
	out := Cache{Enabled: true, TTL: DefaultCacheTTL}
	if c.Enabled != nil {
		out.Enabled = *c.Enabled
	}
	if c.TTL == "" {
		return out, nil
	}
	ttl, err := time.ParseDuration(c.TTL)
	if err != nil {
		return Cache{}, fmt.Errorf("%s: cache.ttl: %w", path, err)
	}
	if ttl <= 0 {
		return Cache{}, fmt.Errorf("%s: cache.ttl must be positive", path)
	}
	out.TTL = ttl
	return out, nil
}

func resolveLog(path string, l LogConfig) (Log, error) {
	format, err := ParseFormat(l.Format)
	if err != nil {
		return Log{}, fmt.Errorf("%s: log.format: %w", path, err)
	}
	return Log{Verbose: l.Verbose, Format: format}, nil
}

// ParseFormat validates a log format name. The empty string selects text.
func ParseFormat(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported format %q", name)
}

func resolvePath(baseDir, name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(baseDir, filepath.FromSlash(name))
}

func resolvePatterns(resolver fileset.Resolver, field string, patterns []string) ([]string, error) {
	paths, err := resolver.Resolve(patterns)
	if err != nil {
		switch {
		case errors.Is(err, fileset.ErrNoPatterns):
			return nil, fmt.Errorf("%s must include at least one pattern", field)
		default:
			var noMatchErr fileset.NoMatchError
			if errors.As(err, &noMatchErr) {
				return nil, fmt.Errorf("%s patterns matched no files: %s", field, strings.Join(noMatchErr.Patterns, ", "))
			}

			var patternErr fileset.PatternError
			if errors.As(err, &patternErr) {
				return nil, fmt.Errorf("%s: invalid glob pattern %q: %w", field, patternErr.Pattern, patternErr.Err)
			}

			return nil, fmt.Errorf("%s: %w", field, err)
		}
	}

	return paths, nil
}
