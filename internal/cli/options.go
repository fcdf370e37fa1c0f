// Package cli parses the sqlcomplete command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// ErrUsage marks errors caused by the command line itself.
var ErrUsage = errors.New("usage error")

// NoCursor means the cursor was not given and sits at the end of the input.
const NoCursor = -1

type Options struct {
	ConfigPath string
	// ConfigSet reports whether -config was given explicitly.
	ConfigSet    bool
	StrictConfig bool
	Database     string
	Schemas      []string
	Dialect      string
	Driver       string
	Cursor       int
	Marker       string
	Format       string
	Highlight    bool
	Limit        int
	Verbose      bool
	Args         []string
}

// stringList collects a repeatable string flag.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func Parse(args []string) (Options, error) {
	const defaultConfig = "sqlcomplete.toml"

	opts := Options{
		ConfigPath: defaultConfig,
		Cursor:     NoCursor,
		Format:     "text",
	}

	fs := flag.NewFlagSet("sqlcomplete", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var schemas stringList
	fs.StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "Path to configuration file")
	fs.StringVar(&opts.ConfigPath, "c", opts.ConfigPath, "Path to configuration file")
	fs.BoolVar(&opts.StrictConfig, "strict-config", false, "Treat configuration warnings as errors")
	fs.StringVar(&opts.Database, "db", "", "SQLite database to read the schema from (opened read-only)")
	fs.Var(&schemas, "schema", "Glob of DDL files describing the schema; repeatable")
	fs.StringVar(&opts.Dialect, "dialect", "", "SQL dialect: sqlite3 or sqlite2")
	fs.StringVar(&opts.Driver, "driver", "", "SQLite driver: modernc or mattn")
	fs.IntVar(&opts.Cursor, "cursor", NoCursor, "Cursor byte offset; defaults to the end of the input")
	fs.StringVar(&opts.Marker, "marker", "", "Place the cursor at the first occurrence of this string and remove it")
	fs.StringVar(&opts.Format, "format", opts.Format, "Output format: text or json")
	fs.BoolVar(&opts.Highlight, "highlight", false, "Print the highlighted input with the cursor to stderr")
	fs.IntVar(&opts.Limit, "limit", 0, "Print at most this many candidates; 0 prints all")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.Verbose, "v", false, "Enable verbose logging")

	if err := fs.Parse(args); err != nil {
		usage := Usage(fs)
		if errors.Is(err, flag.ErrHelp) {
			return Options{}, fmt.Errorf("%w\n\n%s", err, usage)
		}
		return Options{}, fmt.Errorf("%w: %w\n\n%s", ErrUsage, err, usage)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" || f.Name == "c" {
			opts.ConfigSet = true
		}
	})
	opts.Schemas = schemas
	opts.Args = fs.Args()

	switch {
	case opts.Format != "text" && opts.Format != "json":
		return Options{}, fmt.Errorf("%w: unsupported -format %q", ErrUsage, opts.Format)
	case opts.Limit < 0:
		return Options{}, fmt.Errorf("%w: -limit must not be negative", ErrUsage)
	case opts.Cursor < NoCursor:
		return Options{}, fmt.Errorf("%w: -cursor must not be negative", ErrUsage)
	case opts.Cursor != NoCursor && opts.Marker != "":
		return Options{}, fmt.Errorf("%w: -cursor and -marker are exclusive", ErrUsage)
	case len(opts.Args) > 1:
		return Options{}, fmt.Errorf("%w: expected at most one input file, got %d", ErrUsage, len(opts.Args))
	}
	return opts, nil
}

func Usage(fs *flag.FlagSet) string {
	if fs == nil {
		return ""
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "Usage of %s: %s [flags] [file|-]\n", fs.Name(), fs.Name())
	out := fs.Output()
	fs.SetOutput(&buf)
	fs.PrintDefaults()
	fs.SetOutput(out)
	return buf.String()
}
