// Package fileset resolves schema file globs and reads the matched files.
//
// Schema files are applied in path order, so every result is sorted and free
// of duplicates no matter how the patterns overlap.
package fileset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNoPatterns is returned when no schema pattern was given.
var ErrNoPatterns = errors.New("fileset: no schema patterns given")

// PatternError reports a schema pattern that is not a valid glob.
type PatternError struct {
	Pattern string
	Err     error
}

func (e PatternError) Error() string {
	return fmt.Sprintf("schema pattern %q: %v", e.Pattern, e.Err)
}

func (e PatternError) Unwrap() error { return e.Err }

// NoMatchError lists the schema patterns that matched no file, in the order
// they were given.
type NoMatchError struct {
	Patterns []string
}

func (e NoMatchError) Error() string {
	if len(e.Patterns) == 1 {
		return fmt.Sprintf("no schema file matches %s", e.Patterns[0])
	}
	return "no schema files match " + strings.Join(e.Patterns, ", ")
}

// Resolver finds schema files in a filesystem. Matches are reported under
// root when it is set and by their name inside the filesystem otherwise.
type Resolver struct {
	fsys fs.FS
	root string
}

// NewResolver returns a Resolver over fsys that reports files by their
// slash-separated name in fsys.
func NewResolver(fsys fs.FS) Resolver {
	return Resolver{fsys: fsys}
}

// NewOSResolver returns a Resolver over the schema directory dir. Files are
// reported as absolute OS paths.
func NewOSResolver(dir string) (Resolver, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return Resolver{}, fmt.Errorf("schema directory %s: %w", dir, err)
	}
	info, err := os.Stat(root)
	switch {
	case err != nil:
		return Resolver{}, fmt.Errorf("schema directory: %w", err)
	case !info.IsDir():
		return Resolver{}, fmt.Errorf("schema directory %s is not a directory", root)
	}
	return Resolver{fsys: os.DirFS(root), root: root}, nil
}

// path is the reported form of name.
func (r Resolver) path(name string) string {
	if r.root == "" {
		return name
	}
	return filepath.Join(r.root, filepath.FromSlash(name))
}

// File is a resolved schema file and its content.
type File struct {
	Path    string
	Content []byte
}

// Resolve returns the sorted paths of every file matched by patterns.
func (r Resolver) Resolve(patterns []string) ([]string, error) {
	names, err := r.match(patterns)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = r.path(name)
	}
	return paths, nil
}

// Load resolves patterns like Resolve and reads every matched file.
func (r Resolver) Load(patterns []string) ([]File, error) {
	names, err := r.match(patterns)
	if err != nil {
		return nil, err
	}
	files := make([]File, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(r.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", r.path(name), err)
		}
		files = append(files, File{Path: r.path(name), Content: content})
	}
	return files, nil
}

// match returns the names matched by patterns, sorted by reported path. Every
// pattern must match at least one file.
func (r Resolver) match(patterns []string) ([]string, error) {
	if r.fsys == nil {
		return nil, errors.New("fileset: resolver has no filesystem")
	}
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}

	seen := make(map[string]bool)
	var names, missing []string
	for _, pattern := range patterns {
		found, err := fs.Glob(r.fsys, filepath.ToSlash(pattern))
		if err != nil {
			return nil, PatternError{Pattern: pattern, Err: err}
		}
		if len(found) == 0 {
			missing = append(missing, pattern)
			continue
		}
		for _, name := range found {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	if len(missing) > 0 {
		return nil, NoMatchError{Patterns: missing}
	}

	slices.SortFunc(names, func(a, b string) int { return strings.Compare(r.path(a), r.path(b)) })
	return names, nil
}
