package dialect

import (
	"embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/electwix/sqlcomplete/internal/schema/tokenizer"
)

//go:embed catalogs/*.yaml
var catalogFS embed.FS

// catalogFile mirrors the YAML layout of catalogs/<dialect>.yaml.
type catalogFile struct {
	Name              string   `yaml:"name"`
	Statements        []string `yaml:"statements"`
	Types             []string `yaml:"types"`
	ColumnConstraints []string `yaml:"column_constraints"`
	TableConstraints  []string `yaml:"table_constraints"`
	Collations        []string `yaml:"collations"`
	ExcludedKeywords  []string `yaml:"excluded_keywords"`
	Functions         []string `yaml:"functions"`
	Pragmas           []string `yaml:"pragmas"`
}

// Catalog holds the static names known for one dialect. A Catalog is
// immutable once loaded.
type Catalog struct {
	Dialect           Dialect
	Statements        []string
	Types             []string
	ColumnConstraints []string
	TableConstraints  []string
	Collations        []string
	Functions         []Function
	Pragmas           []string

	excluded map[string]struct{}
}

var loaders = map[Dialect]func() (*Catalog, error){
	SQLite3: sync.OnceValues(func() (*Catalog, error) { return load(SQLite3) }),
	SQLite2: sync.OnceValues(func() (*Catalog, error) { return load(SQLite2) }),
}

// Load returns the catalog for d. Catalogs are decoded once and shared.
func Load(d Dialect) (*Catalog, error) {
	loader, ok := loaders[d]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, string(d))
	}
	return loader()
}

// MustLoad is Load for the embedded catalogs, which are known to be valid.
func MustLoad(d Dialect) *Catalog {
	c, err := Load(d)
	if err != nil {
		panic(err)
	}
	return c
}

func load(d Dialect) (*Catalog, error) {
	data, err := catalogFS.ReadFile("catalogs/" + string(d) + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("read %s catalog: %w", d, err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode %s catalog: %w", d, err)
	}
	if file.Name != string(d) {
		return nil, fmt.Errorf("%s catalog declares name %q", d, file.Name)
	}

	c := &Catalog{
		Dialect:           d,
		Statements:        upper(file.Statements),
		Types:             upper(file.Types),
		ColumnConstraints: upper(file.ColumnConstraints),
		TableConstraints:  upper(file.TableConstraints),
		Collations:        upper(file.Collations),
		Pragmas:           sortedUnique(file.Pragmas),
		excluded:          make(map[string]struct{}, len(file.ExcludedKeywords)),
	}
	for _, kw := range file.ExcludedKeywords {
		c.excluded[strings.ToUpper(kw)] = struct{}{}
	}
	for _, sig := range file.Functions {
		fn, err := ParseSignature(sig)
		if err != nil {
			return nil, fmt.Errorf("%s catalog: %w", d, err)
		}
		c.Functions = append(c.Functions, fn)
	}
	slices.SortStableFunc(c.Functions, func(a, b Function) int {
		return strings.Compare(a.Name, b.Name)
	})
	return c, nil
}

// Supports reports whether keyword belongs to the dialect's grammar.
func (c *Catalog) Supports(keyword string) bool {
	kw := strings.ToUpper(keyword)
	if _, ok := c.excluded[kw]; ok {
		return false
	}
	return tokenizer.IsKeyword(kw) || slices.Contains(c.Statements, kw)
}

// Keywords returns every keyword of the dialect in sorted order.
func (c *Catalog) Keywords() []string {
	var out []string
	for _, kw := range tokenizer.Keywords() {
		if _, ok := c.excluded[kw]; !ok {
			out = append(out, kw)
		}
	}
	for _, kw := range c.Statements {
		if !tokenizer.IsKeyword(kw) {
			out = append(out, kw)
		}
	}
	slices.Sort(out)
	return out
}

// Lookup returns the overloads of the named function.
func (c *Catalog) Lookup(name string) []Function {
	name = strings.ToLower(name)
	var out []Function
	for _, fn := range c.Functions {
		if fn.Name == name {
			out = append(out, fn)
		}
	}
	return out
}

// HasPragma reports whether name is a known pragma.
func (c *Catalog) HasPragma(name string) bool {
	_, found := slices.BinarySearch(c.Pragmas, strings.ToLower(name))
	return found
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}

func sortedUnique(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
