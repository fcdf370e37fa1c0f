package scope

import (
	"slices"

	"github.com/electwix/sqlcomplete/internal/query/ast"
)

// AliasMap links table names to the aliases they are referenced by within
// one statement. Keys are folded with ast.Fold.
//
// Every alias registered in aliasToTable has a matching entry in the alias
// list of its table. Registering an alias twice rebinds it: the last
// registration wins.
type AliasMap struct {
	tableToAlias map[string][]string
	aliasToTable map[string]Table
}

// NewAliasMap returns an empty map.
func NewAliasMap() *AliasMap {
	return &AliasMap{
		tableToAlias: make(map[string][]string),
		aliasToTable: make(map[string]Table),
	}
}

// Register binds alias to t.
func (m *AliasMap) Register(t Table, alias string) {
	if alias == "" {
		return
	}
	key := ast.Fold(alias)
	if prev, ok := m.aliasToTable[key]; ok {
		m.unlink(prev.key(), key)
	}
	m.aliasToTable[key] = t
	tkey := t.key()
	m.tableToAlias[tkey] = append(m.tableToAlias[tkey], alias)
}

func (m *AliasMap) unlink(tkey, aliasKey string) {
	aliases := slices.DeleteFunc(m.tableToAlias[tkey], func(a string) bool {
		return ast.Fold(a) == aliasKey
	})
	if len(aliases) == 0 {
		delete(m.tableToAlias, tkey)
		return
	}
	m.tableToAlias[tkey] = aliases
}

// Table returns the table bound to alias.
func (m *AliasMap) Table(alias string) (Table, bool) {
	if m == nil {
		return Table{}, false
	}
	t, ok := m.aliasToTable[ast.Fold(alias)]
	return t, ok
}

// Aliases returns the aliases of the named table in registration order.
func (m *AliasMap) Aliases(name string) []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.tableToAlias[ast.Fold(name)])
}

// Len returns the number of bound aliases.
func (m *AliasMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.aliasToTable)
}

// Consistent reports whether every alias has its reverse entry.
func (m *AliasMap) Consistent() bool {
	for key, t := range m.aliasToTable {
		found := slices.ContainsFunc(m.tableToAlias[t.key()], func(a string) bool {
			return ast.Fold(a) == key
		})
		if !found {
			return false
		}
	}
	return true
}
