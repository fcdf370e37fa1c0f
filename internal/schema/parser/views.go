package parser

import (
	"strings"

	"github.com/electwix/sqlcomplete/internal/query/ast"
)

// maxDeriveDepth bounds recursion through nested subqueries and CTEs.
const maxDeriveDepth = 8

// deriveColumns returns the result column names of a select, taken from its
// first core the way SQLite names view columns.
func (l *loader) deriveColumns(cores []ast.CoreID, depth int) []string {
	if len(cores) == 0 || depth > maxDeriveDepth {
		return nil
	}
	core := l.q.Core(cores[0])
	if core == nil {
		return nil
	}
	var out []string
	for _, rc := range core.Columns {
		switch {
		case rc.Star && rc.Table == "":
			for _, src := range core.From {
				out = append(out, l.sourceColumns(core, src, depth)...)
			}
		case rc.Star:
			for _, src := range core.From {
				if strings.EqualFold(src.Visible(), rc.Table) {
					out = append(out, l.sourceColumns(core, src, depth)...)
				}
			}
		case rc.OutputName() != "":
			out = append(out, rc.OutputName())
		default:
			out = append(out, strings.TrimSpace(l.q.SQL[rc.Start:rc.End]))
		}
	}
	return out
}

func (l *loader) sourceColumns(core *ast.Core, src ast.Source, depth int) []string {
	switch src.Kind {
	case ast.SourceSubquery:
		return l.deriveColumns(src.Subquery, depth+1)
	case ast.SourceTable:
		for _, cte := range core.CTEs {
			if !strings.EqualFold(cte.Name, src.Name.Name) {
				continue
			}
			if len(cte.Columns) > 0 {
				return cte.Columns
			}
			return l.deriveColumns(cte.Cores, depth+1)
		}
		if table := l.catalog.Table(src.Name.Name); table != nil {
			return table.ColumnNames()
		}
		if view := l.catalog.View(src.Name.Name); view != nil {
			return view.Columns
		}
	}
	return nil
}
