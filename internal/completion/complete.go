// Package completion computes the completion candidates for a cursor
// position in possibly incomplete SQL.
//
// A request is handled in one pass: the word at the cursor is cut out of
// the text, the rest is parsed and classified, the scope of the cursor is
// resolved against a schema source and candidates are generated, filtered
// and sorted. Nothing is kept between requests.
package completion

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/electwix/sqlcomplete/internal/dialect"
	"github.com/electwix/sqlcomplete/internal/logging"
	"github.com/electwix/sqlcomplete/internal/query/ast"
	"github.com/electwix/sqlcomplete/internal/query/parser"
	"github.com/electwix/sqlcomplete/internal/query/scope"
	"github.com/electwix/sqlcomplete/internal/schema/source"
)

// Request is one completion request.
type Request struct {
	SQL string
	// Cursor is a byte offset into SQL. Out of range values are clamped.
	Cursor int
	// Source describes the schema. A nil Source completes keywords and
	// functions only.
	Source  source.Source
	Dialect dialect.Dialect
}

// Engine runs completion requests and logs each one under its own request
// ID. An Engine is safe for concurrent use.
type Engine struct {
	log *slog.Logger
}

// NewEngine returns an engine logging to log. A nil logger discards output.
func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{log: log}
}

// Complete returns the candidates for req. It never fails: problems with
// the schema source shrink the result, and an internal fault yields the
// statement keywords.
func (e *Engine) Complete(ctx context.Context, req Request) (res Results) {
	start := time.Now()
	log := logging.ForRequest(e.log, uuid.NewString())
	defer func() {
		if r := recover(); r != nil {
			log.Error("completion aborted", "panic", r, "cursor", req.Cursor)
			res = fallback()
		}
	}()

	res = complete(ctx, req, log)
	log.Debug("completion finished",
		"context", res.Context.String(),
		"partial", res.PartialToken,
		"candidates", len(res.ExpectedTokens),
		logging.Elapsed(start),
	)
	return res
}

// Complete runs req on an engine that discards its log.
func Complete(ctx context.Context, req Request) Results {
	return NewEngine(nil).Complete(ctx, req)
}

func complete(ctx context.Context, req Request, log logging.Logger) Results {
	cat := catalogFor(req.Dialect, log)
	src := req.Source
	if src == nil {
		src = source.Disconnected()
	}

	cursor := clampCursor(req.SQL, req.Cursor)
	frag := extractFragment(req.SQL, cursor)
	res := Results{
		ExpectedTokens: []ExpectedToken{},
		PartialToken:   frag.text,
		WrappedToken:   frag.wrapped,
	}
	if frag.inLiteral {
		return res
	}

	text, pos := frag.remove(req.SQL)
	q, diags := parser.ParseString(text)
	if len(diags) > 0 {
		log.Debug("partial parse", "statements", len(q.Statements), "stopped_at", diags[0].Offset, "reason", diags[0].Message)
	}
	cls := Classify(q, pos)
	res.Context = cls.Context

	g := &generator{
		ctx: ctx,
		cls: cls,
		sc:  resolveScope(ctx, q, cls, src, log),
		cat: cat,
		src: src,
		log: log,
	}
	forced := g.generate()

	tokens := filterPrefix(g.out, frag.text)
	if !forced {
		tokens = filterKeywords(tokens, cls, q.Core(cls.Core))
	}
	tokens = dedupe(tokens)
	sortTokens(tokens)
	res.ExpectedTokens = append(res.ExpectedTokens, tokens...)
	return res
}

func catalogFor(d dialect.Dialect, log logging.Logger) *dialect.Catalog {
	if d == "" {
		d = dialect.SQLite3
	}
	cat, err := dialect.Load(d)
	if err != nil {
		log.Warn("falling back to sqlite3 catalog", "error", err)
		return dialect.MustLoad(dialect.SQLite3)
	}
	return cat
}

// resolveScope builds the name space of the cursor: its core and enclosing
// cores, the target of a data-changing statement and a trigger's rows.
func resolveScope(ctx context.Context, q *ast.Query, cls Classification, src source.Source, log logging.Logger) *scope.Scope {
	r := scope.NewResolver(src, q, log)
	sc := scope.New()
	if cls.Core != ast.NoCore {
		sc = r.Resolve(ctx, cls.Core)
		r.ResolveParents(ctx, sc, cls.Parents)
	}
	if cls.Context != ContextCreateTable && !cls.Target.IsZero() {
		if cls.TargetAlias != "" {
			r.AddTable(ctx, sc, cls.Target, cls.TargetAlias)
		} else {
			r.AddTable(ctx, sc, cls.Target)
		}
	}
	if !cls.Outer.IsZero() {
		if cls.OuterAlias != "" {
			r.AddOuterTable(ctx, sc, cls.Outer, cls.OuterAlias)
		} else {
			r.AddOuterTable(ctx, sc, cls.Outer)
		}
	}
	if cls.Trigger != nil {
		r.AddOuterTable(ctx, sc, cls.Trigger.Table, triggerRows(cls.Trigger.Event)...)
	}
	return sc
}

// fallback is the result served after an internal fault.
func fallback() Results {
	res := Results{ExpectedTokens: []ExpectedToken{}}
	for _, kw := range dialect.MustLoad(dialect.SQLite3).Statements {
		res.ExpectedTokens = append(res.ExpectedTokens, ExpectedToken{Type: TypeKeyword, Value: kw, Priority: PriorityKeyword})
	}
	sortTokens(res.ExpectedTokens)
	return res
}
