package dialect

import (
	"fmt"
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// signatureLexer tokenizes catalog signatures such as "substr(X, Y, Z)" or
// "max(X, Y, ...)".
var signatureLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`, Action: nil},
		{Name: "Ellipsis", Pattern: `\.\.\.`, Action: nil},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},
		{Name: "Punct", Pattern: `[(),*]`, Action: nil},
	},
})

// signature is the parse tree of one catalog signature.
//
//nolint:govet // Participle struct tags are DSL, not reflect tags
type signature struct {
	Name string    `@Ident "("`
	Args []*sigArg `( @@ ( "," @@ )* )? ")"`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type sigArg struct {
	Ellipsis bool   `  @Ellipsis`
	Star     bool   `| @"*"`
	Name     string `| @Ident`
}

var signatureParser = sync.OnceValues(func() (*participle.Parser[signature], error) {
	p, err := participle.Build[signature](
		participle.Lexer(signatureLexer),
		participle.Elide("Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build signature parser: %w", err)
	}
	return p, nil
})

// Function describes one SQL function overload.
type Function struct {
	Name string
	// Args are the declared argument names; "*" stands for count(*).
	Args     []string
	Variadic bool
	// Signature is the normalized display form, e.g. "substr(X, Y, Z)".
	Signature string
}

// Arity returns the number of declared arguments, or -1 for variadic
// functions.
func (f Function) Arity() int {
	if f.Variadic {
		return -1
	}
	return len(f.Args)
}

// ParseSignature parses a catalog signature such as "max(X, Y, ...)".
func ParseSignature(s string) (Function, error) {
	p, err := signatureParser()
	if err != nil {
		return Function{}, err
	}
	sig, err := p.ParseString("", s)
	if err != nil {
		return Function{}, fmt.Errorf("failed to parse signature %q: %w", s, err)
	}
	fn := Function{Name: strings.ToLower(sig.Name)}
	for i, arg := range sig.Args {
		switch {
		case arg.Ellipsis:
			if i != len(sig.Args)-1 {
				return Function{}, fmt.Errorf("signature %q: \"...\" must be the last argument", s)
			}
			fn.Variadic = true
		case arg.Star:
			fn.Args = append(fn.Args, "*")
		default:
			fn.Args = append(fn.Args, arg.Name)
		}
	}
	fn.Signature = fn.Format()
	return fn, nil
}

// Format renders f as a call signature, for example "substr(X, Y, ...)".
func (f Function) Format() string {
	parts := append([]string(nil), f.Args...)
	if f.Variadic {
		parts = append(parts, "...")
	}
	return f.Name + "(" + strings.Join(parts, ", ") + ")"
}
