package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

const (
	ansiReset   = "\x1b[0m"
	ansiCursor  = "\x1b[7m"
	cursorGlyph = "|"
)

// highlight writes sql with ANSI syntax colors and the cursor position
// marked.
func highlight(w io.Writer, sql string, cursor int) error {
	lexer := lexers.Get("sql")
	if lexer == nil {
		return errors.New("no sql lexer")
	}
	iter, err := lexer.Tokenise(nil, sql)
	if err != nil {
		return fmt.Errorf("tokenise: %w", err)
	}

	var b strings.Builder
	offset := 0
	marked := false
	mark := func() {
		b.WriteString(ansiCursor + cursorGlyph + ansiReset)
		marked = true
	}
	for _, tok := range iter.Tokens() {
		color := tokenColor(tok.Type)
		text := tok.Value
		if !marked && cursor >= offset && cursor < offset+len(text) {
			split := cursor - offset
			writeColored(&b, color, text[:split])
			mark()
			text = text[split:]
			offset = cursor
		}
		writeColored(&b, color, text)
		offset += len(text)
	}
	if !marked {
		mark()
	}
	_, err = io.WriteString(w, strings.TrimRight(b.String(), "\n")+"\n")
	return err
}

func writeColored(b *strings.Builder, color, text string) {
	if text == "" {
		return
	}
	if color == "" {
		b.WriteString(text)
		return
	}
	b.WriteString(color)
	b.WriteString(text)
	b.WriteString(ansiReset)
}

func tokenColor(t chroma.TokenType) string {
	if t == chroma.NameBuiltin || t == chroma.NameFunction {
		return "\x1b[36m"
	}
	switch {
	case t.InCategory(chroma.Keyword):
		return "\x1b[1;34m"
	case t.InCategory(chroma.LiteralString):
		return "\x1b[32m"
	case t.InCategory(chroma.LiteralNumber):
		return "\x1b[35m"
	case t.InCategory(chroma.Comment):
		return "\x1b[90m"
	}
	return ""
}
