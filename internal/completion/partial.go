package completion

import (
	"strings"
	"unicode/utf8"

	"github.com/electwix/sqlcomplete/internal/schema/tokenizer"
)

// fragment is the partially typed word at the cursor.
type fragment struct {
	// text is the typed part of the word, without an opening quote.
	text    string
	wrapped bool
	// start and end delimit the whole word in the source.
	start, end int
	// inLiteral is set when the cursor sits inside a string, blob or comment.
	inLiteral bool
}

// clampCursor moves cursor into [0, len(sql)] and back onto a rune start.
func clampCursor(sql string, cursor int) int {
	cursor = max(0, min(cursor, len(sql)))
	for cursor > 0 && cursor < len(sql) && !utf8.RuneStart(sql[cursor]) {
		cursor--
	}
	return cursor
}

// extractFragment finds the word the cursor is in or right after. Only
// identifiers and keywords form a fragment; a cursor touching any other
// token has an empty fragment.
func extractFragment(sql string, cursor int) fragment {
	f := fragment{start: cursor, end: cursor}
	for tok := range tokenizer.ScanSeq(sql) {
		if tok.Kind == tokenizer.KindEOF || tok.Start >= cursor {
			break
		}
		if cursor > tok.End {
			continue
		}
		switch tok.Kind {
		case tokenizer.KindString, tokenizer.KindBlob:
			f.inLiteral = cursor < tok.End || tok.Unterminated
		case tokenizer.KindComment:
			lineComment := strings.HasPrefix(tok.Text, "--")
			f.inLiteral = cursor < tok.End || tok.Unterminated || lineComment
		case tokenizer.KindIdentifier, tokenizer.KindKeyword:
			f.start, f.end = tok.Start, tok.End
			if tok.Quoted {
				f.text = quotedPrefix(sql, tok, cursor)
				f.wrapped = true
			} else {
				f.text = sql[tok.Start:cursor]
			}
		}
	}
	return f
}

// quotedPrefix returns the content of a quoted identifier up to cursor.
func quotedPrefix(sql string, tok tokenizer.Token, cursor int) string {
	raw := sql[tok.Start+1 : cursor]
	if !tok.Unterminated && cursor == tok.End && raw != "" {
		raw = raw[:len(raw)-1]
	}
	closer := tok.Text[0]
	if closer == '[' {
		return raw
	}
	double := string([]byte{closer, closer})
	return strings.ReplaceAll(raw, double, string(closer))
}

// remove cuts the fragment's word out of sql so that the parser sees the
// statement as it was before the word was typed. A single space keeps the
// neighbouring tokens apart. It returns the new text and cursor.
func (f fragment) remove(sql string) (string, int) {
	if f.start == f.end {
		return sql, f.start
	}
	return sql[:f.start] + " " + sql[f.end:], f.start
}
