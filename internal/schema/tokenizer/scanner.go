// Package tokenizer scans SQLite source text into tokens.
package tokenizer

import (
	"iter"
	"unicode"
	"unicode/utf8"
)

const eofRune = -1

// Scan tokenizes src. It never fails: unknown bytes become KindOther tokens
// and unterminated literals run to the end of input. The returned tokens
// partition src and end with a zero-width KindEOF token at len(src).
func Scan(src string) []Token {
	s := newScanner(src)
	tokens := make([]Token, 0, len(src)/3+1)
	for {
		tok := s.next()
		tokens = append(tokens, tok)
		if tok.Kind == KindEOF {
			return tokens
		}
	}
}

// ScanSeq returns an iterator over the tokens of src, ending with KindEOF.
// Use it when tokens are consumed once and early termination is likely.
func ScanSeq(src string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		s := newScanner(src)
		for {
			tok := s.next()
			if !yield(tok) || tok.Kind == KindEOF {
				return
			}
		}
	}
}

// Scanner maintains scanning state over a source string.
type Scanner struct {
	src    string
	index  int
	line   int
	column int

	start     int
	startLine int
	startCol  int
}

func newScanner(src string) *Scanner {
	return &Scanner{src: src, line: 1, column: 1}
}

func (s *Scanner) next() Token {
	s.start, s.startLine, s.startCol = s.index, s.line, s.column
	r := s.peek()
	switch {
	case r == eofRune:
		return s.emit(KindEOF)
	case unicode.IsSpace(r):
		s.consumeWhitespace()
		return s.emit(KindSpace)
	case r == '-' && s.peekNext() == '-':
		s.consumeLineComment()
		return s.emit(KindComment)
	case r == '/' && s.peekNext() == '*':
		tok := s.emit(KindComment)
		tok.Unterminated = !s.consumeBlockComment()
		return s.refresh(tok)
	case r == '\'':
		tok := s.emit(KindString)
		tok.Unterminated = !s.consumeQuoted('\'', '\'')
		return s.refresh(tok)
	case (r == 'x' || r == 'X') && s.peekNext() == '\'':
		s.advance()
		tok := s.emit(KindBlob)
		tok.Unterminated = !s.consumeQuoted('\'', '\'')
		return s.refresh(tok)
	case r == '"' || r == '`':
		tok := s.emit(KindIdentifier)
		tok.Quoted = true
		tok.Unterminated = !s.consumeQuoted(r, r)
		return s.refresh(tok)
	case r == '[':
		tok := s.emit(KindIdentifier)
		tok.Quoted = true
		tok.Unterminated = !s.consumeQuoted('[', ']')
		return s.refresh(tok)
	case r == '?':
		s.advance()
		s.advanceDigits()
		return s.emit(KindParam)
	case (r == ':' || r == '@' || r == '$') && isIdentifierPart(s.peekNext()):
		s.advance()
		s.advanceIdentifier()
		return s.emit(KindParam)
	case isIdentifierStart(r):
		s.advanceIdentifier()
		if IsKeyword(s.src[s.start:s.index]) {
			return s.emit(KindKeyword)
		}
		return s.emit(KindIdentifier)
	case isDigit(r) || (r == '.' && isDigit(s.peekNext())):
		s.consumeNumber()
		return s.emit(KindNumber)
	case isOperatorRune(r):
		s.consumeOperator()
		return s.emit(KindOperator)
	default:
		s.advance()
		return s.emit(KindOther)
	}
}

// emit builds a token spanning the bytes consumed since the token started.
func (s *Scanner) emit(kind Kind) Token {
	return Token{
		Kind:   kind,
		Text:   s.src[s.start:s.index],
		Start:  s.start,
		End:    s.index,
		Line:   s.startLine,
		Column: s.startCol,
	}
}

// refresh extends a token emitted before its body was consumed.
func (s *Scanner) refresh(tok Token) Token {
	tok.Text = s.src[s.start:s.index]
	tok.End = s.index
	return tok
}

func (s *Scanner) consumeWhitespace() {
	for {
		r := s.peek()
		if r == eofRune || !unicode.IsSpace(r) {
			return
		}
		s.advance()
	}
}

func (s *Scanner) consumeLineComment() {
	for {
		r := s.peek()
		if r == eofRune || r == '\n' {
			return
		}
		s.advance()
	}
}

func (s *Scanner) consumeBlockComment() bool {
	s.advance() // '/'
	s.advance() // '*'
	for {
		r := s.peek()
		if r == eofRune {
			return false
		}
		if r == '*' && s.peekNext() == '/' {
			s.advance()
			s.advance()
			return true
		}
		s.advance()
	}
}

// consumeQuoted consumes a delimited literal whose opening delimiter is at
// the cursor. A doubled closing delimiter is an escape. It reports whether the
// closing delimiter was found.
func (s *Scanner) consumeQuoted(open, closing rune) bool {
	s.advance() // opening delimiter
	for {
		r := s.peek()
		if r == eofRune {
			return false
		}
		s.advance()
		if r != closing {
			continue
		}
		if open != '[' && s.peek() == closing {
			s.advance()
			continue
		}
		return true
	}
}

func (s *Scanner) consumeNumber() {
	if s.peek() == '0' && (s.peekNext() == 'x' || s.peekNext() == 'X') {
		s.advance()
		s.advance()
		for isHexDigit(s.peek()) {
			s.advance()
		}
		return
	}
	s.advanceDigits()
	if s.peek() == '.' {
		s.advance()
		s.advanceDigits()
	}
	next := s.peek()
	if next == 'e' || next == 'E' {
		s.advance()
		sign := s.peek()
		if sign == '+' || sign == '-' {
			s.advance()
		}
		s.advanceDigits()
	}
}

func (s *Scanner) consumeOperator() {
	first := s.advance()
	next := s.peek()
	switch first {
	case '<':
		if next == '=' || next == '>' || next == '<' {
			s.advance()
		}
	case '>':
		if next == '=' || next == '>' {
			s.advance()
		}
	case '=', '!':
		if next == '=' {
			s.advance()
		}
	case '|':
		if next == '|' {
			s.advance()
		}
	case '-':
		if next == '>' {
			s.advance()
			if s.peek() == '>' {
				s.advance()
			}
		}
	}
}

func (s *Scanner) advanceDigits() {
	for isDigit(s.peek()) {
		s.advance()
	}
}

func (s *Scanner) advanceIdentifier() {
	for isIdentifierPart(s.peek()) {
		s.advance()
	}
}

func (s *Scanner) peek() rune {
	if s.index >= len(s.src) {
		return eofRune
	}
	r, _ := utf8.DecodeRuneInString(s.src[s.index:])
	return r
}

func (s *Scanner) peekNext() rune {
	idx := s.index
	if idx >= len(s.src) {
		return eofRune
	}
	_, size := utf8.DecodeRuneInString(s.src[idx:])
	idx += size
	if idx >= len(s.src) {
		return eofRune
	}
	r, _ := utf8.DecodeRuneInString(s.src[idx:])
	return r
}

// advance consumes one rune. Invalid UTF-8 is consumed one byte at a time.
func (s *Scanner) advance() rune {
	if s.index >= len(s.src) {
		return eofRune
	}
	r, size := utf8.DecodeRuneInString(s.src[s.index:])
	s.index += size
	if r == '\n' {
		s.line++
		s.column = 1
	} else {
		s.column++
	}
	return r
}

func isIdentifierStart(r rune) bool {
	return r == '_' || (r > 0x7f && r != utf8.RuneError && !unicode.IsSpace(r)) || unicode.IsLetter(r)
}

func isIdentifierPart(r rune) bool {
	return isIdentifierStart(r) || isDigit(r) || r == '$'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isOperatorRune(r rune) bool {
	switch r {
	case '(', ')', ',', ';', '.', '*', '=', '+', '-', '/', '%', '<', '>', '!', '|', '&', '~':
		return true
	}
	return false
}
