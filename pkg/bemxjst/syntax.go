package bemxjst

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError reports a template source error at a 1-based line and column.
type SyntaxError struct {
	Description string
	LineNumber  int
	Column      int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Line %d: %s", e.LineNumber, e.Description)
}

func (e *SyntaxError) SyntaxDescription() string { return e.Description }
func (e *SyntaxError) SyntaxLine() int           { return e.LineNumber }
func (e *SyntaxError) SyntaxColumn() int         { return e.Column }

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenString
	tokenNumber
	tokenPunct
)

type token struct {
	kind tokenKind
	raw  string
	text string
	num  float64
	line int
	col  int
}

func (t token) String() string {
	switch t.kind {
	case tokenEOF:
		return "end of input"
	case tokenString:
		return "string"
	case tokenNumber:
		return "number"
	case tokenIdent:
		return "identifier"
	default:
		return t.raw
	}
}

type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src, line: 1, col: 1}
	var tokens []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokenEOF {
			return tokens, nil
		}
	}
}

func (lx *lexer) errorf(line, col int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Description: fmt.Sprintf(format, args...), LineNumber: line, Column: col}
}

func (lx *lexer) peek(offset int) byte {
	if lx.pos+offset >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+offset]
}

func (lx *lexer) advance() byte {
	ch := lx.src[lx.pos]
	lx.pos++
	if ch == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return ch
}

func (lx *lexer) skipSpaceAndComments() error {
	for lx.pos < len(lx.src) {
		ch := lx.peek(0)
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			lx.advance()
		case ch == '/' && lx.peek(1) == '/':
			for lx.pos < len(lx.src) && lx.peek(0) != '\n' {
				lx.advance()
			}
		case ch == '/' && lx.peek(1) == '*':
			line, col := lx.line, lx.col
			lx.advance()
			lx.advance()
			closed := false
			for lx.pos < len(lx.src) {
				if lx.peek(0) == '*' && lx.peek(1) == '/' {
					lx.advance()
					lx.advance()
					closed = true
					break
				}
				lx.advance()
			}
			if !closed {
				return lx.errorf(line, col, "Unexpected end of input")
			}
		default:
			return nil
		}
	}
	return nil
}

func (lx *lexer) next() (token, error) {
	if err := lx.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	if lx.pos >= len(lx.src) {
		return token{kind: tokenEOF, line: lx.line, col: lx.col}, nil
	}

	line, col := lx.line, lx.col
	ch := lx.peek(0)

	switch {
	case isIdentStart(ch):
		start := lx.pos
		for lx.pos < len(lx.src) && isIdentPart(lx.peek(0)) {
			lx.advance()
		}
		raw := lx.src[start:lx.pos]
		return token{kind: tokenIdent, raw: raw, text: raw, line: line, col: col}, nil
	case ch == '\'' || ch == '"':
		return lx.lexString(line, col)
	case isDigit(ch) || (ch == '.' && isDigit(lx.peek(1))):
		return lx.lexNumber(line, col)
	}

	switch ch {
	case '(', ')', '[', ']', '{', '}', ',', '.', ';', ':', '-':
		lx.advance()
		return token{kind: tokenPunct, raw: string(ch), line: line, col: col}, nil
	}
	return token{}, lx.errorf(line, col, "Unexpected token ILLEGAL")
}

func (lx *lexer) lexString(line, col int) (token, error) {
	quote := lx.advance()
	start := lx.pos - 1
	var b strings.Builder
	for {
		if lx.pos >= len(lx.src) {
			return token{}, lx.errorf(line, col, "Unexpected token ILLEGAL")
		}
		ch := lx.advance()
		switch ch {
		case quote:
			return token{kind: tokenString, raw: lx.src[start:lx.pos], text: b.String(), line: line, col: col}, nil
		case '\n':
			return token{}, lx.errorf(line, col, "Unexpected token ILLEGAL")
		case '\\':
			if lx.pos >= len(lx.src) {
				return token{}, lx.errorf(line, col, "Unexpected token ILLEGAL")
			}
			esc := lx.advance()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'v':
				b.WriteByte('\v')
			case '0':
				b.WriteByte(0)
			case 'u':
				if lx.pos+4 > len(lx.src) {
					return token{}, lx.errorf(lx.line, lx.col, "Unexpected token ILLEGAL")
				}
				code, err := strconv.ParseUint(lx.src[lx.pos:lx.pos+4], 16, 32)
				if err != nil {
					return token{}, lx.errorf(lx.line, lx.col, "Unexpected token ILLEGAL")
				}
				for i := 0; i < 4; i++ {
					lx.advance()
				}
				b.WriteRune(rune(code))
			case '\n':
				// line continuation
			default:
				b.WriteByte(esc)
			}
		default:
			b.WriteByte(ch)
		}
	}
}

func (lx *lexer) lexNumber(line, col int) (token, error) {
	start := lx.pos
	for lx.pos < len(lx.src) {
		ch := lx.peek(0)
		if isDigit(ch) || ch == '.' || ch == 'e' || ch == 'E' || ch == 'x' || ch == 'X' ||
			(ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F') {
			lx.advance()
			continue
		}
		if (ch == '+' || ch == '-') && (lx.src[lx.pos-1] == 'e' || lx.src[lx.pos-1] == 'E') {
			lx.advance()
			continue
		}
		break
	}
	raw := lx.src[start:lx.pos]
	var (
		num float64
		err error
	)
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		var u uint64
		u, err = strconv.ParseUint(raw[2:], 16, 64)
		num = float64(u)
	} else {
		num, err = strconv.ParseFloat(raw, 64)
	}
	if err != nil {
		return token{}, lx.errorf(line, col, "Unexpected token ILLEGAL")
	}
	if lx.pos < len(lx.src) && isIdentStart(lx.peek(0)) {
		return token{}, lx.errorf(lx.line, lx.col, "Unexpected token ILLEGAL")
	}
	return token{kind: tokenNumber, raw: raw, num: num, line: line, col: col}, nil
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
