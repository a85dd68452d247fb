package evaluate

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/goliatone/go-xjst/pkg/bemxjst"
)

// toJSON rewrites a BEMJSON source file as JSON. It accepts an optional
// `module.exports =` or `exports =` prefix, wrapping parentheses, trailing
// semicolons, comments, bare or numeric keys, single-quoted strings with
// JavaScript escapes, trailing commas, hex numbers and undefined. Blank
// input returns "".
func toJSON(src string) (string, error) {
	tokens, err := scanLiteral(src)
	if err != nil {
		return "", err
	}
	p := &literalParser{tokens: tokens}

	p.skipExportPrefix()
	if p.peek().kind == litEOF {
		return "", nil
	}
	if err := p.value(); err != nil {
		return "", err
	}
	for p.isPunct(";") {
		p.pos++
	}
	if tok := p.peek(); tok.kind != litEOF {
		return "", p.unexpected(tok)
	}
	return p.out.String(), nil
}

type litKind int

const (
	litEOF litKind = iota
	litIdent
	litString
	litNumber
	litPunct
)

type litToken struct {
	kind litKind
	text string
	line int
	col  int
}

type literalParser struct {
	tokens []litToken
	pos    int
	out    strings.Builder
}

func (p *literalParser) peek() litToken {
	return p.peekAt(0)
}

func (p *literalParser) peekAt(offset int) litToken {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *literalParser) next() litToken {
	tok := p.peek()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *literalParser) isPunct(s string) bool {
	tok := p.peek()
	return tok.kind == litPunct && tok.text == s
}

func (p *literalParser) expect(s string) error {
	if !p.isPunct(s) {
		return p.unexpected(p.peek())
	}
	p.next()
	return nil
}

func (p *literalParser) unexpected(tok litToken) error {
	desc := "Unexpected token " + tok.text
	switch tok.kind {
	case litEOF:
		desc = "Unexpected end of input"
	case litIdent:
		desc = fmt.Sprintf("Unexpected identifier %q", tok.text)
	case litString:
		desc = "Unexpected string"
	case litNumber:
		desc = "Unexpected number"
	}
	return &bemxjst.SyntaxError{Description: desc, LineNumber: tok.line, Column: tok.col}
}

func (p *literalParser) skipExportPrefix() {
	first := p.peek()
	if first.kind != litIdent {
		return
	}
	switch {
	case first.text == "module" && p.peekAt(1).text == "." &&
		p.peekAt(2).text == "exports" && p.peekAt(3).text == "=":
		p.pos += 4
	case first.text == "exports" && p.peekAt(1).text == "=":
		p.pos += 2
	}
}

func (p *literalParser) value() error {
	tok := p.next()
	switch tok.kind {
	case litString:
		writeJSONString(&p.out, tok.text)
		return nil
	case litNumber:
		p.out.WriteString(tok.text)
		return nil
	case litIdent:
		switch tok.text {
		case "true", "false", "null":
			p.out.WriteString(tok.text)
		case "undefined":
			p.out.WriteString("null")
		default:
			return p.unexpected(tok)
		}
		return nil
	case litPunct:
		switch tok.text {
		case "{":
			return p.object()
		case "[":
			return p.array()
		case "(":
			if err := p.value(); err != nil {
				return err
			}
			return p.expect(")")
		case "-", "+":
			num := p.peek()
			if num.kind != litNumber {
				return p.unexpected(num)
			}
			p.next()
			if tok.text == "-" && num.text != "0" {
				p.out.WriteByte('-')
			}
			p.out.WriteString(num.text)
			return nil
		}
	}
	return p.unexpected(tok)
}

func (p *literalParser) object() error {
	p.out.WriteByte('{')
	first := true
	for !p.isPunct("}") {
		if !first {
			p.out.WriteString(", ")
		}
		first = false

		key := p.next()
		switch key.kind {
		case litIdent, litString, litNumber:
			writeJSONString(&p.out, key.text)
		default:
			return p.unexpected(key)
		}
		if err := p.expect(":"); err != nil {
			return err
		}
		p.out.WriteString(": ")
		if err := p.value(); err != nil {
			return err
		}
		if p.isPunct(",") {
			p.next()
			continue
		}
		if !p.isPunct("}") {
			return p.unexpected(p.peek())
		}
	}
	p.next()
	p.out.WriteByte('}')
	return nil
}

func (p *literalParser) array() error {
	p.out.WriteByte('[')
	first := true
	for !p.isPunct("]") {
		if !first {
			p.out.WriteString(", ")
		}
		first = false

		if err := p.value(); err != nil {
			return err
		}
		if p.isPunct(",") {
			p.next()
			continue
		}
		if !p.isPunct("]") {
			return p.unexpected(p.peek())
		}
	}
	p.next()
	p.out.WriteByte(']')
	return nil
}

func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

type literalScanner struct {
	src  string
	pos  int
	line int
	col  int
}

func scanLiteral(src string) ([]litToken, error) {
	sc := &literalScanner{src: src, line: 1, col: 1}
	var tokens []litToken
	for {
		tok, err := sc.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == litEOF {
			return tokens, nil
		}
	}
}

func (sc *literalScanner) errorf(line, col int, format string, args ...any) error {
	return &bemxjst.SyntaxError{Description: fmt.Sprintf(format, args...), LineNumber: line, Column: col}
}

func (sc *literalScanner) peek(offset int) byte {
	if sc.pos+offset >= len(sc.src) {
		return 0
	}
	return sc.src[sc.pos+offset]
}

func (sc *literalScanner) advance() byte {
	ch := sc.src[sc.pos]
	sc.pos++
	if ch == '\n' {
		sc.line++
		sc.col = 1
	} else {
		sc.col++
	}
	return ch
}

func (sc *literalScanner) skipSpaceAndComments() error {
	for sc.pos < len(sc.src) {
		ch := sc.peek(0)
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v':
			sc.advance()
		case ch == '/' && sc.peek(1) == '/':
			for sc.pos < len(sc.src) && sc.peek(0) != '\n' {
				sc.advance()
			}
		case ch == '/' && sc.peek(1) == '*':
			line, col := sc.line, sc.col
			sc.advance()
			sc.advance()
			for {
				if sc.pos >= len(sc.src) {
					return sc.errorf(line, col, "Unterminated comment")
				}
				if sc.peek(0) == '*' && sc.peek(1) == '/' {
					sc.advance()
					sc.advance()
					break
				}
				sc.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func (sc *literalScanner) next() (litToken, error) {
	if err := sc.skipSpaceAndComments(); err != nil {
		return litToken{}, err
	}
	if sc.pos >= len(sc.src) {
		return litToken{kind: litEOF, line: sc.line, col: sc.col}, nil
	}

	line, col := sc.line, sc.col
	ch := sc.peek(0)
	switch {
	case isLiteralIdentStart(ch):
		start := sc.pos
		for sc.pos < len(sc.src) && (isLiteralIdentStart(sc.peek(0)) || isLiteralDigit(sc.peek(0))) {
			sc.advance()
		}
		return litToken{kind: litIdent, text: sc.src[start:sc.pos], line: line, col: col}, nil
	case ch == '\'' || ch == '"':
		return sc.scanString(line, col)
	case isLiteralDigit(ch) || (ch == '.' && isLiteralDigit(sc.peek(1))):
		return sc.scanNumber(line, col)
	}

	switch ch {
	case '{', '}', '[', ']', '(', ')', ',', ':', ';', '.', '=', '-', '+':
		sc.advance()
		return litToken{kind: litPunct, text: string(ch), line: line, col: col}, nil
	}
	r, _ := utf8.DecodeRuneInString(sc.src[sc.pos:])
	return litToken{}, sc.errorf(line, col, "Unexpected token %s", string(r))
}

func (sc *literalScanner) scanString(line, col int) (litToken, error) {
	quote := sc.advance()
	var b strings.Builder
	for {
		if sc.pos >= len(sc.src) || sc.peek(0) == '\n' {
			return litToken{}, sc.errorf(line, col, "Unterminated string")
		}
		ch := sc.advance()
		if ch == quote {
			return litToken{kind: litString, text: b.String(), line: line, col: col}, nil
		}
		if ch != '\\' {
			b.WriteByte(ch)
			continue
		}
		if sc.pos >= len(sc.src) {
			return litToken{}, sc.errorf(line, col, "Unterminated string")
		}
		escLine, escCol := sc.line, sc.col
		esc := sc.advance()
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
		case '\r':
			if sc.peek(0) == '\n' {
				sc.advance()
			}
		case '\n':
		case 'x':
			code, err := sc.hex(2)
			if err != nil {
				return litToken{}, sc.errorf(escLine, escCol, "Invalid hexadecimal escape sequence")
			}
			b.WriteRune(rune(code))
		case 'u':
			r, err := sc.unicodeEscape()
			if err != nil {
				return litToken{}, sc.errorf(escLine, escCol, "Invalid Unicode escape sequence")
			}
			b.WriteRune(r)
		default:
			b.WriteByte(esc)
		}
	}
}

func (sc *literalScanner) hex(n int) (uint64, error) {
	if sc.pos+n > len(sc.src) {
		return 0, strconv.ErrSyntax
	}
	code, err := strconv.ParseUint(sc.src[sc.pos:sc.pos+n], 16, 32)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		sc.advance()
	}
	return code, nil
}

// unicodeEscape reads the part after `\u`: four hex digits or a braced code
// point. A surrogate pair spread over two escapes decodes to one rune.
func (sc *literalScanner) unicodeEscape() (rune, error) {
	if sc.peek(0) == '{' {
		end := strings.IndexByte(sc.src[sc.pos:], '}')
		if end < 2 {
			return 0, strconv.ErrSyntax
		}
		code, err := strconv.ParseUint(sc.src[sc.pos+1:sc.pos+end], 16, 32)
		if err != nil || code > utf8.MaxRune {
			return 0, strconv.ErrSyntax
		}
		for i := 0; i <= end; i++ {
			sc.advance()
		}
		return rune(code), nil
	}

	code, err := sc.hex(4)
	if err != nil {
		return 0, err
	}
	r := rune(code)
	if utf16.IsSurrogate(r) && sc.peek(0) == '\\' && sc.peek(1) == 'u' {
		save := *sc
		sc.advance()
		sc.advance()
		if low, err := sc.hex(4); err == nil {
			if pair := utf16.DecodeRune(r, rune(low)); pair != utf8.RuneError {
				return pair, nil
			}
		}
		*sc = save
	}
	return r, nil
}

// scanNumber returns the number in JSON form: hex literals are converted to
// decimal and a leading or trailing dot gets its zero.
func (sc *literalScanner) scanNumber(line, col int) (litToken, error) {
	start := sc.pos
	for sc.pos < len(sc.src) {
		ch := sc.peek(0)
		if isLiteralDigit(ch) || ch == '.' || ch == 'x' || ch == 'X' ||
			(ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F') {
			sc.advance()
			continue
		}
		if (ch == '+' || ch == '-') && (sc.src[sc.pos-1] == 'e' || sc.src[sc.pos-1] == 'E') {
			sc.advance()
			continue
		}
		break
	}
	raw := sc.src[start:sc.pos]
	if sc.pos < len(sc.src) && isLiteralIdentStart(sc.peek(0)) {
		return litToken{}, sc.errorf(sc.line, sc.col, "Unexpected token %s", string(sc.peek(0)))
	}

	var text string
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		n, err := strconv.ParseUint(raw[2:], 16, 64)
		if err != nil {
			return litToken{}, sc.errorf(line, col, "Invalid number %s", raw)
		}
		text = strconv.FormatUint(n, 10)
	} else {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return litToken{}, sc.errorf(line, col, "Invalid number %s", raw)
		}
		if f == float64(int64(f)) && !strings.ContainsAny(raw, ".eE") {
			text = strings.TrimLeft(raw, "0")
			if text == "" {
				text = "0"
			}
		} else {
			text = strconv.FormatFloat(f, 'g', -1, 64)
			if !strings.ContainsAny(text, ".e") {
				text += ".0"
			}
		}
	}
	return litToken{kind: litNumber, text: text, line: line, col: col}, nil
}

func isLiteralIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isLiteralDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
