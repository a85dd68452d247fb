package bemxjst

import (
	"fmt"
	"sort"
)

type predicateKind int

const (
	predicateSubject predicateKind = iota
	predicateMode
)

// subject predicates and the number of arguments they take.
var subjectPredicates = map[string]int{
	"block":   1,
	"elem":    1,
	"mod":     2,
	"elemMod": 2,
}

// Modes lists the template modes the runtime understands.
var Modes = []string{
	"tag", "content", "attrs", "cls", "mix", "js", "bem", "mods", "elemMods",
	"addAttrs", "addMix", "appendContent", "prependContent",
}

var modeSet = func() map[string]struct{} {
	out := make(map[string]struct{}, len(Modes))
	for _, m := range Modes {
		out[m] = struct{}{}
	}
	return out
}()

type predicate struct {
	kind predicateKind
	name string
	args []any
	line int
	col  int
}

type item struct {
	chain *chain
	value any
	line  int
	col   int
}

type chain struct {
	preds  []predicate
	bodies [][]item
}

type parser struct {
	tokens []token
	pos    int
}

// parse turns template source into its top-level chains.
func parse(src string) ([]*chain, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}

	var chains []*chain
	for {
		for p.isPunct(";") {
			p.pos++
		}
		if p.peek().kind == tokenEOF {
			return chains, nil
		}
		c, err := p.parseChain()
		if err != nil {
			return nil, err
		}
		chains = append(chains, c)

		next := p.peek()
		if next.kind == tokenEOF || p.isPunct(";") {
			continue
		}
		if next.line > p.tokens[p.pos-1].line {
			continue
		}
		return nil, p.unexpected(next)
	}
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) isPunct(raw string) bool {
	tok := p.peek()
	return tok.kind == tokenPunct && tok.raw == raw
}

func (p *parser) expect(raw string) (token, error) {
	tok := p.peek()
	if tok.kind != tokenPunct || tok.raw != raw {
		return tok, p.unexpected(tok)
	}
	p.pos++
	return tok, nil
}

func (p *parser) unexpected(tok token) *SyntaxError {
	desc := ""
	switch tok.kind {
	case tokenEOF:
		desc = "Unexpected end of input"
	case tokenIdent:
		desc = "Unexpected identifier"
	case tokenString:
		desc = "Unexpected string"
	case tokenNumber:
		desc = "Unexpected number"
	default:
		desc = "Unexpected token " + tok.raw
	}
	return &SyntaxError{Description: desc, LineNumber: tok.line, Column: tok.col}
}

func (p *parser) errorAt(tok token, format string, args ...any) *SyntaxError {
	return &SyntaxError{Description: fmt.Sprintf(format, args...), LineNumber: tok.line, Column: tok.col}
}

func (p *parser) parseChain() (*chain, error) {
	c := &chain{}

	pred, err := p.parsePredicate()
	if err != nil {
		return nil, err
	}
	c.preds = append(c.preds, pred)

	for p.isPunct(".") {
		p.pos++
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		c.preds = append(c.preds, pred)
	}

	for p.isPunct("(") {
		body, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		c.bodies = append(c.bodies, body)
	}
	return c, nil
}

func (p *parser) parsePredicate() (predicate, error) {
	tok := p.peek()
	if tok.kind != tokenIdent {
		return predicate{}, p.unexpected(tok)
	}
	if tok.text == "function" {
		return predicate{}, p.errorAt(tok, "Function bodies are not supported")
	}

	pred := predicate{name: tok.text, line: tok.line, col: tok.col}
	arity, isSubject := subjectPredicates[tok.text]
	_, isMode := modeSet[tok.text]
	switch {
	case isSubject:
		pred.kind = predicateSubject
	case isMode:
		pred.kind = predicateMode
	default:
		return predicate{}, p.errorAt(tok, "Unknown predicate %q", tok.text)
	}
	p.pos++

	if _, err := p.expect("("); err != nil {
		return predicate{}, err
	}
	for !p.isPunct(")") {
		if len(pred.args) > 0 {
			if _, err := p.expect(","); err != nil {
				return predicate{}, err
			}
		}
		value, err := p.parseValue()
		if err != nil {
			return predicate{}, err
		}
		pred.args = append(pred.args, value)
	}
	p.pos++

	if isMode && len(pred.args) != 0 {
		return predicate{}, p.errorAt(tok, "Mode %s() takes no arguments", tok.text)
	}
	if isSubject && len(pred.args) != arity {
		return predicate{}, p.errorAt(tok, "%s() expects %d argument(s), got %d", tok.text, arity, len(pred.args))
	}
	if isSubject {
		if _, ok := pred.args[0].(string); !ok {
			return predicate{}, p.errorAt(tok, "%s() name must be a string", tok.text)
		}
	}
	return pred, nil
}

func (p *parser) parseBody() ([]item, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	var items []item
	for !p.isPunct(")") {
		if len(items) > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
			// trailing comma
			if p.isPunct(")") {
				break
			}
		}
		tok := p.peek()
		if tok.kind == tokenIdent && !isLiteralKeyword(tok.text) {
			c, err := p.parseChain()
			if err != nil {
				return nil, err
			}
			items = append(items, item{chain: c, line: tok.line, col: tok.col})
			continue
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, item{value: value, line: tok.line, col: tok.col})
	}
	p.pos++
	return items, nil
}

func isLiteralKeyword(name string) bool {
	switch name {
	case "true", "false", "null", "undefined":
		return true
	}
	return false
}

func (p *parser) parseValue() (any, error) {
	tok := p.peek()
	switch tok.kind {
	case tokenString:
		p.pos++
		return tok.text, nil
	case tokenNumber:
		p.pos++
		return tok.num, nil
	case tokenIdent:
		switch tok.text {
		case "true":
			p.pos++
			return true, nil
		case "false":
			p.pos++
			return false, nil
		case "null", "undefined":
			p.pos++
			return nil, nil
		case "function":
			return nil, p.errorAt(tok, "Function bodies are not supported")
		}
		return nil, p.unexpected(tok)
	case tokenPunct:
		switch tok.raw {
		case "-":
			p.pos++
			next := p.peek()
			if next.kind != tokenNumber {
				return nil, p.unexpected(next)
			}
			p.pos++
			return -next.num, nil
		case "[":
			return p.parseArray()
		case "{":
			return p.parseObject()
		}
	}
	return nil, p.unexpected(tok)
}

func (p *parser) parseArray() (any, error) {
	p.pos++
	out := []any{}
	for !p.isPunct("]") {
		if len(out) > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
			if p.isPunct("]") {
				break
			}
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	p.pos++
	return out, nil
}

func (p *parser) parseObject() (any, error) {
	p.pos++
	out := map[string]any{}
	first := true
	for !p.isPunct("}") {
		if !first {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
			if p.isPunct("}") {
				break
			}
		}
		first = false

		tok := p.peek()
		var key string
		switch tok.kind {
		case tokenIdent, tokenString:
			key = tok.text
		case tokenNumber:
			key = tok.raw
		default:
			return nil, p.unexpected(tok)
		}
		p.pos++
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	p.pos++
	return out, nil
}

// scope accumulates subject predicates while flattening nested chains.
type scope struct {
	block    string
	elem     string
	mods     map[string]any
	elemMods map[string]any
}

func (s scope) with(pred predicate) scope {
	out := s
	switch pred.name {
	case "block":
		out.block = pred.args[0].(string)
	case "elem":
		out.elem = pred.args[0].(string)
	case "mod":
		out.mods = copyWith(s.mods, pred.args[0].(string), pred.args[1])
	case "elemMod":
		out.elemMods = copyWith(s.elemMods, pred.args[0].(string), pred.args[1])
	}
	return out
}

func copyWith(in map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	out[key] = value
	return out
}

func (s scope) rule(mode string, value any) Rule {
	return Rule{
		Block:    s.block,
		Elem:     s.elem,
		Mods:     s.mods,
		ElemMods: s.elemMods,
		Mode:     mode,
		Value:    value,
	}
}

// flatten expands nested chains into an ordered rule list.
func flatten(chains []*chain) ([]Rule, error) {
	var rules []Rule
	for _, c := range chains {
		out, err := flattenChain(c, scope{})
		if err != nil {
			return nil, err
		}
		rules = append(rules, out...)
	}
	return rules, nil
}

func flattenChain(c *chain, parent scope) ([]Rule, error) {
	current := parent
	var mode *predicate
	for i := range c.preds {
		pred := c.preds[i]
		if mode != nil {
			return nil, &SyntaxError{
				Description: fmt.Sprintf("Mode %s() must be the last predicate", mode.name),
				LineNumber:  pred.line,
				Column:      pred.col,
			}
		}
		if pred.kind == predicateMode {
			mode = &c.preds[i]
			continue
		}
		current = current.with(pred)
	}

	head := c.preds[0]
	if current.block == "" {
		return nil, &SyntaxError{
			Description: "Template has no block() predicate",
			LineNumber:  head.line,
			Column:      head.col,
		}
	}

	if mode != nil {
		if len(c.bodies) != 1 || len(c.bodies[0]) != 1 || c.bodies[0][0].chain != nil {
			return nil, &SyntaxError{
				Description: fmt.Sprintf("Mode %s() expects a single literal value", mode.name),
				LineNumber:  mode.line,
				Column:      mode.col,
			}
		}
		return []Rule{current.rule(mode.name, c.bodies[0][0].value)}, nil
	}

	var rules []Rule
	for _, body := range c.bodies {
		for _, it := range body {
			if it.chain != nil {
				out, err := flattenChain(it.chain, current)
				if err != nil {
					return nil, err
				}
				rules = append(rules, out...)
				continue
			}
			out, err := flattenObjectBody(it, current)
			if err != nil {
				return nil, err
			}
			rules = append(rules, out...)
		}
	}
	return rules, nil
}

// flattenObjectBody handles the `block('b')({ tag: 'span' })` shorthand.
func flattenObjectBody(it item, current scope) ([]Rule, error) {
	obj, ok := it.value.(map[string]any)
	if !ok {
		return nil, &SyntaxError{
			Description: "Unexpected value, expected a template or mode object",
			LineNumber:  it.line,
			Column:      it.col,
		}
	}
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rules := make([]Rule, 0, len(keys))
	for _, key := range keys {
		if _, ok := modeSet[key]; !ok {
			return nil, &SyntaxError{
				Description: fmt.Sprintf("Unknown mode %q", key),
				LineNumber:  it.line,
				Column:      it.col,
			}
		}
		rules = append(rules, current.rule(key, obj[key]))
	}
	return rules, nil
}
