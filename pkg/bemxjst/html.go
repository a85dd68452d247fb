package bemxjst

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

var voidTags = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "command": {}, "embed": {},
	"hr": {}, "img": {}, "input": {}, "keygen": {}, "link": {}, "meta": {},
	"param": {}, "source": {}, "wbr": {},
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", `"`, "&quot;")
	jsEscaper   = strings.NewReplacer("&", "&amp;", "'", "&#39;")
)

// maxDepth guards against self-referencing content templates.
const maxDepth = 512

type htmlRenderer struct {
	prog *Program
	buf  strings.Builder
}

func renderHTML(prog *Program, data any) (string, error) {
	r := &htmlRenderer{prog: prog}
	if err := r.render(data, "", 0); err != nil {
		return "", err
	}
	return r.buf.String(), nil
}

func (r *htmlRenderer) render(node any, parentBlock string, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("bemxjst: render depth exceeds %d", maxDepth)
	}
	switch value := node.(type) {
	case nil:
		return nil
	case bool:
		return nil
	case string:
		r.buf.WriteString(textEscaper.Replace(value))
		return nil
	case []any:
		for _, child := range value {
			if err := r.render(child, parentBlock, depth+1); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		return r.renderObject(value, parentBlock, depth)
	}
	if s, ok := numberString(node); ok {
		r.buf.WriteString(s)
		return nil
	}
	return fmt.Errorf("bemxjst: cannot render value of type %T", node)
}

func (r *htmlRenderer) renderObject(node map[string]any, parentBlock string, depth int) error {
	if raw, ok := node["html"]; ok {
		if s, ok := raw.(string); ok {
			r.buf.WriteString(s)
			return nil
		}
	}

	ctx := resolveNode(r.prog, node, parentBlock)

	tag := "div"
	if v, ok := ctx.mode("tag"); ok {
		switch t := v.(type) {
		case string:
			tag = t
		case nil:
		default:
			if !truthy(v) {
				tag = ""
			}
		}
	}

	content, err := ctx.content()
	if err != nil {
		return err
	}

	childBlock := parentBlock
	if ctx.ent.block != "" {
		childBlock = ctx.ent.block
	}

	if tag == "" {
		return r.render(content, childBlock, depth+1)
	}

	r.buf.WriteByte('<')
	r.buf.WriteString(tag)

	classes, jsParams := ctx.classes()
	if len(classes) > 0 {
		r.buf.WriteString(` class="`)
		r.buf.WriteString(attrEscaper.Replace(strings.Join(classes, " ")))
		r.buf.WriteByte('"')
	}
	if len(jsParams) > 0 {
		encoded, err := marshalJS(jsParams)
		if err != nil {
			return err
		}
		r.buf.WriteString(` data-bem='`)
		r.buf.WriteString(jsEscaper.Replace(encoded))
		r.buf.WriteByte('\'')
	}

	attrs := ctx.attrs()
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch v := attrs[name].(type) {
		case nil:
			continue
		case bool:
			if !v {
				continue
			}
			r.buf.WriteByte(' ')
			r.buf.WriteString(name)
		default:
			r.buf.WriteByte(' ')
			r.buf.WriteString(name)
			r.buf.WriteString(`="`)
			r.buf.WriteString(attrEscaper.Replace(scalarString(v)))
			r.buf.WriteByte('"')
		}
	}

	if _, void := voidTags[strings.ToLower(tag)]; void {
		if r.prog.Options.XHTML {
			r.buf.WriteString("/>")
		} else {
			r.buf.WriteByte('>')
		}
		return nil
	}

	r.buf.WriteByte('>')
	if err := r.render(content, childBlock, depth+1); err != nil {
		return err
	}
	r.buf.WriteString("</")
	r.buf.WriteString(tag)
	r.buf.WriteByte('>')
	return nil
}

// nodeContext resolves modes for one BEMJSON object: templates win over the
// node's own fields.
type nodeContext struct {
	prog *Program
	node map[string]any
	ent  entity
}

func resolveNode(prog *Program, node map[string]any, parentBlock string) *nodeContext {
	block, _ := node["block"].(string)
	elem, _ := node["elem"].(string)
	if block == "" && elem != "" {
		block = parentBlock
	}
	ctx := &nodeContext{
		prog: prog,
		node: node,
		ent: entity{
			block: block,
			elem:  elem,
			mods:  asMap(node["mods"]),
		},
	}
	if elem != "" {
		ctx.ent.elemMods = asMap(node["elemMods"])
	}

	if v, ok := prog.lookup("mods", ctx.ent); ok {
		ctx.ent.mods = mergeMaps(ctx.ent.mods, asMap(v))
	}
	if elem != "" {
		if v, ok := prog.lookup("elemMods", ctx.ent); ok {
			ctx.ent.elemMods = mergeMaps(ctx.ent.elemMods, asMap(v))
		}
	}
	return ctx
}

func (c *nodeContext) mode(name string) (any, bool) {
	if v, ok := c.prog.lookup(name, c.ent); ok {
		return v, true
	}
	v, ok := c.node[name]
	return v, ok
}

func (c *nodeContext) content() (any, error) {
	content, _ := c.mode("content")
	pre, hasPre := c.prog.lookup("prependContent", c.ent)
	app, hasApp := c.prog.lookup("appendContent", c.ent)
	if !hasPre && !hasApp {
		return content, nil
	}
	out := make([]any, 0, 3)
	if hasPre {
		out = append(out, pre)
	}
	out = append(out, content)
	if hasApp {
		out = append(out, app)
	}
	return out, nil
}

func (c *nodeContext) attrs() map[string]any {
	base, _ := c.mode("attrs")
	attrs := asMap(base)
	if extra, ok := c.prog.lookup("addAttrs", c.ent); ok {
		attrs = mergeMaps(attrs, asMap(extra))
	}
	return attrs
}

func (c *nodeContext) entityClass(block, elem string) string {
	if elem == "" {
		return block
	}
	return block + c.prog.Options.ElemDelim + elem
}

func (c *nodeContext) modClasses(base string, mods map[string]any) []string {
	names := make([]string, 0, len(mods))
	for name := range mods {
		names = append(names, name)
	}
	sort.Strings(names)

	delim := c.prog.Options.ModDelim
	out := make([]string, 0, len(names))
	for _, name := range names {
		if set, isBool := mods[name].(bool); isBool {
			if set {
				out = append(out, base+delim+name)
			}
			continue
		}
		val, ok := modValue(mods[name])
		if !ok {
			continue
		}
		out = append(out, base+delim+name+delim+val)
	}
	return out
}

// classes builds the class list and the data-bem parameters.
func (c *nodeContext) classes() ([]string, map[string]any) {
	var out []string
	var jsParams map[string]any

	bem := true
	if v, ok := c.mode("bem"); ok && v != nil && !truthy(v) {
		bem = false
	}

	if bem && c.ent.block != "" {
		base := c.entityClass(c.ent.block, c.ent.elem)
		out = append(out, base)
		if c.ent.elem == "" {
			out = append(out, c.modClasses(base, c.ent.mods)...)
		} else {
			out = append(out, c.modClasses(base, c.ent.elemMods)...)
		}

		if js, ok := c.mode("js"); ok && truthy(js) {
			params := map[string]any{}
			if m, isMap := js.(map[string]any); isMap {
				params = m
			}
			jsParams = map[string]any{base: params}
		}
	}

	mix, _ := c.mode("mix")
	mixes := asList(mix)
	if extra, ok := c.prog.lookup("addMix", c.ent); ok {
		mixes = append(mixes, asList(extra)...)
	}
	for _, m := range mixes {
		out = append(out, c.mixClasses(m)...)
	}

	if len(jsParams) > 0 {
		out = append(out, "i-bem")
	}

	if cls, ok := c.mode("cls"); ok {
		if s := strings.TrimSpace(scalarString(cls)); s != "" && cls != nil {
			out = append(out, s)
		}
	}
	return dedupe(out), jsParams
}

func (c *nodeContext) mixClasses(mix any) []string {
	switch m := mix.(type) {
	case string:
		if m == "" {
			return nil
		}
		return []string{m}
	case map[string]any:
		block, _ := m["block"].(string)
		elem, _ := m["elem"].(string)
		if block == "" {
			if elem == "" {
				return nil
			}
			block = c.ent.block
		}
		if block == "" {
			return nil
		}
		base := c.entityClass(block, elem)
		out := []string{base}
		if elem == "" {
			out = append(out, c.modClasses(base, asMap(m["mods"]))...)
		} else {
			out = append(out, c.modClasses(base, asMap(m["elemMods"]))...)
		}
		return out
	}
	return nil
}

func dedupe(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func marshalJS(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("bemxjst: encode js params: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func scalarString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		if value {
			return "true"
		}
		return "false"
	}
	if s, ok := numberString(v); ok {
		return s
	}
	return fmt.Sprint(v)
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out
	}
	return nil
}

func asList(v any) []any {
	switch l := v.(type) {
	case nil:
		return nil
	case []any:
		return append([]any(nil), l...)
	default:
		return []any{l}
	}
}

func mergeMaps(base, extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return base
	}
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// truthy mirrors JavaScript truthiness for decoded values.
func truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		return value != ""
	case float64:
		return value != 0 && value == value
	case float32:
		return value != 0 && value == value
	case int:
		return value != 0
	case int64:
		return value != 0
	case int32:
		return value != 0
	case uint64:
		return value != 0
	case json.Number:
		f, err := value.Float64()
		return err != nil || f != 0
	}
	return true
}

// Truthy reports whether v is truthy under JavaScript rules.
func Truthy(v any) bool {
	return truthy(v)
}
