package bemxjst_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xjst/pkg/bemxjst"
)

const pageSource = `block('page')(tag()('h1'), content()('Hello, world!'));`

func mustTemplate(t *testing.T, engine *bemxjst.Engine, source string, options map[string]any) *bemxjst.Template {
	t.Helper()

	code, err := engine.Generate(source, options)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	tmpl, err := bemxjst.Load(code)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return tmpl
}

func applyHTML(t *testing.T, tmpl *bemxjst.Template, data any) string {
	t.Helper()

	out, err := tmpl.Apply(data)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	html, ok := out.(string)
	if !ok {
		t.Fatalf("apply returned %T, want string", out)
	}
	return html
}

func TestBEMHTML_RoundTrip(t *testing.T) {
	tmpl := mustTemplate(t, bemxjst.BEMHTML, pageSource, nil)

	got := applyHTML(t, tmpl, map[string]any{"block": "page"})
	if want := `<h1 class="page">Hello, world!</h1>`; got != want {
		t.Fatalf("html mismatch\nwant: %s\n got: %s", want, got)
	}
}

func TestBEMHTML_Rendering(t *testing.T) {
	cases := []struct {
		name    string
		source  string
		options map[string]any
		data    any
		want    string
	}{
		{
			name: "elements inherit block",
			source: `block('list')(tag()('ul'));
block('list').elem('item')(tag()('li'));`,
			data: map[string]any{
				"block": "list",
				"content": []any{
					map[string]any{"elem": "item", "content": "a"},
					map[string]any{"elem": "item", "elemMods": map[string]any{"last": true}, "content": "b"},
				},
			},
			want: `<ul class="list"><li class="list__item">a</li><li class="list__item list__item_last">b</li></ul>`,
		},
		{
			name:   "mods mix js and cls",
			source: `block('button')(tag()('button'), attrs()({type: 'button'}), js()(true))`,
			data: map[string]any{
				"block":   "button",
				"mods":    map[string]any{"size": "l", "disabled": true},
				"mix":     map[string]any{"block": "form", "elem": "submit"},
				"cls":     "extra",
				"content": "Go",
			},
			want: `<button class="button button_disabled button_size_l form__submit i-bem extra" data-bem='{"button":{}}' type="button">Go</button>`,
		},
		{
			name:   "escaping",
			source: `block('t')(tag()('div'))`,
			data: map[string]any{
				"block":   "t",
				"attrs":   map[string]any{"title": `say "hi"`},
				"content": "<a & b>",
			},
			want: `<div class="t" title="say &quot;hi&quot;">&lt;a &amp; b&gt;</div>`,
		},
		{
			name:   "void tag",
			source: ``,
			data:   map[string]any{"tag": "br"},
			want:   `<br>`,
		},
		{
			name:    "void tag xhtml",
			source:  ``,
			options: map[string]any{"xhtml": true},
			data:    map[string]any{"tag": "br"},
			want:    `<br/>`,
		},
		{
			name:   "mod predicate matches",
			source: `block('b').mod('theme', 'dark')(tag()('section'))`,
			data:   map[string]any{"block": "b", "mods": map[string]any{"theme": "dark"}},
			want:   `<section class="b b_theme_dark"></section>`,
		},
		{
			name:   "mod predicate misses",
			source: `block('b').mod('theme', 'dark')(tag()('section'))`,
			data:   map[string]any{"block": "b", "mods": map[string]any{"theme": "light"}},
			want:   `<div class="b b_theme_light"></div>`,
		},
		{
			name: "later templates win",
			source: `block('b')(tag()('p'));
block('b')(tag()('span'))`,
			data: map[string]any{"block": "b"},
			want: `<span class="b"></span>`,
		},
		{
			name:   "bem disabled",
			source: `block('b')(bem()(false))`,
			data:   map[string]any{"block": "b"},
			want:   `<div></div>`,
		},
		{
			name:   "tag false renders content only",
			source: ``,
			data:   map[string]any{"block": "b", "tag": false, "content": "x"},
			want:   `x`,
		},
		{
			name:   "raw html node",
			source: ``,
			data:   []any{map[string]any{"html": "<b>x</b>"}, "y", 3},
			want:   `<b>x</b>y3`,
		},
		{
			name:   "object body shorthand",
			source: `block('link')({tag: 'a', attrs: {href: '#'}})`,
			data:   map[string]any{"block": "link", "content": "x"},
			want:   `<a class="link" href="#">x</a>`,
		},
		{
			name:   "prepend and append content",
			source: `block('b')(prependContent()('['), appendContent()(']'))`,
			data:   map[string]any{"block": "b", "content": "x"},
			want:   `<div class="b">[x]</div>`,
		},
		{
			name:   "block template does not match elements",
			source: `block('b')(tag()('p'))`,
			data:   map[string]any{"block": "b", "content": map[string]any{"elem": "e"}},
			want:   `<p class="b"><div class="b__e"></div></p>`,
		},
		{
			name:    "custom naming",
			source:  `block('b').elem('e')(tag()('i'))`,
			options: map[string]any{"naming": map[string]any{"elem": "-", "mod": "--"}},
			data:    map[string]any{"block": "b", "content": map[string]any{"elem": "e", "elemMods": map[string]any{"x": "y"}}},
			want:    `<div class="b"><i class="b-e b-e--x--y"></i></div>`,
		},
		{
			name: "nested subject chains",
			source: `block('card')(
  tag()('article'),
  elem('title')(tag()('h2')),
  mod('wide', true)(addAttrs()({'data-wide': 'yes'}))
)`,
			data: map[string]any{
				"block":   "card",
				"mods":    map[string]any{"wide": true},
				"content": map[string]any{"elem": "title", "content": "T"},
			},
			want: `<article class="card card_wide" data-wide="yes"><h2 class="card__title">T</h2></article>`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tmpl := mustTemplate(t, bemxjst.BEMHTML, tc.source, tc.options)
			got := applyHTML(t, tmpl, tc.data)
			if got != tc.want {
				t.Fatalf("html mismatch\nwant: %s\n got: %s", tc.want, got)
			}
		})
	}
}

func TestBEMTREE_ExpandsContent(t *testing.T) {
	tmpl := mustTemplate(t, bemxjst.BEMTREE, `block('page')(content()([{elem: 'head'}, {elem: 'body'}]))`, nil)

	data := map[string]any{"block": "page"}
	got, err := tmpl.Apply(data)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	want := map[string]any{
		"block": "page",
		"content": []any{
			map[string]any{"elem": "head"},
			map[string]any{"elem": "body"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
	if _, mutated := data["content"]; mutated {
		t.Fatalf("input data was mutated: %v", data)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := bemxjst.BEMHTML.Generate(pageSource, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := bemxjst.BEMHTML.Generate(pageSource, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a != b {
		t.Fatalf("generated code differs between runs:\n%s\n%s", a, b)
	}
	if !bemxjst.IsProgram(a) {
		t.Fatalf("generated code is not recognised as a program: %s", a)
	}
}

func TestGenerate_SyntaxErrors(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   bemxjst.SyntaxError
	}{
		{
			name:   "double comma",
			source: `block('page')(tag()('h1'),, content()('x'))`,
			want:   bemxjst.SyntaxError{Description: "Unexpected token ,", LineNumber: 1, Column: 27},
		},
		{
			name:   "unknown predicate",
			source: `block('b')(foo()('x'))`,
			want:   bemxjst.SyntaxError{Description: `Unknown predicate "foo"`, LineNumber: 1, Column: 12},
		},
		{
			name:   "unterminated call",
			source: `block('b'`,
			want:   bemxjst.SyntaxError{Description: "Unexpected end of input", LineNumber: 1, Column: 10},
		},
		{
			name:   "function body",
			source: "block('b')(\n  content()(function() { return 1; })\n)",
			want:   bemxjst.SyntaxError{Description: "Function bodies are not supported", LineNumber: 2, Column: 13},
		},
		{
			name:   "illegal character",
			source: "block('b')(\n  tag()(#)\n)",
			want:   bemxjst.SyntaxError{Description: "Unexpected token ILLEGAL", LineNumber: 2, Column: 9},
		},
		{
			name:   "missing block",
			source: `elem('e')(tag()('i'))`,
			want:   bemxjst.SyntaxError{Description: "Template has no block() predicate", LineNumber: 1, Column: 1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := bemxjst.BEMHTML.Generate(tc.source, nil)
			var syntaxErr *bemxjst.SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("expected *SyntaxError, got %v", err)
			}
			if diff := cmp.Diff(tc.want, *syntaxErr); diff != "" {
				t.Fatalf("syntax error mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	if e, ok := bemxjst.Lookup("BEMHTML"); !ok || e != bemxjst.BEMHTML {
		t.Fatalf("expected case-insensitive lookup of bemhtml")
	}
	if _, ok := bemxjst.Lookup("missing"); ok {
		t.Fatalf("unexpected engine for missing name")
	}

	custom, err := bemxjst.NewEngine("bemhtml-test-alias", bemxjst.RuntimeHTML)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := bemxjst.Register(custom); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := bemxjst.Register(custom); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if _, ok := bemxjst.Lookup("bemhtml-test-alias"); !ok {
		t.Fatalf("registered engine not found")
	}
}

func TestLoad_RejectsNonProgram(t *testing.T) {
	if _, err := bemxjst.Load(`{"block": "page"}`); !errors.Is(err, bemxjst.ErrNotProgram) {
		t.Fatalf("expected ErrNotProgram, got %v", err)
	}
}
