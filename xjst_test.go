package xjst_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	xjst "github.com/goliatone/go-xjst"
	"github.com/goliatone/go-xjst/pkg/compile"
	"github.com/goliatone/go-xjst/pkg/plugin"
	"github.com/goliatone/go-xjst/pkg/stream"
	"github.com/goliatone/go-xjst/pkg/testsupport"
)

const pageSource = `block('page')(tag()('h1'), content()('Hello, world!'));`

func TestRoundTrip(t *testing.T) {
	for name, options := range map[string][]compile.Option{
		"plain":   nil,
		"bundled": {compile.WithExportName("BEMHTML")},
	} {
		t.Run(name, func(t *testing.T) {
			out, err := xjst.RenderFiles(context.Background(), "bemhtml",
				[]*xjst.File{testsupport.SourceFile("page.bemhtml", pageSource)},
				[]*xjst.File{testsupport.SourceFile("page.bemjson.js", `({block: 'page'})`)},
				options,
			)
			if err != nil {
				t.Fatalf("render files: %v", err)
			}
			if len(out) != 1 {
				t.Fatalf("expected one html file, got %d", len(out))
			}
			if out[0].Path != "page.html" {
				t.Fatalf("path = %q, want page.html", out[0].Path)
			}
			if diff := cmp.Diff(`<h1 class="page">Hello, world!</h1>`, out[0].String()); diff != "" {
				t.Fatalf("html mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenderFiles_CompactObjectLiteral(t *testing.T) {
	out, err := xjst.RenderFiles(context.Background(), "bemhtml",
		[]*xjst.File{testsupport.SourceFile("page.bemhtml", ``)},
		[]*xjst.File{testsupport.SourceFile("index.bemjson.js", "// home\n({block:'page',content:'Tom\\'s\\nlist'})")},
		nil,
	)
	if err != nil {
		t.Fatalf("render files: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected one html file, got %d", len(out))
	}
	if diff := cmp.Diff("<div class=\"page\">Tom's\nlist</div>", out[0].String()); diff != "" {
		t.Fatalf("html mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderFiles_CompileErrorSurfacesOnData(t *testing.T) {
	_, err := xjst.RenderFiles(context.Background(), "bemhtml",
		[]*xjst.File{testsupport.SourceFile("page.bemhtml", `block('page'`)},
		[]*xjst.File{testsupport.SourceFile("page.bemjson.js", `{block: 'page'}`)},
		nil,
	)
	var perr *xjst.Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected plugin error, got %v", err)
	}
}

func TestFacadeConstructors(t *testing.T) {
	html, err := xjst.BEMHTML()
	if err != nil || html.EngineName() != "bemhtml" {
		t.Fatalf("bemhtml: %v %v", html, err)
	}
	tree, err := xjst.BEMTREE()
	if err != nil || tree.EngineName() != "bemtree" {
		t.Fatalf("bemtree: %v %v", tree, err)
	}
	if _, err := xjst.Compile(nil); !errors.Is(err, plugin.ErrInvalidEngine) {
		t.Fatalf("expected ErrInvalidEngine, got %v", err)
	}
	if _, err := xjst.ToHTML(context.Background(), stream.FromFiles()); err != nil {
		t.Fatalf("to html: %v", err)
	}
}
