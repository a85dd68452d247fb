package bundle_test

import (
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	gotmpl "github.com/goliatone/go-template"

	"github.com/goliatone/go-xjst/pkg/bundle"
	"github.com/goliatone/go-xjst/pkg/render/template/gotemplate"
	"github.com/goliatone/go-xjst/pkg/testsupport"
)

const programCode = `{"engine":"bemhtml","version":1,"options":{"elemDelim":"__","modDelim":"_"},"templates":[{"block":"page","mode":"tag","value":"h1"}]}`

func TestRender_Golden(t *testing.T) {
	out, err := bundle.Render(programCode, bundle.Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	testsupport.AssertGoldenString(t, filepath.Join("testdata", "bundle.golden"), out)
}

func TestRender_Deterministic(t *testing.T) {
	a, err := bundle.Render(programCode, bundle.Options{ExportName: "customProperty"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := bundle.Render(programCode, bundle.Options{ExportName: "customProperty"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if a != b {
		t.Fatalf("bundle output differs between calls")
	}
}

func TestRender_ExportTargets(t *testing.T) {
	out, err := bundle.Render(programCode, bundle.Options{ExportName: "customProperty"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, fragment := range []string{
		`var exportName = "customProperty";`,
		"module.exports[exportName] = xjst;",
		"modules.define(exportName, [], function(provide) {",
		"define.amd",
		"g[exportName] = xjst;",
	} {
		if !strings.Contains(out, fragment) {
			t.Errorf("bundle missing %q", fragment)
		}
	}
}

func TestRender_QuotesExportName(t *testing.T) {
	out, err := bundle.Render("{}", bundle.Options{ExportName: `a"b</script>`})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `var exportName = "a\"b</script>";`) {
		t.Fatalf("export name not emitted as a string literal:\n%s", out)
	}
}

func TestExtract(t *testing.T) {
	out, err := bundle.Render(programCode, bundle.Options{ExportName: "customProperty"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	code, name, ok := bundle.Extract(out)
	if !ok {
		t.Fatalf("expected bundle to be recognised")
	}
	if code != programCode {
		t.Fatalf("code mismatch\nwant: %s\n got: %s", programCode, code)
	}
	if name != "customProperty" {
		t.Fatalf("export name = %q, want customProperty", name)
	}

	if _, _, ok := bundle.Extract(programCode); ok {
		t.Fatalf("plain program must not be recognised as a bundle")
	}
}

func TestNewRenderer_CustomTemplate(t *testing.T) {
	engine, err := gotemplate.New(gotmpl.WithFS(fstest.MapFS{
		"bundle.tpl": {Data: []byte("export const {{ exportName }} = {{ bemxjst|safe }};")},
	}))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	r, err := bundle.NewRenderer(engine)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	out, err := r.Render(`{"a":"<b>"}`, bundle.Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if want := `export const BEMHTML = {"a":"<b>"};`; out != want {
		t.Fatalf("bundle = %q, want %q", out, want)
	}

	if _, err := bundle.NewRenderer(nil); err == nil {
		t.Fatalf("expected error for missing engine")
	}
}
