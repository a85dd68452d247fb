// Package bundle wraps compiled template code in a loader module that
// exposes it through CommonJS, YModules, AMD and the global object.
package bundle

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	gotmpl "github.com/goliatone/go-template"

	"github.com/goliatone/go-xjst/pkg/render/template"
	"github.com/goliatone/go-xjst/pkg/render/template/gotemplate"
)

// DefaultExportName is used when Options.ExportName is empty.
const DefaultExportName = "BEMHTML"

const (
	templateName = "bundle"
	codeBegin    = "/* xjst:code:begin */"
	codeEnd      = "/* xjst:code:end */"
	namePrefix   = "var exportName = "
)

//go:embed assets/bundle.tpl
var assets embed.FS

// Options control the generated module.
type Options struct {
	ExportName string
}

// Renderer renders bundles through a template engine.
type Renderer struct {
	engine template.TemplateRenderer
}

// NewRenderer uses engine to render the "bundle" template. The engine must
// provide the jsstring filter; engines from gotemplate.New do.
func NewRenderer(engine template.TemplateRenderer) (*Renderer, error) {
	if engine == nil {
		return nil, errors.New("bundle: template renderer is required")
	}
	return &Renderer{engine: engine}, nil
}

// Render wraps code. Output is a pure function of code and the export name.
func (r *Renderer) Render(code string, opts Options) (string, error) {
	name := opts.ExportName
	if name == "" {
		name = DefaultExportName
	}
	out, err := r.engine.RenderTemplate(templateName, map[string]any{
		"exportName": name,
		"bemxjst":    code,
	})
	if err != nil {
		return "", fmt.Errorf("bundle: render: %w", err)
	}
	return out, nil
}

// TemplatesFS exposes the embedded bundle template ("bundle.tpl") so hosts
// can build a Renderer around a customised copy.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		return assets
	}
	return sub
}

var defaultRenderer = sync.OnceValues(func() (*Renderer, error) {
	engine, err := gotemplate.New(
		gotmpl.WithFS(TemplatesFS()),
		gotmpl.WithExtension(".tpl"),
	)
	if err != nil {
		return nil, fmt.Errorf("bundle: template engine: %w", err)
	}
	return NewRenderer(engine)
})

// Render wraps code using the embedded bundle template, which is compiled
// on first use.
func Render(code string, opts Options) (string, error) {
	r, err := defaultRenderer()
	if err != nil {
		return "", err
	}
	return r.Render(code, opts)
}

// Extract recovers the compiled code and export name from a rendered
// bundle. ok is false when text is not a bundle.
func Extract(text string) (code, name string, ok bool) {
	start := strings.Index(text, codeBegin)
	if start < 0 {
		return "", "", false
	}
	rest := text[start+len(codeBegin):]
	end := strings.Index(rest, codeEnd)
	if end < 0 {
		return "", "", false
	}
	code = strings.TrimSpace(rest[:end])

	for _, line := range strings.Split(text[:start], "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, namePrefix) {
			continue
		}
		literal := strings.TrimSuffix(strings.TrimPrefix(line, namePrefix), ";")
		if err := json.Unmarshal([]byte(literal), &name); err != nil {
			return "", "", false
		}
		break
	}
	return code, name, true
}
