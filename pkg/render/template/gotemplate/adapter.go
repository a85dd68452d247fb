// Package gotemplate builds template engines on github.com/goliatone/go-template
// with the filters generated JavaScript modules need.
package gotemplate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"
	gotmpl "github.com/goliatone/go-template"

	"github.com/goliatone/go-xjst/pkg/render/template"
)

var _ template.TemplateRenderer = (*gotmpl.Engine)(nil)

// New returns a go-template engine configured by options, with Filters
// registered. Either gotmpl.WithFS or gotmpl.WithBaseDir is required.
func New(options ...gotmpl.Option) (*gotmpl.Engine, error) {
	opts := make([]gotmpl.Option, 0, len(options)+1)
	opts = append(opts, gotmpl.WithTemplateFunc(Filters()))
	opts = append(opts, options...)

	engine, err := gotmpl.NewRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: %w", err)
	}
	return engine, nil
}

// Filters lists the template filters New registers:
//
//	jsstring  renders the input as a double-quoted JavaScript string literal
func Filters() map[string]any {
	return map[string]any{
		"jsstring": filterJSString,
	}
}

func filterJSString(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(in.String()); err != nil {
		return nil, &pongo2.Error{Sender: "filter:jsstring", OrigError: err}
	}
	return pongo2.AsSafeValue(strings.TrimSuffix(buf.String(), "\n")), nil
}
