// Package xjst compiles BEM-XJST templates inside file streams and renders
// HTML by applying compiled templates to BEMJSON data files.
//
//	tr, _ := xjst.BEMHTML()
//	compiled := stream.Pipe(stream.FromPaths("page.bemhtml"), tr)
//	html, _ := xjst.ToHTML(ctx, compiled)
//	out := stream.Pipe(stream.FromPaths("page.bemjson.js"), html)
package xjst

import (
	"context"

	"github.com/goliatone/go-xjst/pkg/compile"
	"github.com/goliatone/go-xjst/pkg/file"
	"github.com/goliatone/go-xjst/pkg/plugin"
	"github.com/goliatone/go-xjst/pkg/render"
	"github.com/goliatone/go-xjst/pkg/stream"
)

// File aliases file.File, the unit flowing through the transforms.
type File = file.File

// Error aliases plugin.Error so callers can errors.As without another import.
type Error = plugin.Error

// Generator aliases compile.Generator for callers plugging their own engine.
type Generator = compile.Generator

// Compile returns a compile transform for engine, a registered engine name
// or a Generator.
func Compile(engine any, options ...compile.Option) (*compile.Transform, error) {
	return compile.New(engine, options...)
}

// BEMHTML returns a compile transform for the bemhtml engine.
func BEMHTML(options ...compile.Option) (*compile.Transform, error) {
	return compile.BEMHTML(options...)
}

// BEMTREE returns a compile transform for the bemtree engine.
func BEMTREE(options ...compile.Option) (*compile.Transform, error) {
	return compile.BEMTREE(options...)
}

// ToHTML returns a transform applying every template from templates to the
// data files piped through it.
func ToHTML(ctx context.Context, templates stream.Source, options ...render.Option) (*render.Transform, error) {
	return render.ToHTML(ctx, templates, options...)
}

// RenderFiles compiles sources with engine and renders every data file
// with the result, returning the HTML files in emission order.
func RenderFiles(ctx context.Context, engine any, sources, data []*File, compileOptions []compile.Option, renderOptions ...render.Option) ([]*File, error) {
	compiler, err := compile.New(engine, compileOptions...)
	if err != nil {
		return nil, err
	}
	templates := stream.Pipe(stream.FromFiles(sources...), compiler)

	html, err := render.ToHTML(ctx, templates, renderOptions...)
	if err != nil {
		return nil, err
	}
	return stream.Collect(ctx, stream.Pipe(stream.FromFiles(data...), html))
}
