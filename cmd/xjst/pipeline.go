package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goliatone/go-xjst/pkg/compile"
	"github.com/goliatone/go-xjst/pkg/file"
	"github.com/goliatone/go-xjst/pkg/render"
	"github.com/goliatone/go-xjst/pkg/stream"
)

type compileJob struct {
	Engine     string
	ExportName string
	Extension  string
	Sources    []string
	KeepGoing  bool
}

type compileResult struct {
	Files  []*file.File
	Failed int
}

func (j compileJob) run(ctx context.Context, logger *slog.Logger) (compileResult, error) {
	var result compileResult

	paths, err := stream.Glob(j.Sources...)
	if err != nil {
		return result, err
	}
	if len(paths) == 0 {
		return result, errors.New("no template sources matched")
	}

	engine := j.Engine
	if engine == "" {
		engine = "bemhtml"
	}
	options := []compile.Option{
		compile.WithLogger(logger),
		compile.WithExportName(j.ExportName),
		compile.WithExtension(j.Extension),
	}
	if j.KeepGoing {
		options = append(options,
			compile.WithErrorPolicy(compile.SkipOnError),
			compile.OnError(func(*file.File, error) { result.Failed++ }),
		)
	}

	tr, err := compile.New(engine, options...)
	if err != nil {
		return result, err
	}
	result.Files, err = stream.Collect(ctx, stream.Pipe(stream.FromPaths(paths...), tr))
	return result, err
}

type htmlJob struct {
	Data     []string
	Sanitize bool
}

func (j htmlJob) run(ctx context.Context, logger *slog.Logger, templates stream.Source) ([]*file.File, error) {
	paths, err := stream.Glob(j.Data...)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no data files matched")
	}

	options := []render.Option{render.WithLogger(logger)}
	if j.Sanitize {
		options = append(options, render.WithHTMLPolicy(render.BEMPolicy()))
	}
	tr, err := render.ToHTML(ctx, templates, options...)
	if err != nil {
		return nil, err
	}
	return stream.Collect(ctx, stream.Pipe(stream.FromPaths(paths...), tr))
}

// writeFiles stores files under dir and reports each destination on out.
func writeFiles(ctx context.Context, dir string, files []*file.File, out io.Writer) error {
	w, err := stream.NewWriter(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		dest, err := w.Write(ctx, f)
		if err != nil {
			return err
		}
		if dest != "" {
			fmt.Fprintf(out, "%s %s\n", successColor.Sprint("wrote"), dest)
		}
	}
	return nil
}
