// Package compile turns template source files into compiled template code
// inside a file stream.
package compile

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/goliatone/go-xjst/pkg/bemxjst"
	"github.com/goliatone/go-xjst/pkg/bundle"
	"github.com/goliatone/go-xjst/pkg/file"
	"github.com/goliatone/go-xjst/pkg/plugin"
	"github.com/goliatone/go-xjst/pkg/stream"
)

// Generator compiles template source text into template code.
type Generator interface {
	Generate(source string, options map[string]any) (string, error)
}

// ErrorPolicy decides what happens to the stream after a file fails to
// compile.
type ErrorPolicy int

const (
	// AbortOnError fails the stream on the first broken file.
	AbortOnError ErrorPolicy = iota
	// SkipOnError drops broken files and keeps compiling.
	SkipOnError
)

// Options configure a Transform.
type Options struct {
	// Extension replaces the default "<engine>.js" output extension. A
	// leading dot is ignored.
	Extension string
	// ExportName wraps compiled code in a bundle exported under this name.
	ExportName string
	// Engine is handed to the compiler untouched. When nil the compiler
	// receives the other options instead.
	Engine map[string]any

	Logger      *slog.Logger
	ErrorPolicy ErrorPolicy
	// OnError observes files dropped under SkipOnError.
	OnError func(f *file.File, err error)
}

// Option mutates Options.
type Option func(*Options)

// WithExtension sets the output extension.
func WithExtension(ext string) Option {
	return func(o *Options) {
		o.Extension = strings.TrimSpace(ext)
	}
}

// WithExportName bundles compiled code under name.
func WithExportName(name string) Option {
	return func(o *Options) {
		o.ExportName = strings.TrimSpace(name)
	}
}

// WithEngineOptions sets the options forwarded to the compiler.
func WithEngineOptions(options map[string]any) Option {
	return func(o *Options) {
		o.Engine = options
	}
}

// WithLogger sets the logger used for per-file diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithErrorPolicy selects abort or skip behaviour for broken files.
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(o *Options) {
		o.ErrorPolicy = policy
	}
}

// OnError registers a callback for files dropped under SkipOnError.
func OnError(fn func(f *file.File, err error)) Option {
	return func(o *Options) {
		o.OnError = fn
	}
}

// Transform compiles every buffered file it receives. It is a
// stream.Transform and handles one file at a time.
type Transform struct {
	engine Generator
	name   string
	opts   Options

	mu     sync.Mutex
	failed error
}

var _ stream.Transform = (*Transform)(nil)

// New resolves engine and returns a compile transform. engine is either the
// name of a registered engine ("bemhtml", "bemtree") or a Generator.
func New(engine any, options ...Option) (*Transform, error) {
	opts := Options{Logger: slog.New(slog.DiscardHandler)}
	for _, opt := range options {
		if opt != nil {
			opt(&opts)
		}
	}

	gen, name, err := resolveEngine(engine)
	if err != nil {
		return nil, err
	}
	return &Transform{engine: gen, name: name, opts: opts}, nil
}

// BEMHTML returns a transform using the built-in bemhtml engine.
func BEMHTML(options ...Option) (*Transform, error) {
	return New("bemhtml", options...)
}

// BEMTREE returns a transform using the built-in bemtree engine.
func BEMTREE(options ...Option) (*Transform, error) {
	return New("bemtree", options...)
}

type engineNamer interface {
	EngineName() string
}

type runtimeNamer interface {
	RuntimeName() string
}

func resolveEngine(engine any) (Generator, string, error) {
	invalid := func(detail string) error {
		return plugin.New("Invalid engine: "+detail, plugin.ErrInvalidEngine)
	}

	switch e := engine.(type) {
	case string:
		name := strings.TrimSpace(e)
		if name == "" {
			return nil, "", invalid("empty engine name")
		}
		found, ok := bemxjst.Lookup(name)
		if !ok {
			return nil, "", invalid(fmt.Sprintf("unknown engine %q (known: %s)", name, strings.Join(bemxjst.Names(), ", ")))
		}
		return found, strings.ToLower(name), nil
	case Generator:
		if isNil(e) {
			return nil, "", invalid(fmt.Sprintf("%T is nil", engine))
		}
		var name string
		if n, ok := e.(engineNamer); ok {
			name = n.EngineName()
		}
		if name == "" {
			if n, ok := e.(runtimeNamer); ok {
				name = n.RuntimeName()
			}
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			name = plugin.Name
		}
		return e, name, nil
	case nil:
		return nil, "", invalid("engine is required")
	default:
		return nil, "", invalid(fmt.Sprintf("%T has no Generate method", engine))
	}
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// EngineName is the lowercased engine name used for default extensions.
func (t *Transform) EngineName() string {
	return t.name
}

// Transform compiles f and pushes it renamed to "<stem>.<extension>". Null
// files pass through, stream files fail.
func (t *Transform) Transform(ctx context.Context, f *file.File, push stream.Push) error {
	if err := t.closed(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if f.IsNull() {
		push(f)
		return nil
	}
	if f.IsStream() {
		return t.fail(f, plugin.New("Streaming not supported", plugin.ErrStreamingNotSupported).WithFile(f.Path))
	}

	source := f.String()
	code, err := t.compile(source)
	if err != nil {
		message, ok := FormatError(err, source, f.Path)
		if !ok {
			message = err.Error()
		}
		perr := &plugin.Error{Plugin: plugin.Name, Message: message, FileName: f.Path, Err: err}
		return t.fail(f, perr)
	}

	f.SetContents([]byte(code))
	f.Path = f.Stem() + "." + t.extension()
	t.opts.Logger.Debug("compiled template",
		"path", f.Path,
		"engine", t.name,
		"bytes", len(code),
	)
	push(f)
	return nil
}

func (t *Transform) compile(source string) (string, error) {
	code, err := t.engine.Generate(source, t.engineOptions())
	if err != nil {
		return "", err
	}
	if t.opts.ExportName == "" {
		return code, nil
	}
	return bundle.Render(code, bundle.Options{ExportName: t.opts.ExportName})
}

func (t *Transform) engineOptions() map[string]any {
	if t.opts.Engine != nil {
		return t.opts.Engine
	}
	out := map[string]any{}
	if t.opts.Extension != "" {
		out["extension"] = t.opts.Extension
	}
	if t.opts.ExportName != "" {
		out["exportName"] = t.opts.ExportName
	}
	return out
}

func (t *Transform) extension() string {
	if ext := strings.TrimPrefix(t.opts.Extension, "."); ext != "" {
		return ext
	}
	return t.name + ".js"
}

func (t *Transform) fail(f *file.File, err *plugin.Error) error {
	if t.opts.ErrorPolicy == SkipOnError {
		t.opts.Logger.Warn("skipping template", "path", f.Path, "error", err.Error())
		if t.opts.OnError != nil {
			t.opts.OnError(f, err)
		}
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failed == nil {
		t.failed = err
	}
	return err
}

func (t *Transform) closed() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}
