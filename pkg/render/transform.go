// Package render applies compiled templates to BEMJSON data files and emits
// the resulting HTML documents.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-xjst/pkg/evaluate"
	"github.com/goliatone/go-xjst/pkg/file"
	"github.com/goliatone/go-xjst/pkg/plugin"
	"github.com/goliatone/go-xjst/pkg/stream"
)

// Options configure a Transform.
type Options struct {
	Evaluator evaluate.Evaluator
	// Policy sanitises every emitted document when set.
	Policy *bluemonday.Policy
	Logger *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithEvaluator replaces the evaluator used for data and template files.
func WithEvaluator(ev evaluate.Evaluator) Option {
	return func(o *Options) {
		if ev != nil {
			o.Evaluator = ev
		}
	}
}

// WithHTMLPolicy sanitises emitted HTML with policy.
func WithHTMLPolicy(policy *bluemonday.Policy) Option {
	return func(o *Options) {
		o.Policy = policy
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

// Transform renders every data file it receives with each template of the
// set drained from the template source.
type Transform struct {
	opts Options

	ready     chan struct{}
	templates []*file.File
	drainErr  error

	mu     sync.Mutex
	failed error
}

var _ stream.Transform = (*Transform)(nil)

// ToHTML starts draining templates in the background and returns the
// transform. The first data file waits for the drain to finish; the set is
// never read again afterwards.
func ToHTML(ctx context.Context, templates stream.Source, options ...Option) (*Transform, error) {
	if templates == nil {
		return nil, plugin.New("Parameter should be a Stream", plugin.ErrNotAStream)
	}

	opts := Options{
		Evaluator: evaluate.Default(),
		Logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		if opt != nil {
			opt(&opts)
		}
	}

	t := &Transform{opts: opts, ready: make(chan struct{})}
	go t.drain(ctx, templates)
	return t, nil
}

func (t *Transform) drain(ctx context.Context, src stream.Source) {
	defer close(t.ready)
	t.templates, t.drainErr = stream.Collect(ctx, src)
	t.opts.Logger.Debug("templates drained", "count", len(t.templates), "error", t.drainErr)
}

// Templates waits for the drain and returns the template set.
func (t *Transform) Templates(ctx context.Context) ([]*file.File, error) {
	select {
	case <-t.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if t.drainErr != nil {
		var perr *plugin.Error
		if errors.As(t.drainErr, &perr) {
			return nil, perr
		}
		return nil, plugin.New(t.drainErr.Error(), t.drainErr)
	}
	return t.templates, nil
}

// Transform renders f with every template, pushing "<stem>.html",
// "<stem>-1.html", "<stem>-2.html" and so on in template order. Data that
// evaluates to a falsy value produces no output. Any failure is fatal for
// the stream.
func (t *Transform) Transform(ctx context.Context, f *file.File, push stream.Push) error {
	if err := t.closed(); err != nil {
		return err
	}

	if f.IsNull() {
		push(f)
		return nil
	}
	if f.IsStream() {
		return t.fail(plugin.New("Streaming not supported", plugin.ErrStreamingNotSupported).WithFile(f.Path))
	}

	data, err := f.Data(t.opts.Evaluator.Evaluate)
	if err != nil {
		return t.fail(plugin.New("Error at evaluating bemjson: "+err.Error(),
			fmt.Errorf("%w: %w", plugin.ErrEvaluate, err)).WithFile(f.Path))
	}
	if !evaluate.Truthy(data) {
		t.opts.Logger.Debug("skipping empty data", "path", f.Path)
		return nil
	}

	templates, err := t.Templates(ctx)
	if err != nil {
		var perr *plugin.Error
		if errors.As(err, &perr) {
			return t.fail(perr)
		}
		return err
	}

	stem := f.Stem()
	for i, tmpl := range templates {
		html, err := t.apply(tmpl, data)
		if err != nil {
			return t.fail(err.WithFile(f.Path))
		}
		if t.opts.Policy != nil {
			html = t.opts.Policy.Sanitize(html)
		}

		out := file.NewBuffer(stem+suffix(i)+".html", []byte(html))
		t.opts.Logger.Debug("rendered html",
			"path", out.Path,
			"template", tmpl.Path,
			"bytes", len(html),
		)
		push(out)
	}
	return nil
}

func (t *Transform) apply(tmpl *file.File, data any) (string, *plugin.Error) {
	value, err := tmpl.Data(t.opts.Evaluator.Evaluate)
	if err != nil {
		return "", plugin.New("Error at evaluating template "+tmpl.Basename()+": "+err.Error(),
			fmt.Errorf("%w: %w", plugin.ErrEvaluate, err))
	}
	applier, err := evaluate.AsApplier(value)
	if err != nil {
		return "", plugin.New("BEMHTML error: "+err.Error(), err)
	}
	result, err := applier.Apply(data)
	if err != nil {
		return "", plugin.New("BEMHTML error: "+err.Error(), err)
	}
	html, ok := result.(string)
	if !ok {
		return "", plugin.New("Incorrect html result.", plugin.ErrInvalidResult)
	}
	return html, nil
}

// suffix numbers outputs after the first: "", "-1", "-2", ...
func suffix(i int) string {
	if i == 0 {
		return ""
	}
	return fmt.Sprintf("%d", -i)
}

func (t *Transform) fail(err *plugin.Error) error {
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
