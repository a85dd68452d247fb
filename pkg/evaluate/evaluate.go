// Package evaluate turns file text into values: BEMJSON data for data files
// and callable templates for compiled template files.
package evaluate

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-xjst/pkg/bemxjst"
	"github.com/goliatone/go-xjst/pkg/bundle"
)

// Evaluator evaluates text in the context of the file at origin.
type Evaluator interface {
	Evaluate(text, origin string) (any, error)
}

// Func adapts a function into an Evaluator.
type Func func(text, origin string) (any, error)

// Evaluate delegates to the underlying function.
func (fn Func) Evaluate(text, origin string) (any, error) {
	return fn(text, origin)
}

// Applier is a loaded template that renders data.
type Applier interface {
	Apply(data any) (any, error)
}

var _ Applier = (*bemxjst.Template)(nil)

// Default recognises compiled programs, bare or bundled, and loads them as
// Appliers. Any other text is decoded as BEMJSON data.
func Default() Evaluator {
	return Func(evaluate)
}

func evaluate(text, origin string) (any, error) {
	if tmpl, ok, err := Template(text); ok {
		if err != nil {
			return nil, fmt.Errorf("evaluate: %s: %w", origin, err)
		}
		return tmpl, nil
	}
	return Data(text, origin)
}

// Template loads text as a compiled template. ok reports whether text looked
// like one at all.
func Template(text string) (Applier, bool, error) {
	code := text
	if inner, _, isBundle := bundle.Extract(text); isBundle {
		code = inner
	} else if !bemxjst.IsProgram(text) {
		return nil, false, nil
	}
	tmpl, err := bemxjst.Load(code)
	if err != nil {
		return nil, true, err
	}
	return tmpl, true, nil
}

// Data decodes BEMJSON text. It accepts JSON as well as the JavaScript
// forms BEMJSON files are usually written in: an optional
// `module.exports =` prefix, wrapping parentheses, a trailing semicolon,
// comments, bare keys and single-quoted strings. The text is rewritten as
// JSON before decoding. Blank text yields nil.
func Data(text, origin string) (any, error) {
	src, err := toJSON(stripBOM(text))
	if err != nil {
		return nil, fmt.Errorf("evaluate: %s: %w", origin, err)
	}
	if src == "" {
		return nil, nil
	}

	var out any
	if err := yaml.Unmarshal([]byte(src), &out); err != nil {
		return nil, fmt.Errorf("evaluate: %s: %w", origin, err)
	}
	return normalise(out), nil
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

// normalise converts yaml.v3 generic maps into map[string]any.
func normalise(v any) any {
	switch value := v.(type) {
	case map[string]any:
		for k, item := range value {
			value[k] = normalise(item)
		}
		return value
	case map[any]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[fmt.Sprint(k)] = normalise(item)
		}
		return out
	case []any:
		for i, item := range value {
			value[i] = normalise(item)
		}
		return value
	}
	return v
}

// ErrNotApplier is returned by AsApplier for values that cannot render.
var ErrNotApplier = errors.New("evaluate: value has no Apply method")

// AsApplier returns v as an Applier.
func AsApplier(v any) (Applier, error) {
	if a, ok := v.(Applier); ok && a != nil {
		return a, nil
	}
	return nil, fmt.Errorf("%w (%T)", ErrNotApplier, v)
}

// Truthy reports whether v is truthy under JavaScript rules: nil, false, 0,
// NaN and "" are falsy, everything else including empty objects is truthy.
func Truthy(v any) bool {
	return bemxjst.Truthy(v)
}
