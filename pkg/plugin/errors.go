// Package plugin defines the tagged error values transforms use to report
// fatal conditions to the host pipeline.
package plugin

import (
	"errors"
	"strings"
)

// Name tags every error raised by the transforms in this module.
const Name = "xjst"

var (
	// ErrStreamingNotSupported is returned for files whose contents are a
	// stream instead of a buffer.
	ErrStreamingNotSupported = errors.New("streaming not supported")

	// ErrInvalidEngine rejects an engine argument that is neither a known
	// engine name nor a value exposing Generate.
	ErrInvalidEngine = errors.New("invalid engine")

	// ErrNotAStream rejects a nil template source passed to ToHTML.
	ErrNotAStream = errors.New("parameter should be a stream")

	// ErrEvaluate marks failures while evaluating data or template text.
	ErrEvaluate = errors.New("evaluation failed")

	// ErrInvalidResult is returned when a template application does not
	// produce a string.
	ErrInvalidResult = errors.New("incorrect html result")
)

// Error is the plugin error surfaced by transforms. Message carries the
// human readable text (for syntax failures the annotated source fragment),
// FileName the offending file when known and Err the underlying cause.
type Error struct {
	Plugin   string
	Message  string
	FileName string
	Err      error
}

// New builds an Error tagged with the module plugin name.
func New(message string, cause error) *Error {
	return &Error{Plugin: Name, Message: message, Err: cause}
}

// WithFile returns a copy of the error carrying the file name metadata.
func (e *Error) WithFile(name string) *Error {
	if e == nil {
		return nil
	}
	out := *e
	out.FileName = name
	return &out
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	plugin := e.Plugin
	if plugin == "" {
		plugin = Name
	}
	b.WriteString(plugin)
	b.WriteString(": ")

	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	b.WriteString(msg)
	if e.FileName != "" && !strings.Contains(msg, e.FileName) {
		b.WriteString(" (")
		b.WriteString(e.FileName)
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
