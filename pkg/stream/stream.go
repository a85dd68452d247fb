// Package stream provides the push-stream plumbing the transforms plug
// into. Streams are driven by the consumer: each Next call pulls exactly one
// upstream file through a transform before the next one is accepted.
package stream

import (
	"context"
	"errors"
	"io"

	"github.com/goliatone/go-xjst/pkg/file"
)

// Source yields files until it returns io.EOF.
type Source interface {
	Next(ctx context.Context) (*file.File, error)
}

// Push hands a file to the downstream consumer.
type Push func(*file.File)

// Transform processes one file, pushing zero or more files downstream. A
// returned error is fatal for the stream it runs in.
type Transform interface {
	Transform(ctx context.Context, f *file.File, push Push) error
}

// Flusher is implemented by transforms that emit trailing files once the
// upstream source is exhausted.
type Flusher interface {
	Flush(ctx context.Context, push Push) error
}

// TransformFunc adapts a function into a Transform.
type TransformFunc func(ctx context.Context, f *file.File, push Push) error

// Transform delegates to the underlying function.
func (fn TransformFunc) Transform(ctx context.Context, f *file.File, push Push) error {
	return fn(ctx, f, push)
}

// SourceFunc adapts a function into a Source.
type SourceFunc func(ctx context.Context) (*file.File, error)

// Next delegates to the underlying function.
func (fn SourceFunc) Next(ctx context.Context) (*file.File, error) {
	return fn(ctx)
}

type sliceSource struct {
	files []*file.File
	pos   int
}

// FromFiles returns a Source replaying the given files in order.
func FromFiles(files ...*file.File) Source {
	return &sliceSource{files: files}
}

func (s *sliceSource) Next(ctx context.Context) (*file.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.files) {
		return nil, io.EOF
	}
	f := s.files[s.pos]
	s.pos++
	return f, nil
}

// Failing returns a Source that yields the given files and then err instead
// of io.EOF.
func Failing(err error, files ...*file.File) Source {
	inner := &sliceSource{files: files}
	return SourceFunc(func(ctx context.Context) (*file.File, error) {
		f, nextErr := inner.Next(ctx)
		if errors.Is(nextErr, io.EOF) {
			return nil, err
		}
		return f, nextErr
	})
}

type pipe struct {
	src     Source
	t       Transform
	queue   []*file.File
	err     error
	flushed bool
}

// Pipe runs every file from src through t. Once t or src fails the pipe
// stays failed and keeps returning that error.
func Pipe(src Source, t Transform) Source {
	return &pipe{src: src, t: t}
}

func (p *pipe) push(f *file.File) {
	if f != nil {
		p.queue = append(p.queue, f)
	}
}

func (p *pipe) Next(ctx context.Context) (*file.File, error) {
	for {
		if len(p.queue) > 0 {
			f := p.queue[0]
			p.queue = p.queue[1:]
			return f, nil
		}
		if p.err != nil {
			return nil, p.err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		in, err := p.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			if flusher, ok := p.t.(Flusher); ok && !p.flushed {
				p.flushed = true
				if ferr := flusher.Flush(ctx, p.push); ferr != nil {
					p.err = ferr
				}
				continue
			}
			p.err = io.EOF
			continue
		}
		if err != nil {
			p.err = err
			continue
		}
		if terr := p.t.Transform(ctx, in, p.push); terr != nil {
			p.err = terr
		}
	}
}

// Chain pipes src through each transform in order.
func Chain(src Source, transforms ...Transform) Source {
	out := src
	for _, t := range transforms {
		if t == nil {
			continue
		}
		out = Pipe(out, t)
	}
	return out
}

// Collect drains src into a slice. Files read before a failure are returned
// alongside the error.
func Collect(ctx context.Context, src Source) ([]*file.File, error) {
	var out []*file.File
	err := Drain(ctx, src, func(f *file.File) error {
		out = append(out, f)
		return nil
	})
	return out, err
}

// Drain hands every file from src to sink until io.EOF.
func Drain(ctx context.Context, src Source, sink func(*file.File) error) error {
	if src == nil {
		return errors.New("stream: source is nil")
	}
	for {
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := sink(f); err != nil {
			return err
		}
	}
}
