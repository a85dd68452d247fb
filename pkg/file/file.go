// Package file models the unit that flows through the compile and render
// transforms: a path plus null, buffered or streamed contents.
package file

import (
	"io"
	"path/filepath"
	"strings"
	"sync"
)

type kind int

const (
	kindNull kind = iota
	kindBuffer
	kindStream
)

// File is exclusively owned by the transform processing it. Path and
// buffered contents are mutable; the null/buffer/stream classification is
// fixed at construction.
type File struct {
	// Base is the directory Relative is computed against. Empty means paths
	// are reported as given.
	Base string
	Path string

	kind     kind
	contents []byte
	stream   io.Reader

	dataMu  sync.Mutex
	data    any
	hasData bool
}

// New returns a file without contents.
func New(path string) *File {
	return &File{Path: path, kind: kindNull}
}

// NewBuffer returns a file holding buffered contents.
func NewBuffer(path string, contents []byte) *File {
	return &File{Path: path, kind: kindBuffer, contents: contents}
}

// NewStream returns a file whose contents are an unbuffered stream.
func NewStream(path string, r io.Reader) *File {
	return &File{Path: path, kind: kindStream, stream: r}
}

func (f *File) IsNull() bool   { return f.kind == kindNull }
func (f *File) IsBuffer() bool { return f.kind == kindBuffer }
func (f *File) IsStream() bool { return f.kind == kindStream }

// Contents returns the buffered bytes; nil for null and stream files.
func (f *File) Contents() []byte {
	return f.contents
}

// Stream returns the reader backing a stream file.
func (f *File) Stream() io.Reader {
	return f.stream
}

// SetContents replaces buffered contents. Calling it on a stream or null
// file turns it into a buffer file.
func (f *File) SetContents(b []byte) {
	f.kind = kindBuffer
	f.contents = b
	f.stream = nil
}

// String returns the buffered contents as text.
func (f *File) String() string {
	return string(f.contents)
}

// Basename is the last element of Path.
func (f *File) Basename() string {
	return filepath.Base(f.Path)
}

// Stem is the basename up to the first dot: "page.bemhtml.js" -> "page".
func (f *File) Stem() string {
	name := f.Basename()
	if idx := strings.Index(name, "."); idx >= 0 {
		return name[:idx]
	}
	return name
}

// Relative reports Path relative to Base when Base is set.
func (f *File) Relative() string {
	if f.Base == "" {
		return f.Path
	}
	rel, err := filepath.Rel(f.Base, f.Path)
	if err != nil {
		return f.Path
	}
	return rel
}

// Data returns the memoised evaluated payload, running eval on first use.
// Failed evaluations are not cached.
func (f *File) Data(eval func(text, origin string) (any, error)) (any, error) {
	f.dataMu.Lock()
	defer f.dataMu.Unlock()

	if f.hasData {
		return f.data, nil
	}
	value, err := eval(string(f.contents), f.Path)
	if err != nil {
		return nil, err
	}
	f.data = value
	f.hasData = true
	return value, nil
}

// SetData seeds the memoised payload, skipping evaluation.
func (f *File) SetData(value any) {
	f.dataMu.Lock()
	defer f.dataMu.Unlock()
	f.data = value
	f.hasData = true
}

// Clone returns a shallow copy with its own contents slice and no memoised
// data.
func (f *File) Clone() *File {
	out := &File{
		Base:   f.Base,
		Path:   f.Path,
		kind:   f.kind,
		stream: f.stream,
	}
	if f.contents != nil {
		out.contents = append([]byte(nil), f.contents...)
	}
	return out
}
