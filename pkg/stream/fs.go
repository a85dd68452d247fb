package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goliatone/go-xjst/pkg/file"
)

// ErrPathInvalid is returned by Writer for destinations escaping its root.
var ErrPathInvalid = errors.New("stream: invalid output path")

// FromPaths returns a Source that reads each path into a buffered file on
// demand.
func FromPaths(paths ...string) Source {
	return FromFS(nil, paths...)
}

// FromFS reads paths from fsys; a nil fsys reads the operating system.
func FromFS(fsys fs.FS, paths ...string) Source {
	pos := 0
	return SourceFunc(func(ctx context.Context) (*file.File, error) {
		if pos >= len(paths) {
			return nil, io.EOF
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		path := paths[pos]
		pos++

		var (
			data []byte
			err  error
		)
		if fsys != nil {
			data, err = fs.ReadFile(fsys, path)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("stream: read %s: %w", path, err)
		}
		return file.NewBuffer(path, data), nil
	})
}

// Glob expands shell patterns (no recursive walking) into a sorted,
// de-duplicated path list. Patterns without meta characters are kept as is
// so missing files surface as read errors.
func Glob(patterns ...string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		matches := []string{pattern}
		if hasMeta(pattern) {
			var err error
			matches, err = filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("stream: glob %q: %w", pattern, err)
			}
			sort.Strings(matches)
		}
		for _, match := range matches {
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = struct{}{}
			out = append(out, match)
		}
	}
	return out, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[\`)
}

// Writer persists buffered files under Root, flattening them to their
// basename. Null files are skipped.
type Writer struct {
	Root     string
	PermFile os.FileMode
	PermDir  os.FileMode
}

// NewWriter returns a Writer rooted at dir.
func NewWriter(dir string) (*Writer, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("stream: output dir is required: %w", os.ErrInvalid)
	}
	return &Writer{Root: dir, PermFile: 0o644, PermDir: 0o755}, nil
}

// Write stores f and returns the destination path.
func (w *Writer) Write(ctx context.Context, f *file.File) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	if f == nil || f.IsNull() {
		return "", nil
	}
	if f.IsStream() {
		return "", fmt.Errorf("stream: write %s: contents are not buffered", f.Path)
	}

	dest, err := w.mapPath(f.Relative())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), w.PermDir); err != nil {
		return "", fmt.Errorf("stream: mkdir %s: %w", filepath.Dir(dest), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("stream: create temp for %s: %w", dest, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(f.Contents()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("stream: write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("stream: close %s: %w", dest, err)
	}
	if err := os.Chmod(tmpName, w.PermFile); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("stream: chmod %s: %w", dest, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("stream: rename %s: %w", dest, err)
	}
	return dest, nil
}

// Sink adapts the writer for Drain.
func (w *Writer) Sink(ctx context.Context) func(*file.File) error {
	return func(f *file.File) error {
		_, err := w.Write(ctx, f)
		return err
	}
}

func (w *Writer) mapPath(rel string) (string, error) {
	name := filepath.Base(filepath.Clean(rel))
	if name == "." || name == ".." || name == "" || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrPathInvalid, rel)
	}
	return filepath.Join(w.Root, name), nil
}
