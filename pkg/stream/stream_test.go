package stream_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xjst/pkg/file"
	"github.com/goliatone/go-xjst/pkg/stream"
)

func paths(files []*file.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestPipe_FansOutAndPreservesOrder(t *testing.T) {
	dup := stream.TransformFunc(func(_ context.Context, f *file.File, push stream.Push) error {
		push(f)
		push(file.NewBuffer(f.Path+".copy", f.Contents()))
		return nil
	})

	src := stream.Pipe(stream.FromFiles(file.New("a"), file.New("b")), dup)
	got, err := stream.Collect(context.Background(), src)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	want := []string{"a", "a.copy", "b", "b.copy"}
	if diff := cmp.Diff(want, paths(got)); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestPipe_StaysFailed(t *testing.T) {
	boom := errors.New("boom")
	seen := 0
	failOnB := stream.TransformFunc(func(_ context.Context, f *file.File, push stream.Push) error {
		seen++
		if f.Path == "b" {
			return boom
		}
		push(f)
		return nil
	})

	src := stream.Pipe(stream.FromFiles(file.New("a"), file.New("b"), file.New("c")), failOnB)
	got, err := stream.Collect(context.Background(), src)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, paths(got)); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected sticky error, got %v", err)
	}
	if seen != 2 {
		t.Fatalf("transform saw %d files, want 2", seen)
	}
}

type flushing struct{ count int }

func (f *flushing) Transform(_ context.Context, _ *file.File, _ stream.Push) error {
	f.count++
	return nil
}

func (f *flushing) Flush(_ context.Context, push stream.Push) error {
	push(file.NewBuffer("summary", []byte(strings.Repeat("x", f.count))))
	return nil
}

func TestPipe_Flush(t *testing.T) {
	got, err := stream.Collect(context.Background(), stream.Pipe(stream.FromFiles(file.New("a"), file.New("b")), &flushing{}))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 1 || got[0].String() != "xx" {
		t.Fatalf("unexpected flush output: %v", paths(got))
	}
}

func TestFailingSource(t *testing.T) {
	boom := errors.New("drain failed")
	got, err := stream.Collect(context.Background(), stream.Failing(boom, file.New("a")))
	if !errors.Is(err, boom) {
		t.Fatalf("expected drain error, got %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected partial result, got %d files", len(got))
	}
}

func TestFromPathsAndWriter(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "page.bemhtml")
	if err := os.WriteFile(in, []byte("block('page')"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	files, err := stream.Collect(context.Background(), stream.FromPaths(in))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(files) != 1 || files[0].String() != "block('page')" {
		t.Fatalf("unexpected files: %v", paths(files))
	}

	out := filepath.Join(dir, "out")
	w, err := stream.NewWriter(out)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	files[0].Path = "page.bemhtml.js"
	dest, err := w.Write(context.Background(), files[0])
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if dest != filepath.Join(out, "page.bemhtml.js") {
		t.Fatalf("dest = %q", dest)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "block('page')" {
		t.Fatalf("read back = %q, %v", data, err)
	}
}

func TestWriter_RejectsEscapingPath(t *testing.T) {
	w, err := stream.NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	_, err = w.Write(context.Background(), file.NewBuffer("..", []byte("x")))
	if !errors.Is(err, stream.ErrPathInvalid) {
		t.Fatalf("expected ErrPathInvalid, got %v", err)
	}
}

func TestGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.bemhtml", "a.bemhtml", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	got, err := stream.Glob(filepath.Join(dir, "*.bemhtml"), filepath.Join(dir, "a.bemhtml"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	want := []string{filepath.Join(dir, "a.bemhtml"), filepath.Join(dir, "b.bemhtml")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("glob mismatch (-want +got):\n%s", diff)
	}
}
