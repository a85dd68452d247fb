package compile_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/goliatone/go-xjst/pkg/compile"
)

type positionError struct {
	desc      string
	line, col int
}

func (e positionError) Error() string             { return e.desc }
func (e positionError) SyntaxDescription() string { return e.desc }
func (e positionError) SyntaxLine() int           { return e.line }
func (e positionError) SyntaxColumn() int         { return e.col }

func numberedSource(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return strings.Join(lines, "\n")
}

func TestFormatError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		source string
		want   string
	}{
		{
			name:   "middle of file",
			err:    positionError{"Unexpected token", 6, 3},
			source: numberedSource(10),
			want: strings.Join([]string{
				"Unexpected token at page.bemhtml:",
				"line 3", "line 4", "line 5", "line 6",
				"  ^",
				"line 7", "line 8", "line 9",
			}, "\n"),
		},
		{
			name:   "first line",
			err:    positionError{"Unexpected end of input", 1, 1},
			source: numberedSource(2),
			want:   "Unexpected end of input at page.bemhtml:\nline 1\n^\nline 2",
		},
		{
			name:   "last line",
			err:    positionError{"Oops", 3, 2},
			source: numberedSource(3),
			want:   "Oops at page.bemhtml:\nline 1\nline 2\nline 3\n ^",
		},
		{
			name:   "wrapped error",
			err:    fmt.Errorf("compile: %w", positionError{"Oops", 1, 5}),
			source: "line 1",
			want:   "Oops at page.bemhtml:\nline 1\n    ^",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := compile.FormatError(tc.err, tc.source, "/blocks/page/page.bemhtml")
			if !ok {
				t.Fatalf("expected error to be formatted")
			}
			if got != tc.want {
				t.Fatalf("report mismatch\nwant:\n%s\n got:\n%s", tc.want, got)
			}
		})
	}
}

func TestFormatError_PassesThroughOtherErrors(t *testing.T) {
	for _, err := range []error{
		errors.New("boom"),
		positionError{"", 1, 1},
		positionError{"x", 0, 1},
		positionError{"x", 1, 0},
	} {
		if got, ok := compile.FormatError(err, "src", "a.bemhtml"); ok {
			t.Fatalf("expected %v to be left alone, got %q", err, got)
		}
	}
}

func TestFormatError_WindowIsBounded(t *testing.T) {
	got, ok := compile.FormatError(positionError{"x", 50, 1}, numberedSource(100), "a.bemhtml")
	if !ok {
		t.Fatalf("expected report")
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 1+7+1 {
		t.Fatalf("expected header, 7 source lines and caret, got %d lines:\n%s", len(lines), got)
	}
	if lines[4] != "line 50" || lines[5] != "^" {
		t.Fatalf("caret not directly after error line:\n%s", got)
	}
}
