package compile

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// SyntaxReporter is implemented by compiler errors that carry a source
// position.
type SyntaxReporter interface {
	SyntaxDescription() string
	SyntaxLine() int
	SyntaxColumn() int
}

const contextLines = 3

// FormatError renders a syntax error as its description, the file basename
// and a fragment of source around the failing line with a caret under the
// column. ok is false when err carries no position, in which case callers
// keep the original error.
func FormatError(err error, source, filePath string) (report string, ok bool) {
	var syntax SyntaxReporter
	if !errors.As(err, &syntax) {
		return "", false
	}
	desc, line, col := syntax.SyntaxDescription(), syntax.SyntaxLine(), syntax.SyntaxColumn()
	if desc == "" || line <= 0 || col <= 0 {
		return "", false
	}

	lines := strings.Split(source, "\n")
	row := min(line-1, len(lines)-1)
	start := max(row-contextLines, 0)
	end := min(row+contextLines+1, len(lines))

	fragment := make([]string, 0, end-start+1)
	fragment = append(fragment, lines[start:row+1]...)
	fragment = append(fragment, strings.Repeat(" ", col-1)+"^")
	fragment = append(fragment, lines[row+1:end]...)

	return fmt.Sprintf("%s at %s:\n%s", desc, filepath.Base(filePath), strings.Join(fragment, "\n")), true
}
