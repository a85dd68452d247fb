package xjst

import (
	"io/fs"

	"github.com/goliatone/go-xjst/pkg/bundle"
)

// EmbeddedTemplates exposes the built-in bundle template so callers can reuse
// or extend it without importing the bundle package directly.
func EmbeddedTemplates() fs.FS {
	return bundle.TemplatesFS()
}
