package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadManifest(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, manifestName)
	writeFile(t, path, `
[[target]]
name = "pages"
engine = "bemhtml"
sources = ["blocks/*.bemhtml"]
export_name = "BEMHTML"
out = "dist"

[target.html]
data = ["pages/*.bemjson.js"]
sanitize = true

[[target]]
sources = ["tree/*.bemtree"]
engine = "bemtree"
`)

	manifest, err := loadManifest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := []buildTarget{
		{
			Name:       "pages",
			Engine:     "bemhtml",
			Sources:    []string{filepath.Join(root, "blocks", "*.bemhtml")},
			ExportName: "BEMHTML",
			Out:        filepath.Join(root, "dist"),
			HTML: &htmlTarget{
				Data:     []string{filepath.Join(root, "pages", "*.bemjson.js")},
				Out:      filepath.Join(root, "dist"),
				Sanitize: true,
			},
		},
		{
			Name:    "target-2",
			Engine:  "bemtree",
			Sources: []string{filepath.Join(root, "tree", "*.bemtree")},
			Out:     root,
		},
	}
	if diff := cmp.Diff(want, manifest.Targets); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}
	if manifest.Root != root {
		t.Fatalf("root = %q, want %q", manifest.Root, root)
	}
}

func TestLoadManifest_Errors(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"no targets":      {body: `title = "x"`, want: "missing [[target]]"},
		"missing sources": {body: "[[target]]\nname = \"a\"\n", want: `target "a": missing sources`},
		"duplicate": {
			body: "[[target]]\nname = \"a\"\nsources = [\"x\"]\n[[target]]\nname = \"a\"\nsources = [\"y\"]\n",
			want: `duplicate target "a"`,
		},
		"unknown key": {body: "[[target]]\nsources = [\"x\"]\nengnie = \"bemhtml\"\n", want: "unknown key"},
		"html without data": {
			body: "[[target]]\nname = \"a\"\nsources = [\"x\"]\n[target.html]\nout = \"y\"\n",
			want: "[target.html] missing data",
		},
		"invalid toml": {body: "[[target]\n", want: "failed to parse TOML"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), manifestName)
			writeFile(t, path, tc.body)
			_, err := loadManifest(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestFindManifest_WalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, manifestName), "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, ok, err := findManifest(nested)
	if err != nil || !ok {
		t.Fatalf("find: ok=%v err=%v", ok, err)
	}
	if got != filepath.Join(root, manifestName) {
		t.Fatalf("found %q", got)
	}
}
