package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const manifestName = "xjst.toml"

type buildManifest struct {
	Path    string
	Root    string
	Targets []buildTarget
}

type manifestConfig struct {
	Targets []buildTarget `toml:"target"`
}

type buildTarget struct {
	Name       string      `toml:"name"`
	Engine     string      `toml:"engine"`
	Sources    []string    `toml:"sources"`
	ExportName string      `toml:"export_name"`
	Extension  string      `toml:"extension"`
	Out        string      `toml:"out"`
	KeepGoing  bool        `toml:"keep_going"`
	HTML       *htmlTarget `toml:"html"`
}

type htmlTarget struct {
	Data     []string `toml:"data"`
	Out      string   `toml:"out"`
	Sanitize bool     `toml:"sanitize"`
}

func findManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, manifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadManifest(path string) (*buildManifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	var cfg manifestConfig
	meta, err := toml.DecodeFile(abs, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("target") || len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("%s: missing [[target]]", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	root := filepath.Dir(abs)
	seen := make(map[string]struct{}, len(cfg.Targets))
	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			t.Name = fmt.Sprintf("target-%d", i+1)
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate target %q", path, t.Name)
		}
		seen[t.Name] = struct{}{}
		if len(t.Sources) == 0 {
			return nil, fmt.Errorf("%s: target %q: missing sources", path, t.Name)
		}

		t.Sources = resolvePaths(root, t.Sources)
		if t.Out == "" {
			t.Out = "."
		}
		t.Out = resolvePath(root, t.Out)
		if t.HTML != nil {
			if len(t.HTML.Data) == 0 {
				return nil, fmt.Errorf("%s: target %q: [target.html] missing data", path, t.Name)
			}
			t.HTML.Data = resolvePaths(root, t.HTML.Data)
			if t.HTML.Out == "" {
				t.HTML.Out = t.Out
			} else {
				t.HTML.Out = resolvePath(root, t.HTML.Out)
			}
		}
	}

	return &buildManifest{Path: abs, Root: root, Targets: cfg.Targets}, nil
}

func resolvePath(root, p string) string {
	p = filepath.FromSlash(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func resolvePaths(root string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, resolvePath(root, p))
	}
	return out
}
