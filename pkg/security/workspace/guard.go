// Package workspace confines file writes requested by agents to one
// directory tree. Paths are cleaned and symlinks resolved before the
// boundary check, so "../" segments and links cannot escape it.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Guard enforces a directory boundary and an optional file name allowlist.
type Guard struct {
	root  string      // absolute, symlink-free
	names []glob.Glob // empty allows any name
}

// NewGuard creates a guard rooted at dir, creating the directory if needed.
// Names restricts the base names that may be written, e.g. "*.png".
func NewGuard(dir string, names ...string) (*Guard, error) {
	if dir == "" {
		return nil, fmt.Errorf("workspace directory cannot be empty")
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace directory: %w", err)
	}
	if err := os.MkdirAll(absPath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}
	evalPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate workspace directory symlinks: %w", err)
	}

	g := &Guard{root: evalPath}
	for _, pattern := range names {
		compiled, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid file name pattern %q: %w", pattern, err)
		}
		g.names = append(g.names, compiled)
	}
	return g, nil
}

// Root returns the absolute workspace directory.
func (g *Guard) Root() string {
	return g.root
}

// Resolve returns the absolute form of path, joining relative paths to the
// root. It fails if the result lies outside the root or its base name is
// not allowed.
func (g *Guard) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) {
		clean = filepath.Join(g.root, clean)
	}

	resolved := resolveSymlinks(clean)
	if !g.contains(resolved) {
		return "", fmt.Errorf("path '%s' is outside workspace %s", path, g.root)
	}
	if !g.allowedName(filepath.Base(resolved)) {
		return "", fmt.Errorf("file name '%s' is not allowed", filepath.Base(resolved))
	}
	return resolved, nil
}

func (g *Guard) contains(absPath string) bool {
	sep := string(filepath.Separator)
	return strings.HasPrefix(absPath+sep, g.root+sep) && absPath != g.root
}

func (g *Guard) allowedName(name string) bool {
	if len(g.names) == 0 {
		return true
	}
	name = strings.ToLower(name)
	for _, pattern := range g.names {
		if pattern.Match(name) {
			return true
		}
	}
	return false
}

// resolveSymlinks resolves the longest existing prefix of path and
// re-appends the components that do not exist yet.
func resolveSymlinks(path string) string {
	var missing []string
	current := path
	for {
		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved
		}

		parent := filepath.Dir(current)
		if parent == current {
			return path
		}
		missing = append(missing, filepath.Base(current))
		current = parent
	}
}
