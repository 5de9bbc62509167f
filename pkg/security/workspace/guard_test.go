package workspace

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGuard(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		_, err := NewGuard("")
		assert.Error(t, err)
	})

	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "shots", "today")
		g, err := NewGuard(dir)
		require.NoError(t, err)
		assert.DirExists(t, dir)
		assert.True(t, filepath.IsAbs(g.Root()))
	})
}

func TestGuard_Resolve(t *testing.T) {
	g, err := NewGuard(t.TempDir(), "*.png")
	require.NoError(t, err)
	root := g.Root()

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "relative file", path: "page.png", want: filepath.Join(root, "page.png")},
		{name: "nested relative", path: "a/b/page.png", want: filepath.Join(root, "a", "b", "page.png")},
		{name: "absolute inside", path: filepath.Join(root, "x.png"), want: filepath.Join(root, "x.png")},
		{name: "case-insensitive extension", path: "PAGE.PNG", want: filepath.Join(root, "PAGE.PNG")},
		{name: "dot segments inside", path: "a/../page.png", want: filepath.Join(root, "page.png")},
		{name: "traversal", path: "../escape.png", wantErr: true},
		{name: "absolute outside", path: filepath.Join(filepath.Dir(root), "escape.png"), wantErr: true},
		{name: "root itself", path: ".", wantErr: true},
		{name: "disallowed name", path: "notes.txt", wantErr: true},
		{name: "empty", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Resolve(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestGuard_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	outside := t.TempDir()
	g, err := NewGuard(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Symlink(outside, filepath.Join(g.Root(), "link")))

	_, err = g.Resolve("link/page.png")
	assert.Error(t, err)
}

func TestGuard_AnyName(t *testing.T) {
	g, err := NewGuard(t.TempDir())
	require.NoError(t, err)

	_, err = g.Resolve("notes.txt")
	assert.NoError(t, err)
}
