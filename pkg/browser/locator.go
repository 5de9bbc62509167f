package browser

import (
	"os"
	"path/filepath"
	"runtime"
)

// LocatorFunc returns a browser executable path for the host, or "" when
// none is found and the engine should resolve its own.
type LocatorFunc func() string

// LocateExecutable checks the well-known Chrome install locations for the
// current platform.
func LocateExecutable() string {
	return locateIn(runtime.GOOS, os.Getenv, fileExists)
}

// candidatePaths lists install locations per platform, most specific first.
func candidatePaths(goos string, getenv func(string) string) []string {
	switch goos {
	case "windows":
		var paths []string
		for _, env := range []string{"ProgramFiles(x86)", "ProgramFiles", "LocalAppData"} {
			if root := getenv(env); root != "" {
				paths = append(paths, filepath.Join(root, "Google", "Chrome", "Application", "chrome.exe"))
			}
		}
		return paths
	case "darwin":
		return []string{"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"}
	case "linux":
		return []string{
			"/usr/bin/google-chrome",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
		}
	}
	return nil
}

func locateIn(goos string, getenv func(string) string, exists func(string) bool) string {
	for _, path := range candidatePaths(goos, getenv) {
		if exists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
