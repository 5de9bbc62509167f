package config

import (
	"os"
	"path/filepath"
	"testing"
)

// resetGlobal clears the global manager for the duration of a test
func resetGlobal(t *testing.T) {
	t.Helper()
	globalMu.Lock()
	orig := globalManager
	globalManager = nil
	globalMu.Unlock()

	t.Cleanup(func() {
		globalMu.Lock()
		globalManager = orig
		globalMu.Unlock()
	})
}

func TestInitialize(t *testing.T) {
	t.Run("registers the browser section", func(t *testing.T) {
		resetGlobal(t)

		if IsInitialized() {
			t.Fatal("Expected uninitialized config")
		}
		if GetBrowser() != nil {
			t.Error("GetBrowser should be nil before Initialize")
		}

		if err := Initialize(filepath.Join(t.TempDir(), "config.yaml")); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		if !IsInitialized() {
			t.Error("Global manager should be initialized")
		}

		b := GetBrowser()
		if b == nil {
			t.Fatal("browser section not registered")
		}
		if !b.IsEnabled() || !b.Headless {
			t.Error("Expected default browser settings")
		}
	})

	t.Run("loads existing configuration", func(t *testing.T) {
		resetGlobal(t)

		configPath := filepath.Join(t.TempDir(), "config.yaml")
		content := "sections:\n  browser:\n    enabled: false\n    readiness: networkidle\n    navigation_timeout: 5s\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		if err := Initialize(configPath); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}

		b := GetBrowser()
		if b.IsEnabled() {
			t.Error("Expected browser tools disabled")
		}
		opts, err := b.SessionOptions()
		if err != nil {
			t.Fatalf("SessionOptions failed: %v", err)
		}
		if opts.Readiness != "networkidle" {
			t.Errorf("Expected networkidle readiness, got %s", opts.Readiness)
		}
		if opts.NavigationTimeout.String() != "5s" {
			t.Errorf("Expected 5s timeout, got %s", opts.NavigationTimeout)
		}
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		resetGlobal(t)

		configPath := filepath.Join(t.TempDir(), "config.json")
		content := `{"sections": {"browser": {"readiness": "whenever"}}}`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		if err := Initialize(configPath); err == nil {
			t.Error("Expected error for invalid readiness")
		}
		if IsInitialized() {
			t.Error("Failed Initialize must not install a manager")
		}
	})

	t.Run("persists across re-initialization", func(t *testing.T) {
		resetGlobal(t)
		configPath := filepath.Join(t.TempDir(), "config.json")

		if err := Initialize(configPath); err != nil {
			t.Fatal(err)
		}
		if err := GetBrowser().SetData(map[string]interface{}{"max_pages": float64(3)}); err != nil {
			t.Fatal(err)
		}
		if err := Global().SaveAll(); err != nil {
			t.Fatalf("SaveAll failed: %v", err)
		}

		if err := Initialize(configPath); err != nil {
			t.Fatal(err)
		}
		if GetBrowser().MaxPages != 3 {
			t.Errorf("Expected max_pages=3 after reload, got %d", GetBrowser().MaxPages)
		}
	})
}

func TestGlobal_PanicsIfNotInitialized(t *testing.T) {
	resetGlobal(t)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic")
		}
	}()
	Global()
}
