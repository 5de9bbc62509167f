package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileStore(t *testing.T) {
	t.Run("creates store with custom path", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")

		store, err := NewFileStore(configPath)
		if err != nil {
			t.Fatalf("NewFileStore failed: %v", err)
		}
		if store.Path() != configPath {
			t.Errorf("Expected path %s, got %s", configPath, store.Path())
		}
		if store.IsModified() {
			t.Error("New store should not be modified")
		}
	})

	t.Run("defaults to yaml under the home directory", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		t.Setenv("USERPROFILE", home)

		store, err := NewFileStore("")
		if err != nil {
			t.Fatalf("NewFileStore with empty path failed: %v", err)
		}
		expected := filepath.Join(home, ".agentbrowser", "config.yaml")
		if store.Path() != expected {
			t.Errorf("Expected default path %s, got %s", expected, store.Path())
		}
	})

	t.Run("rejects a corrupt file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(configPath, []byte("{not json"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := NewFileStore(configPath); err == nil {
			t.Error("Expected error for invalid JSON")
		}
	})
}

func TestFileStore_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "config.json",
			content: `{"version": "1.0", "sections": {"browser": {"headless": false, "max_pages": 4, ` +
				`"denylist": ["promo"]}}}`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: "version: \"1.0\"\nsections:\n  browser:\n    headless: false\n    max_pages: 4\n" +
				"    denylist:\n      - promo\n",
		},
		{
			name: "yml",
			file: "agentbrowser.yml",
			content: "sections:\n  browser:\n    headless: false\n    max_pages: 4\n" +
				"    denylist: [promo]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(configPath, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			store, err := NewFileStore(configPath)
			if err != nil {
				t.Fatalf("NewFileStore failed: %v", err)
			}
			data, _ := store.GetSection("browser")

			section := NewBrowserSection()
			if err := section.SetData(data); err != nil {
				t.Fatalf("SetData failed: %v", err)
			}
			if section.Headless {
				t.Error("Expected headless=false")
			}
			if section.MaxPages != 4 {
				t.Errorf("Expected max_pages=4, got %d", section.MaxPages)
			}
			if len(section.Denylist) != 1 || section.Denylist[0] != "promo" {
				t.Errorf("Expected denylist [promo], got %v", section.Denylist)
			}
		})
	}
}

func TestFileStore_SaveRoundTrip(t *testing.T) {
	for _, file := range []string{"config.json", "config.yaml"} {
		t.Run(file, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "nested", file)

			store, err := NewFileStore(configPath)
			if err != nil {
				t.Fatalf("NewFileStore failed: %v", err)
			}
			if err := store.SetSection("browser", map[string]interface{}{"readiness": "load"}); err != nil {
				t.Fatalf("SetSection failed: %v", err)
			}
			if !store.IsModified() {
				t.Error("Store should be modified after SetSection")
			}
			if err := store.Save(); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if store.IsModified() {
				t.Error("Save should clear the modified flag")
			}

			raw, err := os.ReadFile(configPath)
			if err != nil {
				t.Fatalf("Config file not written: %v", err)
			}
			if strings.HasSuffix(file, ".yaml") && strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
				t.Errorf("Expected YAML output, got:\n%s", raw)
			}

			entries, _ := os.ReadDir(filepath.Dir(configPath))
			if len(entries) != 1 {
				t.Errorf("Expected only the config file, found %d entries", len(entries))
			}

			reloaded, err := NewFileStore(configPath)
			if err != nil {
				t.Fatalf("Reload failed: %v", err)
			}
			section, _ := reloaded.GetSection("browser")
			if section["readiness"] != "load" {
				t.Errorf("Expected readiness=load after reload, got %v", section["readiness"])
			}
		})
	}
}

func TestFileStore_Copies(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatal(err)
	}

	input := map[string]interface{}{"key": "value"}
	_ = store.SetSection("s", input)
	input["key"] = "changed"

	got, _ := store.GetSection("s")
	if got["key"] != "value" {
		t.Error("SetSection should store a copy")
	}
	got["key"] = "changed"

	again, _ := store.GetSection("s")
	if again["key"] != "value" {
		t.Error("GetSection should return a copy")
	}

	missing, _ := store.GetSection("missing")
	if missing == nil || len(missing) != 0 {
		t.Error("Missing section should be an empty map")
	}

	_ = store.SetAll(map[string]map[string]interface{}{"a": {"x": 1}, "b": {"y": 2}})
	all, _ := store.GetAll()
	if len(all) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(all))
	}
	all["a"]["x"] = 99
	again, _ = store.GetSection("a")
	if again["x"] != 1 {
		t.Error("GetAll should return a deep copy")
	}
}
