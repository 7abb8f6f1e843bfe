package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// writePlugin creates dir/<name> with a manifest and an executable script.
func writePlugin(t *testing.T, dir string, manifest Manifest, script string) string {
	t.Helper()

	pluginDir := filepath.Join(dir, manifest.Name)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), manifestBytes, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	if script != "" {
		if err := os.WriteFile(filepath.Join(pluginDir, manifest.Executable), []byte(script), 0755); err != nil {
			t.Fatalf("failed to write script: %v", err)
		}
	}
	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()

	pluginDir := writePlugin(t, tmpDir, Manifest{
		Name:        "clicker",
		Version:     "1.0.0",
		Description: "Clicks the mouse",
		Executable:  "run.sh",
		Actions:     []string{"click", "scroll"},
	}, "")

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	plugin := plugins[0]
	if plugin.Manifest.Name != "clicker" {
		t.Errorf("expected plugin name 'clicker', got %q", plugin.Manifest.Name)
	}
	if plugin.Manifest.Description != "Clicks the mouse" {
		t.Errorf("expected description 'Clicks the mouse', got %q", plugin.Manifest.Description)
	}
	if len(plugin.Manifest.Actions) != 2 {
		t.Errorf("expected 2 actions, got %d", len(plugin.Manifest.Actions))
	}
	if plugin.Path != pluginDir {
		t.Errorf("expected path %q, got %q", pluginDir, plugin.Path)
	}
	if want := filepath.Join(pluginDir, "run.sh"); plugin.Executable != want {
		t.Errorf("expected executable %q, got %q", want, plugin.Executable)
	}
}

func TestManager_Discover_SkipsInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	writePlugin(t, tmpDir, Manifest{Name: "good", Executable: "run.sh", Actions: []string{"click"}}, "")

	// Directory without a manifest
	if err := os.MkdirAll(filepath.Join(tmpDir, "empty"), 0755); err != nil {
		t.Fatal(err)
	}
	// Manifest that is not JSON
	badDir := filepath.Join(tmpDir, "bad")
	if err := os.MkdirAll(badDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(badDir, "plugin.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	// Manifest without an executable
	writePlugin(t, tmpDir, Manifest{Name: "noexec", Actions: []string{"click"}}, "")
	// Plain file at the top level
	if err := os.WriteFile(filepath.Join(tmpDir, "README"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 || plugins[0].Manifest.Name != "good" {
		t.Fatalf("expected only 'good', got %d plugins", len(plugins))
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() on a missing dir failed: %v", err)
	}
	if n := len(manager.List()); n != 0 {
		t.Errorf("expected 0 plugins, got %d", n)
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	tmpDir := t.TempDir()
	pluginDir := writePlugin(t, tmpDir, Manifest{Name: "once", Executable: "run.sh"}, "")

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(pluginDir); err != nil {
		t.Fatal(err)
	}
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}

	if _, err := manager.Get("once"); err != ErrPluginNotFound {
		t.Errorf("expected ErrPluginNotFound after rescan, got %v", err)
	}
}

func TestManager_Get(t *testing.T) {
	tmpDir := t.TempDir()
	writePlugin(t, tmpDir, Manifest{Name: "scroller", Executable: "run.sh", Actions: []string{"scroll"}}, "")

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}

	plugin, err := manager.Get("scroller")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if plugin.Manifest.Name != "scroller" {
		t.Errorf("expected 'scroller', got %q", plugin.Manifest.Name)
	}

	if _, err := manager.Get("missing"); err != ErrPluginNotFound {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_Subscribers(t *testing.T) {
	tmpDir := t.TempDir()
	writePlugin(t, tmpDir, Manifest{Name: "b-clicker", Executable: "run.sh", Actions: []string{"click"}}, "")
	writePlugin(t, tmpDir, Manifest{Name: "a-both", Executable: "run.sh", Actions: []string{"scroll", "click"}}, "")
	writePlugin(t, tmpDir, Manifest{Name: "focus", Executable: "run.sh", Actions: []string{"focus"}}, "")

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}

	subs := manager.Subscribers("click")
	if len(subs) != 2 {
		t.Fatalf("expected 2 click subscribers, got %d", len(subs))
	}
	if subs[0].Manifest.Name != "a-both" || subs[1].Manifest.Name != "b-clicker" {
		t.Errorf("expected subscribers sorted by name, got %q, %q", subs[0].Manifest.Name, subs[1].Manifest.Name)
	}

	if n := len(manager.Subscribers("blur")); n != 0 {
		t.Errorf("expected no blur subscribers, got %d", n)
	}
}
