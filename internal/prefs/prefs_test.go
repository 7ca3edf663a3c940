package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != defaultTheme || p.LastPreset != 0 {
		t.Fatalf("Prefs = %#v, want defaults", p)
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	prefsDir := filepath.Join(home, ".config", "woow")
	if err := os.MkdirAll(prefsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	body := "theme = \"Daylight\"\nlast_preset = 12\nlast_tab = \"presets\"\n"
	if err := os.WriteFile(filepath.Join(prefsDir, "prefs.toml"), []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != "Daylight" || p.LastPreset != 12 || p.LastTab != "presets" {
		t.Fatalf("Prefs = %#v", p)
	}
}

func TestSave_RoundTripsThroughNewDirectory(t *testing.T) {
	prefsFile := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	if err := Save(prefsFile, Prefs{Theme: "Daylight", LastPreset: 4}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if _, err := os.Stat(prefsFile + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}

	loaded, err := Load(prefsFile)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Theme != "Daylight" || loaded.LastPreset != 4 {
		t.Fatalf("Prefs = %#v", loaded)
	}
}

func TestLoad_DegradesToDefaults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty theme", body: "theme = \"\"\n"},
		{name: "invalid toml", body: "not valid toml {{{\n"},
		{name: "negative preset", body: "last_preset = -3\n"},
	}
	for _, tt := range tests {
		prefsFile := filepath.Join(t.TempDir(), "prefs.toml")
		if err := os.WriteFile(prefsFile, []byte(tt.body), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		p, err := Load(prefsFile)
		if err != nil {
			t.Fatalf("%s: Load returned error: %v", tt.name, err)
		}
		if p.Theme != defaultTheme || p.LastPreset != 0 {
			t.Fatalf("%s: Prefs = %#v, want defaults", tt.name, p)
		}
	}
}
