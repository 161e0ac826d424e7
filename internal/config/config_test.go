package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoadGlobal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := &Global{DefaultProfile: "work"}
	if err := SaveGlobal(path, cfg); err != nil {
		t.Fatalf("SaveGlobal() error = %v", err)
	}

	loaded, err := LoadGlobal(path)
	if err != nil {
		t.Fatalf("LoadGlobal() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
}

func TestLoadGlobalMissing(t *testing.T) {
	_, err := LoadGlobal("/nonexistent/config.toml")
	if err == nil {
		t.Error("LoadGlobal() expected error for missing file")
	}
}

func TestSaveGlobalPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := SaveGlobal(path, &Global{DefaultProfile: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProfile(t *testing.T) {
	path := writeProfile(t, `
server_url = "https://school.example.com/api"
token = "tok-123"
user_id = "u1"
role = "student"
`)

	cfg, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if cfg.PageLimit != 50 {
		t.Errorf("PageLimit = %d, want default 50", cfg.PageLimit)
	}
	// Push URL derived from the HTTPS server URL.
	if cfg.PushURL != "wss://school.example.com/api/ws" {
		t.Errorf("PushURL = %q, want derived wss URL", cfg.PushURL)
	}
}

func TestLoadProfileEnvOverride(t *testing.T) {
	path := writeProfile(t, `
server_url = "http://localhost:5000"
token = "from-file"
user_id = "u1"
role = "teacher"
`)
	t.Setenv("CLASSCHAT_TOKEN", "from-env")

	cfg, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if cfg.Token != "from-env" {
		t.Errorf("Token = %q, env override should win", cfg.Token)
	}
	if cfg.PushURL != "ws://localhost:5000/ws" {
		t.Errorf("PushURL = %q, want ws derivation for http", cfg.PushURL)
	}
}

func TestLoadProfileValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing server_url", "token = \"t\"\nuser_id = \"u\"\nrole = \"student\"\n"},
		{"missing token", "server_url = \"http://x\"\nuser_id = \"u\"\nrole = \"student\"\n"},
		{"missing user_id", "server_url = \"http://x\"\ntoken = \"t\"\nrole = \"student\"\n"},
		{"bad role", "server_url = \"http://x\"\ntoken = \"t\"\nuser_id = \"u\"\nrole = \"admin\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadProfile(writeProfile(t, tt.content)); err == nil {
				t.Error("LoadProfile() expected validation error")
			}
		})
	}
}
