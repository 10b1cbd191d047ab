package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFileParsesAllKeys(t *testing.T) {
	cfg := &Config{}
	cfg.ConfigPath = filepath.Join(t.TempDir(), "config")

	content := "Port=9999\nDefaultShell=/bin/zsh\nWorkDir=/tmp/work\nAgentsDir=/tmp/agents\nDBPath=/tmp/custom/claudeterm.db\nToken=test-token\n"
	if err := os.WriteFile(cfg.ConfigPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file error = %v", err)
	}

	if err := cfg.loadFromFile(); err != nil {
		t.Fatalf("loadFromFile() error = %v", err)
	}

	if cfg.Port != 9999 {
		t.Fatalf("Port = %d, want 9999", cfg.Port)
	}
	if cfg.DefaultShell != "/bin/zsh" {
		t.Fatalf("DefaultShell = %q, want /bin/zsh", cfg.DefaultShell)
	}
	if cfg.WorkDir != "/tmp/work" {
		t.Fatalf("WorkDir = %q, want /tmp/work", cfg.WorkDir)
	}
	if cfg.AgentsDir != "/tmp/agents" {
		t.Fatalf("AgentsDir = %q, want /tmp/agents", cfg.AgentsDir)
	}
	if cfg.DBPath != "/tmp/custom/claudeterm.db" {
		t.Fatalf("DBPath = %q, want /tmp/custom/claudeterm.db", cfg.DBPath)
	}
	if cfg.Token != "test-token" {
		t.Fatalf("Token = %q, want test-token", cfg.Token)
	}
}

func TestLoadFromFileSkipsCommentsAndBlankLines(t *testing.T) {
	cfg := &Config{}
	cfg.ConfigPath = filepath.Join(t.TempDir(), "config")

	content := "# local overrides\n\nPort=7000\n\n# token follows\nToken=abc\n"
	if err := os.WriteFile(cfg.ConfigPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file error = %v", err)
	}

	if err := cfg.loadFromFile(); err != nil {
		t.Fatalf("loadFromFile() error = %v", err)
	}
	if cfg.Port != 7000 || cfg.Token != "abc" {
		t.Fatalf("Port, Token = %d, %q, want 7000, abc", cfg.Port, cfg.Token)
	}
}

func TestLoadFromFileRejectsBadPort(t *testing.T) {
	cfg := &Config{}
	cfg.ConfigPath = filepath.Join(t.TempDir(), "config")

	if err := os.WriteFile(cfg.ConfigPath, []byte("Port=notanumber\n"), 0o600); err != nil {
		t.Fatalf("write config file error = %v", err)
	}

	if err := cfg.loadFromFile(); err == nil {
		t.Fatal("loadFromFile() = nil, want error for bad port")
	}
}

func TestSaveToFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Port:         8765,
		DefaultShell: "/bin/bash",
		WorkDir:      "/home/dev",
		AgentsDir:    "/home/dev/.config/claudeterm/agents",
		DBPath:       "/home/dev/.local/share/claudeterm/claudeterm.db",
		Token:        "roundtrip-token",
		ConfigPath:   filepath.Join(dir, "nested", "config"),
	}

	if err := cfg.saveToFile(); err != nil {
		t.Fatalf("saveToFile() error = %v", err)
	}

	loaded := &Config{ConfigPath: cfg.ConfigPath}
	if err := loaded.loadFromFile(); err != nil {
		t.Fatalf("loadFromFile() error = %v", err)
	}
	if loaded.Token != cfg.Token {
		t.Fatalf("Token = %q, want %q", loaded.Token, cfg.Token)
	}
	if loaded.Port != cfg.Port {
		t.Fatalf("Port = %d, want %d", loaded.Port, cfg.Port)
	}
	if loaded.WorkDir != cfg.WorkDir {
		t.Fatalf("WorkDir = %q, want %q", loaded.WorkDir, cfg.WorkDir)
	}
}
