package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	Port         int
	Token        string
	DefaultShell string
	WorkDir      string
	AgentsDir    string
	DBPath       string
	ConfigPath   string
	PrintToken   bool
}

func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	cfg := &Config{
		Port:         8765,
		DefaultShell: defaultShell(),
		WorkDir:      homeDir,
		AgentsDir:    filepath.Join(homeDir, ".config", "claudeterm", "agents"),
		DBPath:       filepath.Join(homeDir, ".local", "share", "claudeterm", "claudeterm.db"),
		ConfigPath:   filepath.Join(homeDir, ".config", "claudeterm", "config"),
	}

	if err := cfg.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	flag.IntVar(&cfg.Port, "port", cfg.Port, "server port (1-65535)")
	flag.StringVar(&cfg.Token, "token", cfg.Token, "authentication token (auto-generated if empty)")
	flag.StringVar(&cfg.DefaultShell, "shell", cfg.DefaultShell, "default interactive command")
	flag.StringVar(&cfg.WorkDir, "workdir", cfg.WorkDir, "initial working directory for sessions")
	flag.StringVar(&cfg.AgentsDir, "agents-dir", cfg.AgentsDir, "directory holding agent profile YAML files")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the session history database")
	flag.BoolVar(&cfg.PrintToken, "print-token", false, "print token to stdout (for local debugging)")
	flag.Parse()

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 1 and 65535", cfg.Port)
	}

	if cfg.Token == "" {
		token, err := generateToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token: %w", err)
		}
		cfg.Token = token
		if err := cfg.saveToFile(); err != nil {
			return nil, fmt.Errorf("failed to save config file: %w", err)
		}
	}

	return cfg, nil
}

func defaultShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/bash"
}

func (c *Config) loadFromFile() error {
	data, err := os.ReadFile(c.ConfigPath)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		switch key {
		case "Token":
			c.Token = value
		case "Port":
			var port int
			if _, err := fmt.Sscanf(value, "%d", &port); err != nil {
				return fmt.Errorf("invalid Port value %q: %w", value, err)
			}
			c.Port = port
		case "DefaultShell":
			c.DefaultShell = value
		case "WorkDir":
			c.WorkDir = value
		case "AgentsDir":
			c.AgentsDir = value
		case "DBPath":
			c.DBPath = value
		}
	}
	return nil
}

func (c *Config) saveToFile() error {
	dir := filepath.Dir(c.ConfigPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data := fmt.Sprintf("Port=%d\nDefaultShell=%s\nWorkDir=%s\nAgentsDir=%s\nDBPath=%s\nToken=%s\n",
		c.Port, c.DefaultShell, c.WorkDir, c.AgentsDir, c.DBPath, c.Token)
	return os.WriteFile(c.ConfigPath, []byte(data), 0600)
}

func generateToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
