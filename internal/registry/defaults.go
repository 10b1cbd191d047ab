package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/user/claudeterm/configs"
)

// hasProfiles reports whether dir already contains any YAML profile.
func hasProfiles(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("read registry dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			return true, nil
		}
	}
	return false, nil
}

// ensureDefaults seeds dir with the embedded starter profiles when the
// user has written none of their own. The seed set is whatever ships
// under configs/agents, so a new bundled profile needs no change here.
func ensureDefaults(dir string) error {
	ok, err := hasProfiles(dir)
	if err != nil || ok {
		return err
	}

	entries, err := fs.ReadDir(configs.AgentDefaults, "agents")
	if err != nil {
		return fmt.Errorf("read embedded defaults: %w", err)
	}
	for _, entry := range entries {
		content, err := fs.ReadFile(configs.AgentDefaults, path.Join("agents", entry.Name()))
		if err != nil {
			return fmt.Errorf("read embedded default %q: %w", entry.Name(), err)
		}
		target := filepath.Join(dir, entry.Name())
		if err := os.WriteFile(target, content, 0o644); err != nil {
			return fmt.Errorf("write default %q: %w", target, err)
		}
	}
	return nil
}
