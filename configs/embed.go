package configs

import "embed"

// AgentDefaults contains shipped default agent YAML profile files.
//
//go:embed agents/*.yaml
var AgentDefaults embed.FS
