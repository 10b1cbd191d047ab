package registry

// AgentProfile describes how to launch one external coding-agent CLI.
// Profiles live as YAML files in the agents config dir; the driver layer
// resolves a profile into the command strings the core consumes.
type AgentProfile struct {
	ID              string   `yaml:"id" json:"id"`
	Name            string   `yaml:"name" json:"name"`
	Command         string   `yaml:"command" json:"command"`
	ResumeCommand   string   `yaml:"resume_command,omitempty" json:"resume_command,omitempty"`
	HeadlessCommand string   `yaml:"headless_command,omitempty" json:"headless_command,omitempty"`
	Model           string   `yaml:"model,omitempty" json:"model,omitempty"`
	PermissionMode  string   `yaml:"permission_mode,omitempty" json:"permission_mode,omitempty"`
	MaxTurns        int      `yaml:"max_turns,omitempty" json:"max_turns,omitempty"`
	AllowedTools    []string `yaml:"allowed_tools,omitempty" json:"allowed_tools,omitempty"`
	DisallowedTools []string `yaml:"disallowed_tools,omitempty" json:"disallowed_tools,omitempty"`
	Notes           string   `yaml:"notes,omitempty" json:"notes,omitempty"`
}
