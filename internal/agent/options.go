// Package agent runs an external coding-agent CLI in structured streaming
// mode and feeds its JSON output through the event classifier.
package agent

import (
	"sort"
	"strconv"
)

// Options configure one agent process. Zero values are omitted from the
// command line.
type Options struct {
	SystemPrompt      string   `json:"system_prompt,omitempty"`
	MaxTurns          int      `json:"max_turns,omitempty"`
	MaxThinkingTokens int      `json:"max_thinking_tokens,omitempty"`
	WorkDir           string   `json:"cwd,omitempty"`
	PermissionMode    string   `json:"permission_mode,omitempty"`
	AllowedTools      []string `json:"allowed_tools,omitempty"`
	DisallowedTools   []string `json:"disallowed_tools,omitempty"`
	Resume            string   `json:"resume,omitempty"`
	Model             string   `json:"model,omitempty"`
}

// Args renders the option flags for the agent CLI, always requesting
// stream-json output so stdout stays machine-readable.
func (o Options) Args() []string {
	var args []string
	if o.SystemPrompt != "" {
		args = append(args, "--system-prompt", o.SystemPrompt)
	}
	if o.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(o.MaxTurns))
	}
	if o.MaxThinkingTokens > 0 {
		args = append(args, "--max-thinking-tokens", strconv.Itoa(o.MaxThinkingTokens))
	}
	if o.PermissionMode != "" {
		args = append(args, "--permission-mode", o.PermissionMode)
	}
	if o.Resume != "" {
		args = append(args, "--resume", o.Resume)
	}
	if o.Model != "" {
		args = append(args, "--model", o.Model)
	}
	for _, tool := range o.AllowedTools {
		args = append(args, "--allowedTools", tool)
	}
	for _, tool := range o.DisallowedTools {
		args = append(args, "--disallowedTools", tool)
	}
	args = append(args, "--output-format", "stream-json")
	return args
}

// CacheView returns the option fields that determine response identity,
// with tool lists sorted so equal configurations produce equal cache keys.
func (o Options) CacheView() map[string]any {
	allowed := append([]string(nil), o.AllowedTools...)
	sort.Strings(allowed)
	prompt := o.SystemPrompt
	if r := []rune(prompt); len(r) > 100 {
		prompt = string(r[:100])
	}
	return map[string]any{
		"model":         o.Model,
		"allowed_tools": allowed,
		"system_prompt": prompt,
	}
}
