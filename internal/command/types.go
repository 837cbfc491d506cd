// Package command implements the line-start Agent Command prefix parser:
// O(1) detection of an agent-directed line versus a pass-through terminal
// line, and the `--name value` option syntax for prompts routed to the
// model host.
package command

// CommandKind tags which variant a ParsedCommand holds.
type CommandKind uint8

const (
	// KindTerminal marks a line that passes through to the shell unchanged.
	KindTerminal CommandKind = iota
	// KindAgent marks a recognised Agent Command.
	KindAgent
)

// ParsedCommand is the result of Parse: either an opaque pass-through
// terminal line, or a fully parsed Agent Command.
type ParsedCommand struct {
	Kind     CommandKind
	Terminal string
	Agent    AgentCommand
	RawInput string
}

// AgentCommand carries a prompt destined for the model host plus any
// per-request overrides and the context snapshot taken at parse time.
type AgentCommand struct {
	Prompt           string
	ModelOverride    string
	HasModel         bool
	Temperature      float32
	HasTemperature   bool
	MaxTokens        uint32
	HasMaxTokens     bool
	Context          AgentContext
	IsContinuation   bool
}

// AgentContext is the snapshot of terminal state handed to the model host
// alongside a prompt: recent scrollback, a whitelisted environment
// mapping, and the working directory.
type AgentContext struct {
	ScrollbackLines []string
	EnvironmentVars map[string]string
	WorkingDir      string
}

// relevantEnvVars is the whitelist of environment variables that may be
// forwarded in an AgentContext.
var relevantEnvVars = []string{
	"PATH", "HOME", "USER", "PWD", "SHELL", "TERM", "LANG", "LC_ALL",
	"EDITOR", "PAGER", "PS1", "HOSTNAME", "DISPLAY", "XDG_SESSION_TYPE",
}
