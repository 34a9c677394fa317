package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Model     ModelConfig     `json:"model"`
	Agent     AgentConfig     `json:"agent"`
	Providers []MCPServer     `json:"providers"`
	Workspace WorkspaceConfig `json:"workspace"`
	Logging   LoggingConfig   `json:"logging"`
}

type ModelConfig struct {
	// Name is a Gemini model name, with or without the "models/" prefix.
	// Empty selects the newest available model.
	Name            string  `json:"name"`              // Default: "gemini-2.5-flash"
	APIKeyEnv       string  `json:"api_key_env"`       // Default: "GEMINI_API_KEY"
	Temperature     float32 `json:"temperature"`       // Default: 0.2
	MaxOutputTokens int32   `json:"max_output_tokens"` // Default: 0 (model limit)
}

type AgentConfig struct {
	SystemPrompt string `json:"system_prompt"`
	// MaxIterations bounds model roundtrips per invocation. 0 is unbounded.
	MaxIterations     int  `json:"max_iterations"`     // Default: 0
	ValidateArguments bool `json:"validate_arguments"` // Default: false
	InitTimeoutSec    int  `json:"init_timeout_sec"`   // Default: 60
}

// MCPServer describes one MCP tool server.
type MCPServer struct {
	Name      string            `json:"name"`
	Transport string            `json:"transport"` // stdio, sse or http
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	Endpoint  string            `json:"endpoint,omitempty"`
	Disabled  bool              `json:"disabled,omitempty"`
}

type WorkspaceConfig struct {
	Enabled          bool   `json:"enabled"`            // Default: true
	Root             string `json:"root"`               // Default: "."
	MaxFileSize      int64  `json:"max_file_size"`      // Default: 5 * 1024 * 1024 (5MB)
	RespectGitignore bool   `json:"respect_gitignore"`  // Default: true
	DefaultListLimit int    `json:"default_list_limit"` // Default: 1000
	MaxListResults   int    `json:"max_list_results"`   // Default: 10000
}

type LoggingConfig struct {
	Level  string `json:"level"`  // Default: "info"
	File   string `json:"file"`   // Default: "" (stderr)
	Pretty bool   `json:"pretty"` // Default: true
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Name:        "gemini-2.5-flash",
			APIKeyEnv:   "GEMINI_API_KEY",
			Temperature: 0.2,
		},
		Agent: AgentConfig{
			InitTimeoutSec: 60,
		},
		Providers: []MCPServer{},
		Workspace: WorkspaceConfig{
			Enabled:          true,
			Root:             ".",
			MaxFileSize:      5 * 1024 * 1024,
			RespectGitignore: true,
			DefaultListLimit: 1000,
			MaxListResults:   10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}
