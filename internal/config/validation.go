package config

import (
	"fmt"
	"strings"
)

var validTransports = map[string]bool{"": true, "stdio": true, "sse": true, "http": true}

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true, "disabled": true,
}

// Validate checks config values for correctness.
// All violations are reported together.
func (c *Config) Validate() error {
	var errs []string

	// Model
	if c.Model.APIKeyEnv == "" {
		errs = append(errs, "model.api_key_env must not be empty")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, "model.temperature must be between 0 and 2")
	}
	if c.Model.MaxOutputTokens < 0 {
		errs = append(errs, "model.max_output_tokens must be >= 0")
	}

	// Agent
	if c.Agent.MaxIterations < 0 {
		errs = append(errs, "agent.max_iterations must be >= 0")
	}
	if c.Agent.InitTimeoutSec < 1 {
		errs = append(errs, "agent.init_timeout_sec must be >= 1")
	}

	// Providers
	seen := make(map[string]bool)
	for i, p := range c.Providers {
		field := fmt.Sprintf("providers[%d]", i)
		if p.Name == "" {
			errs = append(errs, field+".name must not be empty")
		} else if seen[p.Name] {
			errs = append(errs, fmt.Sprintf("%s.name %q is duplicated", field, p.Name))
		}
		seen[p.Name] = true

		if !validTransports[p.Transport] {
			errs = append(errs, fmt.Sprintf("%s.transport %q must be stdio, sse or http", field, p.Transport))
			continue
		}
		switch p.Transport {
		case "", "stdio":
			if strings.TrimSpace(p.Command) == "" {
				errs = append(errs, field+".command is required for stdio transport")
			}
		default:
			if strings.TrimSpace(p.Endpoint) == "" {
				errs = append(errs, fmt.Sprintf("%s.endpoint is required for %s transport", field, p.Transport))
			}
		}
	}

	// Workspace
	if c.Workspace.Enabled {
		if c.Workspace.Root == "" {
			errs = append(errs, "workspace.root must not be empty")
		}
		if c.Workspace.MaxFileSize < 1 {
			errs = append(errs, "workspace.max_file_size must be >= 1")
		}
		if c.Workspace.DefaultListLimit < 1 {
			errs = append(errs, "workspace.default_list_limit must be >= 1")
		}
		if c.Workspace.MaxListResults < 1 {
			errs = append(errs, "workspace.max_list_results must be >= 1")
		}
		if c.Workspace.DefaultListLimit > c.Workspace.MaxListResults {
			errs = append(errs, "workspace.default_list_limit must be <= workspace.max_list_results")
		}
	}

	// Logging
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging.level %q is not a valid level", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
