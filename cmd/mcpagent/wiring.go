package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Cyclone1070/mcpagent/internal/config"
	"github.com/Cyclone1070/mcpagent/internal/mcp"
	"github.com/Cyclone1070/mcpagent/internal/provider/gemini"
	"github.com/Cyclone1070/mcpagent/internal/tool"
	"github.com/Cyclone1070/mcpagent/internal/tool/workspace"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// buildToolProviders returns the workspace provider (when enabled) followed
// by every enabled MCP server, in config order. Earlier providers win on
// duplicate tool names.
func buildToolProviders(cfg *config.Config, log zerolog.Logger) []tool.Provider {
	var providers []tool.Provider

	if cfg.Workspace.Enabled {
		providers = append(providers, workspace.New(workspace.Config{
			Root:             cfg.Workspace.Root,
			MaxFileSize:      cfg.Workspace.MaxFileSize,
			RespectGitignore: cfg.Workspace.RespectGitignore,
			DefaultListLimit: cfg.Workspace.DefaultListLimit,
			MaxListResults:   cfg.Workspace.MaxListResults,
			CreateRoot:       true,
		}, workspace.WithLogger(log)))
	}

	for _, server := range cfg.Providers {
		if server.Disabled {
			log.Debug().Str("mcp_server", server.Name).Msg("skipping disabled server")
			continue
		}
		providers = append(providers, mcp.New(mcp.Config{
			Name:      server.Name,
			Transport: server.Transport,
			Command:   server.Command,
			Args:      server.Args,
			Env:       server.Env,
			Endpoint:  server.Endpoint,
		}, mcp.WithLogger(log), mcp.WithVersion(version)))
	}

	return providers
}

func newGeminiClient(ctx context.Context, cfg *config.Config) (gemini.GeminiClient, error) {
	apiKey := os.Getenv(cfg.Model.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable is required", cfg.Model.APIKeyEnv)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return gemini.NewRealGeminiClient(client), nil
}

// newModel validates the configured model name, or picks the newest model
// when none is configured.
func newModel(ctx context.Context, cfg *config.Config, client gemini.GeminiClient) (*gemini.GeminiProvider, error) {
	var opts []gemini.Option
	opts = append(opts, gemini.WithTemperature(cfg.Model.Temperature))
	if cfg.Model.MaxOutputTokens > 0 {
		opts = append(opts, gemini.WithMaxOutputTokens(cfg.Model.MaxOutputTokens))
	}

	if cfg.Model.Name == "" {
		return gemini.NewGeminiProviderWithLatest(ctx, client, opts...)
	}
	return gemini.NewGeminiProvider(ctx, client, cfg.Model.Name, opts...)
}
