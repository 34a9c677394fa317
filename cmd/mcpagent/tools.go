package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Cyclone1070/mcpagent/internal/tool"
	"github.com/Cyclone1070/mcpagent/internal/workflow/toolmanager"
	"github.com/spf13/cobra"
)

// toolListing is one entry of the tools command output.
type toolListing struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Parameters  *tool.Schema `json:"parameters,omitempty"`
	Raw         *tool.Value  `json:"raw,omitempty"`
	Dropped     []string     `json:"dropped,omitempty"`
	Error       string       `json:"error,omitempty"`
}

func newToolsCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the model would be offered",
		Long: `Tools initializes every configured provider and prints each tool with its
parameter schema as sent to the model. With --raw the provider's raw
schema and the keywords dropped from it are included.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listTools(cmd.Context(), raw)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "include the provider's raw schema and dropped keywords")
	return cmd
}

func (a *app) listTools(ctx context.Context, raw bool) error {
	providers := buildToolProviders(a.cfg, a.log)

	initCtx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.Agent.InitTimeoutSec)*time.Second)
	defer cancel()

	var ready []tool.Provider
	for _, p := range providers {
		if err := p.Init(initCtx); err != nil {
			a.log.Error().Err(err).Str("provider", p.Name()).Msg("provider init failed")
			_ = p.Close()
			continue
		}
		ready = append(ready, p)
	}

	manager := toolmanager.NewManager(ready, toolmanager.WithLogger(a.log))
	defer func() {
		if err := manager.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing tool providers")
		}
	}()

	listings := make([]toolListing, 0)
	for _, d := range manager.Descriptors() {
		l := toolListing{Name: d.Name, Description: d.Description}
		schema, dropped, err := tool.NormalizeReport(d.InputSchema)
		if err != nil {
			l.Error = err.Error()
		} else {
			l.Parameters = schema
		}
		if raw {
			v := d.InputSchema
			l.Raw = &v
			l.Dropped = dropped
		}
		listings = append(listings, l)
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(listings); err != nil {
		return fmt.Errorf("encode tools: %w", err)
	}
	return nil
}
