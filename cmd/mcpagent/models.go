package main

import (
	"fmt"

	"github.com/Cyclone1070/mcpagent/internal/provider/gemini"
	"github.com/spf13/cobra"
)

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available Gemini chat models, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newGeminiClient(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			return a.listModels(cmd, client)
		},
	}
}

func (a *app) listModels(cmd *cobra.Command, client gemini.GeminiClient) error {
	names, err := gemini.New(client, "").ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, name := range names {
		fmt.Fprintln(a.stdout, name)
	}
	return nil
}
