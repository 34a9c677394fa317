package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Cyclone1070/mcpagent/internal/agent"
	"github.com/Cyclone1070/mcpagent/internal/provider"
	"github.com/Cyclone1070/mcpagent/internal/workflow"
	"github.com/spf13/cobra"
)

type runFlags struct {
	contextFile   string
	out           string
	system        string
	model         string
	maxIterations int
	noWorkspace   bool
	plain         bool
	quiet         bool
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Send a prompt and let the model call tools until it answers",
		Long: `Run sends the prompt to the model. Each tool the model requests is executed
in order and its result fed back, until the model replies without tool calls.
With no argument the prompt is read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd, args)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), prompt, f)
		},
	}

	cmd.Flags().StringVar(&f.contextFile, "context-file", "", "file whose contents prime the conversation as reference context")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "also write the final answer to this file")
	cmd.Flags().StringVar(&f.system, "system", "", "system prompt; overrides the config file")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "model name; overrides the config file")
	cmd.Flags().IntVar(&f.maxIterations, "max-iterations", -1, "bound on model roundtrips, 0 for unbounded; overrides the config file")
	cmd.Flags().BoolVar(&f.noWorkspace, "no-workspace", false, "disable the built-in workspace tools")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "print the answer without markdown rendering")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "print only the final answer")
	return cmd
}

func readPrompt(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", agent.ErrEmptyPrompt
	}
	return prompt, nil
}

func (a *app) run(ctx context.Context, prompt string, f runFlags) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.cfg
	if f.model != "" {
		cfg.Model.Name = f.model
	}
	if f.system != "" {
		cfg.Agent.SystemPrompt = f.system
	}
	if f.maxIterations >= 0 {
		cfg.Agent.MaxIterations = f.maxIterations
	}
	if f.noWorkspace {
		cfg.Workspace.Enabled = false
	}

	var refContext string
	if f.contextFile != "" {
		data, err := os.ReadFile(f.contextFile)
		if err != nil {
			return fmt.Errorf("read context file: %w", err)
		}
		refContext = string(data)
	}

	client, err := newGeminiClient(ctx, cfg)
	if err != nil {
		return err
	}
	model, err := newModel(ctx, cfg, client)
	if err != nil {
		return err
	}
	a.log.Info().Str("model", model.GetModel()).Msg("model selected")

	return a.invoke(ctx, model, prompt, refContext, f)
}

// invoke runs the agent against model. Split from run so it can be driven
// without a Gemini client.
func (a *app) invoke(ctx context.Context, model provider.Model, prompt, refContext string, f runFlags) error {
	cfg := a.cfg
	r := newRenderer(a.stdout, !f.plain)

	events := make(chan workflow.Event, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if f.quiet {
			for range events {
			}
			return
		}
		r.consume(events)
	}()

	ag := agent.New(model, buildToolProviders(cfg, a.log),
		agent.WithSystemPrompt(cfg.Agent.SystemPrompt),
		agent.WithContext(refContext),
		agent.WithEvents(events),
		agent.WithValidation(cfg.Agent.ValidateArguments),
		agent.WithMaxIterations(cfg.Agent.MaxIterations),
		agent.WithLogger(a.log),
	)
	defer func() {
		if err := ag.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing agent")
		}
	}()

	initCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Agent.InitTimeoutSec)*time.Second)
	err := ag.Init(initCtx)
	cancel()
	if err != nil {
		close(events)
		wg.Wait()
		return err
	}

	if !f.quiet {
		r.title("TOOLS")
		for _, d := range ag.Catalog().Declarations() {
			fmt.Fprintf(a.stdout, "- %s\n", d.Name)
		}
	}

	text, err := ag.Invoke(ctx, prompt)
	close(events)
	wg.Wait()
	if err != nil {
		return err
	}

	if f.quiet {
		fmt.Fprintln(a.stdout, text)
	} else {
		r.answer(text)
	}

	if f.out != "" {
		if err := os.MkdirAll(filepath.Dir(f.out), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := os.WriteFile(f.out, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write answer: %w", err)
		}
		a.log.Info().Str("path", f.out).Msg("answer written")
	}
	return nil
}
