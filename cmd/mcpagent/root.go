package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/Cyclone1070/mcpagent/internal/config"
	"github.com/Cyclone1070/mcpagent/internal/logger"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// app carries state shared by subcommands once the root pre-run has loaded it.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	envFile    string

	loader *config.Loader
	cfg    *config.Config
	logger *logger.Logger
	log    zerolog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		stdout: stdout,
		stderr: stderr,
		loader: config.NewLoader(),
		log:    zerolog.Nop(),
	}

	root := &cobra.Command{
		Use:   "mcpagent",
		Short: "Run a Gemini agent with MCP tools",
		Long: `mcpagent sends a prompt to a Gemini model, lets the model call tools
served by MCP servers and the built-in workspace provider, and prints the
final answer once the model stops requesting tools.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger != nil {
				return a.logger.Close()
			}
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is $HOME/.config/mcpagent/config.json)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error); overrides the config file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load credentials from; missing files are ignored")

	root.AddCommand(newRunCmd(a), newToolsCmd(a), newModelsCmd(a))
	return root
}

// setup loads the environment, configuration and logger in that order.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", a.envFile, err)
		}
	}

	var err error
	if a.configPath != "" {
		a.cfg, err = a.loader.LoadFrom(a.configPath)
	} else {
		a.cfg, err = a.loader.Load()
	}
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		a.cfg.Logging.Level = a.logLevel
	}

	a.logger, err = logger.New(logger.Config{
		Level:   a.cfg.Logging.Level,
		File:    a.cfg.Logging.File,
		Console: a.cfg.Logging.File == "",
		Pretty:  a.cfg.Logging.Pretty,
		Redact:  true,
		Output:  a.stderr,
	})
	if err != nil {
		return err
	}
	a.log = a.logger.Zerolog()
	return nil
}
