// Package workspace provides built-in file tools confined to one directory.
package workspace

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/Cyclone1070/mcpagent/internal/tool"
	"github.com/rs/zerolog"
)

// ProviderName is the name the workspace provider reports.
const ProviderName = "workspace"

// Config controls the workspace tools.
type Config struct {
	Root             string
	MaxFileSize      int64
	RespectGitignore bool
	DefaultListLimit int
	MaxListResults   int
	// CreateRoot makes Init create Root when it does not exist.
	CreateRoot bool
}

// DefaultConfig returns the limits used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		Root:             ".",
		MaxFileSize:      1024 * 1024,
		RespectGitignore: true,
		DefaultListLimit: 200,
		MaxListResults:   5000,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Root == "" {
		c.Root = d.Root
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = d.MaxFileSize
	}
	if c.DefaultListLimit <= 0 {
		c.DefaultListLimit = d.DefaultListLimit
	}
	if c.MaxListResults <= 0 {
		c.MaxListResults = d.MaxListResults
	}
	c.DefaultListLimit = min(c.DefaultListLimit, c.MaxListResults)
	return c
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger. The default discards output.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Provider) { p.log = log }
}

// Provider serves read_file, write_file and list_directory.
type Provider struct {
	cfg Config
	log zerolog.Logger

	mu       sync.RWMutex
	resolver *resolver
	ignore   *ignoreMatcher
	handlers map[string]handler
	order    []string
}

var _ tool.Provider = (*Provider)(nil)

func New(cfg Config, opts ...Option) *Provider {
	p := &Provider{
		cfg: cfg.withDefaults(),
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With().Str("provider", ProviderName).Logger()
	return p
}

func (p *Provider) Name() string {
	return ProviderName
}

// Init resolves the root and loads its .gitignore.
func (p *Provider) Init(ctx context.Context) error {
	if p.cfg.CreateRoot {
		if err := os.MkdirAll(p.cfg.Root, 0o755); err != nil {
			return &RootError{Root: p.cfg.Root, Cause: err}
		}
	}

	root, err := canonicaliseRoot(p.cfg.Root)
	if err != nil {
		return err
	}

	ignore := &ignoreMatcher{}
	if p.cfg.RespectGitignore {
		if ignore, err = loadIgnore(root); err != nil {
			return err
		}
	}

	handlers, order, err := p.buildHandlers()
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.resolver = &resolver{root: root}
	p.ignore = ignore
	p.handlers = handlers
	p.order = order
	p.mu.Unlock()

	p.log.Info().Str("root", root).Msg("workspace ready")
	return nil
}

// Root returns the canonical root after Init.
func (p *Provider) Root() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.resolver == nil {
		return ""
	}
	return p.resolver.root
}

func (p *Provider) Tools() []tool.Descriptor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	descs := make([]tool.Descriptor, 0, len(p.order))
	for _, name := range p.order {
		descs = append(descs, p.handlers[name].descriptor())
	}
	return descs
}

func (p *Provider) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	p.mu.RLock()
	h, ok := p.handlers[name]
	ready := p.handlers != nil
	p.mu.RUnlock()

	if !ready {
		return nil, ErrNotInitialized
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return h.call(ctx, args)
}

// Close is a no-op; the workspace holds no open handles between calls.
func (p *Provider) Close() error {
	return nil
}

func (p *Provider) buildHandlers() (map[string]handler, []string, error) {
	readDesc, err := descriptor("read_file",
		"Read a UTF-8 text file from the workspace. Use offset and limit (bytes) to read part of a large file.",
		`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "File path relative to the workspace root"},
				"offset": {"type": "integer", "description": "Byte offset to start reading from", "minimum": 0},
				"limit": {"type": "integer", "description": "Maximum number of bytes to read", "minimum": 0}
			},
			"required": ["path"]
		}`)
	if err != nil {
		return nil, nil, err
	}

	writeDesc, err := descriptor("write_file",
		"Write a text file in the workspace, creating parent directories. Existing files are only replaced when overwrite is true.",
		`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "File path relative to the workspace root"},
				"content": {"type": "string", "description": "Full file content"},
				"overwrite": {"type": "boolean", "description": "Replace the file if it exists", "default": false}
			},
			"required": ["path", "content"]
		}`)
	if err != nil {
		return nil, nil, err
	}

	listDesc, err := descriptor("list_directory",
		"List files and directories in the workspace. Directories are listed first. Entries ignored by .gitignore are skipped unless include_ignored is true.",
		`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Directory relative to the workspace root, defaults to the root"},
				"max_depth": {"type": "integer", "description": "0 lists immediate children, -1 is unlimited"},
				"include_ignored": {"type": "boolean", "description": "Include entries matched by .gitignore"},
				"offset": {"type": "integer", "minimum": 0},
				"limit": {"type": "integer", "minimum": 0}
			}
		}`)
	if err != nil {
		return nil, nil, err
	}

	handlers := map[string]handler{
		readDesc.Name:  newHandler(readDesc, p.readFile),
		writeDesc.Name: newHandler(writeDesc, p.writeFile),
		listDesc.Name:  newHandler(listDesc, p.listDirectory),
	}
	return handlers, []string{readDesc.Name, writeDesc.Name, listDesc.Name}, nil
}

func descriptor(name, description, schema string) (tool.Descriptor, error) {
	v, err := tool.ParseValue([]byte(schema))
	if err != nil {
		return tool.Descriptor{}, fmt.Errorf("%s schema: %w", name, err)
	}
	return tool.Descriptor{Name: name, Description: description, InputSchema: v}, nil
}
