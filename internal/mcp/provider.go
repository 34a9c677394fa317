// Package mcp adapts Model Context Protocol servers to tool.Provider.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/Cyclone1070/mcpagent/internal/tool"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// Transport kinds accepted in Config.Transport.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
	TransportHTTP  = "http"
)

var (
	// ErrNotConnected is returned by CallTool before Init or after Close.
	ErrNotConnected = errors.New("mcp server not connected")
)

// Config describes how to reach one MCP server.
type Config struct {
	Name      string
	Transport string
	Command   string
	Args      []string
	Env       map[string]string
	Endpoint  string
}

// Option configures a Provider.
type Option func(*Provider)

// WithTransport bypasses Config and connects over t. Used with in-memory transports.
func WithTransport(t mcpsdk.Transport) Option {
	return func(p *Provider) {
		p.buildTransport = func() (mcpsdk.Transport, error) { return t, nil }
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Provider) { p.log = log }
}

// WithVersion sets the client version reported to servers.
func WithVersion(v string) Option {
	return func(p *Provider) { p.version = v }
}

// Provider is a tool.Provider backed by one MCP client session.
type Provider struct {
	cfg            Config
	version        string
	buildTransport func() (mcpsdk.Transport, error)
	log            zerolog.Logger

	mu      sync.Mutex
	session *mcpsdk.ClientSession
	tools   []tool.Descriptor
}

var _ tool.Provider = (*Provider)(nil)

func New(cfg Config, opts ...Option) *Provider {
	p := &Provider{
		cfg:     cfg,
		version: "dev",
		log:     zerolog.Nop(),
	}
	p.buildTransport = func() (mcpsdk.Transport, error) { return buildTransport(cfg) }
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With().Str("mcp_server", cfg.Name).Logger()
	return p
}

// Name returns the configured server name.
func (p *Provider) Name() string {
	return p.cfg.Name
}

// Init connects to the server and caches its tool list.
func (p *Provider) Init(ctx context.Context) error {
	transport, err := p.buildTransport()
	if err != nil {
		return fmt.Errorf("mcp %s: build transport: %w", p.cfg.Name, err)
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "mcpagent", Version: p.version}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("mcp %s: connect: %w", p.cfg.Name, err)
	}

	var descs []tool.Descriptor
	for t, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return fmt.Errorf("mcp %s: list tools: %w", p.cfg.Name, err)
		}
		desc, err := toDescriptor(t)
		if err != nil {
			_ = session.Close()
			return fmt.Errorf("mcp %s: tool %q: %w", p.cfg.Name, t.Name, err)
		}
		descs = append(descs, desc)
	}

	p.mu.Lock()
	p.session = session
	p.tools = descs
	p.mu.Unlock()

	p.log.Info().Int("tools", len(descs)).Msg("mcp server connected")
	return nil
}

// Tools returns the tools listed during Init.
func (p *Provider) Tools() []tool.Descriptor {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]tool.Descriptor, len(p.tools))
	copy(out, p.tools)
	return out
}

// CallTool invokes name on the server. A result flagged as a tool error is
// returned as an error carrying the result text.
func (p *Provider) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()
	if session == nil {
		return nil, ErrNotConnected
	}

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	if result.IsError {
		return nil, errors.New(resultText(result))
	}
	return result, nil
}

// Close ends the session. It is safe to call more than once.
func (p *Provider) Close() error {
	p.mu.Lock()
	session := p.session
	p.session = nil
	p.mu.Unlock()

	if session == nil {
		return nil
	}
	return session.Close()
}

func toDescriptor(t *mcpsdk.Tool) (tool.Descriptor, error) {
	schema, err := tool.ValueOf(t.InputSchema)
	if err != nil {
		return tool.Descriptor{}, fmt.Errorf("input schema: %w", err)
	}
	return tool.Descriptor{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schema,
	}, nil
}

func resultText(r *mcpsdk.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if text, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	if len(parts) == 0 {
		return "tool reported an error"
	}
	return strings.Join(parts, "\n")
}

func buildTransport(cfg Config) (mcpsdk.Transport, error) {
	switch cfg.Transport {
	case TransportStdio, "":
		if strings.TrimSpace(cfg.Command) == "" {
			return nil, fmt.Errorf("stdio command is empty")
		}
		// #nosec G204 -- command comes from the operator's config file
		cmd := exec.Command(cfg.Command, cfg.Args...)
		if len(cfg.Env) > 0 {
			cmd.Env = os.Environ()
			for k, v := range cfg.Env {
				cmd.Env = append(cmd.Env, k+"="+v)
			}
		}
		return &mcpsdk.CommandTransport{Command: cmd}, nil
	case TransportSSE:
		endpoint, err := normalizeEndpoint(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid SSE endpoint: %w", err)
		}
		return &mcpsdk.SSEClientTransport{Endpoint: endpoint}, nil
	case TransportHTTP:
		endpoint, err := normalizeEndpoint(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid HTTP endpoint: %w", err)
		}
		return &mcpsdk.StreamableClientTransport{Endpoint: endpoint}, nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
}

func normalizeEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("endpoint is empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	parsed.Scheme = scheme
	return parsed.String(), nil
}
