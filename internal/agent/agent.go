// Package agent is the caller-facing facade: it initializes tool providers,
// builds the tool catalog, and runs one prompt through the loop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Cyclone1070/mcpagent/internal/provider"
	"github.com/Cyclone1070/mcpagent/internal/session"
	"github.com/Cyclone1070/mcpagent/internal/tool"
	"github.com/Cyclone1070/mcpagent/internal/workflow"
	"github.com/Cyclone1070/mcpagent/internal/workflow/loop"
	"github.com/Cyclone1070/mcpagent/internal/workflow/toolmanager"
	"github.com/rs/zerolog"
)

var (
	// ErrNotInitialized is returned by Invoke before Init.
	ErrNotInitialized = errors.New("agent not initialized")
	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("agent already initialized")
	// ErrAlreadyInvoked is returned by a second Invoke; providers are released
	// when the first one finishes.
	ErrAlreadyInvoked = errors.New("agent already invoked")
	// ErrClosed is returned by Init or Invoke after Close.
	ErrClosed = errors.New("agent closed")
	// ErrEmptyPrompt is returned by Invoke when the prompt is blank.
	ErrEmptyPrompt = errors.New("prompt is empty")
)

type options struct {
	systemPrompt  string
	context       string
	events        chan<- workflow.Event
	validate      bool
	maxIterations int
	log           zerolog.Logger
}

// Option configures an Agent.
type Option func(*options)

func WithSystemPrompt(prompt string) Option {
	return func(o *options) { o.systemPrompt = prompt }
}

// WithContext primes the conversation with a reference context block.
func WithContext(context string) Option {
	return func(o *options) { o.context = context }
}

// WithEvents streams loop and tool events to events. Sends block, so the
// channel must be drained.
func WithEvents(events chan<- workflow.Event) Option {
	return func(o *options) { o.events = events }
}

// WithValidation checks tool arguments against their advertised schema.
func WithValidation(enabled bool) Option {
	return func(o *options) { o.validate = enabled }
}

// WithMaxIterations bounds the number of model roundtrips. Zero is unbounded.
func WithMaxIterations(n int) Option {
	return func(o *options) { o.maxIterations = n }
}

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// Agent runs a single prompt against a model with the tools of its providers.
type Agent struct {
	model     provider.Model
	providers []tool.Provider
	opts      options

	mu      sync.Mutex
	session *session.Session
	manager *toolmanager.Manager
	catalog *tool.Catalog
	invoked bool
	closed  bool

	running   sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

func New(model provider.Model, providers []tool.Provider, opts ...Option) *Agent {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Agent{
		model:     model,
		providers: providers,
		opts:      o,
	}
}

// Init initializes every provider concurrently. Providers that fail are
// logged, closed and left out; the catalog is built from the rest once all
// have settled.
func (a *Agent) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.session != nil {
		return ErrAlreadyInitialized
	}

	ready := a.initProviders(ctx)

	a.manager = toolmanager.NewManager(ready,
		toolmanager.WithEvents(a.opts.events),
		toolmanager.WithValidation(a.opts.validate),
		toolmanager.WithLogger(a.opts.log),
	)
	a.catalog = tool.BuildCatalog(a.manager.Descriptors(), a.opts.log)
	if a.catalog.Degraded() {
		a.opts.log.Warn().Err(a.catalog.Err()).Msg("tool catalog degraded; continuing without tools")
	}

	a.session = session.New(a.model, session.Options{
		SystemPrompt: a.opts.systemPrompt,
		Context:      a.opts.context,
		Catalog:      a.catalog,
		Logger:       &a.opts.log,
	})

	a.opts.log.Info().
		Int("providers", len(ready)).
		Int("tools", a.catalog.Len()).
		Str("session", a.session.ID()).
		Msg("agent initialized")
	return nil
}

func (a *Agent) initProviders(ctx context.Context) []tool.Provider {
	errs := make([]error, len(a.providers))

	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = p.Init(ctx)
		}()
	}
	wg.Wait()

	ready := make([]tool.Provider, 0, len(a.providers))
	for i, p := range a.providers {
		if errs[i] == nil {
			ready = append(ready, p)
			continue
		}
		a.opts.log.Error().Err(errs[i]).Str("provider", p.Name()).Msg("provider init failed; excluding its tools")
		if err := p.Close(); err != nil {
			a.opts.log.Warn().Err(err).Str("provider", p.Name()).Msg("closing failed provider")
		}
	}
	return ready
}

// Catalog returns the catalog built by Init, or nil before it.
func (a *Agent) Catalog() *tool.Catalog {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.catalog
}

// SessionID returns the conversation ID, or "" before Init.
func (a *Agent) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return ""
	}
	return a.session.ID()
}

// History returns a copy of the conversation transcript.
func (a *Agent) History() []provider.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil
	}
	return a.session.History()
}

// Invoke runs prompt to completion and returns the model's final text.
// Tool providers are closed when it returns, on success or failure.
func (a *Agent) Invoke(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	a.mu.Lock()
	switch {
	case a.closed:
		a.mu.Unlock()
		return "", ErrClosed
	case a.session == nil:
		a.mu.Unlock()
		return "", ErrNotInitialized
	case a.invoked:
		a.mu.Unlock()
		return "", ErrAlreadyInvoked
	}
	a.invoked = true
	a.running.Add(1)
	defer a.running.Done()
	sess, manager := a.session, a.manager
	a.mu.Unlock()

	l := loop.NewLoop(sess, manager, a.opts.events,
		loop.WithMaxIterations(a.opts.maxIterations),
		loop.WithLogger(a.opts.log.With().Str("session", sess.ID()).Logger()),
	)
	return l.Run(ctx, prompt)
}

// Close releases every provider and the session. It is safe to call more
// than once and after Invoke has already released the providers.
// A running Invoke is waited for; cancel its context to end it early.
func (a *Agent) Close() error {
	a.mu.Lock()
	a.closed = true
	sess, manager := a.session, a.manager
	a.mu.Unlock()

	a.running.Wait()

	a.closeOnce.Do(func() {
		if sess != nil {
			sess.Close()
		}
		if manager != nil {
			a.closeErr = manager.Close()
			return
		}
		// Init never ran, so the providers were never handed to a manager.
		var errs []error
		for _, p := range a.providers {
			if err := p.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", p.Name(), err))
			}
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}
