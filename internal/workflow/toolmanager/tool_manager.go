package toolmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Cyclone1070/mcpagent/internal/provider"
	"github.com/Cyclone1070/mcpagent/internal/tool"
	"github.com/Cyclone1070/mcpagent/internal/workflow"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// ResultToolNotFound is the output fed back when no provider advertises the requested tool.
const ResultToolNotFound = "Tool not found"

type route struct {
	provider tool.Provider
	desc     tool.Descriptor
	schema   *gojsonschema.Schema
}

// Option configures a Manager.
type Option func(*Manager)

// WithEvents makes Invoke emit ToolStartEvent and ToolEndEvent.
func WithEvents(events chan<- workflow.Event) Option {
	return func(m *Manager) { m.events = events }
}

// WithValidation checks arguments against the advertised input schema
// before calling the provider.
func WithValidation(enabled bool) Option {
	return func(m *Manager) { m.validate = enabled }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// Manager resolves tool calls against a fixed set of initialized providers.
type Manager struct {
	providers []tool.Provider
	routes    map[string]*route
	descs     []tool.Descriptor
	events    chan<- workflow.Event
	validate  bool
	log       zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewManager indexes the tools of providers. On a name collision the first
// registered provider wins.
func NewManager(providers []tool.Provider, opts ...Option) *Manager {
	m := &Manager{
		providers: providers,
		routes:    make(map[string]*route),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, p := range providers {
		for _, d := range p.Tools() {
			if existing, ok := m.routes[d.Name]; ok {
				m.log.Warn().
					Str("tool", d.Name).
					Str("provider", p.Name()).
					Str("kept", existing.provider.Name()).
					Msg("duplicate tool name ignored")
				continue
			}
			r := &route{provider: p, desc: d}
			if m.validate {
				r.schema = m.compile(d)
			}
			m.routes[d.Name] = r
			m.descs = append(m.descs, d)
		}
	}

	return m
}

func (m *Manager) compile(d tool.Descriptor) *gojsonschema.Schema {
	if d.InputSchema.Kind() != tool.KindObject {
		return nil
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(d.InputSchema.Interface()))
	if err != nil {
		m.log.Warn().Err(err).Str("tool", d.Name).Msg("input schema does not compile, validation disabled for tool")
		return nil
	}
	return schema
}

// Descriptors returns the union of advertised tools in registration order.
func (m *Manager) Descriptors() []tool.Descriptor {
	out := make([]tool.Descriptor, len(m.descs))
	copy(out, m.descs)
	return out
}

// Invoke runs call and returns its result. Failures are reported in the
// result text so the model can react to them; Invoke never fails.
func (m *Manager) Invoke(ctx context.Context, call provider.ToolCall) provider.ToolResult {
	workflow.Emit(m.events, workflow.ToolStartEvent{
		CallID:    call.ID,
		ToolName:  call.Name,
		Arguments: call.Arguments,
	})

	output, failed := m.invoke(ctx, call)

	log := m.log.Debug()
	if failed {
		log = m.log.Warn()
	}
	log.Str("call_id", call.ID).Str("tool", call.Name).Bool("failed", failed).Msg("tool call finished")

	workflow.Emit(m.events, workflow.ToolEndEvent{
		CallID:   call.ID,
		ToolName: call.Name,
		Output:   output,
		Failed:   failed,
	})

	return provider.ToolResult{CallID: call.ID, Output: output}
}

func (m *Manager) invoke(ctx context.Context, call provider.ToolCall) (string, bool) {
	r, ok := m.routes[call.Name]
	if !ok {
		return ResultToolNotFound, true
	}

	args, err := parseArguments(call.Arguments)
	if err != nil {
		return "Error parsing arguments: " + err.Error(), true
	}

	if r.schema != nil {
		if err := validateArguments(r.schema, args); err != nil {
			return "Error validating arguments: " + err.Error(), true
		}
	}

	out, err := r.provider.CallTool(ctx, call.Name, args)
	if err != nil {
		return fmt.Sprintf("Error calling tool %s: %v", call.Name, err), true
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf("Error calling tool %s: encode result: %v", call.Name, err), true
	}
	return string(data), false
}

// parseArguments decodes a JSON object. Empty text and null mean no arguments.
func parseArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}

	v, err := tool.ParseValue([]byte(raw))
	if err != nil {
		return nil, err
	}

	switch v.Kind() {
	case tool.KindNull:
		return map[string]any{}, nil
	case tool.KindObject:
		return v.Interface().(map[string]any), nil
	default:
		return nil, fmt.Errorf("expected a JSON object, got %s", v.Kind())
	}
}

func validateArguments(schema *gojsonschema.Schema, args map[string]any) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Close closes every provider once. Later calls return the first result.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		var errs []error
		for _, p := range m.providers {
			if err := p.Close(); err != nil {
				m.log.Warn().Err(err).Str("provider", p.Name()).Msg("provider close failed")
				errs = append(errs, fmt.Errorf("close %s: %w", p.Name(), err))
			}
		}
		m.closeErr = errors.Join(errs...)
	})
	return m.closeErr
}
