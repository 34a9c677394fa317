package agent

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Cyclone1070/mcpagent/internal/provider"
	"github.com/Cyclone1070/mcpagent/internal/tool"
	"github.com/Cyclone1070/mcpagent/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel answers each roundtrip with the next scripted response,
// regardless of which channel it arrives on.
type scriptedModel struct {
	script    []provider.Response
	err       error
	next      int
	sent      []string
	histories [][]provider.Message
	decls     []tool.Declaration
}

func (m *scriptedModel) Open(ctx context.Context, history []provider.Message, tools []tool.Declaration) (provider.Channel, error) {
	m.histories = append(m.histories, history)
	m.decls = tools
	return &scriptedChannel{model: m}, nil
}

type scriptedChannel struct {
	model *scriptedModel
}

func (c *scriptedChannel) Send(ctx context.Context, text string) (*provider.Response, error) {
	m := c.model
	m.sent = append(m.sent, text)
	if m.next >= len(m.script) {
		if m.err != nil {
			return nil, m.err
		}
		return nil, errors.New("script exhausted")
	}
	resp := m.script[m.next]
	m.next++
	return &resp, nil
}

// gatedModel blocks each roundtrip until release is closed.
type gatedModel struct {
	started chan struct{}
	release chan struct{}
}

func (m *gatedModel) Open(ctx context.Context, history []provider.Message, tools []tool.Declaration) (provider.Channel, error) {
	return m, nil
}

func (m *gatedModel) Send(ctx context.Context, text string) (*provider.Response, error) {
	close(m.started)
	<-m.release
	return &provider.Response{Text: "done"}, nil
}

type fakeProvider struct {
	name       string
	tools      []tool.Descriptor
	initErr    error
	results    map[string]any
	closeCount atomic.Int32
	calls      []string
}

func (p *fakeProvider) Name() string                   { return p.name }
func (p *fakeProvider) Init(ctx context.Context) error { return p.initErr }
func (p *fakeProvider) Tools() []tool.Descriptor       { return p.tools }
func (p *fakeProvider) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	p.calls = append(p.calls, name)
	return p.results[name], nil
}
func (p *fakeProvider) Close() error {
	p.closeCount.Add(1)
	return nil
}

func objectSchema(t *testing.T) tool.Value {
	t.Helper()
	v, err := tool.ParseValue([]byte(`{"type":"object","properties":{"name":{"type":"string"}}}`))
	require.NoError(t, err)
	return v
}

func call(name string, args map[string]any) provider.FunctionCall {
	return provider.FunctionCall{Name: name, Args: args}
}

func TestAgent_EndToEnd(t *testing.T) {
	people := &fakeProvider{
		name:    "people",
		tools:   []tool.Descriptor{{Name: "lookup_person", Description: "Find a person", InputSchema: objectSchema(t)}},
		results: map[string]any{"lookup_person": map[string]any{"email": "antonette@example.com"}},
	}
	files := &fakeProvider{
		name:    "files",
		tools:   []tool.Descriptor{{Name: "write_file", InputSchema: objectSchema(t)}},
		results: map[string]any{"write_file": map[string]any{"written": true}},
	}
	model := &scriptedModel{script: []provider.Response{
		{Calls: []provider.FunctionCall{call("lookup_person", map[string]any{"name": "Antonette"})}},
		{Text: "Saving.", Calls: []provider.FunctionCall{
			call("write_file", map[string]any{"name": "antonette.md"}),
			call("missing_tool", nil),
		}},
		{Text: "Antonette's email is antonette@example.com."},
	}}

	a := New(model, []tool.Provider{people, files},
		WithSystemPrompt("Answer briefly."),
		WithContext("Antonette is a data analyst at Acme."),
	)
	require.NoError(t, a.Init(context.Background()))
	assert.Equal(t, 2, a.Catalog().Len())

	text, err := a.Invoke(context.Background(), "What is Antonette's email?")

	require.NoError(t, err)
	assert.Equal(t, "Antonette's email is antonette@example.com.", text)
	assert.Equal(t, []string{"lookup_person"}, people.calls)
	assert.Equal(t, []string{"write_file"}, files.calls)

	require.NoError(t, a.Close())
	assert.Equal(t, int32(1), people.closeCount.Load())
	assert.Equal(t, int32(1), files.closeCount.Load())

	// Each batch of tool results is sent on a freshly opened channel.
	require.Len(t, model.histories, 3)
	assert.Len(t, model.histories[0], 4)
	assert.True(t, strings.Contains(model.histories[0][2].Content, "Antonette is a data analyst"))
	assert.Equal(t, model.histories[1], a.History()[:len(model.histories[1])])

	assert.Equal(t, []string{
		"What is Antonette's email?",
		`Tool result for call_1: {"email":"antonette@example.com"}`,
		"Tool result for call_3: Tool not found",
	}, model.sent)

	history := a.History()
	assert.Equal(t, provider.Message{Role: provider.RoleUser, Content: `Tool result for call_2: {"written":true}`}, history[8])
	assert.Equal(t, provider.Message{Role: provider.RoleModel, Content: "Antonette's email is antonette@example.com."}, history[len(history)-1])
}

func TestAgent_InvokeBeforeInit(t *testing.T) {
	a := New(&scriptedModel{}, nil)
	_, err := a.Invoke(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestAgent_EmptyPromptRejected(t *testing.T) {
	model := &scriptedModel{script: []provider.Response{{Text: "a"}}}
	a := New(model, nil)
	require.NoError(t, a.Init(context.Background()))

	for _, prompt := range []string{"", "  \n\t"} {
		_, err := a.Invoke(context.Background(), prompt)
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	}
	assert.Empty(t, model.sent)

	text, err := a.Invoke(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "a", text)
}

func TestAgent_CloseWaitsForInvoke(t *testing.T) {
	p := &fakeProvider{name: "p"}
	model := &gatedModel{started: make(chan struct{}), release: make(chan struct{})}
	a := New(model, []tool.Provider{p})
	require.NoError(t, a.Init(context.Background()))

	invoked := make(chan error, 1)
	go func() {
		_, err := a.Invoke(context.Background(), "hi")
		invoked <- err
	}()
	<-model.started

	closed := make(chan error, 1)
	go func() { closed <- a.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while Invoke was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(model.release)
	require.NoError(t, <-invoked)
	require.NoError(t, <-closed)
	assert.Equal(t, int32(1), p.closeCount.Load())
}

func TestAgent_FailedProviderExcludedAndClosed(t *testing.T) {
	good := &fakeProvider{name: "good", tools: []tool.Descriptor{{Name: "ok", InputSchema: objectSchema(t)}}}
	bad := &fakeProvider{name: "bad", tools: []tool.Descriptor{{Name: "broken", InputSchema: objectSchema(t)}}, initErr: errors.New("spawn failed")}
	model := &scriptedModel{script: []provider.Response{{Text: "done"}}}

	a := New(model, []tool.Provider{bad, good})
	require.NoError(t, a.Init(context.Background()))

	decls := a.Catalog().Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, "ok", decls[0].Name)
	assert.Equal(t, int32(1), bad.closeCount.Load())

	_, err := a.Invoke(context.Background(), "go")
	require.NoError(t, err)
	require.NoError(t, a.Close())
	assert.Equal(t, int32(1), bad.closeCount.Load())
	assert.Equal(t, int32(1), good.closeCount.Load())
}

func TestAgent_DegradedCatalogAdvertisesNothing(t *testing.T) {
	weird, err := tool.ParseValue([]byte(`{"type":"tuple"}`))
	require.NoError(t, err)
	p := &fakeProvider{name: "p", tools: []tool.Descriptor{{Name: "odd", InputSchema: weird}}}
	model := &scriptedModel{script: []provider.Response{{Text: "no tools"}}}

	a := New(model, []tool.Provider{p})
	require.NoError(t, a.Init(context.Background()))
	assert.True(t, a.Catalog().Degraded())

	text, err := a.Invoke(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "no tools", text)
	assert.Empty(t, model.decls)
}

func TestAgent_RoundtripErrorClosesProviders(t *testing.T) {
	quota := errors.New("quota exceeded")
	p := &fakeProvider{name: "p", tools: []tool.Descriptor{{Name: "t", InputSchema: objectSchema(t)}}}
	model := &scriptedModel{
		script: []provider.Response{{Calls: []provider.FunctionCall{call("t", nil)}}},
		err:    quota,
	}

	a := New(model, []tool.Provider{p})
	require.NoError(t, a.Init(context.Background()))

	_, err := a.Invoke(context.Background(), "go")
	assert.ErrorIs(t, err, quota)
	assert.Equal(t, int32(1), p.closeCount.Load())

	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
	assert.Equal(t, int32(1), p.closeCount.Load())
}

func TestAgent_Lifecycle(t *testing.T) {
	model := &scriptedModel{script: []provider.Response{{Text: "a"}}}
	a := New(model, nil)

	require.NoError(t, a.Init(context.Background()))
	assert.ErrorIs(t, a.Init(context.Background()), ErrAlreadyInitialized)
	assert.NotEmpty(t, a.SessionID())

	_, err := a.Invoke(context.Background(), "one")
	require.NoError(t, err)
	_, err = a.Invoke(context.Background(), "two")
	assert.ErrorIs(t, err, ErrAlreadyInvoked)

	require.NoError(t, a.Close())
	_, err = a.Invoke(context.Background(), "three")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, a.Init(context.Background()), ErrClosed)
}

func TestAgent_CloseWithoutInit(t *testing.T) {
	p := &fakeProvider{name: "p"}
	a := New(&scriptedModel{}, []tool.Provider{p})

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.Equal(t, int32(1), p.closeCount.Load())
}

func TestAgent_EventsAndMaxIterations(t *testing.T) {
	p := &fakeProvider{name: "p", tools: []tool.Descriptor{{Name: "t", InputSchema: objectSchema(t)}}}
	model := &scriptedModel{script: []provider.Response{
		{Calls: []provider.FunctionCall{call("t", nil)}},
		{Calls: []provider.FunctionCall{call("t", nil)}},
		{Text: "never reached"},
	}}
	events := make(chan workflow.Event, 32)

	a := New(model, []tool.Provider{p}, WithEvents(events), WithMaxIterations(1))
	require.NoError(t, a.Init(context.Background()))

	_, err := a.Invoke(context.Background(), "go")
	require.Error(t, err)
	close(events)

	var starts, dones int
	for ev := range events {
		switch e := ev.(type) {
		case workflow.ToolStartEvent:
			starts++
			assert.Equal(t, "t", e.ToolName)
		case workflow.DoneEvent:
			dones++
			assert.Error(t, e.Err)
		}
	}
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, dones)
}
