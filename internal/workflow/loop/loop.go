package loop

import (
	"context"
	"errors"
	"fmt"

	"github.com/Cyclone1070/mcpagent/internal/workflow"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyRun is returned when Run is called on a loop that has left Idle.
	ErrAlreadyRun = errors.New("loop already run")
	// ErrMaxIterations is returned when WithMaxIterations bounds the loop.
	ErrMaxIterations = errors.New("max iterations reached")
)

// State is the position of the loop in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateSending
	StateAwaitingToolResults
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateAwaitingToolResults:
		return "awaiting_tool_results"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxIterations bounds the number of model roundtrips. Zero means unbounded.
func WithMaxIterations(n int) Option {
	return func(l *Loop) { l.maxIterations = n }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loop) { l.log = log }
}

// Loop drives roundtrips and tool calls until the model stops requesting tools.
// A Loop runs once; the tool providers are closed when it reaches Done.
type Loop struct {
	conv          conversation
	tools         toolInvoker
	events        chan<- workflow.Event
	maxIterations int
	state         State
	log           zerolog.Logger
}

func NewLoop(conv conversation, tools toolInvoker, events chan<- workflow.Event, opts ...Option) *Loop {
	l := &Loop{
		conv:   conv,
		tools:  tools,
		events: events,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State reports the current state.
func (l *Loop) State() State {
	return l.state
}

// Run sends prompt and answers tool calls, strictly one at a time in the
// order the model issued them, until a turn carries no tool calls. It returns
// the text of that final turn.
func (l *Loop) Run(ctx context.Context, prompt string) (text string, err error) {
	if l.state != StateIdle {
		return "", ErrAlreadyRun
	}

	defer func() {
		l.state = StateDone
		if closeErr := l.tools.Close(); closeErr != nil {
			l.log.Warn().Err(closeErr).Msg("closing tool providers")
		}
		workflow.Emit(l.events, workflow.DoneEvent{Err: err})
	}()

	l.transition(StateSending)
	workflow.Emit(l.events, workflow.ThinkingEvent{})
	reply, err := l.conv.Send(ctx, prompt)
	iterations := 1

	for {
		if err != nil {
			return "", err
		}

		if reply.Text != "" {
			workflow.Emit(l.events, workflow.TextEvent{Text: reply.Text})
		}

		if len(reply.ToolCalls) == 0 {
			return reply.Text, nil
		}

		l.transition(StateAwaitingToolResults)
		for _, call := range reply.ToolCalls {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			result := l.tools.Invoke(ctx, call)
			if err := l.conv.AppendToolResult(result.CallID, result.Output); err != nil {
				return "", fmt.Errorf("append tool result %s: %w", result.CallID, err)
			}
		}

		if l.maxIterations > 0 && iterations >= l.maxIterations {
			return "", fmt.Errorf("%w (%d)", ErrMaxIterations, l.maxIterations)
		}

		l.transition(StateSending)
		workflow.Emit(l.events, workflow.ThinkingEvent{})
		reply, err = l.conv.Resume(ctx)
		iterations++
	}
}

func (l *Loop) transition(to State) {
	l.log.Debug().Stringer("from", l.state).Stringer("to", to).Msg("loop state")
	l.state = to
}
