// Package session owns the conversation transcript and runs one model
// roundtrip per call.
//
// The transcript is append-only. The model channel is a disposable
// projection of it: it is opened lazily from every turn that precedes the
// one being sent, reused while the transcript only grows through the
// channel's own exchanges, and discarded whenever a turn is appended out of
// band (a tool result). Recreating it replays the transcript verbatim, so the
// cost of a tool roundtrip includes one channel setup.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Cyclone1070/mcpagent/internal/provider"
	"github.com/Cyclone1070/mcpagent/internal/tool"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrSessionFailed is returned by roundtrips after an earlier roundtrip failed.
	ErrSessionFailed = errors.New("session failed")
	// ErrSessionClosed is returned by any call after Close.
	ErrSessionClosed = errors.New("session closed")
	// ErrNothingToResume is returned by Resume when the last turn is not a user turn.
	ErrNothingToResume = errors.New("nothing to resume: last turn is not a user turn")
)

const (
	systemAck  = "I'll follow these instructions."
	contextAck = "I have read the reference context. Please go ahead with your question."

	contextFrame = "Below is reference context. Read it carefully and use it as the basis for later answers:\n\n" +
		"===BEGIN REFERENCE CONTEXT===\n%s\n===END REFERENCE CONTEXT===\n\n" +
		"Remember this information; my next message will ask about it."
)

// Options configures a Session.
type Options struct {
	// SystemPrompt becomes the first priming pair when non-empty.
	SystemPrompt string
	// Context becomes the second priming pair when non-empty.
	Context string
	// Catalog is advertised on every channel. Nil advertises no tools.
	Catalog *tool.Catalog
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Reply is the outcome of one roundtrip.
type Reply struct {
	Text      string
	ToolCalls []provider.ToolCall
}

// Session is a single conversation. It is not safe for concurrent use.
type Session struct {
	id         string
	model      provider.Model
	decls      []tool.Declaration
	transcript []provider.Message
	channel    provider.Channel
	lastCallID uint64
	failure    error
	closed     bool
	log        zerolog.Logger
}

// New creates a session whose transcript starts with the priming turns.
// No model call is made until the first roundtrip.
func New(model provider.Model, opts Options) *Session {
	id := uuid.NewString()

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	s := &Session{
		id:    id,
		model: model,
		decls: opts.Catalog.Declarations(),
		log:   log.With().Str("session", id).Logger(),
	}

	if opts.SystemPrompt != "" {
		s.append(provider.RoleUser, "<system>"+opts.SystemPrompt+"</system>")
		s.append(provider.RoleModel, systemAck)
	}
	if opts.Context != "" {
		s.append(provider.RoleUser, fmt.Sprintf(contextFrame, opts.Context))
		s.append(provider.RoleModel, contextAck)
	}

	s.log.Debug().
		Int("priming_turns", len(s.transcript)).
		Int("tools", len(s.decls)).
		Msg("session created")

	return s
}

// ID returns the session identifier used in log fields.
func (s *Session) ID() string {
	return s.id
}

// Send appends text as a user turn and runs one roundtrip.
// On failure the user turn stays in the transcript and the session is failed.
func (s *Session) Send(ctx context.Context, text string) (*Reply, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	s.append(provider.RoleUser, text)
	return s.roundtrip(ctx)
}

// Resume runs a roundtrip for the last stored turn without appending a new
// user turn. The last turn must be a user turn, typically a tool result.
func (s *Session) Resume(ctx context.Context) (*Reply, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if len(s.transcript) == 0 || s.transcript[len(s.transcript)-1].Role != provider.RoleUser {
		return nil, ErrNothingToResume
	}
	return s.roundtrip(ctx)
}

// AppendToolResult appends the output of callID as a user turn and discards
// the channel, which was bound to the transcript without it.
func (s *Session) AppendToolResult(callID, output string) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.append(provider.RoleUser, fmt.Sprintf("Tool result for %s: %s", callID, output))
	s.channel = nil
	return nil
}

// History returns a copy of the transcript.
func (s *Session) History() []provider.Message {
	out := make([]provider.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Close drops the channel. Later calls return ErrSessionClosed.
func (s *Session) Close() {
	s.closed = true
	s.channel = nil
}

func (s *Session) usable() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.failure != nil {
		return fmt.Errorf("%w: %w", ErrSessionFailed, s.failure)
	}
	return nil
}

func (s *Session) append(role provider.Role, content string) {
	s.transcript = append(s.transcript, provider.Message{Role: role, Content: content})
}

// roundtrip sends the last turn. Errors from the model are returned as is.
func (s *Session) roundtrip(ctx context.Context) (*Reply, error) {
	last := len(s.transcript) - 1
	pending := s.transcript[last]

	if s.channel == nil {
		history := make([]provider.Message, last)
		copy(history, s.transcript[:last])

		ch, err := s.model.Open(ctx, history, s.decls)
		if err != nil {
			return nil, s.fail(err)
		}
		s.channel = ch
		s.log.Debug().Int("history", len(history)).Msg("channel opened")
	}

	resp, err := s.channel.Send(ctx, pending.Content)
	if err != nil {
		return nil, s.fail(err)
	}

	reply := &Reply{Text: resp.Text}
	for _, fc := range resp.Calls {
		args, err := encodeArgs(fc.Args)
		if err != nil {
			return nil, s.fail(fmt.Errorf("encode arguments for %s: %w", fc.Name, err))
		}
		s.lastCallID++
		reply.ToolCalls = append(reply.ToolCalls, provider.ToolCall{
			ID:        fmt.Sprintf("call_%d", s.lastCallID),
			Name:      fc.Name,
			Arguments: args,
		})
	}

	s.append(provider.RoleModel, resp.Text)

	s.log.Debug().
		Int("turns", len(s.transcript)).
		Int("tool_calls", len(reply.ToolCalls)).
		Msg("roundtrip complete")

	return reply, nil
}

func (s *Session) fail(err error) error {
	s.failure = err
	s.channel = nil
	s.log.Error().Err(err).Msg("roundtrip failed")
	return err
}

func encodeArgs(args map[string]any) (string, error) {
	if args == nil {
		return "{}", nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
