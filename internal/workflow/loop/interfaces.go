package loop

import (
	"context"

	"github.com/Cyclone1070/mcpagent/internal/provider"
	"github.com/Cyclone1070/mcpagent/internal/session"
)

// conversation runs model roundtrips over an append-only transcript.
type conversation interface {
	// Send appends a user turn and runs one roundtrip.
	Send(ctx context.Context, text string) (*session.Reply, error)

	// Resume runs a roundtrip for the last stored turn.
	Resume(ctx context.Context) (*session.Reply, error)

	// AppendToolResult records the output of one tool call.
	AppendToolResult(callID, output string) error
}

// toolInvoker resolves and executes tool calls.
type toolInvoker interface {
	// Invoke never fails; failures are described in the result.
	Invoke(ctx context.Context, call provider.ToolCall) provider.ToolResult

	// Close releases every tool provider exactly once.
	Close() error
}
