package provider

import (
	"context"

	"github.com/Cyclone1070/mcpagent/internal/tool"
)

// Role is the author of a transcript message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is a single transcript turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToolCall is a tool request extracted from a model turn.
// ID is assigned by the session, not by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult is the output fed back for one ToolCall.
type ToolResult struct {
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// FunctionCall is a tool request as the model expressed it.
type FunctionCall struct {
	Name string
	Args map[string]any
}

// Response is what one roundtrip produced.
type Response struct {
	Text  string
	Calls []FunctionCall
}

// Model opens roundtrip channels against a generative model.
type Model interface {
	// Open binds a new channel to history. The channel never observes later
	// changes to the caller's transcript.
	Open(ctx context.Context, history []Message, tools []tool.Declaration) (Channel, error)
}

// Channel performs roundtrips on top of the history it was opened with.
// It records its own exchanges, so consecutive Sends see earlier ones.
type Channel interface {
	Send(ctx context.Context, text string) (*Response, error)
}
