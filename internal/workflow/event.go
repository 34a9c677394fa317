package workflow

// Event is the interface for all workflow events.
// Renderers handle events via type switch.
type Event interface {
	isEvent()
}

// TextEvent is emitted when the model produces text output.
type TextEvent struct {
	Text string
}

func (TextEvent) isEvent() {}

// ThinkingEvent is emitted before each model roundtrip.
type ThinkingEvent struct{}

func (ThinkingEvent) isEvent() {}

// DoneEvent is emitted when the workflow loop completes.
// Err is nil on success.
type DoneEvent struct {
	Err error
}

func (DoneEvent) isEvent() {}

// ToolStartEvent is emitted when a tool execution begins.
type ToolStartEvent struct {
	CallID    string
	ToolName  string
	Arguments string
}

func (ToolStartEvent) isEvent() {}

// ToolEndEvent is emitted when a tool execution completes, successfully or not.
type ToolEndEvent struct {
	CallID   string
	ToolName string
	Output   string
	Failed   bool
}

func (ToolEndEvent) isEvent() {}

// Emit sends e on events if the channel is configured.
func Emit(events chan<- Event, e Event) {
	if events != nil {
		events <- e
	}
}
