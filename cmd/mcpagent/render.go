package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Cyclone1070/mcpagent/internal/workflow"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const maxPreview = 400

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("241"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	thinkStyle  = lipgloss.NewStyle().Faint(true).Italic(true)
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// renderer prints progress sections for agent events and the final answer.
type renderer struct {
	out      io.Writer
	markdown bool
	width    int
}

func newRenderer(out io.Writer, markdown bool) *renderer {
	return &renderer{out: out, markdown: markdown, width: 100}
}

func (r *renderer) title(name string) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, titleStyle.Render(name))
}

// consume renders events until the channel closes.
func (r *renderer) consume(events <-chan workflow.Event) {
	for ev := range events {
		r.event(ev)
	}
}

func (r *renderer) event(ev workflow.Event) {
	switch e := ev.(type) {
	case workflow.ThinkingEvent:
		fmt.Fprintln(r.out, thinkStyle.Render("thinking..."))
	case workflow.TextEvent:
		r.title("CHAT")
		fmt.Fprintln(r.out, e.Text)
	case workflow.ToolStartEvent:
		r.title("TOOL USE")
		fmt.Fprintf(r.out, "%s %s\n", labelStyle.Render("Calling tool:"), e.ToolName)
		fmt.Fprintf(r.out, "%s %s\n", labelStyle.Render("Arguments:"), preview(e.Arguments))
	case workflow.ToolEndEvent:
		style := resultStyle
		if e.Failed {
			style = errorStyle
		}
		fmt.Fprintf(r.out, "%s %s\n", labelStyle.Render("Result:"), style.Render(preview(e.Output)))
	case workflow.DoneEvent:
		if e.Err != nil {
			fmt.Fprintln(r.out, errorStyle.Render("error: "+e.Err.Error()))
		}
	}
}

// answer prints the final text, rendered as markdown when enabled.
func (r *renderer) answer(text string) {
	r.title("RESPONSE")
	if r.markdown {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(r.width),
		)
		if err == nil {
			if out, err := md.Render(text); err == nil {
				fmt.Fprint(r.out, out)
				return
			}
		}
	}
	fmt.Fprintln(r.out, text)
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxPreview {
		return s
	}
	return s[:maxPreview] + fmt.Sprintf("... (%d more bytes)", len(s)-maxPreview)
}
