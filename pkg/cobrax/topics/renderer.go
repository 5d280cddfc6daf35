package topics

import (
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// Renderer formats topic content for the terminal
type Renderer interface {
	// Render formats content; format is the topic's file extension
	Render(content string, format string) string
}

// PlainRenderer returns content as-is
type PlainRenderer struct{}

// Render returns the content unchanged
func (r *PlainRenderer) Render(content string, format string) string {
	return content
}

// GlamourRenderer renders markdown topics with glamour
type GlamourRenderer struct {
	Style string // "dark", "light", "notty", or "" to pick from the terminal
	Width int    // 0 keeps glamour's default wrapping
}

// NewGlamourRenderer picks a style for the given terminal state
func NewGlamourRenderer(terminal bool) *GlamourRenderer {
	return &GlamourRenderer{Style: detectStyle(terminal)}
}

func detectStyle(terminal bool) string {
	switch {
	case !terminal:
		return "notty"
	case termenv.HasDarkBackground():
		return "dark"
	default:
		return "light"
	}
}

// Render converts markdown to terminal output. Other formats and render
// failures return the content unchanged.
func (r *GlamourRenderer) Render(content string, format string) string {
	if format != ".md" {
		return content
	}

	style := r.Style
	if style == "" {
		style = "notty"
	}
	options := []glamour.TermRendererOption{glamour.WithStandardStyle(style)}
	if r.Width > 0 {
		options = append(options, glamour.WithWordWrap(r.Width))
	}

	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
