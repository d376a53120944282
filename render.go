package chat

import (
	"io"
	"log"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Minetest renders the text using minetest color escapes.
// Hover and click metadata are dropped.
func (t Text) Minetest() string {
	var b strings.Builder
	for _, f := range t {
		text := strings.ReplaceAll(f.Text, "\x1b", "")
		if f.Color == "" {
			b.WriteString(text)
			continue
		}

		b.WriteString(Colorize(text, f.Color))
	}

	return b.String()
}

// ANSI renders the text for a terminal using r.
func (t Text) ANSI(r *lipgloss.Renderer) string {
	var b strings.Builder
	for _, f := range t {
		style := r.NewStyle()
		if f.Color != "" {
			style = style.Foreground(lipgloss.Color(f.Color))
		}

		if f.Bold {
			style = style.Bold(true)
		}

		if f.Italic {
			style = style.Italic(true)
		}

		b.WriteString(style.Render(f.Text))
	}

	return b.String()
}

// NewRenderer returns a lipgloss renderer writing to w
// using the given color profile.
func NewRenderer(w io.Writer, profile termenv.Profile) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile)

	return r
}

// A Console receives a copy of every chat line shown on this server.
type Console interface {
	Mirror(line Text)
}

// LogConsole mirrors chat lines into the log.
type LogConsole struct{}

func (LogConsole) Mirror(line Text) {
	log.Print("{←|⇶} [chat] ", line.Plain())
}

// TermConsole mirrors chat lines to a terminal in color.
type TermConsole struct {
	mu sync.Mutex
	w  io.Writer
	r  *lipgloss.Renderer
}

// NewTermConsole returns a TermConsole writing to w.
// The color profile is detected from w.
func NewTermConsole(w io.Writer) *TermConsole {
	return &TermConsole{
		w: w,
		r: lipgloss.NewRenderer(w),
	}
}

func (tc *TermConsole) Mirror(line Text) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	io.WriteString(tc.w, line.ANSI(tc.r)+"\n")
}
