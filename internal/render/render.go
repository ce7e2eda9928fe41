package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const markdownWrap = 80

// Renderer writes completion text to a terminal.
type Renderer struct {
	out      io.Writer
	delay    time.Duration
	sleep    func(time.Duration)
	markdown bool
	lg       *lipgloss.Renderer
	emphasis lipgloss.Style
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithDelay sets the pause between characters in animated mode.
func WithDelay(d time.Duration) Option {
	return func(r *Renderer) { r.delay = d }
}

// WithSleep replaces time.Sleep (tests).
func WithSleep(fn func(time.Duration)) Option {
	return func(r *Renderer) { r.sleep = fn }
}

// WithMarkdown renders plain, non-animated answers through glamour.
func WithMarkdown(enabled bool) Option {
	return func(r *Renderer) { r.markdown = enabled }
}

// WithColorProfile forces a color profile instead of detecting it from out.
func WithColorProfile(p termenv.Profile) Option {
	return func(r *Renderer) { r.lg.SetColorProfile(p) }
}

// New returns a Renderer writing to out.
func New(out io.Writer, opts ...Option) *Renderer {
	lg := lipgloss.NewRenderer(out)
	r := &Renderer{
		out:   out,
		delay: 15 * time.Millisecond,
		sleep: time.Sleep,
		lg:    lg,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.emphasis = r.lg.NewStyle().
		Foreground(lipgloss.Color("5")).
		Bold(true).
		TabWidth(lipgloss.NoTabConversion)
	return r
}

// Render prints text. Highlight takes precedence over animate; animated output is
// written one character per write followed by a newline.
func (r *Renderer) Render(text string, highlight, animate bool) error {
	if highlight {
		_, err := fmt.Fprintln(r.out, r.emphasize(text))
		return err
	}
	if animate {
		return r.typewrite(text)
	}
	if r.markdown {
		if rendered, err := renderMarkdown(text); err == nil {
			_, err = io.WriteString(r.out, rendered)
			return err
		}
	}
	_, err := fmt.Fprintln(r.out, text)
	return err
}

// emphasize styles each line separately so no line is padded or retabbed.
func (r *Renderer) emphasize(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = r.emphasis.Render(line)
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) typewrite(text string) error {
	for i, ch := range []rune(text) {
		if i > 0 && r.delay > 0 {
			r.sleep(r.delay)
		}
		if _, err := io.WriteString(r.out, string(ch)); err != nil {
			return err
		}
	}
	// Trailing newline keeps the shell prompt off the answer's last line.
	_, err := io.WriteString(r.out, "\n")
	return err
}

func renderMarkdown(text string) (string, error) {
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWrap),
	)
	if err != nil {
		return "", err
	}
	return tr.Render(text)
}
