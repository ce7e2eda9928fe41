package spinner

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/fbettag/sgpt/internal/provider"
)

var labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

// Wrap shows a transient spinner on out while next.Complete blocks. The result and
// error of next are returned untouched.
func Wrap(next provider.Completer, out io.Writer, label string) provider.Completer {
	return &completer{
		next:    next,
		out:     out,
		label:   label,
		notify:  func(ch chan<- os.Signal) { signal.Notify(ch, os.Interrupt) },
		stop:    func(ch chan<- os.Signal) { signal.Stop(ch) },
		reraise: reraise,
	}
}

type completer struct {
	next  provider.Completer
	out   io.Writer
	label string

	notify  func(chan<- os.Signal)
	stop    func(chan<- os.Signal)
	reraise func(os.Signal)
}

func (c *completer) Complete(ctx context.Context, req provider.Request) (string, error) {
	sigs := make(chan os.Signal, 1)
	c.notify(sigs)
	defer c.stop(sigs)

	p := tea.NewProgram(newModel(c.label),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(c.out),
		tea.WithoutSignalHandler(),
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_, _ = p.Run()
	}()
	// The program hides the cursor; put it back before the interrupt ends the process.
	go func() {
		select {
		case sig := <-sigs:
			termenv.NewOutput(c.out).ShowCursor()
			c.reraise(sig)
		case <-finished:
		}
	}()

	text, err := c.next.Complete(ctx, req)

	p.Send(doneMsg{})
	<-finished
	return text, err
}

// reraise restores the default disposition of sig and delivers it again.
func reraise(sig os.Signal) {
	signal.Reset(sig)
	if proc, err := os.FindProcess(os.Getpid()); err == nil && proc.Signal(sig) == nil {
		return
	}
	os.Exit(130)
}

type doneMsg struct{}

type model struct {
	spin  spinner.Model
	label string
	done  bool
}

func newModel(label string) model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#C1C6D6"))
	return model{spin: spin, label: label}
}

func (m model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders nothing once done so the line is cleared on exit.
func (m model) View() string {
	if m.done {
		return ""
	}
	return m.spin.View() + " " + labelStyle.Render(m.label)
}
