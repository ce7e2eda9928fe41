package startup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrCanceled is returned when the operator aborts secret entry.
var ErrCanceled = errors.New("input canceled")

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))

// Prompter reads secrets from a terminal without echoing them. When In is not a
// terminal (piped stdin) it reads a single line instead.
type Prompter struct {
	In  *os.File
	Out io.Writer
}

// NewPrompter reads from stdin and draws on stderr.
func NewPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stderr}
}

// PromptSecret asks for a secret. The returned value is what the operator typed,
// without the terminating newline.
func (p *Prompter) PromptSecret(ctx context.Context, title string) (string, error) {
	if !term.IsTerminal(int(p.In.Fd())) {
		return readLine(p.In)
	}
	model := newSecretModel(title)
	final, err := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(p.In),
		tea.WithOutput(p.Out),
	).Run()
	if err != nil {
		return "", err
	}
	sm, ok := final.(secretModel)
	if !ok || sm.canceled {
		return "", ErrCanceled
	}
	return sm.input.Value(), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

type secretModel struct {
	title     string
	input     textinput.Model
	submitted bool
	canceled  bool
}

func newSecretModel(title string) secretModel {
	ti := textinput.New()
	ti.Prompt = "› "
	ti.Placeholder = "sk-..."
	ti.CharLimit = 256
	ti.EchoMode = textinput.EchoNone
	ti.Focus()
	return secretModel{title: title, input: ti}
}

func (m secretModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m secretModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.submitted = true
			return m, tea.Quit
		case "ctrl+c", "esc":
			m.canceled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m secretModel) View() string {
	if m.submitted || m.canceled {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	b.WriteString("\n[enter] save  [esc] cancel\n")
	return b.String()
}
