package prompt

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
)

var (
	// ErrEmptyPrompt is returned when no prompt text was supplied and the editor was not requested.
	ErrEmptyPrompt = errors.New("missing PROMPT")
	// ErrEditorProducedEmpty is returned when the edited file is blank.
	ErrEditorProducedEmpty = errors.New("couldn't get valid PROMPT from $EDITOR")
)

// Mode selects how the prompt is shaped and how the answer is rendered.
type Mode int

const (
	ModePlain Mode = iota
	ModeShell
	ModeCode
)

func (m Mode) String() string {
	switch m {
	case ModeShell:
		return "shell"
	case ModeCode:
		return "code"
	default:
		return "plain"
	}
}

// Highlighted reports whether answers in this mode are rendered emphasized.
func (m Mode) Highlighted() bool {
	return m == ModeShell || m == ModeCode
}

// Shell family names used in the shell template.
const (
	ShellBash       = "Bash"
	ShellPowerShell = "PowerShell"
)

// DetectShell classifies a GOOS value into the host's default shell family.
func DetectShell(goos string) string {
	if goos == "windows" {
		return ShellPowerShell
	}
	return ShellBash
}

// Composer turns raw operator input into the prompt sent upstream.
type Composer struct {
	shell  string
	editor Editor
}

// NewComposer fixes the host shell family for the lifetime of the Composer.
func NewComposer(editor Editor) *Composer {
	return &Composer{shell: DetectShell(runtime.GOOS), editor: editor}
}

// NewComposerForShell is NewComposer with an explicit shell family.
func NewComposerForShell(shell string, editor Editor) *Composer {
	return &Composer{shell: shell, editor: editor}
}

// Shell returns the detected shell family.
func (c *Composer) Shell() string {
	return c.shell
}

// Compose resolves the prompt text (from raw or the editor) and applies the mode template.
func (c *Composer) Compose(ctx context.Context, raw string, mode Mode, useEditor bool) (string, error) {
	text := strings.TrimSpace(raw)
	if useEditor {
		if c.editor == nil {
			return "", errors.New("no editor configured")
		}
		edited, err := c.editor.Edit(ctx)
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(edited)
		if text == "" {
			return "", ErrEditorProducedEmpty
		}
	}
	if text == "" {
		return "", ErrEmptyPrompt
	}
	return Template(text, mode, c.shell), nil
}

// Template wraps text for mode. Plain text passes through unchanged.
func Template(text string, mode Mode, shell string) string {
	switch mode {
	case ModeShell:
		return fmt.Sprintf("Context: Provide only %s command as output.\nPrompt: %s\nCommand:", shell, text)
	case ModeCode:
		return fmt.Sprintf("Context: Provide only code as output.\nPrompt: %s\nCode:", text)
	default:
		return text
	}
}
