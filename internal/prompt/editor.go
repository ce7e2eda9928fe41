package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Editor collects prompt text interactively.
type Editor interface {
	Edit(ctx context.Context) (string, error)
}

// EditorFunc adapts a function to Editor.
type EditorFunc func(ctx context.Context) (string, error)

func (f EditorFunc) Edit(ctx context.Context) (string, error) {
	return f(ctx)
}

// ExternalEditor launches $EDITOR (or Fallback) on a temporary file and returns what was saved.
type ExternalEditor struct {
	// Fallback is used when $EDITOR is unset.
	Fallback string
	// Dir holds the temporary file; empty means os.TempDir().
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExternalEditor wires the editor to the process's standard streams.
func NewExternalEditor(fallback string) *ExternalEditor {
	return &ExternalEditor{
		Fallback: fallback,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// Command returns the editor program and its leading arguments ($EDITOR may be "code -w").
func (e *ExternalEditor) Command() []string {
	value := strings.TrimSpace(os.Getenv("EDITOR"))
	if value == "" {
		value = strings.TrimSpace(e.Fallback)
	}
	if value == "" {
		value = "vim"
	}
	return strings.Fields(value)
}

// Edit blocks until the editor exits. The temporary file is removed whether or not reading succeeds.
func (e *ExternalEditor) Edit(ctx context.Context) (string, error) {
	dir := e.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("sgpt-%s.txt", uuid.NewString()))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating prompt file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("creating prompt file: %w", err)
	}
	defer os.Remove(path)

	argv := append(e.Command(), path)
	slog.Debug("launching editor", "command", argv[0])
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("editor %s exited with status %d", argv[0], exitErr.ExitCode())
		}
		return "", fmt.Errorf("running editor %s: %w", argv[0], err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading prompt file: %w", err)
	}
	return string(data), nil
}
