package toolexec

import (
	"context"
	"log/slog"

	"github.com/fbettag/sgpt/internal/prompt"
)

// ConfirmQuestion is asked before running a generated command.
const ConfirmQuestion = "Execute shell command?"

// CommandRunner runs a command line.
type CommandRunner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// Gate decides whether a generated shell command is run.
type Gate struct {
	Confirm Confirmer
	Runner  CommandRunner
}

// NewGate prompts on the terminal and runs through the host interpreter.
func NewGate() *Gate {
	return &Gate{Confirm: NewPromptConfirmer(), Runner: NewExecutor()}
}

// MaybeExecute runs text only for shell mode with execution requested and an
// affirmative answer. It reports whether the command was attempted. The command's
// exit status is not surfaced.
func (g *Gate) MaybeExecute(ctx context.Context, text string, mode prompt.Mode, executeRequested bool) (bool, error) {
	if mode != prompt.ModeShell || !executeRequested {
		return false, nil
	}
	ok, err := g.Confirm.Confirm(ctx, ConfirmQuestion)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	res, err := g.Runner.Run(ctx, Request{Command: text})
	if err != nil {
		slog.Debug("command did not start", "err", err)
		return true, nil
	}
	slog.Debug("command finished", "exit_code", res.ExitCode)
	return true, nil
}
