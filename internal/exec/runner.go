package exec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/fbettag/sgpt/internal/authstore"
	"github.com/fbettag/sgpt/internal/config"
	"github.com/fbettag/sgpt/internal/modelcatalog"
	"github.com/fbettag/sgpt/internal/prompt"
	"github.com/fbettag/sgpt/internal/provider"
	"github.com/fbettag/sgpt/internal/provider/openai"
	"github.com/fbettag/sgpt/internal/render"
	"github.com/fbettag/sgpt/internal/spinner"
	"github.com/fbettag/sgpt/internal/startup"
	"github.com/fbettag/sgpt/internal/toolexec"
)

// State is a step of a single run.
type State int

const (
	StateInit State = iota
	StateCredentialResolved
	StatePromptComposed
	StateResponseReceived
	StateRendered
	StateDone
	StateExecutedOrSkipped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateCredentialResolved:
		return "credential-resolved"
	case StatePromptComposed:
		return "prompt-composed"
	case StateResponseReceived:
		return "response-received"
	case StateRendered:
		return "rendered"
	case StateDone:
		return "done"
	case StateExecutedOrSkipped:
		return "executed-or-skipped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CredentialSource yields the API key.
type CredentialSource interface {
	Resolve(ctx context.Context) (string, error)
}

// ClientFactory builds the completion client once the key is known.
type ClientFactory func(cfg config.Config, token string) provider.Completer

// Options configure a run. Zero-valued collaborators fall back to the terminal defaults.
type Options struct {
	Config    config.Config
	Prompt    string
	Mode      prompt.Mode
	Model     modelcatalog.ID
	UseEditor bool
	Animate   bool
	Spinner   bool
	Execute   bool
	Copy      bool

	Credentials CredentialSource
	Composer    *prompt.Composer
	NewClient   ClientFactory
	Renderer    *render.Renderer
	Gate        *toolexec.Gate
	SpinnerOut  io.Writer
	Clipboard   func(string) error
}

// Result reports how far a run got and what was rendered.
type Result struct {
	State    State
	Text     string
	Executed bool
}

// Run resolves the key, composes the prompt, requests a completion, renders it and
// optionally executes it. Any failure aborts the run.
func Run(ctx context.Context, opts Options) (Result, error) {
	opts, err := withDefaults(opts)
	if err != nil {
		return Result{State: StateInit}, err
	}
	res := Result{State: StateInit}

	token, err := opts.Credentials.Resolve(ctx)
	if err != nil {
		return res, err
	}
	res.State = StateCredentialResolved

	composed, err := opts.Composer.Compose(ctx, opts.Prompt, opts.Mode, opts.UseEditor)
	if err != nil {
		return res, err
	}
	res.State = StatePromptComposed
	slog.Debug("prompt composed", "mode", opts.Mode.String(), "editor", opts.UseEditor, "shell", opts.Composer.Shell())

	var client provider.Completer = opts.NewClient(opts.Config, token)
	if opts.Spinner {
		client = spinner.Wrap(client, opts.SpinnerOut, opts.Config.Spinner.Label)
	}
	text, err := client.Complete(ctx, provider.Request{Prompt: composed, Model: opts.Model})
	if err != nil {
		return res, err
	}
	res.Text = strings.TrimSpace(text)
	res.State = StateResponseReceived

	if err := opts.Renderer.Render(res.Text, opts.Mode.Highlighted(), opts.Animate); err != nil {
		return res, fmt.Errorf("writing output: %w", err)
	}
	res.State = StateRendered

	if opts.Copy {
		if err := opts.Clipboard(res.Text); err != nil {
			slog.Warn("could not copy to clipboard", "err", err)
		}
	}

	if opts.Mode != prompt.ModeShell || !opts.Execute {
		res.State = StateDone
		return res, nil
	}
	executed, err := opts.Gate.MaybeExecute(ctx, res.Text, opts.Mode, opts.Execute)
	if err != nil {
		return res, err
	}
	res.Executed = executed
	res.State = StateExecutedOrSkipped
	return res, nil
}

func withDefaults(opts Options) (Options, error) {
	cfg := opts.Config
	if opts.Credentials == nil {
		store, err := authstore.New("", startup.NewPrompter())
		if err != nil {
			return opts, err
		}
		opts.Credentials = store
	}
	if opts.Composer == nil {
		opts.Composer = prompt.NewComposer(prompt.NewExternalEditor(cfg.Editor.Fallback))
	}
	if opts.NewClient == nil {
		opts.NewClient = func(cfg config.Config, token string) provider.Completer {
			return openai.FromConfig(cfg, token)
		}
	}
	if opts.Renderer == nil {
		opts.Renderer = render.New(os.Stdout,
			render.WithDelay(cfg.AnimationDelay()),
			render.WithMarkdown(cfg.Render.Markdown),
		)
	}
	if opts.Gate == nil {
		opts.Gate = toolexec.NewGate()
	}
	if opts.SpinnerOut == nil {
		opts.SpinnerOut = os.Stderr
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Model == "" {
		opts.Model = modelcatalog.Default
	}
	return opts, nil
}
