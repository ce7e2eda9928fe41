package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fbettag/sgpt/internal/config"
	"github.com/fbettag/sgpt/internal/exec"
	"github.com/fbettag/sgpt/internal/modelcatalog"
	"github.com/fbettag/sgpt/internal/prompt"
)

var errMissingPrompt = errors.New("missing argument PROMPT (pass it or use --editor)")

// runFunc executes the prompt pipeline; swapped in tests.
type runFunc func(ctx context.Context, opts exec.Options) (exec.Result, error)

type rootOptions struct {
	cfgFile   string
	debug     bool
	shell     bool
	execute   bool
	code      bool
	editor    bool
	animation bool
	spinner   bool
	noSpinner bool
	copy      bool
	model     string
}

// Execute boots the CLI.
func Execute() {
	root := newRootCmd(exec.Run)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sgpt: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(run runFunc) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "sgpt [PROMPT]",
		Short: "Ask a language model from the terminal; get shell commands, code or answers",
		Long: `sgpt sends PROMPT to a chat-completion endpoint and prints the answer.

With --shell the answer is a single command for your shell, which --execute
offers to run after confirmation. With --code the answer is code only.
The API key is read from the config directory and requested on first use.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(opts.debug)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, args, opts, run)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "Path to sgpt config file (defaults to ~/.config/shell-gpt/config.toml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Log debug information to stderr")

	flags := cmd.Flags()
	flags.BoolVarP(&opts.shell, "shell", "s", false, "Provide shell command as output")
	flags.BoolVarP(&opts.execute, "execute", "e", false, "Offer to execute the --shell command")
	flags.BoolVar(&opts.code, "code", false, "Provide code as output")
	flags.BoolVar(&opts.editor, "editor", false, "Open $EDITOR to provide a prompt")
	flags.BoolVar(&opts.animation, "animation", false, "Typewriter animation")
	flags.BoolVar(&opts.spinner, "spinner", true, "Show loading spinner during the API request")
	flags.BoolVar(&opts.noSpinner, "no-spinner", false, "Disable the loading spinner")
	flags.BoolVar(&opts.copy, "copy", false, "Copy the answer to the clipboard")
	flags.StringVar(&opts.model, "model", modelcatalog.Default.Label(),
		fmt.Sprintf("Model name (%s)", strings.Join(modelcatalog.Labels(), "|")))
	cmd.MarkFlagsMutuallyExclusive("shell", "code")
	cmd.MarkFlagsMutuallyExclusive("spinner", "no-spinner")

	cmd.AddCommand(
		newAuthCommand(),
		newConfigCommand(),
	)
	return cmd
}

func runRoot(cmd *cobra.Command, args []string, opts *rootOptions, run runFunc) error {
	var raw string
	if len(args) > 0 {
		raw = args[0]
	}
	if strings.TrimSpace(raw) == "" && !opts.editor {
		return errMissingPrompt
	}
	model, err := modelcatalog.Parse(opts.model)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return err
	}

	spinnerOn := cfg.Spinner.Enabled
	if cmd.Flags().Changed("spinner") {
		spinnerOn = opts.spinner
	}
	if opts.noSpinner {
		spinnerOn = false
	}
	spinnerOn = spinnerOn && term.IsTerminal(int(os.Stderr.Fd()))

	_, err = run(cmd.Context(), exec.Options{
		Config:    cfg,
		Prompt:    raw,
		Mode:      modeFromFlags(opts),
		Model:     model,
		UseEditor: opts.editor,
		Animate:   opts.animation,
		Spinner:   spinnerOn,
		Execute:   opts.execute,
		Copy:      opts.copy,
	})
	return err
}

func modeFromFlags(opts *rootOptions) prompt.Mode {
	switch {
	case opts.shell:
		return prompt.ModeShell
	case opts.code:
		return prompt.ModeCode
	default:
		return prompt.ModePlain
	}
}

func setupLogging(debug bool) {
	level := slog.LevelWarn
	if debug || os.Getenv("SGPT_DEBUG") != "" {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler).With("app", "sgpt"))
}
