package toolexec

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Request captures a command line to run through the host interpreter.
type Request struct {
	Command string
	Workdir string
}

// Result captures the outcome of a foreground execution.
type Result struct {
	ExitCode int
}

// Executor runs command lines in the foreground with the caller's standard streams.
type Executor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	goos   string
}

// NewExecutor inherits the process's standard streams.
func NewExecutor() *Executor {
	return &Executor{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		goos:   runtime.GOOS,
	}
}

// Interpreter returns the argv prefix of the host's default command interpreter.
func Interpreter(goos string) []string {
	if goos == "windows" {
		comspec := os.Getenv("COMSPEC")
		if comspec == "" {
			comspec = "cmd.exe"
		}
		return []string{comspec, "/C"}
	}
	return []string{"/bin/sh", "-c"}
}

// Run executes req and waits for it. A non-zero exit is reported in Result, not as an error.
func (e *Executor) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Command) == "" {
		return Result{}, errors.New("command is required")
	}
	goos := e.goos
	if goos == "" {
		goos = runtime.GOOS
	}
	argv := append(Interpreter(goos), req.Command)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if req.Workdir != "" {
		cmd.Dir = filepath.Clean(req.Workdir)
	}
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	err := cmd.Run()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return Result{ExitCode: ee.ExitCode()}, nil
		}
		return Result{ExitCode: -1}, err
	}
	return Result{}, nil
}
