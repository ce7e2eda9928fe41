package exec

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbettag/sgpt/internal/authstore"
	"github.com/fbettag/sgpt/internal/config"
	"github.com/fbettag/sgpt/internal/prompt"
	"github.com/fbettag/sgpt/internal/provider"
	"github.com/fbettag/sgpt/internal/render"
	"github.com/fbettag/sgpt/internal/toolexec"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

type recorder struct {
	writes []string
}

func (r *recorder) Write(p []byte) (int, error) {
	r.writes = append(r.writes, string(p))
	return len(p), nil
}

type fakeRunner struct {
	requests []toolexec.Request
}

func (f *fakeRunner) Run(ctx context.Context, req toolexec.Request) (toolexec.Result, error) {
	f.requests = append(f.requests, req)
	return toolexec.Result{}, nil
}

type harness struct {
	opts     Options
	out      *recorder
	runner   *fakeRunner
	prompts  *int
	requests []map[string]any
	copied   []string
}

func newHarness(t *testing.T, status int, body string, confirm bool) *harness {
	t.Helper()
	h := &harness{out: &recorder{}, runner: &fakeRunner{}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		_ = json.Unmarshal(raw, &decoded)
		h.requests = append(h.requests, decoded)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.API.URL = srv.URL

	prompts := 0
	h.prompts = &prompts
	store, err := authstore.New(filepath.Join(t.TempDir(), authstore.FileName), authstore.SecretPrompterFunc(
		func(ctx context.Context, title string) (string, error) {
			prompts++
			return "sk-test", nil
		}))
	require.NoError(t, err)

	h.opts = Options{
		Config:      cfg,
		Credentials: store,
		Composer:    prompt.NewComposerForShell(prompt.ShellBash, nil),
		Renderer:    render.New(h.out, render.WithColorProfile(termenv.ANSI), render.WithDelay(0)),
		Gate: &toolexec.Gate{
			Confirm: toolexec.ConfirmFunc(func(ctx context.Context, q string) (bool, error) { return confirm, nil }),
			Runner:  h.runner,
		},
		SpinnerOut: io.Discard,
		Clipboard: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
	}
	return h
}

const lsResponse = `{"choices":[{"message":{"content":"  ls -la  "}}]}`

func TestRunShellEndToEnd(t *testing.T) {
	h := newHarness(t, http.StatusOK, lsResponse, true)
	h.opts.Prompt = "list files"
	h.opts.Mode = prompt.ModeShell

	res, err := Run(context.Background(), h.opts)
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, "ls -la", res.Text)
	assert.False(t, res.Executed)
	require.Len(t, h.out.writes, 1)
	assert.Contains(t, h.out.writes[0], "\x1b[", "shell output is emphasized")
	assert.Equal(t, "ls -la\n", ansiPattern.ReplaceAllString(h.out.writes[0], ""))
	assert.Empty(t, h.runner.requests, "execution skipped without --execute")

	require.Len(t, h.requests, 1)
	assert.Equal(t, "gpt-3.5-turbo", h.requests[0]["model"])
	messages := h.requests[0]["messages"].([]any)
	user := messages[1].(map[string]any)
	assert.Equal(t, prompt.Template("list files", prompt.ModeShell, prompt.ShellBash), user["content"])
}

func TestRunShellExecuteDeclined(t *testing.T) {
	h := newHarness(t, http.StatusOK, lsResponse, false)
	h.opts.Prompt = "list files"
	h.opts.Mode = prompt.ModeShell
	h.opts.Execute = true

	res, err := Run(context.Background(), h.opts)
	require.NoError(t, err)
	assert.Equal(t, StateExecutedOrSkipped, res.State)
	assert.False(t, res.Executed)
	assert.Empty(t, h.runner.requests)
}

func TestRunShellExecuteConfirmed(t *testing.T) {
	h := newHarness(t, http.StatusOK, lsResponse, true)
	h.opts.Prompt = "list files"
	h.opts.Mode = prompt.ModeShell
	h.opts.Execute = true

	res, err := Run(context.Background(), h.opts)
	require.NoError(t, err)
	assert.Equal(t, StateExecutedOrSkipped, res.State)
	assert.True(t, res.Executed)
	assert.Equal(t, []toolexec.Request{{Command: "ls -la"}}, h.runner.requests)
}

func TestRunExecuteIgnoredOutsideShellMode(t *testing.T) {
	h := newHarness(t, http.StatusOK, `{"choices":[{"message":{"content":"print(1)"}}]}`, true)
	h.opts.Prompt = "print one"
	h.opts.Mode = prompt.ModeCode
	h.opts.Execute = true

	res, err := Run(context.Background(), h.opts)
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Empty(t, h.runner.requests)
}

func TestRunPlainAnimated(t *testing.T) {
	h := newHarness(t, http.StatusOK, `{"choices":[{"message":{"content":"\nhi\n"}}]}`, false)
	h.opts.Prompt = "say hi"
	h.opts.Animate = true

	res, err := Run(context.Background(), h.opts)
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []string{"h", "i", "\n"}, h.out.writes)
}

func TestRunUpstreamErrorAbortsBeforeRendering(t *testing.T) {
	h := newHarness(t, http.StatusUnauthorized, `{"error":{"message":"Incorrect API key"}}`, true)
	h.opts.Prompt = "list files"
	h.opts.Mode = prompt.ModeShell
	h.opts.Execute = true

	res, err := Run(context.Background(), h.opts)
	var upstream *provider.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.Status)
	assert.Contains(t, err.Error(), "Incorrect API key")
	assert.Equal(t, StatePromptComposed, res.State)
	assert.Empty(t, h.out.writes)
	assert.Empty(t, h.runner.requests)
}

func TestRunCredentialUnavailableSkipsNetwork(t *testing.T) {
	h := newHarness(t, http.StatusOK, lsResponse, true)
	store, err := authstore.New(filepath.Join(t.TempDir(), authstore.FileName), authstore.SecretPrompterFunc(
		func(ctx context.Context, title string) (string, error) { return "", nil }))
	require.NoError(t, err)
	h.opts.Credentials = store
	h.opts.Prompt = "list files"

	res, err := Run(context.Background(), h.opts)
	require.ErrorIs(t, err, authstore.ErrCredentialUnavailable)
	assert.Equal(t, StateInit, res.State)
	assert.Empty(t, h.requests)
}

func TestRunEditorEmptySkipsNetwork(t *testing.T) {
	h := newHarness(t, http.StatusOK, lsResponse, true)
	h.opts.Composer = prompt.NewComposerForShell(prompt.ShellBash, prompt.EditorFunc(
		func(ctx context.Context) (string, error) { return "  \n", nil }))
	h.opts.UseEditor = true

	res, err := Run(context.Background(), h.opts)
	require.ErrorIs(t, err, prompt.ErrEditorProducedEmpty)
	assert.Equal(t, StateCredentialResolved, res.State)
	assert.Empty(t, h.requests)
}

func TestRunEditorTextIsTemplated(t *testing.T) {
	h := newHarness(t, http.StatusOK, lsResponse, false)
	h.opts.Composer = prompt.NewComposerForShell(prompt.ShellBash, prompt.EditorFunc(
		func(ctx context.Context) (string, error) { return "ls -la\n", nil }))
	h.opts.UseEditor = true
	h.opts.Mode = prompt.ModeShell

	_, err := Run(context.Background(), h.opts)
	require.NoError(t, err)
	require.Len(t, h.requests, 1)
	user := h.requests[0]["messages"].([]any)[1].(map[string]any)
	assert.Equal(t, prompt.Template("ls -la", prompt.ModeShell, prompt.ShellBash), user["content"])
}

func TestRunReusesStoredCredential(t *testing.T) {
	h := newHarness(t, http.StatusOK, lsResponse, false)
	h.opts.Prompt = "list files"

	_, err := Run(context.Background(), h.opts)
	require.NoError(t, err)
	_, err = Run(context.Background(), h.opts)
	require.NoError(t, err)
	assert.Equal(t, 1, *h.prompts)
}

func TestRunCopiesToClipboard(t *testing.T) {
	h := newHarness(t, http.StatusOK, lsResponse, false)
	h.opts.Prompt = "list files"
	h.opts.Copy = true
	h.opts.Clipboard = func(s string) error {
		h.copied = append(h.copied, s)
		return errors.New("no clipboard utility")
	}

	res, err := Run(context.Background(), h.opts)
	require.NoError(t, err, "clipboard failures are not fatal")
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []string{"ls -la"}, h.copied)
}

func TestRunWithSpinnerKeepsResult(t *testing.T) {
	h := newHarness(t, http.StatusOK, lsResponse, false)
	h.opts.Prompt = "list files"
	h.opts.Spinner = true

	res, err := Run(context.Background(), h.opts)
	require.NoError(t, err)
	assert.Equal(t, "ls -la", res.Text)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "executed-or-skipped", StateExecutedOrSkipped.String())
	assert.Equal(t, "state(42)", State(42).String())
}
