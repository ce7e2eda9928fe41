package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbettag/sgpt/internal/config"
	"github.com/fbettag/sgpt/internal/modelcatalog"
	"github.com/fbettag/sgpt/internal/provider"
)

type capturedRequest struct {
	Auth        string
	ContentType string
	Body        chatRequest
}

func newUpstream(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			captured.Auth = r.Header.Get("Authorization")
			captured.ContentType = r.Header.Get("Content-Type")
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &captured.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteSendsFixedModelAndMessages(t *testing.T) {
	var captured capturedRequest
	srv := newUpstream(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  ls -la  "}}]}`, &captured)

	client := New("sk-test", WithURL(srv.URL))
	got, err := client.Complete(context.Background(), provider.Request{Prompt: "list files", Model: modelcatalog.GPTTurbo})
	require.NoError(t, err)

	assert.Equal(t, "  ls -la  ", got, "client returns content untouched")
	assert.Equal(t, "Bearer sk-test", captured.Auth)
	assert.Equal(t, "application/json", captured.ContentType)
	assert.Equal(t, "gpt-3.5-turbo", captured.Body.Model)
	require.Len(t, captured.Body.Messages, 2)
	assert.Equal(t, provider.ChatMessage{Role: "system", Content: "Bash Linux terminal assistant"}, captured.Body.Messages[0])
	assert.Equal(t, provider.ChatMessage{Role: "user", Content: "list files"}, captured.Body.Messages[1])
}

// The --model selection is accepted but never forwarded; the request always
// names modelcatalog.Upstream.
func TestCompleteIgnoresRequestedModel(t *testing.T) {
	var captured capturedRequest
	srv := newUpstream(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`, &captured)

	client := New("sk-test", WithURL(srv.URL))
	_, err := client.Complete(context.Background(), provider.Request{Prompt: "hi", Model: modelcatalog.ID("gpt-4o")})
	require.NoError(t, err)
	assert.Equal(t, string(modelcatalog.Upstream), captured.Body.Model)
}

func TestCompleteUpstreamError(t *testing.T) {
	srv := newUpstream(t, http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided"}}`, nil)

	client := New("sk-bad", WithURL(srv.URL))
	_, err := client.Complete(context.Background(), provider.Request{Prompt: "hi"})

	var upstream *provider.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.Status)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
}

func TestCompleteNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := New("sk-test", WithURL(url))
	_, err := client.Complete(context.Background(), provider.Request{Prompt: "hi"})

	var netErr *provider.NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := New("sk-test", WithURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := client.Complete(context.Background(), provider.Request{Prompt: "hi"})

	var netErr *provider.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestCompleteNoChoices(t *testing.T) {
	srv := newUpstream(t, http.StatusOK, `{"choices":[]}`, nil)
	client := New("sk-test", WithURL(srv.URL))
	_, err := client.Complete(context.Background(), provider.Request{Prompt: "hi"})
	assert.True(t, errors.Is(err, ErrNoChoices))
}

func TestCompleteMalformedBody(t *testing.T) {
	srv := newUpstream(t, http.StatusOK, `not json`, nil)
	client := New("sk-test", WithURL(srv.URL))
	_, err := client.Complete(context.Background(), provider.Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding completion")
}

func TestCompleteRequiresToken(t *testing.T) {
	client := New("  ")
	_, err := client.Complete(context.Background(), provider.Request{Prompt: "hi"})
	require.Error(t, err)
}

func TestFromConfigAppliesSettings(t *testing.T) {
	var captured capturedRequest
	srv := newUpstream(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`, &captured)

	cfg := config.Default()
	cfg.API.URL = srv.URL
	cfg.API.SystemPrompt = "Zsh macOS terminal assistant"
	cfg.API.TimeoutSeconds = 7

	client := FromConfig(cfg, "sk-test")
	assert.Equal(t, 7*time.Second, client.httpClient.Timeout)
	_, err := client.Complete(context.Background(), provider.Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Zsh macOS terminal assistant", captured.Body.Messages[0].Content)
}
