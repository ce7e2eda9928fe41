package provider

import (
	"context"

	"github.com/fbettag/sgpt/internal/modelcatalog"
)

// Role values used in chat messages.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatMessage is one entry of a chat-completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single prompt exchange.
type Request struct {
	Prompt string
	// Model is the operator's selection. Clients log it but always send
	// modelcatalog.Upstream.
	Model modelcatalog.ID
}

// Completer performs one synchronous request/response exchange.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
