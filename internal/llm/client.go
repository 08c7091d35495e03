package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("model returned empty response")

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}
