package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// Client sends a conversation to a chat model and returns its reply.
// The reply may carry tool calls instead of content.
type Client interface {
	Chat(ctx context.Context, model string, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error)
}
