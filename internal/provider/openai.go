package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIGenerator calls an OpenAI-compatible chat completions API. A custom
// BaseURL in the descriptor points it at compatible gateways (Azure, local
// inference servers, proxies).
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a Generator for the given descriptor. The API
// key is read from the environment variable named by the descriptor
// (OPENAI_API_KEY when unset).
func NewOpenAIGenerator(d Descriptor) (*OpenAIGenerator, error) {
	keyEnv := d.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable is not set", keyEnv)
	}

	cfg := openai.DefaultConfig(apiKey)
	if d.BaseURL != "" {
		cfg.BaseURL = d.BaseURL
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  d.Model,
	}, nil
}

// buildRequest converts a Request into a chat completion request.
func (g *OpenAIGenerator) buildRequest(req Request) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Input,
	})

	out := openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		out.MaxCompletionTokens = req.MaxTokens
	}
	return out
}

// Generate performs a blocking chat completion call.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, g.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("openai call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return &Result{
		Output:       resp.Choices[0].Message.Content,
		DurationMs:   time.Since(start).Milliseconds(),
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
	}, nil
}

// GenerateStream performs a streaming chat completion, relaying content
// deltas to onChunk. The OpenAI chat API has no separate thinking channel, so
// onThinking is never invoked.
func (g *OpenAIGenerator) GenerateStream(ctx context.Context, req Request, onChunk, _ ChunkHandler) (*Result, error) {
	start := time.Now()
	stream, err := g.client.CreateChatCompletionStream(ctx, g.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("openai stream failed: %w", err)
	}
	defer stream.Close()

	var output strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("openai stream recv: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		output.WriteString(delta)
		if onChunk != nil {
			onChunk(delta)
		}
	}

	return &Result{
		Output:     output.String(),
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}
