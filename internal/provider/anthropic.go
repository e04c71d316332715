package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// defaultMaxTokens is used when the request does not cap the response.
const defaultMaxTokens = 8192

// AnthropicGenerator calls the Anthropic Messages API, optionally routed
// through AWS Bedrock.
type AnthropicGenerator struct {
	inner anthropic.Client
	model anthropic.Model
}

// NewAnthropicGenerator creates a Generator for the given descriptor.
// When the descriptor does not route through Bedrock, the API key is read
// from the environment variable named by the descriptor (ANTHROPIC_API_KEY
// when unset).
func NewAnthropicGenerator(d Descriptor) (*AnthropicGenerator, error) {
	var opts []option.RequestOption

	if d.UseBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if d.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(d.AWSRegion))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		keyEnv := d.APIKeyEnv
		if keyEnv == "" {
			keyEnv = "ANTHROPIC_API_KEY"
		}
		apiKey := os.Getenv(keyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is not set", keyEnv)
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := anthropic.Model(d.Model)
	if d.UseBedrock {
		model = translateModelForBedrock(model)
	}

	return &AnthropicGenerator{
		inner: anthropic.NewClient(opts...),
		model: model,
	}, nil
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock
// cross-region inference profile format: us.anthropic.{model}-v1:0
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	if strings.HasPrefix(string(model), "us.anthropic") {
		return model
	}
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:  "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:  "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219: "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:  "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// buildParams converts a Request into Anthropic message params.
func (g *AnthropicGenerator) buildParams(req Request) anthropic.MessageNewParams {
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	var messages []anthropic.MessageParam
	for _, turn := range req.History {
		block := anthropic.NewTextBlock(turn.Content)
		if turn.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Input)))

	params := anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	return params
}

// Generate performs a blocking call and collects text, thinking, and
// citations from the response content blocks.
func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	resp, err := g.inner.Messages.New(ctx, g.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic call failed: %w", err)
	}

	result := collectMessage(resp)
	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}

// GenerateStream performs a streaming call, relaying text and thinking deltas
// to the handlers while accumulating the full message.
func (g *AnthropicGenerator) GenerateStream(ctx context.Context, req Request, onChunk, onThinking ChunkHandler) (*Result, error) {
	start := time.Now()
	stream := g.inner.Messages.NewStreaming(ctx, g.buildParams(req))

	var acc anthropic.Message
	for stream.Next() {
		event := stream.Current()
		if err := acc.Accumulate(event); err != nil {
			return nil, fmt.Errorf("accumulate stream event: %w", err)
		}

		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if onChunk != nil && delta.Text != "" {
					onChunk(delta.Text)
				}
			case anthropic.ThinkingDelta:
				if onThinking != nil && delta.Thinking != "" {
					onThinking(delta.Thinking)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic stream failed: %w", err)
	}

	result := collectMessage(&acc)
	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}

// collectMessage folds a complete message into a Result.
func collectMessage(msg *anthropic.Message) *Result {
	var output, thinking strings.Builder
	var citations []string

	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			output.WriteString(variant.Text)
			for _, c := range variant.Citations {
				if c.CitedText != "" {
					citations = append(citations, c.CitedText)
				}
			}
		case anthropic.ThinkingBlock:
			thinking.WriteString(variant.Thinking)
		}
	}

	return &Result{
		Output:       output.String(),
		Thinking:     thinking.String(),
		Citations:    citations,
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}
}
