// Package provider wraps the per-vendor text generation clients behind a
// single Generator interface consumed by the orchestrator.
package provider

import "context"

// Vendor identifies the client implementation used for a provider.
type Vendor string

const (
	// VendorAnthropic routes through the Anthropic Messages API.
	VendorAnthropic Vendor = "anthropic"
	// VendorOpenAI routes through an OpenAI-compatible chat completions API.
	VendorOpenAI Vendor = "openai"
)

// Descriptor describes one provider entry from the catalog. It carries
// everything needed to construct a Generator for it.
type Descriptor struct {
	// ID is the catalog identifier.
	ID string `json:"id"`
	// Slug is the stable machine name used in bindings and overrides.
	Slug string `json:"slug"`
	// Name is the human-readable display name.
	Name string `json:"name"`
	// Vendor selects the client implementation.
	Vendor Vendor `json:"vendor"`
	// Model is the concrete model identifier sent to the vendor.
	Model string `json:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `json:"apiKeyEnv,omitempty"`
	// BaseURL overrides the vendor endpoint (OpenAI-compatible gateways).
	BaseURL string `json:"baseUrl,omitempty"`
	// UseBedrock routes Anthropic calls through AWS Bedrock.
	UseBedrock bool `json:"useBedrock,omitempty"`
	// AWSRegion is the Bedrock region when UseBedrock is set.
	AWSRegion string `json:"awsRegion,omitempty"`
}

// Turn is one prior conversation turn supplied as context.
type Turn struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`
	// Content is the turn's text.
	Content string `json:"content"`
}

// Request is one text generation call.
type Request struct {
	// SystemPrompt is the persona/system instruction.
	SystemPrompt string
	// Input is the user-facing prompt text.
	Input string
	// History holds optional prior turns, oldest first.
	History []Turn
	// MaxTokens caps the response length. Zero means the client default.
	MaxTokens int
}

// Result is the outcome of a generation call. DurationMs is always set, even
// on failure, so callers can record timing for failed calls too.
type Result struct {
	// Output is the full generated text.
	Output string
	// Thinking is the vendor's reasoning payload, if the model emitted one.
	Thinking string
	// Citations lists citation snippets, if the vendor reported any.
	Citations []string
	// DurationMs is the wall-clock call duration.
	DurationMs int64
	// InputTokens and OutputTokens report usage when the vendor provides it.
	InputTokens  int64
	OutputTokens int64
}

// ChunkHandler receives one incremental text fragment.
type ChunkHandler func(text string)

// Generator produces text for a single provider. Implementations are safe for
// concurrent use.
type Generator interface {
	// Generate performs a blocking, non-streaming call.
	Generate(ctx context.Context, req Request) (*Result, error)

	// GenerateStream performs a streaming call, invoking onChunk for every
	// incremental text fragment and onThinking for reasoning fragments.
	// Either handler may be nil. The returned Result carries the full
	// accumulated output.
	GenerateStream(ctx context.Context, req Request, onChunk, onThinking ChunkHandler) (*Result, error)
}
