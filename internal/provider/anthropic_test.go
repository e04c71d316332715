package provider

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestTranslateModelForBedrock(t *testing.T) {
	tests := []struct {
		name  string
		model anthropic.Model
		want  anthropic.Model
	}{
		{
			name:  "known model gets inference profile prefix",
			model: anthropic.ModelClaudeSonnet4_20250514,
			want:  "us.anthropic.claude-sonnet-4-20250514-v1:0",
		},
		{
			name:  "already translated model unchanged",
			model: "us.anthropic.claude-sonnet-4-20250514-v1:0",
			want:  "us.anthropic.claude-sonnet-4-20250514-v1:0",
		},
		{
			name:  "unknown model passes through",
			model: "claude-experimental",
			want:  "claude-experimental",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translateModelForBedrock(tt.model); got != tt.want {
				t.Errorf("translateModelForBedrock(%q) = %q, want %q", tt.model, got, tt.want)
			}
		})
	}
}

func TestNewAnthropicGeneratorRequiresKey(t *testing.T) {
	t.Setenv("CHORUS_TEST_ANTHROPIC_KEY", "")

	_, err := NewAnthropicGenerator(Descriptor{
		Slug:      "claude",
		Vendor:    VendorAnthropic,
		Model:     "claude-sonnet-4-5",
		APIKeyEnv: "CHORUS_TEST_ANTHROPIC_KEY",
	})
	if err == nil {
		t.Fatal("expected error when the API key env is empty")
	}
}

func TestAnthropicBuildParams(t *testing.T) {
	t.Setenv("CHORUS_TEST_ANTHROPIC_KEY", "sk-ant-test")

	gen, err := NewAnthropicGenerator(Descriptor{
		Vendor:    VendorAnthropic,
		Model:     "claude-sonnet-4-5",
		APIKeyEnv: "CHORUS_TEST_ANTHROPIC_KEY",
	})
	if err != nil {
		t.Fatalf("NewAnthropicGenerator failed: %v", err)
	}

	params := gen.buildParams(Request{
		SystemPrompt: "You are Coding.",
		Input:        "write a function",
		History: []Turn{
			{Role: "user", Content: "earlier question"},
			{Role: "assistant", Content: "earlier answer"},
		},
		MaxTokens: 1024,
	})

	if params.MaxTokens != 1024 {
		t.Errorf("max tokens = %d, want 1024", params.MaxTokens)
	}
	if len(params.System) != 1 || params.System[0].Text != "You are Coding." {
		t.Errorf("system prompt not carried: %+v", params.System)
	}
	// History turns plus the current input.
	if len(params.Messages) != 3 {
		t.Errorf("got %d messages, want 3", len(params.Messages))
	}
}
