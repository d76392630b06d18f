package narrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-5"
	maxSummaryTokens      = 1024
)

const systemPrompt = "You are a FinOps analyst for small server fleets. Write a concise summary " +
	"with numbered recommendations, highlighting power savings and consolidation risks."

// AnthropicProvider summarizes through the Anthropic Messages API
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider requires an API key; without one it returns ErrProviderUnavailable
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is required", ErrProviderUnavailable)
	}
	model := cfg.AnthropicModel
	if model == "" {
		model = defaultAnthropicModel
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.AnthropicAPIKey)}
	if cfg.AnthropicBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.AnthropicBaseURL), option.WithMaxRetries(0))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

func (p *AnthropicProvider) Summarize(ctx context.Context, payload Payload, prompt string) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxSummaryTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf("Prompt: %s\nContext: %s", prompt, data))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("messages request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("response contained no text")
	}
	return sb.String(), nil
}

var _ Provider = (*AnthropicProvider)(nil)
var _ Provider = (*MockProvider)(nil)
