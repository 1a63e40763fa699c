package llm

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/config"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
)

const defaultMaxTokens = 256

// AnthropicClassifier implements ports.Classifier with the Messages API.
type AnthropicClassifier struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

var _ ports.Classifier = (*AnthropicClassifier)(nil)

// NewAnthropicClassifier builds a classifier; extra options are appended after the
// configured key, base URL and timeout.
func NewAnthropicClassifier(cfg config.ProviderConfig, timeout time.Duration, opts ...option.RequestOption) *AnthropicClassifier {
	base := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		base = append(base, option.WithBaseURL(cfg.Endpoint))
	}
	if timeout > 0 {
		base = append(base, option.WithRequestTimeout(timeout))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicClassifier{
		client:    anthropic.NewClient(append(base, opts...)...),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Classify returns the concatenated text blocks of the model reply.
func (c *AnthropicClassifier) Classify(ctx context.Context, in ports.ClassifyRequest) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(in))),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "anthropic classify")
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", eris.New("anthropic returned no text")
	}
	return sb.String(), nil
}
