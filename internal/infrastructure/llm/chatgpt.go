package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/config"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
)

// ChatGPTClassifier implements ports.Classifier backed by OpenAI-compatible chat APIs.
type ChatGPTClassifier struct {
	endpoint   string
	model      string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
}

var _ ports.Classifier = (*ChatGPTClassifier)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewChatGPTClassifier builds a classifier from configuration.
func NewChatGPTClassifier(cfg config.ProviderConfig, timeout time.Duration) *ChatGPTClassifier {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ChatGPTClassifier{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Classify sends the title and excerpt as a user message and returns the reply text.
func (c *ChatGPTClassifier) Classify(ctx context.Context, in ports.ClassifyRequest) (string, error) {
	if c == nil {
		return "", eris.New("chatgpt classifier is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", eris.New("chatgpt classifier misconfigured")
	}

	payload := map[string]any{
		"model":       c.model,
		"temperature": 0,
		"messages": []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(in)},
		},
	}
	if c.maxTokens > 0 {
		payload["max_tokens"] = c.maxTokens
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", eris.Wrap(err, "marshal chatgpt payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "new request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "send classification")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", eris.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", eris.Wrap(err, "decode chatgpt response")
	}
	if len(decoded.Choices) == 0 {
		return "", eris.New("chatgpt returned no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}
