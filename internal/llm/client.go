package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

// TextGenerator is the contract the report engine depends on. Implementations
// may fail or return malformed output; callers must tolerate both.
type TextGenerator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, structured bool) (string, error)
}

// OpenAIClient talks to an OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	logger     internal.Logger
}

func NewOpenAIClient(baseURL, apiKey, model string, logger internal.Logger) *OpenAIClient {
	return &OpenAIClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
	Temperature    float64       `json:"temperature"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string, structured bool) (string, error) {
	reqBody := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.4,
	}
	if structured {
		reqBody.ResponseFormat = &respFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		c.logger.Errorf("llm: failed to create request: %v", err)
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.Errorf("llm: request failed: %v", err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Errorf("llm: completion endpoint returned %d: %s", resp.StatusCode, body)
		return "", fmt.Errorf("llm: completion endpoint returned %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Errorf("llm: failed to decode response: %v", err)
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("llm: response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// StaticGenerator returns a canned response; used in development mode and
// tests. When Err is set every call fails with it.
type StaticGenerator struct {
	Response string
	Err      error
	Calls    int
}

func (g *StaticGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string, structured bool) (string, error) {
	g.Calls++
	if g.Err != nil {
		return "", g.Err
	}
	return g.Response, nil
}

var _ TextGenerator = (*OpenAIClient)(nil)
var _ TextGenerator = (*StaticGenerator)(nil)
