package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/postpilotapp/postpilot/internal/retry"
	"github.com/postpilotapp/postpilot/internal/transfer"
)

type CompletionResult struct {
	Text       string
	TokensUsed int
	Model      string
}

type ModerationResult struct {
	Flagged    bool
	Categories []string
	Confidence float64
}

// Client is the AI provider boundary: chat completion, image generation and
// moderation. The production implementation talks to an OpenAI-compatible
// HTTP API.
type Client interface {
	Complete(ctx context.Context, model, prompt string) (*CompletionResult, error)
	GenerateImages(ctx context.Context, model, prompt string, count int) ([]string, error)
	Moderate(ctx context.Context, text string) (*ModerationResult, error)
}

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) Client {
	return &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *httpClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error *transfer.ProviderError `json:"error"`
		}
		msg := string(data)
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != nil {
			msg = envelope.Error.Message
			if envelope.Error.Type != "" {
				msg = envelope.Error.Type + ": " + msg
			}
		}
		return &retry.HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}

func (c *httpClient) Complete(ctx context.Context, model, prompt string) (*CompletionResult, error) {
	reqBody := transfer.ChatCompletionRequest{
		Model: model,
		Messages: []transfer.ChatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:    0.8,
		ResponseFormat: &transfer.ChatResponseFormat{Type: "json_object"},
	}

	var resp transfer.ChatCompletionResponse
	if err := c.post(ctx, "/chat/completions", reqBody, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, errors.New(resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("provider returned no choices")
	}

	return &CompletionResult{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
		Model:      resp.Model,
	}, nil
}

func (c *httpClient) GenerateImages(ctx context.Context, model, prompt string, count int) ([]string, error) {
	reqBody := transfer.ImageGenerationRequest{
		Model:  model,
		Prompt: prompt,
		N:      count,
		Size:   "1024x1024",
	}

	var resp transfer.ImageGenerationResponse
	if err := c.post(ctx, "/images/generations", reqBody, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, errors.New(resp.Error.Message)
	}

	urls := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		urls = append(urls, d.URL)
	}
	if len(urls) == 0 {
		return nil, errors.New("provider returned no images")
	}
	return urls, nil
}

func (c *httpClient) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	var resp transfer.ModerationResponse
	if err := c.post(ctx, "/moderations", transfer.ModerationRequest{Input: text}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, errors.New(resp.Error.Message)
	}
	if len(resp.Results) == 0 {
		return nil, errors.New("provider returned no moderation results")
	}

	result := resp.Results[0]
	out := &ModerationResult{Flagged: result.Flagged}
	for category, hit := range result.Categories {
		if hit {
			out.Categories = append(out.Categories, category)
		}
	}
	for _, score := range result.CategoryScores {
		if score > out.Confidence {
			out.Confidence = score
		}
	}
	return out, nil
}
