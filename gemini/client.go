// Package gemini is a chat backend on the Gemini API, interchangeable with
// the Ark chat endpoint.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/room4-2/speechwire/messages"
	"github.com/room4-2/speechwire/metrics"
)

// DefaultModel is used when a request names no model.
const DefaultModel = "gemini-2.5-flash"

// ErrEmptyResponse means the model returned no text.
var ErrEmptyResponse = errors.New("gemini: empty response")

// Client wraps a genai client for single-turn and multi-turn chat.
type Client struct {
	client *genai.Client
}

// NewClient creates a Gemini API client. baseURL overrides the API root and
// is normally empty.
func NewClient(ctx context.Context, apiKey, baseURL string) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Client{client: client}, nil
}

// Chat sends req and returns the model's text. System messages become the
// system instruction; assistant turns map to the model role.
func (c *Client) Chat(ctx context.Context, req messages.ChatRequest) (string, error) {
	if req.Model == "" {
		req.Model = DefaultModel
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	contents, config := convert(req)
	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		metrics.RecordRESTRequest("gemini_chat", false)
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	metrics.RecordRESTRequest("gemini_chat", true)

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func convert(req messages.ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = int32(*req.MaxTokens)
	}

	var system []*genai.Part
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, genai.NewPartFromText(m.Content))
		case "assistant", string(genai.RoleModel):
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{Parts: system}
	}
	return contents, config
}
