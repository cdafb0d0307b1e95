// Package ark calls the Ark REST endpoints for chat, image and video
// generation.
package ark

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"

	"github.com/room4-2/speechwire/messages"
	"github.com/room4-2/speechwire/metrics"
)

// DefaultBaseURL is the public Ark API root.
const DefaultBaseURL = "https://ark.cn-beijing.volces.com/api/v3"

// ErrMissingField means a 2xx response lacked the expected field.
var ErrMissingField = errors.New("ark: response field missing")

// APIError is returned for any non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ark: status %d: %s", e.Status, e.Body)
}

// Client is a thin Ark REST client. The zero value is not usable; set
// APIKey at least.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewClient returns a client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 120 * time.Second},
	}
}

// Chat sends a chat completion request and returns the first choice's content.
func (c *Client) Chat(ctx context.Context, req messages.ChatRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	body, err := c.do(ctx, "chat", http.MethodPost, "/chat/completions", req)
	if err != nil {
		return "", err
	}
	return field(body, "choices", 0, "message", "content")
}

// GenerateImage returns the generated image under the field named by the
// request's response format: a URL by default, or base64 data.
func (c *Client) GenerateImage(ctx context.Context, req messages.ImageRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	body, err := c.do(ctx, "image", http.MethodPost, "/images/generations", req)
	if err != nil {
		return "", err
	}
	return field(body, "data", 0, req.Format())
}

// CreateVideoTask submits a video generation task and returns its id.
func (c *Client) CreateVideoTask(ctx context.Context, req messages.VideoTaskRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	body, err := c.do(ctx, "video_create", http.MethodPost, "/contents/generations/tasks", req)
	if err != nil {
		return "", err
	}
	return field(body, "id")
}

// GetVideoTask polls a video task. Queued and running tasks are reported as
// incomplete; unknown statuses are an error.
func (c *Client) GetVideoTask(ctx context.Context, id string) (messages.VideoTaskResult, error) {
	if id == "" {
		return messages.VideoTaskResult{}, fmt.Errorf("%w: task id is required", messages.ErrInvalidRequest)
	}
	body, err := c.do(ctx, "video_status", http.MethodGet, "/contents/generations/tasks/"+url.PathEscape(id), nil)
	if err != nil {
		return messages.VideoTaskResult{}, err
	}
	status, err := field(body, "status")
	if err != nil {
		return messages.VideoTaskResult{}, err
	}

	res := messages.VideoTaskResult{Status: status}
	switch status {
	case messages.VideoStatusSucceeded:
		res.IsComplete = true
		res.Message, _ = field(body, "content", "video_url")
	case messages.VideoStatusQueued, messages.VideoStatusRunning:
	case messages.VideoStatusFailed:
		res.IsComplete = true
		res.Message, _ = field(body, "error", "message")
	default:
		return res, fmt.Errorf("ark: unknown task status %q", status)
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in any) ([]byte, error) {
	var reader io.Reader
	if in != nil {
		data, err := sonic.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("ark: encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("ark: build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		metrics.RecordRESTRequest(op, false)
		return nil, fmt.Errorf("ark: %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordRESTRequest(op, false)
		return nil, fmt.Errorf("ark: read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordRESTRequest(op, false)
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	metrics.RecordRESTRequest(op, true)
	return body, nil
}

func field(body []byte, path ...interface{}) (string, error) {
	node, err := sonic.Get(body, path...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingField, path)
	}
	s, err := node.String()
	if err != nil {
		return "", fmt.Errorf("%w: %v is not a string", ErrMissingField, path)
	}
	return s, nil
}
