package messages

// ChatMessage is one turn of a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of a chat completion call.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

func (r *ChatRequest) Validate() error {
	if r.Model == "" {
		return missing("model")
	}
	if len(r.Messages) == 0 {
		return missing("messages")
	}
	return nil
}

// ImageRequest is the body of an image generation call. ResponseFormat
// also names the field read back from the response; it defaults to "url".
type ImageRequest struct {
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt"`
	ResponseFormat string   `json:"response_format,omitempty"`
	Size           string   `json:"size,omitempty"`
	Seed           *int     `json:"seed,omitempty"`
	GuidanceScale  *float64 `json:"guidance_scale,omitempty"`
	Watermark      *bool    `json:"watermark,omitempty"`
}

// DefaultImageResponseFormat is used when ImageRequest.ResponseFormat is empty.
const DefaultImageResponseFormat = "url"

func (r *ImageRequest) Validate() error {
	if r.Model == "" {
		return missing("model")
	}
	if r.Prompt == "" {
		return missing("prompt")
	}
	return nil
}

// Format returns the response field holding the generated image.
func (r *ImageRequest) Format() string {
	if r.ResponseFormat == "" {
		return DefaultImageResponseFormat
	}
	return r.ResponseFormat
}

// VideoContent is one input item of a video generation task.
type VideoContent struct {
	Type     string    `json:"type"` // "text" or "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// VideoTaskRequest is the body of a video task submission.
type VideoTaskRequest struct {
	Model   string         `json:"model"`
	Content []VideoContent `json:"content"`
}

func (r *VideoTaskRequest) Validate() error {
	if r.Model == "" {
		return missing("model")
	}
	if len(r.Content) == 0 {
		return missing("content")
	}
	return nil
}

// Video task statuses reported by the service.
const (
	VideoStatusQueued    = "queued"
	VideoStatusRunning   = "running"
	VideoStatusSucceeded = "succeeded"
	VideoStatusFailed    = "failed"
)

// VideoTaskResult summarizes a polled task. Message holds the video URL on
// success and the service's error message on failure.
type VideoTaskResult struct {
	Status     string `json:"status"`
	IsComplete bool   `json:"isComplete"`
	Message    string `json:"message,omitempty"`
}
