package ark

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/room4-2/speechwire/messages"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "key")
	c.HTTP = srv.Client()
	return c
}

func TestChat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var req messages.ChatRequest
		if err := sonic.Unmarshal(body, &req); err != nil || len(req.Messages) != 2 {
			t.Errorf("request body = %s", body)
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"I am a helper"}}]}`)
	})

	out, err := c.Chat(context.Background(), messages.ChatRequest{
		Model: "doubao",
		Messages: []messages.ChatMessage{
			{Role: "system", Content: "you are a helper"},
			{Role: "user", Content: "who are you?"},
		},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out != "I am a helper" {
		t.Fatalf("content = %q", out)
	}
}

func TestGenerateImageUsesResponseFormat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"url":"https://img","b64_json":"AAAA"}]}`)
	})

	ctx := context.Background()
	url, err := c.GenerateImage(ctx, messages.ImageRequest{Model: "m", Prompt: "p"})
	if err != nil || url != "https://img" {
		t.Fatalf("default format: %q %v", url, err)
	}
	b64, err := c.GenerateImage(ctx, messages.ImageRequest{Model: "m", Prompt: "p", ResponseFormat: "b64_json"})
	if err != nil || b64 != "AAAA" {
		t.Fatalf("b64 format: %q %v", b64, err)
	}
}

func TestVideoTasks(t *testing.T) {
	statuses := map[string]string{
		"done":    `{"id":"done","status":"succeeded","content":{"video_url":"https://video"}}`,
		"queued":  `{"id":"queued","status":"queued"}`,
		"running": `{"id":"running","status":"running"}`,
		"failed":  `{"id":"failed","status":"failed","error":{"code":"x","message":"content rejected"}}`,
		"weird":   `{"id":"weird","status":"paused"}`,
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = io.WriteString(w, `{"id":"cgt-1"}`)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/contents/generations/tasks/")
		_, _ = io.WriteString(w, statuses[id])
	})
	ctx := context.Background()

	id, err := c.CreateVideoTask(ctx, messages.VideoTaskRequest{
		Model:   "seedance",
		Content: []messages.VideoContent{{Type: "text", Text: "a detective enters a dim room --ratio 16:9"}},
	})
	if err != nil || id != "cgt-1" {
		t.Fatalf("create: %q %v", id, err)
	}

	cases := []struct {
		id       string
		complete bool
		message  string
	}{
		{"done", true, "https://video"},
		{"queued", false, ""},
		{"running", false, ""},
		{"failed", true, "content rejected"},
	}
	for _, tc := range cases {
		res, err := c.GetVideoTask(ctx, tc.id)
		if err != nil {
			t.Fatalf("%s: %v", tc.id, err)
		}
		if res.IsComplete != tc.complete || res.Message != tc.message {
			t.Fatalf("%s: result = %+v", tc.id, res)
		}
	}
	if _, err := c.GetVideoTask(ctx, "weird"); err == nil {
		t.Fatalf("unknown status should fail")
	}
}

func TestVideoTaskIDIsEscaped(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = io.WriteString(w, `{"status":"queued"}`)
	})

	if _, err := c.GetVideoTask(context.Background(), "a/b?c"); err != nil {
		t.Fatalf("status: %v", err)
	}
	if want := "/contents/generations/tasks/a%2Fb%3Fc"; gotPath != want {
		t.Fatalf("path = %q, want %q", gotPath, want)
	}
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
	})

	_, err := c.Chat(context.Background(), messages.ChatRequest{
		Model:    "m",
		Messages: []messages.ChatMessage{{Role: "user", Content: "hi"}},
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected *APIError 401, got %v", err)
	}
	if !strings.Contains(apiErr.Body, "bad key") {
		t.Fatalf("body = %q", apiErr.Body)
	}
}

func TestMissingField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	})
	_, err := c.Chat(context.Background(), messages.ChatRequest{
		Model:    "m",
		Messages: []messages.ChatMessage{{Role: "user", Content: "hi"}},
	})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestValidationBeforeRequest(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	if _, err := c.GenerateImage(context.Background(), messages.ImageRequest{Model: "m"}); !errors.Is(err, messages.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if called {
		t.Fatalf("invalid request reached the server")
	}
}
