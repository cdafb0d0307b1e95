package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func arkEnv(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Chdir(t.TempDir())
	t.Setenv("SPEECHWIRE_CONFIG", "")
	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("ARK_BASE_URL", srv.URL)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"speechwire", "--log-level", "none"}, args...))
	return out.String(), err
}

func TestChatCommand(t *testing.T) {
	arkEnv(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"role":"system"`) {
			t.Errorf("missing system prompt: %s", body)
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"pong"}}]}`)
	})

	out, err := run(t, "chat", "--model", "m", "--system", "be brief", "ping")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if strings.TrimSpace(out) != "pong" {
		t.Fatalf("output = %q", out)
	}
}

func TestChatCommandRequiresPrompt(t *testing.T) {
	arkEnv(t, func(w http.ResponseWriter, r *http.Request) {})
	if _, err := run(t, "chat", "--model", "m"); err == nil {
		t.Fatalf("expected an error without a prompt")
	}
}

func TestChatCommandUnknownProvider(t *testing.T) {
	arkEnv(t, func(w http.ResponseWriter, r *http.Request) {})
	if _, err := run(t, "chat", "--provider", "nope", "hi"); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}

func TestVideoStatusCommand(t *testing.T) {
	arkEnv(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"cgt-1","status":"succeeded","content":{"video_url":"https://video"}}`)
	})

	out, err := run(t, "video", "status", "cgt-1")
	if err != nil {
		t.Fatalf("video status: %v", err)
	}
	if strings.TrimSpace(out) != "succeeded https://video" {
		t.Fatalf("output = %q", out)
	}
}

func TestSynthCommandRequiresCredentials(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SPEECHWIRE_CONFIG", "")
	t.Setenv("TTS_APP_ID", "")
	t.Setenv("TTS_ACCESS_TOKEN", "")
	if _, err := run(t, "synth", "--text", "hi", "--voice", "v"); err == nil || !strings.Contains(err.Error(), "TTS_APP_ID") {
		t.Fatalf("expected missing credential error, got %v", err)
	}
}
