package main

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/room4-2/speechwire/messages"
)

// newRelay serves /ws with handle, which receives each client message type.
func newRelay(t *testing.T, handle func(conn *websocket.Conn, read func() string)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		read := func() string {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return ""
			}
			var msg messages.ClientMessage
			if err := sonic.Unmarshal(data, &msg); err != nil {
				return ""
			}
			return msg.Type
		}
		handle(conn, read)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func send(conn *websocket.Conn, msg *messages.ServerMessage) {
	data, _ := sonic.Marshal(msg)
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func TestRunWritesStreamedAudio(t *testing.T) {
	url := newRelay(t, func(conn *websocket.Conn, read func() string) {
		if read() != messages.TypeSynthesize {
			return
		}
		send(conn, messages.NewStatusMessage("ex1", messages.StatusStarted, ""))
		send(conn, messages.NewAudioMessage("ex1", base64.StdEncoding.EncodeToString([]byte{1, 2}), "mp3"))
		send(conn, messages.NewAudioMessage("ex1", base64.StdEncoding.EncodeToString([]byte{3}), "mp3"))
		send(conn, messages.NewStatusMessage("ex1", messages.StatusComplete, ""))
		read()
	})
	out := filepath.Join(t.TempDir(), "out.mp3")

	if code := run([]string{"-server", url, "-out", out}, nil); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Fatalf("audio = %v", data)
	}
}

func TestRunFailsOnErrorMessage(t *testing.T) {
	url := newRelay(t, func(conn *websocket.Conn, read func() string) {
		read()
		send(conn, messages.NewErrorMessage("ex1", messages.ErrCodeEmptyResult, "no audio"))
		read()
	})
	out := filepath.Join(t.TempDir(), "out.mp3")

	if code := run([]string{"-server", url, "-out", out}, nil); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestInterruptWaitsForCancelReply(t *testing.T) {
	gotCancel := make(chan struct{})
	url := newRelay(t, func(conn *websocket.Conn, read func() string) {
		if read() != messages.TypeSynthesize {
			return
		}
		send(conn, messages.NewAudioMessage("ex1", base64.StdEncoding.EncodeToString([]byte{9}), "mp3"))
		if read() != messages.TypeCancel {
			return
		}
		close(gotCancel)
		// Reply after a pause; the client must still be listening.
		time.Sleep(200 * time.Millisecond)
		send(conn, messages.NewAudioMessage("ex1", base64.StdEncoding.EncodeToString([]byte{10}), "mp3"))
		send(conn, messages.NewErrorMessage("ex1", messages.ErrCodeSynthesisFailed, "context canceled"))
		read()
	})
	out := filepath.Join(t.TempDir(), "out.mp3")

	interrupt := make(chan os.Signal, 1)
	interrupt <- os.Interrupt

	if code := run([]string{"-server", url, "-out", out}, interrupt); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	select {
	case <-gotCancel:
	default:
		t.Fatalf("relay never saw the cancel message")
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Contains(data, []byte{10}) {
		t.Fatalf("audio sent after cancel was not written: %v", data)
	}
}
