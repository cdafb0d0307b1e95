package transport

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newServer(t *testing.T, handle func(*websocket.Conn, *http.Request)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestEchoAndBearerHeader(t *testing.T) {
	gotAuth := make(chan string, 1)
	url := newServer(t, func(conn *websocket.Conn, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		typ, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.BinaryMessage {
			return
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, data)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, url, BearerHeader("tok"), DefaultOptions())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if auth := <-gotAuth; auth != "Bearer;tok" {
		t.Fatalf("authorization = %q", auth)
	}
	if err := c.SendMessage(ctx, []byte{1, 2, 3}); err != nil {
		t.Fatalf("send: %v", err)
	}
	data, err := c.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Fatalf("echo = %v", data)
	}
}

func TestFragmentedMessageIsReassembled(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn, _ *http.Request) {
		w, err := conn.NextWriter(websocket.BinaryMessage)
		if err != nil {
			return
		}
		_, _ = w.Write([]byte("hello "))
		_, _ = w.Write([]byte("world"))
		_ = w.Close()
		_, _, _ = conn.ReadMessage()
	})

	ctx := context.Background()
	c, err := Dial(ctx, url, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	data, err := c.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("data = %q", data)
	}
}

func TestRemoteCloseCarriesStatus(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn, _ *http.Request) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "quota exceeded"))
		_, _, _ = conn.ReadMessage()
	})

	ctx := context.Background()
	c, err := Dial(ctx, url, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	_, err = c.ReceiveMessage(ctx)
	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
	var ce *ClosedError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ClosedError, got %T", err)
	}
	if ce.Code != websocket.ClosePolicyViolation || ce.Reason != "quota exceeded" {
		t.Fatalf("close = %+v", ce)
	}
}

func TestCancelAbortsInFlightReceive(t *testing.T) {
	release := make(chan struct{})
	url := newServer(t, func(conn *websocket.Conn, _ *http.Request) {
		<-release
	})
	defer close(release)

	opts := DefaultOptions()
	opts.ReadTimeout = 0
	c, err := Dial(context.Background(), url, nil, opts)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err = c.ReceiveMessage(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("receive took %v after cancel", elapsed)
	}
}

func TestReadTimeoutBoundsReceive(t *testing.T) {
	release := make(chan struct{})
	url := newServer(t, func(conn *websocket.Conn, _ *http.Request) {
		<-release
	})
	defer close(release)

	opts := DefaultOptions()
	opts.ReadTimeout = 50 * time.Millisecond
	c, err := Dial(context.Background(), url, nil, opts)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	start := time.Now()
	_, err = c.ReceiveMessage(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("read timeout should not look like a context deadline: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("receive took %v", elapsed)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn, _ *http.Request) {
		_, _, _ = conn.ReadMessage()
	})
	c, err := Dial(context.Background(), url, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
