// Package transport carries opaque binary messages over a WebSocket.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Transport is a full-duplex message channel. ReceiveMessage blocks until
// one complete message has been reassembled.
type Transport interface {
	SendMessage(ctx context.Context, data []byte) error
	ReceiveMessage(ctx context.Context) ([]byte, error)
	Close() error
}

var (
	// ErrConnectionClosed is matched by every remote-close failure.
	ErrConnectionClosed = errors.New("transport: connection closed")
	// ErrTimeout is matched when a per-message read or write timeout expires
	// before the caller's context does.
	ErrTimeout = errors.New("transport: timed out")
)

// ClosedError reports the close status sent by the remote peer.
type ClosedError struct {
	Code   int
	Reason string
}

func (e *ClosedError) Error() string {
	return fmt.Sprintf("transport: server closed connection: %d - %s", e.Code, e.Reason)
}

func (e *ClosedError) Is(target error) bool {
	return target == ErrConnectionClosed
}

// BearerHeader returns the handshake header carrying token. The service
// expects the "Bearer;" form, with a semicolon.
func BearerHeader(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer;"+token)
	return h
}
