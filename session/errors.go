package session

import (
	"errors"
	"fmt"

	"github.com/room4-2/speechwire/protocol"
)

var (
	// ErrProtocolViolation is matched by every *ProtocolError.
	ErrProtocolViolation = errors.New("session: protocol violation")

	// ErrEmptyResult means the stream ended cleanly without any audio.
	ErrEmptyResult = errors.New("session: no audio received")

	// ErrUnexpectedFrame is matched by every *UnexpectedFrameError.
	ErrUnexpectedFrame = errors.New("session: unexpected frame")

	ErrTooManyExchanges = errors.New("session: maximum exchanges reached")
	ErrUnknownExchange  = errors.New("session: unknown exchange")
)

// ProtocolError carries a frame that does not belong in a synthesis response.
type ProtocolError struct {
	Frame protocol.Frame
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("session: unexpected response: %s", e.Frame)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocolViolation
}

// UnexpectedFrameError is returned by WaitForEvent when the next frame does
// not match the awaited kind and event.
type UnexpectedFrameError struct {
	WantType  protocol.MsgType
	WantEvent protocol.EventType
	Frame     protocol.Frame
}

func (e *UnexpectedFrameError) Error() string {
	return fmt.Sprintf("session: waiting for %s/%s, got %s", e.WantType, e.WantEvent, e.Frame)
}

func (e *UnexpectedFrameError) Is(target error) bool {
	return target == ErrUnexpectedFrame
}
