package protocol

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Frame is one binary message exchanged with the speech service.
//
// Which optional fields travel on the wire depends on Type, Flag and Event;
// fields that do not apply are left at their zero value.
type Frame struct {
	Version       Version
	HeaderSize    HeaderSize
	Type          MsgType
	Flag          MsgTypeFlag
	Serialization Serialization
	Compression   Compression

	Event     EventType
	SessionID string
	ConnectID string
	Sequence  int32
	ErrorCode uint32

	Payload []byte
}

// NewFrame returns a frame with the defaults used for client requests:
// version 1, a 4-byte header, JSON serialization, no compression.
func NewFrame(t MsgType, flag MsgTypeFlag) Frame {
	return Frame{
		Version:       Version1,
		HeaderSize:    HeaderSize4,
		Type:          t,
		Flag:          flag,
		Serialization: SerializationJSON,
		Compression:   CompressionNone,
		Payload:       []byte{},
	}
}

// HasSequence reports whether the sequence field is carried by f.
func (f Frame) HasSequence() bool {
	return f.Type.framed() && f.Flag.sequenced()
}

// Last reports whether f is an audio frame carrying the end-of-stream sentinel.
func (f Frame) Last() bool {
	return f.Type == MsgTypeAudioOnlyServer && f.Sequence < 0
}

// String renders f for logs and error messages. It is never parsed back.
func (f Frame) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "MsgType: %s, EventType: %s", f.Type, f.Event)
	switch f.Type {
	case MsgTypeAudioOnlyServer, MsgTypeAudioOnlyClient:
		if f.HasSequence() {
			fmt.Fprintf(&b, ", Sequence: %d", f.Sequence)
		}
		fmt.Fprintf(&b, ", PayloadSize: %d", len(f.Payload))
	case MsgTypeError:
		fmt.Fprintf(&b, ", ErrorCode: %d, Payload: %s", f.ErrorCode, PayloadText(f.Payload))
	default:
		if f.HasSequence() {
			fmt.Fprintf(&b, ", Sequence: %d", f.Sequence)
		}
		fmt.Fprintf(&b, ", Payload: %s", PayloadText(f.Payload))
	}
	return b.String()
}

// PayloadText returns p as text when it is valid UTF-8, otherwise as
// upper-case hex.
func PayloadText(p []byte) string {
	if len(p) == 0 {
		return ""
	}
	if utf8.Valid(p) {
		return string(p)
	}
	return fmt.Sprintf("%X", p)
}
