package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBufferFull is returned when the buffer exceeds its maximum size
var ErrBufferFull = errors.New("session: audio buffer full")

// AudioBuffer accumulates audio chunks for one exchange. It is owned by a
// single receive loop and is not safe for concurrent use.
type AudioBuffer struct {
	chunks    [][]byte
	totalSize int
	maxSize   int
}

// NewAudioBuffer creates a buffer with the specified maximum size in bytes.
// A maxSize of zero means unbounded.
func NewAudioBuffer(maxSize int) *AudioBuffer {
	return &AudioBuffer{
		chunks:  make([][]byte, 0),
		maxSize: maxSize,
	}
}

// MaxSize returns the maximum buffer size
func (ab *AudioBuffer) MaxSize() int {
	return ab.maxSize
}

// Append adds an audio chunk to the buffer
// Returns ErrBufferFull if adding the chunk would exceed maxSize
func (ab *AudioBuffer) Append(chunk []byte) error {
	newSize := ab.totalSize + len(chunk)
	if ab.maxSize > 0 && newSize > ab.maxSize {
		return fmt.Errorf("%w (max %d bytes)", ErrBufferFull, ab.MaxSize())
	}

	ab.chunks = append(ab.chunks, chunk)
	ab.totalSize = newSize
	return nil
}

// Bytes concatenates all chunks in arrival order without clearing.
func (ab *AudioBuffer) Bytes() []byte {
	if len(ab.chunks) == 0 {
		return nil
	}
	result := make([]byte, 0, ab.totalSize)
	for _, chunk := range ab.chunks {
		result = append(result, chunk...)
	}
	return result
}

// Size returns the current total buffered bytes
func (ab *AudioBuffer) Size() int {
	return ab.totalSize
}

// IsEmpty returns true if no audio bytes are buffered
func (ab *AudioBuffer) IsEmpty() bool {
	return ab.totalSize == 0
}

// ChunkCount returns the number of chunks in the buffer
func (ab *AudioBuffer) ChunkCount() int {
	return len(ab.chunks)
}

// TextBuffer keeps front-end result payloads in arrival order.
type TextBuffer struct {
	segments []string
}

// Append records one payload.
func (tb *TextBuffer) Append(s string) {
	tb.segments = append(tb.segments, s)
}

// Text returns every segment concatenated.
func (tb *TextBuffer) Text() string {
	return strings.Join(tb.segments, "")
}

// Last returns the most recent segment, or "" when none arrived.
func (tb *TextBuffer) Last() string {
	if len(tb.segments) == 0 {
		return ""
	}
	return tb.segments[len(tb.segments)-1]
}

// Len returns the number of segments.
func (tb *TextBuffer) Len() int {
	return len(tb.segments)
}
