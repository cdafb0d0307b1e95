package protocol

import (
	"errors"
	"fmt"
)

// ErrFormat is the parent of every decode/encode format failure.
var ErrFormat = errors.New("protocol: format error")

var (
	ErrShortFrame         = fmt.Errorf("%w: frame shorter than fixed header", ErrFormat)
	ErrInvalidHeaderSize  = fmt.Errorf("%w: invalid header size", ErrFormat)
	ErrUnsupportedMsgType = fmt.Errorf("%w: unsupported message type", ErrFormat)
	ErrTruncated          = fmt.Errorf("%w: truncated data", ErrFormat)
	ErrTrailingData       = fmt.Errorf("%w: unexpected data after payload", ErrFormat)
	ErrPayloadTooLarge    = fmt.Errorf("%w: field too large", ErrFormat)
)
