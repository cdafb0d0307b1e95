package messages

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is matched by every validation failure.
var ErrInvalidRequest = errors.New("messages: invalid request")

func missing(field string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidRequest, field)
}
