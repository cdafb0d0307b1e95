package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/room4-2/speechwire/messages"
	"github.com/room4-2/speechwire/protocol"
	"github.com/room4-2/speechwire/session"
	"github.com/room4-2/speechwire/transport"
)

// classify maps an exchange failure to an HTTP status and relay error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, messages.ErrInvalidRequest):
		return http.StatusBadRequest, messages.ErrCodeInvalidMessage
	case errors.Is(err, session.ErrTooManyExchanges):
		return http.StatusTooManyRequests, messages.ErrCodeRateLimited
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, transport.ErrTimeout):
		return http.StatusGatewayTimeout, messages.ErrCodeTimeout
	case errors.Is(err, session.ErrBufferFull):
		return http.StatusBadGateway, messages.ErrCodeBufferFull
	case errors.Is(err, session.ErrEmptyResult):
		return http.StatusBadGateway, messages.ErrCodeEmptyResult
	case errors.Is(err, session.ErrProtocolViolation), errors.Is(err, protocol.ErrFormat):
		return http.StatusBadGateway, messages.ErrCodeProtocolError
	case errors.Is(err, transport.ErrConnectionClosed):
		return http.StatusBadGateway, messages.ErrCodeConnectionClosed
	default:
		return http.StatusBadGateway, messages.ErrCodeSynthesisFailed
	}
}
