package messages

// Error codes
const (
	ErrCodeInvalidMessage   = "INVALID_MESSAGE"
	ErrCodeSynthesisFailed  = "SYNTHESIS_FAILED"
	ErrCodeProtocolError    = "PROTOCOL_ERROR"
	ErrCodeEmptyResult      = "EMPTY_RESULT"
	ErrCodeConnectionClosed = "CONNECTION_CLOSED"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeBufferFull       = "BUFFER_FULL"
	ErrCodeTimeout          = "TIMEOUT"
)

// Message types
const (
	TypeAudio  = "audio"
	TypeText   = "text"
	TypeStatus = "status"
	TypeError  = "error"
)

// Status values
const (
	StatusStarted  = "started"
	StatusComplete = "complete"
	StatusPong     = "pong"
)

// ServerMessage represents a message sent to a relay client
type ServerMessage struct {
	Type       string      `json:"type"` // "audio", "text", "status", "error"
	ExchangeID string      `json:"exchangeId,omitempty"`
	Payload    interface{} `json:"payload"`
}

// AudioResponsePayload contains one audio chunk
type AudioResponsePayload struct {
	Data     string `json:"data"`     // Base64-encoded audio
	MimeType string `json:"mimeType"` // e.g. "audio/mpeg"
}

// TextResponsePayload carries one front-end result payload, unparsed
type TextResponsePayload struct {
	Text string `json:"text"`
}

// StatusPayload contains status updates
type StatusPayload struct {
	Status  string `json:"status"` // "started", "complete", "pong"
	Message string `json:"message,omitempty"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MimeType maps an audio encoding name to its MIME type.
func MimeType(encoding string) string {
	switch encoding {
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "ogg_opus":
		return "audio/ogg"
	case "pcm":
		return "audio/pcm;rate=24000"
	default:
		return "application/octet-stream"
	}
}

// NewAudioMessage creates an audio chunk message
func NewAudioMessage(exchangeID, data, encoding string) *ServerMessage {
	return &ServerMessage{
		Type:       TypeAudio,
		ExchangeID: exchangeID,
		Payload: AudioResponsePayload{
			Data:     data,
			MimeType: MimeType(encoding),
		},
	}
}

// NewTextMessage creates a front-end text message
func NewTextMessage(exchangeID, text string) *ServerMessage {
	return &ServerMessage{
		Type:       TypeText,
		ExchangeID: exchangeID,
		Payload: TextResponsePayload{
			Text: text,
		},
	}
}

// NewStatusMessage creates a status message
func NewStatusMessage(exchangeID, status, message string) *ServerMessage {
	return &ServerMessage{
		Type:       TypeStatus,
		ExchangeID: exchangeID,
		Payload: StatusPayload{
			Status:  status,
			Message: message,
		},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(exchangeID, code, message string) *ServerMessage {
	return &ServerMessage{
		Type:       TypeError,
		ExchangeID: exchangeID,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}
