package messages

import "encoding/json"

// Client message types
const (
	TypeSynthesize = "synthesize"
	TypeCancel     = "cancel"
	TypePing       = "ping"
)

// ClientMessage represents a message from a relay client
type ClientMessage struct {
	Type    string          `json:"type"` // "synthesize", "cancel", "ping"
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SynthesizeRequest is the body of POST /v1/tts and of a "synthesize" relay
// message. Empty fields fall back to server defaults.
type SynthesizeRequest struct {
	Text          string `json:"text"`
	Voice         string `json:"voice"`
	Encoding      string `json:"encoding,omitempty"`
	SpeedRatio    string `json:"speedRatio,omitempty"`
	Emotion       string `json:"emotion,omitempty"`
	EnableEmotion bool   `json:"enableEmotion,omitempty"`
	EmotionScale  string `json:"emotionScale,omitempty"`
	Cluster       string `json:"cluster,omitempty"`
}

// Validate checks the fields a request cannot do without.
func (r *SynthesizeRequest) Validate() error {
	if r.Text == "" {
		return missing("text")
	}
	if r.Voice == "" {
		return missing("voice")
	}
	return nil
}

// SynthesizeResponse is the body returned by POST /v1/tts.
type SynthesizeResponse struct {
	ExchangeID string         `json:"exchangeId"`
	Encoding   string         `json:"encoding"`
	Audio      string         `json:"audio"` // Base64-encoded audio
	Alignment  map[string]any `json:"alignment,omitempty"`
}
