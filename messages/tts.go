package messages

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// TTSRequest is the JSON payload of the one-shot FullClientRequest frame.
type TTSRequest struct {
	App     TTSApp         `json:"app"`
	User    TTSUser        `json:"user"`
	Audio   TTSAudio       `json:"audio"`
	Request TTSRequestBody `json:"request"`
}

type TTSApp struct {
	AppID   string `json:"appid"`
	Token   string `json:"token"`
	Cluster string `json:"cluster"`
}

type TTSUser struct {
	UID string `json:"uid"`
}

type TTSAudio struct {
	VoiceType     string `json:"voice_type"`
	Encoding      string `json:"encoding"`
	SpeedRatio    string `json:"speed_ratio"`
	Emotion       string `json:"emotion"`
	EnableEmotion bool   `json:"enable_emotion"`
	EmotionScale  string `json:"emotion_scale"`
}

type TTSRequestBody struct {
	ReqID         string `json:"reqid"`
	Text          string `json:"text"`
	Operation     string `json:"operation"`
	WithTimestamp string `json:"with_timestamp"`
	// ExtraParam is itself a JSON document encoded as a string.
	ExtraParam string `json:"extra_param,omitempty"`
}

// TTSExtraParam is serialized into TTSRequestBody.ExtraParam.
type TTSExtraParam struct {
	DisableMarkdownFilter bool `json:"disable_markdown_filter"`
}

// OperationQuery requests a single non-streaming synthesis.
const OperationQuery = "query"

// EncodeExtraParam serializes p for TTSRequestBody.ExtraParam.
func EncodeExtraParam(p TTSExtraParam) (string, error) {
	return sonic.MarshalString(p)
}

// Validate reports the first missing field.
func (r *TTSRequest) Validate() error {
	switch {
	case r.App.AppID == "":
		return missing("app.appid")
	case r.App.Token == "":
		return missing("app.token")
	case r.App.Cluster == "":
		return missing("app.cluster")
	case r.User.UID == "":
		return missing("user.uid")
	case r.Audio.VoiceType == "":
		return missing("audio.voice_type")
	case r.Audio.Encoding == "":
		return missing("audio.encoding")
	case r.Request.ReqID == "":
		return missing("request.reqid")
	case r.Request.Text == "":
		return missing("request.text")
	case r.Request.Operation == "":
		return missing("request.operation")
	}
	return nil
}

// Marshal validates r and encodes it.
func (r *TTSRequest) Marshal() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	data, err := sonic.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode tts request: %w", err)
	}
	return data, nil
}
