package synth

import (
	"strings"

	"github.com/google/uuid"

	"github.com/room4-2/speechwire/messages"
)

// Defaults applied to empty Options fields.
const (
	DefaultEndpoint     = "wss://openspeech.bytedance.com/api/v1/tts/ws_binary"
	DefaultSpeedRatio   = "1.0"
	DefaultEmotionScale = "1.0"
	DefaultEncoding     = "mp3"

	clusterClonedVoice = "volcano_icl"
	clusterStandard    = "volcano_tts"
)

// Options describe one synthesis request.
type Options struct {
	AppID       string
	AccessToken string
	// Cluster overrides the cluster derived from VoiceType.
	Cluster  string
	Endpoint string

	VoiceType     string
	Text          string
	SpeedRatio    string
	Emotion       string
	EnableEmotion bool
	EmotionScale  string
	Encoding      string
}

// ClusterName returns the explicit cluster, or the one implied by the voice:
// cloned voices ("S_" prefix) live in volcano_icl, the rest in volcano_tts.
func (o Options) ClusterName() string {
	if o.Cluster != "" {
		return o.Cluster
	}
	if strings.HasPrefix(o.VoiceType, "S_") {
		return clusterClonedVoice
	}
	return clusterStandard
}

func (o Options) withDefaults() Options {
	if o.Endpoint == "" {
		o.Endpoint = DefaultEndpoint
	}
	if o.SpeedRatio == "" {
		o.SpeedRatio = DefaultSpeedRatio
	}
	if o.EmotionScale == "" {
		o.EmotionScale = DefaultEmotionScale
	}
	if o.Encoding == "" {
		o.Encoding = DefaultEncoding
	}
	return o
}

// FromRequest overlays a client request on base, which carries credentials
// and server defaults.
func FromRequest(base Options, r messages.SynthesizeRequest) Options {
	o := base
	o.Text = r.Text
	o.VoiceType = r.Voice
	o.EnableEmotion = r.EnableEmotion
	if r.Encoding != "" {
		o.Encoding = r.Encoding
	}
	if r.SpeedRatio != "" {
		o.SpeedRatio = r.SpeedRatio
	}
	if r.Emotion != "" {
		o.Emotion = r.Emotion
	}
	if r.EmotionScale != "" {
		o.EmotionScale = r.EmotionScale
	}
	if r.Cluster != "" {
		o.Cluster = r.Cluster
	}
	return o
}

// Request builds the wire request with fresh user and request ids.
func (o Options) Request() (*messages.TTSRequest, error) {
	o = o.withDefaults()
	extra, err := messages.EncodeExtraParam(messages.TTSExtraParam{DisableMarkdownFilter: false})
	if err != nil {
		return nil, err
	}
	return &messages.TTSRequest{
		App: messages.TTSApp{
			AppID:   o.AppID,
			Token:   o.AccessToken,
			Cluster: o.ClusterName(),
		},
		User: messages.TTSUser{UID: uuid.New().String()},
		Audio: messages.TTSAudio{
			VoiceType:     o.VoiceType,
			Encoding:      o.Encoding,
			SpeedRatio:    o.SpeedRatio,
			Emotion:       o.Emotion,
			EnableEmotion: o.EnableEmotion,
			EmotionScale:  o.EmotionScale,
		},
		Request: messages.TTSRequestBody{
			ReqID:         uuid.New().String(),
			Text:          o.Text,
			Operation:     messages.OperationQuery,
			WithTimestamp: "1",
			ExtraParam:    extra,
		},
	}, nil
}
