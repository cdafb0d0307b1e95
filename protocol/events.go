package protocol

import "fmt"

// EventType tags the purpose of an event-bearing frame.
//
// Several names share one code. Aliases are plain constants with the
// canonical value, so a switch over EventType only ever lists canonical names.
type EventType int32

const (
	EventNone EventType = 0

	// 1 ~ 49 upstream connection events
	EventStartConnection  EventType = 1
	EventFinishConnection EventType = 2

	// 50 ~ 99 downstream connection events
	EventConnectionStarted  EventType = 50
	EventConnectionFailed   EventType = 51
	EventConnectionFinished EventType = 52

	// 100 ~ 149 upstream session events
	EventStartSession  EventType = 100
	EventCancelSession EventType = 101
	EventFinishSession EventType = 102

	// 150 ~ 199 downstream session events
	EventSessionStarted  EventType = 150
	EventSessionCanceled EventType = 151
	EventSessionFinished EventType = 152
	EventSessionFailed   EventType = 153
	EventUsageResponse   EventType = 154

	// 200 ~ 249 upstream general events
	EventTaskRequest  EventType = 200
	EventUpdateConfig EventType = 201

	// 250 ~ 299 downstream general events
	EventAudioMuted EventType = 250

	// 300 ~ 349 upstream TTS events
	EventSayHello EventType = 300

	// 350 ~ 399 downstream TTS events
	EventTTSSentenceStart     EventType = 350
	EventTTSSentenceEnd       EventType = 351
	EventTTSResponse          EventType = 352
	EventTTSEnded             EventType = 359
	EventPodcastRoundStart    EventType = 360
	EventPodcastRoundResponse EventType = 361
	EventPodcastRoundEnd      EventType = 362

	// 450 ~ 499 downstream ASR events
	EventASRInfo     EventType = 450
	EventASRResponse EventType = 451
	EventASREnded    EventType = 459

	// 500 ~ 549 upstream dialogue events
	EventChatTTSText EventType = 500

	// 550 ~ 599 downstream dialogue events
	EventChatResponse EventType = 550
	EventChatEnded    EventType = 559

	// 650 ~ 699 downstream subtitle events
	EventSourceSubtitleStart         EventType = 650
	EventSourceSubtitleResponse      EventType = 651
	EventSourceSubtitleEnd           EventType = 652
	EventTranslationSubtitleStart    EventType = 653
	EventTranslationSubtitleResponse EventType = 654
	EventTranslationSubtitleEnd      EventType = 655
)

// Aliases.
const (
	EventStartTask    = EventStartConnection
	EventFinishTask   = EventFinishConnection
	EventTaskStarted  = EventConnectionStarted
	EventTaskFailed   = EventConnectionFailed
	EventTaskFinished = EventConnectionFinished
	EventChargeData   = EventUsageResponse
)

var eventNames = map[EventType]string{
	EventNone:                        "None",
	EventStartConnection:             "StartConnection",
	EventFinishConnection:            "FinishConnection",
	EventConnectionStarted:           "ConnectionStarted",
	EventConnectionFailed:            "ConnectionFailed",
	EventConnectionFinished:          "ConnectionFinished",
	EventStartSession:                "StartSession",
	EventCancelSession:               "CancelSession",
	EventFinishSession:               "FinishSession",
	EventSessionStarted:              "SessionStarted",
	EventSessionCanceled:             "SessionCanceled",
	EventSessionFinished:             "SessionFinished",
	EventSessionFailed:               "SessionFailed",
	EventUsageResponse:               "UsageResponse",
	EventTaskRequest:                 "TaskRequest",
	EventUpdateConfig:                "UpdateConfig",
	EventAudioMuted:                  "AudioMuted",
	EventSayHello:                    "SayHello",
	EventTTSSentenceStart:            "TTSSentenceStart",
	EventTTSSentenceEnd:              "TTSSentenceEnd",
	EventTTSResponse:                 "TTSResponse",
	EventTTSEnded:                    "TTSEnded",
	EventPodcastRoundStart:           "PodcastRoundStart",
	EventPodcastRoundResponse:        "PodcastRoundResponse",
	EventPodcastRoundEnd:             "PodcastRoundEnd",
	EventASRInfo:                     "ASRInfo",
	EventASRResponse:                 "ASRResponse",
	EventASREnded:                    "ASREnded",
	EventChatTTSText:                 "ChatTTSText",
	EventChatResponse:                "ChatResponse",
	EventChatEnded:                   "ChatEnded",
	EventSourceSubtitleStart:         "SourceSubtitleStart",
	EventSourceSubtitleResponse:      "SourceSubtitleResponse",
	EventSourceSubtitleEnd:           "SourceSubtitleEnd",
	EventTranslationSubtitleStart:    "TranslationSubtitleStart",
	EventTranslationSubtitleResponse: "TranslationSubtitleResponse",
	EventTranslationSubtitleEnd:      "TranslationSubtitleEnd",
}

func (e EventType) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("EventType(%d)", int32(e))
}

// Known reports whether e is part of the catalog.
func (e EventType) Known() bool {
	_, ok := eventNames[e]
	return ok
}

// EventGroup is the numeric range an event code belongs to.
type EventGroup uint8

const (
	GroupUnknown EventGroup = iota
	GroupNone
	GroupConnection
	GroupSession
	GroupGeneral
	GroupTTS
	GroupASR
	GroupDialogue
	GroupSubtitle
)

func (g EventGroup) String() string {
	switch g {
	case GroupNone:
		return "none"
	case GroupConnection:
		return "connection"
	case GroupSession:
		return "session"
	case GroupGeneral:
		return "general"
	case GroupTTS:
		return "tts"
	case GroupASR:
		return "asr"
	case GroupDialogue:
		return "dialogue"
	case GroupSubtitle:
		return "subtitle"
	default:
		return "unknown"
	}
}

// Group returns the range group of e, derived from its numeric code.
func (e EventType) Group() EventGroup {
	switch {
	case e == EventNone:
		return GroupNone
	case e >= 1 && e <= 99:
		return GroupConnection
	case e >= 100 && e <= 199:
		return GroupSession
	case e >= 200 && e <= 299:
		return GroupGeneral
	case e >= 300 && e <= 399:
		return GroupTTS
	case e >= 450 && e <= 499:
		return GroupASR
	case e >= 500 && e <= 599:
		return GroupDialogue
	case e >= 650 && e <= 699:
		return GroupSubtitle
	default:
		return GroupUnknown
	}
}

// Upstream reports whether e sits in a client-sent range. Each group
// reserves the lower fifty codes of its hundred for client events.
func (e EventType) Upstream() bool {
	switch e.Group() {
	case GroupNone, GroupUnknown, GroupASR, GroupSubtitle:
		return false
	}
	return e%100 < 50
}

// omitsSessionOnEncode lists the connection lifecycle events written
// without a session-id field.
func omitsSessionOnEncode(e EventType) bool {
	switch e {
	case EventStartConnection, EventFinishConnection,
		EventConnectionStarted, EventConnectionFailed:
		return true
	}
	return false
}

// omitsSessionOnDecode extends the encode list with ConnectionFinished.
func omitsSessionOnDecode(e EventType) bool {
	return omitsSessionOnEncode(e) || e == EventConnectionFinished
}

// carriesConnectID lists the connection acknowledgments that carry a connect id.
func carriesConnectID(e EventType) bool {
	switch e {
	case EventConnectionStarted, EventConnectionFailed, EventConnectionFinished:
		return true
	}
	return false
}
