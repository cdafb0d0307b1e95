package protocol

import "testing"

func TestEventAliasesShareCanonicalValue(t *testing.T) {
	pairs := map[EventType]EventType{
		EventStartTask:    EventStartConnection,
		EventFinishTask:   EventFinishConnection,
		EventTaskStarted:  EventConnectionStarted,
		EventTaskFailed:   EventConnectionFailed,
		EventTaskFinished: EventConnectionFinished,
		EventChargeData:   EventUsageResponse,
	}
	for alias, canonical := range pairs {
		if alias != canonical {
			t.Fatalf("alias %d != canonical %d", alias, canonical)
		}
		if alias.String() != canonical.String() {
			t.Fatalf("alias renders %q, canonical %q", alias, canonical)
		}
	}
	if EventStartTask.String() != "StartConnection" {
		t.Fatalf("alias should render canonical name, got %q", EventStartTask)
	}
}

func TestEventGroups(t *testing.T) {
	cases := []struct {
		event    EventType
		group    EventGroup
		upstream bool
	}{
		{EventNone, GroupNone, false},
		{EventStartConnection, GroupConnection, true},
		{EventConnectionFailed, GroupConnection, false},
		{EventFinishSession, GroupSession, true},
		{EventUsageResponse, GroupSession, false},
		{EventUpdateConfig, GroupGeneral, true},
		{EventAudioMuted, GroupGeneral, false},
		{EventSayHello, GroupTTS, true},
		{EventTTSEnded, GroupTTS, false},
		{EventPodcastRoundEnd, GroupTTS, false},
		{EventASRResponse, GroupASR, false},
		{EventChatTTSText, GroupDialogue, true},
		{EventChatEnded, GroupDialogue, false},
		{EventTranslationSubtitleEnd, GroupSubtitle, false},
		{EventType(420), GroupUnknown, false},
	}
	for _, tc := range cases {
		if got := tc.event.Group(); got != tc.group {
			t.Fatalf("%s group = %s, want %s", tc.event, got, tc.group)
		}
		if got := tc.event.Upstream(); got != tc.upstream {
			t.Fatalf("%s upstream = %v, want %v", tc.event, got, tc.upstream)
		}
	}
}

func TestUnknownEventString(t *testing.T) {
	e := EventType(999)
	if e.Known() {
		t.Fatalf("999 should not be known")
	}
	if got := e.String(); got != "EventType(999)" {
		t.Fatalf("string = %q", got)
	}
}
