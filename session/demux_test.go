package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/room4-2/speechwire/transport"
)

func TestDemuxCollectsAudioAndText(t *testing.T) {
	p1 := `{"frontend":"{\"words\":[]}"}`
	a1, a2 := []byte{0x01, 0x02}, []byte{0x03}
	ft := newFakeTransport(t,
		frontEnd(p1),
		audio(1, a1),
		audio(-1, a2),
		audio(2, []byte{0xff}), // never read
	)

	d := NewDemuxer(ft)
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !bytes.Equal(d.Audio(), []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("audio = %v", d.Audio())
	}
	if d.Text() != p1 || d.LastText() != p1 {
		t.Fatalf("text = %q last = %q", d.Text(), d.LastText())
	}
	if d.State() != StateComplete {
		t.Fatalf("state = %s", d.State())
	}
	if d.Frames() != 3 || ft.remaining() != 1 {
		t.Fatalf("frames = %d remaining = %d", d.Frames(), ft.remaining())
	}
}

func TestDemuxErrorFrameIsProtocolViolation(t *testing.T) {
	ft := newFakeTransport(t, errorFrame(45000001, "quota exceeded"), audio(-1, []byte{1}))

	d := NewDemuxer(ft)
	err := d.Run(context.Background())
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
	if errors.Is(err, ErrEmptyResult) {
		t.Fatalf("protocol violation must not match ErrEmptyResult")
	}
	var pe *ProtocolError
	if !errors.As(err, &pe) || pe.Frame.ErrorCode != 45000001 {
		t.Fatalf("protocol error = %+v", pe)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("error should carry the frame rendering: %v", err)
	}
	if len(d.Audio()) != 0 || d.State() != StateFailed || d.Frames() != 1 {
		t.Fatalf("audio = %v state = %s frames = %d", d.Audio(), d.State(), d.Frames())
	}
}

func TestDemuxEmptyAudioIsEmptyResult(t *testing.T) {
	ft := newFakeTransport(t, audio(-1, nil))

	d := NewDemuxer(ft)
	err := d.Run(context.Background())
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("empty result must not match ErrProtocolViolation")
	}
	if d.Frames() != 1 || d.State() != StateFailed {
		t.Fatalf("frames = %d state = %s", d.Frames(), d.State())
	}
}

func TestDemuxKeepsTextSegmentsInOrder(t *testing.T) {
	ft := newFakeTransport(t, frontEnd(`{"a":1}`), frontEnd(""), frontEnd(`{"b":2}`), audio(-1, []byte{9}))

	d := NewDemuxer(ft)
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if d.Text() != `{"a":1}{"b":2}` {
		t.Fatalf("text = %q", d.Text())
	}
	if d.LastText() != `{"b":2}` {
		t.Fatalf("last = %q", d.LastText())
	}
}

func TestDemuxHooksSeeChunks(t *testing.T) {
	ft := newFakeTransport(t, frontEnd("t1"), audio(1, []byte{1}), audio(-2, []byte{2, 3}))

	var chunks [][]byte
	var texts []string
	d := NewDemuxer(ft,
		OnAudio(func(b []byte) { chunks = append(chunks, b) }),
		OnText(func(s string) { texts = append(texts, s) }),
	)
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(chunks) != 2 || len(texts) != 1 || texts[0] != "t1" {
		t.Fatalf("chunks = %v texts = %v", chunks, texts)
	}
}

func TestDemuxMaxAudio(t *testing.T) {
	ft := newFakeTransport(t, audio(1, []byte{1, 2, 3}), audio(-1, []byte{4, 5}))

	d := NewDemuxer(ft, WithMaxAudio(4))
	if err := d.Run(context.Background()); !errors.Is(err, ErrBufferFull) {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
	if d.State() != StateFailed {
		t.Fatalf("state = %s", d.State())
	}
}

func TestDemuxDeadlineAbortsHungStream(t *testing.T) {
	ft := newFakeTransport(t, audio(1, []byte{1}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	d := NewDemuxer(ft)
	err := d.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("run was not bounded by the deadline")
	}
	if d.State() != StateFailed {
		t.Fatalf("state = %s", d.State())
	}
}

func TestDemuxRemoteCloseSurfaces(t *testing.T) {
	ft := newFakeTransport(t, audio(1, []byte{1}))
	ft.err = &transport.ClosedError{Code: 1008, Reason: "bad token"}

	d := NewDemuxer(ft)
	err := d.Run(context.Background())
	if !errors.Is(err, transport.ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestDemuxMalformedFrame(t *testing.T) {
	ft := &fakeTransport{queue: [][]byte{{0x11, 0xb0}}}

	d := NewDemuxer(ft)
	if err := d.Run(context.Background()); err == nil || errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected a format error, got %v", err)
	}
}
