package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/room4-2/speechwire/logx"
	"github.com/room4-2/speechwire/metrics"
	"github.com/room4-2/speechwire/protocol"
	"github.com/room4-2/speechwire/transport"
)

var emptyObject = []byte("{}")

// Driver sends protocol frames over one transport. Each primitive builds a
// single frame and writes it; none of them wait for a reply.
type Driver struct {
	t   transport.Transport
	log zerolog.Logger
}

// NewDriver wraps t. The driver does not own t; closing it is up to the caller.
func NewDriver(t transport.Transport, log zerolog.Logger) *Driver {
	return &Driver{t: t, log: log}
}

// NewDefaultDriver uses the package logger.
func NewDefaultDriver(t transport.Transport) *Driver {
	return NewDriver(t, logx.With("driver"))
}

// Send encodes f and writes it as one message.
func (d *Driver) Send(ctx context.Context, f protocol.Frame) error {
	data, err := protocol.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.Type, err)
	}
	if err := d.t.SendMessage(ctx, data); err != nil {
		return err
	}
	metrics.RecordFrame("out", f.Type.String())
	d.log.Debug().Stringer("frame", f).Msg("sent")
	return nil
}

// Receive reads and decodes one complete frame.
func (d *Driver) Receive(ctx context.Context) (protocol.Frame, error) {
	data, err := d.t.ReceiveMessage(ctx)
	if err != nil {
		return protocol.Frame{}, err
	}
	f, err := protocol.Unmarshal(data)
	if err != nil {
		return protocol.Frame{}, err
	}
	metrics.RecordFrame("in", f.Type.String())
	d.log.Debug().Stringer("frame", f).Msg("received")
	return f, nil
}

// WaitForEvent receives the next frame and requires it to have type t and
// event e. Any other frame is reported as an *UnexpectedFrameError.
func (d *Driver) WaitForEvent(ctx context.Context, t protocol.MsgType, e protocol.EventType) (protocol.Frame, error) {
	f, err := d.Receive(ctx)
	if err != nil {
		return protocol.Frame{}, err
	}
	if f.Type != t || f.Event != e {
		return protocol.Frame{}, &UnexpectedFrameError{WantType: t, WantEvent: e, Frame: f}
	}
	return f, nil
}

func (d *Driver) sendEvent(ctx context.Context, e protocol.EventType, sessionID string, payload []byte) error {
	f := protocol.NewFrame(protocol.MsgTypeFullClientRequest, protocol.FlagWithEvent)
	f.Event = e
	f.SessionID = sessionID
	if payload != nil {
		f.Payload = payload
	}
	return d.Send(ctx, f)
}

func (d *Driver) StartConnection(ctx context.Context) error {
	return d.sendEvent(ctx, protocol.EventStartConnection, "", emptyObject)
}

func (d *Driver) FinishConnection(ctx context.Context) error {
	return d.sendEvent(ctx, protocol.EventFinishConnection, "", emptyObject)
}

func (d *Driver) StartSession(ctx context.Context, sessionID string, payload []byte) error {
	return d.sendEvent(ctx, protocol.EventStartSession, sessionID, payload)
}

func (d *Driver) TaskRequest(ctx context.Context, sessionID string, payload []byte) error {
	return d.sendEvent(ctx, protocol.EventTaskRequest, sessionID, payload)
}

func (d *Driver) FinishSession(ctx context.Context, sessionID string) error {
	return d.sendEvent(ctx, protocol.EventFinishSession, sessionID, emptyObject)
}

// FullClientRequest sends the one-shot synthesis request: no event, no
// sequence.
func (d *Driver) FullClientRequest(ctx context.Context, payload []byte) error {
	f := protocol.NewFrame(protocol.MsgTypeFullClientRequest, protocol.FlagNoSeq)
	f.Payload = payload
	return d.Send(ctx, f)
}

// AudioOnlyClient streams one chunk of client audio.
func (d *Driver) AudioOnlyClient(ctx context.Context, payload []byte, flag protocol.MsgTypeFlag) error {
	f := protocol.NewFrame(protocol.MsgTypeAudioOnlyClient, flag)
	f.Payload = payload
	return d.Send(ctx, f)
}
