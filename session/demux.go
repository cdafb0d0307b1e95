package session

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/room4-2/speechwire/logx"
	"github.com/room4-2/speechwire/metrics"
	"github.com/room4-2/speechwire/protocol"
	"github.com/room4-2/speechwire/transport"
)

// State is the demultiplexer's position in one exchange.
type State int

const (
	StateListening State = iota
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DemuxOption configures a Demuxer.
type DemuxOption func(*Demuxer)

// WithMaxAudio bounds the audio accumulator. Exceeding it fails the exchange
// with ErrBufferFull.
func WithMaxAudio(n int) DemuxOption {
	return func(d *Demuxer) { d.audio = NewAudioBuffer(n) }
}

// WithLogger replaces the package logger.
func WithLogger(log zerolog.Logger) DemuxOption {
	return func(d *Demuxer) { d.log = log }
}

// OnAudio is called with every audio chunk as it is accumulated.
func OnAudio(fn func([]byte)) DemuxOption {
	return func(d *Demuxer) { d.onAudio = fn }
}

// OnText is called with every front-end result payload.
func OnText(fn func(string)) DemuxOption {
	return func(d *Demuxer) { d.onText = fn }
}

// Demuxer splits one synthesis response stream into audio and front-end
// text. A Demuxer serves a single exchange and is not reusable.
type Demuxer struct {
	driver *Driver
	log    zerolog.Logger

	audio  *AudioBuffer
	text   TextBuffer
	state  State
	frames int

	onAudio func([]byte)
	onText  func(string)
}

// NewDemuxer reads responses from t.
func NewDemuxer(t transport.Transport, opts ...DemuxOption) *Demuxer {
	d := &Demuxer{
		log:   logx.With("demux"),
		audio: NewAudioBuffer(0),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.driver = NewDriver(t, d.log)
	return d
}

// Run receives frames until the end-of-stream audio frame arrives, ctx is
// done, or a frame outside the response vocabulary shows up. It returns
// ErrEmptyResult when the stream ended cleanly but carried no audio.
func (d *Demuxer) Run(ctx context.Context) error {
	for d.state == StateListening {
		if err := ctx.Err(); err != nil {
			return d.fail(err)
		}
		f, err := d.driver.Receive(ctx)
		if err != nil {
			return d.fail(err)
		}
		d.frames++

		switch f.Type {
		case protocol.MsgTypeFrontEndResultServer:
			if len(f.Payload) > 0 {
				s := string(f.Payload)
				d.text.Append(s)
				if d.onText != nil {
					d.onText(s)
				}
			}
		case protocol.MsgTypeAudioOnlyServer:
			if len(f.Payload) > 0 {
				if err := d.audio.Append(f.Payload); err != nil {
					return d.fail(err)
				}
				metrics.RecordAudioBytes(len(f.Payload))
				if d.onAudio != nil {
					d.onAudio(f.Payload)
				}
			}
			if f.Last() {
				d.state = StateComplete
			}
		default:
			return d.fail(&ProtocolError{Frame: f})
		}
	}

	if d.audio.IsEmpty() {
		return d.fail(ErrEmptyResult)
	}
	d.log.Debug().
		Int("frames", d.frames).
		Int("audio_bytes", d.audio.Size()).
		Int("audio_chunks", d.audio.ChunkCount()).
		Msg("response complete")
	return nil
}

func (d *Demuxer) fail(err error) error {
	d.state = StateFailed
	d.log.Warn().Err(err).Int("frames", d.frames).Msg("exchange failed")
	return err
}

// Audio returns the accumulated audio.
func (d *Demuxer) Audio() []byte { return d.audio.Bytes() }

// Text returns every front-end result payload concatenated.
func (d *Demuxer) Text() string { return d.text.Text() }

// LastText returns the most recent front-end result payload.
func (d *Demuxer) LastText() string { return d.text.Last() }

func (d *Demuxer) State() State { return d.state }

// Frames returns how many frames Run has consumed.
func (d *Demuxer) Frames() int { return d.frames }
