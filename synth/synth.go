// Package synth runs one-shot speech synthesis exchanges.
package synth

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/room4-2/speechwire/logx"
	"github.com/room4-2/speechwire/session"
	"github.com/room4-2/speechwire/transport"
)

// DefaultExchangeTimeout bounds a whole exchange when Config leaves it unset.
const DefaultExchangeTimeout = 60 * time.Second

// Config tunes a Synthesizer.
type Config struct {
	Transport       transport.Options
	ExchangeTimeout time.Duration
	// MaxAudio caps the audio of one exchange; zero means unbounded.
	MaxAudio int
}

// Result is the outcome of a successful exchange.
type Result struct {
	Audio    []byte
	Encoding string
	// Text holds every front-end result payload in arrival order.
	Text string
	// Alignment is the last front-end payload with its nested "frontend"
	// document expanded. Nil when the service sent none.
	Alignment map[string]any
}

// Hooks observe chunks while an exchange is in progress.
type Hooks struct {
	OnAudio func([]byte)
	OnText  func(string)
}

// Synthesizer dials the speech service once per request.
type Synthesizer struct {
	cfg Config
	log zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Synthesizer {
	if cfg.ExchangeTimeout <= 0 {
		cfg.ExchangeTimeout = DefaultExchangeTimeout
	}
	return &Synthesizer{cfg: cfg, log: log}
}

// NewDefault uses default transport options and the package logger.
func NewDefault() *Synthesizer {
	return New(Config{Transport: transport.DefaultOptions()}, logx.With("synth"))
}

// Synthesize sends opts as a single request and collects the full response.
func (s *Synthesizer) Synthesize(ctx context.Context, opts Options) (*Result, error) {
	return s.Stream(ctx, opts, Hooks{})
}

// Stream is Synthesize with chunk callbacks. The exchange is bounded by the
// configured timeout as well as ctx.
func (s *Synthesizer) Stream(ctx context.Context, opts Options, hooks Hooks) (*Result, error) {
	opts = opts.withDefaults()
	req, err := opts.Request()
	if err != nil {
		return nil, err
	}
	payload, err := req.Marshal()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ExchangeTimeout)
	defer cancel()

	log := s.log.With().Str("reqid", req.Request.ReqID).Str("voice", opts.VoiceType).Logger()
	start := time.Now()

	conn, err := transport.Dial(ctx, opts.Endpoint, transport.BearerHeader(opts.AccessToken), s.cfg.Transport)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := session.NewDriver(conn, log).FullClientRequest(ctx, payload); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	demuxOpts := []session.DemuxOption{session.WithLogger(log), session.WithMaxAudio(s.cfg.MaxAudio)}
	if hooks.OnAudio != nil {
		demuxOpts = append(demuxOpts, session.OnAudio(hooks.OnAudio))
	}
	if hooks.OnText != nil {
		demuxOpts = append(demuxOpts, session.OnText(hooks.OnText))
	}
	demux := session.NewDemuxer(conn, demuxOpts...)
	if err := demux.Run(ctx); err != nil {
		return nil, err
	}

	alignment, err := ParseAlignment(demux.LastText())
	if err != nil {
		log.Warn().Err(err).Msg("alignment payload is not valid JSON")
	}

	log.Info().
		Int("audio_bytes", len(demux.Audio())).
		Int("frames", demux.Frames()).
		Dur("elapsed", time.Since(start)).
		Msg("synthesis complete")

	return &Result{
		Audio:     demux.Audio(),
		Encoding:  opts.Encoding,
		Text:      demux.Text(),
		Alignment: alignment,
	}, nil
}

// ParseAlignment decodes a front-end result payload. The service nests the
// "frontend" document as a JSON string; it is decoded in place.
func ParseAlignment(text string) (map[string]any, error) {
	if text == "" {
		return nil, nil
	}
	var doc map[string]any
	if err := sonic.UnmarshalString(text, &doc); err != nil {
		return nil, fmt.Errorf("parse alignment: %w", err)
	}
	if nested, ok := doc["frontend"].(string); ok && nested != "" {
		var frontend any
		if err := sonic.UnmarshalString(nested, &frontend); err != nil {
			return nil, fmt.Errorf("parse alignment frontend: %w", err)
		}
		doc["frontend"] = frontend
	}
	return doc, nil
}
