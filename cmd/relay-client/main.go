// Command relay-client exercises the /ws relay: it sends one synthesize
// request, prints streamed text and writes the streamed audio to a file.
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/room4-2/speechwire/logx"
	"github.com/room4-2/speechwire/messages"
)

// serverMessage mirrors messages.ServerMessage with a deferred payload.
type serverMessage struct {
	Type       string          `json:"type"`
	ExchangeID string          `json:"exchangeId,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// AudioPlayer streams audio via sox
type AudioPlayer struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	mu     sync.Mutex
	closed bool
}

func NewAudioPlayer(encoding string) *AudioPlayer {
	cmd := exec.Command("sox", "-t", encoding, "-", "-d")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		logx.Log.Warn().Err(err).Msg("sox stdin error")
		return nil
	}

	if err := cmd.Start(); err != nil {
		logx.Log.Warn().Err(err).Msg("sox start error")
		return nil
	}

	return &AudioPlayer{cmd: cmd, stdin: stdin}
}

func (p *AudioPlayer) Play(audioData []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.stdin == nil {
		return
	}
	_, _ = p.stdin.Write(audioData)
}

func (p *AudioPlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.stdin != nil {
		_ = p.stdin.Close()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Wait()
	}
}

// cancelGrace bounds the wait for the relay's reply to a cancel request.
const cancelGrace = 5 * time.Second

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	os.Exit(run(os.Args[1:], interrupt))
}

// run returns the process exit code so deferred cleanup always executes.
func run(args []string, interrupt <-chan os.Signal) int {
	fs := flag.NewFlagSet("relay-client", flag.ContinueOnError)
	serverURL := fs.String("server", "ws://localhost:8080/ws", "relay WebSocket URL")
	text := fs.String("text", "Hello from the relay client.", "text to synthesize")
	voice := fs.String("voice", "BV700_streaming", "voice type")
	encoding := fs.String("encoding", "mp3", "audio encoding")
	outFile := fs.String("out", "relay-output.mp3", "file receiving the streamed audio")
	play := fs.Bool("play", false, "also play audio through sox")
	timeout := fs.Duration("timeout", 90*time.Second, "how long to wait for the exchange")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := logx.With("relay-client")
	log.Info().Str("server", *serverURL).Msg("connecting")

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect")
		return 1
	}
	defer conn.Close()

	out, err := os.Create(*outFile)
	if err != nil {
		log.Error().Err(err).Msg("failed to create output file")
		return 1
	}
	defer out.Close()

	var player *AudioPlayer
	if *play {
		if player = NewAudioPlayer(*encoding); player == nil {
			log.Error().Msg("failed to create audio player (is sox installed?)")
			return 1
		}
		defer player.Close()
	}

	done := make(chan struct{})
	succeeded := false

	// Read responses from server
	go func() {
		defer close(done)
		total := 0
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Warn().Err(err).Msg("read error")
				return
			}

			var msg serverMessage
			if err := sonic.Unmarshal(message, &msg); err != nil {
				log.Warn().Err(err).Msg("parse error")
				continue
			}

			switch msg.Type {
			case messages.TypeAudio:
				var payload messages.AudioResponsePayload
				_ = sonic.Unmarshal(msg.Payload, &payload)
				audioBytes, err := base64.StdEncoding.DecodeString(payload.Data)
				if err != nil {
					continue
				}
				total += len(audioBytes)
				_, _ = out.Write(audioBytes)
				if player != nil {
					player.Play(audioBytes)
				}

			case messages.TypeText:
				var payload messages.TextResponsePayload
				_ = sonic.Unmarshal(msg.Payload, &payload)
				fmt.Println(payload.Text)

			case messages.TypeStatus:
				var payload messages.StatusPayload
				_ = sonic.Unmarshal(msg.Payload, &payload)
				log.Info().Str("exchange", msg.ExchangeID).Str("status", payload.Status).Msg("status")
				if payload.Status == messages.StatusComplete {
					log.Info().Int("audio_bytes", total).Str("file", *outFile).Msg("exchange complete")
					succeeded = true
					return
				}

			case messages.TypeError:
				log.Error().Str("exchange", msg.ExchangeID).RawJSON("payload", msg.Payload).Msg("exchange failed")
				return
			}
		}
	}()

	req, err := sonic.Marshal(map[string]any{
		"type": messages.TypeSynthesize,
		"payload": messages.SynthesizeRequest{
			Text:     *text,
			Voice:    *voice,
			Encoding: *encoding,
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("encode request")
		return 1
	}
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		log.Error().Err(err).Msg("send request")
		return 1
	}

	// Wait for response or interrupt
	select {
	case <-done:
	case <-interrupt:
		log.Info().Msg("interrupted, cancelling")
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"cancel"}`))
		select {
		case <-done:
		case <-time.After(cancelGrace):
			log.Warn().Msg("no reply to cancel")
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return 1
	case <-time.After(*timeout):
		log.Warn().Msg("timeout waiting for response")
		return 1
	}

	if !succeeded {
		return 1
	}
	return 0
}
