package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/room4-2/speechwire/messages"
	"github.com/room4-2/speechwire/synth"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
	relayReadLimit  = 512 * 1024
)

// relayClient is one /ws connection. It runs at most one exchange at a time
// and streams its chunks back as JSON messages.
type relayClient struct {
	srv  *Server
	conn *websocket.Conn
	log  zerolog.Logger

	writeChan chan *messages.ServerMessage
	// sendMu guards closed; senders hold it shared while blocked on writeChan.
	sendMu sync.RWMutex
	closed bool

	mu      sync.Mutex
	running context.CancelFunc
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade HTTP to WebSocket
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(relayReadLimit)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	rc := &relayClient{
		srv:       s,
		conn:      conn,
		log:       s.log.With().Str("remote", r.RemoteAddr).Logger(),
		writeChan: make(chan *messages.ServerMessage, writeBufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	rc.log.Debug().Msg("relay client connected")

	go rc.writePump()
	rc.handleClientMessages()
	rc.log.Debug().Msg("relay client disconnected")
}

// writePump handles all outgoing messages in a single goroutine
func (rc *relayClient) writePump() {
	defer func() {
		// Send close message before exiting
		_ = rc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = rc.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		_ = rc.conn.Close()
	}()

	for msg := range rc.writeChan {
		data, err := sonic.Marshal(msg)
		if err != nil {
			rc.log.Error().Err(err).Msg("encode relay message")
			continue
		}
		_ = rc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := rc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			rc.cancel()
			_ = rc.conn.Close()
			// Drain so producers never block on a dead client.
			for range rc.writeChan {
			}
			return
		}
	}
}

// queueMessage hands msg to the write pump, waiting while the queue is full.
// Messages are only discarded once the client connection is going away; a
// client that stops reading is cut off by the pump's write timeout.
func (rc *relayClient) queueMessage(msg *messages.ServerMessage) {
	rc.sendMu.RLock()
	defer rc.sendMu.RUnlock()
	if rc.closed {
		return
	}
	select {
	case rc.writeChan <- msg:
	case <-rc.ctx.Done():
		rc.log.Debug().Str("type", msg.Type).Msg("relay client gone, discarding message")
	}
}

// close cancels any running exchange, waits for it, then stops the writer.
func (rc *relayClient) close() {
	rc.cancel()
	rc.wg.Wait()

	rc.sendMu.Lock()
	defer rc.sendMu.Unlock()
	if rc.closed {
		return
	}
	rc.closed = true
	close(rc.writeChan)
}

func (rc *relayClient) handleClientMessages() {
	defer rc.close()

	for {
		messageType, message, err := rc.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			rc.queueMessage(messages.NewErrorMessage("", messages.ErrCodeInvalidMessage, "expected a JSON text message"))
			continue
		}

		var clientMsg messages.ClientMessage
		if err := sonic.Unmarshal(message, &clientMsg); err != nil {
			rc.queueMessage(messages.NewErrorMessage("", messages.ErrCodeInvalidMessage, "Invalid message format"))
			continue
		}
		rc.processClientMessage(&clientMsg)
	}
}

func (rc *relayClient) processClientMessage(msg *messages.ClientMessage) {
	switch msg.Type {
	case messages.TypeSynthesize:
		var req messages.SynthesizeRequest
		if err := sonic.Unmarshal(msg.Payload, &req); err != nil {
			rc.queueMessage(messages.NewErrorMessage("", messages.ErrCodeInvalidMessage, "Invalid synthesize payload"))
			return
		}
		if err := req.Validate(); err != nil {
			rc.queueMessage(messages.NewErrorMessage("", messages.ErrCodeInvalidMessage, err.Error()))
			return
		}
		rc.startExchange(req)

	case messages.TypeCancel:
		rc.mu.Lock()
		if rc.running != nil {
			rc.running()
		}
		rc.mu.Unlock()

	case messages.TypePing:
		rc.queueMessage(messages.NewStatusMessage("", messages.StatusPong, ""))

	default:
		rc.queueMessage(messages.NewErrorMessage("", messages.ErrCodeInvalidMessage, "Unknown message type: "+msg.Type))
	}
}

func (rc *relayClient) startExchange(req messages.SynthesizeRequest) {
	rc.mu.Lock()
	if rc.running != nil {
		rc.mu.Unlock()
		rc.queueMessage(messages.NewErrorMessage("", messages.ErrCodeRateLimited, "an exchange is already running on this connection"))
		return
	}
	ctx, cancel := context.WithCancel(rc.ctx)
	rc.running = cancel
	rc.wg.Add(1)
	rc.mu.Unlock()

	go func() {
		defer rc.wg.Done()
		defer func() {
			rc.mu.Lock()
			rc.running = nil
			rc.mu.Unlock()
			cancel()
		}()

		id, res, err := rc.srv.runExchange(ctx, req, func(id string) synth.Hooks {
			rc.queueMessage(messages.NewStatusMessage(id, messages.StatusStarted, ""))
			encoding := synth.FromRequest(rc.srv.base, req).Encoding
			if encoding == "" {
				encoding = synth.DefaultEncoding
			}
			return synth.Hooks{
				OnAudio: func(chunk []byte) {
					rc.queueMessage(messages.NewAudioMessage(id, base64.StdEncoding.EncodeToString(chunk), encoding))
				},
				OnText: func(text string) {
					rc.queueMessage(messages.NewTextMessage(id, text))
				},
			}
		})
		if err != nil {
			_, code := classify(err)
			rc.log.Warn().Err(err).Str("exchange", id).Str("code", code).Msg("relay exchange failed")
			rc.queueMessage(messages.NewErrorMessage(id, code, err.Error()))
			return
		}
		rc.queueMessage(messages.NewStatusMessage(id, messages.StatusComplete, ""))
		rc.log.Debug().Str("exchange", id).Int("audio_bytes", len(res.Audio)).Msg("relay exchange complete")
	}()
}
