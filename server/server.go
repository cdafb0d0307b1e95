package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/room4-2/speechwire/config"
	"github.com/room4-2/speechwire/logx"
	"github.com/room4-2/speechwire/messages"
	"github.com/room4-2/speechwire/session"
	"github.com/room4-2/speechwire/synth"
)

const maxRequestBody = 1 << 20

// Synthesizer runs one exchange against the speech service.
type Synthesizer interface {
	Stream(ctx context.Context, opts synth.Options, hooks synth.Hooks) (*synth.Result, error)
}

type Server struct {
	httpServer *http.Server
	upgrader   websocket.Upgrader
	manager    *session.Manager
	synth      Synthesizer
	base       synth.Options
	config     *config.Config
	log        zerolog.Logger
}

// NewServer wires the HTTP API, the relay endpoint and /metrics. gatherer
// may be nil to expose the default registry.
func NewServer(cfg *config.Config, manager *session.Manager, s Synthesizer, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	srv := &Server{
		manager: manager,
		synth:   s,
		config:  cfg,
		log:     logx.With("server"),
		base: synth.Options{
			AppID:       cfg.AppID,
			AccessToken: cfg.AccessToken,
			Cluster:     cfg.Cluster,
			Endpoint:    cfg.TTSEndpoint,
		},
		upgrader: websocket.Upgrader{
			ReadBufferSize:    64 * 1024,
			WriteBufferSize:   64 * 1024, // 64KB for audio chunks
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				// Check allowed origins
				origin := r.Header.Get("Origin")
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.routes(gatherer),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: /ws is long-lived and /v1/tts is bounded by the
		// exchange timeout.
	}
	return srv
}

func (s *Server) routes(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/tts", s.handleSynthesize)
	mux.HandleFunc("GET /v1/exchanges/{id}", s.handleExchangeStatus)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for connections
func (s *Server) Start() error {
	s.log.Info().Int("port", s.config.Port).Msg("http server starting")
	s.log.Info().Msgf("relay endpoint: ws://localhost:%d/ws", s.config.Port)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down server")
	s.manager.Shutdown()
	return s.httpServer.Shutdown(ctx)
}

// runExchange registers an exchange with the manager and runs it. hooksFor
// receives the exchange id before the first frame is sent.
func (s *Server) runExchange(ctx context.Context, req messages.SynthesizeRequest, hooksFor func(id string) synth.Hooks) (string, *synth.Result, error) {
	exCtx, ex, err := s.manager.Begin(ctx, req.Voice)
	if err != nil {
		return "", nil, err
	}

	var hooks synth.Hooks
	if hooksFor != nil {
		hooks = hooksFor(ex.ID)
	}
	res, err := s.synth.Stream(exCtx, synth.FromRequest(s.base, req), hooks)

	state, audioBytes := session.StateComplete, 0
	if err != nil {
		state = session.StateFailed
	} else {
		audioBytes = len(res.Audio)
	}
	if ferr := s.manager.Finish(context.WithoutCancel(ctx), ex.ID, state, audioBytes); ferr != nil {
		s.log.Warn().Err(ferr).Str("exchange", ex.ID).Msg("finish exchange")
	}
	return ex.ID, res, err
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req messages.SynthesizeRequest
	if err := sonic.ConfigDefault.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", messages.ErrCodeInvalidMessage, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "", messages.ErrCodeInvalidMessage, err.Error())
		return
	}

	id, res, err := s.runExchange(r.Context(), req, nil)
	if err != nil {
		status, code := classify(err)
		s.log.Warn().Err(err).Str("exchange", id).Str("code", code).Msg("synthesis failed")
		writeError(w, status, id, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, messages.SynthesizeResponse{
		ExchangeID: id,
		Encoding:   res.Encoding,
		Audio:      base64.StdEncoding.EncodeToString(res.Audio),
		Alignment:  res.Alignment,
	})
}

func (s *Server) handleExchangeStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	status, err := s.manager.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrUnknownExchange) {
			writeError(w, http.StatusNotFound, id, messages.ErrCodeInvalidMessage, "unknown exchange")
			return
		}
		writeError(w, http.StatusInternalServerError, id, messages.ErrCodeSynthesisFailed, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","exchanges":%d}`, s.manager.ActiveCount())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, exchangeID, code, message string) {
	writeJSON(w, status, messages.NewErrorMessage(exchangeID, code, message))
}
