package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/room4-2/speechwire/ark"
	"github.com/room4-2/speechwire/config"
	"github.com/room4-2/speechwire/gemini"
	"github.com/room4-2/speechwire/logx"
	"github.com/room4-2/speechwire/messages"
	"github.com/room4-2/speechwire/metrics"
	"github.com/room4-2/speechwire/output"
	"github.com/room4-2/speechwire/server"
	"github.com/room4-2/speechwire/session"
	"github.com/room4-2/speechwire/synth"
	"github.com/room4-2/speechwire/transport"
)

// chatProvider is satisfied by both the Ark and the Gemini clients.
type chatProvider interface {
	Chat(ctx context.Context, req messages.ChatRequest) (string, error)
}

// loadConfig loads configuration and applies the log level.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if l := c.String("log-level"); l != "" {
		level = l
	}
	logx.Configure(level)
	return cfg, nil
}

func newSynthesizer(cfg *config.Config) *synth.Synthesizer {
	topts := transport.DefaultOptions()
	topts.ReadTimeout = cfg.ReadTimeout
	return synth.New(synth.Config{
		Transport:       topts,
		ExchangeTimeout: cfg.ExchangeTimeout,
		MaxAudio:        cfg.MaxAudioSize,
	}, logx.With("synth"))
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API and WebSocket relay",
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.ServerType != "http" {
		return fmt.Errorf("serve requires SERVER_TYPE=http, got %q", cfg.ServerType)
	}
	if err := cfg.RequireTTS(); err != nil {
		return err
	}
	log := logx.With("main")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	manager := session.NewManager(session.ManagerConfig{
		MaxActive:     cfg.MaxSessions,
		RedisAddr:     cfg.RedisURL,
		RedisPassword: cfg.RedisPassword,
		TTL:           2 * cfg.ExchangeTimeout,
	})

	// Start cleanup routine
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	go manager.StartCleanupRoutine(ctx)

	srv := server.NewServer(cfg, manager, newSynthesizer(cfg), reg)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	if err := srv.Start(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func synthCommand() *cli.Command {
	return &cli.Command{
		Name:  "synth",
		Usage: "Synthesize text to an audio file plus an alignment JSON file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "text to speak", Required: true},
			&cli.StringFlag{Name: "voice", Aliases: []string{"v"}, Usage: "voice type", Required: true},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path without extension", Value: "output"},
			&cli.StringFlag{Name: "encoding", Usage: "audio encoding", Value: synth.DefaultEncoding},
			&cli.StringFlag{Name: "speed", Usage: "speed ratio", Value: synth.DefaultSpeedRatio},
			&cli.StringFlag{Name: "emotion", Usage: "emotion name"},
			&cli.StringFlag{Name: "emotion-scale", Usage: "emotion scale", Value: synth.DefaultEmotionScale},
			&cli.StringFlag{Name: "cluster", Usage: "cluster override"},
		},
		Action: synthAction,
	}
}

func synthAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.RequireTTS(); err != nil {
		return err
	}

	cluster := cfg.Cluster
	if v := c.String("cluster"); v != "" {
		cluster = v
	}
	opts := synth.Options{
		AppID:         cfg.AppID,
		AccessToken:   cfg.AccessToken,
		Cluster:       cluster,
		Endpoint:      cfg.TTSEndpoint,
		VoiceType:     c.String("voice"),
		Text:          c.String("text"),
		SpeedRatio:    c.String("speed"),
		Emotion:       c.String("emotion"),
		EnableEmotion: c.String("emotion") != "",
		EmotionScale:  c.String("emotion-scale"),
		Encoding:      c.String("encoding"),
	}

	res, err := newSynthesizer(cfg).Synthesize(c.Context, opts)
	if err != nil {
		return err
	}

	base := c.String("out")
	path, err := output.WriteAudio(base, res.Encoding, res.Audio)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, path)

	if res.Alignment != nil {
		path, err := output.WriteAlignment(base, res.Alignment)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, path)
	}
	return nil
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Send one prompt to a chat model",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "provider", Usage: "ark or gemini", Value: "ark"},
			&cli.StringFlag{Name: "model", Usage: "model name (gemini defaults to " + gemini.DefaultModel + ")"},
			&cli.StringFlag{Name: "system", Usage: "system prompt"},
		},
		Action: chatAction,
	}
}

func chatAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	prompt := c.Args().First()
	if prompt == "" {
		return errors.New("chat: a prompt argument is required")
	}

	var provider chatProvider
	switch c.String("provider") {
	case "ark":
		if err := cfg.RequireArk(); err != nil {
			return err
		}
		provider = ark.NewClient(cfg.ArkBaseURL, cfg.ArkAPIKey)
	case "gemini":
		if err := cfg.RequireGemini(); err != nil {
			return err
		}
		provider, err = gemini.NewClient(c.Context, cfg.GeminiAPIKey, "")
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("chat: unknown provider %q", c.String("provider"))
	}

	req := messages.ChatRequest{Model: c.String("model")}
	if system := c.String("system"); system != "" {
		req.Messages = append(req.Messages, messages.ChatMessage{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, messages.ChatMessage{Role: "user", Content: prompt})

	out, err := provider.Chat(c.Context, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, out)
	return nil
}

func arkClient(c *cli.Context) (*ark.Client, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireArk(); err != nil {
		return nil, err
	}
	return ark.NewClient(cfg.ArkBaseURL, cfg.ArkAPIKey), nil
}

func imageCommand() *cli.Command {
	return &cli.Command{
		Name:      "image",
		Usage:     "Generate an image and print its URL or base64 data",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Usage: "model name", Required: true},
			&cli.StringFlag{Name: "format", Usage: "url or b64_json", Value: messages.DefaultImageResponseFormat},
			&cli.StringFlag{Name: "size", Usage: "image size, e.g. 1024x1024"},
			&cli.BoolFlag{Name: "watermark", Usage: "ask for a watermark"},
		},
		Action: func(c *cli.Context) error {
			client, err := arkClient(c)
			if err != nil {
				return err
			}
			watermark := c.Bool("watermark")
			out, err := client.GenerateImage(c.Context, messages.ImageRequest{
				Model:          c.String("model"),
				Prompt:         c.Args().First(),
				ResponseFormat: c.String("format"),
				Size:           c.String("size"),
				Watermark:      &watermark,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, out)
			return nil
		},
	}
}

func videoCommand() *cli.Command {
	return &cli.Command{
		Name:  "video",
		Usage: "Create and poll video generation tasks",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Submit a text-to-video task and print its id",
				ArgsUsage: "<prompt>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "model", Usage: "model name", Required: true},
				},
				Action: func(c *cli.Context) error {
					client, err := arkClient(c)
					if err != nil {
						return err
					}
					id, err := client.CreateVideoTask(c.Context, messages.VideoTaskRequest{
						Model:   c.String("model"),
						Content: []messages.VideoContent{{Type: "text", Text: c.Args().First()}},
					})
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, id)
					return nil
				},
			},
			{
				Name:      "status",
				Usage:     "Report a task's status; with --wait, poll until it completes",
				ArgsUsage: "<task-id>",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "wait", Usage: "poll interval; zero checks once"},
				},
				Action: videoStatusAction,
			},
		},
	}
}

func videoStatusAction(c *cli.Context) error {
	client, err := arkClient(c)
	if err != nil {
		return err
	}
	id := c.Args().First()
	interval := c.Duration("wait")

	for {
		res, err := client.GetVideoTask(c.Context, id)
		if err != nil {
			return err
		}
		if res.IsComplete || interval <= 0 {
			fmt.Fprintf(c.App.Writer, "%s %s\n", res.Status, res.Message)
			if res.Status == messages.VideoStatusFailed {
				return fmt.Errorf("video task %s failed: %s", id, res.Message)
			}
			return nil
		}
		select {
		case <-c.Context.Done():
			return c.Context.Err()
		case <-time.After(interval):
		}
	}
}
