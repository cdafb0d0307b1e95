package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// ConfigFileEnv names the environment variable pointing at an optional TOML
// config file.
const ConfigFileEnv = "SPEECHWIRE_CONFIG"

// ErrMissingCredential is returned by the Require* checks.
var ErrMissingCredential = errors.New("config: missing credential")

// Config holds all service and client configuration
type Config struct {
	Port       int
	ServerType string // "http" or "none"

	TTSEndpoint string
	AppID       string
	AccessToken string
	Cluster     string // empty: derived from the voice

	ArkAPIKey    string
	ArkBaseURL   string
	GeminiAPIKey string

	RedisURL      string
	RedisPassword string

	MaxSessions     int // concurrent exchanges
	ExchangeTimeout time.Duration
	ReadTimeout     time.Duration
	MaxAudioSize    int // bytes per exchange
	AllowedOrigins  []string
	LogLevel        string
}

// fileConfig mirrors Config in the TOML file. Durations are Go duration
// strings such as "45s".
type fileConfig struct {
	Port            int      `toml:"port"`
	ServerType      string   `toml:"server_type"`
	TTSEndpoint     string   `toml:"tts_endpoint"`
	AppID           string   `toml:"app_id"`
	AccessToken     string   `toml:"access_token"`
	Cluster         string   `toml:"cluster"`
	ArkAPIKey       string   `toml:"ark_api_key"`
	ArkBaseURL      string   `toml:"ark_base_url"`
	GeminiAPIKey    string   `toml:"gemini_api_key"`
	RedisURL        string   `toml:"redis_url"`
	RedisPassword   string   `toml:"redis_password"`
	MaxSessions     int      `toml:"max_sessions"`
	ExchangeTimeout string   `toml:"exchange_timeout"`
	ReadTimeout     string   `toml:"read_timeout"`
	MaxAudioSize    int      `toml:"max_audio_size"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	LogLevel        string   `toml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:            8080,
		ServerType:      "http",
		TTSEndpoint:     "wss://openspeech.bytedance.com/api/v1/tts/ws_binary",
		ArkBaseURL:      "https://ark.cn-beijing.volces.com/api/v3",
		RedisURL:        "localhost:6379",
		RedisPassword:   "",
		MaxSessions:     100,
		ExchangeTimeout: 60 * time.Second,
		ReadTimeout:     15 * time.Second,
		MaxAudioSize:    50 * 1024 * 1024, // 50MB default
		AllowedOrigins:  []string{"*"},
		LogLevel:        "info",
	}
}

// LoadConfig loads configuration: defaults, then the optional TOML file named
// by SPEECHWIRE_CONFIG, then environment variables (including .env).
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config file: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("port") {
		c.Port = raw.Port
	}
	if meta.IsDefined("server_type") {
		c.ServerType = strings.TrimSpace(raw.ServerType)
	}
	setString := func(key string, dst *string, v string) {
		if meta.IsDefined(key) {
			*dst = strings.TrimSpace(v)
		}
	}
	setString("tts_endpoint", &c.TTSEndpoint, raw.TTSEndpoint)
	setString("app_id", &c.AppID, raw.AppID)
	setString("access_token", &c.AccessToken, raw.AccessToken)
	setString("cluster", &c.Cluster, raw.Cluster)
	setString("ark_api_key", &c.ArkAPIKey, raw.ArkAPIKey)
	setString("ark_base_url", &c.ArkBaseURL, raw.ArkBaseURL)
	setString("gemini_api_key", &c.GeminiAPIKey, raw.GeminiAPIKey)
	setString("redis_url", &c.RedisURL, raw.RedisURL)
	setString("redis_password", &c.RedisPassword, raw.RedisPassword)
	setString("log_level", &c.LogLevel, raw.LogLevel)

	if meta.IsDefined("max_sessions") {
		c.MaxSessions = raw.MaxSessions
	}
	if meta.IsDefined("max_audio_size") {
		c.MaxAudioSize = raw.MaxAudioSize
	}
	if meta.IsDefined("allowed_origins") {
		c.AllowedOrigins = raw.AllowedOrigins
	}
	if meta.IsDefined("exchange_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ExchangeTimeout))
		if err != nil {
			return fmt.Errorf("parse exchange_timeout: %w", err)
		}
		c.ExchangeTimeout = d
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return fmt.Errorf("parse read_timeout: %w", err)
		}
		c.ReadTimeout = d
	}
	return c.validateServerType()
}

func (c *Config) applyEnv() error {
	// Optional: PORT
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		c.Port = p
	}

	// Optional: SERVER_TYPE ("http" or "none")
	if serverType := os.Getenv("SERVER_TYPE"); serverType != "" {
		c.ServerType = serverType
		if err := c.validateServerType(); err != nil {
			return err
		}
	}

	vars := map[string]*string{
		"TTS_ENDPOINT":     &c.TTSEndpoint,
		"TTS_APP_ID":       &c.AppID,
		"TTS_ACCESS_TOKEN": &c.AccessToken,
		"TTS_CLUSTER":      &c.Cluster,
		"ARK_API_KEY":      &c.ArkAPIKey,
		"ARK_BASE_URL":     &c.ArkBaseURL,
		"GEMINI_API_KEY":   &c.GeminiAPIKey,
		"REDIS_URL":        &c.RedisURL,
		"REDIS_PASSWORD":   &c.RedisPassword,
		"LOG_LEVEL":        &c.LogLevel,
	}
	for name, dst := range vars {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	// Optional: MAX_SESSIONS
	if maxSessions := os.Getenv("MAX_SESSIONS"); maxSessions != "" {
		m, err := strconv.Atoi(maxSessions)
		if err != nil {
			return fmt.Errorf("invalid MAX_SESSIONS: %w", err)
		}
		c.MaxSessions = m
	}

	// Optional: EXCHANGE_TIMEOUT (in seconds)
	if timeout := os.Getenv("EXCHANGE_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return fmt.Errorf("invalid EXCHANGE_TIMEOUT: %w", err)
		}
		c.ExchangeTimeout = time.Duration(t) * time.Second
	}

	// Optional: READ_TIMEOUT (in seconds)
	if timeout := os.Getenv("READ_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return fmt.Errorf("invalid READ_TIMEOUT: %w", err)
		}
		c.ReadTimeout = time.Duration(t) * time.Second
	}

	// Optional: MAX_AUDIO_SIZE (in bytes)
	if size := os.Getenv("MAX_AUDIO_SIZE"); size != "" {
		b, err := strconv.Atoi(size)
		if err != nil {
			return fmt.Errorf("invalid MAX_AUDIO_SIZE: %w", err)
		}
		c.MaxAudioSize = b
	}

	// Optional: ALLOWED_ORIGINS (comma-separated)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}
	return nil
}

func (c *Config) validateServerType() error {
	switch c.ServerType {
	case "http", "none":
		return nil
	default:
		return fmt.Errorf("invalid SERVER_TYPE: must be 'http' or 'none'")
	}
}

// RequireTTS checks the speech service credentials.
func (c *Config) RequireTTS() error {
	if c.AppID == "" {
		return fmt.Errorf("%w: TTS_APP_ID", ErrMissingCredential)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: TTS_ACCESS_TOKEN", ErrMissingCredential)
	}
	return nil
}

// RequireArk checks the Ark API key.
func (c *Config) RequireArk() error {
	if c.ArkAPIKey == "" {
		return fmt.Errorf("%w: ARK_API_KEY", ErrMissingCredential)
	}
	return nil
}

// RequireGemini checks the Gemini API key.
func (c *Config) RequireGemini() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingCredential)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
