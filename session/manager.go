package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/room4-2/speechwire/logx"
	"github.com/room4-2/speechwire/metrics"
)

const (
	activeExchangesKey = "active_exchanges"
	exchangeKeyPrefix  = "exchange:"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	MaxActive     int
	RedisAddr     string
	RedisPassword string
	// TTL bounds how long an exchange may stay registered, both in memory
	// and in Redis.
	TTL    time.Duration
	Logger *zerolog.Logger
}

// Exchange is one in-flight synthesis request.
type Exchange struct {
	ID        string
	Voice     string
	CreatedAt time.Time

	cancel context.CancelFunc
}

// Manager tracks in-flight exchanges and mirrors them to Redis when available.
type Manager struct {
	exchanges map[string]*Exchange
	mu        sync.RWMutex
	redis     *redis.Client
	cfg       ManagerConfig
	log       zerolog.Logger
}

// NewManager creates an exchange manager. Redis is optional: when it cannot
// be reached the manager keeps state in memory only.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	log := logx.With("manager")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, tracking exchanges in memory")
			_ = redisClient.Close()
			redisClient = nil
		}
	}

	return &Manager{
		exchanges: make(map[string]*Exchange),
		redis:     redisClient,
		cfg:       cfg,
		log:       log,
	}
}

// Begin registers a new exchange. The returned context is cancelled by
// Cancel, Shutdown, or the cleanup routine.
func (m *Manager) Begin(ctx context.Context, voice string) (context.Context, *Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxActive > 0 && len(m.exchanges) >= m.cfg.MaxActive {
		return nil, nil, ErrTooManyExchanges
	}

	exCtx, cancel := context.WithCancel(ctx)
	ex := &Exchange{
		ID:        uuid.New().String(),
		Voice:     voice,
		CreatedAt: time.Now(),
		cancel:    cancel,
	}
	m.exchanges[ex.ID] = ex
	metrics.ExchangeStarted()

	if m.redis != nil {
		key := exchangeKeyPrefix + ex.ID
		pipe := m.redis.TxPipeline()
		pipe.HSet(ctx, key, map[string]interface{}{
			"created_at": ex.CreatedAt.Format(time.RFC3339),
			"voice":      voice,
			"status":     StateListening.String(),
		})
		pipe.SAdd(ctx, activeExchangesKey, ex.ID)
		pipe.Expire(ctx, key, m.cfg.TTL)
		if _, err := pipe.Exec(ctx); err != nil {
			m.log.Warn().Err(err).Str("exchange", ex.ID).Msg("redis register failed")
		}
	}

	m.log.Debug().Str("exchange", ex.ID).Str("voice", voice).Msg("exchange started")
	return exCtx, ex, nil
}

// Finish removes the exchange and records its outcome. The Redis hash is
// kept until its TTL so Status can still report it.
func (m *Manager) Finish(ctx context.Context, id string, state State, audioBytes int) error {
	m.mu.Lock()
	ex, ok := m.exchanges[id]
	if ok {
		delete(m.exchanges, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrUnknownExchange
	}
	ex.cancel()

	elapsed := time.Since(ex.CreatedAt)
	metrics.ExchangeEnded()
	metrics.RecordExchange(state.String(), elapsed)

	if m.redis != nil {
		key := exchangeKeyPrefix + id
		pipe := m.redis.TxPipeline()
		pipe.HSet(ctx, key, map[string]interface{}{
			"status":      state.String(),
			"audio_bytes": audioBytes,
			"finished_at": time.Now().Format(time.RFC3339),
		})
		pipe.SRem(ctx, activeExchangesKey, id)
		pipe.Expire(ctx, key, m.cfg.TTL)
		if _, err := pipe.Exec(ctx); err != nil {
			m.log.Warn().Err(err).Str("exchange", id).Msg("redis update failed")
		}
	}

	m.log.Info().
		Str("exchange", id).
		Str("outcome", state.String()).
		Int("audio_bytes", audioBytes).
		Dur("elapsed", elapsed).
		Msg("exchange finished")
	return nil
}

// Cancel aborts a running exchange. Its owner still calls Finish.
func (m *Manager) Cancel(id string) error {
	m.mu.RLock()
	ex, ok := m.exchanges[id]
	m.mu.RUnlock()
	if !ok {
		return ErrUnknownExchange
	}
	ex.cancel()
	return nil
}

// Get retrieves an exchange by ID
func (m *Manager) Get(id string) (*Exchange, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ex, exists := m.exchanges[id]
	return ex, exists
}

// ActiveCount returns the number of in-flight exchanges.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.exchanges)
}

// Status returns the Redis record for id, including finished exchanges that
// have not expired. Without Redis only in-flight exchanges are known.
func (m *Manager) Status(ctx context.Context, id string) (map[string]string, error) {
	if m.redis == nil {
		ex, ok := m.Get(id)
		if !ok {
			return nil, ErrUnknownExchange
		}
		return map[string]string{
			"created_at": ex.CreatedAt.Format(time.RFC3339),
			"voice":      ex.Voice,
			"status":     StateListening.String(),
		}, nil
	}

	fields, err := m.redis.HGetAll(ctx, exchangeKeyPrefix+id).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrUnknownExchange
	}
	return fields, nil
}

// CleanupExpired cancels exchanges older than the configured TTL.
func (m *Manager) CleanupExpired() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	now := time.Now()
	for id, ex := range m.exchanges {
		if now.Sub(ex.CreatedAt) > m.cfg.TTL {
			ex.cancel()
			m.log.Warn().Str("exchange", id).Msg("exchange exceeded ttl, cancelling")
			n++
		}
	}
	return n
}

// StartCleanupRoutine starts periodic cleanup of stale exchanges
func (m *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupExpired()
		}
	}
}

// Shutdown cancels all exchanges and closes the Redis client.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ex := range m.exchanges {
		ex.cancel()
	}

	if m.redis != nil {
		_ = m.redis.Close()
	}
}
