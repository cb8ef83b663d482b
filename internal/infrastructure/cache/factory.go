package cache

import (
	"fmt"

	"github.com/salesinsight/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Factory creates cache stores based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	keyPrefix             string
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to an in-memory store.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// WithKeyPrefix prefixes every Redis key
func WithKeyPrefix(prefix string) FactoryOption {
	return func(f *Factory) {
		f.keyPrefix = prefix
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when Redis is enabled and reachable,
// otherwise an in-memory store if fallback is allowed
func (f *Factory) CreateStore() (Store, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory cache")
		return NewInMemoryStore(), nil
	}

	store, err := NewRedisStore(RedisConfig{
		Addr:      f.redisConfig.Addr(),
		Password:  f.redisConfig.Password,
		DB:        f.redisConfig.DB,
		KeyPrefix: f.keyPrefix,
	})
	if err == nil {
		f.logger.Info("using Redis cache", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
	return NewInMemoryStore(), nil
}
