package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
)

// redisDialCheck bounds the startup ping so an unreachable Redis does not stall boot.
const redisDialCheck = 3 * time.Second

// Redis wraps the go-redis client that holds single-use action tokens.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisDialCheck)
	defer cancel()

	fields := []zap.Field{zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB)}
	if err := client.Ping(pingCtx).Err(); err != nil {
		// Action tokens fail per request until Redis is reachable; readiness reports it.
		logger.Warn("action token store unreachable", append(fields, zap.Error(err))...)
	} else {
		logger.Info("action token store connected", fields...)
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
