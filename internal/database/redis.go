package database

import (
	"context"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/config"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// NewRedis creates the client shared by the cache, presence registry and offline queue.
// A failed ping is logged, not fatal: every caller treats redis as best-effort.
func NewRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis. Caching and presence will degrade.")
	} else {
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis successfully")
	}
	return rdb
}
