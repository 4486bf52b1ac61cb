package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-scheduler/internal/changefeed"
	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildFeed picks the Redis changefeed when a client is available so every
// API replica sees every change. A single process falls back to memory.
func BuildFeed(client *redis.Client, cfg *appconfig.Config, logger *logging.Logger) changefeed.Feed {
	if logger == nil {
		logger = logging.Default()
	}
	if client == nil {
		logger.Info("changefeed: using in-process feed")
		return changefeed.NewMemoryFeed()
	}
	channel := "clinic:changes"
	if cfg != nil && cfg.ChangefeedChannel != "" {
		channel = cfg.ChangefeedChannel
	}
	logger.Info("changefeed: using redis pub/sub", "channel", channel)
	return changefeed.NewRedisFeed(client, channel, logger)
}
