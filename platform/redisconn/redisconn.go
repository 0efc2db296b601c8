// Package redisconn builds Redis connection options from a URL. It is shared
// by the Redis counter store and the asynq client/worker.
package redisconn

import (
	"context"
	"crypto/tls"
	"fmt"

	"ipkwealth_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

// Options parses url and applies the TLS override.
func Options(url string, tlsInsecure bool) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	switch {
	case opt.TLSConfig != nil:
		clone := opt.TLSConfig.Clone()
		clone.InsecureSkipVerify = clone.InsecureSkipVerify || tlsInsecure
		opt.TLSConfig = clone
	case tlsInsecure:
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return opt, nil
}

// NewClient connects and pings.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := Options(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
