package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/hongquyngo/safety-stock/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL  = 5 * time.Minute
	pingTimeout      = 5 * time.Second
	defaultRedisHost = "127.0.0.1"
	defaultRedisPort = "6379"

	// Cache commands are best-effort; callers fall back to Postgres.
	commandTimeout = 500 * time.Millisecond
	unlinkBatch    = 200
)

// newRedisClient connects and pings within pingTimeout of ctx.
func newRedisClient(ctx context.Context, cfg config.CacheConfig) (*redis.Client, time.Duration, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, 0, err
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, 0, fmt.Errorf("redis ping %s failed: %w", opts.Addr, err)
	}

	return client, cacheTTL(cfg), nil
}

func cacheTTL(cfg config.CacheConfig) time.Duration {
	ttl := time.Duration(cfg.DemandTTLSeconds) * time.Second
	if ttl <= 0 {
		return defaultCacheTTL
	}
	return ttl
}

// entryTTL caps ttl at the end of asOf's calendar day. Sample keys embed the
// day, so an entry is never read after midnight.
func entryTTL(ttl time.Duration, asOf time.Time) time.Duration {
	y, m, d := asOf.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, asOf.Location())
	if left := midnight.Sub(asOf); left < ttl {
		if left < time.Second {
			return time.Second
		}
		return left
	}
	return ttl
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	var opts *redis.Options
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		host := cfg.RedisHost
		if host == "" {
			host = defaultRedisHost
		}
		port := cfg.RedisPort
		if port == "" {
			port = defaultRedisPort
		}
		opts = &redis.Options{
			Addr:     net.JoinHostPort(host, port),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
	}

	opts.ReadTimeout = commandTimeout
	opts.WriteTimeout = commandTimeout
	opts.MaxRetries = 1
	return opts, nil
}

// unlinkMatching removes every key matching pattern in batches of
// unlinkBatch and returns how many were removed.
func unlinkMatching(ctx context.Context, client *redis.Client, pattern string) (int, error) {
	iter := client.Scan(ctx, 0, pattern, unlinkBatch).Iterator()

	removed := 0
	batch := make([]string, 0, unlinkBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := client.Unlink(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
		removed += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == unlinkBatch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan failed: %w", err)
	}
	if err := flush(); err != nil {
		return removed, err
	}
	return removed, nil
}
