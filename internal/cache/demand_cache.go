package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hongquyngo/safety-stock/internal/config"
	"github.com/hongquyngo/safety-stock/internal/safetystock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const demandSamplesKeyPrefix = "demand:samples"

// DemandCache stores fetched demand samples per scope, lookback and day.
type DemandCache interface {
	GetSamples(ctx context.Context, scope safetystock.DemandScope, daysBack int, asOf time.Time) ([]safetystock.DemandSample, bool, error)
	SetSamples(ctx context.Context, scope safetystock.DemandScope, daysBack int, asOf time.Time, samples []safetystock.DemandSample) error
	InvalidateAll(ctx context.Context) error
}

type redisDemandCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopDemandCache struct{}

// NewDemandCache connects to redis when caching is enabled and returns the
// noop cache otherwise.
func NewDemandCache(ctx context.Context, cfg config.CacheConfig) (DemandCache, error) {
	if !cfg.Enabled {
		return &noopDemandCache{}, nil
	}

	client, ttl, err := newRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &redisDemandCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopDemandCache() DemandCache {
	return &noopDemandCache{}
}

func (c *redisDemandCache) GetSamples(ctx context.Context, scope safetystock.DemandScope, daysBack int, asOf time.Time) ([]safetystock.DemandSample, bool, error) {
	key := buildDemandSamplesKey(scope, daysBack, asOf)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var samples []safetystock.DemandSample
	if err := json.Unmarshal(payload, &samples); err != nil {
		return nil, false, fmt.Errorf("decode demand samples cache: %w", err)
	}

	return samples, true, nil
}

func (c *redisDemandCache) SetSamples(ctx context.Context, scope safetystock.DemandScope, daysBack int, asOf time.Time, samples []safetystock.DemandSample) error {
	key := buildDemandSamplesKey(scope, daysBack, asOf)
	if samples == nil {
		samples = []safetystock.DemandSample{}
	}
	payload, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("encode demand samples cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, entryTTL(c.ttl, asOf)).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisDemandCache) InvalidateAll(ctx context.Context) error {
	removed, err := unlinkMatching(ctx, c.client, demandSamplesKeyPrefix+":*")
	if err != nil {
		return err
	}
	log.Debug().Int("keys", removed).Msg("demand cache invalidated")
	return nil
}

func (n *noopDemandCache) GetSamples(ctx context.Context, scope safetystock.DemandScope, daysBack int, asOf time.Time) ([]safetystock.DemandSample, bool, error) {
	return nil, false, nil
}

func (n *noopDemandCache) SetSamples(ctx context.Context, scope safetystock.DemandScope, daysBack int, asOf time.Time, samples []safetystock.DemandSample) error {
	return nil
}

func (n *noopDemandCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildDemandSamplesKey(scope safetystock.DemandScope, daysBack int, asOf time.Time) string {
	return fmt.Sprintf("%s:%s", demandSamplesKeyPrefix, demandScopeHash(scope, daysBack, asOf))
}

// demandScopeHash keys on the calendar day so entries roll over with the window.
func demandScopeHash(scope safetystock.DemandScope, daysBack int, asOf time.Time) string {
	parts := []string{
		fmt.Sprintf("product_id=%d", scope.ProductID),
		fmt.Sprintf("entity_id=%d", scope.EntityID),
		fmt.Sprintf("days_back=%d", daysBack),
		"as_of=" + asOf.Format("2006-01-02"),
	}
	if scope.CustomerID != nil {
		parts = append(parts, fmt.Sprintf("customer_id=%d", *scope.CustomerID))
	}

	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
