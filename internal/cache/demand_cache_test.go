package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hongquyngo/safety-stock/internal/config"
	"github.com/hongquyngo/safety-stock/internal/safetystock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDemandSamplesKey(t *testing.T) {
	asOf := time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC)
	customer := int64(9)
	scope := safetystock.DemandScope{ProductID: 1, EntityID: 2}

	key := buildDemandSamplesKey(scope, 90, asOf)
	assert.True(t, strings.HasPrefix(key, "demand:samples:"))
	assert.Len(t, strings.TrimPrefix(key, "demand:samples:"), 40)

	assert.Equal(t, key, buildDemandSamplesKey(scope, 90, asOf.Add(5*time.Hour)), "same day shares a key")
	assert.NotEqual(t, key, buildDemandSamplesKey(scope, 90, asOf.AddDate(0, 0, 1)))
	assert.NotEqual(t, key, buildDemandSamplesKey(scope, 30, asOf))

	withCustomer := scope
	withCustomer.CustomerID = &customer
	assert.NotEqual(t, key, buildDemandSamplesKey(withCustomer, 90, asOf))
}

func TestNoopDemandCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewDemandCache(ctx, config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	scope := safetystock.DemandScope{ProductID: 1, EntityID: 2}
	require.NoError(t, c.SetSamples(ctx, scope, 90, time.Now(), []safetystock.DemandSample{{Quantity: 1}}))

	samples, ok, err := c.GetSamples(ctx, scope, 90, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, samples)
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@cache:6380/3"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisPassword: "pw", RedisDB: 1})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)
	assert.Equal(t, 1, opts.DB)
	assert.Equal(t, commandTimeout, opts.ReadTimeout)
	assert.Equal(t, commandTimeout, opts.WriteTimeout)
	assert.Equal(t, 1, opts.MaxRetries)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "://bad"})
	assert.Error(t, err)
}

func TestCacheTTL(t *testing.T) {
	assert.Equal(t, defaultCacheTTL, cacheTTL(config.CacheConfig{}))
	assert.Equal(t, 30*time.Second, cacheTTL(config.CacheConfig{DemandTTLSeconds: 30}))
}

func TestEntryTTL(t *testing.T) {
	morning := time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 5*time.Minute, entryTTL(5*time.Minute, morning))
	assert.Equal(t, 15*time.Hour, entryTTL(24*time.Hour, morning))

	lateEvening := time.Date(2024, 3, 31, 23, 58, 0, 0, time.UTC)
	assert.Equal(t, 2*time.Minute, entryTTL(5*time.Minute, lateEvening))

	lastInstant := time.Date(2024, 3, 31, 23, 59, 59, 900_000_000, time.UTC)
	assert.Equal(t, time.Second, entryTTL(5*time.Minute, lastInstant))
}
