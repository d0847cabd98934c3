//go:build integration

package cache

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/localeventfinder/internal/domain/providers"
	redisclient "github.com/zatekoja/localeventfinder/internal/infrastructure/clients/redis"
	"github.com/zatekoja/localeventfinder/pkg/config"
	"github.com/zatekoja/localeventfinder/pkg/retry"
)

func TestRedisAdapter_Integration(t *testing.T) {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	ctx := context.Background()

	client, err := redisclient.NewClient(ctx, &config.RedisConfig{Host: host, Port: 6379}, retry.DefaultConfig("redis"))
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer client.Close()

	cache := NewRedisAdapter(client, "eventfinder-test:")

	require.NoError(t, cache.Set(ctx, "categories", []byte("x"), 30))
	got, err := cache.Get(ctx, "categories")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)

	require.NoError(t, cache.Delete(ctx, "categories"))
	_, err = cache.Get(ctx, "categories")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}
