package auth

import (
	"context"
	"testing"
	"time"

	"github.com/assocworks/member-chat/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	cfg := &config.Config{OIDCConfigs: []config.OIDCConfig{
		{Name: "assoc", ProviderUrl: "https://id.example.org"},
	}}
	v, err := NewVerifier(cfg)
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		_, err := v.Authenticate(context.Background(), "", "assoc")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := v.Authenticate(context.Background(), "some-token", "nope")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("cached token skips the provider", func(t *testing.T) {
		// a previously verified token is served from the cache, no provider
		// round trip happens (the provider URL here is not even reachable)
		v.cache.Add("cached-token", cacheEntry{userId: "alice@example.org", expiry: time.Now().Add(time.Hour)})
		userId, err := v.Authenticate(context.Background(), "cached-token", "assoc")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.org", userId)
	})

	t.Run("expired cache entry no longer authenticates", func(t *testing.T) {
		// once the token's own expiry has passed, the cache entry is dead
		// and authentication falls through to full verification again
		v.cache.Add("stale-token", cacheEntry{userId: "alice@example.org", expiry: time.Now().Add(-time.Minute)})
		_, err := v.Authenticate(context.Background(), "stale-token", "nope")
		assert.ErrorIs(t, err, ErrInvalidToken)
		_, ok := v.cache.Get("stale-token")
		assert.False(t, ok, "the stale entry is evicted")
	})
}
