package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/compozy/triggers/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) context.Context {
	t.Helper()
	return logger.ContextWithLogger(t.Context(), logger.NewForTests())
}

func TestNewRedis(t *testing.T) {
	t.Run("Should connect by host and port", func(t *testing.T) {
		mr := miniredis.RunT(t)
		ctx := newTestContext(t)
		r, err := NewRedis(ctx, &Config{Host: mr.Host(), Port: mr.Port()})
		require.NoError(t, err)
		defer r.Close()

		ok, err := r.SetNX(ctx, "k", "v", time.Minute).Result()
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = r.SetNX(ctx, "k", "v", time.Minute).Result()
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, r.HealthCheck(ctx))
	})
	t.Run("Should connect by URL", func(t *testing.T) {
		mr := miniredis.RunT(t)
		ctx := newTestContext(t)
		r, err := NewRedis(ctx, &Config{URL: "redis://" + mr.Addr() + "/0"})
		require.NoError(t, err)
		assert.NoError(t, r.Ping(ctx).Err())
		assert.NoError(t, r.Close())
		assert.NoError(t, r.Close())
	})
	t.Run("Should fail fast when the server is unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, err := NewRedis(newTestContext(t), &Config{URL: "redis://" + addr, PingTimeout: 200 * time.Millisecond})
		assert.ErrorContains(t, err, "pinging Redis server")
	})
	t.Run("Should reject malformed URLs", func(t *testing.T) {
		_, err := NewRedis(newTestContext(t), &Config{URL: "://nope"})
		assert.ErrorContains(t, err, "parsing Redis URL")
	})
}

func TestConfigEnabled(t *testing.T) {
	t.Run("Should report configured endpoints only", func(t *testing.T) {
		assert.False(t, (&Config{}).Enabled())
		assert.False(t, (*Config)(nil).Enabled())
		assert.True(t, (&Config{URL: "redis://x"}).Enabled())
	})
}
