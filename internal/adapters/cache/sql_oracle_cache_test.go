package cache

import (
	"context"
	"testing"
	"time"
	"vrp-route-service/internal/adapters/repositories"
	"vrp-route-service/internal/platform/db"
	"vrp-route-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLCache(t *testing.T) *SQLOracleCache {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, repositories.InitSchema(conn))

	return NewSQLOracleCache(conn, db.DriverSQLite, TTLs{
		Geocode:    time.Hour,
		Directions: time.Hour,
		Matrix:     time.Minute,
	})
}

func TestSQLOracleCacheRoundTrip(t *testing.T) {
	c := newSQLCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, ports.CacheDirections, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, ports.CacheDirections, "k1", []byte(`{"geometry":"abc"}`)))
	require.NoError(t, c.Set(ctx, ports.CacheDirections, "k1", []byte(`{"geometry":"xyz"}`)))

	b, ok, err := c.Get(ctx, ports.CacheDirections, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"geometry":"xyz"}`, string(b))

	_, ok, err = c.Get(ctx, ports.CacheMatrix, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLOracleCacheExpiry(t *testing.T) {
	c := newSQLCache(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, ports.CacheMatrix, "m", []byte("1")))
	require.NoError(t, c.Set(ctx, ports.CacheGeocode, "g", []byte("2")))

	now = now.Add(5 * time.Minute)

	_, ok, err := c.Get(ctx, ports.CacheMatrix, "m")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Get(ctx, ports.CacheGeocode, "g")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSQLOracleCacheRejectsEmptyKey(t *testing.T) {
	c := newSQLCache(t)
	assert.Error(t, c.Set(context.Background(), ports.CacheMatrix, "", []byte("x")))
}
