package admission

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisStore_Acquire(t *testing.T) {
	store, mr := newRedisStore(t)

	d, err := store.Acquire(t.Context(), "stock", time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Window is open: second acquire is denied with the remaining TTL.
	d, err = store.Acquire(t.Context(), "stock", time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, 50*time.Second)

	// Expiry is the decay: after the window the node is admitted again.
	mr.FastForward(61 * time.Second)

	d, err = store.Acquire(t.Context(), "stock", time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisStore_PerNodeKeys(t *testing.T) {
	store, _ := newRedisStore(t)

	d, err := store.Acquire(t.Context(), "stock", time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = store.Acquire(t.Context(), "weather", time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "windows are per node")
}

func TestRedisStore_GateEndToEnd(t *testing.T) {
	store, mr := newRedisStore(t)
	gate := NewGate(store, time.Minute)

	// Run 1 uses the node; run 2 inside the window is denied; a later run
	// after decay is admitted again.
	assert.True(t, gate.Check(t.Context(), "stock").Allowed)
	assert.False(t, gate.Check(t.Context(), "stock").Allowed)

	mr.FastForward(time.Minute + time.Second)
	assert.True(t, gate.Check(t.Context(), "stock").Allowed)
}

func TestRedisStore_FailsOpenWhenDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	gate := NewGate(NewRedisStore(client), time.Minute)

	mr.Close()

	assert.True(t, gate.Check(t.Context(), "stock").Allowed)
}

func TestRedisStore_LastUsedRecord(t *testing.T) {
	store, _ := newRedisStore(t)

	_, found, err := store.LastUsed(t.Context(), "stock")
	require.NoError(t, err)
	assert.False(t, found)

	used := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(t.Context(), "stock", used))

	got, found, err := store.LastUsed(t.Context(), "stock")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.Equal(used))
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, WithKeyPrefix("custom:"))

	_, err := store.Acquire(t.Context(), "stock", time.Minute)
	require.NoError(t, err)

	assert.True(t, mr.Exists("custom:stock"))
}
