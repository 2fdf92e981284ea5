package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noblepay-ledger/internal/domain/idempotency"
)

func newTestCache(t *testing.T, ttl time.Duration) (*IdempotencyCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewIdempotencyCache(logger, client, ttl), mr
}

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Hour)

	rec := &idempotency.Record{
		OwnerID:   uuid.New(),
		Key:       "pay-rent-march",
		Operation: "transfer",
		Reference: "PAYLX2Q8ABCDEFGHJK",
		Result:    json.RawMessage(`{"reference":"PAYLX2Q8ABCDEFGHJK"}`),
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, cache.Set(ctx, rec))
	assert.True(t, mr.Exists(cacheKey(rec.OwnerID, rec.Key)))
	assert.Equal(t, time.Hour, mr.TTL(cacheKey(rec.OwnerID, rec.Key)))

	got, err := cache.Get(ctx, rec.OwnerID, rec.Key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Reference, got.Reference)
	assert.Equal(t, rec.Operation, got.Operation)
	assert.JSONEq(t, string(rec.Result), string(got.Result))

	other, err := cache.Get(ctx, uuid.New(), rec.Key)
	require.NoError(t, err)
	assert.Nil(t, other, "keys are scoped per owner")
}

func TestIdempotencyCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Minute)

	rec := &idempotency.Record{OwnerID: uuid.New(), Key: "k1", Result: json.RawMessage(`{}`)}
	require.NoError(t, cache.Set(ctx, rec))

	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, rec.OwnerID, rec.Key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIdempotencyCache_CorruptEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Minute)

	ownerID := uuid.New()
	require.NoError(t, mr.Set(cacheKey(ownerID, "k1"), "not-json"))

	got, err := cache.Get(ctx, ownerID, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIdempotencyCache_Unavailable(t *testing.T) {
	ctx := context.Background()
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()
	cache := NewIdempotencyCache(slog.New(slog.NewTextHandler(os.Stdout, nil)), client, time.Minute)

	_, err := cache.Get(ctx, uuid.New(), "k1")
	assert.ErrorContains(t, err, "failed to read idempotency cache")

	err = cache.Set(ctx, &idempotency.Record{OwnerID: uuid.New(), Key: "k1", Result: json.RawMessage(`{}`)})
	assert.ErrorContains(t, err, "failed to write idempotency cache")
}
