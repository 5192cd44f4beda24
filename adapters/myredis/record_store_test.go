package myredis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"myregistry/domain"
	"myregistry/helpers"
	"myregistry/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kit/log"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var target = domain.HostAndPort{Host: "10.0.0.1", Port: 8080}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisUniversalClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func newTestStore(client redis.UniversalClient, ttl time.Duration) *RecordStore {
	return NewRecordStore(client, ttl, service.NewTimeProvider(helpers.TestNow), log.NewNopLogger())
}

func newRecord(scheme string, ago time.Duration, value string) domain.StoreRecord {
	return domain.StoreRecord{SchemeName: scheme, Timestamp: helpers.TestNow().Add(-ago).UnixMilli(), Value: value}
}

func TestNewRecordStore_Panics(t *testing.T) {
	_, client := setupTestRedis(t)
	tp := service.NewTimeProvider(helpers.TestNow)

	assert.Panics(t, func() { NewRecordStore(nil, time.Minute, tp, log.NewNopLogger()) })
	assert.Panics(t, func() { NewRecordStore(client, 0, tp, log.NewNopLogger()) })
	assert.Panics(t, func() { NewRecordStore(client, time.Minute, nil, log.NewNopLogger()) })
	assert.Panics(t, func() { NewRecordStore(client, time.Minute, tp, nil) })
}

func TestRecordStore_AddRecords(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := newTestStore(client, time.Hour)

	require.NoError(t, store.EnsureSchema(ctx, target, []string{"memory", "threads"}))
	require.NoError(t, store.AddRecords(ctx, target, []domain.StoreRecord{
		newRecord("memory", time.Minute, `{"used":1}`),
		newRecord("threads", time.Minute, `{"count":4}`),
		newRecord("memory", 0, `{"used":2}`),
	}))

	members, err := mr.ZMembers("10.0.0.1_8080_memory")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	score, err := mr.ZScore("10.0.0.1_8080_threads", mustJSON(t, newRecord("threads", time.Minute, `{"count":4}`)))
	require.NoError(t, err)
	assert.Equal(t, float64(helpers.TestNow().Add(-time.Minute).UnixMilli()), score)
}

func TestRecordStore_AddRecordsTrimsExpired(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := newTestStore(client, time.Hour)

	require.NoError(t, store.AddRecords(ctx, target, []domain.StoreRecord{
		newRecord("memory", 3*time.Hour, `{"used":0}`),
		newRecord("memory", 2*time.Hour, `{"used":1}`),
	}))
	require.NoError(t, store.AddRecords(ctx, target, []domain.StoreRecord{newRecord("memory", 0, `{"used":2}`)}))

	members, err := mr.ZMembers("10.0.0.1_8080_memory")
	require.NoError(t, err)
	assert.Equal(t, []string{mustJSON(t, newRecord("memory", 0, `{"used":2}`))}, members)
}

func TestRecordStore_AddRecordsExpiresIdleKeys(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := newTestStore(client, time.Hour)
	key := "10.0.0.1_8080_memory"

	require.NoError(t, store.AddRecords(ctx, target, []domain.StoreRecord{newRecord("memory", 0, `{"used":1}`)}))
	assert.Equal(t, time.Hour, mr.TTL(key))

	mr.FastForward(30 * time.Minute)
	require.NoError(t, store.AddRecords(ctx, target, []domain.StoreRecord{newRecord("memory", 0, `{"used":2}`)}))
	assert.Equal(t, time.Hour, mr.TTL(key), "an append refreshes the expiry")

	mr.FastForward(time.Hour + time.Second)
	assert.False(t, mr.Exists(key))
}

func TestRecordStore_AddRecordsEdgeCases(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := newTestStore(client, time.Hour)

	t.Run("empty batch is a no-op", func(t *testing.T) {
		require.NoError(t, store.AddRecords(ctx, target, nil))
		assert.Empty(t, mr.Keys())
	})

	t.Run("missing scheme is a bad parameter", func(t *testing.T) {
		err := store.AddRecords(ctx, target, []domain.StoreRecord{{Timestamp: 1, Value: "1"}})
		assert.True(t, service.IsBadParameterError(err), err)
		assert.Empty(t, mr.Keys())
	})

	t.Run("when Redis fails returns internal_server_error", func(t *testing.T) {
		closed, err := NewRedisUniversalClient("redis://" + mr.Addr())
		require.NoError(t, err)
		closed.Close()

		err = newTestStore(closed, time.Hour).AddRecords(ctx, target, []domain.StoreRecord{newRecord("memory", 0, "1")})
		assert.True(t, service.IsInternalServerError(err), err)
	})
}

func TestRecordStore_GetLatestRecords(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	store := newTestStore(client, 24*time.Hour)

	require.NoError(t, store.AddRecords(ctx, target, []domain.StoreRecord{
		newRecord("memory", time.Minute, `{"used":3}`),
		newRecord("memory", 2*time.Hour, `{"used":1}`),
		newRecord("memory", 10*time.Minute, `{"used":2}`),
		newRecord("threads", time.Minute, `{"count":4}`),
	}))
	_, err := mr.ZAdd("10.0.0.1_8080_memory", float64(helpers.TestNowMs()-1000), "not json")
	require.NoError(t, err)

	tests := []struct {
		name     string
		scheme   string
		duration time.Duration
		want     []string
	}{
		{name: "last hour oldest first", scheme: "memory", duration: time.Hour, want: []string{`{"used":2}`, `{"used":3}`}},
		{name: "whole window", scheme: "memory", duration: 3 * time.Hour, want: []string{`{"used":1}`, `{"used":2}`, `{"used":3}`}},
		{name: "other scheme", scheme: "threads", duration: time.Hour, want: []string{`{"count":4}`}},
		{name: "unknown scheme", scheme: "nope", duration: time.Hour, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetLatestRecords(ctx, target, tt.scheme, tt.duration)
			require.NoError(t, err)
			values := make([]string, 0, len(got))
			for _, r := range got {
				assert.Equal(t, tt.scheme, r.SchemeName)
				values = append(values, r.Value)
			}
			assert.Equal(t, tt.want, values)
		})
	}

	t.Run("when Redis fails returns internal_server_error", func(t *testing.T) {
		closed, err := NewRedisUniversalClient("redis://" + mr.Addr())
		require.NoError(t, err)
		closed.Close()

		got, err := newTestStore(closed, time.Hour).GetLatestRecords(ctx, target, "memory", time.Hour)
		assert.True(t, service.IsInternalServerError(err), err)
		assert.Nil(t, got)
	})
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
