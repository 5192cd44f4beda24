package myredis

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"myregistry/domain"
	"myregistry/helpers"
	"myregistry/interfaces"
	"myregistry/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"
)

// RecordStore keeps records in one sorted set per instance and scheme, scored by timestamp.
// Appends trim members older than the TTL relative to the appended record and push the key's
// expiry one TTL ahead, so keys of instances that stopped recording disappear.
type RecordStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	tp     interfaces.TimeProvider
	logger log.Logger
}

var (
	_ interfaces.RecordImporter = (*RecordStore)(nil)
	_ interfaces.RecordExporter = (*RecordStore)(nil)
)

// NewRecordStore creates a store. Panics on nil dependencies or a non-positive ttl.
func NewRecordStore(client redis.UniversalClient, ttl time.Duration, tp interfaces.TimeProvider, logger log.Logger) *RecordStore {
	if ttl <= 0 {
		panic("myredis.record_store.go: ttl must be positive")
	}
	return &RecordStore{
		client: helpers.NilPanic(client, "myredis.record_store.go: client is required"),
		ttl:    ttl,
		tp:     helpers.NilPanic(tp, "myredis.record_store.go: time provider is required"),
		logger: log.With(helpers.NilPanic(logger, "myredis.record_store.go: logger is required"), "component", "RecordStore"),
	}
}

// EnsureSchema has nothing to prepare: sorted sets are created on first write.
func (r *RecordStore) EnsureSchema(_ context.Context, target domain.HostAndPort, schemes []string) error {
	level.Debug(r.logger).Log("msg", "schema needs no preparation", "instance", target.InstanceID(), "schemes", len(schemes))
	return nil
}

// AddRecords appends records in one transaction.
func (r *RecordStore) AddRecords(ctx context.Context, target domain.HostAndPort, records []domain.StoreRecord) error {
	if len(records) == 0 {
		return nil
	}

	instanceID := target.InstanceID()
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, record := range records {
			if record.SchemeName == "" {
				return service.NewBadParameterError("record scheme is required", nil)
			}
			member, err := json.Marshal(record)
			if err != nil {
				return service.NewInternalServerError("Redis marshal record error", fmt.Errorf("can't marshal record %s, err: %w", record.SchemeName, err))
			}
			key := recordKey(instanceID, record.SchemeName)
			expired := record.Timestamp - r.ttl.Milliseconds()
			pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(expired, 10))
			pipe.ZAdd(ctx, key, &redis.Z{Score: float64(record.Timestamp), Member: member})
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if service.ToRegistryError(err) != nil {
		return err
	}
	if err != nil {
		return service.NewInternalServerError("Redis add records error", fmt.Errorf("can't add %d records for %s, err: %w", len(records), instanceID, err))
	}
	return nil
}

// GetLatestRecords returns the records of scheme from the last duration, oldest first.
// Members that are not valid records are skipped.
func (r *RecordStore) GetLatestRecords(ctx context.Context, target domain.HostAndPort, scheme string, duration time.Duration) ([]domain.StoreRecord, error) {
	now := service.NowMs(r.tp)
	key := recordKey(target.InstanceID(), scheme)

	members, err := r.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: strconv.FormatInt(now-duration.Milliseconds(), 10),
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil {
		return nil, service.NewInternalServerError("Redis read records error", fmt.Errorf("can't read records (key='%s'), err: %w", key, err))
	}

	records := make([]domain.StoreRecord, 0, len(members))
	for _, m := range members {
		var record domain.StoreRecord
		if err := json.Unmarshal([]byte(m), &record); err != nil {
			level.Warn(r.logger).Log("msg", "skipping malformed record", "key", key, "err", err)
			continue
		}
		records = append(records, record)
	}
	slices.SortStableFunc(records, func(a, b domain.StoreRecord) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
	return records, nil
}

func recordKey(instanceID, scheme string) string {
	return instanceID + "_" + scheme
}
