package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/pkg/metrics"
)

// KeyPrefix namespaces schedule records in Redis.
const KeyPrefix = "tatami:schedule:"

// saveScript writes the record hash unless a newer revision is already stored.
var saveScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'revision')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'revision', ARGV[1], 'payload', ARGV[2])
return 1
`)

// RedisPersister stores each record as a hash of {revision, payload}.
type RedisPersister struct {
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, db int) (*RedisPersister, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisPersister{client: client}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client) *RedisPersister {
	return &RedisPersister{client: client}
}

func key(tournamentID string) string { return KeyPrefix + tournamentID }

// Load implements Persister.
func (r *RedisPersister) Load(ctx context.Context, tournamentID string) (*types.ScheduleRecord, error) {
	start := time.Now()
	val, err := r.client.HGet(ctx, key(tournamentID), "payload").Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordPersistenceLoad(BackendRedis, "miss", elapsedMs(start))
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordPersistenceError(BackendRedis, "load")
		return nil, fmt.Errorf("redis load %s: %w", tournamentID, err)
	}
	rec, err := decode(val)
	if err != nil {
		metrics.RecordPersistenceError(BackendRedis, "load")
		return nil, err
	}
	metrics.RecordPersistenceLoad(BackendRedis, "hit", elapsedMs(start))
	return rec, nil
}

// Save implements Persister.
func (r *RedisPersister) Save(ctx context.Context, rec *types.ScheduleRecord) error {
	start := time.Now()
	b, err := encode(rec)
	if err != nil {
		metrics.RecordPersistenceError(BackendRedis, "save")
		return err
	}
	if err := saveScript.Run(ctx, r.client, []string{key(rec.TournamentID)}, rec.Revision, b).Err(); err != nil {
		metrics.RecordPersistenceError(BackendRedis, "save")
		return fmt.Errorf("redis save %s: %w", rec.TournamentID, err)
	}
	metrics.RecordPersistenceSave(BackendRedis, elapsedMs(start))
	return nil
}

// Close implements Persister.
func (r *RedisPersister) Close() error {
	return r.client.Close()
}
