package rotation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
)

// RedisStore keeps rotation state in Redis so several scraper workers can
// share cooldown and avoidance decisions. Values are JSON with a TTL: stale
// state older than a day is worthless anyway.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ StateStore = (*RedisStore)(nil)

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, ttl: 24 * time.Hour}, nil
}

func usageKey(source string) string { return "rotation:usage:" + source }

func sportKey(source, sport string) string { return "rotation:sport:" + source + ":" + sport }

func (r *RedisStore) Usage(ctx context.Context, source string) (models.SourceUsage, error) {
	var u models.SourceUsage
	err := r.get(ctx, usageKey(source), &u)
	return u, err
}

func (r *RedisStore) SetUsage(ctx context.Context, source string, u models.SourceUsage) error {
	return r.set(ctx, usageKey(source), u)
}

func (r *RedisStore) SportStats(ctx context.Context, source, sport string) (models.SportSourceStats, error) {
	var s models.SportSourceStats
	err := r.get(ctx, sportKey(source, sport), &s)
	return s, err
}

func (r *RedisStore) SetSportStats(ctx context.Context, source, sport string, s models.SportSourceStats) error {
	return r.set(ctx, sportKey(source, sport), s)
}

func (r *RedisStore) get(ctx context.Context, key string, out any) error {
	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // zero value, same as a fresh MemoryStore
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
