package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/pickboard/internal/domain/pick"
)

const DefaultRedisKey = "pickboard:snapshot"

// RedisStore keeps the snapshot under a single key, optionally expiring.
type RedisStore struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (pick.Snapshot, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return pick.Snapshot{}, false, nil
	}
	if err != nil {
		return pick.Snapshot{}, false, fmt.Errorf("get snapshot %s: %w", s.key, err)
	}

	var snapshot pick.Snapshot
	if err := sonic.Unmarshal(raw, &snapshot); err != nil {
		return pick.Snapshot{}, false, fmt.Errorf("decode snapshot %s: %w", s.key, err)
	}
	return snapshot, true, nil
}

func (s *RedisStore) Save(ctx context.Context, snapshot pick.Snapshot) error {
	raw, err := sonic.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot %s: %w", s.key, err)
	}
	return nil
}
