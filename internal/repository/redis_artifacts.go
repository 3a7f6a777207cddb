package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	domrepo "PricePulse/internal/domain/repository"
)

// RedisArtifactStore keeps each product's artifacts in one hash:
// field <kind> holds the blob, field <kind>_at the save timestamp in
// unix nanoseconds. Deleting the product drops the whole hash.
type RedisArtifactStore struct {
	client *redis.Client
	prefix string
	clock  domrepo.Clock
}

var _ domrepo.ArtifactStore = (*RedisArtifactStore)(nil)

func NewRedisArtifactStore(client *redis.Client, prefix string, clock domrepo.Clock) *RedisArtifactStore {
	return &RedisArtifactStore{client: client, prefix: prefix, clock: clock}
}

func (s *RedisArtifactStore) Save(ctx context.Context, productID, kind string, blob []byte) error {
	key := s.key(productID)
	err := s.client.HSet(ctx, key,
		kind, blob,
		kind+"_at", strconv.FormatInt(s.clock.Now().UnixNano(), 10),
	).Err()
	if err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

func (s *RedisArtifactStore) Load(ctx context.Context, productID, kind string) ([]byte, time.Time, error) {
	key := s.key(productID)
	vals, err := s.client.HMGet(ctx, key, kind, kind+"_at").Result()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load artifact: %w", err)
	}
	if vals[0] == nil || vals[1] == nil {
		return nil, time.Time{}, domrepo.ErrArtifactNotFound
	}

	blob, ok := vals[0].(string)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("load artifact: unexpected blob type %T", vals[0])
	}
	tsRaw, ok := vals[1].(string)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("load artifact: unexpected timestamp type %T", vals[1])
	}
	nanos, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load artifact: parse timestamp: %w", err)
	}
	return []byte(blob), time.Unix(0, nanos), nil
}

func (s *RedisArtifactStore) Delete(ctx context.Context, productID string) error {
	if err := s.client.Del(ctx, s.key(productID)).Err(); err != nil {
		return fmt.Errorf("delete artifacts: %w", err)
	}
	return nil
}

func (s *RedisArtifactStore) key(productID string) string {
	return fmt.Sprintf("%s:artifact:%s", s.prefix, productID)
}
