package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

const outputKeyPrefix = "swarmd:output:"

// OutputStore keeps the per-agent current-output slot in Redis. The
// runner overwrites it only on SUCCESS; reads never block the single
// writer. Postgres (RunStore.LatestOutput) is the durable fallback
// when the cache is cold.
type OutputStore struct {
	rdb *redis.Client
}

func NewOutputStore(rdb *redis.Client) *OutputStore {
	return &OutputStore{rdb: rdb}
}

func (s *OutputStore) Set(ctx context.Context, agentID string, output map[string]any) error {
	raw, err := json.Marshal(output)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, outputKeyPrefix+agentID, raw, 0).Err()
}

func (s *OutputStore) Get(ctx context.Context, agentID string) (map[string]any, error) {
	raw, err := s.rdb.Get(ctx, outputKeyPrefix+agentID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *OutputStore) Delete(ctx context.Context, agentID string) error {
	return s.rdb.Del(ctx, outputKeyPrefix+agentID).Err()
}
