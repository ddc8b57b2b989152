package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCheckpointStore backs the checkpoint contract with a
// Redis-resident key per user, JSON-serializing PipelineState and
// relying on Redis's own TTL for expiry rather than a lazy
// application-side check. Intended for multi-instance deployments
// where MemoryCheckpointStore's in-process map can't be shared —
// checkpoints are the one piece of PipelineState that genuinely needs
// to survive a process restart or be visible across replicas.
type RedisCheckpointStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCheckpointStore builds a RedisCheckpointStore against an
// already-constructed client.
func NewRedisCheckpointStore(client *redis.Client) *RedisCheckpointStore {
	return &RedisCheckpointStore{client: client, prefix: "convoassist:checkpoint:"}
}

func (s *RedisCheckpointStore) key(userID string) string {
	return s.prefix + userID
}

func (s *RedisCheckpointStore) Save(ctx context.Context, userID string, state PipelineState, ttl time.Duration) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("orchestrator: marshal checkpoint: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("orchestrator: save checkpoint: %w", err)
	}
	return nil
}

func (s *RedisCheckpointStore) Load(ctx context.Context, userID string) (PipelineState, bool, error) {
	payload, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		return PipelineState{}, false, nil
	}
	if err != nil {
		return PipelineState{}, false, fmt.Errorf("orchestrator: load checkpoint: %w", err)
	}
	var state PipelineState
	if err := json.Unmarshal(payload, &state); err != nil {
		return PipelineState{}, false, fmt.Errorf("orchestrator: unmarshal checkpoint: %w", err)
	}
	return state, true, nil
}

func (s *RedisCheckpointStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("orchestrator: clear checkpoint: %w", err)
	}
	return nil
}
