package sequence

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "counter:"

// RedisStore keeps counters as Redis integers. INCRBY creates a missing key
// at zero before adding, so the upsert and increment are one command.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Increment(ctx context.Context, key string, by int64) (int64, error) {
	value, err := s.client.IncrBy(ctx, redisKeyPrefix+key, by).Result()
	if err != nil {
		if isRedisConflict(err) {
			return 0, errors.Join(ErrWriteConflict, err)
		}
		return 0, err
	}
	return value, nil
}

// Cluster failover replies are transient and safe to retry.
func isRedisConflict(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "TRYAGAIN") || strings.HasPrefix(msg, "LOADING") || strings.HasPrefix(msg, "CLUSTERDOWN")
}
