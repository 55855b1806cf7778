package store

import (
	"context"

	"sjsage522/jobfeedworker/logger"
	apperrors "sjsage522/jobfeedworker/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the seen set in a single Redis hash
type RedisStore struct {
	client *redis.Client
	key    string
	log    *logger.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed store
func NewRedisStore(addr string, db int, key string, log *logger.Logger) *RedisStore {
	if log == nil {
		log = logger.Nop()
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return &RedisStore{client: client, key: key, log: log}
}

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Load reads the hash. A missing key is an empty set; a key of another type
// or an unreachable server is a load error.
func (s *RedisStore) Load(ctx context.Context) (SeenSet, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, apperrors.NewLoad(s.key, "HGETALL failed", err)
	}
	s.log.Debug().Str("key", s.key).Int("links", len(values)).Msg("Loaded seen set")
	return SeenSet(values), nil
}

// Persist replaces the hash inside MULTI/EXEC so no reader observes a
// partially written set.
func (s *RedisStore) Persist(ctx context.Context, set SeenSet) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(set) > 0 {
			fields := make(map[string]interface{}, len(set))
			for link, marker := range set {
				fields[link] = marker
			}
			pipe.HSet(ctx, s.key, fields)
		}
		return nil
	})
	if err != nil {
		return apperrors.NewPersist(s.key, "transaction failed", err)
	}
	s.log.Debug().Str("key", s.key).Int("links", len(set)).Msg("Persisted seen set")
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
