package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/statusservice/internal/domain/repository"
)

// RedisStore keeps a document under a single Redis key.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

var _ repository.DocumentStore = (*RedisStore)(nil)

// NewRedisStore returns a store for <prefix><name>.
func NewRedisStore(client redis.UniversalClient, prefix, name string) *RedisStore {
	return &RedisStore{client: client, key: prefix + name}
}

func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, content []byte) error {
	if err := s.client.Set(ctx, s.key, content, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Location() string {
	return "redis:" + s.key
}
