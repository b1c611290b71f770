package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeStore keeps at most one hashed code per account and purpose.
type CodeStore interface {
	Put(ctx context.Context, accountID int64, purpose Purpose, codeHash string, ttl time.Duration) error
	Get(ctx context.Context, accountID int64, purpose Purpose) (string, bool, error)
	Delete(ctx context.Context, accountID int64, purpose Purpose) error
}

type RedisCodeStore struct {
	Redis  *redis.Client
	Prefix string
}

func NewRedisCodeStore(client *redis.Client, prefix string) *RedisCodeStore {
	return &RedisCodeStore{Redis: client, Prefix: prefix}
}

func (s *RedisCodeStore) key(accountID int64, purpose Purpose) string {
	return s.Prefix + string(purpose) + ":" + strconv.FormatInt(accountID, 10)
}

func (s *RedisCodeStore) Put(ctx context.Context, accountID int64, purpose Purpose, codeHash string, ttl time.Duration) error {
	return s.Redis.Set(ctx, s.key(accountID, purpose), codeHash, ttl).Err()
}

// Get reports false when no live code exists.
func (s *RedisCodeStore) Get(ctx context.Context, accountID int64, purpose Purpose) (string, bool, error) {
	val, err := s.Redis.Get(ctx, s.key(accountID, purpose)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisCodeStore) Delete(ctx context.Context, accountID int64, purpose Purpose) error {
	return s.Redis.Del(ctx, s.key(accountID, purpose)).Err()
}
