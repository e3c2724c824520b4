package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shopdhq/shopd/internal/redisx"
)

var ErrSessionNotFound = errors.New("session not found")

// Sessions issues opaque bearer tokens backed by Redis with a TTL. The
// token carries no claims; resolution always goes through the store.
type Sessions struct {
	Redis *redis.Client
}

func (s *Sessions) Issue(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	key := fmt.Sprintf(redisx.KeySession, token)
	if err := s.Redis.Set(ctx, key, userID, redisx.TTLSession).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Sessions) Resolve(ctx context.Context, token string) (string, error) {
	key := fmt.Sprintf(redisx.KeySession, token)
	userID, err := s.Redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *Sessions) Revoke(ctx context.Context, token string) error {
	return s.Redis.Del(ctx, fmt.Sprintf(redisx.KeySession, token)).Err()
}
