package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const opTimeout = 2 * time.Second

// New builds a client with bounded dial/read/write timeouts so a stalled
// Redis cannot hang request handlers.
func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  opTimeout,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}
