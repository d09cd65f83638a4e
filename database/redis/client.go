package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	_ RedisClient = (*redis.Client)(nil)
	_ RedisClient = (*redis.ClusterClient)(nil)
)

// RedisClient is the subset of the go-redis client API the key-value store
// needs, satisfied by both single node and cluster clients.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd

	TxPipeline() redis.Pipeliner

	AddHook(hook redis.Hook)
	Close() error
}
