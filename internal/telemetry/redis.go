package telemetry

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher adapts a redis.Cmdable (either *redis.Client or
// *redis.ClusterClient, both satisfy it) to Publisher.
type RedisPublisher struct {
	Client redis.Cmdable
}

func (p RedisPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	return p.Client.Publish(ctx, channel, message).Err()
}
