package telemetry

import "context"

// Publisher is the subset of redis.Cmdable the sink needs, generalized so
// tests can substitute a fake without a live Redis connection. *redis.Client
// and *redis.ClusterClient both satisfy redis.Cmdable and therefore this
// interface, matching the reference rate limiter's own Cmdable-typed
// dependency.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}
