package redisrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jrsteele09/go-inventory-admin/sessions"
)

const sessionPrefix = "session:"

var _ sessions.Repo = (*RedisRepo)(nil)

// RedisRepo keeps a session in one Redis hash per backend origin.
type RedisRepo struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

type Option func(*RedisRepo)

// WithTTL expires the whole session hash ttl after its last write.
func WithTTL(ttl time.Duration) Option {
	return func(r *RedisRepo) {
		r.ttl = ttl
	}
}

// Connect opens a client for redisURL and checks the connection.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func New(client redis.Cmdable, origin string, opts ...Option) *RedisRepo {
	r := &RedisRepo{client: client, key: Key(origin)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the hash holding the session for origin.
func Key(origin string) string {
	return sessionPrefix + origin
}

func (r *RedisRepo) Load(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := r.client.HMGet(ctx, r.key, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session from Redis: %w", err)
	}
	for i, v := range values {
		// missing fields come back as nil
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

// Store writes every field and refreshes the TTL in one transaction.
func (r *RedisRepo) Store(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = v
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key, fields)
		if r.ttl > 0 {
			pipe.Expire(ctx, r.key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session to Redis: %w", err)
	}
	return nil
}

func (r *RedisRepo) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.HDel(ctx, r.key, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete session from Redis: %w", err)
	}
	return nil
}
