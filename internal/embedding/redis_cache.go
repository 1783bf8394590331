package embedding

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of the Redis client used by RedisCache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisCache stores vectors in Redis as little-endian float64 bytes.
type RedisCache struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a cache scoped to prefix. A zero ttl keeps entries forever.
func NewRedisCache(client RedisClient, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// DialRedis parses a redis:// URL and verifies the connection.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Get returns the vector stored at key.
func (c *RedisCache) Get(ctx context.Context, key string) (Vector, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	vec, err := decodeVector(data)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Set stores vec at key.
func (c *RedisCache) Set(ctx context.Context, key string, vec Vector) error {
	return c.client.Set(ctx, c.prefix+key, encodeVector(vec), c.ttl).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func encodeVector(vec Vector) []byte {
	buf := make([]byte, 8*len(vec))
	for i, x := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(x))
	}
	return buf
}

func decodeVector(data []byte) (Vector, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("corrupt cached vector: %d bytes", len(data))
	}
	vec := make(Vector, len(data)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return vec, nil
}

var _ Cache = (*RedisCache)(nil)
