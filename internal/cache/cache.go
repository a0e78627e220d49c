package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/kbchat/internal/chat"
)

const (
	answerPrefix    = "kbchat:answer:"
	limitPrefix     = "kbchat:limit:"
	requestCountKey = "request_count"
)

// Config describes the Redis connection.
type Config struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// Cache stores finished replies in Redis. It is a best-effort layer: callers
// treat every error as a miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is empty")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{client: client, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Key derives the cache key for a set of retrieval queries.
func Key(queries []string) string {
	sum := sha256.Sum256([]byte(strings.Join(queries, "\x00")))
	return answerPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached reply for key. A missing key is reported as
// (nil, false, nil).
func (c *Cache) Get(ctx context.Context, key string) (*chat.Reply, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var reply chat.Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached reply: %w", err)
	}
	return &reply, true, nil
}

// Set stores reply under key for the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, reply *chat.Reply) error {
	raw, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// TrackRequest increments the global request counter.
func (c *Cache) TrackRequest(ctx context.Context) (int64, error) {
	n, err := c.client.Incr(ctx, requestCountKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	return n, nil
}

// RequestCount returns the global request counter.
func (c *Cache) RequestCount(ctx context.Context) (int64, error) {
	n, err := c.client.Get(ctx, requestCountKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	return n, nil
}

// limitScript increments a fixed-window counter and sets its expiry on first use.
var limitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
    redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
    return 0
end
return 1
`)

// Allow reports whether client may make another request inside the current window.
func (c *Cache) Allow(ctx context.Context, client string, limit int, window time.Duration) (bool, error) {
	seconds := max(int(window.Seconds()), 1)
	res, err := limitScript.Run(ctx, c.client, []string{limitPrefix + client}, limit, seconds).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return res == 1, nil
}
