package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/gravity-indexer/internal/infra/retry"
)

// Client wraps Redis operations for gap tracking and run locks.
type Client struct {
	rdb *redis.Client

	mu     sync.Mutex
	tokens map[string]string // lock name -> owner token held by this process
}

// unlockScript deletes a lock only while it still carries our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = retry.Do(ctx, retry.Exponential(3, 200*time.Millisecond, 2*time.Second), func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb, tokens: make(map[string]string)}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func gapQueueKey(chainID string) string {
	return fmt.Sprintf("gaps:%s", chainID)
}

func gapMetaKey(chainID string) string {
	return fmt.Sprintf("gap_meta:%s", chainID)
}

func lockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

// TryLock attempts to take a named lock for ttl.
func (c *Client) TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, lockKey(name), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to take lock %s: %w", name, err)
	}
	if ok {
		c.mu.Lock()
		c.tokens[name] = token
		c.mu.Unlock()
	}
	return ok, nil
}

// Unlock releases a lock taken by this client. A lock that expired and was
// taken by another process is left alone.
func (c *Client) Unlock(ctx context.Context, name string) error {
	c.mu.Lock()
	token, ok := c.tokens[name]
	delete(c.tokens, name)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if err := unlockScript.Run(ctx, c.rdb, []string{lockKey(name)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
