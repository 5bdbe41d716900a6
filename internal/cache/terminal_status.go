package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/clinicpay/terminal-bridge/internal/config"
	"github.com/go-redis/redis/v8"
)

// TerminalStatus is the last-known connectivity state of a terminal
type TerminalStatus struct {
	Online    bool      `json:"online"`
	Available bool      `json:"available"`
	CheckedAt time.Time `json:"checked_at"`
}

// TerminalStatusCache keeps the last-known terminal connectivity status
// in Redis with a short TTL, so back-to-back payment initiations do not
// each round-trip to the Paystack presence endpoint. The cache is
// best-effort: without Redis every check goes to the gateway.
type TerminalStatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTerminalStatusCache creates a cache from the Redis config. A bad
// Redis URL disables caching rather than failing startup.
func NewTerminalStatusCache(cfg config.RedisConfig, ttl time.Duration) *TerminalStatusCache {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Printf("Invalid Redis URL, terminal status caching disabled: %v", err)
		return &TerminalStatusCache{ttl: ttl}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB

	return &TerminalStatusCache{
		client: redis.NewClient(opts),
		ttl:    ttl,
	}
}

func terminalKey(terminalID string) string {
	return "terminal:status:" + terminalID
}

// Get returns the cached status for a terminal, if present and fresh
func (c *TerminalStatusCache) Get(ctx context.Context, terminalID string) (*TerminalStatus, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, terminalKey(terminalID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Failed to read terminal status cache: %v", err)
		}
		return nil, false
	}

	var status TerminalStatus
	if err := json.Unmarshal(data, &status); err != nil {
		log.Printf("Failed to decode cached terminal status: %v", err)
		return nil, false
	}

	return &status, true
}

// Set stores the latest status for a terminal
func (c *TerminalStatusCache) Set(ctx context.Context, terminalID string, status TerminalStatus) {
	if c == nil || c.client == nil {
		return
	}

	data, err := json.Marshal(status)
	if err != nil {
		log.Printf("Failed to encode terminal status: %v", err)
		return
	}

	if err := c.client.Set(ctx, terminalKey(terminalID), data, c.ttl).Err(); err != nil {
		log.Printf("Failed to write terminal status cache: %v", err)
	}
}
