// Package cache provides a best-effort, time-bounded response cache backed
// by Redis. Every operation is advisory: backend errors are logged and
// swallowed, and a miss never blocks the pipeline.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signalpulse/pulse/config"
	"github.com/signalpulse/pulse/internal/agent/core"
)

type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// New connects to Redis and verifies the connection. A nil cache is a valid
// no-op value for callers that disable caching.
func New(ctx context.Context, cfg config.CacheConfig) (*ResponseCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ResponseCache{
		client: client,
		ttl:    ttl,
		logger: log.New(log.Writer(), "[CACHE] ", log.LstdFlags),
	}, nil
}

func (c *ResponseCache) key(fingerprint string) string { return "pulse:brief:" + fingerprint }

func (c *ResponseCache) Get(ctx context.Context, fingerprint string) (core.AgentResponse, bool) {
	if c == nil {
		return core.AgentResponse{}, false
	}
	raw, err := c.client.Get(ctx, c.key(fingerprint)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Printf("get failed: %v", err)
		}
		return core.AgentResponse{}, false
	}
	var resp core.AgentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Printf("corrupt cache entry dropped: %v", err)
		return core.AgentResponse{}, false
	}
	return resp, true
}

func (c *ResponseCache) Set(ctx context.Context, fingerprint string, resp core.AgentResponse) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		c.logger.Printf("marshal failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, c.key(fingerprint), raw, c.ttl).Err(); err != nil {
		c.logger.Printf("set failed: %v", err)
	}
}
