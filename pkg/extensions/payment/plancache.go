package payment

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PlanCache remembers custom plans created on demand. It is best effort:
// losing entries only costs an extra plan at the gateway.
type PlanCache interface {
	Get(ctx context.Context, amount int64) (string, bool)
	Set(ctx context.Context, amount int64, planID string)
}

type MemoryPlanCache struct {
	mu    sync.RWMutex
	plans map[int64]string
}

func NewMemoryPlanCache() *MemoryPlanCache {
	return &MemoryPlanCache{plans: make(map[int64]string)}
}

func (c *MemoryPlanCache) Get(_ context.Context, amount int64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.plans[amount]
	return id, ok
}

func (c *MemoryPlanCache) Set(_ context.Context, amount int64, planID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans[amount] = planID
}

// RedisPlanCache shares custom plans between instances.
type RedisPlanCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisPlanCache(client *redis.Client, ttl time.Duration) *RedisPlanCache {
	return &RedisPlanCache{client: client, prefix: "donate:plan:", ttl: ttl}
}

func (c *RedisPlanCache) key(amount int64) string {
	return c.prefix + strconv.FormatInt(amount, 10)
}

// Get treats redis errors as a miss.
func (c *RedisPlanCache) Get(ctx context.Context, amount int64) (string, bool) {
	id, err := c.client.Get(ctx, c.key(amount)).Result()
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (c *RedisPlanCache) Set(ctx context.Context, amount int64, planID string) {
	_ = c.client.Set(ctx, c.key(amount), planID, c.ttl).Err()
}
