package counter

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const webhookOutcomesKey = "payments:counters:webhook_outcomes"

// Counter accumulates webhook processing outcomes in Redis for the ops
// dashboard. Counts are advisory; the audit log is the durable record.
type Counter struct {
	client *redis.Client
}

// New creates a counter on top of an existing Redis client.
func New(client *redis.Client) *Counter {
	return &Counter{client: client}
}

// AddWebhookOutcome increments the pending counter for a dispatcher outcome.
// A nil counter or a cache error is ignored: metrics never block a webhook.
func (c *Counter) AddWebhookOutcome(ctx context.Context, outcome string) {
	if c == nil || c.client == nil || outcome == "" {
		return
	}
	_ = c.client.HIncrBy(ctx, webhookOutcomesKey, outcome, 1).Err()
}

// Snapshot returns the current outcome counts.
func (c *Counter) Snapshot(ctx context.Context) (map[string]string, error) {
	return c.client.HGetAll(ctx, webhookOutcomesKey).Result()
}
