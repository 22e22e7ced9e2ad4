package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// ruleCacheTTL bounds staleness if an invalidation is lost.
const ruleCacheTTL = 5 * time.Minute

// RuleCache decorates a workflowrule.Repository with a read-through cache on
// ListActive, the hot path of the event-driven engine. Writes invalidate the
// whole tenant so ordering changes take effect immediately.
type RuleCache struct {
	inner  workflowrule.Repository
	client *redis.Client
	logger *logger.Logger
}

// NewRuleCache creates a caching decorator over the given repository.
func NewRuleCache(inner workflowrule.Repository, client *Client, log *logger.Logger) *RuleCache {
	return &RuleCache{
		inner:  inner,
		client: client.Raw(),
		logger: log.With("component", "rule_cache"),
	}
}

func ruleCacheKey(tenantSlug string, entity workflowrule.EntityType, trigger workflowrule.TriggerType) string {
	return fmt.Sprintf("rules:%s:%s:%s", tenantSlug, entity, trigger)
}

func ruleCachePattern(tenantSlug string) string {
	return fmt.Sprintf("rules:%s:*", tenantSlug)
}

// ListActive serves from cache when possible. Cache failures degrade to the
// underlying repository, never to an error.
func (c *RuleCache) ListActive(ctx context.Context, tenantSlug string, entity workflowrule.EntityType, trigger workflowrule.TriggerType) ([]*workflowrule.Rule, error) {
	key := ruleCacheKey(tenantSlug, entity, trigger)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var rules []*workflowrule.Rule
		if err := json.Unmarshal(data, &rules); err == nil {
			return rules, nil
		}
		c.logger.Warn("corrupt rule cache entry, refetching", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("rule cache read failed", "key", key, "error", err)
	}

	rules, err := c.inner.ListActive(ctx, tenantSlug, entity, trigger)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rules); err == nil {
		if err := c.client.Set(ctx, key, data, ruleCacheTTL).Err(); err != nil {
			c.logger.Warn("rule cache write failed", "key", key, "error", err)
		}
	}
	return rules, nil
}

// Create passes through and invalidates the tenant's cached lists.
func (c *RuleCache) Create(ctx context.Context, tenantSlug string, r *workflowrule.Rule) error {
	if err := c.inner.Create(ctx, tenantSlug, r); err != nil {
		return err
	}
	c.invalidate(ctx, tenantSlug)
	return nil
}

// Update passes through and invalidates the tenant's cached lists.
func (c *RuleCache) Update(ctx context.Context, tenantSlug string, r *workflowrule.Rule) error {
	if err := c.inner.Update(ctx, tenantSlug, r); err != nil {
		return err
	}
	c.invalidate(ctx, tenantSlug)
	return nil
}

// GetByID always reads through; single-rule reads are not on the hot path.
func (c *RuleCache) GetByID(ctx context.Context, tenantSlug string, id shared.ID) (*workflowrule.Rule, error) {
	return c.inner.GetByID(ctx, tenantSlug, id)
}

// Delete passes through and invalidates the tenant's cached lists.
func (c *RuleCache) Delete(ctx context.Context, tenantSlug string, id shared.ID) error {
	if err := c.inner.Delete(ctx, tenantSlug, id); err != nil {
		return err
	}
	c.invalidate(ctx, tenantSlug)
	return nil
}

func (c *RuleCache) invalidate(ctx context.Context, tenantSlug string) {
	iter := c.client.Scan(ctx, 0, ruleCachePattern(tenantSlug), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("rule cache scan failed", "tenant", tenantSlug, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("rule cache invalidation failed", "tenant", tenantSlug, "error", err)
	}
}
