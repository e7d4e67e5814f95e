package sqlstore

import (
	"context"
	"fmt"
	"maps"
	"net/url"
	"strings"

	"github.com/goliatone/go-dispatcher/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const activityCountCacheKeyPrefix = "go-dispatcher::activity_count::v1"

// ActionCounter reports recorded entries per action for a space.
type ActionCounter interface {
	CountByAction(ctx context.Context, space string) (map[string]int, error)
}

// CachedActivityCounter fronts an ActionCounter with a read-through cache.
// Record writes through to the sink and drops the cached counts of the
// entry's space and of the all-spaces key.
type CachedActivityCounter struct {
	base  ActionCounter
	sink  core.ActivitySink
	cache repositorycache.CacheService
}

func NewCachedActivityCounter(
	base ActionCounter,
	cacheService repositorycache.CacheService,
) (*CachedActivityCounter, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base activity counter is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: activity count cache service is required")
	}
	counter := &CachedActivityCounter{base: base, cache: cacheService}
	if sink, ok := base.(core.ActivitySink); ok {
		counter.sink = sink
	}
	return counter, nil
}

// ActivityCountCacheKey returns go-dispatcher::activity_count::v1::<space>,
// using "all" when space is empty.
func ActivityCountCacheKey(space string) string {
	name := core.NormalizeSpace(space)
	if name == "" {
		name = "all"
	}
	return strings.Join([]string{activityCountCacheKeyPrefix, url.PathEscape(name)}, "::")
}

func (c *CachedActivityCounter) CountByAction(ctx context.Context, space string) (map[string]int, error) {
	if c == nil || c.base == nil || c.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached activity counter is not configured")
	}
	space = core.NormalizeSpace(space)
	counts, err := repositorycache.GetOrFetch(ctx, c.cache, ActivityCountCacheKey(space), func(ctx context.Context) (map[string]int, error) {
		fetched, fetchErr := c.base.CountByAction(ctx, space)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return maps.Clone(fetched), nil
	})
	if err != nil {
		return nil, err
	}
	return maps.Clone(counts), nil
}

func (c *CachedActivityCounter) Record(ctx context.Context, entry core.ActivityEntry) error {
	if c == nil || c.sink == nil || c.cache == nil {
		return fmt.Errorf("sqlstore: cached activity counter has no sink")
	}
	if err := c.sink.Record(ctx, entry); err != nil {
		return err
	}
	return c.Invalidate(ctx, entry.Space)
}

func (c *CachedActivityCounter) List(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error) {
	if c == nil || c.sink == nil {
		return core.ActivityPage{}, fmt.Errorf("sqlstore: cached activity counter has no sink")
	}
	return c.sink.List(ctx, filter)
}

// Prune forwards to the base store when it supports retention and drops
// every cached count afterwards.
func (c *CachedActivityCounter) Prune(ctx context.Context, policy core.ActivityRetentionPolicy) (int, error) {
	if c == nil || c.cache == nil {
		return 0, fmt.Errorf("sqlstore: cached activity counter is not configured")
	}
	pruner, ok := c.base.(core.ActivityRetentionPruner)
	if !ok {
		return 0, nil
	}
	deleted, err := pruner.Prune(ctx, policy)
	if err != nil {
		return deleted, err
	}
	for _, space := range []string{core.SpaceActivity, core.SpacePermission} {
		if err := c.Invalidate(ctx, space); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// Invalidate drops the cached counts for space and for the all-spaces key.
func (c *CachedActivityCounter) Invalidate(ctx context.Context, space string) error {
	if c == nil || c.cache == nil {
		return fmt.Errorf("sqlstore: cached activity counter is not configured")
	}
	keys := []string{ActivityCountCacheKey("")}
	if name := core.NormalizeSpace(space); name != "" {
		keys = append(keys, ActivityCountCacheKey(name))
	}
	for _, key := range keys {
		if err := c.cache.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
