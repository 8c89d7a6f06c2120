package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/triggers/engine/trigger"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const DefaultLinkCacheSize = 1024

// RunResolver looks up which execution and definition started an orchestrator run.
type RunResolver interface {
	ResolveRun(ctx context.Context, externalRunID string) (*trigger.RunLink, error)
}

// LinkCache memoizes run linkage per external run id. Concurrent misses for
// the same run share one lookup and unresolved runs are not cached.
type LinkCache struct {
	resolver RunResolver
	cache    *lru.Cache[string, trigger.RunLink]
	group    singleflight.Group
}

func NewLinkCache(resolver RunResolver, size int) (*LinkCache, error) {
	if size <= 0 {
		size = DefaultLinkCacheSize
	}
	cache, err := lru.New[string, trigger.RunLink](size)
	if err != nil {
		return nil, fmt.Errorf("link cache: init: %w", err)
	}
	return &LinkCache{resolver: resolver, cache: cache}, nil
}

func (c *LinkCache) Resolve(ctx context.Context, externalRunID string) (*trigger.RunLink, error) {
	if link, ok := c.cache.Get(externalRunID); ok {
		return &link, nil
	}
	v, err, _ := c.group.Do(externalRunID, func() (any, error) {
		if link, ok := c.cache.Get(externalRunID); ok {
			return link, nil
		}
		link, err := c.resolver.ResolveRun(ctx, externalRunID)
		if err != nil {
			return nil, err
		}
		if link == nil {
			return nil, trigger.ErrRunNotFound
		}
		c.cache.Add(externalRunID, *link)
		return *link, nil
	})
	if err != nil {
		return nil, err
	}
	link, ok := v.(trigger.RunLink)
	if !ok {
		return nil, errors.New("link cache: unexpected value type")
	}
	return &link, nil
}

func (c *LinkCache) Len() int {
	return c.cache.Len()
}
