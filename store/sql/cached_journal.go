package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-vdrpool/core"
)

const operationCacheKeyPrefix = "go-vdrpool::operation::v1"

// OperationStore is a journal that can also read back what it wrote.
type OperationStore interface {
	core.OperationJournal
	core.OperationReader
}

// CachedJournal serves Get from a cache and drops the cached entry whenever
// the operation is finished.
type CachedJournal struct {
	base  OperationStore
	cache repositorycache.CacheService
}

func NewCachedJournal(base OperationStore, cacheService repositorycache.CacheService) (*CachedJournal, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base journal store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: journal cache service is required")
	}
	return &CachedJournal{base: base, cache: cacheService}, nil
}

// OperationCacheKey returns go-vdrpool::operation::v1::<id> with the id URL
// path escaped.
func OperationCacheKey(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: operation id is required")
	}
	return operationCacheKeyPrefix + "::" + url.PathEscape(trimmed), nil
}

func (c *CachedJournal) Begin(ctx context.Context, op core.Operation) error {
	if c == nil || c.base == nil {
		return fmt.Errorf("sqlstore: cached journal is not configured")
	}
	return c.base.Begin(ctx, op)
}

func (c *CachedJournal) Finish(ctx context.Context, id string, outcome core.OperationOutcome) error {
	if c == nil || c.base == nil || c.cache == nil {
		return fmt.Errorf("sqlstore: cached journal is not configured")
	}
	if err := c.base.Finish(ctx, id, outcome); err != nil {
		return err
	}
	key, err := OperationCacheKey(id)
	if err != nil {
		return err
	}
	return c.cache.Delete(ctx, key)
}

func (c *CachedJournal) Get(ctx context.Context, id string) (core.Operation, error) {
	if c == nil || c.base == nil || c.cache == nil {
		return core.Operation{}, fmt.Errorf("sqlstore: cached journal is not configured")
	}
	key, err := OperationCacheKey(id)
	if err != nil {
		return core.Operation{}, err
	}
	op, err := repositorycache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (core.Operation, error) {
		return c.base.Get(ctx, strings.TrimSpace(id))
	})
	if err != nil {
		return core.Operation{}, err
	}
	op.CompletedAt = cloneTimePointer(op.CompletedAt)
	return op, nil
}

// ListByPool is not cached; it passes through when the base store lists.
func (c *CachedJournal) ListByPool(ctx context.Context, pool core.PoolHandle, limit int) ([]core.Operation, error) {
	if c == nil || c.base == nil {
		return nil, fmt.Errorf("sqlstore: cached journal is not configured")
	}
	lister, ok := c.base.(interface {
		ListByPool(ctx context.Context, pool core.PoolHandle, limit int) ([]core.Operation, error)
	})
	if !ok {
		return nil, fmt.Errorf("sqlstore: base journal store cannot list operations")
	}
	return lister.ListByPool(ctx, pool, limit)
}
