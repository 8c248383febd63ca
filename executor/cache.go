package executor

import (
	"context"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"

	"fireant/domain"
)

var _ domain.QueryExecutor = (*CachingExecutor)(nil)

// CachingExecutor keeps the results of recent statements in memory, keyed by
// SQL text. Results are shared between callers and must not be modified.
type CachingExecutor struct {
	next    domain.QueryExecutor
	cache   *lru.Cache[string, *domain.Result]
	metrics *Metrics
}

// NewCachingExecutor wraps next with an LRU cache of size entries.
func NewCachingExecutor(next domain.QueryExecutor, size int) (*CachingExecutor, error) {
	cache, err := lru.New[string, *domain.Result](size)
	if err != nil {
		return nil, err
	}
	return &CachingExecutor{next: next, cache: cache}, nil
}

// SetMetrics counts hits and misses in m.
func (c *CachingExecutor) SetMetrics(m *Metrics) {
	c.metrics = m
}

// Execute answers from the cache or delegates and stores the result.
func (c *CachingExecutor) Execute(ctx context.Context, sqlQuery string) (*domain.Result, error) {
	if res, ok := c.cache.Get(sqlQuery); ok {
		c.metrics.cacheHit()
		return res, nil
	}
	c.metrics.cacheMiss()
	res, err := c.next.Execute(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	c.cache.Add(sqlQuery, res)
	return res, nil
}

// Len is the number of cached results.
func (c *CachingExecutor) Len() int { return c.cache.Len() }

// Purge drops every cached result.
func (c *CachingExecutor) Purge() { c.cache.Purge() }

// Close purges the cache and closes the wrapped executor if it is closable.
func (c *CachingExecutor) Close() error {
	c.cache.Purge()
	if closer, ok := c.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// CloseAll closes every closer and returns the combined errors.
func CloseAll(closers ...io.Closer) error {
	var err error
	for _, c := range closers {
		if c == nil {
			continue
		}
		err = multierr.Append(err, c.Close())
	}
	return err
}
