// Package graphcache memoizes visualization graphs per (article id, content
// version) and guarantees each key is computed at most once under concurrent
// requests. Coordination is per key via singleflight, so unrelated articles
// compute fully in parallel.
package graphcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/resolve-studio/semgraph/internal/db"
	"github.com/resolve-studio/semgraph/internal/domain"
)

var graphKeyPrefix = domain.KeyPrefix + "graph:"

// ComputeFunc builds the graph for one (article, version) key. It runs at
// most once per key regardless of caller count.
type ComputeFunc func(ctx context.Context) (domain.Graph, error)

// store is the consumer interface for graph persistence (ISP). Nil store
// means in-process memoization only.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type memoEntry struct {
	version string
	graph   domain.Graph
}

// Cache is the single-flight graph cache. The in-memory layer keeps the
// current version per article (a save supersedes the old version); the
// persistent layer keeps every (article, version) artifact until TTL or an
// external eviction.
type Cache struct {
	group      singleflight.Group
	mu         sync.RWMutex
	memo       map[string]memoEntry
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a graph cache. s may be nil; ttl <= 0 persists without expiry.
// cacheTotal is a counter vec with label "result", passed explicitly.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		memo:       make(map[string]memoEntry),
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// GetOrCompute returns the cached graph for the key or computes it exactly
// once, sharing the in-flight result with concurrent callers. The compute
// runs detached from the caller's cancellation: an HTTP request timing out
// mid-computation does not abort work other callers are waiting on, and the
// finished artifact is cached for the next request. Failures are surfaced to
// every waiter of the flight and never cached.
func (c *Cache) GetOrCompute(
	ctx context.Context, articleID, version string, compute ComputeFunc,
) (domain.Graph, error) {
	if g, ok := c.fromMemo(articleID, version); ok {
		c.incCache("hit_memory")
		return g, nil
	}

	flightKey := articleID + "@" + version
	v, err, _ := c.group.Do(flightKey, func() (any, error) {
		// A prior flight may have finished between the memo check and here.
		if g, ok := c.fromMemo(articleID, version); ok {
			return g, nil
		}

		// Survives caller disconnects; see the method comment.
		detached := context.WithoutCancel(ctx)

		if g, ok := c.fromStore(detached, articleID, version); ok {
			c.incCache("hit_store")
			c.memoize(articleID, version, g)
			return g, nil
		}

		c.incCache("miss")
		g, err := compute(detached)
		if err != nil {
			return nil, fmt.Errorf("compute graph %s: %w", flightKey, err)
		}

		c.persist(detached, articleID, version, g)
		c.memoize(articleID, version, g)
		return g, nil
	})
	if err != nil {
		return domain.Graph{}, err
	}

	g, ok := v.(domain.Graph)
	if !ok {
		return domain.Graph{}, fmt.Errorf("unexpected flight result type %T", v)
	}
	return g, nil
}

// Invalidate drops the in-memory entry for an article. Called on content
// save so the next read computes the new version immediately.
func (c *Cache) Invalidate(articleID string) {
	c.mu.Lock()
	delete(c.memo, articleID)
	c.mu.Unlock()
}

func (c *Cache) fromMemo(articleID, version string) (domain.Graph, bool) {
	c.mu.RLock()
	e, ok := c.memo[articleID]
	c.mu.RUnlock()
	if !ok || e.version != version {
		return domain.Graph{}, false
	}
	return e.graph, true
}

func (c *Cache) memoize(articleID, version string, g domain.Graph) {
	c.mu.Lock()
	c.memo[articleID] = memoEntry{version: version, graph: g}
	c.mu.Unlock()
}

func (c *Cache) fromStore(ctx context.Context, articleID, version string) (domain.Graph, bool) {
	if c.store == nil {
		return domain.Graph{}, false
	}

	key := graphKey(articleID, version)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached graph", zap.String("key", key), zap.Error(err))
		}
		return domain.Graph{}, false
	}

	var g domain.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		c.logger.Warn("Failed to parse cached graph", zap.String("key", key), zap.Error(err))
		return domain.Graph{}, false
	}
	return g, true
}

func (c *Cache) persist(ctx context.Context, articleID, version string, g domain.Graph) {
	if c.store == nil {
		return
	}

	key := graphKey(articleID, version)
	data, err := json.Marshal(g)
	if err != nil {
		c.logger.Warn("Failed to marshal graph", zap.String("key", key), zap.Error(err))
		return
	}

	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, data, c.ttl)
	} else {
		err = c.store.Set(ctx, key, data)
	}
	if err != nil {
		c.logger.Warn("Failed to persist graph", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func graphKey(articleID, version string) string {
	return graphKeyPrefix + articleID + ":" + version
}
