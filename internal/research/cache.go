package research

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheMaxSize = 128
	defaultCacheTTL     = 10 * time.Minute
)

// CacheConfig configures the research result cache.
type CacheConfig struct {
	MaxSize int
	TTL     time.Duration
}

// cacheEntry holds a cached successful result and the time it was stored.
type cacheEntry struct {
	data     string
	storedAt time.Time
}

// cachedInvoker decorates an Invoker with a TTL-bounded LRU cache over the
// read-only operations (search, extract, map). Deep research and crawling
// are never cached: both are expensive, instruction-shaped calls whose
// repetition is a caller bug rather than a cache opportunity.
type cachedInvoker struct {
	delegate Invoker
	cache    *lru.Cache[string, cacheEntry]
	ttl      time.Duration
}

// NewCachedInvoker wraps delegate with an LRU result cache. Zero config
// values fall back to defaults.
func NewCachedInvoker(delegate Invoker, cfg CacheConfig) Invoker {
	if delegate == nil {
		return nil
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultCacheMaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCacheTTL
	}
	cache, err := lru.New[string, cacheEntry](cfg.MaxSize)
	if err != nil {
		// lru.New only errors on non-positive size, which is guarded above.
		return delegate
	}
	return &cachedInvoker{delegate: delegate, cache: cache, ttl: cfg.TTL}
}

func (c *cachedInvoker) Search(ctx context.Context, req SearchRequest) ToolResult {
	key := cacheKey("search", map[string]any{
		"query":   req.Query,
		"depth":   req.Depth,
		"max":     req.MaxResults,
		"include": req.IncludeDomains,
		"exclude": req.ExcludeDomains,
	})
	return c.cached(key, func() ToolResult { return c.delegate.Search(ctx, req) })
}

func (c *cachedInvoker) DeepResearch(ctx context.Context, req DeepResearchRequest) ToolResult {
	return c.delegate.DeepResearch(ctx, req)
}

func (c *cachedInvoker) Extract(ctx context.Context, req ExtractRequest) ToolResult {
	key := cacheKey("extract", map[string]any{
		"urls":  req.URLs,
		"focus": req.FocusQuery,
	})
	return c.cached(key, func() ToolResult { return c.delegate.Extract(ctx, req) })
}

func (c *cachedInvoker) MapSite(ctx context.Context, req MapSiteRequest) ToolResult {
	key := cacheKey("map_site", map[string]any{
		"url":   req.URL,
		"depth": req.MaxDepth,
	})
	return c.cached(key, func() ToolResult { return c.delegate.MapSite(ctx, req) })
}

func (c *cachedInvoker) CrawlSite(ctx context.Context, req CrawlRequest) ToolResult {
	return c.delegate.CrawlSite(ctx, req)
}

// cached returns the live cache entry for key, or executes fn and stores a
// successful result. Failures pass through uncached so a transient provider
// error does not poison later calls.
func (c *cachedInvoker) cached(key string, fn func() ToolResult) ToolResult {
	if entry, ok := c.cache.Get(key); ok {
		if time.Since(entry.storedAt) < c.ttl {
			return success(entry.data)
		}
		c.cache.Remove(key)
	}

	result := fn()
	if result.Success {
		c.cache.Add(key, cacheEntry{data: result.Data, storedAt: time.Now()})
	}
	return result
}

// cacheKey produces a deterministic string key from operation + arguments.
func cacheKey(op string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(op)
	for _, k := range keys {
		data, err := json.Marshal(args[k])
		if err != nil {
			data = []byte("null")
		}
		fmt.Fprintf(&b, "|%s=%s", k, data)
	}
	return b.String()
}

var _ Invoker = (*cachedInvoker)(nil)
