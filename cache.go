package sqltpl

import (
	"log/slog"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/canonical/sqltpl/internal/expr"
)

// defaultCacheSize is the number of parsed templates kept by a Compiler when
// Config.CacheSize is zero.
const defaultCacheSize = 256

// templateCache caches parsed templates indexed by their source text. A
// parsed template is immutable, so the same value is handed out to every
// caller compiling the same text.
//
// A nil templateCache is valid and caches nothing.
type templateCache struct {
	cache  *lru.Cache[string, *expr.ParsedExpr]
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// newTemplateCache returns a cache holding up to size templates. A negative
// size disables caching and returns nil.
func newTemplateCache(size int, logger *slog.Logger) (*templateCache, error) {
	if size < 0 {
		return nil, nil
	}
	if size == 0 {
		size = defaultCacheSize
	}
	tc := &templateCache{logger: logger}
	cache, err := lru.NewWithEvict(size, func(text string, _ *expr.ParsedExpr) {
		tc.logger.Debug("template evicted from cache", "template", text)
	})
	if err != nil {
		return nil, err
	}
	tc.cache = cache
	return tc, nil
}

// parse returns the parsed form of text, parsing it and adding it to the
// cache if needed. Templates that fail to parse are not cached.
func (tc *templateCache) parse(text string) (*expr.ParsedExpr, error) {
	if tc == nil {
		return expr.NewParser().Parse(text)
	}

	if pe, ok := tc.cache.Get(text); ok {
		tc.hits.Add(1)
		tc.logger.Debug("template cache hit", "template", text)
		return pe, nil
	}
	tc.misses.Add(1)

	pe, err := expr.NewParser().Parse(text)
	if err != nil {
		return nil, err
	}
	// Another goroutine may have parsed the same text meanwhile. Both results
	// are equal so either can be kept.
	tc.cache.Add(text, pe)
	tc.logger.Debug("template cache miss", "template", text, "placeholders", pe.Placeholders())
	return pe, nil
}

// stats returns the number of cache hits and misses so far.
func (tc *templateCache) stats() (hits, misses int64) {
	if tc == nil {
		return 0, 0
	}
	return tc.hits.Load(), tc.misses.Load()
}

// len returns the number of templates in the cache.
func (tc *templateCache) len() int {
	if tc == nil {
		return 0
	}
	return tc.cache.Len()
}

// purge empties the cache.
func (tc *templateCache) purge() {
	if tc == nil {
		return
	}
	tc.cache.Purge()
}
