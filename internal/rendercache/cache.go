// Package rendercache memoizes rendered prompt output keyed by template
// identity and a reduced context fingerprint.
//
// Eviction is LRU-first within a total-byte budget and a max-entry count;
// entries additionally expire by TTL regardless of recency. The cache is a
// long-lived service constructed explicitly and injected into the renderer —
// never a process-wide global — so tests can instantiate isolated instances.
//
// All methods are safe for concurrent use. Lookups and inserts serialise on
// a single mutex; the critical section does no I/O and no allocation beyond
// list bookkeeping, so render calls never block on the cache for long.
package rendercache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/grimoire/internal/observe"
	"github.com/MrWong99/grimoire/internal/prompt"
)

// Defaults applied by [New] for zero Config fields.
const (
	DefaultTTL        = 30 * time.Minute
	DefaultMaxBytes   = 5 << 20 // 5 MiB
	DefaultMaxEntries = 500
)

// Config configures a [Cache]. Zero fields take the package defaults.
type Config struct {
	// TTL is the age after which an entry is stale regardless of recency.
	TTL time.Duration

	// MaxBytes is the total payload budget across all entries.
	MaxBytes int64

	// MaxEntries caps the entry count.
	MaxEntries int
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
	Bytes     int64
}

// entry is one cached render result. Owned exclusively by the cache.
type entry struct {
	key           string
	templateID    string
	sessionMarker string
	fingerprint   string
	value         string
	createdAt     time.Time
	lastAccessed  time.Time
	accessCount   int64
	sizeBytes     int64
}

// Cache is an LRU+TTL result cache. It implements [prompt.ResultCache].
type Cache struct {
	cfg     Config
	metrics *observe.Metrics
	clock   func() time.Time

	mu         sync.Mutex
	entries    map[string]*list.Element // key → element; element value is *entry
	order      *list.List               // front = most recently used
	totalBytes int64

	hits, misses, evictions int64
}

// Compile-time check that Cache satisfies the renderer's cache contract.
var _ prompt.ResultCache = (*Cache)(nil)

// CacheOption is a functional option for [New].
type CacheOption func(*Cache)

// WithMetrics injects the metrics instance the cache records lookups and
// evictions to. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

// WithClock overrides the time source. Tests use this to exercise TTL
// expiry without sleeping.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.clock = now }
}

// New creates a [Cache] with the given configuration. Zero Config fields
// take [DefaultTTL], [DefaultMaxBytes], and [DefaultMaxEntries].
func New(cfg Config, opts ...CacheOption) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	c := &Cache{
		cfg:     cfg,
		clock:   time.Now,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Get returns the cached render for (templateID, fingerprint(rctx)).
// The second return is false on miss or TTL expiry. A hit bumps recency and
// the entry's access count.
func (c *Cache) Get(ctx context.Context, templateID string, rctx *prompt.RenderContext) (string, bool) {
	key := cacheKey(templateID, Fingerprint(rctx))
	now := c.clock()

	c.mu.Lock()
	el, ok := c.entries[key]
	if !ok {
		c.misses++
		c.mu.Unlock()
		c.metrics.RecordCacheLookup(ctx, false)
		return "", false
	}

	e := el.Value.(*entry)
	if now.Sub(e.createdAt) > c.cfg.TTL {
		c.removeLocked(el)
		c.evictions++
		c.misses++
		c.mu.Unlock()
		c.metrics.CacheBytes.Add(ctx, -e.sizeBytes)
		c.metrics.RecordEviction(ctx, "ttl")
		c.metrics.RecordCacheLookup(ctx, false)
		return "", false
	}

	e.lastAccessed = now
	e.accessCount++
	c.order.MoveToFront(el)
	c.hits++
	value := e.value
	c.mu.Unlock()

	c.metrics.RecordCacheLookup(ctx, true)
	return value, true
}

// Set inserts or replaces the render for (templateID, fingerprint(rctx)),
// evicting least-recently-used entries first until the byte budget and the
// entry cap both hold.
func (c *Cache) Set(ctx context.Context, templateID string, rctx *prompt.RenderContext, value string) {
	fp := Fingerprint(rctx)
	key := cacheKey(templateID, fp)
	now := c.clock()

	e := &entry{
		key:          key,
		templateID:   templateID,
		fingerprint:  fp,
		value:        value,
		createdAt:    now,
		lastAccessed: now,
		sizeBytes:    int64(len(value) + len(key)),
	}
	if rctx != nil && rctx.Session != nil {
		e.sessionMarker = rctx.Session.ID
	}

	var lruEvicted int
	c.mu.Lock()
	bytesBefore := c.totalBytes
	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
	for c.order.Len() > 0 &&
		(c.totalBytes+e.sizeBytes > c.cfg.MaxBytes || c.order.Len()+1 > c.cfg.MaxEntries) {
		c.removeLocked(c.order.Back())
		c.evictions++
		lruEvicted++
	}
	// An oversized value that cannot fit even in an empty cache is simply
	// not cached.
	if c.totalBytes+e.sizeBytes <= c.cfg.MaxBytes {
		el := c.order.PushFront(e)
		c.entries[key] = el
		c.totalBytes += e.sizeBytes
	}
	bytesDelta := c.totalBytes - bytesBefore
	c.mu.Unlock()

	if bytesDelta != 0 {
		c.metrics.CacheBytes.Add(ctx, bytesDelta)
	}
	for i := 0; i < lruEvicted; i++ {
		c.metrics.RecordEviction(ctx, "lru")
	}
}

// InvalidateTemplate removes every entry whose template identity starts
// with prefix. Returns the number of entries removed. Authoring surfaces
// call this after editing or deleting a template.
func (c *Cache) InvalidateTemplate(ctx context.Context, prefix string) int {
	return c.invalidate(ctx, func(e *entry) bool {
		return strings.HasPrefix(e.templateID, prefix)
	})
}

// InvalidateSession removes every entry created under the given session
// marker. Collaborators call this when they mutate session state outside
// the fingerprint projection.
func (c *Cache) InvalidateSession(ctx context.Context, marker string) int {
	return c.invalidate(ctx, func(e *entry) bool {
		return e.sessionMarker == marker
	})
}

func (c *Cache) invalidate(ctx context.Context, match func(*entry) bool) int {
	removed := 0

	c.mu.Lock()
	bytesBefore := c.totalBytes
	var next *list.Element
	for el := c.order.Front(); el != nil; el = next {
		next = el.Next()
		if match(el.Value.(*entry)) {
			c.removeLocked(el)
			c.evictions++
			removed++
		}
	}
	bytesDelta := c.totalBytes - bytesBefore
	c.mu.Unlock()

	if bytesDelta != 0 {
		c.metrics.CacheBytes.Add(ctx, bytesDelta)
	}
	for i := 0; i < removed; i++ {
		c.metrics.RecordEviction(ctx, "invalidation")
	}
	return removed
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   c.order.Len(),
		Bytes:     c.totalBytes,
	}
}

// removeLocked unlinks el from the order list, the key map, and the byte
// accounting. Must be called with c.mu held.
func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	c.order.Remove(el)
	delete(c.entries, e.key)
	c.totalBytes -= e.sizeBytes
}

// cacheKey joins template identity and fingerprint with a separator that
// cannot appear in either part.
func cacheKey(templateID, fingerprint string) string {
	return templateID + "\x00" + fingerprint
}
