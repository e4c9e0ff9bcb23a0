package log

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
)

// DefaultDedupCapacity is the default size of the recent-message cache.
// 256 entries covers several hundred identities' worth of repeated events
// in one batch while keeping memory bounded.
const DefaultDedupCapacity = 256

// IdentityKey is the attribute key the DedupHandler looks for when building
// its cache key. Records without this attribute are never suppressed.
const IdentityKey = "identity"

// DedupHandler wraps an slog.Handler to suppress repeated per-identity
// messages. A record is dropped when its (identity, message) pair is
// present in a fixed-capacity cache of recently seen pairs; when the cache
// is full, the oldest entry is evicted first.
//
// Only records at Info and above enter the cache. Debug records are the
// diagnostic trail (per-step workflow progress repeats the same message
// for every step of every identity) and suppressing them would make
// verbose mode useless exactly when it is needed.
//
// Design decision: The cache is owned by the handler rather than being
// package-global state so that independent loggers (e.g. in tests or in a
// future multi-tenant embedding) do not share suppression history. Handler
// clones produced by WithAttrs/WithGroup share the parent's cache, since
// they represent the same logical log stream.
type DedupHandler struct {
	// handler is the underlying slog handler that receives surviving records.
	handler slog.Handler

	// attrs are attributes attached via WithAttrs, searched for the
	// identity key when the record itself does not carry one.
	attrs []slog.Attr

	// cache is the shared recent-message cache.
	cache *dedupCache
}

// NewDedupHandler creates a DedupHandler wrapping the given handler.
// If capacity is not positive, DefaultDedupCapacity is used.
// If handler is nil, the returned handler uses slog.Default().Handler().
func NewDedupHandler(handler slog.Handler, capacity int) *DedupHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &DedupHandler{
		handler: handler,
		cache:   newDedupCache(capacity),
	}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *DedupHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle drops the record when its (identity, message) pair was seen
// recently, and forwards it otherwise. Records without an identity
// attribute and records below Info always pass through.
func (h *DedupHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < slog.LevelInfo {
		return h.handler.Handle(ctx, r)
	}

	identity := h.identityOf(r)
	if identity == "" {
		return h.handler.Handle(ctx, r)
	}

	if h.cache.remember(identity + "\x00" + r.Message) {
		// Seen recently: suppress.
		return nil
	}
	return h.handler.Handle(ctx, r)
}

// WithAttrs returns a new handler with the given attributes added.
// The clone shares the parent's suppression cache.
func (h *DedupHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &DedupHandler{
		handler: h.handler.WithAttrs(attrs),
		attrs:   merged,
		cache:   h.cache,
	}
}

// WithGroup returns a new handler with the given group name.
// The clone shares the parent's suppression cache.
func (h *DedupHandler) WithGroup(name string) slog.Handler {
	return &DedupHandler{
		handler: h.handler.WithGroup(name),
		attrs:   h.attrs,
		cache:   h.cache,
	}
}

// identityOf extracts the identity attribute from the record, falling back
// to attributes attached via WithAttrs. Returns "" when absent.
func (h *DedupHandler) identityOf(r slog.Record) string {
	var identity string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == IdentityKey && a.Value.Kind() == slog.KindString {
			identity = a.Value.String()
			return false
		}
		return true
	})
	if identity != "" {
		return identity
	}

	for _, a := range h.attrs {
		if a.Key == IdentityKey && a.Value.Kind() == slog.KindString {
			return a.Value.String()
		}
	}
	return ""
}

// dedupCache is a fixed-capacity set of recently seen keys with
// oldest-first (FIFO) eviction. A duplicate hit does not refresh the
// entry's position: suppression lasts until the entry ages out of the
// cache entirely.
type dedupCache struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]*list.Element
	order    *list.List // front = oldest, back = newest
}

// newDedupCache creates a cache holding at most capacity keys.
func newDedupCache(capacity int) *dedupCache {
	return &dedupCache{
		capacity: capacity,
		seen:     make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// remember reports whether the key was already present, inserting it if
// not. When inserting into a full cache, the oldest key is evicted.
func (c *dedupCache) remember(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[key]; ok {
		return true
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			if k, ok := oldest.Value.(string); ok {
				delete(c.seen, k)
			}
		}
	}

	c.seen[key] = c.order.PushBack(key)
	return false
}

// len returns the number of cached keys. Used by tests.
func (c *dedupCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
