package embedding

import (
	"context"
	"encoding/hex"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// Cache stores vectors by key.
type Cache interface {
	// Get returns the cached vector and whether it was found.
	Get(ctx context.Context, key string) (Vector, bool, error)
	// Set stores a vector.
	Set(ctx context.Context, key string, vec Vector) error
}

// Cached wraps an Embedder with a Cache. Cache failures are logged and the
// vector is recomputed, so a broken cache never changes embedding results.
type Cached struct {
	inner  Embedder
	cache  Cache
	logger *zap.Logger
}

// NewCached creates a caching embedder.
func NewCached(inner Embedder, cache Cache, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{inner: inner, cache: cache, logger: logger}
}

// Dimensions returns the wrapped embedder's vector length.
func (c *Cached) Dimensions() int {
	return c.inner.Dimensions()
}

// Embed returns the cached vector for text, computing and storing it on a miss.
func (c *Cached) Embed(ctx context.Context, text string) Vector {
	normalized := Normalize(text)
	if normalized == "" {
		return Zero(c.inner.Dimensions())
	}

	key := CacheKey(normalized, c.inner.Dimensions())
	vec, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("embedding cache read failed", zap.Error(err))
	}
	if ok && len(vec) == c.inner.Dimensions() {
		return vec
	}

	vec = c.inner.Embed(ctx, normalized)
	if err := c.cache.Set(ctx, key, vec); err != nil {
		c.logger.Warn("embedding cache write failed", zap.Error(err))
	}
	return vec
}

// CacheKey derives a fixed-size key from normalized text and dimension.
func CacheKey(normalized string, dims int) string {
	sum := blake2b.Sum256([]byte(normalized))
	return "emb:" + strconv.Itoa(dims) + ":" + hex.EncodeToString(sum[:16])
}

// MemoryCache is an in-process Cache bounded to maxEntries.
// When full, the oldest entry is evicted.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]Vector
	order      []string
	maxEntries int
}

// NewMemoryCache creates a bounded in-memory cache. maxEntries <= 0 means 4096.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	return &MemoryCache{
		entries:    make(map[string]Vector),
		maxEntries: maxEntries,
	}
}

// Get returns a copy of the cached vector.
func (m *MemoryCache) Get(_ context.Context, key string) (Vector, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vec, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	out := make(Vector, len(vec))
	copy(out, vec)
	return out, true, nil
}

// Set stores a copy of vec.
func (m *MemoryCache) Set(_ context.Context, key string, vec Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists {
		if len(m.order) >= m.maxEntries {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.entries, oldest)
		}
		m.order = append(m.order, key)
	}

	stored := make(Vector, len(vec))
	copy(stored, vec)
	m.entries[key] = stored
	return nil
}

// Len returns the number of cached vectors.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

var (
	_ Embedder = (*HashEmbedder)(nil)
	_ Embedder = (*Cached)(nil)
	_ Cache    = (*MemoryCache)(nil)
)
