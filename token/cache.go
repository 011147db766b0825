package token

import (
	"time"

	"github.com/patrickmn/go-cache"
)

const cacheKey = "bearer|v1"

// CachedToken is a bearer token and the instant after which it must not be served.
type CachedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Cache holds a single bearer token. Reads are lock free from the caller's
// point of view; Set is meant to be called by one Acquirer.
type Cache struct {
	store *cache.Cache
	now   func() time.Time
}

// NewCache returns an empty cache using now as its clock. A nil now uses time.Now.
func NewCache(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		store: cache.New(cache.NoExpiration, 30*time.Minute),
		now:   now,
	}
}

// Get returns the cached token while the clock is before its expiry.
func (c *Cache) Get() (CachedToken, bool) {
	v, found := c.store.Get(cacheKey)
	if !found {
		return CachedToken{}, false
	}
	tok := v.(CachedToken)
	if !c.now().Before(tok.ExpiresAt) {
		c.store.Delete(cacheKey)
		return CachedToken{}, false
	}
	return tok, true
}

// Set stores tok. Tokens that are already expired are not stored.
func (c *Cache) Set(tok CachedToken) {
	ttl := tok.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		c.store.Delete(cacheKey)
		return
	}
	c.store.Set(cacheKey, tok, ttl)
}

// Invalidate drops the cached token.
func (c *Cache) Invalidate() {
	c.store.Delete(cacheKey)
	c.store.DeleteExpired()
}
