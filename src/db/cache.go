package db

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
)

// VersionLoader reads a user's current token version from the identity store.
type VersionLoader func(ctx context.Context, userID string) (int, error)

// TokenVersionCache fronts the token version lookup done on every
// authenticated request. Entries expire after ttl, so a sign-out performed
// by another instance takes effect here within ttl.
type TokenVersionCache struct {
	cache *ristretto.Cache
	load  VersionLoader
	ttl   time.Duration
}

func NewTokenVersionCache(load VersionLoader, ttl time.Duration) (*TokenVersionCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     10000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, err
	}
	return &TokenVersionCache{cache: cache, load: load, ttl: ttl}, nil
}

func (c *TokenVersionCache) TokenVersion(ctx context.Context, userID string) (int, error) {
	if v, ok := c.cache.Get(userID); ok {
		if version, ok := v.(int); ok {
			return version, nil
		}
	}

	version, err := c.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	c.cache.SetWithTTL(userID, version, 1, c.ttl)
	return version, nil
}

// Remember records a version this instance just wrote, e.g. after sign-out.
func (c *TokenVersionCache) Remember(userID string, version int) {
	c.cache.SetWithTTL(userID, version, 1, c.ttl)
	c.cache.Wait()
}

func (c *TokenVersionCache) Close() {
	c.cache.Close()
}
