package core

import (
	"context"
	"time"
)

// CatalogCacheKey holds the unfiltered course catalog.
const CatalogCacheKey = "courses:catalog"

// Cache stores JSON-serializable values for a limited time.
type Cache interface {
	// Get loads the value stored under key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
