package cache

import (
	"context"
	"errors"
	"log"
	"time"
)

// CacheHelper reads typed values through a Cache, filling misses from fn.
type CacheHelper[T any] struct {
	Cache *Cache
}

func NewCacheHelper[T any](cache *Cache) *CacheHelper[T] {
	return &CacheHelper[T]{Cache: cache}
}

// Handle loads key into out. On a miss or a cache failure fn produces the
// value, which is stored back for expiration. Errors from fn are returned
// and nothing is stored.
func (c *CacheHelper[T]) Handle(ctx context.Context, key string, out *T, fn func(ctx context.Context) (T, error), expiration time.Duration) error {
	return c.HandleIf(ctx, key, out, fn, expiration, nil)
}

// HandleIf is Handle with a guard: a value produced by fn is only written
// back when keep reports true once fn has returned. A nil keep always writes.
func (c *CacheHelper[T]) HandleIf(ctx context.Context, key string, out *T, fn func(ctx context.Context) (T, error), expiration time.Duration, keep func() bool) error {
	err := c.Cache.Get(ctx, key, out)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrMiss) {
		log.Printf("cache read %s failed: %v", key, err)
	}
	value, err := fn(ctx)
	if err != nil {
		return err
	}
	*out = value
	if keep != nil && !keep() {
		return nil
	}
	if err = c.Cache.Set(ctx, key, value, expiration); err != nil {
		log.Printf("cache write %s failed: %v", key, err)
	}
	return nil
}
