package store

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/matst80/slask-filters/pkg/cache"
	"github.com/matst80/slask-filters/pkg/types"
	"golang.org/x/sync/singleflight"
)

const forestKey = "filter-categories"

// Fetcher loads the raw category forest from its source.
type Fetcher interface {
	FilterCategories(ctx context.Context) ([]*types.RawCategory, error)
}

type FetcherFunc func(ctx context.Context) ([]*types.RawCategory, error)

func (f FetcherFunc) FilterCategories(ctx context.Context) ([]*types.RawCategory, error) {
	return f(ctx)
}

// CategoryStore owns the raw category forest shared by all sessions. Only
// one fetch is in flight at a time; concurrent callers share its outcome.
type CategoryStore struct {
	fetcher   Fetcher
	cache     *cache.CacheHelper[[]*types.RawCategory]
	ttl       time.Duration
	preloaded []*types.RawCategory
	retry     time.Duration

	mu         sync.RWMutex
	raw        []*types.RawCategory
	generation uint64
	group      singleflight.Group
}

type Option func(*CategoryStore)

// WithCache keeps fetched forests in c for ttl so other instances and
// restarts can skip the backend.
func WithCache(c *cache.Cache, ttl time.Duration) Option {
	return func(s *CategoryStore) {
		s.cache = cache.NewCacheHelper[[]*types.RawCategory](c)
		s.ttl = ttl
	}
}

// WithPreloaded serves raw without ever calling the fetcher.
func WithPreloaded(raw []*types.RawCategory) Option {
	return func(s *CategoryStore) {
		s.preloaded = raw
	}
}

// WithReload fetches the forest again in the background after every
// invalidation, retrying failures with a backoff starting at retry.
func WithReload(retry time.Duration) Option {
	return func(s *CategoryStore) {
		s.retry = retry
	}
}

func NewCategoryStore(fetcher Fetcher, opts ...Option) *CategoryStore {
	s := &CategoryStore{fetcher: fetcher, ttl: time.Hour}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Raw returns the cached forest, fetching it when needed. A failed fetch is
// returned to every waiting caller and the next call fetches again.
func (s *CategoryStore) Raw(ctx context.Context) ([]*types.RawCategory, error) {
	if s.preloaded != nil {
		return s.preloaded, nil
	}
	s.mu.RLock()
	raw := s.raw
	generation := s.generation
	s.mu.RUnlock()
	if raw != nil {
		return raw, nil
	}

	v, err, _ := s.group.Do(forestKey, func() (any, error) {
		// shared by all waiters, not bound to the first caller
		fetchCtx := context.WithoutCancel(ctx)
		data, err := s.load(fetchCtx, generation)
		if err != nil {
			log.Printf("failed to load filter categories: %v", err)
			return nil, err
		}
		if data == nil {
			data = []*types.RawCategory{}
		}
		s.mu.Lock()
		if s.generation == generation {
			s.raw = data
		} else {
			log.Printf("filter categories invalidated during fetch, not keeping result")
		}
		s.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*types.RawCategory), nil
}

func (s *CategoryStore) current(generation uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation == generation
}

func (s *CategoryStore) load(ctx context.Context, generation uint64) ([]*types.RawCategory, error) {
	if s.cache == nil {
		return s.fetcher.FilterCategories(ctx)
	}
	var data []*types.RawCategory
	err := s.cache.HandleIf(ctx, forestKey, &data, s.fetcher.FilterCategories, s.ttl, func() bool {
		return s.current(generation)
	})
	return data, err
}

// Invalidate drops the cached forest so the next call fetches it again. A
// fetch already in flight is detached and its result is not kept.
func (s *CategoryStore) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	s.raw = nil
	s.generation++
	s.mu.Unlock()
	s.group.Forget(forestKey)

	var err error
	if s.cache != nil {
		err = s.cache.Cache.Delete(ctx, forestKey)
	}
	if s.retry > 0 && s.preloaded == nil {
		go func() {
			if err := s.Preload(context.Background()); err != nil {
				log.Printf("filter categories reload stopped: %v", err)
			}
		}()
	}
	return err
}

// Preload fetches the forest, retrying with backoff until it is loaded or
// ctx is done.
func (s *CategoryStore) Preload(ctx context.Context) error {
	wait := s.retry
	if wait <= 0 {
		wait = time.Second
	}
	for {
		_, err := s.Raw(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, time.Minute)
	}
}

func (s *CategoryStore) IsLoaded() bool {
	if s.preloaded != nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw != nil
}
