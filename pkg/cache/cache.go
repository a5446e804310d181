package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matst80/slask-filters/pkg/common/jsoncompat"
	"github.com/redis/go-redis/v9"
)

var ErrMiss = errors.New("cache miss")

type LocalEntry struct {
	Expires time.Time
	Data    []byte
}

// Cache stores json values in redis with a short lived in-process copy in
// front of it. Without a redis address it keeps values in memory only.
type Cache struct {
	Addr     string
	Password string
	DB       int
	LocalTTL time.Duration
	client   *redis.Client
	mu       sync.RWMutex
	memCache map[string]LocalEntry
}

func NewCache(addr, password string, db int) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Cache{
		Addr:     addr,
		Password: password,
		DB:       db,
		LocalTTL: time.Minute,
		client:   rdb,
		memCache: make(map[string]LocalEntry),
	}
}

func NewMemoryCache() *Cache {
	return &Cache{LocalTTL: time.Minute, memCache: make(map[string]LocalEntry)}
}

func (c *Cache) getLocal(key string) ([]byte, bool) {
	c.mu.RLock()
	local, found := c.memCache[key]
	c.mu.RUnlock()
	if !found {
		return nil, false
	}
	if local.Expires.Before(time.Now()) {
		c.mu.Lock()
		delete(c.memCache, key)
		c.mu.Unlock()
		return nil, false
	}
	return local.Data, true
}

func (c *Cache) setLocal(key string, data []byte, expiration time.Duration) {
	c.mu.Lock()
	c.memCache[key] = LocalEntry{Expires: time.Now().Add(expiration), Data: data}
	c.mu.Unlock()
}

// Get decodes the value stored under key into out, ErrMiss when absent.
func (c *Cache) Get(ctx context.Context, key string, out any) error {
	if data, ok := c.getLocal(key); ok {
		return jsoncompat.Unmarshal(data, out)
	}
	if c.client == nil {
		return ErrMiss
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	if err = jsoncompat.Unmarshal(data, out); err != nil {
		return err
	}
	c.setLocal(key, data, c.LocalTTL)
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := jsoncompat.Marshal(value)
	if err != nil {
		return err
	}
	local := expiration
	if local <= 0 || (c.client != nil && local > c.LocalTTL) {
		local = c.LocalTTL
	}
	c.setLocal(key, data, local)
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.memCache, key)
	c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
