package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/matst80/slask-filters/pkg/cache"
	"github.com/matst80/slask-filters/pkg/client"
	"github.com/matst80/slask-filters/pkg/common"
	"github.com/matst80/slask-filters/pkg/messaging"
	"github.com/matst80/slask-filters/pkg/server"
	"github.com/matst80/slask-filters/pkg/store"
	"github.com/matst80/slask-filters/pkg/types"
)

var listenAddress = flag.String("listen", ":8080", "address for the filter api")
var debugAddress = flag.String("debug", ":8081", "address for health, metrics and profiling")
var enableProfiling = flag.Bool("profiling", false, "enable profiling endpoints")
var sessionIdle = flag.Duration("session-idle", 30*time.Minute, "forget sessions idle for longer than this")

var backendUrl = os.Getenv("BACKEND_URL")
var redisUrl = os.Getenv("REDIS_URL")
var redisPassword = os.Getenv("REDIS_PASSWORD")
var rabbitUrl = os.Getenv("RABBIT_URL")
var rabbitPrefix = os.Getenv("RABBIT_PREFIX")
var categoriesFile = os.Getenv("CATEGORY_FILTERS_FILE")
var clientName = os.Getenv("NODE_NAME")

func loadCategoriesFile(filename string) ([]*types.RawCategory, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var raw []*types.RawCategory
	if err = json.NewDecoder(file).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

type app struct {
	categories   *store.CategoryStore
	sessions     *store.Sessions
	invalidation *messaging.CategoryInvalidation
}

func (a *app) pruneSessions(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if removed := a.sessions.Prune(now); removed > 0 {
					log.Printf("pruned %d idle sessions, %d left", removed, a.sessions.Len())
				}
			}
		}
	}()
}

func (a *app) shutdown(ctx context.Context) error {
	if a.invalidation != nil {
		return a.invalidation.Close()
	}
	return nil
}

func main() {
	flag.Parse()

	ttl := time.Hour
	if d, ok := common.SecondsFromEnv("CATEGORY_CACHE_TTL"); ok {
		ttl = d
	}

	var categoryCache *cache.Cache
	if redisUrl != "" {
		categoryCache = cache.NewCache(redisUrl, redisPassword, 0)
		log.Printf("category cache shared through redis, url: %s", redisUrl)
	} else {
		categoryCache = cache.NewMemoryCache()
		log.Println("No redis url provided, caching categories in memory")
	}
	defer categoryCache.Close()

	opts := []store.Option{store.WithCache(categoryCache, ttl), store.WithReload(time.Second)}
	if categoriesFile != "" {
		raw, err := loadCategoriesFile(categoriesFile)
		if err != nil {
			log.Fatalf("Could not load categories from %s: %v", categoriesFile, err)
		}
		log.Printf("using %d preloaded root categories from %s", len(raw), categoriesFile)
		opts = append(opts, store.WithPreloaded(raw))
	}

	timeouts := common.LoadTimeoutConfig(common.DefaultTimeoutConfig())
	portal := client.NewPortalClientWithConfig(backendUrl, timeouts.Write)
	categories := store.NewCategoryStore(portal, opts...)

	a := &app{
		categories: categories,
		sessions:   store.NewSessions(categories, *sessionIdle),
	}
	ws := server.NewWebServer(categories, a.sessions, portal)

	if rabbitUrl != "" {
		a.invalidation = &messaging.CategoryInvalidation{
			RabbitConfig: messaging.RabbitConfig{
				Url:    rabbitUrl,
				Prefix: rabbitPrefix,
				Origin: clientName,
			},
			Target: categories,
		}
		if err := a.invalidation.Connect(); err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		ws.Invalidation = a.invalidation
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := categories.Preload(ctx); err != nil {
			log.Printf("Initial category load stopped: %v", err)
		}
	}()
	a.pruneSessions(ctx, time.Minute)

	common.RunServersWithShutdown(ctx, []common.NamedServer{
		{Name: "filter api", Server: common.NewServerWithTimeouts(*listenAddress, ws.ClientHandler(), timeouts)},
		{Name: "debug", Server: common.NewServerWithTimeouts(*debugAddress, ws.DebugHandler(*enableProfiling), timeouts)},
	}, timeouts.Shutdown, timeouts.Hook, a.shutdown)
}
