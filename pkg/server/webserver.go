package server

import (
	"context"
	"net/http"
	"net/http/pprof"

	"github.com/matst80/slask-filters/pkg/common"
	"github.com/matst80/slask-filters/pkg/store"
	"github.com/matst80/slask-filters/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	categoryRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskfilters_category_requests_total",
		Help: "The total number of hydrated category tree responses",
	})
	searchRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskfilters_search_requests_total",
		Help: "The total number of proxied searches",
	})
	invalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskfilters_invalidations_total",
		Help: "The total number of requested category cache invalidations",
	})
)

type Searcher interface {
	Search(ctx context.Context, search *types.Search, dates types.DateRange) (*types.SearchResult, error)
}

type Publisher interface {
	Publish(ctx context.Context, reason string) error
}

type WebServer struct {
	Sessions   *store.Sessions
	Categories *store.CategoryStore
	Portal     Searcher
	// Invalidation broadcasts cache drops to other instances, nil when
	// running without a broker.
	Invalidation Publisher
	// SearchPath is the page suggestion links point to.
	SearchPath string
}

func NewWebServer(categories *store.CategoryStore, sessions *store.Sessions, portal Searcher) *WebServer {
	return &WebServer{
		Sessions:   sessions,
		Categories: categories,
		Portal:     portal,
		SearchPath: "/search",
	}
}

func (ws *WebServer) ClientHandler() *http.ServeMux {
	srv := http.NewServeMux()

	srv.HandleFunc("GET /filter-categories", common.JsonHandler(ws.FilterCategories))
	srv.HandleFunc("GET /search-filters", common.JsonHandler(ws.SearchFilters))
	srv.HandleFunc("GET /category", common.JsonHandler(ws.Category))
	srv.HandleFunc("GET /selection", common.JsonHandler(ws.GetSelection))
	srv.HandleFunc("PUT /selection", common.JsonHandler(ws.ResetSelection))
	srv.HandleFunc("POST /selection/{category}", common.JsonHandler(ws.Select))
	srv.HandleFunc("DELETE /selection/{category}", common.JsonHandler(ws.Deselect))
	srv.HandleFunc("POST /open/{id}", common.JsonHandler(ws.ToggleOpen))
	srv.HandleFunc("POST /show-all/{id}", common.JsonHandler(ws.ToggleShowAll))
	srv.HandleFunc("POST /search", common.JsonHandler(ws.Search))
	srv.HandleFunc("GET /suggestion-link", common.JsonHandler(ws.SuggestionLink))
	srv.HandleFunc("POST /invalidate", common.JsonHandler(ws.Invalidate))
	srv.HandleFunc("OPTIONS /", common.RespondToOptions)

	return srv
}

func (ws *WebServer) DebugHandler(enableProfiling bool) *http.ServeMux {
	srv := http.NewServeMux()

	srv.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	srv.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if !ws.Categories.IsLoaded() {
			http.Error(w, "categories not loaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	srv.Handle("/metrics", promhttp.Handler())
	if enableProfiling {
		srv.HandleFunc("/debug/pprof/", pprof.Index)
		srv.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		srv.HandleFunc("/debug/pprof/profile", pprof.Profile)
		srv.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		srv.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return srv
}
