package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matst80/slask-filters/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultBaseUrl           = "http://localhost:8000/api/v1/"
	filterCategoriesEndpoint = "filter-categories/"
	searchEndpoint           = "materials/search/"
)

var (
	categoryFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskfilters_category_fetches_total",
		Help: "The total number of filter category fetches sent to the backend",
	})
	searchesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskfilters_searches_total",
		Help: "The total number of searches sent to the backend",
	})
	searchValidationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskfilters_search_validation_errors_total",
		Help: "The total number of searches dropped by validation",
	})
)

// PortalClient talks to the portal backend that owns the filter taxonomy and
// the materials search.
type PortalClient struct {
	BaseUrl    string
	HttpClient *http.Client
}

func NewPortalClient() *PortalClient {
	return NewPortalClientWithConfig("", 0)
}

// NewPortalClientWithConfig creates a client for baseUrl, an empty value
// uses the local development backend.
func NewPortalClientWithConfig(baseUrl string, timeout time.Duration) *PortalClient {
	if baseUrl == "" {
		baseUrl = defaultBaseUrl
	}
	if !strings.HasSuffix(baseUrl, "/") {
		baseUrl += "/"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PortalClient{
		BaseUrl:    baseUrl,
		HttpClient: &http.Client{Timeout: timeout},
	}
}

func (c *PortalClient) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request to %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-OK response from %s: %d", req.URL.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// FilterCategories fetches the raw filter category forest.
func (c *PortalClient) FilterCategories(ctx context.Context) ([]*types.RawCategory, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseUrl+filterCategoriesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	categoryFetches.Inc()
	var data []*types.RawCategory
	if err := c.do(req, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// Search posts the search to the backend. A search that does not validate
// is logged and not sent; the result is then nil without an error.
func (c *PortalClient) Search(ctx context.Context, search *types.Search, dates types.DateRange) (*types.SearchResult, error) {
	if err := search.Validate(); err != nil {
		searchValidationErrors.Inc()
		log.Printf("Validate error: %v, %+v", err, search)
		return nil, nil
	}
	body, err := json.Marshal(search.Params(dates))
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseUrl+searchEndpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	searchesSent.Inc()

	var result types.SearchResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	result.Annotate(search, dates)
	return &result, nil
}
