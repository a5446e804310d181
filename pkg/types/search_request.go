package types

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 1000
	DefaultOrdering = "-" + PublisherDateField
)

// Search is the structured search a visitor navigates to. Filters are kept
// out of the schema tags, they travel as a JSON object in the query string.
type Search struct {
	SearchText string    `json:"search_text" schema:"search_text"`
	Filters    FilterMap `json:"filters" schema:"-"`
	PageSize   int       `json:"page_size" schema:"page_size,default:20"`
	Page       int       `json:"page" schema:"page,default:1"`
	Ordering   string    `json:"ordering" schema:"ordering"`
}

func NewSearch() *Search {
	return &Search{
		Filters:  FilterMap{},
		PageSize: DefaultPageSize,
		Page:     1,
	}
}

func clamp[T int | float64](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func (s *Search) Sanitize() {
	s.Page = clamp(s.Page, 1, MaxPage)
	s.PageSize = clamp(s.PageSize, 1, MaxPageSize)
	s.SearchText = strings.TrimSpace(s.SearchText)
	s.Ordering = strings.TrimSpace(s.Ordering)
	if s.Filters == nil {
		s.Filters = FilterMap{}
	}
}

var orderingPattern = regexp.MustCompile(`^-?[A-Za-z0-9_.]+$`)

// Validate reports the first problem that would make the backend reject the search.
func (s *Search) Validate() error {
	if s.Page < 1 || s.Page > MaxPage {
		return fmt.Errorf("page out of range: %d", s.Page)
	}
	if s.PageSize < 1 || s.PageSize > MaxPageSize {
		return fmt.Errorf("page size out of range: %d", s.PageSize)
	}
	if s.Ordering != "" && !orderingPattern.MatchString(s.Ordering) {
		return fmt.Errorf("invalid ordering: %q", s.Ordering)
	}
	for group, items := range s.Filters {
		if strings.TrimSpace(group) == "" {
			return fmt.Errorf("filter group without id")
		}
		for _, item := range items {
			if strings.TrimSpace(item) == "" {
				return fmt.Errorf("empty filter item in group %q", group)
			}
		}
	}
	return nil
}

// FilterParam is one entry of the filters array posted to the search backend.
type FilterParam struct {
	ExternalId string    `json:"external_id"`
	Items      []*string `json:"items"`
}

// SearchParams is the request body of the backend search endpoint.
type SearchParams struct {
	SearchText string        `json:"search_text"`
	Filters    []FilterParam `json:"filters"`
	PageSize   int           `json:"page_size"`
	Page       int           `json:"page"`
	Ordering   string        `json:"ordering,omitempty"`
}

// Params converts the search into the backend request body. The date filter
// group is replaced by its bounds; without bounds it is left out.
func (s *Search) Params(dates DateRange) SearchParams {
	ret := SearchParams{
		SearchText: s.SearchText,
		Filters:    make([]FilterParam, 0, len(s.Filters)+1),
		PageSize:   s.PageSize,
		Page:       s.Page,
		Ordering:   s.Ordering,
	}
	if ret.SearchText == "" && ret.Ordering == "" {
		ret.Ordering = DefaultOrdering
	}
	for _, group := range slices.Sorted(maps.Keys(s.Filters)) {
		if group == PublisherDateField {
			continue
		}
		items := make([]*string, 0, len(s.Filters[group]))
		for _, item := range s.Filters[group] {
			items = append(items, &item)
		}
		ret.Filters = append(ret.Filters, FilterParam{ExternalId: group, Items: items})
	}
	if !dates.IsEmpty() {
		ret.Filters = append(ret.Filters, FilterParam{ExternalId: PublisherDateField, Items: dates.Bounds()})
	}
	return ret
}

// SearchResult is the backend response, annotated with the search that produced it.
type SearchResult struct {
	Records       []map[string]any `json:"results"`
	ResultsTotal  ResultsTotal     `json:"results_total"`
	DidYouMean    *DidYouMean      `json:"did_you_mean,omitempty"`
	Page          int              `json:"page"`
	PageSize      int              `json:"page_size"`
	FilterCounts  map[string]int   `json:"filter_counts,omitempty"`
	SearchText    string           `json:"search_text"`
	ActiveFilters FilterMap        `json:"active_filters"`
	ActiveDates   *DateRange       `json:"active_dates,omitempty"`
	Ordering      string           `json:"ordering"`
}

// Annotate records the search that produced the result. The date filter
// group is reported through ActiveDates with its real bounds.
func (r *SearchResult) Annotate(search *Search, dates DateRange) {
	r.SearchText = search.SearchText
	r.Ordering = search.Ordering
	r.ActiveFilters = make(FilterMap, len(search.Filters))
	for group, items := range search.Filters {
		if group == PublisherDateField {
			continue
		}
		r.ActiveFilters[group] = items
	}
	r.ActiveDates = nil
	if !dates.IsEmpty() {
		d := dates.Copy()
		r.ActiveDates = &d
	}
}

type ResultsTotal struct {
	Value     int  `json:"value"`
	IsPrecise bool `json:"is_precise"`
}

type DidYouMean struct {
	Original   string `json:"original"`
	Suggestion string `json:"suggestion"`
}
