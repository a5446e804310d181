package query

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gorilla/schema"
	"github.com/matst80/slask-filters/pkg/types"
)

// FiltersKey is the query parameter holding the JSON encoded filter groups.
const FiltersKey = "filters"

var decoder = schema.NewDecoder()
var encoder = schema.NewEncoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

// Parsed is a decoded search query. The date filter group is lifted out of
// the filters into DateRange.
type Parsed struct {
	Search    *types.Search
	DateRange types.DateRange
}

// Selection flattens every filter group into one selection set.
func (p *Parsed) Selection() types.SelectionSet {
	return p.Search.Filters.Selection()
}

// Decode parses the structured search out of url query values. The parsed
// search is returned with defaults even when err is set.
func Decode(values url.Values) (*Parsed, error) {
	p := &Parsed{Search: types.NewSearch()}
	err := decoder.Decode(p.Search, values)
	if err == nil {
		p.DateRange, err = decodeFilterParam(values.Get(FiltersKey), p.Search)
	}
	p.Search.Sanitize()
	return p, err
}

// FiltersFromQuery returns the selection and date range encoded in values.
func FiltersFromQuery(values url.Values) (types.SelectionSet, types.DateRange, error) {
	p, err := Decode(values)
	if err != nil {
		return types.SelectionSet{}, types.DateRange{}, err
	}
	return p.Selection(), p.DateRange, nil
}

// FromRequest reads the search from the query string on GET and from a JSON
// body otherwise.
func FromRequest(r *http.Request) (*Parsed, error) {
	if r.Method == http.MethodGet {
		return Decode(r.URL.Query())
	}
	body := searchBody{
		PageSize: types.DefaultPageSize,
		Page:     1,
	}
	p := &Parsed{Search: types.NewSearch()}
	err := json.NewDecoder(r.Body).Decode(&body)
	if err == nil {
		p.Search.SearchText = body.SearchText
		p.Search.PageSize = body.PageSize
		p.Search.Page = body.Page
		p.Search.Ordering = body.Ordering
		p.DateRange, err = decodeFilterGroups(body.Filters, p.Search)
	}
	p.Search.Sanitize()
	return p, err
}

type searchBody struct {
	SearchText string               `json:"search_text"`
	Filters    map[string][]*string `json:"filters"`
	PageSize   int                  `json:"page_size"`
	Page       int                  `json:"page"`
	Ordering   string               `json:"ordering"`
}

func decodeFilterParam(value string, result *types.Search) (types.DateRange, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return types.DateRange{}, nil
	}
	groups := map[string][]*string{}
	if err := json.Unmarshal([]byte(value), &groups); err != nil {
		return types.DateRange{}, fmt.Errorf("invalid filters parameter: %w", err)
	}
	return decodeFilterGroups(groups, result)
}

func decodeFilterGroups(groups map[string][]*string, result *types.Search) (types.DateRange, error) {
	dates := types.DateRange{}
	for group, items := range groups {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		if group == types.PublisherDateField {
			var err error
			if dates, err = decodeDates(items); err != nil {
				return types.DateRange{}, err
			}
			continue
		}
		ids := make([]string, 0, len(items))
		for _, item := range items {
			if item == nil {
				continue
			}
			id := strings.TrimSpace(*item)
			if id == "" {
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			result.Filters[group] = append(result.Filters[group], ids...)
		}
	}
	return dates, nil
}

func decodeDates(items []*string) (types.DateRange, error) {
	var err error
	dates := types.DateRange{}
	if len(items) > 0 {
		if dates.StartDate, err = types.ParseDate(items[0]); err != nil {
			return dates, err
		}
	}
	if len(items) > 1 {
		if dates.EndDate, err = types.ParseDate(items[1]); err != nil {
			return dates, err
		}
	}
	return dates, nil
}

// Encode is the inverse of Decode. The date filter group of search is
// replaced by the bounds of dates and left out when dates is empty.
func Encode(search *types.Search, dates types.DateRange) (url.Values, error) {
	values := url.Values{}
	if err := encoder.Encode(search, values); err != nil {
		return nil, err
	}
	groups := map[string][]*string{}
	for group, items := range search.Filters {
		if group == types.PublisherDateField || len(items) == 0 {
			continue
		}
		ids := make([]*string, 0, len(items))
		for _, item := range items {
			ids = append(ids, &item)
		}
		groups[group] = ids
	}
	if !dates.IsEmpty() {
		groups[types.PublisherDateField] = dates.Bounds()
	}
	if len(groups) > 0 {
		data, err := json.Marshal(groups)
		if err != nil {
			return nil, err
		}
		values.Set(FiltersKey, string(data))
	}
	return values, nil
}

// Href builds a navigable link to path for the search.
func Href(path string, search *types.Search, dates types.DateRange) (string, error) {
	values, err := Encode(search, dates)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return path, nil
	}
	return path + "?" + values.Encode(), nil
}

// SuggestionHref links to the first page of a "did you mean" suggestion,
// keeping the active filters.
func SuggestionHref(path, suggestion string, filters types.FilterMap, dates types.DateRange) (string, error) {
	return Href(path, &types.Search{
		SearchText: suggestion,
		Filters:    filters,
		PageSize:   10,
		Page:       1,
	}, dates)
}

// CacheKey is a canonical representation of a parsed query, equal for
// queries that hydrate to the same tree.
func CacheKey(p *Parsed) string {
	ids := p.Selection().Keys()
	slices.Sort(ids)
	return strings.Join(ids, ",") + "|" + p.DateRange.String()
}
