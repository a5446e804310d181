package query

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"slices"
	"testing"

	"github.com/matst80/slask-filters/pkg/category"
	"github.com/matst80/slask-filters/pkg/types"
)

func TestParseQueryValues(t *testing.T) {
	query := url.Values{
		"search_text": []string{"wiskunde"},
		"ordering":    []string{"-publisher_date"},
		"page":        []string{"2"},
		"page_size":   []string{"10"},
		"filters":     []string{`{"technical_type":["video","document"],"lom_educational_levels":["HBO"],"publisher_date":["2020-01-01",null]}`},
		"unknown":     []string{"ignored"},
	}
	p, err := Decode(query)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	s := p.Search
	if s.SearchText != "wiskunde" {
		t.Errorf("Expected search text to be wiskunde, got %v", s.SearchText)
	}
	if s.Ordering != "-publisher_date" {
		t.Errorf("Expected ordering to be -publisher_date, got %v", s.Ordering)
	}
	if s.Page != 2 {
		t.Errorf("Expected page to be 2, got %v", s.Page)
	}
	if s.PageSize != 10 {
		t.Errorf("Expected page size to be 10, got %v", s.PageSize)
	}
	if !reflect.DeepEqual(s.Filters["technical_type"], []string{"video", "document"}) {
		t.Errorf("Expected technical_type filter to be [video document], got %v", s.Filters["technical_type"])
	}
	if _, ok := s.Filters[types.PublisherDateField]; ok {
		t.Errorf("Expected date group to be lifted out of the filters, got %v", s.Filters)
	}
	if p.DateRange.StartDate == nil || p.DateRange.StartDate.Format(types.DateLayout) != "2020-01-01" {
		t.Errorf("Expected start date 2020-01-01, got %v", p.DateRange)
	}
	if p.DateRange.EndDate != nil {
		t.Errorf("Expected open end date, got %v", p.DateRange.EndDate)
	}
}

func TestDecodeDefaults(t *testing.T) {
	p, err := Decode(url.Values{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Search.Page != 1 || p.Search.PageSize != types.DefaultPageSize {
		t.Errorf("Expected default paging, got page %d size %d", p.Search.Page, p.Search.PageSize)
	}
	if len(p.Selection()) != 0 || !p.DateRange.IsEmpty() {
		t.Errorf("Expected empty selection and dates, got %v %v", p.Selection(), p.DateRange)
	}
}

func TestDecodeClampsPaging(t *testing.T) {
	p, err := Decode(url.Values{"page": {"0"}, "page_size": {"5000"}})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Search.Page != 1 || p.Search.PageSize != types.MaxPageSize {
		t.Errorf("Expected clamped paging, got page %d size %d", p.Search.Page, p.Search.PageSize)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []url.Values{
		{"filters": {"{not json"}},
		{"filters": {`{"publisher_date":["yesterday",null]}`}},
		{"page": {"two"}},
	}
	for _, values := range cases {
		if _, err := Decode(values); err == nil {
			t.Errorf("Expected error for %v", values)
		}
		sel, dates, err := FiltersFromQuery(values)
		if err == nil || len(sel) != 0 || !dates.IsEmpty() {
			t.Errorf("Expected empty result and error for %v", values)
		}
	}
}

func TestFiltersFromQueryFlattensGroups(t *testing.T) {
	sel, dates, err := FiltersFromQuery(url.Values{
		"filters": {`{"a":["1","2"],"b":["3",""],"c":[]}`},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expected := types.SelectionSet{"1": true, "2": true, "3": true}
	if !reflect.DeepEqual(sel, expected) {
		t.Errorf("Expected %v, got %v", expected, sel)
	}
	if !dates.IsEmpty() {
		t.Errorf("Expected no dates, got %v", dates)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	search := &types.Search{
		SearchText: "biologie",
		Filters: types.FilterMap{
			"technical_type":         {"video"},
			"lom_educational_levels": {"HBO", "WO"},
			types.PublisherDateField: {types.PublisherDateField},
		},
		PageSize: 10,
		Page:     3,
		Ordering: "title",
	}
	dates := types.DateRange{EndDate: types.MustDate("2022-12-31")}
	values, err := Encode(search, dates)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	p, err := Decode(values)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Search.SearchText != "biologie" || p.Search.Page != 3 || p.Search.PageSize != 10 || p.Search.Ordering != "title" {
		t.Errorf("Unexpected search after round trip: %+v", p.Search)
	}
	expected := types.SelectionSet{"video": true, "HBO": true, "WO": true}
	if !reflect.DeepEqual(p.Selection(), expected) {
		t.Errorf("Expected %v, got %v", expected, p.Selection())
	}
	if p.DateRange.StartDate != nil || p.DateRange.EndDate.Format(types.DateLayout) != "2022-12-31" {
		t.Errorf("Expected ..2022-12-31, got %v", p.DateRange)
	}
}

func TestEncodeDropsDateGroupWithoutRange(t *testing.T) {
	values, err := Encode(&types.Search{
		Filters:  types.FilterMap{types.PublisherDateField: {types.PublisherDateField}},
		PageSize: 10,
		Page:     1,
	}, types.DateRange{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if values.Has(FiltersKey) {
		t.Errorf("Expected no filters parameter, got %v", values.Get(FiltersKey))
	}
}

func TestHydrateExtractEncodeIsIdempotent(t *testing.T) {
	field := func(s string) *string { return &s }
	forest := []*types.RawCategory{
		{Id: 1, ExternalId: "technical_type", Field: field("technical_type"), Children: []*types.RawCategory{
			{Id: 2, ExternalId: "video"},
			{Id: 3, ExternalId: "audio"},
		}},
		{Id: 4, ExternalId: "lom_educational_levels", Field: field("lom_educational_levels"), Children: []*types.RawCategory{
			{Id: 5, ExternalId: "HBO"},
		}},
		{Id: 6, ExternalId: types.PublisherDateField, Field: field(types.PublisherDateField)},
	}
	selection := types.SelectionSet{"video": true, "HBO": true, "not-in-forest": true}
	dates := types.DateRange{StartDate: types.MustDate("2019-05-01")}

	f, err := category.NewForest(forest, category.State{Selection: selection, Dates: dates})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	search := types.NewSearch()
	search.Filters = f.SearchFilters()
	values, err := Encode(search, dates)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	got, gotDates, err := FiltersFromQuery(values)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	keys := got.Keys()
	slices.Sort(keys)
	if !reflect.DeepEqual(keys, []string{"HBO", "video"}) {
		t.Errorf("Expected [HBO video], got %v", keys)
	}
	if gotDates.String() != dates.String() {
		t.Errorf("Expected dates %v, got %v", dates, gotDates)
	}
}

func TestSuggestionHref(t *testing.T) {
	href, err := SuggestionHref("/materials/search/", "wiskunde", types.FilterMap{"technical_type": {"video"}}, types.DateRange{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	u, err := url.Parse(href)
	if err != nil {
		t.Fatalf("Expected valid url, got %v", err)
	}
	if u.Path != "/materials/search/" {
		t.Errorf("Expected path /materials/search/, got %s", u.Path)
	}
	q := u.Query()
	if q.Get("search_text") != "wiskunde" || q.Get("page") != "1" || q.Get("page_size") != "10" {
		t.Errorf("Unexpected query %v", q)
	}
	if q.Get(FiltersKey) != `{"technical_type":["video"]}` {
		t.Errorf("Unexpected filters %s", q.Get(FiltersKey))
	}
}

func TestFromRequestBody(t *testing.T) {
	body := bytes.NewBufferString(`{"search_text":"taal","filters":{"technical_type":["video"],"publisher_date":[null,"2021-01-01"]},"page":2,"page_size":15}`)
	r := httptest.NewRequest(http.MethodPost, "/search", body)
	p, err := FromRequest(r)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Search.SearchText != "taal" || p.Search.Page != 2 || p.Search.PageSize != 15 {
		t.Errorf("Unexpected search %+v", p.Search)
	}
	if p.DateRange.EndDate == nil || p.DateRange.StartDate != nil {
		t.Errorf("Expected ..2021-01-01, got %v", p.DateRange)
	}
	if !reflect.DeepEqual(p.Search.Filters, types.FilterMap{"technical_type": {"video"}}) {
		t.Errorf("Unexpected filters %v", p.Search.Filters)
	}
}

func TestFromRequestQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/search?search_text=taal&filters=%7B%22a%22%3A%5B%22b%22%5D%7D", nil)
	p, err := FromRequest(r)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !p.Selection().Has("b") {
		t.Errorf("Expected b to be selected, got %v", p.Selection())
	}
}

func TestCacheKeyIgnoresOrder(t *testing.T) {
	a, _ := Decode(url.Values{"filters": {`{"g":["x","y"]}`}})
	b, _ := Decode(url.Values{"filters": {`{"g":["y","x"]}`}, "page": {"4"}})
	if CacheKey(a) != CacheKey(b) {
		t.Errorf("Expected equal keys, got %s and %s", CacheKey(a), CacheKey(b))
	}
	c, _ := Decode(url.Values{"filters": {`{"g":["x"]}`}})
	if CacheKey(a) == CacheKey(c) {
		t.Errorf("Expected different keys for different selections")
	}
}
