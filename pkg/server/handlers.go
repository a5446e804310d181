package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/matst80/slask-filters/pkg/category"
	"github.com/matst80/slask-filters/pkg/common"
	"github.com/matst80/slask-filters/pkg/query"
	"github.com/matst80/slask-filters/pkg/store"
	"github.com/matst80/slask-filters/pkg/types"
)

type treeResponse struct {
	Categories    []*types.CategoryNode `json:"categories"`
	SearchFilters types.FilterMap       `json:"search_filters"`
}

type searchResponse struct {
	*types.SearchResult
	SuggestionHref string `json:"did_you_mean_href,omitempty"`
}

type linkResponse struct {
	Href string `json:"href"`
}

func upstreamError(err error) error {
	return &common.StatusError{Code: http.StatusBadGateway, Err: err}
}

func treeFrom(forest *category.Forest) treeResponse {
	return treeResponse{
		Categories:    forest.Roots,
		SearchFilters: forest.SearchFilters(),
	}
}

// load hydrates the session tree for values. Malformed queries are rejected
// before the session is touched.
func (ws *WebServer) load(r *http.Request, sessionId string, values url.Values) (*store.Session, *category.Forest, error) {
	if _, err := query.Decode(values); err != nil {
		return nil, nil, common.BadRequest(err)
	}
	session := ws.Sessions.Get(sessionId)
	forest, err := session.Load(r.Context(), values)
	if err != nil {
		return nil, nil, upstreamError(err)
	}
	return session, forest, nil
}

// current returns the tree the session last loaded, loading it from the
// request query when there is none yet.
func (ws *WebServer) current(r *http.Request, sessionId string) (*store.Session, *category.Forest, error) {
	session := ws.Sessions.Get(sessionId)
	if forest := session.Forest(); forest != nil {
		return session, forest, nil
	}
	return ws.load(r, sessionId, r.URL.Query())
}

func (ws *WebServer) FilterCategories(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	_, forest, err := ws.load(r, sessionId, r.URL.Query())
	if err != nil {
		return err
	}
	categoryRequests.Inc()
	defaultHeaders(w, r, "60")
	w.WriteHeader(http.StatusOK)
	return enc.Encode(treeFrom(forest))
}

func (ws *WebServer) SearchFilters(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	_, forest, err := ws.load(r, sessionId, r.URL.Query())
	if err != nil {
		return err
	}
	defaultHeaders(w, r, "60")
	w.WriteHeader(http.StatusOK)
	return enc.Encode(forest.SearchFilters())
}

func (ws *WebServer) Category(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	qs := r.URL.Query()
	itemId := qs.Get("id")
	if itemId == "" {
		return common.BadRequest(errors.New("missing id"))
	}
	var rootId *string
	if qs.Has("root") {
		root := qs.Get("root")
		rootId = &root
	}
	_, forest, err := ws.current(r, sessionId)
	if err != nil {
		return err
	}
	node := forest.Lookup(itemId, rootId)
	if node == nil {
		return common.NotFound(fmt.Errorf("category %s not found", types.CategoryKey(itemId, rootId)))
	}
	defaultHeaders(w, r, "60")
	w.WriteHeader(http.StatusOK)
	return enc.Encode(node)
}

func (ws *WebServer) GetSelection(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	session := ws.Sessions.Get(sessionId)
	noCacheHeaders(w, r)
	w.WriteHeader(http.StatusOK)
	return enc.Encode(session.Selection())
}

func decodeIds(r *http.Request) ([]string, error) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		return nil, common.BadRequest(err)
	}
	if len(ids) == 0 {
		return nil, common.BadRequest(errors.New("no ids given"))
	}
	return ids, nil
}

func (ws *WebServer) Select(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	ids, err := decodeIds(r)
	if err != nil {
		return err
	}
	session := ws.Sessions.Get(sessionId)
	session.Select(r.PathValue("category"), ids...)
	noCacheHeaders(w, r)
	w.WriteHeader(http.StatusOK)
	return enc.Encode(session.Selection())
}

func (ws *WebServer) Deselect(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	ids, err := decodeIds(r)
	if err != nil {
		return err
	}
	session := ws.Sessions.Get(sessionId)
	session.Deselect(r.PathValue("category"), ids...)
	noCacheHeaders(w, r)
	w.WriteHeader(http.StatusOK)
	return enc.Encode(session.Selection())
}

func (ws *WebServer) ResetSelection(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	var selection map[string][]string
	if err := json.NewDecoder(r.Body).Decode(&selection); err != nil {
		return common.BadRequest(err)
	}
	session := ws.Sessions.Get(sessionId)
	session.ResetSelection(selection)
	noCacheHeaders(w, r)
	w.WriteHeader(http.StatusOK)
	return enc.Encode(session.Selection())
}

func (ws *WebServer) toggle(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder, showAll bool) error {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return common.BadRequest(err)
	}
	session, _, err := ws.current(r, sessionId)
	if err != nil {
		return err
	}
	var forest *category.Forest
	if showAll {
		forest, err = session.ToggleShowAll(r.Context(), id)
	} else {
		forest, err = session.ToggleOpen(r.Context(), id)
	}
	if err != nil {
		return upstreamError(err)
	}
	noCacheHeaders(w, r)
	w.WriteHeader(http.StatusOK)
	return enc.Encode(treeFrom(forest))
}

func (ws *WebServer) ToggleOpen(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	return ws.toggle(w, r, sessionId, enc, false)
}

func (ws *WebServer) ToggleShowAll(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	return ws.toggle(w, r, sessionId, enc, true)
}

// Search hydrates the session tree from the posted filters and forwards the
// filters extracted from it to the search backend.
func (ws *WebServer) Search(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	parsed, err := query.FromRequest(r)
	if err != nil {
		return common.BadRequest(err)
	}
	values, err := query.Encode(parsed.Search, parsed.DateRange)
	if err != nil {
		return err
	}
	_, forest, err := ws.load(r, sessionId, values)
	if err != nil {
		return err
	}
	search := *parsed.Search
	search.Filters = forest.SearchFilters()

	searchRequests.Inc()
	result, err := ws.Portal.Search(r.Context(), &search, parsed.DateRange)
	if err != nil {
		return upstreamError(err)
	}
	noCacheHeaders(w, r)
	w.WriteHeader(http.StatusOK)
	if result == nil {
		return enc.Encode(nil)
	}
	response := searchResponse{SearchResult: result}
	if result.DidYouMean != nil && result.DidYouMean.Suggestion != "" {
		response.SuggestionHref, err = query.SuggestionHref(ws.SearchPath, result.DidYouMean.Suggestion, search.Filters, parsed.DateRange)
		if err != nil {
			return err
		}
	}
	return enc.Encode(response)
}

func (ws *WebServer) SuggestionLink(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	suggestion := r.URL.Query().Get("suggestion")
	if suggestion == "" {
		return common.BadRequest(errors.New("missing suggestion"))
	}
	session := ws.Sessions.Get(sessionId)
	var dates types.DateRange
	if parsed := session.Query(); parsed != nil {
		dates = parsed.DateRange
	}
	href, err := query.SuggestionHref(ws.SearchPath, suggestion, session.SearchFilters(), dates)
	if err != nil {
		return err
	}
	defaultHeaders(w, r, "60")
	w.WriteHeader(http.StatusOK)
	return enc.Encode(linkResponse{Href: href})
}

func (ws *WebServer) Invalidate(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "manual"
	}
	if err := ws.Categories.Invalidate(r.Context()); err != nil {
		return err
	}
	invalidations.Inc()
	if ws.Invalidation != nil {
		if err := ws.Invalidation.Publish(r.Context(), reason); err != nil {
			return upstreamError(err)
		}
	}
	noCacheHeaders(w, r)
	w.WriteHeader(http.StatusAccepted)
	return enc.Encode(map[string]string{"status": "invalidated", "reason": reason})
}
