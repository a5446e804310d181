package store

import (
	"context"
	"net/url"
	"slices"
	"sync"

	"github.com/matst80/slask-filters/pkg/category"
	"github.com/matst80/slask-filters/pkg/query"
	"github.com/matst80/slask-filters/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

var hydrations = promauto.NewCounter(prometheus.CounterOpts{
	Name: "slaskfilters_hydrations_total",
	Help: "The total number of category tree hydrations",
})

// Session is the filter state of one visitor: the hydrated tree for the
// last loaded query, open and show-all ui state and the category selection.
type Session struct {
	Id         string
	categories *CategoryStore

	mu        sync.RWMutex
	forest    *category.Forest
	parsed    *query.Parsed
	opened    types.IdSet
	showAll   types.IdSet
	selection map[string][]string
	// version counts changes to the hydration inputs: the stored query and
	// the open and show-all sets.
	version uint64

	group singleflight.Group
}

func NewSession(id string, categories *CategoryStore) *Session {
	return &Session{
		Id:         id,
		categories: categories,
		opened:     types.IdSet{},
		showAll:    types.IdSet{},
		selection:  map[string][]string{},
	}
}

// Load decodes values and hydrates the category tree for it. Concurrent
// loads of the same query share one hydration and return the same forest.
func (s *Session) Load(ctx context.Context, values url.Values) (*category.Forest, error) {
	parsed, err := query.Decode(values)
	if err != nil {
		return nil, err
	}
	v, err, _ := s.group.Do(query.CacheKey(parsed), func() (any, error) {
		return s.settle(ctx, parsed)
	})
	if err != nil {
		return nil, err
	}
	return v.(*category.Forest), nil
}

func (s *Session) hydrate(ctx context.Context, state category.State) (*category.Forest, error) {
	raw, err := s.categories.Raw(ctx)
	if err != nil {
		return nil, err
	}
	forest, err := category.NewForest(raw, state)
	if err != nil {
		return nil, err
	}
	hydrations.Inc()
	return forest, nil
}

// settle hydrates parsed, or the stored query when parsed is nil, with the
// current ui state and stores the result. When the session changed while
// hydrating it starts over with the newer state.
func (s *Session) settle(ctx context.Context, parsed *query.Parsed) (*category.Forest, error) {
	for {
		s.mu.RLock()
		version := s.version
		p := parsed
		if p == nil {
			p = s.parsed
		}
		state := category.State{
			Opened:  s.opened.Clone(),
			ShowAll: s.showAll.Clone(),
		}
		s.mu.RUnlock()
		if p == nil {
			return nil, types.ErrNotLoaded
		}
		state.Selection = p.Selection()
		state.Dates = p.DateRange

		forest, err := s.hydrate(ctx, state)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.version == version {
			s.forest = forest
			s.parsed = p
			s.version++
			s.mu.Unlock()
			return forest, nil
		}
		s.mu.Unlock()
	}
}

// ToggleOpen flips the explicit open state of a category. Selected
// categories stay open regardless.
func (s *Session) ToggleOpen(ctx context.Context, id int) (*category.Forest, error) {
	return s.toggle(ctx, s.opened, id)
}

func (s *Session) ToggleShowAll(ctx context.Context, id int) (*category.Forest, error) {
	return s.toggle(ctx, s.showAll, id)
}

func (s *Session) toggle(ctx context.Context, set types.IdSet, id int) (*category.Forest, error) {
	s.mu.Lock()
	if s.forest == nil {
		s.mu.Unlock()
		return nil, types.ErrNotLoaded
	}
	set.Toggle(id)
	s.version++
	s.mu.Unlock()
	return s.settle(ctx, nil)
}

func (s *Session) Forest() *category.Forest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forest
}

// Query returns the last loaded query, nil before the first load.
func (s *Session) Query() *query.Parsed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parsed
}

func (s *Session) CategoryById(itemId string, rootId *string) *types.CategoryNode {
	return s.Forest().Lookup(itemId, rootId)
}

// SearchFilters reduces the current tree to the filters sent with a search.
func (s *Session) SearchFilters() types.FilterMap {
	return s.Forest().SearchFilters()
}

// Select adds ids to the selection of a filter group.
func (s *Session) Select(group string, ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.selection[group]
	for _, id := range ids {
		if !slices.Contains(current, id) {
			current = append(current, id)
		}
	}
	s.selection[group] = current
}

// Deselect removes ids from the selection of a filter group and forgets
// the group once it is empty.
func (s *Session) Deselect(group string, ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := slices.DeleteFunc(s.selection[group], func(id string) bool {
		return slices.Contains(ids, id)
	})
	if len(current) == 0 {
		delete(s.selection, group)
		return
	}
	s.selection[group] = current
}

func (s *Session) ResetSelection(selection map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = map[string][]string{}
	for group, ids := range selection {
		if len(ids) > 0 {
			s.selection[group] = slices.Clone(ids)
		}
	}
}

func (s *Session) Selection() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make(map[string][]string, len(s.selection))
	for group, ids := range s.selection {
		ret[group] = slices.Clone(ids)
	}
	return ret
}
