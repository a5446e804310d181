package category

import (
	"github.com/matst80/slask-filters/pkg/types"
)

// MaxDepth bounds the taxonomy depth, deeper payloads are rejected as corrupt.
const MaxDepth = 64

// State is everything hydration reads besides the raw forest.
type State struct {
	Selection types.SelectionSet
	Dates     types.DateRange
	Opened    types.IdSet
	ShowAll   types.IdSet
}

// Build copies a raw forest into fresh nodes with parent links. The raw
// forest is left untouched so it can be hydrated again with another state.
func Build(raw []*types.RawCategory) ([]*types.CategoryNode, error) {
	return build(raw, nil, map[*types.RawCategory]struct{}{}, 0)
}

func build(raw []*types.RawCategory, parent *types.CategoryNode, path map[*types.RawCategory]struct{}, depth int) ([]*types.CategoryNode, error) {
	ret := make([]*types.CategoryNode, 0, len(raw))
	for _, r := range raw {
		if r == nil {
			continue
		}
		if _, seen := path[r]; seen {
			return nil, &types.DataIntegrityError{ExternalId: r.ExternalId, Reason: "category is its own ancestor"}
		}
		if depth >= MaxDepth {
			return nil, &types.DataIntegrityError{ExternalId: r.ExternalId, Reason: "category tree too deep"}
		}
		if r.ExternalId == "" {
			return nil, &types.DataIntegrityError{Reason: "category without external_id"}
		}
		node := &types.CategoryNode{
			Id:                r.Id,
			ExternalId:        r.ExternalId,
			Field:             r.Field,
			Name:              r.Name,
			TitleTranslations: r.TitleTranslations,
		}
		node.SetParent(parent)
		path[r] = struct{}{}
		children, err := build(r.Children, node, path, depth+1)
		delete(path, r)
		if err != nil {
			return nil, err
		}
		node.Children = children
		ret = append(ret, node)
	}
	return ret, nil
}

// Hydrate annotates nodes in document order and reports whether any of
// them ended up selected. Children are hydrated before their parent settles
// its own selection so selection propagates to every ancestor.
func Hydrate(nodes []*types.CategoryNode, state State, parent *types.CategoryNode) bool {
	anySelected := false
	for _, node := range nodes {
		if hydrateNode(node, state, parent) {
			anySelected = true
		}
	}
	return anySelected
}

func hydrateNode(node *types.CategoryNode, state State, parent *types.CategoryNode) bool {
	if parent != nil {
		node.SearchId = parent.SearchId
	} else {
		node.SearchId = node.ExternalId
	}

	if node.IsDateFilter() {
		dates := state.Dates.Copy()
		node.Dates = &dates
		node.Selected = !dates.IsEmpty()
	} else {
		node.Selected = state.Selection.Has(node.ExternalId)
	}

	hasSelectedChild := Hydrate(node.Children, state, node)

	node.Selected = node.Selected || hasSelectedChild
	node.IsOpen = state.Opened.Has(node.Id) || node.Selected
	node.ShowAll = state.ShowAll.Has(node.Id)
	return node.Selected
}
