package category

import (
	"github.com/matst80/slask-filters/pkg/types"
)

// Forest is a hydrated category tree together with its lookup index and the
// state it was hydrated with.
type Forest struct {
	Roots      []*types.CategoryNode
	Index      Index
	Collisions []Collision
	State      State
}

// NewForest builds, hydrates and indexes a fresh tree from raw.
func NewForest(raw []*types.RawCategory, state State) (*Forest, error) {
	roots, err := Build(raw)
	if err != nil {
		return nil, err
	}
	Hydrate(roots, state, nil)
	idx, collisions := BuildIndex(roots)
	return &Forest{
		Roots:      roots,
		Index:      idx,
		Collisions: collisions,
		State:      state,
	}, nil
}

func (f *Forest) Lookup(itemId string, rootId *string) *types.CategoryNode {
	if f == nil {
		return nil
	}
	return f.Index.Lookup(itemId, rootId)
}

func (f *Forest) SearchFilters() types.FilterMap {
	if f == nil {
		return types.FilterMap{}
	}
	return SearchFilters(f.Roots)
}

// Walk visits every node depth first until fn returns false.
func (f *Forest) Walk(fn func(node *types.CategoryNode) bool) {
	var walk func(nodes []*types.CategoryNode) bool
	walk = func(nodes []*types.CategoryNode) bool {
		for _, n := range nodes {
			if !fn(n) || !walk(n.Children) {
				return false
			}
		}
		return true
	}
	walk(f.Roots)
}
