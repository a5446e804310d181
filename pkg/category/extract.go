package category

import (
	"github.com/matst80/slask-filters/pkg/types"
)

// ExtractSelected returns the nodes that take part in a search: selected
// non-root nodes and the date filter when one of its bounds is set.
// Descendants come before their ancestors.
func ExtractSelected(forest []*types.CategoryNode) []*types.CategoryNode {
	ret := make([]*types.CategoryNode, 0)
	for _, node := range forest {
		if len(node.Children) > 0 {
			ret = append(ret, ExtractSelected(node.Children)...)
		}
		if node.IsDateFilter() {
			if node.Dates != nil && !node.Dates.IsEmpty() {
				ret = append(ret, node)
			}
		} else if node.Selected && !node.IsRoot() {
			ret = append(ret, node)
		}
	}
	return ret
}

// GroupForSearch buckets the external ids of selected nodes by search id,
// keeping the order in which they were extracted.
func GroupForSearch(selected []*types.CategoryNode) types.FilterMap {
	ret := types.FilterMap{}
	for _, node := range selected {
		ret[node.SearchId] = append(ret[node.SearchId], node.ExternalId)
	}
	return ret
}

// SearchFilters is ExtractSelected followed by GroupForSearch.
func SearchFilters(forest []*types.CategoryNode) types.FilterMap {
	return GroupForSearch(ExtractSelected(forest))
}
