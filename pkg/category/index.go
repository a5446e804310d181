package category

import (
	"log"

	"github.com/matst80/slask-filters/pkg/types"
)

// Collision records two nodes that resolved to the same index key. The later
// node replaces the earlier one in the index.
type Collision struct {
	Key      string
	Replaced *types.CategoryNode
	By       *types.CategoryNode
}

type Index map[string]*types.CategoryNode

// BuildIndex walks the forest depth first and maps every node by its
// composite key.
func BuildIndex(forest []*types.CategoryNode) (Index, []Collision) {
	idx := Index{}
	var collisions []Collision
	var walk func(nodes []*types.CategoryNode)
	walk = func(nodes []*types.CategoryNode) {
		for _, node := range nodes {
			key := node.IndexKey()
			if existing, ok := idx[key]; ok {
				collisions = append(collisions, Collision{Key: key, Replaced: existing, By: node})
			}
			idx[key] = node
			walk(node.Children)
		}
	}
	walk(forest)
	for _, c := range collisions {
		log.Printf("category index collision on %q: %d replaced by %d", c.Key, c.Replaced.Id, c.By.Id)
	}
	return idx, collisions
}

// Lookup returns the node for itemId, scoped by rootId when given, or nil.
func (idx Index) Lookup(itemId string, rootId *string) *types.CategoryNode {
	return idx[types.CategoryKey(itemId, rootId)]
}

func (idx Index) Len() int {
	return len(idx)
}
