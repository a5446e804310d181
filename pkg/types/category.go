package types

// PublisherDateField is the external id of the category that carries the
// publication date range instead of selectable children.
const PublisherDateField = "publisher_date"

// RawCategory is a filter category as delivered by the portal backend.
type RawCategory struct {
	Id                int               `json:"id"`
	ExternalId        string            `json:"external_id"`
	Field             *string           `json:"field"`
	Name              string            `json:"name,omitempty"`
	TitleTranslations map[string]string `json:"title_translations,omitempty"`
	Children          []*RawCategory    `json:"children"`
}

// CategoryNode is a hydrated filter category. Nodes are built fresh on every
// hydration pass and own their children; the parent link is a back reference only.
type CategoryNode struct {
	Id                int               `json:"id"`
	ExternalId        string            `json:"external_id"`
	Field             *string           `json:"field"`
	Name              string            `json:"name,omitempty"`
	TitleTranslations map[string]string `json:"title_translations,omitempty"`
	Children          []*CategoryNode   `json:"children"`

	SearchId string     `json:"searchId"`
	Selected bool       `json:"selected"`
	IsOpen   bool       `json:"isOpen"`
	ShowAll  bool       `json:"showAll"`
	Dates    *DateRange `json:"dates,omitempty"`

	parent *CategoryNode
}

func (n *CategoryNode) Parent() *CategoryNode {
	return n.parent
}

func (n *CategoryNode) SetParent(parent *CategoryNode) {
	n.parent = parent
}

func (n *CategoryNode) IsRoot() bool {
	return n.parent == nil
}

func (n *CategoryNode) IsDateFilter() bool {
	return n.ExternalId == PublisherDateField
}

// IndexKey is the key the node is stored under in a category index.
func (n *CategoryNode) IndexKey() string {
	return CategoryKey(n.ExternalId, n.Field)
}

// CategoryKey builds the composite lookup key for an item, prefixed with its
// root or field identifier when one is given.
func CategoryKey(itemId string, rootId *string) string {
	if rootId == nil {
		return itemId
	}
	return *rootId + "-" + itemId
}

// SelectionSet holds the external ids chosen by the user.
type SelectionSet map[string]bool

func (s SelectionSet) Has(externalId string) bool {
	return s[externalId]
}

// Keys returns the ids that are selected.
func (s SelectionSet) Keys() []string {
	ret := make([]string, 0, len(s))
	for id, ok := range s {
		if ok {
			ret = append(ret, id)
		}
	}
	return ret
}

// IdSet is a set of category primary keys, used for open and show-all state.
type IdSet map[int]struct{}

func NewIdSet(ids ...int) IdSet {
	s := make(IdSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IdSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// Toggle flips membership of id and reports whether it is now present.
func (s IdSet) Toggle(id int) bool {
	if _, ok := s[id]; ok {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s IdSet) Clone() IdSet {
	ret := make(IdSet, len(s))
	for id := range s {
		ret[id] = struct{}{}
	}
	return ret
}

// FilterMap groups selected external ids by search group id.
type FilterMap map[string][]string

// Selection flattens all groups into a selection set.
func (f FilterMap) Selection() SelectionSet {
	ret := SelectionSet{}
	for _, items := range f {
		for _, item := range items {
			ret[item] = true
		}
	}
	return ret
}
