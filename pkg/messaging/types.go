package messaging

import "time"

type ChangeTopic string

const (
	CategoriesChanged ChangeTopic = "filter_categories_changed"
)

// CategoriesChangedMessage announces that the filter taxonomy was edited and
// cached forests must be dropped.
type CategoriesChangedMessage struct {
	Origin string    `json:"origin"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}
