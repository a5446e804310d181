package types

import (
	"errors"
	"fmt"
)

var ErrNotLoaded = errors.New("filter categories not loaded")

// DataIntegrityError reports category payloads that can not form a finite tree.
type DataIntegrityError struct {
	ExternalId string
	Reason     string
}

func (e *DataIntegrityError) Error() string {
	if e.ExternalId == "" {
		return fmt.Sprintf("invalid category data: %s", e.Reason)
	}
	return fmt.Sprintf("invalid category data at %q: %s", e.ExternalId, e.Reason)
}
