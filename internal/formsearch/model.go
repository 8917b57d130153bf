// Package formsearch implements saved form searches. A corpus may reference
// one; its exported forms are then derived by executing the search instead of
// reading the corpus content.
package formsearch

import (
	"encoding/json"
	"time"
)

type FormSearch struct {
	ID               int             `json:"id"`
	UUID             string          `json:"uuid"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Search           json.RawMessage `json:"search"`
	EntererID        *int            `json:"enterer_id"`
	DatetimeModified time.Time       `json:"datetime_modified"`
}

// Mini is the abbreviated representation embedded in corpus new/edit payloads.
type Mini struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type WriteRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Search      json.RawMessage `json:"search"`
}
