// Package syncat implements the syntactic category lookup resource.
package syncat

import "time"

type SyntacticCategory struct {
	ID               int       `json:"id"`
	UUID             string    `json:"uuid"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Description      string    `json:"description"`
	DatetimeModified time.Time `json:"datetime_modified"`
}

type WriteRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

var validTypes = map[string]bool{"": true, "lexical": true, "phrasal": true, "sentential": true}
