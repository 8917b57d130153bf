package tag

import "time"

type Tag struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	DatetimeModified time.Time `json:"datetime_modified"`
}

// Restricted is the tag name that propagates access control from forms to
// exported corpus files.
const Restricted = "restricted"

type WriteRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
