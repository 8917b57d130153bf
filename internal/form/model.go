// Package form implements the linguistic form resource. Forms are the atoms
// corpora are built from; a form tagged "restricted" restricts any corpus
// file it is exported into.
package form

import (
	"time"

	"oldb/internal/tag"
)

type CategoryMini struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Form struct {
	ID                int           `json:"id"`
	UUID              string        `json:"uuid"`
	Transcription     string        `json:"transcription"`
	MorphemeBreak     string        `json:"morpheme_break"`
	MorphemeGloss     string        `json:"morpheme_gloss"`
	Translation       string        `json:"translation"`
	Comments          string        `json:"comments"`
	SyntacticCategory *CategoryMini `json:"syntactic_category"`
	Tags              []tag.Tag     `json:"tags"`
	EntererID         *int          `json:"enterer_id"`
	ModifierID        *int          `json:"modifier_id"`
	DatetimeEntered   time.Time     `json:"datetime_entered"`
	DatetimeModified  time.Time     `json:"datetime_modified"`
}

type WriteRequest struct {
	Transcription     string `json:"transcription"`
	MorphemeBreak     string `json:"morpheme_break"`
	MorphemeGloss     string `json:"morpheme_gloss"`
	Translation       string `json:"translation"`
	Comments          string `json:"comments"`
	SyntacticCategory *int   `json:"syntactic_category"`
	Tags              []int  `json:"tags"`
}

// Restricted reports whether the form carries the access-control tag.
func (f *Form) Restricted() bool {
	for _, t := range f.Tags {
		if t.Name == tag.Restricted {
			return true
		}
	}
	return false
}

// SearchColumns lists the attributes the search DSL may reach, mapped to SQL
// columns on the forms table.
var SearchColumns = map[string]string{
	"id":                    "f.id",
	"uuid":                  "f.uuid",
	"transcription":         "f.transcription",
	"morpheme_break":        "f.morpheme_break",
	"morpheme_gloss":        "f.morpheme_gloss",
	"translation":           "f.translation",
	"comments":              "f.comments",
	"syntactic_category_id": "f.syntactic_category_id",
	"enterer_id":            "f.enterer_id",
	"datetime_entered":      "f.datetime_entered",
	"datetime_modified":     "f.datetime_modified",
}
