// Package corpus implements the corpus resource: named collections of forms
// defined either by inline form references or by a saved form search, with
// versioned backups and exported corpus files.
package corpus

import (
	"encoding/json"
	"regexp"
	"strconv"
	"time"

	"oldb/internal/formsearch"
	"oldb/internal/tag"
)

// formReferencePattern matches inline references like "form[42]" in corpus
// content.
var formReferencePattern = regexp.MustCompile(`[Ff]orm\[(\d+)\]`)

// FormReferences returns the ids of the forms referenced in the content, in
// the order they were referenced. Duplicates are preserved: a form may occur
// more than once in a corpus.
func FormReferences(content string) []int {
	matches := formReferencePattern.FindAllStringSubmatch(content, -1)
	ids := make([]int, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// FormMini is the abbreviated form representation carried on a corpus.
type FormMini struct {
	ID            int    `json:"id"`
	Transcription string `json:"transcription"`
}

// File is the metadata record for an exported corpus file.
type File struct {
	ID               int       `json:"id"`
	Filename         string    `json:"filename"`
	Format           string    `json:"format"`
	Restricted       bool      `json:"restricted"`
	CreatorID        *int      `json:"creator_id"`
	ModifierID       *int      `json:"modifier_id"`
	DatetimeCreated  time.Time `json:"datetime_created"`
	DatetimeModified time.Time `json:"datetime_modified"`
}

type Corpus struct {
	ID               int                    `json:"id"`
	UUID             string                 `json:"uuid"`
	Name             string                 `json:"name"`
	Description      string                 `json:"description"`
	Content          string                 `json:"content"`
	FormSearch       *formsearch.FormSearch `json:"form_search"`
	Tags             []tag.Tag              `json:"tags"`
	Forms            []FormMini             `json:"forms"`
	Files            []File                 `json:"files"`
	EntererID        *int                   `json:"enterer_id"`
	ModifierID       *int                   `json:"modifier_id"`
	DatetimeEntered  time.Time              `json:"datetime_entered"`
	DatetimeModified time.Time              `json:"datetime_modified"`
}

type WriteRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Content     string `json:"content"`
	FormSearch  *int   `json:"form_search"`
	Tags        []int  `json:"tags"`
}

// Backup is an immutable snapshot of a corpus taken before each mutating or
// destructive operation. Related data is denormalized to JSON so the snapshot
// survives deletion of the rows it refers to.
type Backup struct {
	ID               int             `json:"id"`
	CorpusID         int             `json:"corpus_id"`
	UUID             string          `json:"uuid"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Content          string          `json:"content"`
	FormSearch       json.RawMessage `json:"form_search"`
	Tags             json.RawMessage `json:"tags"`
	Forms            json.RawMessage `json:"forms"`
	Modifier         json.RawMessage `json:"modifier"`
	DatetimeEntered  time.Time       `json:"datetime_entered"`
	DatetimeModified time.Time       `json:"datetime_modified"`
}

// NewBackup snapshots the current state of a corpus.
func NewBackup(c *Corpus) *Backup {
	formSearch, _ := json.Marshal(c.FormSearch)
	tags, _ := json.Marshal(c.Tags)
	forms, _ := json.Marshal(c.Forms)
	modifier, _ := json.Marshal(c.ModifierID)
	return &Backup{
		CorpusID:         c.ID,
		UUID:             c.UUID,
		Name:             c.Name,
		Description:      c.Description,
		Content:          c.Content,
		FormSearch:       formSearch,
		Tags:             tags,
		Forms:            forms,
		Modifier:         modifier,
		DatetimeEntered:  c.DatetimeEntered,
		DatetimeModified: c.DatetimeModified,
	}
}

// SearchColumns lists the corpus attributes reachable from the search DSL.
var SearchColumns = map[string]string{
	"id":                "c.id",
	"uuid":              "c.uuid",
	"name":              "c.name",
	"description":       "c.description",
	"content":           "c.content",
	"form_search_id":    "c.form_search_id",
	"enterer_id":        "c.enterer_id",
	"datetime_entered":  "c.datetime_entered",
	"datetime_modified": "c.datetime_modified",
}
