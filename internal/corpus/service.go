package corpus

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"oldb/internal/form"
	"oldb/internal/formsearch"
	"oldb/internal/tag"
	"oldb/internal/user"
	"oldb/pkg/logger"
	"oldb/pkg/search"
	"oldb/socket"
)

var (
	// ErrNoChange signals an update that would write identical data.
	ErrNoChange = errors.New("the update request failed because the submitted data were not new")
	// ErrForbidden signals an attempt to read a restricted corpus file.
	ErrForbidden = errors.New("you are not authorized to access this resource")
)

// Publisher pushes change-feed events; satisfied by *socket.Hub.
type Publisher interface {
	Publish(evt socket.Event)
}

type Service struct {
	Repo         *Repository
	Users        *user.Repository
	Tags         *tag.Repository
	FormSearches *formsearch.Repository
	Hub          Publisher
	ExportsDir   string

	formBuilder *search.Builder
}

func NewService(repo *Repository, users *user.Repository, tags *tag.Repository,
	formSearches *formsearch.Repository, hub Publisher, exportsDir string) *Service {
	return &Service{
		Repo:         repo,
		Users:        users,
		Tags:         tags,
		FormSearches: formSearches,
		Hub:          hub,
		ExportsDir:   exportsDir,
		formBuilder:  search.NewBuilder("Form", form.SearchColumns),
	}
}

func (s *Service) Create(req *WriteRequest, userID int) (*Corpus, error) {
	id, err := s.Repo.Create(uuid.NewString(), req, FormReferences(req.Content), userID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.corpusDir(id), 0o755); err != nil {
		logger.Sugar.Errorf("Failed to create directory for corpus %d: %v", id, err)
	}

	created, err := s.Repo.Get(id)
	if err != nil {
		return nil, err
	}
	s.publish(socket.CorpusUpdateType, created, userID)
	return created, nil
}

// Update backs up the pre-update state and applies the new one. Submitting
// data identical to the current state is an error and produces no backup.
func (s *Service) Update(id int, req *WriteRequest, userID int) (*Corpus, error) {
	existing, err := s.Repo.Get(id)
	if err != nil {
		return nil, err
	}

	formIDs := FormReferences(req.Content)
	if !changed(existing, req, formIDs) {
		return nil, ErrNoChange
	}

	if err := s.Repo.Update(id, req, formIDs, userID, NewBackup(existing)); err != nil {
		return nil, err
	}
	updated, err := s.Repo.Get(id)
	if err != nil {
		return nil, err
	}
	s.publish(socket.CorpusUpdateType, updated, userID)
	return updated, nil
}

// Delete backs up the corpus, removes it, and discards its export directory.
// The deleted representation is returned.
func (s *Service) Delete(id, userID int) (*Corpus, error) {
	existing, err := s.Repo.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Delete(id, NewBackup(existing)); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(s.corpusDir(id)); err != nil {
		logger.Sugar.Errorf("Failed to remove directory for corpus %d: %v", id, err)
	}
	s.Hub.Publish(socket.Event{Type: socket.CorpusDeleteType, CorpusID: id, UserID: userID})
	return existing, nil
}

// History returns the corpus matching ref (id or UUID) together with its
// previous versions, newest first. Either side may be empty; both empty is
// the caller's 404.
func (s *Service) History(ref string) (*Corpus, []Backup, error) {
	c, err := s.Repo.GetByRef(ref)
	if err != nil && err != sql.ErrNoRows {
		return nil, nil, err
	}
	backups, err := s.Repo.Backups(ref)
	if err != nil {
		return nil, nil, err
	}
	return c, backups, nil
}

// NewEditData assembles the lists a client needs to build a corpus form.
// Query params name the lists wanted; no params means all of them. The
// corpus formats are always included.
func (s *Service) NewEditData(params url.Values) (map[string]any, error) {
	data := map[string]any{"corpus_formats": FormatNames()}
	all := !params.Has("form_searches") && !params.Has("users") && !params.Has("tags")

	if all || params.Has("form_searches") {
		minis, err := s.FormSearches.Minis()
		if err != nil {
			return nil, err
		}
		data["form_searches"] = minis
	}
	if all || params.Has("users") {
		minis, err := s.Users.Minis()
		if err != nil {
			return nil, err
		}
		data["users"] = minis
	}
	if all || params.Has("tags") {
		tags, err := s.Tags.List("id ASC", 0, 0)
		if err != nil {
			return nil, err
		}
		data["tags"] = tags
	}
	return data, nil
}

// WriteToFile writes the corpus to disk in the given format, gzips the
// result and records a corpus file row. A form search on the corpus
// supersedes its content: the exported forms are the search results.
//
// Concurrent writers to the same corpus file are not serialized; a
// dedicated worker would be the place to fix that.
func (s *Service) WriteToFile(id int, format string, userID int) (*Corpus, error) {
	c, err := s.Repo.Get(id)
	if err != nil {
		return nil, err
	}
	f, ok := Formats[format]
	if !ok {
		return nil, fmt.Errorf("unknown corpus format %q", format)
	}

	dir := s.corpusDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf("corpus_%d%s.%s", id, f.Suffix, f.Extension))

	restricted, err := s.writeForms(c, f, path)
	if err == nil {
		err = gzipFile(path)
	}
	if err == nil {
		err = s.Repo.UpsertFile(id, filepath.Base(path), format, restricted, userID)
	}
	if err != nil {
		// Never leave a partial export behind.
		os.Remove(path)
		os.Remove(path + ".gz")
		return nil, err
	}

	updated, err := s.Repo.Get(id)
	if err != nil {
		return nil, err
	}
	s.publish(socket.CorpusFileType, updated, userID)
	return updated, nil
}

func (s *Service) writeForms(c *Corpus, format Format, path string) (restricted bool, err error) {
	f, err := os.Create(path)
	if err != nil {
		return false, err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	write := func(ef ExportForm) error {
		for _, name := range ef.Tags {
			if name == tag.Restricted {
				restricted = true
			}
		}
		_, werr := f.WriteString(format.Writer(ef))
		return werr
	}

	if c.FormSearch != nil {
		var q search.Query
		if err := json.Unmarshal(c.FormSearch.Search, &q); err != nil {
			return false, err
		}
		where, args, err := s.formBuilder.Translate(q.Filter, 0)
		if err != nil {
			return false, err
		}
		orderBy, err := s.formBuilder.OrderBy(q.OrderBy, "f.id ASC")
		if err != nil {
			return false, err
		}
		forms, err := s.Repo.ExportFormsBySearch(where, args, orderBy)
		if err != nil {
			return false, err
		}
		for _, ef := range forms {
			if err := write(ef); err != nil {
				return false, err
			}
		}
		return restricted, nil
	}

	formsByID, err := s.Repo.ExportFormsByReference(c.ID)
	if err != nil {
		return false, err
	}
	for _, ref := range FormReferences(c.Content) {
		ef, ok := formsByID[ref]
		if !ok {
			return false, fmt.Errorf("form %d is referenced but not associated to the corpus", ref)
		}
		if err := write(ef); err != nil {
			return false, err
		}
	}
	return restricted, nil
}

// ServeFile resolves the on-disk path of an exported file, enforcing the
// restricted check: only administrators and unrestricted users may read a
// restricted file.
func (s *Service) ServeFile(corpusID, fileID, userID int, role string) (string, error) {
	file, err := s.Repo.GetFile(corpusID, fileID)
	if err != nil {
		return "", err
	}
	if file.Restricted && role != user.RoleAdministrator {
		unrestricted, err := s.Users.Unrestricted(userID)
		if err != nil || !unrestricted {
			return "", ErrForbidden
		}
	}

	path := filepath.Join(s.corpusDir(corpusID), file.Filename+".gz")
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Service) corpusDir(id int) string {
	return filepath.Join(s.ExportsDir, fmt.Sprintf("corpus_%d", id))
}

func (s *Service) publish(eventType string, c *Corpus, userID int) {
	payload, err := json.Marshal(c)
	if err != nil {
		return
	}
	s.Hub.Publish(socket.Event{Type: eventType, CorpusID: c.ID, UserID: userID, Payload: payload})
}

// changed reports whether the request differs from the stored corpus,
// including its derived form set and tag set.
func changed(existing *Corpus, req *WriteRequest, formIDs []int) bool {
	if existing.Name != req.Name ||
		existing.Description != req.Description ||
		existing.Content != req.Content {
		return true
	}

	existingSearch := 0
	if existing.FormSearch != nil {
		existingSearch = existing.FormSearch.ID
	}
	requestedSearch := 0
	if req.FormSearch != nil {
		requestedSearch = *req.FormSearch
	}
	if existingSearch != requestedSearch {
		return true
	}

	existingTags := map[int]bool{}
	for _, t := range existing.Tags {
		existingTags[t.ID] = true
	}
	requestedTags := map[int]bool{}
	for _, id := range req.Tags {
		requestedTags[id] = true
	}
	if len(existingTags) != len(requestedTags) {
		return true
	}
	for id := range requestedTags {
		if !existingTags[id] {
			return true
		}
	}

	existingForms := map[int]bool{}
	for _, f := range existing.Forms {
		existingForms[f.ID] = true
	}
	requestedForms := map[int]bool{}
	for _, id := range formIDs {
		requestedForms[id] = true
	}
	if len(existingForms) != len(requestedForms) {
		return true
	}
	for id := range requestedForms {
		if !existingForms[id] {
			return true
		}
	}
	return false
}
