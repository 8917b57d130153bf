// Package backup exposes the corpus backup history as a read-only
// resource. Backups are created internally when a corpus is updated or
// deleted; clients can only list and inspect them.
package backup

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"oldb/pkg/web"
)

var orderColumns = map[string]string{
	"id":                "id",
	"corpus_id":         "corpus_id",
	"name":              "name",
	"datetime_modified": "datetime_modified",
}

type Handler struct {
	Repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	orderBy, errs := web.ParseOrderBy(r.URL.Query(), orderColumns, "id ASC")
	if errs != nil {
		web.WriteErrors(w, http.StatusBadRequest, errs)
		return
	}
	paginator, errs := web.ParsePaginator(r.URL.Query())
	if errs != nil {
		web.WriteErrors(w, http.StatusBadRequest, errs)
		return
	}

	limit, offset := 0, 0
	if paginator != nil {
		limit, offset = paginator.LimitOffset()
	}
	backups, err := h.Repo.List(orderBy, limit, offset)
	if err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if paginator == nil {
		web.WriteJSON(w, http.StatusOK, backups)
		return
	}
	if paginator.Count, err = h.Repo.Count(); err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	web.WriteJSON(w, http.StatusOK, web.WrapPage(paginator, backups))
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	b, err := h.Repo.Get(id)
	if err != nil {
		if err == sql.ErrNoRows {
			web.WriteError(w, http.StatusNotFound,
				fmt.Sprintf("There is no corpus backup with id %d", id))
			return
		}
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	web.WriteJSON(w, http.StatusOK, b)
}

// ReadOnly rejects every mutating request against the backup resource.
func (h *Handler) ReadOnly(w http.ResponseWriter, r *http.Request) {
	web.WriteError(w, http.StatusNotFound, "This resource is read-only.")
}
