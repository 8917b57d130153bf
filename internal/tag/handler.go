package tag

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"

	"oldb/pkg/web"
)

var orderColumns = map[string]string{
	"id":                "id",
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
	tags, err := h.Repo.List(orderBy, limit, offset)
	if err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if paginator == nil {
		web.WriteJSON(w, http.StatusOK, tags)
		return
	}
	if paginator.Count, err = h.Repo.Count(); err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	web.WriteJSON(w, http.StatusOK, web.WrapPage(paginator, tags))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readValidated(w, r)
	if !ok {
		return
	}
	t, err := h.Repo.Create(req.Name, req.Description)
	if err != nil {
		h.writeSaveError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	t, err := h.Repo.Get(id)
	if err != nil {
		writeNotFound(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	req, ok := h.readValidated(w, r)
	if !ok {
		return
	}
	t, err := h.Repo.Update(id, req.Name, req.Description)
	if err != nil {
		if err == sql.ErrNoRows {
			writeNotFound(w, id, err)
			return
		}
		h.writeSaveError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	t, err := h.Repo.Delete(id)
	if err != nil {
		writeNotFound(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) readValidated(w http.ResponseWriter, r *http.Request) (*WriteRequest, bool) {
	var req WriteRequest
	if err := web.ReadJSON(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, web.JSONDecodeErrorMessage)
		return nil, false
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		web.WriteErrors(w, http.StatusBadRequest, web.Errors{"name": "Please enter a value"})
		return nil, false
	}
	return &req, true
}

func (h *Handler) writeSaveError(w http.ResponseWriter, err error) {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
		web.WriteErrors(w, http.StatusBadRequest, web.Errors{
			"name": "The submitted value for Tag.name is not unique.",
		})
		return
	}
	web.WriteError(w, http.StatusInternalServerError, "Database error")
}

func urlID(r *http.Request) int {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	return id
}

func writeNotFound(w http.ResponseWriter, id int, err error) {
	if err == sql.ErrNoRows {
		web.WriteError(w, http.StatusNotFound, fmt.Sprintf("There is no tag with id %d", id))
		return
	}
	web.WriteError(w, http.StatusInternalServerError, "Database error")
}
