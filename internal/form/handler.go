package form

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"oldb/middleware"
	"oldb/pkg/search"
	"oldb/pkg/web"
)

var orderColumns = map[string]string{
	"id":                "f.id",
	"transcription":     "f.transcription",
	"translation":       "f.translation",
	"datetime_entered":  "f.datetime_entered",
	"datetime_modified": "f.datetime_modified",
}

type Handler struct {
	Repo    *Repository
	builder *search.Builder
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{Repo: repo, builder: search.NewBuilder("Form", SearchColumns)}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	orderBy, errs := web.ParseOrderBy(r.URL.Query(), orderColumns, "f.id ASC")
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
	forms, err := h.Repo.List("TRUE", nil, orderBy, limit, offset)
	if err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if paginator == nil {
		web.WriteJSON(w, http.StatusOK, forms)
		return
	}
	if paginator.Count, err = h.Repo.Count("TRUE", nil); err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	web.WriteJSON(w, http.StatusOK, web.WrapPage(paginator, forms))
}

// Search runs a JSON search expression against the forms table.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := web.ReadJSON(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, web.JSONDecodeErrorMessage)
		return
	}

	where, args, err := h.builder.Translate(req.Query.Filter, 0)
	if err != nil {
		web.WriteErrors(w, http.StatusBadRequest, err.(web.Errors))
		return
	}
	orderBy, err := h.builder.OrderBy(req.Query.OrderBy, "f.id ASC")
	if err != nil {
		web.WriteErrors(w, http.StatusBadRequest, err.(web.Errors))
		return
	}

	limit, offset := 0, 0
	if req.Paginator != nil {
		if req.Paginator.Page < 1 || req.Paginator.ItemsPerPage < 1 {
			web.WriteErrors(w, http.StatusBadRequest, web.Errors{
				"paginator": "Please enter a number that is 1 or greater",
			})
			return
		}
		limit, offset = req.Paginator.LimitOffset()
	}

	forms, dbErr := h.Repo.List(where, args, orderBy, limit, offset)
	if dbErr != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if req.Paginator == nil {
		web.WriteJSON(w, http.StatusOK, forms)
		return
	}
	if req.Paginator.Count, dbErr = h.Repo.Count(where, args); dbErr != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	web.WriteJSON(w, http.StatusOK, web.WrapPage(req.Paginator, forms))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readValidated(w, r)
	if !ok {
		return
	}
	claims := middleware.GetUser(r.Context())

	id, err := h.Repo.Create(uuid.NewString(), req, claims.UserID)
	if err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	f, err := h.Repo.Get(id)
	if err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	web.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	f, err := h.Repo.Get(id)
	if err != nil {
		writeNotFound(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	req, ok := h.readValidated(w, r)
	if !ok {
		return
	}
	claims := middleware.GetUser(r.Context())

	if err := h.Repo.Update(id, req, claims.UserID); err != nil {
		writeNotFound(w, id, err)
		return
	}
	f, err := h.Repo.Get(id)
	if err != nil {
		writeNotFound(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	f, err := h.Repo.Delete(id)
	if err != nil {
		writeNotFound(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) readValidated(w http.ResponseWriter, r *http.Request) (*WriteRequest, bool) {
	var req WriteRequest
	if err := web.ReadJSON(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, web.JSONDecodeErrorMessage)
		return nil, false
	}
	req.Transcription = strings.TrimSpace(req.Transcription)
	if req.Transcription == "" {
		web.WriteErrors(w, http.StatusBadRequest, web.Errors{"transcription": "Please enter a value"})
		return nil, false
	}
	return &req, true
}

func urlID(r *http.Request) int {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	return id
}

func writeNotFound(w http.ResponseWriter, id int, err error) {
	if err == sql.ErrNoRows {
		web.WriteError(w, http.StatusNotFound, fmt.Sprintf("There is no form with id %d", id))
		return
	}
	web.WriteError(w, http.StatusInternalServerError, "Database error")
}
