package corpus

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"

	"oldb/middleware"
	"oldb/pkg/logger"
	"oldb/pkg/search"
	"oldb/pkg/web"
)

var orderColumns = map[string]string{
	"id":                "c.id",
	"name":              "c.name",
	"datetime_entered":  "c.datetime_entered",
	"datetime_modified": "c.datetime_modified",
}

type Handler struct {
	Service *Service
	builder *search.Builder
}

func NewHandler(service *Service) *Handler {
	return &Handler{Service: service, builder: search.NewBuilder("Corpus", SearchColumns)}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	orderBy, errs := web.ParseOrderBy(r.URL.Query(), orderColumns, "c.id ASC")
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
	corpora, err := h.Service.Repo.List("TRUE", nil, orderBy, limit, offset)
	if err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if paginator == nil {
		web.WriteJSON(w, http.StatusOK, corpora)
		return
	}
	if paginator.Count, err = h.Service.Repo.Count("TRUE", nil); err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	web.WriteJSON(w, http.StatusOK, web.WrapPage(paginator, corpora))
}

// Search runs a JSON search expression against the corpora table.
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
	orderBy, err := h.builder.OrderBy(req.Query.OrderBy, "c.id ASC")
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

	corpora, dbErr := h.Service.Repo.List(where, args, orderBy, limit, offset)
	if dbErr != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if req.Paginator == nil {
		web.WriteJSON(w, http.StatusOK, corpora)
		return
	}
	if req.Paginator.Count, dbErr = h.Service.Repo.Count(where, args); dbErr != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	web.WriteJSON(w, http.StatusOK, web.WrapPage(req.Paginator, corpora))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readValidated(w, r)
	if !ok {
		return
	}
	claims := middleware.GetUser(r.Context())

	c, err := h.Service.Create(req, claims.UserID)
	if err != nil {
		h.writeSaveError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, c)
}

// New returns the data needed to create a corpus.
func (h *Handler) New(w http.ResponseWriter, r *http.Request) {
	data, err := h.Service.NewEditData(r.URL.Query())
	if err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	web.WriteJSON(w, http.StatusOK, data)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	c, err := h.Service.Repo.Get(id)
	if err != nil {
		writeNotFound(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, c)
}

// Edit returns a corpus together with the data needed to update it.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	c, err := h.Service.Repo.Get(id)
	if err != nil {
		writeNotFound(w, id, err)
		return
	}
	data, err := h.Service.NewEditData(r.URL.Query())
	if err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]any{"corpus": c, "data": data})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	req, ok := h.readValidated(w, r)
	if !ok {
		return
	}
	claims := middleware.GetUser(r.Context())

	c, err := h.Service.Update(id, req, claims.UserID)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			writeNotFound(w, id, err)
		case ErrNoChange:
			web.WriteError(w, http.StatusBadRequest,
				"The update request failed because the submitted data were not new.")
		default:
			h.writeSaveError(w, err)
		}
		return
	}
	web.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	claims := middleware.GetUser(r.Context())

	c, err := h.Service.Delete(id, claims.UserID)
	if err != nil {
		writeNotFound(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, c)
}

// History returns a corpus and its previous versions, matched by id or UUID.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "id")
	c, backups, err := h.Service.History(ref)
	if err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if c == nil && len(backups) == 0 {
		web.WriteError(w, http.StatusNotFound,
			fmt.Sprintf("No corpora or corpus backups match %s", ref))
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]any{
		"corpus":            c,
		"previous_versions": backups,
	})
}

// WriteToFile writes the corpus to a file in the format named in the body.
func (h *Handler) WriteToFile(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	var req struct {
		Format string `json:"format"`
	}
	if err := web.ReadJSON(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, web.JSONDecodeErrorMessage)
		return
	}
	if _, ok := Formats[req.Format]; !ok {
		web.WriteErrors(w, http.StatusBadRequest, web.Errors{
			"format": "Value must be one of: " + strings.Join(FormatNames(), "; "),
		})
		return
	}
	claims := middleware.GetUser(r.Context())

	c, err := h.Service.WriteToFile(id, req.Format, claims.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			writeNotFound(w, id, err)
			return
		}
		logger.Sugar.Errorf("Failed to write corpus %d to file: %v", id, err)
		web.WriteError(w, http.StatusBadRequest, fmt.Sprintf(
			"Unable to write corpus %d to file with format %q. (%v)", id, req.Format, err))
		return
	}
	web.WriteJSON(w, http.StatusOK, c)
}

// ServeFile streams a previously exported, gzip-compressed corpus file.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	fileID, _ := strconv.Atoi(chi.URLParam(r, "fileId"))
	claims := middleware.GetUser(r.Context())

	if _, err := h.Service.Repo.Get(id); err != nil {
		writeNotFound(w, id, err)
		return
	}

	path, err := h.Service.ServeFile(id, fileID, claims.UserID, claims.Role)
	if err != nil {
		if err == ErrForbidden {
			web.WriteError(w, http.StatusForbidden,
				"You are not authorized to access this resource.")
			return
		}
		web.WriteError(w, http.StatusBadRequest, fmt.Sprintf(
			"Unable to serve corpus file %d of corpus %d", fileID, id))
		return
	}

	w.Header().Set("Content-Type", "application/x-gzip")
	http.ServeFile(w, r, path)
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
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code.Name() {
		case "unique_violation":
			web.WriteErrors(w, http.StatusBadRequest, web.Errors{
				"name": "The submitted value for Corpus.name is not unique.",
			})
			return
		case "foreign_key_violation":
			web.WriteErrors(w, http.StatusBadRequest, web.Errors{
				"form_search": "There is no form search with the submitted id.",
			})
			return
		}
	}
	web.WriteError(w, http.StatusInternalServerError, "Database error")
}

func urlID(r *http.Request) int {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	return id
}

func writeNotFound(w http.ResponseWriter, id int, err error) {
	if err == sql.ErrNoRows {
		web.WriteError(w, http.StatusNotFound, fmt.Sprintf("There is no corpus with id %d", id))
		return
	}
	web.WriteError(w, http.StatusInternalServerError, "Database error")
}
