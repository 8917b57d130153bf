package syncat

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"oldb/pkg/web"
)

var orderColumns = map[string]string{
	"id":                "id",
	"name":              "name",
	"type":              "type",
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
	cats, err := h.Repo.List(orderBy, limit, offset)
	if err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if paginator == nil {
		web.WriteJSON(w, http.StatusOK, cats)
		return
	}
	if paginator.Count, err = h.Repo.Count(); err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	web.WriteJSON(w, http.StatusOK, web.WrapPage(paginator, cats))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readValidated(w, r)
	if !ok {
		return
	}
	c, err := h.Repo.Create(uuid.NewString(), req.Name, req.Type, req.Description)
	if err != nil {
		web.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	web.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	c, err := h.Repo.Get(id)
	if err != nil {
		writeNotFound(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	req, ok := h.readValidated(w, r)
	if !ok {
		return
	}
	c, err := h.Repo.Update(id, req.Name, req.Type, req.Description)
	if err != nil {
		writeNotFound(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	c, err := h.Repo.Delete(id)
	if err != nil {
		writeNotFound(w, id, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) readValidated(w http.ResponseWriter, r *http.Request) (*WriteRequest, bool) {
	var req WriteRequest
	if err := web.ReadJSON(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, web.JSONDecodeErrorMessage)
		return nil, false
	}
	req.Name = strings.TrimSpace(req.Name)
	errs := web.Errors{}
	if req.Name == "" {
		errs["name"] = "Please enter a value"
	}
	if !validTypes[req.Type] {
		errs["type"] = "Value must be one of: lexical; phrasal; sentential"
	}
	if len(errs) > 0 {
		web.WriteErrors(w, http.StatusBadRequest, errs)
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
		web.WriteError(w, http.StatusNotFound,
			fmt.Sprintf("There is no syntactic category with id %d", id))
		return
	}
	web.WriteError(w, http.StatusInternalServerError, "Database error")
}
