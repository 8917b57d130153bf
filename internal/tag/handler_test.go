package tag

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (chi.Router, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(NewRepository(db))
	r := chi.NewRouter()
	r.Get("/tags", h.Index)
	r.Post("/tags", h.Create)
	r.Get("/tags/{id}", h.Show)
	r.Put("/tags/{id}", h.Update)
	r.Delete("/tags/{id}", h.Delete)
	return r, mock
}

var tagColumns = []string{"id", "name", "description", "datetime_modified"}

func TestIndex(t *testing.T) {
	r, mock := newTestRouter(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, name, description, datetime_modified FROM tags ORDER BY id ASC`).
		WillReturnRows(sqlmock.NewRows(tagColumns).
			AddRow(1, "restricted", "", now).
			AddRow(2, "elicited", "field notes", now))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tags", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var tags []Tag
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tags))
	require.Len(t, tags, 2)
	assert.Equal(t, "restricted", tags[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexPaginated(t *testing.T) {
	r, mock := newTestRouter(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, name, description, datetime_modified FROM tags ORDER BY name DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(2, 2).
		WillReturnRows(sqlmock.NewRows(tagColumns).AddRow(3, "c", "", now))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tags`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/tags?page=2&items_per_page=2&order_by_attribute=name&order_by_direction=desc", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Paginator struct {
			Page  int `json:"page"`
			Count int `json:"count"`
		} `json:"paginator"`
		Items []Tag `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Paginator.Page)
	assert.Equal(t, 5, page.Paginator.Count)
	assert.Len(t, page.Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexBadPaginator(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tags?page=0&items_per_page=10", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "errors")
}

func TestCreate(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`INSERT INTO tags`).
		WithArgs("elicited", "field notes").
		WillReturnRows(sqlmock.NewRows(tagColumns).AddRow(1, "elicited", "field notes", time.Now()))

	body := strings.NewReader(`{"name": "elicited", "description": "field notes"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tags", body))

	require.Equal(t, http.StatusOK, w.Code)
	var created Tag
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 1, created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tags", strings.NewReader(`{"name": "  "}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors": {"name": "Please enter a value"}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tags", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "JSON decode error")
}

func TestCreateDuplicateName(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`INSERT INTO tags`).
		WithArgs("restricted", "").
		WillReturnError(&pq.Error{Code: "23505"})

	body := strings.NewReader(`{"name": "restricted"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tags", body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t,
		`{"errors": {"name": "The submitted value for Tag.name is not unique."}}`,
		w.Body.String())
}

func TestShowNotFound(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`SELECT id, name, description, datetime_modified FROM tags WHERE id = \$1`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(tagColumns))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tags/42", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error": "There is no tag with id 42"}`, w.Body.String())
}

func TestUpdate(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`UPDATE tags SET`).
		WithArgs("renamed", "", 1).
		WillReturnRows(sqlmock.NewRows(tagColumns).AddRow(1, "renamed", "", time.Now()))

	body := strings.NewReader(`{"name": "renamed"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/tags/1", body))

	require.Equal(t, http.StatusOK, w.Code)
	var updated Tag
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "renamed", updated.Name)
}

func TestDelete(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`SELECT id, name, description, datetime_modified FROM tags WHERE id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(tagColumns).AddRow(1, "elicited", "", time.Now()))
	mock.ExpectExec(`DELETE FROM tags WHERE id = \$1`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/tags/1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	// The deleted resource is echoed back.
	var deleted Tag
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deleted))
	assert.Equal(t, "elicited", deleted.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
