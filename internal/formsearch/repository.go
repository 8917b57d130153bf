package formsearch

import (
	"database/sql"
	"encoding/json"

	"oldb/pkg/logger"
)

type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

func scan(row *sql.Row) (*FormSearch, error) {
	var fs FormSearch
	var rawSearch string
	err := row.Scan(&fs.ID, &fs.UUID, &fs.Name, &fs.Description, &rawSearch,
		&fs.EntererID, &fs.DatetimeModified)
	if err != nil {
		return nil, err
	}
	fs.Search = json.RawMessage(rawSearch)
	return &fs, nil
}

const columns = `id, uuid, name, description, search, enterer_id, datetime_modified`

func (r *Repository) Create(uuid string, req *WriteRequest, entererID int) (*FormSearch, error) {
	row := r.DB.QueryRow(
		`INSERT INTO form_searches (uuid, name, description, search, enterer_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING `+columns,
		uuid, req.Name, req.Description, string(req.Search), entererID)
	fs, err := scan(row)
	if err != nil {
		logger.Sugar.Errorf("Failed to create form search %s: %v", req.Name, err)
	}
	return fs, err
}

func (r *Repository) Get(id int) (*FormSearch, error) {
	return scan(r.DB.QueryRow(`SELECT `+columns+` FROM form_searches WHERE id = $1`, id))
}

func (r *Repository) Update(id int, req *WriteRequest) (*FormSearch, error) {
	return scan(r.DB.QueryRow(
		`UPDATE form_searches
		 SET name = $1, description = $2, search = $3, datetime_modified = NOW()
		 WHERE id = $4 RETURNING `+columns,
		req.Name, req.Description, string(req.Search), id))
}

func (r *Repository) Delete(id int) (*FormSearch, error) {
	fs, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if _, err := r.DB.Exec(`DELETE FROM form_searches WHERE id = $1`, id); err != nil {
		logger.Sugar.Errorf("Failed to delete form search %d: %v", id, err)
		return nil, err
	}
	return fs, nil
}

func (r *Repository) List(orderBy string, limit, offset int) ([]FormSearch, error) {
	query := `SELECT ` + columns + ` FROM form_searches ORDER BY ` + orderBy
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.DB.Query(query+` LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		rows, err = r.DB.Query(query)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to list form searches: %v", err)
		return nil, err
	}
	defer rows.Close()

	searches := []FormSearch{}
	for rows.Next() {
		var fs FormSearch
		var rawSearch string
		if err := rows.Scan(&fs.ID, &fs.UUID, &fs.Name, &fs.Description, &rawSearch,
			&fs.EntererID, &fs.DatetimeModified); err != nil {
			return nil, err
		}
		fs.Search = json.RawMessage(rawSearch)
		searches = append(searches, fs)
	}
	return searches, rows.Err()
}

func (r *Repository) Count() (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM form_searches`).Scan(&count)
	return count, err
}

func (r *Repository) Minis() ([]Mini, error) {
	rows, err := r.DB.Query(`SELECT id, name FROM form_searches ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	minis := []Mini{}
	for rows.Next() {
		var m Mini
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		minis = append(minis, m)
	}
	return minis, rows.Err()
}
