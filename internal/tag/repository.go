package tag

import (
	"database/sql"

	"oldb/pkg/logger"
)

type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

func (r *Repository) Create(name, description string) (*Tag, error) {
	var t Tag
	err := r.DB.QueryRow(
		`INSERT INTO tags (name, description) VALUES ($1, $2)
		 RETURNING id, name, description, datetime_modified`,
		name, description).
		Scan(&t.ID, &t.Name, &t.Description, &t.DatetimeModified)
	if err != nil {
		logger.Sugar.Errorf("Failed to create tag %s: %v", name, err)
		return nil, err
	}
	return &t, nil
}

func (r *Repository) Get(id int) (*Tag, error) {
	var t Tag
	err := r.DB.QueryRow(
		`SELECT id, name, description, datetime_modified FROM tags WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Description, &t.DatetimeModified)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) Update(id int, name, description string) (*Tag, error) {
	var t Tag
	err := r.DB.QueryRow(
		`UPDATE tags SET name = $1, description = $2, datetime_modified = NOW()
		 WHERE id = $3
		 RETURNING id, name, description, datetime_modified`,
		name, description, id).
		Scan(&t.ID, &t.Name, &t.Description, &t.DatetimeModified)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to update tag %d: %v", id, err)
		}
		return nil, err
	}
	return &t, nil
}

func (r *Repository) Delete(id int) (*Tag, error) {
	t, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if _, err := r.DB.Exec(`DELETE FROM tags WHERE id = $1`, id); err != nil {
		logger.Sugar.Errorf("Failed to delete tag %d: %v", id, err)
		return nil, err
	}
	return t, nil
}

func (r *Repository) List(orderBy string, limit, offset int) ([]Tag, error) {
	query := `SELECT id, name, description, datetime_modified FROM tags ORDER BY ` + orderBy
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.DB.Query(query+` LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		rows, err = r.DB.Query(query)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to list tags: %v", err)
		return nil, err
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.DatetimeModified); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *Repository) Count() (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM tags`).Scan(&count)
	return count, err
}
