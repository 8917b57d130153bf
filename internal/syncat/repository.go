package syncat

import (
	"database/sql"

	"oldb/pkg/logger"
)

const columns = `id, uuid, name, type, description, datetime_modified`

type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

func (r *Repository) scan(row *sql.Row) (*SyntacticCategory, error) {
	var c SyntacticCategory
	err := row.Scan(&c.ID, &c.UUID, &c.Name, &c.Type, &c.Description, &c.DatetimeModified)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Create(uuid, name, typ, description string) (*SyntacticCategory, error) {
	row := r.DB.QueryRow(
		`INSERT INTO syntactic_categories (uuid, name, type, description)
		 VALUES ($1, $2, $3, $4) RETURNING `+columns,
		uuid, name, typ, description)
	c, err := r.scan(row)
	if err != nil {
		logger.Sugar.Errorf("Failed to create syntactic category %s: %v", name, err)
	}
	return c, err
}

func (r *Repository) Get(id int) (*SyntacticCategory, error) {
	return r.scan(r.DB.QueryRow(
		`SELECT `+columns+` FROM syntactic_categories WHERE id = $1`, id))
}

func (r *Repository) Update(id int, name, typ, description string) (*SyntacticCategory, error) {
	return r.scan(r.DB.QueryRow(
		`UPDATE syntactic_categories
		 SET name = $1, type = $2, description = $3, datetime_modified = NOW()
		 WHERE id = $4 RETURNING `+columns,
		name, typ, description, id))
}

func (r *Repository) Delete(id int) (*SyntacticCategory, error) {
	c, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if _, err := r.DB.Exec(`DELETE FROM syntactic_categories WHERE id = $1`, id); err != nil {
		logger.Sugar.Errorf("Failed to delete syntactic category %d: %v", id, err)
		return nil, err
	}
	return c, nil
}

func (r *Repository) List(orderBy string, limit, offset int) ([]SyntacticCategory, error) {
	query := `SELECT ` + columns + ` FROM syntactic_categories ORDER BY ` + orderBy
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.DB.Query(query+` LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		rows, err = r.DB.Query(query)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to list syntactic categories: %v", err)
		return nil, err
	}
	defer rows.Close()

	cats := []SyntacticCategory{}
	for rows.Next() {
		var c SyntacticCategory
		if err := rows.Scan(&c.ID, &c.UUID, &c.Name, &c.Type, &c.Description, &c.DatetimeModified); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *Repository) Count() (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM syntactic_categories`).Scan(&count)
	return count, err
}
