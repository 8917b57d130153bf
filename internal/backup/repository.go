package backup

import (
	"database/sql"
	"encoding/json"
	"strconv"

	"oldb/internal/corpus"
	"oldb/pkg/logger"
)

const selectBackups = `
	SELECT id, corpus_id, uuid, name, description, content,
	       form_search, tags, forms, modifier, datetime_entered, datetime_modified
	FROM corpus_backups`

type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

func (r *Repository) Get(id int) (*corpus.Backup, error) {
	row := r.DB.QueryRow(selectBackups+` WHERE id = $1`, id)
	var b corpus.Backup
	var formSearch, tags, forms, modifier string
	if err := row.Scan(&b.ID, &b.CorpusID, &b.UUID, &b.Name, &b.Description, &b.Content,
		&formSearch, &tags, &forms, &modifier, &b.DatetimeEntered, &b.DatetimeModified); err != nil {
		return nil, err
	}
	b.FormSearch = json.RawMessage(formSearch)
	b.Tags = json.RawMessage(tags)
	b.Forms = json.RawMessage(forms)
	b.Modifier = json.RawMessage(modifier)
	return &b, nil
}

func (r *Repository) List(orderBy string, limit, offset int) ([]corpus.Backup, error) {
	query := selectBackups + ` ORDER BY ` + orderBy
	if limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(limit) + ` OFFSET ` + strconv.Itoa(offset)
	}
	rows, err := r.DB.Query(query)
	if err != nil {
		logger.Sugar.Errorf("Failed to list corpus backups: %v", err)
		return nil, err
	}
	defer rows.Close()

	backups := []corpus.Backup{}
	for rows.Next() {
		var b corpus.Backup
		var formSearch, tags, forms, modifier string
		if err := rows.Scan(&b.ID, &b.CorpusID, &b.UUID, &b.Name, &b.Description, &b.Content,
			&formSearch, &tags, &forms, &modifier, &b.DatetimeEntered, &b.DatetimeModified); err != nil {
			return nil, err
		}
		b.FormSearch = json.RawMessage(formSearch)
		b.Tags = json.RawMessage(tags)
		b.Forms = json.RawMessage(forms)
		b.Modifier = json.RawMessage(modifier)
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

func (r *Repository) Count() (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM corpus_backups`).Scan(&count)
	return count, err
}
