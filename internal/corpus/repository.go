package corpus

import (
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/lib/pq"

	"oldb/internal/formsearch"
	"oldb/internal/tag"
	"oldb/pkg/logger"
)

const selectCorpora = `
	SELECT c.id, c.uuid, c.name, c.description, c.content,
	       fs.id, fs.uuid, fs.name, fs.description, fs.search, fs.enterer_id, fs.datetime_modified,
	       c.enterer_id, c.modifier_id, c.datetime_entered, c.datetime_modified
	FROM corpora c
	LEFT JOIN form_searches fs ON c.form_search_id = fs.id`

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

type scanner interface {
	Scan(dest ...any) error
}

func scanCorpus(row scanner) (*Corpus, error) {
	var c Corpus
	var fsID, fsEntererID sql.NullInt64
	var fsUUID, fsName, fsDescription, fsSearch sql.NullString
	var fsModified sql.NullTime
	err := row.Scan(&c.ID, &c.UUID, &c.Name, &c.Description, &c.Content,
		&fsID, &fsUUID, &fsName, &fsDescription, &fsSearch, &fsEntererID, &fsModified,
		&c.EntererID, &c.ModifierID, &c.DatetimeEntered, &c.DatetimeModified)
	if err != nil {
		return nil, err
	}
	if fsID.Valid {
		c.FormSearch = &formsearch.FormSearch{
			ID:               int(fsID.Int64),
			UUID:             fsUUID.String,
			Name:             fsName.String,
			Description:      fsDescription.String,
			Search:           json.RawMessage(fsSearch.String),
			DatetimeModified: fsModified.Time,
		}
		if fsEntererID.Valid {
			entererID := int(fsEntererID.Int64)
			c.FormSearch.EntererID = &entererID
		}
	}
	c.Tags = []tag.Tag{}
	c.Forms = []FormMini{}
	c.Files = []File{}
	return &c, nil
}

func (r *Repository) Get(id int) (*Corpus, error) {
	c, err := scanCorpus(r.DB.QueryRow(selectCorpora+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, err
	}
	return c, r.loadAssociations(c)
}

// GetByRef resolves a corpus by numeric id or by UUID.
func (r *Repository) GetByRef(ref string) (*Corpus, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		return r.Get(id)
	}
	c, err := scanCorpus(r.DB.QueryRow(selectCorpora+` WHERE c.uuid = $1`, ref))
	if err != nil {
		return nil, err
	}
	return c, r.loadAssociations(c)
}

func (r *Repository) loadAssociations(c *Corpus) error {
	tagRows, err := r.DB.Query(
		`SELECT t.id, t.name, t.description, t.datetime_modified
		 FROM tags t JOIN corpus_tags ct ON t.id = ct.tag_id
		 WHERE ct.corpus_id = $1 ORDER BY t.id`, c.ID)
	if err != nil {
		return err
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var t tag.Tag
		if err := tagRows.Scan(&t.ID, &t.Name, &t.Description, &t.DatetimeModified); err != nil {
			return err
		}
		c.Tags = append(c.Tags, t)
	}
	if err := tagRows.Err(); err != nil {
		return err
	}

	formRows, err := r.DB.Query(
		`SELECT f.id, f.transcription
		 FROM forms f JOIN corpus_forms cf ON f.id = cf.form_id
		 WHERE cf.corpus_id = $1 ORDER BY cf.position`, c.ID)
	if err != nil {
		return err
	}
	defer formRows.Close()
	for formRows.Next() {
		var m FormMini
		if err := formRows.Scan(&m.ID, &m.Transcription); err != nil {
			return err
		}
		c.Forms = append(c.Forms, m)
	}
	if err := formRows.Err(); err != nil {
		return err
	}

	fileRows, err := r.DB.Query(
		`SELECT id, filename, format, restricted, creator_id, modifier_id,
		        datetime_created, datetime_modified
		 FROM corpus_files WHERE corpus_id = $1 ORDER BY id`, c.ID)
	if err != nil {
		return err
	}
	defer fileRows.Close()
	for fileRows.Next() {
		var f File
		if err := fileRows.Scan(&f.ID, &f.Filename, &f.Format, &f.Restricted,
			&f.CreatorID, &f.ModifierID, &f.DatetimeCreated, &f.DatetimeModified); err != nil {
			return err
		}
		c.Files = append(c.Files, f)
	}
	return fileRows.Err()
}

func (r *Repository) List(where string, args []any, orderBy string, limit, offset int) ([]Corpus, error) {
	query := selectCorpora + ` WHERE ` + where + ` ORDER BY ` + orderBy
	if limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(limit) + ` OFFSET ` + strconv.Itoa(offset)
	}
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		logger.Sugar.Errorf("Failed to list corpora: %v", err)
		return nil, err
	}
	defer rows.Close()

	corpora := []Corpus{}
	for rows.Next() {
		c, err := scanCorpus(rows)
		if err != nil {
			return nil, err
		}
		corpora = append(corpora, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range corpora {
		if err := r.loadAssociations(&corpora[i]); err != nil {
			return nil, err
		}
	}
	return corpora, nil
}

func (r *Repository) Count(where string, args []any) (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM corpora c WHERE `+where, args...).Scan(&count)
	return count, err
}

func (r *Repository) Create(uuid string, req *WriteRequest, formIDs []int, userID int) (int, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int
	err = tx.QueryRow(
		`INSERT INTO corpora (uuid, name, description, content, form_search_id, enterer_id, modifier_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
		uuid, req.Name, req.Description, req.Content, req.FormSearch, userID).Scan(&id)
	if err != nil {
		logger.Sugar.Errorf("Failed to create corpus %s: %v", req.Name, err)
		return 0, err
	}
	if err := setAssociations(tx, id, req.Tags, formIDs); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// Update writes the pre-update backup and the new state in one transaction.
func (r *Repository) Update(id int, req *WriteRequest, formIDs []int, userID int, backup *Backup) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertBackup(tx, backup); err != nil {
		return err
	}
	result, err := tx.Exec(
		`UPDATE corpora SET name = $1, description = $2, content = $3, form_search_id = $4,
		        modifier_id = $5, datetime_modified = NOW()
		 WHERE id = $6`,
		req.Name, req.Description, req.Content, req.FormSearch, userID, id)
	if err != nil {
		logger.Sugar.Errorf("Failed to update corpus %d: %v", id, err)
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	if _, err := tx.Exec(`DELETE FROM corpus_tags WHERE corpus_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM corpus_forms WHERE corpus_id = $1`, id); err != nil {
		return err
	}
	if err := setAssociations(tx, id, req.Tags, formIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete writes the final backup and removes the corpus in one transaction.
func (r *Repository) Delete(id int, backup *Backup) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertBackup(tx, backup); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM corpora WHERE id = $1`, id); err != nil {
		logger.Sugar.Errorf("Failed to delete corpus %d: %v", id, err)
		return err
	}
	return tx.Commit()
}

func insertBackup(tx *sql.Tx, b *Backup) error {
	_, err := tx.Exec(
		`INSERT INTO corpus_backups
		     (corpus_id, uuid, name, description, content, form_search, tags, forms, modifier, datetime_entered)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.CorpusID, b.UUID, b.Name, b.Description, b.Content,
		string(b.FormSearch), string(b.Tags), string(b.Forms), string(b.Modifier),
		b.DatetimeEntered)
	if err != nil {
		logger.Sugar.Errorf("Failed to back up corpus %d: %v", b.CorpusID, err)
	}
	return err
}

func setAssociations(tx *sql.Tx, corpusID int, tagIDs, formIDs []int) error {
	for _, tagID := range tagIDs {
		if _, err := tx.Exec(
			`INSERT INTO corpus_tags (corpus_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			corpusID, tagID); err != nil {
			return err
		}
	}
	for position, formID := range formIDs {
		if _, err := tx.Exec(
			`INSERT INTO corpus_forms (corpus_id, form_id, position) VALUES ($1, $2, $3)
			 ON CONFLICT (corpus_id, form_id) DO NOTHING`,
			corpusID, formID, position); err != nil {
			return err
		}
	}
	return nil
}

// Backups returns the previous versions of a corpus, newest first. The ref
// may match either the corpus id or its UUID.
func (r *Repository) Backups(ref string) ([]Backup, error) {
	var rows *sql.Rows
	var err error
	if id, convErr := strconv.Atoi(ref); convErr == nil {
		rows, err = r.DB.Query(selectBackups+
			` WHERE corpus_id = $1 ORDER BY datetime_modified DESC`, id)
	} else {
		rows, err = r.DB.Query(selectBackups+
			` WHERE uuid = $1 ORDER BY datetime_modified DESC`, ref)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to list corpus backups for %s: %v", ref, err)
		return nil, err
	}
	defer rows.Close()
	return collectBackups(rows)
}

func collectBackups(rows *sql.Rows) ([]Backup, error) {
	backups := []Backup{}
	for rows.Next() {
		var b Backup
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

// ExportForm is the slice of a form needed to write it into a corpus file.
type ExportForm struct {
	ID            int
	Transcription string
	Category      string
	Tags          []string
}

const selectExportForms = `
	SELECT f.id, f.transcription, COALESCE(sc.name, ''),
	       COALESCE(array_agg(t.name) FILTER (WHERE t.name IS NOT NULL), '{}')
	FROM forms f
	LEFT JOIN syntactic_categories sc ON f.syntactic_category_id = sc.id
	LEFT JOIN form_tags ft ON ft.form_id = f.id
	LEFT JOIN tags t ON t.id = ft.tag_id`

// ExportFormsByReference returns the corpus's associated forms keyed by id,
// for resolving the ordered references in the corpus content.
func (r *Repository) ExportFormsByReference(corpusID int) (map[int]ExportForm, error) {
	rows, err := r.DB.Query(selectExportForms+`
		JOIN corpus_forms cf ON cf.form_id = f.id
		WHERE cf.corpus_id = $1
		GROUP BY f.id, f.transcription, sc.name`, corpusID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	forms := map[int]ExportForm{}
	for rows.Next() {
		var f ExportForm
		if err := rows.Scan(&f.ID, &f.Transcription, &f.Category, pq.Array(&f.Tags)); err != nil {
			return nil, err
		}
		forms[f.ID] = f
	}
	return forms, rows.Err()
}

// ExportFormsBySearch runs a translated saved search and returns the matching
// forms in search order.
func (r *Repository) ExportFormsBySearch(where string, args []any, orderBy string) ([]ExportForm, error) {
	rows, err := r.DB.Query(selectExportForms+`
		WHERE `+where+`
		GROUP BY f.id, f.transcription, sc.name
		ORDER BY `+orderBy, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	forms := []ExportForm{}
	for rows.Next() {
		var f ExportForm
		if err := rows.Scan(&f.ID, &f.Transcription, &f.Category, pq.Array(&f.Tags)); err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

// UpsertFile creates or refreshes the metadata row for an exported file.
func (r *Repository) UpsertFile(corpusID int, filename, format string, restricted bool, userID int) error {
	_, err := r.DB.Exec(
		`INSERT INTO corpus_files (corpus_id, filename, format, restricted, creator_id, modifier_id)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (corpus_id, filename) DO UPDATE
		 SET restricted = $4, modifier_id = $5, datetime_modified = NOW()`,
		corpusID, filename, format, restricted, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to upsert corpus file %s for corpus %d: %v", filename, corpusID, err)
	}
	return err
}

func (r *Repository) GetFile(corpusID, fileID int) (*File, error) {
	var f File
	err := r.DB.QueryRow(
		`SELECT id, filename, format, restricted, creator_id, modifier_id,
		        datetime_created, datetime_modified
		 FROM corpus_files WHERE corpus_id = $1 AND id = $2`, corpusID, fileID).
		Scan(&f.ID, &f.Filename, &f.Format, &f.Restricted,
			&f.CreatorID, &f.ModifierID, &f.DatetimeCreated, &f.DatetimeModified)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
