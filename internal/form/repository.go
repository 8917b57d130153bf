package form

import (
	"database/sql"
	"strconv"

	"oldb/internal/tag"
	"oldb/pkg/logger"
)

const selectForms = `
	SELECT f.id, f.uuid, f.transcription, f.morpheme_break, f.morpheme_gloss,
	       f.translation, f.comments, f.syntactic_category_id, COALESCE(sc.name, ''),
	       f.enterer_id, f.modifier_id, f.datetime_entered, f.datetime_modified
	FROM forms f
	LEFT JOIN syntactic_categories sc ON f.syntactic_category_id = sc.id`

type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanForm(row scanner) (*Form, error) {
	var f Form
	var categoryID sql.NullInt64
	var categoryName string
	err := row.Scan(&f.ID, &f.UUID, &f.Transcription, &f.MorphemeBreak, &f.MorphemeGloss,
		&f.Translation, &f.Comments, &categoryID, &categoryName,
		&f.EntererID, &f.ModifierID, &f.DatetimeEntered, &f.DatetimeModified)
	if err != nil {
		return nil, err
	}
	if categoryID.Valid {
		f.SyntacticCategory = &CategoryMini{ID: int(categoryID.Int64), Name: categoryName}
	}
	f.Tags = []tag.Tag{}
	return &f, nil
}

func (r *Repository) Create(uuid string, req *WriteRequest, entererID int) (int, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int
	err = tx.QueryRow(
		`INSERT INTO forms (uuid, transcription, morpheme_break, morpheme_gloss,
		                    translation, comments, syntactic_category_id, enterer_id, modifier_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`,
		uuid, req.Transcription, req.MorphemeBreak, req.MorphemeGloss,
		req.Translation, req.Comments, req.SyntacticCategory, entererID).Scan(&id)
	if err != nil {
		logger.Sugar.Errorf("Failed to create form: %v", err)
		return 0, err
	}
	if err := setTags(tx, id, req.Tags); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func (r *Repository) Update(id int, req *WriteRequest, modifierID int) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE forms SET transcription = $1, morpheme_break = $2, morpheme_gloss = $3,
		        translation = $4, comments = $5, syntactic_category_id = $6,
		        modifier_id = $7, datetime_modified = NOW()
		 WHERE id = $8`,
		req.Transcription, req.MorphemeBreak, req.MorphemeGloss,
		req.Translation, req.Comments, req.SyntacticCategory, modifierID, id)
	if err != nil {
		logger.Sugar.Errorf("Failed to update form %d: %v", id, err)
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	if _, err := tx.Exec(`DELETE FROM form_tags WHERE form_id = $1`, id); err != nil {
		return err
	}
	if err := setTags(tx, id, req.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

func setTags(tx *sql.Tx, formID int, tagIDs []int) error {
	for _, tagID := range tagIDs {
		if _, err := tx.Exec(
			`INSERT INTO form_tags (form_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			formID, tagID); err != nil {
			logger.Sugar.Errorf("Failed to tag form %d with tag %d: %v", formID, tagID, err)
			return err
		}
	}
	return nil
}

func (r *Repository) Get(id int) (*Form, error) {
	f, err := scanForm(r.DB.QueryRow(selectForms+` WHERE f.id = $1`, id))
	if err != nil {
		return nil, err
	}
	if f.Tags, err = r.tagsFor(id); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *Repository) Delete(id int) (*Form, error) {
	f, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if _, err := r.DB.Exec(`DELETE FROM forms WHERE id = $1`, id); err != nil {
		logger.Sugar.Errorf("Failed to delete form %d: %v", id, err)
		return nil, err
	}
	return f, nil
}

func (r *Repository) tagsFor(formID int) ([]tag.Tag, error) {
	rows, err := r.DB.Query(
		`SELECT t.id, t.name, t.description, t.datetime_modified
		 FROM tags t JOIN form_tags ft ON t.id = ft.tag_id
		 WHERE ft.form_id = $1 ORDER BY t.id`, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []tag.Tag{}
	for rows.Next() {
		var t tag.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.DatetimeModified); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// List runs an already-validated WHERE clause produced by the search builder.
// A "TRUE" clause with no args lists everything.
func (r *Repository) List(where string, args []any, orderBy string, limit, offset int) ([]Form, error) {
	query := selectForms + ` WHERE ` + where + ` ORDER BY ` + orderBy
	if limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(limit) + ` OFFSET ` + strconv.Itoa(offset)
	}
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		logger.Sugar.Errorf("Failed to list forms: %v", err)
		return nil, err
	}
	defer rows.Close()

	forms := []Form{}
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range forms {
		if forms[i].Tags, err = r.tagsFor(forms[i].ID); err != nil {
			return nil, err
		}
	}
	return forms, nil
}

func (r *Repository) Count(where string, args []any) (int, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM forms f WHERE `+where, args...).Scan(&count)
	return count, err
}

