package corpus

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oldb/internal/formsearch"
	"oldb/internal/tag"
	"oldb/internal/user"
	"oldb/socket"
)

// stubPublisher records published events instead of broadcasting them.
type stubPublisher struct {
	events []socket.Event
}

func (p *stubPublisher) Publish(evt socket.Event) {
	p.events = append(p.events, evt)
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *stubPublisher) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hub := &stubPublisher{}
	svc := NewService(NewRepository(db), user.NewRepository(db), tag.NewRepository(db),
		formsearch.NewRepository(db), hub, t.TempDir())
	return svc, mock, hub
}

var corpusRowColumns = []string{
	"id", "uuid", "name", "description", "content",
	"fs_id", "fs_uuid", "fs_name", "fs_description", "fs_search", "fs_enterer_id", "fs_datetime_modified",
	"enterer_id", "modifier_id", "datetime_entered", "datetime_modified",
}

// expectGet queues the queries behind Repository.Get for a corpus whose
// content references forms 1 and 2.
func expectGet(mock sqlmock.Sqlmock, id int) {
	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT c\.id, c\.uuid, .+ FROM corpora c`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(corpusRowColumns).
			AddRow(id, "uuid-1", "Stories", "", "form[1] form[2]",
				nil, nil, nil, nil, nil, nil, nil,
				1, 1, now, now))
	mock.ExpectQuery(`(?s)SELECT t\.id, t\.name, .+ JOIN corpus_tags`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "datetime_modified"}))
	mock.ExpectQuery(`SELECT f\.id, f\.transcription\s+FROM forms f JOIN corpus_forms`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "transcription"}).
			AddRow(1, "le chien dort").
			AddRow(2, "les chiens dorment"))
	mock.ExpectQuery(`(?s)SELECT id, filename, format, restricted, .+ FROM corpus_files`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "filename", "format", "restricted",
			"creator_id", "modifier_id", "datetime_created", "datetime_modified",
		}))
}

func TestUpdateRejectsUnchangedData(t *testing.T) {
	svc, mock, hub := newTestService(t)

	expectGet(mock, 5)

	req := &WriteRequest{Name: "Stories", Content: "form[1] form[2]"}
	_, err := svc.Update(5, req, 1)
	assert.ErrorIs(t, err, ErrNoChange)
	assert.Empty(t, hub.events, "No event may be published for a rejected update")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBacksUpBeforeWriting(t *testing.T) {
	svc, mock, hub := newTestService(t)

	expectGet(mock, 5)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO corpus_backups`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE corpora SET`).
		WithArgs("Tales", "", "form[2]", nil, 1, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM corpus_tags`).WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM corpus_forms`).WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO corpus_forms`).WithArgs(5, 2, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	expectGet(mock, 5)

	req := &WriteRequest{Name: "Tales", Content: "form[2]"}
	updated, err := svc.Update(5, req, 1)
	require.NoError(t, err)
	require.NotNil(t, updated)

	require.Len(t, hub.events, 1)
	assert.Equal(t, socket.CorpusUpdateType, hub.events[0].Type)
	assert.Equal(t, 5, hub.events[0].CorpusID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteBacksUpAndReturnsCorpus(t *testing.T) {
	svc, mock, hub := newTestService(t)

	expectGet(mock, 5)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO corpus_backups`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM corpora WHERE id = \$1`).WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := svc.Delete(5, 1)
	require.NoError(t, err)
	assert.Equal(t, "Stories", deleted.Name)

	require.Len(t, hub.events, 1)
	assert.Equal(t, socket.CorpusDeleteType, hub.events[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteToFile(t *testing.T) {
	svc, mock, hub := newTestService(t)

	expectGet(mock, 5)

	mock.ExpectQuery(`(?s)SELECT f\.id, f\.transcription, COALESCE.+JOIN corpus_forms cf`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "transcription", "category", "tags"}).
			AddRow(1, "le chien dort", "S", "{}").
			AddRow(2, "les chiens dorment", "", "{restricted}"))

	mock.ExpectExec(`INSERT INTO corpus_files`).
		WithArgs(5, "corpus_5_transcriptions.txt", "transcriptions", true, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))

	expectGet(mock, 5)

	_, err := svc.WriteToFile(5, "transcriptions", 1)
	require.NoError(t, err)

	// Content order follows the references in the corpus content.
	path := filepath.Join(svc.ExportsDir, "corpus_5", "corpus_5_transcriptions.txt")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "le chien dort\nles chiens dorment\n", string(content))

	f, err := os.Open(path + ".gz")
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	unzipped, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, string(content), string(unzipped))

	require.Len(t, hub.events, 1)
	assert.Equal(t, socket.CorpusFileType, hub.events[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteToFileMissingReference(t *testing.T) {
	svc, mock, _ := newTestService(t)

	expectGet(mock, 5)

	// Form 2 is referenced in the content but absent from the association
	// rows, so the export must fail and leave no files behind.
	mock.ExpectQuery(`(?s)SELECT f\.id, f\.transcription, COALESCE.+JOIN corpus_forms cf`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "transcription", "category", "tags"}).
			AddRow(1, "le chien dort", "S", "{}"))

	_, err := svc.WriteToFile(5, "transcriptions", 1)
	require.Error(t, err)

	path := filepath.Join(svc.ExportsDir, "corpus_5", "corpus_5_transcriptions.txt")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(path + ".gz")
	assert.True(t, os.IsNotExist(statErr))
}

func TestServeFileRestricted(t *testing.T) {
	svc, mock, _ := newTestService(t)

	fileRow := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"id", "filename", "format", "restricted",
			"creator_id", "modifier_id", "datetime_created", "datetime_modified",
		}).AddRow(9, "corpus_5_transcriptions.txt", "transcriptions", true, 1, 1, time.Now(), time.Now())
	}

	// A viewer without the unrestricted flag is refused.
	mock.ExpectQuery(`(?s)SELECT id, filename, format, restricted, .+ FROM corpus_files WHERE corpus_id = \$1 AND id = \$2`).
		WithArgs(5, 9).
		WillReturnRows(fileRow())
	mock.ExpectQuery(`SELECT unrestricted FROM users WHERE id = \$1`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"unrestricted"}).AddRow(false))

	_, err := svc.ServeFile(5, 9, 3, user.RoleViewer)
	assert.ErrorIs(t, err, ErrForbidden)

	// An administrator bypasses the check entirely.
	dir := filepath.Join(svc.ExportsDir, "corpus_5")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corpus_5_transcriptions.txt.gz"), []byte("x"), 0o644))

	mock.ExpectQuery(`(?s)SELECT id, filename, format, restricted, .+ FROM corpus_files WHERE corpus_id = \$1 AND id = \$2`).
		WithArgs(5, 9).
		WillReturnRows(fileRow())

	path, err := svc.ServeFile(5, 9, 1, user.RoleAdministrator)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "corpus_5_transcriptions.txt.gz"), path)
	assert.NoError(t, mock.ExpectationsWereMet())
}
