package corpus

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatWriters(t *testing.T) {
	form := ExportForm{ID: 1, Transcription: "le chien dort", Category: "S"}

	assert.Equal(t, "le chien dort\n", Formats["transcriptions"].Writer(form))
	assert.Equal(t, "(S le chien dort)\n", Formats["treebank"].Writer(form))

	// Uncategorized forms get the TOP node in treebank output.
	form.Category = ""
	assert.Equal(t, "(TOP le chien dort)\n", Formats["treebank"].Writer(form))
}

func TestFormatNames(t *testing.T) {
	assert.Equal(t, []string{"transcriptions", "treebank"}, FormatNames())
}

func TestGzipFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus_1_transcriptions.txt")
	require.NoError(t, os.WriteFile(path, []byte("le chien dort\n"), 0o644))

	require.NoError(t, gzipFile(path))

	// The uncompressed file stays in place.
	_, err := os.Stat(path)
	require.NoError(t, err)

	f, err := os.Open(path + ".gz")
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	content, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "le chien dort\n", string(content))
}
