package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oldb/pkg/web"
)

var testColumns = map[string]string{
	"id":                "f.id",
	"transcription":     "f.transcription",
	"grammaticality":    "f.grammaticality",
	"datetime_modified": "f.datetime_modified",
}

func newTestBuilder() *Builder {
	return NewBuilder("Form", testColumns)
}

func TestTranslateEmptyFilter(t *testing.T) {
	b := newTestBuilder()

	for _, filter := range []json.RawMessage{nil, json.RawMessage("null")} {
		clause, args, err := b.Translate(filter, 0)
		require.NoError(t, err)
		assert.Equal(t, "TRUE", clause)
		assert.Empty(t, args)
	}
}

func TestTranslateSimpleFilter(t *testing.T) {
	b := newTestBuilder()

	clause, args, err := b.Translate(json.RawMessage(`["transcription", "like", "%chien%"]`), 0)
	require.NoError(t, err)
	assert.Equal(t, "f.transcription LIKE $1", clause)
	assert.Equal(t, []any{"%chien%"}, args)
}

func TestTranslateModelQualifiedFilter(t *testing.T) {
	b := newTestBuilder()

	clause, args, err := b.Translate(json.RawMessage(`["Form", "transcription", "regex", "^a"]`), 0)
	require.NoError(t, err)
	assert.Equal(t, "f.transcription ~ $1", clause)
	assert.Equal(t, []any{"^a"}, args)
}

func TestTranslateWrongModel(t *testing.T) {
	b := newTestBuilder()

	_, _, err := b.Translate(json.RawMessage(`["File", "name", "=", "x"]`), 0)
	require.Error(t, err)
	errs, ok := err.(web.Errors)
	require.True(t, ok)
	assert.Equal(t, "Searching the Form model by File is not permitted", errs["File"])
}

func TestTranslateBooleanFilters(t *testing.T) {
	b := newTestBuilder()

	filter := json.RawMessage(`["and", [
		["transcription", "like", "%a%"],
		["not", ["grammaticality", "=", "*"]],
		["or", [
			["id", "<", 10],
			["id", ">", 20]
		]]
	]]`)

	clause, args, err := b.Translate(filter, 0)
	require.NoError(t, err)
	assert.Equal(t,
		"(f.transcription LIKE $1 AND NOT f.grammaticality = $2 AND (f.id < $3 OR f.id > $4))",
		clause)
	assert.Equal(t, []any{"%a%", "*", float64(10), float64(20)}, args)
}

func TestTranslateNullValue(t *testing.T) {
	b := newTestBuilder()

	clause, args, err := b.Translate(json.RawMessage(`["transcription", "=", null]`), 0)
	require.NoError(t, err)
	assert.Equal(t, "f.transcription IS NULL", clause)
	assert.Empty(t, args)

	clause, _, err = b.Translate(json.RawMessage(`["transcription", "!=", null]`), 0)
	require.NoError(t, err)
	assert.Equal(t, "f.transcription IS NOT NULL", clause)
}

func TestTranslateInFilter(t *testing.T) {
	b := newTestBuilder()

	clause, args, err := b.Translate(json.RawMessage(`["id", "in", [1, 2, 3]]`), 0)
	require.NoError(t, err)
	assert.Equal(t, "f.id IN ($1, $2, $3)", clause)
	assert.Len(t, args, 3)
}

func TestTranslateArgOffset(t *testing.T) {
	b := newTestBuilder()

	clause, _, err := b.Translate(json.RawMessage(`["id", "=", 5]`), 2)
	require.NoError(t, err)
	assert.Equal(t, "f.id = $3", clause)
}

func TestTranslateUnknownAttribute(t *testing.T) {
	b := newTestBuilder()

	_, _, err := b.Translate(json.RawMessage(`["password", "=", "x"]`), 0)
	require.Error(t, err)
	errs := err.(web.Errors)
	assert.Equal(t, "Searching on Form.password is not permitted", errs["Form.password"])
}

func TestTranslateUnknownRelation(t *testing.T) {
	b := newTestBuilder()

	_, _, err := b.Translate(json.RawMessage(`["id", "between", 5]`), 0)
	require.Error(t, err)
	errs := err.(web.Errors)
	assert.Equal(t, "The relation between is not permitted for Form.id", errs["between"])
}

func TestTranslateMalformed(t *testing.T) {
	b := newTestBuilder()

	for _, filter := range []string{
		`"not an array"`,
		`["id"]`,
		`not even json`,
		`["and", []]`,
		`["id", "in", []]`,
	} {
		_, _, err := b.Translate(json.RawMessage(filter), 0)
		require.Error(t, err, filter)
		errs := err.(web.Errors)
		assert.Equal(t, "The submitted query was malformed", errs["Malformed query error"], filter)
	}
}

func TestOrderBy(t *testing.T) {
	b := newTestBuilder()

	clause, err := b.OrderBy(nil, "f.id ASC")
	require.NoError(t, err)
	assert.Equal(t, "f.id ASC", clause)

	clause, err = b.OrderBy([]string{"transcription"}, "f.id ASC")
	require.NoError(t, err)
	assert.Equal(t, "f.transcription ASC", clause)

	clause, err = b.OrderBy([]string{"datetime_modified", "desc"}, "f.id ASC")
	require.NoError(t, err)
	assert.Equal(t, "f.datetime_modified DESC", clause)

	_, err = b.OrderBy([]string{"password"}, "f.id ASC")
	require.Error(t, err)

	_, err = b.OrderBy([]string{"id", "sideways"}, "f.id ASC")
	require.Error(t, err)
	errs := err.(web.Errors)
	assert.Equal(t, "Value must be one of: asc; desc", errs["order_by_direction"])
}
