package docstore

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/json-db-mcp-server/internal/domain"
)

func keys(rows []domain.Row) []interface{} {
	out := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Key)
	}
	return out
}

func TestPrepareForPutAssignsID(t *testing.T) {
	doc, id, err := PrepareForPut(domain.Document{"x": 1})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, doc.ID())
	assert.Equal(t, 1.0, doc["x"])
}

func TestPrepareForPutKeepsID(t *testing.T) {
	doc, id, err := PrepareForPut(domain.Document{"_id": "fixed", "x": 1})
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)
	assert.Equal(t, "fixed", doc.ID())
}

func TestPrepareForPutRejectsBadID(t *testing.T) {
	_, _, err := PrepareForPut(domain.Document{"_id": 5})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, _, err = PrepareForPut(domain.Document{"_id": ""})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestNormalizeRejectsNonJSON(t *testing.T) {
	_, err := Normalize(domain.Document{"fn": func() {}})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestNewIDIsTimeOrdered(t *testing.T) {
	prev, err := NewID()
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		next, err := NewID()
		require.NoError(t, err)
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestExtract(t *testing.T) {
	doc := domain.Document{
		"a":     map[string]interface{}{"b": 2.0},
		"a.b":   "literal",
		"outer": map[string]interface{}{"inner": map[string]interface{}{"leaf": true}},
	}

	v, ok := Extract(doc, "a.b")
	assert.True(t, ok)
	assert.Equal(t, "literal", v)

	v, ok = Extract(doc, "outer.inner.leaf")
	assert.True(t, ok)
	assert.Equal(t, true, v)

	_, ok = Extract(doc, "outer.missing")
	assert.False(t, ok)

	_, ok = Extract(doc, "missing")
	assert.False(t, ok)
}

func TestEvaluateSortsDescending(t *testing.T) {
	docs := []domain.Document{
		{"_id": "1", "f": 3.0},
		{"_id": "2", "f": 1.0},
		{"_id": "3", "f": 2.0},
	}

	rows := Evaluate(docs, "f", domain.QueryOptions{Descending: true, IncludeDocs: true})
	assert.Equal(t, []interface{}{3.0, 2.0, 1.0}, keys(rows))
	assert.Equal(t, "1", rows[0].Doc.ID())

	rows = Evaluate(docs, "f", domain.QueryOptions{})
	assert.Equal(t, []interface{}{1.0, 2.0, 3.0}, keys(rows))
	assert.Nil(t, rows[0].Doc)
}

func TestEvaluateSkipsMissingField(t *testing.T) {
	docs := []domain.Document{
		{"_id": "1", "f": 1.0},
		{"_id": "2", "g": 1.0},
		{"_id": "3", "f": nil},
	}

	rows := Evaluate(docs, "f", domain.QueryOptions{})
	want := []domain.Row{{ID: "3", Key: nil}, {ID: "1", Key: 1.0}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateRangeAndLimit(t *testing.T) {
	docs := []domain.Document{
		{"_id": "1", "name": "alpha"},
		{"_id": "2", "name": "beta"},
		{"_id": "3", "name": "beta"},
		{"_id": "4", "name": "gamma"},
	}

	rows := Evaluate(docs, "name", domain.QueryOptions{Range: &domain.KeyRange{Start: "beta", End: "beta"}})
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[0].ID)
	assert.Equal(t, "3", rows[1].ID)

	rows = Evaluate(docs, "name", domain.QueryOptions{Descending: true, Limit: 2})
	require.Len(t, rows, 2)
	assert.Equal(t, "4", rows[0].ID)
	assert.Equal(t, "3", rows[1].ID)
}
