// Package docstore implements the document store capability used by the
// registry: a shared query engine and the memory, badger and sql backends.
package docstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/FreePeak/json-db-mcp-server/internal/domain"
)

// NewID returns a time-ordered document identity.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate document id: %w", err)
	}
	return id.String(), nil
}

// Normalize deep-copies a document through its JSON encoding so every backend
// stores and returns the same value types.
func Normalize(doc domain.Document) (domain.Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: document is not valid JSON: %v", domain.ErrInvalidArgument, err)
	}
	return Decode(data)
}

// Decode parses a stored document body.
func Decode(data []byte) (domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// PrepareForPut normalizes a document and makes sure it carries an _id.
func PrepareForPut(doc domain.Document) (domain.Document, string, error) {
	out, err := Normalize(doc)
	if err != nil {
		return nil, "", err
	}
	if out == nil {
		out = domain.Document{}
	}

	raw, present := out[domain.FieldID]
	if present {
		id, ok := raw.(string)
		if !ok || id == "" {
			return nil, "", fmt.Errorf("%w: %s must be a non-empty string", domain.ErrInvalidArgument, domain.FieldID)
		}
		return out, id, nil
	}

	id, err := NewID()
	if err != nil {
		return nil, "", err
	}
	out[domain.FieldID] = id
	return out, id, nil
}

// Extract returns the value of field in doc. A dotted field walks nested
// objects when no top-level key has that exact name.
func Extract(doc domain.Document, field string) (interface{}, bool) {
	if v, ok := doc[field]; ok {
		return v, true
	}
	if !strings.Contains(field, ".") {
		return nil, false
	}

	var cur interface{} = map[string]interface{}(doc)
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Evaluate runs a field query over a set of documents. Documents without the
// field are not indexed. Ties are broken by document id.
func Evaluate(docs []domain.Document, field string, opts domain.QueryOptions) []domain.Row {
	rows := make([]domain.Row, 0, len(docs))
	for _, doc := range docs {
		key, ok := Extract(doc, field)
		if !ok {
			continue
		}
		if r := opts.Range; r != nil {
			if Compare(key, r.Start) < 0 || Compare(key, r.End) > 0 {
				continue
			}
		}
		row := domain.Row{ID: doc.ID(), Key: key}
		if opts.IncludeDocs {
			row.Doc = doc
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		c := Compare(rows[i].Key, rows[j].Key)
		if c == 0 {
			c = strings.Compare(rows[i].ID, rows[j].ID)
		}
		if opts.Descending {
			return c > 0
		}
		return c < 0
	})

	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}
	return rows
}
