// Package domain holds the types shared by the catalog, the registry and the
// document store backends.
package domain

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrInvalidArgument  = errors.New("invalid arguments")
	ErrDatabaseExists   = errors.New("Database already exists")
	ErrDocumentNotFound = errors.New("document not found")
	ErrReservedName     = errors.New("database name is reserved")
	ErrStoreClosed      = errors.New("store is closed")
)

// Reserved document fields
const (
	FieldID      = "_id"
	FieldCreated = "created"
	FieldName    = "name"
)

// Document is an arbitrary JSON object.
type Document map[string]interface{}

// ID returns the system-assigned identity, or "" before the first put.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d)+2)
	for k, v := range d {
		out[k] = v
	}
	return out
}

// DatabaseRecord is a catalog entry marking a registered database.
type DatabaseRecord struct {
	Name    string `json:"name"`
	Created int64  `json:"created"` // milliseconds since epoch
}

// ToDocument converts the record to its stored form.
func (r DatabaseRecord) ToDocument() Document {
	return Document{
		FieldName:    r.Name,
		FieldCreated: r.Created,
	}
}

// RecordFromDocument reads a catalog document. ok is false when the document
// does not carry a name.
func RecordFromDocument(doc Document) (DatabaseRecord, bool) {
	if doc == nil {
		return DatabaseRecord{}, false
	}
	name, ok := doc[FieldName].(string)
	if !ok {
		return DatabaseRecord{}, false
	}
	rec := DatabaseRecord{Name: name}
	switch created := doc[FieldCreated].(type) {
	case float64:
		rec.Created = int64(created)
	case int64:
		rec.Created = created
	case int:
		rec.Created = int64(created)
	}
	return rec, true
}

// KeyRange bounds a query on both ends, inclusive.
type KeyRange struct {
	Start interface{}
	End   interface{}
}

// QueryOptions controls a field query.
type QueryOptions struct {
	Range       *KeyRange
	Descending  bool
	Limit       int // <= 0 means unbounded
	IncludeDocs bool
}

// Row is one query result: the indexed field value and, when requested, the
// whole document.
type Row struct {
	ID  string
	Key interface{}
	Doc Document
}

// DocumentStore is an opened handle on one named database.
type DocumentStore interface {
	Name() string
	Put(ctx context.Context, doc Document) (string, error)
	Get(ctx context.Context, id string) (Document, error)
	// Delete succeeds when the document is already absent.
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, field string, opts QueryOptions) ([]Row, error)
	Close() error
}

// StoreOpener opens handles on named databases of one backend.
type StoreOpener interface {
	Open(ctx context.Context, name string) (DocumentStore, error)
	Close() error
}
