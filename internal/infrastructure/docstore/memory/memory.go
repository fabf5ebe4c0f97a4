// Package memory provides a process-local document store. Data lives as long
// as the opener, so reopening a name sees earlier writes.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/FreePeak/json-db-mcp-server/internal/domain"
	"github.com/FreePeak/json-db-mcp-server/internal/infrastructure/docstore"
)

type collection struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

// Opener hands out handles on in-memory collections.
type Opener struct {
	mu          sync.Mutex
	collections map[string]*collection
	closed      bool
}

// NewOpener creates an empty in-memory backend.
func NewOpener() *Opener {
	return &Opener{collections: make(map[string]*collection)}
}

// Open returns a handle on the named collection, creating it on first use.
func (o *Opener) Open(ctx context.Context, name string) (domain.DocumentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, domain.ErrStoreClosed
	}
	c, ok := o.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]domain.Document)}
		o.collections[name] = c
	}
	return &Store{name: name, coll: c}, nil
}

// Close drops every collection.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.collections = nil
	return nil
}

// Store is a handle on one in-memory collection.
type Store struct {
	name string
	coll *collection

	mu     sync.RWMutex
	closed bool
}

func (s *Store) Name() string { return s.name }

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return nil
}

func (s *Store) Put(ctx context.Context, doc domain.Document) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	stored, id, err := docstore.PrepareForPut(doc)
	if err != nil {
		return "", err
	}

	s.coll.mu.Lock()
	s.coll.docs[id] = stored
	s.coll.mu.Unlock()
	return id, nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.Document, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	s.coll.mu.RLock()
	doc, ok := s.coll.docs[id]
	s.coll.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	return docstore.Normalize(doc)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	s.coll.mu.Lock()
	delete(s.coll.docs, id)
	s.coll.mu.Unlock()
	return nil
}

func (s *Store) Query(ctx context.Context, field string, opts domain.QueryOptions) ([]domain.Row, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	s.coll.mu.RLock()
	docs := make([]domain.Document, 0, len(s.coll.docs))
	for _, doc := range s.coll.docs {
		docs = append(docs, doc)
	}
	s.coll.mu.RUnlock()

	rows := docstore.Evaluate(docs, field, opts)
	// Hand out copies so callers cannot mutate stored documents.
	for i := range rows {
		if rows[i].Doc == nil {
			continue
		}
		copied, err := docstore.Normalize(rows[i].Doc)
		if err != nil {
			return nil, err
		}
		rows[i].Doc = copied
	}
	return rows, nil
}

// Close invalidates this handle only; the collection stays with the opener.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
