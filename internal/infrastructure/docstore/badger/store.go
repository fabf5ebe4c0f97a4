// Package badger persists each named database in its own BadgerDB directory
// under the configured data directory.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/FreePeak/json-db-mcp-server/internal/domain"
	"github.com/FreePeak/json-db-mcp-server/internal/infrastructure/docstore"
	"github.com/FreePeak/json-db-mcp-server/internal/logger"
)

const prefixDoc = "doc/"

func keyDoc(id string) []byte {
	return []byte(prefixDoc + id)
}

// Options configures the badger backend.
type Options struct {
	// DataDir is the parent directory of every database directory.
	DataDir string
	// InMemory keeps all data in RAM. DataDir is ignored.
	InMemory bool
}

// Opener opens one BadgerDB per database name and owns them until Close.
type Opener struct {
	opts Options

	mu     sync.Mutex
	dbs    map[string]*badgerdb.DB
	closed bool
}

// NewOpener prepares the data directory.
func NewOpener(opts Options) (*Opener, error) {
	if !opts.InMemory {
		if opts.DataDir == "" {
			return nil, errors.New("badger data directory is required")
		}
		if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return &Opener{opts: opts, dbs: make(map[string]*badgerdb.DB)}, nil
}

// dirName maps a database name onto a single safe path element.
func dirName(name string) string {
	escaped := url.PathEscape(name)
	if strings.HasPrefix(escaped, ".") {
		escaped = "%2E" + escaped[1:]
	}
	return escaped
}

// Open returns a handle on the named database, opening its directory on first
// use. Later opens share the same DB.
func (o *Opener) Open(ctx context.Context, name string) (domain.DocumentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: database name is empty", domain.ErrInvalidArgument)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, domain.ErrStoreClosed
	}

	db, ok := o.dbs[name]
	if !ok {
		var bopts badgerdb.Options
		if o.opts.InMemory {
			bopts = badgerdb.DefaultOptions("").WithInMemory(true)
		} else {
			bopts = badgerdb.DefaultOptions(filepath.Join(o.opts.DataDir, dirName(name)))
		}
		bopts = bopts.WithLogger(logger.Badger(name))

		var err error
		db, err = badgerdb.Open(bopts)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger database %q: %w", name, err)
		}
		o.dbs[name] = db
		logger.Debug("Opened badger database %s", name)
	}
	return &Store{name: name, db: db}, nil
}

// Close closes every database opened through this opener.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true

	var errs []error
	for name, db := range o.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	o.dbs = nil
	return errors.Join(errs...)
}

// Store is a handle on one badger-backed database.
type Store struct {
	name string
	db   *badgerdb.DB

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
	body, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(keyDoc(id), body)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.Document, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var doc domain.Document
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyDoc(id))
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decErr error
			doc, decErr = docstore.Decode(val)
			return decErr
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(keyDoc(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, field string, opts domain.QueryOptions) ([]domain.Row, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var docs []domain.Document
	err := s.db.View(func(txn *badgerdb.Txn) error {
		iopts := badgerdb.DefaultIteratorOptions
		iopts.PrefetchSize = 100
		it := txn.NewIterator(iopts)
		defer it.Close()

		prefix := []byte(prefixDoc)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				doc, err := docstore.Decode(val)
				if err != nil {
					logger.Warn("Skipping corrupt document %s in %s: %v", it.Item().Key(), s.name, err)
					return nil
				}
				docs = append(docs, doc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docstore.Evaluate(docs, field, opts), nil
}

// Close invalidates this handle. The underlying DB is closed by the opener.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
