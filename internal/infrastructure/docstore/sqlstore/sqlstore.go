// Package sqlstore keeps every named database as rows of one shared table in
// a relational database (sqlite, mysql or postgres).
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/FreePeak/json-db-mcp-server/internal/domain"
	"github.com/FreePeak/json-db-mcp-server/internal/infrastructure/docstore"
	"github.com/FreePeak/json-db-mcp-server/internal/logger"
	"github.com/FreePeak/json-db-mcp-server/pkg/db"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS json_documents (
	db_name VARCHAR(255) NOT NULL,
	doc_id VARCHAR(255) NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (db_name, doc_id)
)`

// Opener shares one connection pool between every named database.
type Opener struct {
	database db.Database

	mu     sync.Mutex
	closed bool
}

// NewOpener connects to the configured database and creates the document
// table when missing.
func NewOpener(ctx context.Context, cfg db.Config) (*Opener, error) {
	database, err := db.NewDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Connect(); err != nil {
		return nil, err
	}
	if _, err := database.Exec(ctx, createTableSQL); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to create document table: %w", err)
	}
	return &Opener{database: database}, nil
}

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
	return &Store{name: name, database: o.database}, nil
}

// Close closes the connection pool.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	return o.database.Close()
}

// Store is a handle on the rows of one named database.
type Store struct {
	name     string
	database db.Database

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

	tx, err := s.database.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Warn("Rollback failed for %s: %v", s.name, rbErr)
		}
	}()

	if _, err := tx.ExecContext(ctx, s.database.Rebind("DELETE FROM json_documents WHERE db_name = ? AND doc_id = ?"), s.name, id); err != nil {
		return "", fmt.Errorf("failed to replace document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.database.Rebind("INSERT INTO json_documents (db_name, doc_id, body) VALUES (?, ?, ?)"), s.name, id, string(body)); err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit document: %w", err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.Document, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	row, err := s.database.QueryRow(ctx, "SELECT body FROM json_documents WHERE db_name = ? AND doc_id = ?", s.name, id)
	if err != nil {
		return nil, err
	}
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return docstore.Decode([]byte(body))
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, err := s.database.Exec(ctx, "DELETE FROM json_documents WHERE db_name = ? AND doc_id = ?", s.name, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, field string, opts domain.QueryOptions) ([]domain.Row, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	rows, err := s.database.Query(ctx, "SELECT doc_id, body FROM json_documents WHERE db_name = ?", s.name)
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to read document row: %w", err)
		}
		doc, err := docstore.Decode([]byte(body))
		if err != nil {
			logger.Warn("Skipping corrupt document %s in %s: %v", id, s.name, err)
			continue
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}
	return docstore.Evaluate(docs, field, opts), nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
