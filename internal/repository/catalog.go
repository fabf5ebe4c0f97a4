package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/FreePeak/json-db-mcp-server/internal/domain"
)

// Catalog records which databases have been registered. It is a document
// store of its own holding one {name, created} document per database.
type Catalog struct {
	store domain.DocumentStore

	// mu serializes RegisterIfAbsent so its check and insert are atomic
	// within the process.
	mu sync.Mutex
}

// OpenCatalog resolves the catalog store through the registry, so it is
// closed together with every other handle.
func OpenCatalog(ctx context.Context, registry *Registry, name string) (*Catalog, error) {
	store, err := registry.Resolve(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return NewCatalog(store), nil
}

// NewCatalog wraps an opened store.
func NewCatalog(store domain.DocumentStore) *Catalog {
	return &Catalog{store: store}
}

// Name returns the catalog database name.
func (c *Catalog) Name() string {
	return c.store.Name()
}

// Register appends a record without checking for duplicates.
func (c *Catalog) Register(ctx context.Context, rec domain.DatabaseRecord) error {
	if _, err := c.store.Put(ctx, rec.ToDocument()); err != nil {
		return fmt.Errorf("failed to register database %s: %w", rec.Name, err)
	}
	return nil
}

// FindByName returns every record carrying name.
func (c *Catalog) FindByName(ctx context.Context, name string) ([]domain.DatabaseRecord, error) {
	rows, err := c.store.Query(ctx, domain.FieldName, domain.QueryOptions{
		Range:       &domain.KeyRange{Start: name, End: name},
		IncludeDocs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up database %s: %w", name, err)
	}
	return recordsFromRows(rows), nil
}

// ListAll returns every record, newest first.
func (c *Catalog) ListAll(ctx context.Context) ([]domain.DatabaseRecord, error) {
	rows, err := c.store.Query(ctx, domain.FieldCreated, domain.QueryOptions{
		Descending:  true,
		IncludeDocs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	return recordsFromRows(rows), nil
}

// RegisterIfAbsent registers rec unless a record with the same name exists.
// It reports whether a record was written.
func (c *Catalog) RegisterIfAbsent(ctx context.Context, rec domain.DatabaseRecord) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.FindByName(ctx, rec.Name)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	if err := c.Register(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// recordsFromRows drops rows without a usable document.
func recordsFromRows(rows []domain.Row) []domain.DatabaseRecord {
	records := make([]domain.DatabaseRecord, 0, len(rows))
	for _, row := range rows {
		rec, ok := domain.RecordFromDocument(row.Doc)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records
}
