package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/FreePeak/json-db-mcp-server/internal/domain"
	"github.com/FreePeak/json-db-mcp-server/internal/logger"
	"github.com/FreePeak/json-db-mcp-server/internal/repository"
)

// DatabaseUseCase implements the database and document operations over one
// registry and its catalog. Every server instance owns its own.
type DatabaseUseCase struct {
	catalog      *repository.Catalog
	registry     *repository.Registry
	autoRegister bool
	now          func() time.Time
}

// Option configures a DatabaseUseCase
type Option func(*DatabaseUseCase)

// WithAutoRegister makes document operations register unknown databases in
// the catalog.
func WithAutoRegister(enabled bool) Option {
	return func(uc *DatabaseUseCase) {
		uc.autoRegister = enabled
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(uc *DatabaseUseCase) {
		uc.now = now
	}
}

// NewDatabaseUseCase creates a new database use case
func NewDatabaseUseCase(catalog *repository.Catalog, registry *repository.Registry, opts ...Option) *DatabaseUseCase {
	uc := &DatabaseUseCase{
		catalog:  catalog,
		registry: registry,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *DatabaseUseCase) nowMillis() int64 {
	return uc.now().UnixMilli()
}

func (uc *DatabaseUseCase) validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: databaseName must not be empty", domain.ErrInvalidArgument)
	}
	if name == uc.catalog.Name() {
		return fmt.Errorf("%w: %w: %s", domain.ErrInvalidArgument, domain.ErrReservedName, name)
	}
	return nil
}

// resolve opens the named database for a document operation.
func (uc *DatabaseUseCase) resolve(ctx context.Context, name string) (domain.DocumentStore, error) {
	if err := uc.validateName(name); err != nil {
		return nil, err
	}
	store, err := uc.registry.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	if uc.autoRegister {
		added, err := uc.catalog.RegisterIfAbsent(ctx, domain.DatabaseRecord{Name: name, Created: uc.nowMillis()})
		if err != nil {
			return nil, err
		}
		if added {
			logger.Info("Registered database %s on first use", name)
		}
	}
	return store, nil
}

// CreateDatabase registers a new database and opens its handle.
func (uc *DatabaseUseCase) CreateDatabase(ctx context.Context, name string) error {
	if err := uc.validateName(name); err != nil {
		return err
	}

	existing, err := uc.catalog.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrDatabaseExists, name)
	}

	if _, err := uc.registry.Resolve(ctx, name); err != nil {
		return err
	}

	added, err := uc.catalog.RegisterIfAbsent(ctx, domain.DatabaseRecord{Name: name, Created: uc.nowMillis()})
	if err != nil {
		return err
	}
	if !added {
		return fmt.Errorf("%w: %s", domain.ErrDatabaseExists, name)
	}

	logger.Info("Created database %s", name)
	return nil
}

// ListDatabases returns the registered database names, newest first.
func (uc *DatabaseUseCase) ListDatabases(ctx context.Context) ([]string, error) {
	records, err := uc.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.Name)
	}
	return names, nil
}

// SaveDocument stores doc with a fresh created timestamp and returns its id.
func (uc *DatabaseUseCase) SaveDocument(ctx context.Context, dbName string, doc domain.Document) (string, error) {
	if len(doc) == 0 {
		return "", fmt.Errorf("%w: doc must be a non-empty object", domain.ErrInvalidArgument)
	}
	store, err := uc.resolve(ctx, dbName)
	if err != nil {
		return "", err
	}

	toSave := doc.Clone()
	toSave[domain.FieldCreated] = uc.nowMillis()

	id, err := store.Put(ctx, toSave)
	if err != nil {
		return "", err
	}
	logger.Debug("Saved document %s to %s", id, dbName)
	return id, nil
}

// QueryDocuments returns the documents carrying sortField, sorted by it in
// descending order.
func (uc *DatabaseUseCase) QueryDocuments(ctx context.Context, dbName, sortField string) ([]domain.Document, error) {
	if sortField == "" {
		return nil, fmt.Errorf("%w: sortField must not be empty", domain.ErrInvalidArgument)
	}
	store, err := uc.resolve(ctx, dbName)
	if err != nil {
		return nil, err
	}

	rows, err := store.Query(ctx, sortField, domain.QueryOptions{
		Descending:  true,
		IncludeDocs: true,
	})
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(rows))
	for _, row := range rows {
		if row.Doc != nil {
			docs = append(docs, row.Doc)
		}
	}
	return docs, nil
}

// LoadDocument fetches one document by id.
func (uc *DatabaseUseCase) LoadDocument(ctx context.Context, dbName, id string) (domain.Document, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id must not be empty", domain.ErrInvalidArgument)
	}
	store, err := uc.resolve(ctx, dbName)
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, id)
}

// DeleteDocument removes one document by id. Deleting a missing document
// succeeds.
func (uc *DatabaseUseCase) DeleteDocument(ctx context.Context, dbName, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id must not be empty", domain.ErrInvalidArgument)
	}
	store, err := uc.resolve(ctx, dbName)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, id); err != nil {
		return err
	}
	logger.Debug("Deleted document %s from %s", id, dbName)
	return nil
}
