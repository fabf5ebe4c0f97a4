package database

import (
	"context"
	"fmt"

	"github.com/FreePeak/json-db-mcp-server/internal/config"
	"github.com/FreePeak/json-db-mcp-server/internal/domain"
	"github.com/FreePeak/json-db-mcp-server/internal/infrastructure/docstore/badger"
	"github.com/FreePeak/json-db-mcp-server/internal/infrastructure/docstore/memory"
	"github.com/FreePeak/json-db-mcp-server/internal/infrastructure/docstore/sqlstore"
	"github.com/FreePeak/json-db-mcp-server/pkg/db"
)

// Backend names accepted by STORE_BACKEND
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
	BackendSQL    = "sql"
)

// Factory manages the creation of document store openers
type Factory struct{}

// NewFactory creates a new store factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateOpener creates the store opener selected by the configuration
func (f *Factory) CreateOpener(ctx context.Context, store config.StoreConfig, dbCfg config.DatabaseConfig) (domain.StoreOpener, error) {
	switch store.Backend {
	case BackendBadger:
		opener, err := badger.NewOpener(badger.Options{DataDir: store.DataDir})
		if err != nil {
			return nil, err
		}
		return opener, nil
	case BackendMemory:
		return memory.NewOpener(), nil
	case BackendSQL:
		opener, err := sqlstore.NewOpener(ctx, db.Config{
			Type:     dbCfg.Type,
			Host:     dbCfg.Host,
			Port:     dbCfg.Port,
			User:     dbCfg.User,
			Password: dbCfg.Password,
			Name:     dbCfg.Name,
		})
		if err != nil {
			return nil, err
		}
		return opener, nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", store.Backend)
	}
}
