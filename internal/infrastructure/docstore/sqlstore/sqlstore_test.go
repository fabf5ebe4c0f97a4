package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/json-db-mcp-server/internal/domain"
	"github.com/FreePeak/json-db-mcp-server/internal/infrastructure/docstore/sqlstore"
	"github.com/FreePeak/json-db-mcp-server/internal/infrastructure/docstore/storetest"
	"github.com/FreePeak/json-db-mcp-server/pkg/db"
)

func newSQLiteOpener(t *testing.T) *sqlstore.Opener {
	t.Helper()
	opener, err := sqlstore.NewOpener(context.Background(), db.Config{
		Type: "sqlite",
		Name: filepath.Join(t.TempDir(), "docs.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { opener.Close() })
	return opener
}

func TestConformanceSQLite(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.StoreOpener {
		return newSQLiteOpener(t)
	})
}

func TestClosedOpener(t *testing.T) {
	opener := newSQLiteOpener(t)
	require.NoError(t, opener.Close())
	_, err := opener.Open(context.Background(), "docs")
	assert.ErrorIs(t, err, domain.ErrStoreClosed)
}

func TestUnsupportedType(t *testing.T) {
	_, err := sqlstore.NewOpener(context.Background(), db.Config{Type: "oracle", Name: "x"})
	assert.ErrorIs(t, err, db.ErrUnsupportedDB)
}
