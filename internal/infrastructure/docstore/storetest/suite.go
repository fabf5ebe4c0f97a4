// Package storetest holds the behaviour every document store backend must
// share. Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/json-db-mcp-server/internal/domain"
)

// OpenerFactory creates a fresh backend for each test. It should register
// its own cleanup.
type OpenerFactory func(t *testing.T) domain.StoreOpener

// Run runs the conformance suite against the backend built by factory.
func Run(t *testing.T, factory OpenerFactory) {
	t.Helper()

	t.Run("PutAssignsID", func(t *testing.T) { testPutAssignsID(t, factory) })
	t.Run("PutKeepsID", func(t *testing.T) { testPutKeepsID(t, factory) })
	t.Run("PutRejectsInvalidID", func(t *testing.T) { testPutRejectsInvalidID(t, factory) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, factory) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, factory) })
	t.Run("QueryOrdering", func(t *testing.T) { testQueryOrdering(t, factory) })
	t.Run("QueryRange", func(t *testing.T) { testQueryRange(t, factory) })
	t.Run("NamesAreIsolated", func(t *testing.T) { testNamesAreIsolated(t, factory) })
	t.Run("ReopenSeesData", func(t *testing.T) { testReopenSeesData(t, factory) })
	t.Run("ClosedHandle", func(t *testing.T) { testClosedHandle(t, factory) })
	t.Run("ConcurrentPuts", func(t *testing.T) { testConcurrentPuts(t, factory) })
}

func open(t *testing.T, opener domain.StoreOpener, name string) domain.DocumentStore {
	t.Helper()
	store, err := opener.Open(context.Background(), name)
	require.NoError(t, err)
	require.Equal(t, name, store.Name())
	return store
}

func testPutAssignsID(t *testing.T, factory OpenerFactory) {
	ctx := context.Background()
	store := open(t, factory(t), "docs")

	id, err := store.Put(ctx, domain.Document{"title": "hello", "n": 3})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Document{"_id": id, "title": "hello", "n": 3.0}, got)
}

func testPutKeepsID(t *testing.T, factory OpenerFactory) {
	ctx := context.Background()
	store := open(t, factory(t), "docs")

	id, err := store.Put(ctx, domain.Document{"_id": "fixed", "v": 1})
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)

	_, err = store.Put(ctx, domain.Document{"_id": "fixed", "v": 2})
	require.NoError(t, err)

	got, err := store.Get(ctx, "fixed")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got["v"])
}

func testPutRejectsInvalidID(t *testing.T, factory OpenerFactory) {
	store := open(t, factory(t), "docs")
	_, err := store.Put(context.Background(), domain.Document{"_id": 42})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
}

func testGetMissing(t *testing.T, factory OpenerFactory) {
	store := open(t, factory(t), "docs")
	_, err := store.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, domain.ErrDocumentNotFound), "got %v", err)
}

func testDelete(t *testing.T, factory OpenerFactory) {
	ctx := context.Background()
	store := open(t, factory(t), "docs")

	id, err := store.Put(ctx, domain.Document{"a": true})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, id))

	_, err = store.Get(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrDocumentNotFound), "got %v", err)

	// Deleting again is not an error.
	assert.NoError(t, store.Delete(ctx, id))
}

func testQueryOrdering(t *testing.T, factory OpenerFactory) {
	ctx := context.Background()
	store := open(t, factory(t), "docs")

	for _, v := range []interface{}{5, "text", nil, 1.5, true} {
		_, err := store.Put(ctx, domain.Document{"f": v})
		require.NoError(t, err)
	}
	_, err := store.Put(ctx, domain.Document{"other": 1})
	require.NoError(t, err)

	rows, err := store.Query(ctx, "f", domain.QueryOptions{Descending: true, IncludeDocs: true})
	require.NoError(t, err)
	require.Len(t, rows, 5)

	var got []interface{}
	for _, r := range rows {
		got = append(got, r.Key)
		require.NotNil(t, r.Doc)
		assert.Equal(t, r.ID, r.Doc.ID())
	}
	assert.Equal(t, []interface{}{"text", 5.0, 1.5, true, nil}, got)

	rows, err = store.Query(ctx, "f", domain.QueryOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].Key)
	assert.Equal(t, true, rows[1].Key)
	assert.Nil(t, rows[0].Doc)
}

func testQueryRange(t *testing.T, factory OpenerFactory) {
	ctx := context.Background()
	store := open(t, factory(t), "docs")

	for _, name := range []string{"a", "b", "b", "c"} {
		_, err := store.Put(ctx, domain.Document{"name": name})
		require.NoError(t, err)
	}

	rows, err := store.Query(ctx, "name", domain.QueryOptions{
		Range:       &domain.KeyRange{Start: "b", End: "b"},
		IncludeDocs: true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "b", r.Doc["name"])
	}
	assert.Less(t, rows[0].ID, rows[1].ID)
}

func testNamesAreIsolated(t *testing.T, factory OpenerFactory) {
	ctx := context.Background()
	opener := factory(t)
	first := open(t, opener, "first")
	second := open(t, opener, "second")

	id, err := first.Put(ctx, domain.Document{"x": 1})
	require.NoError(t, err)

	_, err = second.Get(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrDocumentNotFound), "got %v", err)

	rows, err := second.Query(ctx, "x", domain.QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func testReopenSeesData(t *testing.T, factory OpenerFactory) {
	ctx := context.Background()
	opener := factory(t)

	store := open(t, opener, "persist")
	id, err := store.Put(ctx, domain.Document{"kept": "yes"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	again := open(t, opener, "persist")
	got, err := again.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "yes", got["kept"])
}

func testClosedHandle(t *testing.T, factory OpenerFactory) {
	ctx := context.Background()
	store := open(t, factory(t), "docs")
	require.NoError(t, store.Close())

	_, err := store.Put(ctx, domain.Document{"a": 1})
	assert.True(t, errors.Is(err, domain.ErrStoreClosed), "got %v", err)
	_, err = store.Get(ctx, "x")
	assert.True(t, errors.Is(err, domain.ErrStoreClosed), "got %v", err)
	_, err = store.Query(ctx, "a", domain.QueryOptions{})
	assert.True(t, errors.Is(err, domain.ErrStoreClosed), "got %v", err)
	assert.True(t, errors.Is(store.Delete(ctx, "x"), domain.ErrStoreClosed))
}

func testConcurrentPuts(t *testing.T, factory OpenerFactory) {
	ctx := context.Background()
	store := open(t, factory(t), "docs")

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.Put(ctx, domain.Document{"_id": fmt.Sprintf("doc-%02d", i), "i": i}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent put failed: %v", err)
	}

	rows, err := store.Query(ctx, "i", domain.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, rows, n)
}
