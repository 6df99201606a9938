package sqlite

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/IvanBrykalov/gridview/catalog"
	"github.com/IvanBrykalov/gridview/retry"
	perrors "github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/require"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, s *Store, n int) {
	t.Helper()
	entries := make([]catalog.Entry, n)
	for i := range entries {
		id := strconv.Itoa(i)
		entries[i] = catalog.Entry{SKU: "sku-" + id, Title: "Item " + id, Image: "https://img.example/" + id + ".jpg", Position: i}
	}
	require.NoError(t, s.Insert(context.Background(), entries...))
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open("  ")
	require.Error(t, err)
}

func TestFetchPage(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	seed(t, s, 130)
	ctx := context.Background()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 130, n)

	page, err := s.FetchPage(ctx, 60, 60)
	require.NoError(t, err)
	require.Len(t, page, 60)
	require.Equal(t, catalog.Entry{SKU: "sku-60", Title: "Item 60", Image: "https://img.example/60.jpg", Position: 60}, page[0])

	page, err = s.FetchPage(ctx, 120, 60)
	require.NoError(t, err)
	require.Len(t, page, 10)

	page, err = s.FetchPage(ctx, 500, 60)
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestFetchPage_InvalidArgs(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	_, err := s.FetchPage(context.Background(), -1, 10)
	require.Equal(t, perrors.CodeInvalidInput, perrors.GetCode(err))
	require.False(t, retry.IsRetryable(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.FetchPage(ctx, 0, 10)
	require.ErrorIs(t, err, context.Canceled)
}

func TestInsert_ReplacesPosition(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, catalog.Entry{SKU: "a", Title: "A", Position: 0}))
	require.NoError(t, s.Insert(ctx, catalog.Entry{SKU: "b", Title: "B", Position: 0}))

	page, err := s.FetchPage(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "b", page[0].SKU)

	err = s.Insert(ctx, catalog.Entry{Title: "no sku"})
	require.Equal(t, perrors.CodeInvalidInput, perrors.GetCode(err))
}

// A duplicate SKU at another position is a constraint violation and is
// not retried.
func TestInsert_DuplicateSKU(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, catalog.Entry{SKU: "a", Title: "A", Position: 0}))

	err := s.Insert(ctx, catalog.Entry{SKU: "a", Title: "A again", Position: 1})
	require.Error(t, err)
	require.False(t, retry.IsRetryable(err))
}

func TestInMemory(t *testing.T) {
	t.Parallel()

	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	seed(t, s, 5)
	page, err := s.FetchPage(context.Background(), 0, 60)
	require.NoError(t, err)
	require.Len(t, page, 5)
}

// The store behind a Feed: pages come from SQLite once, then from the cache.
func TestStoreAsFeedSource(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	seed(t, s, 100)
	f := catalog.NewFeed(s, catalog.FeedOptions{
		PageSize: 40,
		Retry:    &retry.Config{MaxRetries: 1, BaseDelay: time.Millisecond},
	})
	t.Cleanup(func() { _ = f.Close() })

	var total int
	for {
		page, err := f.Next(context.Background())
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		total += len(page)
	}
	require.Equal(t, 100, total)
}
