package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/and161185/timetill/internal/errs"
	"github.com/and161185/timetill/internal/model"
)

func openBlobs(t *testing.T) BlobStore {
	t.Helper()

	bs := OpenBlobStore(filepath.Join(t.TempDir(), "sites.db"), zap.NewNop())
	t.Cleanup(func() { _ = bs.Close() })
	return bs
}

func site(id int64, name string) *model.ManagedSite {
	return &model.ManagedSite{
		ID:   id,
		Name: name,
		Files: []model.SiteFile{
			{Path: "index.html", Content: []byte("<h1>" + name + "</h1>")},
			{Path: "style.css", Content: []byte("body{margin:0}")},
		},
	}
}

func TestBlobStore_PutGetRoundTrip(t *testing.T) {
	t.Parallel()

	bs := openBlobs(t)
	ctx := context.Background()

	stored, err := bs.PutSite(ctx, site(7, "portfolio"))
	require.NoError(t, err)
	require.EqualValues(t, 7, stored.ID)

	got, err := bs.GetSite(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "portfolio", got.Name)
	require.Len(t, got.Files, 2)
	require.Equal(t, []byte("body{margin:0}"), got.Files[1].Content)
}

func TestBlobStore_GetMissing(t *testing.T) {
	t.Parallel()

	bs := openBlobs(t)
	_, err := bs.GetSite(context.Background(), 404)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestBlobStore_ListOrderedByID(t *testing.T) {
	t.Parallel()

	bs := openBlobs(t)
	ctx := context.Background()

	for _, s := range []*model.ManagedSite{site(30, "c"), site(10, "a"), site(20, "b")} {
		_, err := bs.PutSite(ctx, s)
		require.NoError(t, err)
	}

	sites, err := bs.ListSites(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{sites[0].Name, sites[1].Name, sites[2].Name})
}

func TestBlobStore_DeleteAndWipe(t *testing.T) {
	t.Parallel()

	bs := openBlobs(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		_, err := bs.PutSite(ctx, site(i, "s"))
		require.NoError(t, err)
	}

	require.NoError(t, bs.DeleteSite(ctx, 2))
	// Deleting an absent id is a no-op.
	require.NoError(t, bs.DeleteSite(ctx, 2))

	sites, err := bs.ListSites(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 2)

	require.NoError(t, bs.Wipe(ctx))
	sites, err = bs.ListSites(ctx)
	require.NoError(t, err)
	require.Empty(t, sites)

	// The bucket survives a wipe and accepts new writes.
	_, err = bs.PutSite(ctx, site(9, "fresh"))
	require.NoError(t, err)
}

func TestBlobStore_CancelledContext(t *testing.T) {
	t.Parallel()

	bs := openBlobs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bs.ListSites(ctx)
	require.True(t, errors.Is(err, context.Canceled))
	_, err = bs.PutSite(ctx, site(1, "s"))
	require.True(t, errors.Is(err, context.Canceled))
}

func TestBlobStore_DegradedWhenUnopenable(t *testing.T) {
	t.Parallel()

	// A path inside a directory that does not exist cannot be opened.
	path := filepath.Join(t.TempDir(), "missing", "deep", "sites.db")
	bs := OpenBlobStore(path, zap.NewNop())
	ctx := context.Background()

	// Reads degrade to empty, writes surface a persistence error, and the
	// rest of the application keeps running.
	sites, err := bs.ListSites(ctx)
	require.NoError(t, err)
	require.Empty(t, sites)

	_, err = bs.PutSite(ctx, site(1, "s"))
	require.ErrorIs(t, err, errs.ErrPersistence)
	_, err = bs.GetSite(ctx, 1)
	require.ErrorIs(t, err, errs.ErrPersistence)
	require.ErrorIs(t, bs.DeleteSite(ctx, 1), errs.ErrPersistence)

	require.NoError(t, bs.Wipe(ctx))
	require.NoError(t, bs.Close())
}
