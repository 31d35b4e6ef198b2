package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchdone/watchdone/internal/domain"
)

var (
	alice = domain.Collection{UserID: "alice", Dataset: domain.DatasetStaging}
	bob   = domain.Collection{UserID: "bob", Dataset: domain.DatasetStaging}
)

func doc(id string, mediaID int, date string) domain.Document {
	return domain.Document{ID: id, Record: domain.MediaRecord{
		ID:          mediaID,
		MediaType:   domain.MediaTypeMovie,
		ReleaseDate: date,
		AddedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}
}

func newCaches(t *testing.T) map[string]*Cache {
	t.Helper()
	mem, err := NewCache("", "")
	require.NoError(t, err)

	disk, err := NewCache(t.TempDir(), "postgres://localhost/watchdone")
	require.NoError(t, err)
	t.Cleanup(func() { disk.Close() })

	return map[string]*Cache{"memory": mem, "bolt": disk}
}

func TestCacheRunQueriesCollection(t *testing.T) {
	ctx := context.Background()
	for name, c := range newCaches(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Put(ctx, alice, doc("a", 1, "2001-01-01"), doc("b", 2, "2003-01-01"), doc("c", 3, "2002-01-01")))
			require.NoError(t, c.Put(ctx, bob, doc("z", 9, "2010-01-01")))

			q := domain.QueryDescriptor{Collection: alice}.OrderBy(domain.FieldReleaseDate, domain.Descending).WithLimit(2)
			got, err := c.Run(ctx, q)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "b", got[0].ID)
			assert.Equal(t, "c", got[1].ID)
			assert.True(t, got[0].Record.Equal(doc("b", 2, "2003-01-01").Record))
		})
	}
}

func TestCachePutReplacesAndDeletes(t *testing.T) {
	ctx := context.Background()
	for name, c := range newCaches(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Put(ctx, alice, doc("a", 1, "2001-01-01")))
			updated := doc("a", 1, "2001-01-01")
			updated.Record.WatchedEpisodes = []string{"s1e1"}
			require.NoError(t, c.Put(ctx, alice, updated))

			docs, err := c.Documents(ctx, alice)
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, []string{"s1e1"}, docs[0].Record.WatchedEpisodes)

			require.NoError(t, c.Delete(ctx, alice, "a"))
			require.NoError(t, c.Delete(ctx, alice, "missing"))
			docs, err = c.Documents(ctx, alice)
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	for name, c := range newCaches(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Put(ctx, alice, doc("a", 1, "2001-01-01")))
			require.NoError(t, c.Put(ctx, bob, doc("b", 2, "2002-01-01")))

			require.NoError(t, c.InvalidateCollection(alice))
			docs, err := c.Documents(ctx, alice)
			require.NoError(t, err)
			assert.Empty(t, docs)
			docs, err = c.Documents(ctx, bob)
			require.NoError(t, err)
			assert.Len(t, docs, 1)

			require.NoError(t, c.InvalidateAll())
			docs, err = c.Documents(ctx, bob)
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestCachePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := NewCache(dir, "postgres://db/one")
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, alice, doc("a", 1, "2001-01-01")))
	require.NoError(t, c.Close())

	c, err = NewCache(dir, "postgres://db/one")
	require.NoError(t, err)
	docs, err := c.Documents(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	require.NoError(t, c.Close())

	// a different remote gets its own database
	other, err := NewCache(dir, "postgres://db/two")
	require.NoError(t, err)
	defer other.Close()
	docs, err = other.Documents(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCacheHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := NewCache("", "")
	require.NoError(t, err)
	_, err = c.Run(ctx, domain.QueryDescriptor{Collection: alice})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHashRemoteURLNormalizes(t *testing.T) {
	assert.Equal(t, hashRemoteURL("postgres://Host/db/"), hashRemoteURL("postgres://host/db"))
	assert.Len(t, hashRemoteURL("x"), 12)
}
