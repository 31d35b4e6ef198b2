package watchlist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchdone/watchdone/internal/domain"
)

func TestLookaheadProducesNextKey(t *testing.T) {
	f := newFakeStore()
	all := catalog(40)
	f.remote = all
	q := Compose(testColl, domain.FilterSpec{}, domain.Descending, 20)
	page := domain.Snapshot{Documents: all[:20], Source: domain.SourceCache}

	next, err := NewLookaheadProbe(f, DefaultLookaheadSize, nil).Next(context.Background(), q, page)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, idRange(21, 35), mediaIDs(next.Snapshot().Records()))

	require.Len(t, f.reads, 1)
	r := f.reads[0]
	assert.Equal(t, domain.SourceRemote, r.src)
	assert.Equal(t, DefaultLookaheadSize, r.q.Limit)
	require.NotNil(t, r.q.StartAfter)
	assert.Equal(t, all[19].ID, r.q.StartAfter.ID)
	assert.Equal(t, q.Filters, r.q.Filters)
	assert.Equal(t, q.Orders, r.q.Orders)
}

func TestLookaheadEndOfList(t *testing.T) {
	f := newFakeStore()
	f.remote = catalog(20)
	page := domain.Snapshot{Documents: catalog(20)}

	next, err := NewLookaheadProbe(f, DefaultLookaheadSize, nil).Next(context.Background(), Compose(testColl, domain.FilterSpec{}, domain.Descending, 20), page)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestLookaheadBoundaryDuplicate(t *testing.T) {
	f := newFakeStore()
	f.remote = catalog(30)
	f.overlapBoundary = true
	page := domain.Snapshot{Documents: catalog(20)}

	next, err := NewLookaheadProbe(f, DefaultLookaheadSize, nil).Next(context.Background(), Compose(testColl, domain.FilterSpec{}, domain.Descending, 20), page)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestLookaheadBoundaryChangedIsNotDuplicate(t *testing.T) {
	f := newFakeStore()
	f.remote = catalog(30)
	f.overlapBoundary = true
	page := domain.Snapshot{Documents: catalog(20)}
	// same document, but the remote copy changed since the page was read
	f.remote[19].Record.IsWatched = boolp(true)

	next, err := NewLookaheadProbe(f, DefaultLookaheadSize, nil).Next(context.Background(), Compose(testColl, domain.FilterSpec{}, domain.Descending, 20), page)
	require.NoError(t, err)
	assert.NotNil(t, next)
}

func TestLookaheadEmptyPageSkipsQuery(t *testing.T) {
	f := newFakeStore()
	f.remote = catalog(5)

	next, err := NewLookaheadProbe(f, DefaultLookaheadSize, nil).Next(context.Background(), Compose(testColl, domain.FilterSpec{}, domain.Descending, 20), domain.Snapshot{})
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Empty(t, f.reads)
}
