package watchlist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchdone/watchdone/internal/domain"
)

func TestFreshnessColdCacheForcesRemote(t *testing.T) {
	for n := 0; n <= 2; n++ {
		f := newFakeStore()
		f.cache = catalog(n)
		f.remote = catalog(n) // identical contents make no difference

		src, err := NewFreshnessProbe(f, DefaultProbeSize, nil).Select(context.Background(), Base(testColl, domain.Descending))
		require.NoError(t, err)
		assert.Equal(t, domain.SourceRemote, src, "cache size %d", n)
		assert.Zero(t, f.readCount(domain.SourceRemote), "cache size %d", n)
	}
}

func TestFreshnessSmallSampleSizeKeepsColdThreshold(t *testing.T) {
	for _, size := range []int{1, 2} {
		for n := 0; n <= 2; n++ {
			f := newFakeStore()
			f.cache = catalog(n)
			f.remote = catalog(n)

			src, err := NewFreshnessProbe(f, size, nil).Select(context.Background(), Base(testColl, domain.Descending))
			require.NoError(t, err)
			assert.Equal(t, domain.SourceRemote, src, "sample size %d, cache size %d", size, n)
			assert.Zero(t, f.readCount(domain.SourceRemote), "sample size %d, cache size %d", size, n)
			require.NotEmpty(t, f.reads)
			assert.Equal(t, 3, f.reads[0].q.Limit)
		}
	}
}

func TestFreshnessLargeSampleChecksWarmCache(t *testing.T) {
	f := newFakeStore()
	f.cache = catalog(3)
	f.remote = catalog(3)

	src, err := NewFreshnessProbe(f, 5, nil).Select(context.Background(), Base(testColl, domain.Descending))
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCache, src)

	require.Len(t, f.reads, 2)
	assert.Equal(t, 5, f.reads[0].q.Limit)
	assert.Equal(t, domain.SourceRemote, f.reads[1].src)
	assert.Equal(t, 1, f.reads[1].q.Limit)
}

func TestFreshnessComparesFullRecords(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*domain.MediaRecord)
		want   domain.Source
	}{
		{"equal", func(*domain.MediaRecord) {}, domain.SourceCache},
		{"watched flag changed", func(r *domain.MediaRecord) { r.IsWatched = boolp(true) }, domain.SourceRemote},
		{"episode added", func(r *domain.MediaRecord) { r.WatchedEpisodes = []string{"e1"} }, domain.SourceRemote},
		{"rating changed", func(r *domain.MediaRecord) { v := 7.5; r.Rating = &v }, domain.SourceRemote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeStore()
			f.cache = catalog(5)
			f.remote = catalog(5)
			tt.modify(&f.remote[0].Record)

			src, err := NewFreshnessProbe(f, DefaultProbeSize, nil).Select(context.Background(), Base(testColl, domain.Descending))
			require.NoError(t, err)
			assert.Equal(t, tt.want, src)

			require.Len(t, f.reads, 2)
			assert.Equal(t, 3, f.reads[0].q.Limit)
			assert.Equal(t, domain.SourceRemote, f.reads[1].src)
			assert.Equal(t, 1, f.reads[1].q.Limit)
		})
	}
}

func TestFreshnessNewRemoteItemForcesRemote(t *testing.T) {
	f := newFakeStore()
	f.cache = catalog(5)[1:]
	f.remote = catalog(5)

	src, err := NewFreshnessProbe(f, DefaultProbeSize, nil).Select(context.Background(), Base(testColl, domain.Descending))
	require.NoError(t, err)
	assert.Equal(t, domain.SourceRemote, src)
}

func TestFreshnessEmptyRemoteForcesRemote(t *testing.T) {
	f := newFakeStore()
	f.cache = catalog(4)

	src, err := NewFreshnessProbe(f, DefaultProbeSize, nil).Select(context.Background(), Base(testColl, domain.Descending))
	require.NoError(t, err)
	assert.Equal(t, domain.SourceRemote, src)
}

func TestFreshnessWrapsReadErrors(t *testing.T) {
	boom := errors.New("unavailable")
	f := newFakeStore()
	f.cache = catalog(5)
	f.errs[domain.SourceRemote] = boom

	_, err := NewFreshnessProbe(f, DefaultProbeSize, nil).Select(context.Background(), Base(testColl, domain.Descending))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchFailure)
	assert.ErrorIs(t, err, boom)

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "probe", fe.Op)
	assert.Equal(t, domain.SourceRemote, fe.Source)
}
