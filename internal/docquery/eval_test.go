package docquery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchdone/watchdone/internal/domain"
)

func boolp(b bool) *bool { return &b }

var coll = domain.Collection{UserID: "u1", Dataset: domain.DatasetStaging}

func fixture() []domain.Document {
	return []domain.Document{
		{ID: "a", Record: domain.MediaRecord{ID: 1, MediaType: domain.MediaTypeMovie, ReleaseDate: "2001-01-01", IsWatched: boolp(true)}},
		{ID: "b", Record: domain.MediaRecord{ID: 2, MediaType: domain.MediaTypeShow, ReleaseDate: "2003-01-01", WatchedEpisodes: []string{"e1", "e2"}}},
		{ID: "c", Record: domain.MediaRecord{ID: 3, MediaType: domain.MediaTypeShow, ReleaseDate: "2002-01-01", IsWatched: boolp(false), WatchedEpisodes: []string{"e1"}}},
		{ID: "d", Record: domain.MediaRecord{ID: 4, MediaType: domain.MediaTypeMovie, ReleaseDate: "2002-01-01"}},
	}
}

func ids(docs []domain.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestApplyOrdersWithTiebreak(t *testing.T) {
	q := domain.QueryDescriptor{Collection: coll}.OrderBy(domain.FieldReleaseDate, domain.Descending)
	got, err := Apply(fixture(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids(got))

	q = domain.QueryDescriptor{Collection: coll}.OrderBy(domain.FieldReleaseDate, domain.Ascending)
	got, err = Apply(fixture(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d", "b"}, ids(got))
}

func TestApplyFilters(t *testing.T) {
	base := domain.QueryDescriptor{Collection: coll}.OrderBy(domain.FieldReleaseDate, domain.Ascending)

	tests := []struct {
		name   string
		filter domain.Filter
		want   []string
	}{
		{"equal", domain.Filter{Field: domain.FieldMediaType, Op: domain.OpEqual, Value: "MOVIE"}, []string{"a", "d"}},
		{"in with null", domain.Filter{Field: domain.FieldIsWatched, Op: domain.OpIn, Values: []any{false, nil}}, []string{"c", "d", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(fixture(), base.Where(tt.filter))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApplyNotEqualSkipsUnset(t *testing.T) {
	q := domain.QueryDescriptor{Collection: coll}.
		OrderBy(domain.FieldIsWatched, domain.Ascending).
		Where(domain.Filter{Field: domain.FieldIsWatched, Op: domain.OpNotEqual, Value: true})

	got, err := Apply(fixture(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(got))
}

func TestApplyRejectsMisalignedInequality(t *testing.T) {
	q := domain.QueryDescriptor{Collection: coll}.
		OrderBy(domain.FieldReleaseDate, domain.Ascending).
		Where(domain.Filter{Field: domain.FieldIsWatched, Op: domain.OpNotEqual, Value: true})

	_, err := Apply(fixture(), q)
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestApplyGreaterThanOrdersFirst(t *testing.T) {
	q := domain.QueryDescriptor{Collection: coll}.
		OrderBy(domain.FieldWatchedCount, domain.Descending).
		OrderBy(domain.FieldReleaseDate, domain.Descending).
		Where(domain.Filter{Field: domain.FieldWatchedCount, Op: domain.OpGreaterThan, Value: 0})

	got, err := Apply(fixture(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(got))
}

func TestApplyStartAfterAndLimit(t *testing.T) {
	docs := fixture()
	q := domain.QueryDescriptor{Collection: coll}.OrderBy(domain.FieldReleaseDate, domain.Descending)

	got, err := Apply(docs, q.StartingAfter(docs[3]).WithLimit(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(got))

	// the cursor document need not be present
	gone := domain.Document{ID: "zz", Record: domain.MediaRecord{ReleaseDate: "2002-06-01"}}
	got, err = Apply(docs, q.StartingAfter(gone))
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "a"}, ids(got))

	got, err = Apply(docs, q.StartingAfter(docs[0]))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestApplyRejectsInvalidQuery(t *testing.T) {
	_, err := Apply(fixture(), domain.QueryDescriptor{Collection: coll}.OrderBy("rating", domain.Ascending))
	assert.ErrorIs(t, err, domain.ErrUnknownField)

	_, err = Apply(fixture(), domain.QueryDescriptor{}.OrderBy(domain.FieldReleaseDate, domain.Ascending))
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestCompareRanksKinds(t *testing.T) {
	now := time.Now()
	ordered := []any{nil, false, true, 1, 2.5, "a", "b", now, now.Add(time.Second), []string{"x"}}
	for i := 1; i < len(ordered); i++ {
		assert.Negative(t, Compare(ordered[i-1], ordered[i]), "%v < %v", ordered[i-1], ordered[i])
	}
	assert.True(t, Equal(int64(3), 3.0))
	assert.False(t, Equal(nil, false))
}
