// Package watchlist pages through a user's watchlist, choosing per load
// between the local cache and the authoritative remote store.
package watchlist

import "github.com/watchdone/watchdone/internal/domain"

// Base is the unfiltered, release-date ordered query over a collection.
func Base(coll domain.Collection, dir domain.Direction) domain.QueryDescriptor {
	return domain.QueryDescriptor{Collection: coll}.OrderBy(domain.FieldReleaseDate, dir)
}

// Compose builds the page query for a filter choice. It is pure: equal
// inputs always give equal descriptors. Orders come first, then the media
// type predicate, then the watch state predicate.
func Compose(coll domain.Collection, spec domain.FilterSpec, dir domain.Direction, pageSize int) domain.QueryDescriptor {
	q := domain.QueryDescriptor{Collection: coll}

	// In-progress titles surface first; the count is also the inequality
	// field, so it has to lead the ordering.
	if spec.WatchState == domain.WatchStateStarted {
		q = q.OrderBy(domain.FieldWatchedCount, domain.Descending)
	}
	q = q.OrderBy(domain.FieldReleaseDate, dir)

	if spec.MediaType != "" {
		q = q.Where(domain.Filter{Field: domain.FieldMediaType, Op: domain.OpEqual, Value: string(spec.MediaType)})
	}

	switch spec.WatchState {
	case domain.WatchStateWatched:
		q = q.Where(domain.Filter{Field: domain.FieldIsWatched, Op: domain.OpEqual, Value: true})
	case domain.WatchStatePending:
		q = q.Where(domain.Filter{Field: domain.FieldIsWatched, Op: domain.OpIn, Values: []any{false, nil}})
	case domain.WatchStateStarted:
		q = q.Where(domain.Filter{Field: domain.FieldWatchedCount, Op: domain.OpGreaterThan, Value: 0})
	}

	return q.WithLimit(pageSize)
}
