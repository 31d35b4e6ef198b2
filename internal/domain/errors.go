package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrFetchFailure indicates a cache or remote read failed during a page load
	ErrFetchFailure = errors.New("watchlist fetch failed")

	// ErrItemNotFound indicates the requested media item is not in the watchlist
	ErrItemNotFound = errors.New("media not found")

	// ErrNotSignedIn indicates no current user id is available
	ErrNotSignedIn = errors.New("no signed-in user")

	// ErrInvalidQuery indicates a descriptor the store cannot execute
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnknownField indicates a filter or order on a field the store does not index
	ErrUnknownField = errors.New("unknown field")

	// ErrEmptyMedia indicates an attempt to store a record without identity
	ErrEmptyMedia = errors.New("media should not be empty")

	// ErrAlreadyInWatchlist indicates the media id is already tracked
	ErrAlreadyInWatchlist = errors.New("media already in watchlist")

	// ErrEpisodeIDRequired indicates an episode status change without an episode id
	ErrEpisodeIDRequired = errors.New("episode id cannot be empty")
)

// FetchError records which stage and source of a page load failed.
// It matches ErrFetchFailure with errors.Is and unwraps to the cause.
type FetchError struct {
	Op     string // probe, page, fallback, lookahead
	Source Source
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s read from %s: %v", e.Op, e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailure }
