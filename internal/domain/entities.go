package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// MediaType distinguishes content types. Values are the strings persisted in
// watchlist documents.
type MediaType string

const (
	MediaTypeMovie MediaType = "MOVIE"
	MediaTypeShow  MediaType = "TV_SERIES"
)

// ParseMediaType accepts the persisted value or a short alias ("movie", "show", "tv").
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "movie":
		return MediaTypeMovie, nil
	case "show", "tv", "tv_series", "series":
		return MediaTypeShow, nil
	default:
		return "", fmt.Errorf("unknown media type %q", s)
	}
}

// String returns a human-readable representation of the media type
func (m MediaType) String() string {
	switch m {
	case MediaTypeMovie:
		return "Movie"
	case MediaTypeShow:
		return "Show"
	case "":
		return "Any"
	default:
		return string(m)
	}
}

// MediaRecord is one watchlist entry as stored in the remote document store
// and mirrored into the local cache.
type MediaRecord struct {
	ID              int       `json:"id"`                  // Catalog-service numeric id
	MediaType       MediaType `json:"mediaType"`           // Movie or show
	Title           string    `json:"title,omitempty"`     // Display title
	ReleaseDate     string    `json:"releaseDate"`         // ISO date, sorts lexically
	IsWatched       *bool     `json:"isWatched,omitempty"` // nil when never set
	WatchedEpisodes []string  `json:"watched,omitempty"`   // Episode ids in watch order
	PosterPath      string    `json:"posterPath,omitempty"`
	Rating          *float64  `json:"rating,omitempty"`
	AddedAt         time.Time `json:"timestamp"` // Server timestamp of insertion
}

// IsZero reports whether the record carries no catalog identity.
func (m MediaRecord) IsZero() bool {
	return m.ID == 0 && m.MediaType == ""
}

// Watched returns the isWatched flag, treating unset as false.
func (m MediaRecord) Watched() bool {
	return m.IsWatched != nil && *m.IsWatched
}

// WatchedCount is the number of watched episodes.
func (m MediaRecord) WatchedCount() int {
	return len(m.WatchedEpisodes)
}

// WatchState derives the state used for filtering.
func (m MediaRecord) WatchState() WatchState {
	switch {
	case m.Watched():
		return WatchStateWatched
	case m.WatchedCount() > 0:
		return WatchStateStarted
	default:
		return WatchStatePending
	}
}

// Equal compares every field. Nil and empty episode lists are equal.
func (m MediaRecord) Equal(o MediaRecord) bool {
	return m.ID == o.ID &&
		m.MediaType == o.MediaType &&
		m.Title == o.Title &&
		m.ReleaseDate == o.ReleaseDate &&
		equalPtr(m.IsWatched, o.IsWatched) &&
		slices.Equal(m.WatchedEpisodes, o.WatchedEpisodes) &&
		m.PosterPath == o.PosterPath &&
		equalPtr(m.Rating, o.Rating) &&
		m.AddedAt.Equal(o.AddedAt)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Year returns the release year or 0 when the date is missing.
func (m MediaRecord) Year() int {
	if len(m.ReleaseDate) < 4 {
		return 0
	}
	var y int
	if _, err := fmt.Sscanf(m.ReleaseDate[:4], "%d", &y); err != nil {
		return 0
	}
	return y
}

// WatchState is the user's watch-status filter choice
type WatchState int

const (
	WatchStateAny WatchState = iota
	WatchStateWatched
	WatchStatePending
	WatchStateStarted
)

// ParseWatchState parses "watched", "pending" or "started"; empty means any.
func ParseWatchState(s string) (WatchState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return WatchStateAny, nil
	case "watched":
		return WatchStateWatched, nil
	case "pending":
		return WatchStatePending, nil
	case "started":
		return WatchStateStarted, nil
	default:
		return WatchStateAny, fmt.Errorf("unknown watch state %q", s)
	}
}

// String returns a human-readable representation of the watch state
func (w WatchState) String() string {
	switch w {
	case WatchStateWatched:
		return "Watched"
	case WatchStatePending:
		return "Pending"
	case WatchStateStarted:
		return "Started"
	default:
		return "Any"
	}
}

// FilterSpec is the current filter choice. Zero fields mean "no filter".
// It is a value type; build a new one per query instead of mutating.
type FilterSpec struct {
	MediaType  MediaType
	WatchState WatchState
}

// Dataset names the remote root collection the watchlist lives under.
type Dataset string

const (
	DatasetProd    Dataset = "watchdone"
	DatasetStaging Dataset = "watchdone-debug"
)

// DatasetFor maps the use-prod setting to a dataset.
func DatasetFor(useProd bool) Dataset {
	if useProd {
		return DatasetProd
	}
	return DatasetStaging
}

// Collection addresses one user's watchlist items.
type Collection struct {
	UserID  string  `json:"userId"`
	Dataset Dataset `json:"dataset"`
}

// Path returns users/{uid}/{dataset}/watchlist/items.
func (c Collection) Path() string {
	return "users/" + c.UserID + "/" + string(c.Dataset) + "/watchlist/items"
}
