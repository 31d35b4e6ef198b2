package domain

// Cursor is the opaque paging key. It holds the lookahead snapshot taken
// past the previous page, which is replayed verbatim as the next page.
type Cursor struct {
	snapshot Snapshot
}

// NewCursor wraps a lookahead snapshot.
func NewCursor(s Snapshot) *Cursor {
	return &Cursor{snapshot: s}
}

// Snapshot returns the wrapped snapshot.
func (c *Cursor) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	return c.snapshot
}

// Page is one forward page of the watchlist.
// PrevKey is always nil; a nil NextKey ends the traversal.
type Page struct {
	Items   []MediaRecord
	PrevKey *Cursor
	NextKey *Cursor
	Source  Source // read mode that produced Items
}

// LoadState is the lifecycle of a single page load
type LoadState int

const (
	LoadIdle LoadState = iota
	LoadLoading
	LoadPageReady
	LoadError
)

func (s LoadState) String() string {
	switch s {
	case LoadLoading:
		return "Loading"
	case LoadPageReady:
		return "PageReady"
	case LoadError:
		return "Error"
	default:
		return "Idle"
	}
}

// StateFunc observes load state transitions. Concurrent loads call it concurrently.
type StateFunc func(LoadState)
