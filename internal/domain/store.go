package domain

import "context"

// Source selects the read mode of a dual-mode document store.
type Source int

const (
	// SourceCache reads only the local mirror (PREFER_CACHE)
	SourceCache Source = iota
	// SourceRemote reads the authoritative remote store (FORCE_REMOTE)
	SourceRemote
)

func (s Source) String() string {
	if s == SourceRemote {
		return "remote"
	}
	return "cache"
}

// Document is one stored watchlist item: a stable document id plus the decoded record.
type Document struct {
	ID     string      `json:"docId"`
	Record MediaRecord `json:"record"`
}

// SameAs reports whether two documents are the same document with identical contents.
func (d Document) SameAs(o Document) bool {
	return d.ID == o.ID && d.Record.Equal(o.Record)
}

// Snapshot is the materialized result of a query.
type Snapshot struct {
	Documents []Document
	Source    Source
}

func (s Snapshot) Empty() bool { return len(s.Documents) == 0 }
func (s Snapshot) Len() int    { return len(s.Documents) }

// First returns the first document, if any.
func (s Snapshot) First() (Document, bool) {
	if s.Empty() {
		return Document{}, false
	}
	return s.Documents[0], true
}

// Last returns the last document, if any.
func (s Snapshot) Last() (Document, bool) {
	if s.Empty() {
		return Document{}, false
	}
	return s.Documents[len(s.Documents)-1], true
}

// Records returns the decoded records in snapshot order.
func (s Snapshot) Records() []MediaRecord {
	out := make([]MediaRecord, len(s.Documents))
	for i, d := range s.Documents {
		out[i] = d.Record
	}
	return out
}

// QueryRunner executes a descriptor against a single backend.
type QueryRunner interface {
	Run(ctx context.Context, q QueryDescriptor) ([]Document, error)
}

// DocumentReader is the dual-mode read contract: cache-preferring or remote-forcing.
type DocumentReader interface {
	Get(ctx context.Context, q QueryDescriptor, src Source) (Snapshot, error)
}

// DocumentWriter covers the watchlist mutations. Every method targets the
// authoritative store and returns the document as it was persisted.
type DocumentWriter interface {
	Add(ctx context.Context, coll Collection, rec MediaRecord) (Document, error)
	SetWatched(ctx context.Context, coll Collection, docID string, watched bool) (Document, error)
	// UpdateEpisodes adds (set-union) or removes an episode id.
	UpdateEpisodes(ctx context.Context, coll Collection, docID, episodeID string, watched bool) (Document, error)
	Delete(ctx context.Context, coll Collection, docID string) error
	IncrementTotalItems(ctx context.Context, coll Collection, by int64) error
	TotalItems(ctx context.Context, coll Collection) (int64, error)
}

// DocumentStore combines reads and writes.
type DocumentStore interface {
	DocumentReader
	DocumentWriter
}

// Settings exposes the user preferences the pager depends on.
type Settings interface {
	SortDirection() Direction
	// UseProdDataset selects the production dataset over staging.
	UseProdDataset() bool
}

// Identity resolves the current user.
type Identity interface {
	UserID() (string, error)
}

// CollectionFor resolves the watchlist collection of the current user.
func CollectionFor(id Identity, settings Settings) (Collection, error) {
	uid, err := id.UserID()
	if err != nil {
		return Collection{}, err
	}
	if uid == "" {
		return Collection{}, ErrNotSignedIn
	}
	return Collection{UserID: uid, Dataset: DatasetFor(settings.UseProdDataset())}, nil
}
