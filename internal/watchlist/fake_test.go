package watchlist

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/watchdone/watchdone/internal/docquery"
	"github.com/watchdone/watchdone/internal/domain"
)

// read is one recorded Get call.
type read struct {
	src domain.Source
	q   domain.QueryDescriptor
}

// fakeStore is a dual-source document store with separate cache and remote
// contents. It records every read.
type fakeStore struct {
	mu     sync.Mutex
	cache  []domain.Document
	remote []domain.Document
	errs   map[domain.Source]error
	reads  []read
	total  int64
	seq    int

	// overlapBoundary makes remote reads include the start-after document
	overlapBoundary bool

	// countErr fails counter updates
	countErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{errs: map[domain.Source]error{}}
}

func (f *fakeStore) Get(ctx context.Context, q domain.QueryDescriptor, src domain.Source) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, read{src: src, q: q})
	if err := f.errs[src]; err != nil {
		return domain.Snapshot{}, err
	}

	docs := f.cache
	if src == domain.SourceRemote {
		docs = f.remote
		if f.overlapBoundary && q.StartAfter != nil {
			boundary := *q.StartAfter
			q.StartAfter = nil
			all, err := docquery.Apply(docs, q.WithLimit(0))
			if err != nil {
				return domain.Snapshot{}, err
			}
			i := slices.IndexFunc(all, func(d domain.Document) bool { return d.ID == boundary.ID })
			out := all[max(i, 0):]
			if q.Limit > 0 && len(out) > q.Limit {
				out = out[:q.Limit]
			}
			return domain.Snapshot{Documents: out, Source: src}, nil
		}
	}
	out, err := docquery.Apply(docs, q)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{Documents: out, Source: src}, nil
}

func (f *fakeStore) readCount(src domain.Source) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.reads {
		if r.src == src {
			n++
		}
	}
	return n
}

func (f *fakeStore) findRemote(docID string) int {
	return slices.IndexFunc(f.remote, func(d domain.Document) bool { return d.ID == docID })
}

func (f *fakeStore) Add(_ context.Context, _ domain.Collection, rec domain.MediaRecord) (domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[domain.SourceRemote]; err != nil {
		return domain.Document{}, err
	}
	f.seq++
	d := domain.Document{ID: fmt.Sprintf("new%d", f.seq), Record: rec}
	f.remote = append(f.remote, d)
	return d, nil
}

func (f *fakeStore) SetWatched(_ context.Context, _ domain.Collection, docID string, watched bool) (domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.findRemote(docID)
	if i < 0 {
		return domain.Document{}, domain.ErrItemNotFound
	}
	f.remote[i].Record.IsWatched = &watched
	return f.remote[i], nil
}

func (f *fakeStore) UpdateEpisodes(_ context.Context, _ domain.Collection, docID, episodeID string, watched bool) (domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.findRemote(docID)
	if i < 0 {
		return domain.Document{}, domain.ErrItemNotFound
	}
	eps := slices.DeleteFunc(slices.Clone(f.remote[i].Record.WatchedEpisodes), func(e string) bool { return e == episodeID })
	if watched {
		eps = append(eps, episodeID)
	}
	f.remote[i].Record.WatchedEpisodes = eps
	return f.remote[i], nil
}

func (f *fakeStore) Delete(_ context.Context, _ domain.Collection, docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.findRemote(docID)
	if i < 0 {
		return domain.ErrItemNotFound
	}
	f.remote = slices.Delete(f.remote, i, i+1)
	return nil
}

func (f *fakeStore) IncrementTotalItems(_ context.Context, _ domain.Collection, by int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return f.countErr
	}
	f.total += by
	return nil
}

func (f *fakeStore) TotalItems(context.Context, domain.Collection) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total, nil
}

// cacheRunner exposes the fake's cache as a QueryRunner.
type cacheRunner struct{ f *fakeStore }

func (c cacheRunner) Run(ctx context.Context, q domain.QueryDescriptor) ([]domain.Document, error) {
	snap, err := c.f.Get(ctx, q, domain.SourceCache)
	return snap.Documents, err
}

type user string

func (u user) UserID() (string, error) { return string(u), nil }

type prefs struct {
	dir  domain.Direction
	prod bool
}

func (p prefs) SortDirection() domain.Direction { return p.dir }
func (p prefs) UseProdDataset() bool            { return p.prod }

var testColl = domain.Collection{UserID: "u1", Dataset: domain.DatasetStaging}

func boolp(b bool) *bool { return &b }

// catalog builds n documents with media ids 1..n; id 1 has the newest
// release date.
func catalog(n int) []domain.Document {
	docs := make([]domain.Document, n)
	for i := range docs {
		id := i + 1
		docs[i] = domain.Document{
			ID: fmt.Sprintf("doc%03d", id),
			Record: domain.MediaRecord{
				ID:          id,
				MediaType:   domain.MediaTypeMovie,
				Title:       fmt.Sprintf("Title %d", id),
				ReleaseDate: fmt.Sprintf("%04d-01-01", 2100-id),
			},
		}
	}
	return docs
}

func mediaIDs(records []domain.MediaRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func idRange(from, to int) []int {
	var out []int
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
