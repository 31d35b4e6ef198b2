package store

import (
	"context"
	"log/slog"

	"github.com/watchdone/watchdone/internal/docquery"
	"github.com/watchdone/watchdone/internal/domain"
)

// Remote is the authoritative store behind the cache.
type Remote interface {
	domain.QueryRunner
	domain.DocumentWriter
}

// Mirrored is the dual-mode document store: cache reads are served by the
// local Cache, remote reads and all writes go to the Remote and the documents
// they return are mirrored into the Cache.
// A remote read also drops cached documents in the range it covered that the
// remote no longer has, so deletions made elsewhere leave the cache.
// Mirroring failures are logged and never fail the operation.
type Mirrored struct {
	cache  *Cache
	remote Remote
	logger *slog.Logger
}

// NewMirrored wires a cache in front of a remote.
func NewMirrored(cache *Cache, remote Remote, logger *slog.Logger) *Mirrored {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirrored{cache: cache, remote: remote, logger: logger}
}

// Get implements domain.DocumentReader.
func (m *Mirrored) Get(ctx context.Context, q domain.QueryDescriptor, src domain.Source) (domain.Snapshot, error) {
	if src == domain.SourceCache {
		docs, err := m.cache.Run(ctx, q)
		if err != nil {
			return domain.Snapshot{}, err
		}
		return domain.Snapshot{Documents: docs, Source: domain.SourceCache}, nil
	}

	docs, err := m.remote.Run(ctx, q)
	if err != nil {
		return domain.Snapshot{}, err
	}
	m.prune(ctx, q, docs)
	m.mirror(ctx, q.Collection, docs...)
	return domain.Snapshot{Documents: docs, Source: domain.SourceRemote}, nil
}

// prune deletes cached matches of q that sort at or before the last remote
// result but were not returned. A short remote result covers the whole range.
func (m *Mirrored) prune(ctx context.Context, q domain.QueryDescriptor, docs []domain.Document) {
	cached, err := m.cache.Run(ctx, q.WithLimit(0))
	if err != nil {
		m.logger.Warn("Failed to read cache for pruning", "collection", q.Collection.Path(), "error", err)
		return
	}

	returned := make(map[string]bool, len(docs))
	for _, d := range docs {
		returned[d.ID] = true
	}
	complete := q.Limit <= 0 || len(docs) < q.Limit

	for _, c := range cached {
		if !complete && docquery.CompareDocuments(c, docs[len(docs)-1], q) > 0 {
			break
		}
		if returned[c.ID] {
			continue
		}
		if err := m.cache.Delete(ctx, q.Collection, c.ID); err != nil {
			m.logger.Warn("Failed to prune cached document", "collection", q.Collection.Path(), "doc", c.ID, "error", err)
			return
		}
		m.logger.Debug("pruned cached document", "doc", c.ID)
	}
}

func (m *Mirrored) mirror(ctx context.Context, coll domain.Collection, docs ...domain.Document) {
	if len(docs) == 0 {
		return
	}
	if err := m.cache.Put(ctx, coll, docs...); err != nil {
		m.logger.Warn("Failed to mirror documents", "collection", coll.Path(), "count", len(docs), "error", err)
	}
}

func (m *Mirrored) Add(ctx context.Context, coll domain.Collection, rec domain.MediaRecord) (domain.Document, error) {
	d, err := m.remote.Add(ctx, coll, rec)
	if err != nil {
		return domain.Document{}, err
	}
	m.mirror(ctx, coll, d)
	return d, nil
}

func (m *Mirrored) SetWatched(ctx context.Context, coll domain.Collection, docID string, watched bool) (domain.Document, error) {
	d, err := m.remote.SetWatched(ctx, coll, docID, watched)
	if err != nil {
		return domain.Document{}, err
	}
	m.mirror(ctx, coll, d)
	return d, nil
}

func (m *Mirrored) UpdateEpisodes(ctx context.Context, coll domain.Collection, docID, episodeID string, watched bool) (domain.Document, error) {
	d, err := m.remote.UpdateEpisodes(ctx, coll, docID, episodeID, watched)
	if err != nil {
		return domain.Document{}, err
	}
	m.mirror(ctx, coll, d)
	return d, nil
}

func (m *Mirrored) Delete(ctx context.Context, coll domain.Collection, docID string) error {
	if err := m.remote.Delete(ctx, coll, docID); err != nil {
		return err
	}
	if err := m.cache.Delete(ctx, coll, docID); err != nil {
		m.logger.Warn("Failed to drop mirrored document", "collection", coll.Path(), "doc", docID, "error", err)
	}
	return nil
}

func (m *Mirrored) IncrementTotalItems(ctx context.Context, coll domain.Collection, by int64) error {
	return m.remote.IncrementTotalItems(ctx, coll, by)
}

func (m *Mirrored) TotalItems(ctx context.Context, coll domain.Collection) (int64, error) {
	return m.remote.TotalItems(ctx, coll)
}

// Cache returns the local mirror for cache-only queries and maintenance.
func (m *Mirrored) Cache() *Cache {
	return m.cache
}
