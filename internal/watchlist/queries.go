package watchlist

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/watchdone/watchdone/internal/domain"
)

// Queries answers reads from the local cache only. They never touch the remote.
type Queries struct {
	cache    domain.QueryRunner
	identity domain.Identity
	settings domain.Settings
	logger   *slog.Logger
}

func NewQueries(cache domain.QueryRunner, identity domain.Identity, settings domain.Settings, logger *slog.Logger) *Queries {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queries{cache: cache, identity: identity, settings: settings, logger: logger}
}

// Cached returns every cached record in release-date order.
func (q *Queries) Cached(ctx context.Context) ([]domain.MediaRecord, error) {
	coll, err := domain.CollectionFor(q.identity, q.settings)
	if err != nil {
		return nil, err
	}
	docs, err := q.cache.Run(ctx, Base(coll, q.settings.SortDirection()))
	if err != nil {
		return nil, err
	}
	return domain.Snapshot{Documents: docs}.Records(), nil
}

// SearchResult is a cached record matching a title search.
type SearchResult struct {
	Record   domain.MediaRecord
	Distance int // Levenshtein distance, lower is better
}

// Search fuzzy-matches query against cached titles, best match first.
func (q *Queries) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	records, err := q.Cached(ctx)
	if err != nil {
		return nil, err
	}

	titles := make([]string, len(records))
	for i, r := range records {
		titles[i] = r.Title
	}

	ranks := fuzzy.RankFindFold(query, titles)
	sort.Stable(ranks)

	results := make([]SearchResult, len(ranks))
	for i, rank := range ranks {
		results[i] = SearchResult{Record: records[rank.OriginalIndex], Distance: rank.Distance}
	}
	q.logger.Debug("searched cache", "query", query, "results", len(results))
	return results, nil
}
