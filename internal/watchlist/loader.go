package watchlist

import (
	"context"
	"log/slog"

	"github.com/watchdone/watchdone/internal/domain"
)

// PageLoader fetches the items of one page.
type PageLoader struct {
	reader domain.DocumentReader
	logger *slog.Logger
}

func NewPageLoader(reader domain.DocumentReader, logger *slog.Logger) *PageLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageLoader{reader: reader, logger: logger}
}

// Load returns the page snapshot. A non-nil key is the lookahead taken past
// the previous page and is returned as is. Otherwise q runs against src; an
// empty cache result is retried against the remote exactly once.
func (l *PageLoader) Load(ctx context.Context, q domain.QueryDescriptor, src domain.Source, key *domain.Cursor) (domain.Snapshot, error) {
	if key != nil {
		return key.Snapshot(), nil
	}

	snap, err := l.reader.Get(ctx, q, src)
	if err != nil {
		return domain.Snapshot{}, &domain.FetchError{Op: "page", Source: src, Err: err}
	}
	if src == domain.SourceRemote || !snap.Empty() {
		return snap, nil
	}

	l.logger.Debug("cache miss, falling back to remote")
	snap, err = l.reader.Get(ctx, q, domain.SourceRemote)
	if err != nil {
		return domain.Snapshot{}, &domain.FetchError{Op: "fallback", Source: domain.SourceRemote, Err: err}
	}
	return snap, nil
}
