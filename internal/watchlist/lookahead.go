package watchlist

import (
	"context"
	"log/slog"

	"github.com/watchdone/watchdone/internal/domain"
)

// DefaultLookaheadSize is the number of items read past a page boundary.
const DefaultLookaheadSize = 15

// LookaheadProbe decides whether more pages exist and produces the next key.
type LookaheadProbe struct {
	reader domain.DocumentReader
	size   int
	logger *slog.Logger
}

func NewLookaheadProbe(reader domain.DocumentReader, size int, logger *slog.Logger) *LookaheadProbe {
	if logger == nil {
		logger = slog.Default()
	}
	if size < 1 {
		size = DefaultLookaheadSize
	}
	return &LookaheadProbe{reader: reader, size: size, logger: logger}
}

// Next reads up to size remote items strictly after the last document of
// page. It returns nil when nothing follows, or when the store hands back the
// boundary document itself as the first item.
func (p *LookaheadProbe) Next(ctx context.Context, q domain.QueryDescriptor, page domain.Snapshot) (*domain.Cursor, error) {
	last, ok := page.Last()
	if !ok {
		return nil, nil
	}

	ahead, err := p.reader.Get(ctx, q.WithLimit(p.size).StartingAfter(last), domain.SourceRemote)
	if err != nil {
		return nil, &domain.FetchError{Op: "lookahead", Source: domain.SourceRemote, Err: err}
	}

	first, ok := ahead.First()
	if !ok {
		return nil, nil
	}
	if first.SameAs(last) {
		p.logger.Debug("lookahead returned page boundary", "doc", last.ID)
		return nil, nil
	}
	return domain.NewCursor(ahead), nil
}
