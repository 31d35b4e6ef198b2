package watchlist

import (
	"context"
	"log/slog"

	"github.com/watchdone/watchdone/internal/domain"
)

// DefaultProbeSize is the cache sample read by the freshness probe.
const DefaultProbeSize = 3

// minWarmSample is the number of cached items a warm cache must return.
// Fewer always forces the remote, whatever the sample size.
const minWarmSample = 3

// FreshnessProbe decides whether the cache can serve a first page.
type FreshnessProbe struct {
	reader     domain.DocumentReader
	sampleSize int
	logger     *slog.Logger
}

// NewFreshnessProbe creates a probe sampling sampleSize cached items. Sizes
// below minWarmSample are raised to it.
func NewFreshnessProbe(reader domain.DocumentReader, sampleSize int, logger *slog.Logger) *FreshnessProbe {
	if logger == nil {
		logger = slog.Default()
	}
	if sampleSize < minWarmSample {
		sampleSize = minWarmSample
	}
	return &FreshnessProbe{reader: reader, sampleSize: sampleSize, logger: logger}
}

// Select reads a cache sample with the base query. A sample shorter than
// minWarmSample means the cache is not warm and the remote is forced without
// further reads. Otherwise the newest remote item is read and compared field
// by field with the first cached item.
func (p *FreshnessProbe) Select(ctx context.Context, base domain.QueryDescriptor) (domain.Source, error) {
	cached, err := p.reader.Get(ctx, base.WithLimit(p.sampleSize), domain.SourceCache)
	if err != nil {
		return domain.SourceRemote, &domain.FetchError{Op: "probe", Source: domain.SourceCache, Err: err}
	}
	if cached.Len() < minWarmSample {
		p.logger.Debug("cache cold", "count", cached.Len())
		return domain.SourceRemote, nil
	}

	latest, err := p.reader.Get(ctx, base.WithLimit(1), domain.SourceRemote)
	if err != nil {
		return domain.SourceRemote, &domain.FetchError{Op: "probe", Source: domain.SourceRemote, Err: err}
	}

	first, _ := cached.First()
	remote, ok := latest.First()
	if !ok || !first.Record.Equal(remote.Record) {
		p.logger.Debug("cache stale", "cachedID", first.Record.ID, "remoteEmpty", !ok)
		return domain.SourceRemote, nil
	}
	p.logger.Debug("cache fresh", "mediaID", first.Record.ID)
	return domain.SourceCache, nil
}
