package watchlist

import (
	"context"
	"iter"
	"log/slog"

	"github.com/watchdone/watchdone/internal/domain"
)

// DefaultPageSize is the number of items in a first page.
const DefaultPageSize = 20

// Pager implements forward-only paging over one watchlist view.
// It keeps no state between loads and is safe for concurrent use.
type Pager struct {
	identity domain.Identity
	settings domain.Settings
	filter   domain.FilterSpec
	pageSize int
	onState  domain.StateFunc
	logger   *slog.Logger

	probe     *FreshnessProbe
	loader    *PageLoader
	lookahead *LookaheadProbe
}

type pagerOptions struct {
	pageSize      int
	lookaheadSize int
	probeSize     int
	onState       domain.StateFunc
	logger        *slog.Logger
}

// Option configures a Pager.
type Option func(*pagerOptions)

func WithPageSize(n int) Option      { return func(o *pagerOptions) { o.pageSize = n } }
func WithLookaheadSize(n int) Option { return func(o *pagerOptions) { o.lookaheadSize = n } }
func WithProbeSize(n int) Option     { return func(o *pagerOptions) { o.probeSize = n } }

// WithStateFunc reports load state transitions to fn.
func WithStateFunc(fn domain.StateFunc) Option { return func(o *pagerOptions) { o.onState = fn } }

func WithLogger(l *slog.Logger) Option { return func(o *pagerOptions) { o.logger = l } }

// NewPager creates a pager for one filter choice.
func NewPager(reader domain.DocumentReader, identity domain.Identity, settings domain.Settings, filter domain.FilterSpec, opts ...Option) *Pager {
	o := pagerOptions{
		pageSize:      DefaultPageSize,
		lookaheadSize: DefaultLookaheadSize,
		probeSize:     DefaultProbeSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.pageSize < 1 {
		o.pageSize = DefaultPageSize
	}

	return &Pager{
		identity:  identity,
		settings:  settings,
		filter:    filter,
		pageSize:  o.pageSize,
		onState:   o.onState,
		logger:    o.logger,
		probe:     NewFreshnessProbe(reader, o.probeSize, o.logger),
		loader:    NewPageLoader(reader, o.logger),
		lookahead: NewLookaheadProbe(reader, o.lookaheadSize, o.logger),
	}
}

func (p *Pager) emit(s domain.LoadState) {
	if p.onState != nil {
		p.onState(s)
	}
}

// Load returns the page for key; a nil key loads the first page. Any failure
// yields an empty Page and the error, never a partial page.
func (p *Pager) Load(ctx context.Context, key *domain.Cursor) (domain.Page, error) {
	p.emit(domain.LoadLoading)
	page, err := p.load(ctx, key)
	if err != nil {
		p.logger.Error("failed to load watchlist page", "error", err)
		p.emit(domain.LoadError)
		return domain.Page{}, err
	}
	p.emit(domain.LoadPageReady)
	return page, nil
}

func (p *Pager) load(ctx context.Context, key *domain.Cursor) (domain.Page, error) {
	coll, err := domain.CollectionFor(p.identity, p.settings)
	if err != nil {
		return domain.Page{}, err
	}
	dir := p.settings.SortDirection()
	q := Compose(coll, p.filter, dir, p.pageSize)

	// The freshness probe only runs for first pages; later pages are replayed
	// from the key.
	src := domain.SourceRemote
	if key == nil {
		src, err = p.probe.Select(ctx, Base(coll, dir))
		if err != nil {
			return domain.Page{}, err
		}
	}

	snap, err := p.loader.Load(ctx, q, src, key)
	if err != nil {
		return domain.Page{}, err
	}
	next, err := p.lookahead.Next(ctx, q, snap)
	if err != nil {
		return domain.Page{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Page{}, err
	}

	items := uniqueByID(snap.Records())
	p.logger.Debug("loaded watchlist page", "source", snap.Source, "count", len(items), "more", next != nil)
	return domain.Page{Items: items, NextKey: next, Source: snap.Source}, nil
}

// uniqueByID drops repeated media ids, keeping the first occurrence.
func uniqueByID(records []domain.MediaRecord) []domain.MediaRecord {
	seen := make(map[int]bool, len(records))
	out := records[:0]
	for _, r := range records {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

// Pages walks the watchlist from the first page until NextKey is nil or a
// load fails. The failing load is yielded with its error.
func (p *Pager) Pages(ctx context.Context) iter.Seq2[domain.Page, error] {
	return func(yield func(domain.Page, error) bool) {
		var key *domain.Cursor
		for {
			page, err := p.Load(ctx, key)
			if !yield(page, err) || err != nil || page.NextKey == nil {
				return
			}
			key = page.NextKey
		}
	}
}

// RefreshKey is the key to reload from after invalidation: always the first page.
func (p *Pager) RefreshKey() *domain.Cursor {
	return nil
}
