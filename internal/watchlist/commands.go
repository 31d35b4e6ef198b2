package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/watchdone/watchdone/internal/domain"
)

// Commands mutates the current user's watchlist.
type Commands struct {
	store    domain.DocumentStore
	identity domain.Identity
	settings domain.Settings
	logger   *slog.Logger
}

// NewCommands creates a new Commands instance.
func NewCommands(store domain.DocumentStore, identity domain.Identity, settings domain.Settings, logger *slog.Logger) *Commands {
	if logger == nil {
		logger = slog.Default()
	}
	return &Commands{store: store, identity: identity, settings: settings, logger: logger}
}

// lookup finds the document holding mediaID. The cache is read first; the
// remote is consulted once when the cache has no match.
func (c *Commands) lookup(ctx context.Context, coll domain.Collection, mediaID int) (domain.Document, error) {
	q := domain.QueryDescriptor{Collection: coll}.
		Where(domain.Filter{Field: domain.FieldID, Op: domain.OpEqual, Value: mediaID}).
		WithLimit(1)

	for _, src := range []domain.Source{domain.SourceCache, domain.SourceRemote} {
		snap, err := c.store.Get(ctx, q, src)
		if err != nil {
			return domain.Document{}, fmt.Errorf("lookup %d: %w", mediaID, err)
		}
		if d, ok := snap.First(); ok {
			return d, nil
		}
	}
	return domain.Document{}, fmt.Errorf("lookup %d: %w", mediaID, domain.ErrItemNotFound)
}

// Add stores rec and bumps the watchlist counter. If the counter update
// fails the record stays stored and only the error is returned.
func (c *Commands) Add(ctx context.Context, rec domain.MediaRecord) (domain.Document, error) {
	if rec.IsZero() {
		return domain.Document{}, domain.ErrEmptyMedia
	}
	coll, err := domain.CollectionFor(c.identity, c.settings)
	if err != nil {
		return domain.Document{}, err
	}

	_, err = c.lookup(ctx, coll, rec.ID)
	switch {
	case err == nil:
		return domain.Document{}, fmt.Errorf("add %d: %w", rec.ID, domain.ErrAlreadyInWatchlist)
	case !errors.Is(err, domain.ErrItemNotFound):
		return domain.Document{}, err
	}

	d, err := c.store.Add(ctx, coll, rec)
	if err != nil {
		c.logger.Error("failed to add media", "mediaID", rec.ID, "error", err)
		return domain.Document{}, err
	}
	if err := c.store.IncrementTotalItems(ctx, coll, 1); err != nil {
		c.logger.Error("failed to count added media", "mediaID", rec.ID, "doc", d.ID, "error", err)
		return domain.Document{}, fmt.Errorf("count %d: %w", rec.ID, err)
	}
	c.logger.Info("added media", "mediaID", rec.ID, "doc", d.ID)
	return d, nil
}

// Remove deletes mediaID from the watchlist.
func (c *Commands) Remove(ctx context.Context, mediaID int) error {
	coll, err := domain.CollectionFor(c.identity, c.settings)
	if err != nil {
		return err
	}
	d, err := c.lookup(ctx, coll, mediaID)
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, coll, d.ID); err != nil {
		c.logger.Error("failed to remove media", "mediaID", mediaID, "error", err)
		return err
	}
	if err := c.store.IncrementTotalItems(ctx, coll, -1); err != nil {
		return err
	}
	c.logger.Info("removed media", "mediaID", mediaID)
	return nil
}

// IsInWatchlist reports whether mediaID is tracked.
func (c *Commands) IsInWatchlist(ctx context.Context, mediaID int) (bool, error) {
	coll, err := domain.CollectionFor(c.identity, c.settings)
	if err != nil {
		return false, err
	}
	_, err = c.lookup(ctx, coll, mediaID)
	if errors.Is(err, domain.ErrItemNotFound) {
		return false, nil
	}
	return err == nil, err
}

// SetWatchStatus sets the watched flag of a tracked title.
func (c *Commands) SetWatchStatus(ctx context.Context, mediaID int, watched bool) (domain.MediaRecord, error) {
	coll, err := domain.CollectionFor(c.identity, c.settings)
	if err != nil {
		return domain.MediaRecord{}, err
	}
	d, err := c.lookup(ctx, coll, mediaID)
	if err != nil {
		return domain.MediaRecord{}, err
	}
	d, err = c.store.SetWatched(ctx, coll, d.ID, watched)
	if err != nil {
		return domain.MediaRecord{}, err
	}
	return d.Record, nil
}

// SetEpisodeWatchStatus marks one episode of a show watched or unwatched.
func (c *Commands) SetEpisodeWatchStatus(ctx context.Context, showID int, episodeID string, watched bool) (domain.MediaRecord, error) {
	if episodeID == "" {
		return domain.MediaRecord{}, domain.ErrEpisodeIDRequired
	}
	coll, err := domain.CollectionFor(c.identity, c.settings)
	if err != nil {
		return domain.MediaRecord{}, err
	}
	d, err := c.lookup(ctx, coll, showID)
	if err != nil {
		return domain.MediaRecord{}, err
	}
	d, err = c.store.UpdateEpisodes(ctx, coll, d.ID, episodeID, watched)
	if err != nil {
		return domain.MediaRecord{}, err
	}
	return d.Record, nil
}

// MediaInfo returns the stored record for mediaID.
func (c *Commands) MediaInfo(ctx context.Context, mediaID int) (domain.MediaRecord, error) {
	coll, err := domain.CollectionFor(c.identity, c.settings)
	if err != nil {
		return domain.MediaRecord{}, err
	}
	d, err := c.lookup(ctx, coll, mediaID)
	if err != nil {
		return domain.MediaRecord{}, err
	}
	return d.Record, nil
}

// TotalItems returns the watchlist counter.
func (c *Commands) TotalItems(ctx context.Context) (int64, error) {
	coll, err := domain.CollectionFor(c.identity, c.settings)
	if err != nil {
		return 0, err
	}
	return c.store.TotalItems(ctx, coll)
}
