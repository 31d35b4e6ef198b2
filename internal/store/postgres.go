package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/watchdone/watchdone/internal/domain"
)

// column maps a document field onto the watchlist_items table.
type column struct {
	name string
	// sort is the ORDER BY expression; it must be NOT NULL so keyset
	// comparisons stay total.
	sort string
	// sortValue extracts the value compared against sort for a cursor document.
	sortValue func(domain.MediaRecord) any
}

var columns = map[domain.Field]column{
	domain.FieldID:          {name: "media_id", sort: "media_id", sortValue: func(m domain.MediaRecord) any { return m.ID }},
	domain.FieldMediaType:   {name: "media_type", sort: "media_type", sortValue: func(m domain.MediaRecord) any { return string(m.MediaType) }},
	domain.FieldTitle:       {name: "title", sort: "title", sortValue: func(m domain.MediaRecord) any { return m.Title }},
	domain.FieldReleaseDate: {name: "release_date", sort: "release_date", sortValue: func(m domain.MediaRecord) any { return m.ReleaseDate }},
	// unset < false < true, matching the in-memory evaluator
	domain.FieldIsWatched: {
		name: "is_watched",
		sort: "(CASE WHEN is_watched IS NULL THEN 0 WHEN is_watched THEN 2 ELSE 1 END)",
		sortValue: func(m domain.MediaRecord) any {
			switch {
			case m.IsWatched == nil:
				return 0
			case *m.IsWatched:
				return 2
			default:
				return 1
			}
		},
	},
	domain.FieldWatchedEpisodes: {name: "watched", sort: "watched", sortValue: func(m domain.MediaRecord) any { return nonNil(m.WatchedEpisodes) }},
	domain.FieldWatchedCount:    {name: "watched_count", sort: "watched_count", sortValue: func(m domain.MediaRecord) any { return m.WatchedCount() }},
	domain.FieldAddedAt:         {name: "added_at", sort: "added_at", sortValue: func(m domain.MediaRecord) any { return m.AddedAt }},
}

const selectColumns = `doc_id, media_id, media_type, title, release_date, is_watched, watched, poster_path, rating, added_at`

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// sqlValue normalizes filter values to types pgx encodes directly.
func sqlValue(v any) any {
	if m, ok := v.(domain.MediaType); ok {
		return string(m)
	}
	return v
}

// queryBuilder accumulates positional arguments.
type queryBuilder struct {
	args []any
}

func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// buildSelect translates a descriptor into a keyset-paginated SELECT.
func buildSelect(q domain.QueryDescriptor) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	var b queryBuilder
	where := []string{
		"dataset = " + b.arg(string(q.Collection.Dataset)),
		"user_id = " + b.arg(q.Collection.UserID),
	}

	for _, f := range q.Filters {
		col := columns[f.Field].name
		switch f.Op {
		case domain.OpEqual:
			if f.Value == nil {
				where = append(where, col+" IS NULL")
			} else {
				where = append(where, col+" = "+b.arg(sqlValue(f.Value)))
			}
		case domain.OpNotEqual:
			where = append(where, col+" <> "+b.arg(sqlValue(f.Value)))
		case domain.OpGreaterThan:
			where = append(where, col+" > "+b.arg(sqlValue(f.Value)))
		case domain.OpIn:
			var params []string
			withNull := false
			for _, v := range f.Values {
				if v == nil {
					withNull = true
					continue
				}
				params = append(params, b.arg(sqlValue(v)))
			}
			var parts []string
			if len(params) > 0 {
				parts = append(parts, col+" IN ("+strings.Join(params, ", ")+")")
			}
			if withNull {
				parts = append(parts, col+" IS NULL")
			}
			where = append(where, "("+strings.Join(parts, " OR ")+")")
		}
	}

	type key struct {
		expr  string
		dir   domain.Direction
		value any
	}
	keys := make([]key, 0, len(q.Orders)+1)
	for _, o := range q.Orders {
		col := columns[o.Field]
		k := key{expr: col.sort, dir: o.Direction}
		if q.StartAfter != nil {
			k.value = col.sortValue(q.StartAfter.Record)
		}
		keys = append(keys, k)
	}
	tiebreak := key{expr: "doc_id", dir: q.TiebreakDirection()}
	if q.StartAfter != nil {
		tiebreak.value = q.StartAfter.ID
	}
	keys = append(keys, tiebreak)

	if q.StartAfter != nil {
		// (k1 > v1) OR (k1 = v1 AND k2 > v2) OR ...
		var alts []string
		for i, k := range keys {
			var conj []string
			for _, prev := range keys[:i] {
				conj = append(conj, prev.expr+" = "+b.arg(prev.value))
			}
			op := " > "
			if k.dir == domain.Descending {
				op = " < "
			}
			conj = append(conj, k.expr+op+b.arg(k.value))
			alts = append(alts, "("+strings.Join(conj, " AND ")+")")
		}
		where = append(where, "("+strings.Join(alts, " OR ")+")")
	}

	order := make([]string, len(keys))
	for i, k := range keys {
		order[i] = k.expr + " " + strings.ToUpper(k.dir.String())
	}

	sql := "SELECT " + selectColumns + " FROM watchlist_items WHERE " +
		strings.Join(where, " AND ") + " ORDER BY " + strings.Join(order, ", ")
	if q.Limit > 0 {
		sql += " LIMIT " + strconv.Itoa(q.Limit)
	}
	return sql, b.args, nil
}

// Postgres is the authoritative watchlist store.
// It implements domain.QueryRunner and domain.DocumentWriter.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func scanDocument(row pgx.Row) (domain.Document, error) {
	var (
		d         domain.Document
		mediaType string
	)
	err := row.Scan(&d.ID, &d.Record.ID, &mediaType, &d.Record.Title, &d.Record.ReleaseDate,
		&d.Record.IsWatched, &d.Record.WatchedEpisodes, &d.Record.PosterPath, &d.Record.Rating, &d.Record.AddedAt)
	if err != nil {
		return domain.Document{}, err
	}
	d.Record.MediaType = domain.MediaType(mediaType)
	if len(d.Record.WatchedEpisodes) == 0 {
		d.Record.WatchedEpisodes = nil
	}
	return d, nil
}

// Run executes q against the watchlist_items table.
func (p *Postgres) Run(ctx context.Context, q domain.QueryDescriptor) ([]domain.Document, error) {
	sql, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Running remote query", "collection", q.Collection.Path(), "limit", q.Limit)

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watchlist item: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	return docs, nil
}

// Add inserts a record under a fresh document id. The server assigns the timestamp.
func (p *Postgres) Add(ctx context.Context, coll domain.Collection, rec domain.MediaRecord) (domain.Document, error) {
	row := p.pool.QueryRow(ctx,
		`INSERT INTO watchlist_items
		   (dataset, user_id, doc_id, media_id, media_type, title, release_date, is_watched, watched, poster_path, rating)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+selectColumns,
		string(coll.Dataset), coll.UserID, uuid.NewString(), rec.ID, string(rec.MediaType), rec.Title,
		rec.ReleaseDate, rec.IsWatched, nonNil(rec.WatchedEpisodes), rec.PosterPath, rec.Rating,
	)
	d, err := scanDocument(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Document{}, fmt.Errorf("add %d: %w", rec.ID, domain.ErrAlreadyInWatchlist)
		}
		return domain.Document{}, fmt.Errorf("add %d: %w", rec.ID, err)
	}
	return d, nil
}

func (p *Postgres) update(ctx context.Context, op string, coll domain.Collection, docID, set string, value any) (domain.Document, error) {
	row := p.pool.QueryRow(ctx,
		`UPDATE watchlist_items SET `+set+`
		 WHERE dataset = $1 AND user_id = $2 AND doc_id = $3
		 RETURNING `+selectColumns,
		string(coll.Dataset), coll.UserID, docID, value,
	)
	d, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Document{}, fmt.Errorf("%s %s: %w", op, docID, domain.ErrItemNotFound)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("%s %s: %w", op, docID, err)
	}
	return d, nil
}

// SetWatched sets the isWatched flag of one document.
func (p *Postgres) SetWatched(ctx context.Context, coll domain.Collection, docID string, watched bool) (domain.Document, error) {
	return p.update(ctx, "set watched", coll, docID, "is_watched = $4", watched)
}

// UpdateEpisodes adds episodeID to the watched list (no duplicates) or removes it.
func (p *Postgres) UpdateEpisodes(ctx context.Context, coll domain.Collection, docID, episodeID string, watched bool) (domain.Document, error) {
	set := "watched = array_remove(watched, $4::text)"
	if watched {
		set = "watched = CASE WHEN $4::text = ANY(watched) THEN watched ELSE array_append(watched, $4::text) END"
	}
	return p.update(ctx, "update episodes", coll, docID, set, episodeID)
}

// Delete removes one document.
func (p *Postgres) Delete(ctx context.Context, coll domain.Collection, docID string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM watchlist_items WHERE dataset = $1 AND user_id = $2 AND doc_id = $3`,
		string(coll.Dataset), coll.UserID, docID,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", docID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete %s: %w", docID, domain.ErrItemNotFound)
	}
	return nil
}

// IncrementTotalItems adjusts the per-watchlist item counter.
func (p *Postgres) IncrementTotalItems(ctx context.Context, coll domain.Collection, by int64) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO watchlists (dataset, user_id, total_items) VALUES ($1, $2, $3)
		 ON CONFLICT (dataset, user_id) DO UPDATE SET total_items = watchlists.total_items + EXCLUDED.total_items`,
		string(coll.Dataset), coll.UserID, by,
	)
	if err != nil {
		return fmt.Errorf("increment total items: %w", err)
	}
	return nil
}

// TotalItems reads the counter; a watchlist never written to has zero items.
func (p *Postgres) TotalItems(ctx context.Context, coll domain.Collection) (int64, error) {
	var total int64
	err := p.pool.QueryRow(ctx,
		`SELECT total_items FROM watchlists WHERE dataset = $1 AND user_id = $2`,
		string(coll.Dataset), coll.UserID,
	).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("total items: %w", err)
	}
	return total, nil
}
