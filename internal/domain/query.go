package domain

import (
	"fmt"
	"slices"
)

// Field names a queryable document field.
type Field string

const (
	FieldID              Field = "id"
	FieldMediaType       Field = "mediaType"
	FieldTitle           Field = "title"
	FieldReleaseDate     Field = "releaseDate"
	FieldIsWatched       Field = "isWatched"
	FieldWatchedEpisodes Field = "watched"
	FieldWatchedCount    Field = "watchedCount"
	FieldAddedAt         Field = "timestamp"
)

var knownFields = map[Field]bool{
	FieldID:              true,
	FieldMediaType:       true,
	FieldTitle:           true,
	FieldReleaseDate:     true,
	FieldIsWatched:       true,
	FieldWatchedEpisodes: true,
	FieldWatchedCount:    true,
	FieldAddedAt:         true,
}

// Value returns the field value used for filtering and ordering.
// Unset optional fields report nil.
func (m MediaRecord) Value(f Field) (any, bool) {
	switch f {
	case FieldID:
		return m.ID, true
	case FieldMediaType:
		return string(m.MediaType), true
	case FieldTitle:
		return m.Title, true
	case FieldReleaseDate:
		return m.ReleaseDate, true
	case FieldIsWatched:
		if m.IsWatched == nil {
			return nil, true
		}
		return *m.IsWatched, true
	case FieldWatchedEpisodes:
		return m.WatchedEpisodes, true
	case FieldWatchedCount:
		return m.WatchedCount(), true
	case FieldAddedAt:
		return m.AddedAt, true
	default:
		return nil, false
	}
}

// Op is a filter operator.
type Op string

const (
	OpEqual       Op = "=="
	OpNotEqual    Op = "!="
	OpIn          Op = "in"
	OpGreaterThan Op = ">"
)

// Inequality reports whether the operator is a range/inequality operator,
// which backends require to be aligned with the first ordering.
func (o Op) Inequality() bool {
	return o == OpNotEqual || o == OpGreaterThan
}

// Filter is one predicate. In-filters use Values; all others use Value.
type Filter struct {
	Field  Field `json:"field"`
	Op     Op    `json:"op"`
	Value  any   `json:"value,omitempty"`
	Values []any `json:"values,omitempty"`
}

// Direction is a sort direction
type Direction int

const (
	Descending Direction = iota
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// Order is one ordering rule.
type Order struct {
	Field     Field     `json:"field"`
	Direction Direction `json:"direction"`
}

// QueryDescriptor is a composed query against one watchlist collection.
// Builder methods return modified copies and never share slices.
type QueryDescriptor struct {
	Collection Collection `json:"collection"`
	Orders     []Order    `json:"orders,omitempty"`
	Filters    []Filter   `json:"filters,omitempty"`
	Limit      int        `json:"limit,omitempty"` // 0 = unlimited
	StartAfter *Document  `json:"startAfter,omitempty"`
}

func (q QueryDescriptor) clone() QueryDescriptor {
	out := q
	out.Orders = slices.Clone(q.Orders)
	out.Filters = slices.Clone(q.Filters)
	for i := range out.Filters {
		out.Filters[i].Values = slices.Clone(out.Filters[i].Values)
	}
	if q.StartAfter != nil {
		doc := *q.StartAfter
		out.StartAfter = &doc
	}
	return out
}

// OrderBy appends an ordering rule.
func (q QueryDescriptor) OrderBy(f Field, dir Direction) QueryDescriptor {
	out := q.clone()
	out.Orders = append(out.Orders, Order{Field: f, Direction: dir})
	return out
}

// Where appends a predicate.
func (q QueryDescriptor) Where(f Filter) QueryDescriptor {
	out := q.clone()
	f.Values = slices.Clone(f.Values)
	out.Filters = append(out.Filters, f)
	return out
}

// WithLimit replaces the limit.
func (q QueryDescriptor) WithLimit(n int) QueryDescriptor {
	out := q.clone()
	out.Limit = n
	return out
}

// StartingAfter positions the query strictly after doc in the query's ordering.
func (q QueryDescriptor) StartingAfter(doc Document) QueryDescriptor {
	out := q.clone()
	out.StartAfter = &doc
	return out
}

// TiebreakDirection is the direction of the implicit document-id ordering
// appended after the explicit orders: the direction of the last order.
func (q QueryDescriptor) TiebreakDirection() Direction {
	if len(q.Orders) == 0 {
		return Ascending
	}
	return q.Orders[len(q.Orders)-1].Direction
}

// Validate checks the descriptor against the store constraints shared by all
// backends: known fields, a non-negative limit, non-empty in-lists, and every
// inequality predicate on a single field that is also the first ordering.
func (q QueryDescriptor) Validate() error {
	if q.Collection.UserID == "" {
		return fmt.Errorf("%w: collection has no user", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, q.Limit)
	}
	for _, o := range q.Orders {
		if !knownFields[o.Field] {
			return fmt.Errorf("%w: order by %q", ErrUnknownField, o.Field)
		}
	}

	var inequality Field
	for _, f := range q.Filters {
		if !knownFields[f.Field] {
			return fmt.Errorf("%w: filter on %q", ErrUnknownField, f.Field)
		}
		switch f.Op {
		case OpEqual, OpNotEqual, OpGreaterThan:
		case OpIn:
			if len(f.Values) == 0 {
				return fmt.Errorf("%w: empty in-list on %q", ErrInvalidQuery, f.Field)
			}
		default:
			return fmt.Errorf("%w: operator %q", ErrInvalidQuery, f.Op)
		}
		if !f.Op.Inequality() {
			continue
		}
		if inequality != "" && inequality != f.Field {
			return fmt.Errorf("%w: inequality on both %q and %q", ErrInvalidQuery, inequality, f.Field)
		}
		inequality = f.Field
	}

	if inequality != "" && len(q.Orders) > 0 && q.Orders[0].Field != inequality {
		return fmt.Errorf("%w: inequality on %q must be ordered first, got %q",
			ErrInvalidQuery, inequality, q.Orders[0].Field)
	}
	return nil
}
