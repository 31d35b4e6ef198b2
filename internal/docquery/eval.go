// Package docquery evaluates query descriptors over in-memory documents.
// The local cache and the test fakes both execute queries through it, so
// every backend shares one definition of filter, order and cursor semantics.
package docquery

import (
	"cmp"
	"slices"
	"time"

	"github.com/watchdone/watchdone/internal/domain"
)

// Apply runs q over docs and returns the matching documents in query order.
// docs is not modified.
func Apply(docs []domain.Document, q domain.QueryDescriptor) ([]domain.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	out := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		if Match(d.Record, q.Filters) {
			out = append(out, d)
		}
	}

	slices.SortStableFunc(out, func(a, b domain.Document) int {
		return CompareDocuments(a, b, q)
	})

	if q.StartAfter != nil {
		start := *q.StartAfter
		i, _ := slices.BinarySearchFunc(out, start, func(d, target domain.Document) int {
			if CompareDocuments(d, target, q) <= 0 {
				return -1
			}
			return 1
		})
		out = out[i:]
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Match reports whether rec satisfies every filter.
func Match(rec domain.MediaRecord, filters []domain.Filter) bool {
	for _, f := range filters {
		v, ok := rec.Value(f.Field)
		if !ok || !matchOne(v, f) {
			return false
		}
	}
	return true
}

func matchOne(v any, f domain.Filter) bool {
	switch f.Op {
	case domain.OpEqual:
		return Equal(v, f.Value)
	case domain.OpNotEqual:
		// unset values never satisfy an inequality
		return v != nil && !Equal(v, f.Value)
	case domain.OpIn:
		for _, want := range f.Values {
			if Equal(v, want) {
				return true
			}
		}
		return false
	case domain.OpGreaterThan:
		return v != nil && rank(v) == rank(f.Value) && Compare(v, f.Value) > 0
	default:
		return false
	}
}

// CompareDocuments orders two documents by the query's orders, then by
// document id in the tiebreak direction.
func CompareDocuments(a, b domain.Document, q domain.QueryDescriptor) int {
	for _, o := range q.Orders {
		av, _ := a.Record.Value(o.Field)
		bv, _ := b.Record.Value(o.Field)
		if c := directed(Compare(av, bv), o.Direction); c != 0 {
			return c
		}
	}
	return directed(cmp.Compare(a.ID, b.ID), q.TiebreakDirection())
}

func directed(c int, dir domain.Direction) int {
	if dir == domain.Descending {
		return -c
	}
	return c
}

// Type ranks: values of different kinds order nil < bool < number < string < time < list.
const (
	rankNil = iota
	rankBool
	rankNumber
	rankString
	rankTime
	rankList
	rankOther
)

func rank(v any) int {
	switch v.(type) {
	case nil:
		return rankNil
	case bool:
		return rankBool
	case int, int32, int64, float32, float64:
		return rankNumber
	case string, domain.MediaType:
		return rankString
	case time.Time:
		return rankTime
	case []string, []any:
		return rankList
	default:
		return rankOther
	}
}

func number(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func text(v any) string {
	if m, ok := v.(domain.MediaType); ok {
		return string(m)
	}
	s, _ := v.(string)
	return s
}

func list(v any) []any {
	switch l := v.(type) {
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out
	case []any:
		return l
	}
	return nil
}

// Compare totally orders two field values.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case rankNumber:
		return cmp.Compare(number(a), number(b))
	case rankString:
		return cmp.Compare(text(a), text(b))
	case rankTime:
		return a.(time.Time).Compare(b.(time.Time))
	case rankList:
		al, bl := list(a), list(b)
		for i := 0; i < len(al) && i < len(bl); i++ {
			if c := Compare(al[i], bl[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(al), len(bl))
	}
	return 0
}

// Equal reports value equality under Compare. Numbers compare by value
// regardless of their Go type.
func Equal(a, b any) bool {
	return rank(a) == rank(b) && Compare(a, b) == 0
}
