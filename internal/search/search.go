// Package search narrows synchronized lists by the text the user typed.
package search

import (
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/and161185/recipebook/internal/model"
)

// Filter keeps the elements whose name contains q, ignoring case.
// An empty query keeps everything. The result is a new slice.
func Filter[T any](list []T, q string, name func(T) string) []T {
	out := make([]T, 0, len(list))
	if q == "" {
		return append(out, list...)
	}
	needle := strings.ToLower(q)
	for _, v := range list {
		if strings.Contains(strings.ToLower(name(v)), needle) {
			out = append(out, v)
		}
	}
	return out
}

// ItemName is the searchable text of an item.
func ItemName(it model.Item) string { return it.Name }

// Items filters items by name.
func Items(list []model.Item, q string) []model.Item { return Filter(list, q, ItemName) }

type source[T any] struct {
	list []T
	name func(T) string
}

func (s source[T]) String(i int) string { return strings.ToLower(s.name(s.list[i])) }
func (s source[T]) Len() int            { return len(s.list) }

// Suggest ranks fuzzy matches of q, best first, at most limit of them.
// It is meant for "did you mean" hints when Filter finds nothing.
func Suggest[T any](list []T, q string, name func(T) string, limit int) []T {
	if q == "" || len(list) == 0 {
		return nil
	}
	matches := fuzzy.FindFrom(strings.ToLower(q), source[T]{list: list, name: name})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]T, len(matches))
	for i, m := range matches {
		out[i] = list[m.Index]
	}
	return out
}

// Live keeps the latest snapshot and the current query together so results
// always come from the newest snapshot.
type Live[T any] struct {
	name func(T) string

	mu       sync.Mutex
	snapshot []T
	query    string
	results  []T
}

// NewLive constructs an empty live filter.
func NewLive[T any](name func(T) string) *Live[T] {
	return &Live[T]{name: name}
}

// SetSnapshot replaces the source list and re-applies the current query to it.
func (l *Live[T]) SetSnapshot(list []T) []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshot = append([]T(nil), list...)
	l.results = Filter(l.snapshot, l.query, l.name)
	return append([]T(nil), l.results...)
}

// SetQuery changes the query and re-filters the latest snapshot.
func (l *Live[T]) SetQuery(q string) []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = q
	l.results = Filter(l.snapshot, q, l.name)
	return append([]T(nil), l.results...)
}

// Query returns the current query.
func (l *Live[T]) Query() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// Results returns the current filtered list.
func (l *Live[T]) Results() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.results...)
}

// Suggest returns fuzzy hints for the current query over the latest snapshot.
func (l *Live[T]) Suggest(limit int) []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Suggest(l.snapshot, l.query, l.name, limit)
}
