// Package stream turns live collection snapshots into typed, filtered lists.
package stream

import "github.com/and161185/recipebook/internal/model"

// Decoder converts a raw document into T. An error marks the document malformed.
type Decoder[T any] func(model.Document) (T, error)

// Predicate selects the records that belong in a list. Nil keeps everything.
type Predicate[T any] func(T) bool

// Skip records a document Materialize left out because it did not decode.
type Skip struct {
	ID  string
	Err error
}

// Materialize decodes docs in order and keeps the records matching keep.
// Malformed documents are reported in skipped and never abort the rest.
func Materialize[T any](docs []model.Document, decode Decoder[T], keep Predicate[T]) (items []T, skipped []Skip) {
	items = make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := decode(d)
		if err != nil {
			skipped = append(skipped, Skip{ID: d.ID, Err: err})
			continue
		}
		if keep == nil || keep(v) {
			items = append(items, v)
		}
	}
	return items, skipped
}
