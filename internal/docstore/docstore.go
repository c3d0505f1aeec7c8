// Package docstore defines the document database capability consumed by the core:
// path-addressed collections, full-snapshot live subscriptions and CRUD.
package docstore

import (
	"context"
	"strings"

	"github.com/and161185/recipebook/internal/model"
)

// SnapshotFunc receives the full current contents of a collection.
type SnapshotFunc func(model.Snapshot)

// Cancel detaches a subscription. Calling it more than once is a no-op.
type Cancel func()

// Order selects an ordering on a single field. Zero value means store (insertion) order.
type Order struct {
	Field string
	Desc  bool
}

// Store is the document database capability.
type Store interface {
	// Subscribe delivers the current snapshot and then one snapshot per change, in emission order.
	Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (Cancel, error)
	// Get loads a single document.
	Get(ctx context.Context, collection, id string) (model.Document, error)
	// Add creates a document with a store-assigned id.
	Add(ctx context.Context, collection string, fields model.Fields) (string, error)
	// Set creates or replaces a document under a caller-chosen id.
	Set(ctx context.Context, collection, id string, fields model.Fields) error
	// Update merges patch into an existing document.
	Update(ctx context.Context, collection, id string, patch model.Fields) error
	// Delete removes a document.
	Delete(ctx context.Context, collection, id string) error
	// List returns all documents of a collection in the requested order.
	List(ctx context.Context, collection string, order Order) ([]model.Document, error)
}

// ValidCollection reports whether path addresses a collection: an odd number of
// non-empty segments ("foods", "comments/<item>/comments").
func ValidCollection(path string) bool {
	if path == "" {
		return false
	}
	parts := strings.Split(path, "/")
	if len(parts)%2 == 0 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// CloneFields returns a shallow copy of f.
func CloneFields(f model.Fields) model.Fields {
	out := make(model.Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// CloneDocs deep-copies the field maps so consumers cannot mutate store state.
func CloneDocs(in []model.Document) []model.Document {
	out := make([]model.Document, len(in))
	for i, d := range in {
		out[i] = model.Document{ID: d.ID, Fields: CloneFields(d.Fields)}
	}
	return out
}
