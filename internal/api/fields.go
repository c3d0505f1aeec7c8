package api

import (
	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/model"
)

// serverTimestampKey marks a field the store must stamp: {"$serverTimestamp": true}.
const serverTimestampKey = "$serverTimestamp"

// Fields is the wire form of model.Fields.
type Fields map[string]any

// FromModel converts fields for sending; server timestamp placeholders become markers.
func FromModel(f model.Fields) Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		if docstore.IsServerTimestamp(v) {
			v = map[string]any{serverTimestampKey: true}
		}
		out[k] = v
	}
	return out
}

// Model converts received fields back; markers become docstore.ServerTimestamp.
func (f Fields) Model() model.Fields {
	out := make(model.Fields, len(f))
	for k, v := range f {
		if m, ok := v.(map[string]any); ok && len(m) == 1 && m[serverTimestampKey] == true {
			v = docstore.ServerTimestamp
		}
		out[k] = v
	}
	return out
}

// FromDocs converts documents for sending.
func FromDocs(docs []model.Document) []Doc {
	out := make([]Doc, len(docs))
	for i, d := range docs {
		out[i] = Doc{ID: d.ID, Fields: FromModel(d.Fields)}
	}
	return out
}

// ToDocs converts received documents.
func ToDocs(docs []Doc) []model.Document {
	out := make([]model.Document, len(docs))
	for i, d := range docs {
		out[i] = model.Document{ID: d.ID, Fields: d.Fields.Model()}
	}
	return out
}
