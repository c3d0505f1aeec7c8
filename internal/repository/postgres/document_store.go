package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
)

// DocumentStore implements docstore.Store on a single documents table.
// Live subscriptions are fed by Listen; without it subscribers only see
// their initial snapshot.
type DocumentStore struct {
	db    *DB
	log   *zap.Logger
	clock *docstore.Clock
	hub   *hub
}

var _ docstore.Store = (*DocumentStore)(nil)

// NewDocumentStore constructs a document store over db.
func NewDocumentStore(db *DB, log *zap.Logger) *DocumentStore {
	if log == nil {
		log = zap.NewNop()
	}
	s := &DocumentStore{db: db, log: log, clock: docstore.NewClock(nil)}
	s.hub = newHub(s.load, log)
	return s
}

func encodeFields(f model.Fields) ([]byte, error) {
	if f == nil {
		f = model.Fields{}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return b, nil
}

func decodeFields(b []byte) (model.Fields, error) {
	f := model.Fields{}
	if len(b) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return f, nil
}

// Get loads one document.
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (model.Document, error) {
	const q = `SELECT fields FROM documents WHERE collection=$1 AND id=$2`
	var raw []byte
	if err := s.db.Pool.QueryRow(ctx, q, collection, id).Scan(&raw); err != nil {
		return model.Document{}, mapNoRows(err)
	}
	f, err := decodeFields(raw)
	if err != nil {
		return model.Document{}, err
	}
	return model.Document{ID: id, Fields: f}, nil
}

// Add inserts fields under a fresh UUID.
func (s *DocumentStore) Add(ctx context.Context, collection string, fields model.Fields) (string, error) {
	if !docstore.ValidCollection(collection) {
		return "", errs.Validation("collection")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	raw, err := encodeFields(s.clock.Stamp(docstore.CloneFields(fields)))
	if err != nil {
		return "", err
	}
	const q = `INSERT INTO documents (collection, id, fields) VALUES ($1, $2, $3)`
	if _, err := s.db.Pool.Exec(ctx, q, collection, id.String(), raw); err != nil {
		if isUniqueViolation(err) {
			return "", errs.ErrAlreadyExists
		}
		return "", err
	}
	return id.String(), nil
}

// Set creates or replaces the document id, keeping its original position.
func (s *DocumentStore) Set(ctx context.Context, collection, id string, fields model.Fields) error {
	if !docstore.ValidCollection(collection) || id == "" {
		return errs.Validation("collection/id")
	}
	raw, err := encodeFields(s.clock.Stamp(docstore.CloneFields(fields)))
	if err != nil {
		return err
	}
	const q = `
INSERT INTO documents (collection, id, fields) VALUES ($1, $2, $3)
ON CONFLICT (collection, id) DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()`
	_, err = s.db.Pool.Exec(ctx, q, collection, id, raw)
	return err
}

// Update merges patch into the stored fields.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, patch model.Fields) error {
	raw, err := encodeFields(s.clock.Stamp(docstore.CloneFields(patch)))
	if err != nil {
		return err
	}
	const q = `UPDATE documents SET fields = fields || $3::jsonb, updated_at = now() WHERE collection=$1 AND id=$2`
	tag, err := s.db.Pool.Exec(ctx, q, collection, id, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes the document id.
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	const q = `DELETE FROM documents WHERE collection=$1 AND id=$2`
	tag, err := s.db.Pool.Exec(ctx, q, collection, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// List returns the collection in insertion order, or sorted by order.Field.
func (s *DocumentStore) List(ctx context.Context, collection string, order docstore.Order) ([]model.Document, error) {
	if !docstore.ValidCollection(collection) {
		return nil, errs.Validation("collection")
	}
	if order.Field == "" {
		return s.load(ctx, collection)
	}
	q := `SELECT id, fields FROM documents WHERE collection=$1 ORDER BY fields->$2 ASC, seq`
	if order.Desc {
		q = `SELECT id, fields FROM documents WHERE collection=$1 ORDER BY fields->$2 DESC, seq`
	}
	return s.query(ctx, q, collection, order.Field)
}

// load reads the whole collection in insertion order.
func (s *DocumentStore) load(ctx context.Context, collection string) ([]model.Document, error) {
	const q = `SELECT id, fields FROM documents WHERE collection=$1 ORDER BY seq`
	return s.query(ctx, q, collection)
}

func (s *DocumentStore) query(ctx context.Context, q string, args ...any) ([]model.Document, error) {
	rows, err := s.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Document, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		f, err := decodeFields(raw)
		if err != nil {
			// surfaced to subscribers as an empty document; decoders skip it
			s.log.Warn("malformed document", zap.String("id", id), zap.Error(err))
			f = model.Fields{}
		}
		out = append(out, model.Document{ID: id, Fields: f})
	}
	return out, rows.Err()
}

// Subscribe registers fn for full snapshots of collection.
func (s *DocumentStore) Subscribe(ctx context.Context, collection string, fn docstore.SnapshotFunc) (docstore.Cancel, error) {
	if !docstore.ValidCollection(collection) {
		return nil, errs.Validation("collection")
	}
	if fn == nil {
		return nil, errs.Validation("callback")
	}
	return s.hub.subscribe(ctx, collection, fn)
}

// Notify re-reads collection and pushes it to its subscribers.
func (s *DocumentStore) Notify(ctx context.Context, collection string) error {
	return s.hub.notify(ctx, collection)
}

// Listen consumes change notifications from conn until ctx is done. Every
// subscribed collection is re-pushed once LISTEN is in place.
func (s *DocumentStore) Listen(ctx context.Context, conn NotifyConn) error {
	return s.hub.listen(ctx, conn)
}
