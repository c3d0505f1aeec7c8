// Package memory provides an in-process document store with live subscriptions.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
)

type collection struct {
	order []string // insertion order of ids
	docs  map[string]model.Fields
}

// Store keeps collections in memory and pushes a full snapshot to subscribers after every write.
type Store struct {
	mu    sync.Mutex
	cols  map[string]*collection
	subs  map[string]map[*docstore.Mailbox]struct{}
	clock *docstore.Clock
}

var _ docstore.Store = (*Store)(nil)

// New constructs an empty store.
func New() *Store {
	return &Store{
		cols:  map[string]*collection{},
		subs:  map[string]map[*docstore.Mailbox]struct{}{},
		clock: docstore.NewClock(nil),
	}
}

func (s *Store) col(name string) *collection {
	c, ok := s.cols[name]
	if !ok {
		c = &collection{docs: map[string]model.Fields{}}
		s.cols[name] = c
	}
	return c
}

// snapshotLocked builds the current snapshot; s.mu must be held.
func (s *Store) snapshotLocked(name string) model.Snapshot {
	snap := model.Snapshot{Collection: name}
	c, ok := s.cols[name]
	if !ok {
		return snap
	}
	snap.Docs = make([]model.Document, 0, len(c.order))
	for _, id := range c.order {
		snap.Docs = append(snap.Docs, model.Document{ID: id, Fields: docstore.CloneFields(c.docs[id])})
	}
	return snap
}

// publishLocked queues the current snapshot for every subscriber of name; s.mu must be held.
func (s *Store) publishLocked(name string) {
	set := s.subs[name]
	if len(set) == 0 {
		return
	}
	for sub := range set {
		sub.Push(s.snapshotLocked(name))
	}
}

// Subscribe registers fn and immediately queues the current snapshot.
func (s *Store) Subscribe(_ context.Context, name string, fn docstore.SnapshotFunc) (docstore.Cancel, error) {
	if !docstore.ValidCollection(name) {
		return nil, errs.Validation("collection")
	}
	if fn == nil {
		return nil, errs.Validation("callback")
	}
	sub := docstore.NewMailbox(fn)

	s.mu.Lock()
	if s.subs[name] == nil {
		s.subs[name] = map[*docstore.Mailbox]struct{}{}
	}
	s.subs[name][sub] = struct{}{}
	sub.Push(s.snapshotLocked(name))
	s.mu.Unlock()

	go sub.Run()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[name], sub)
			if len(s.subs[name]) == 0 {
				delete(s.subs, name)
			}
			s.mu.Unlock()
			sub.Stop()
		})
	}, nil
}

// Get loads one document.
func (s *Store) Get(_ context.Context, name, id string) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cols[name]
	if !ok {
		return model.Document{}, errs.ErrNotFound
	}
	f, ok := c.docs[id]
	if !ok {
		return model.Document{}, errs.ErrNotFound
	}
	return model.Document{ID: id, Fields: docstore.CloneFields(f)}, nil
}

// Add stores fields under a fresh UUID.
func (s *Store) Add(_ context.Context, name string, fields model.Fields) (string, error) {
	if !docstore.ValidCollection(name) {
		return "", errs.Validation("collection")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.col(name)
	c.order = append(c.order, id.String())
	c.docs[id.String()] = s.clock.Stamp(docstore.CloneFields(fields))
	s.publishLocked(name)
	return id.String(), nil
}

// Set creates or replaces the document id.
func (s *Store) Set(_ context.Context, name, id string, fields model.Fields) error {
	if !docstore.ValidCollection(name) || id == "" {
		return errs.Validation("collection/id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.col(name)
	if _, ok := c.docs[id]; !ok {
		c.order = append(c.order, id)
	}
	c.docs[id] = s.clock.Stamp(docstore.CloneFields(fields))
	s.publishLocked(name)
	return nil
}

// Update merges patch into the existing document.
func (s *Store) Update(_ context.Context, name, id string, patch model.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cols[name]
	if !ok {
		return errs.ErrNotFound
	}
	cur, ok := c.docs[id]
	if !ok {
		return errs.ErrNotFound
	}
	next := docstore.CloneFields(cur)
	for k, v := range s.clock.Stamp(docstore.CloneFields(patch)) {
		next[k] = v
	}
	c.docs[id] = next
	s.publishLocked(name)
	return nil
}

// Delete removes the document id.
func (s *Store) Delete(_ context.Context, name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cols[name]
	if !ok {
		return errs.ErrNotFound
	}
	if _, ok := c.docs[id]; !ok {
		return errs.ErrNotFound
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	s.publishLocked(name)
	return nil
}

// List returns the collection, optionally sorted by one field.
func (s *Store) List(_ context.Context, name string, order docstore.Order) ([]model.Document, error) {
	if !docstore.ValidCollection(name) {
		return nil, errs.Validation("collection")
	}
	s.mu.Lock()
	docs := s.snapshotLocked(name).Docs
	s.mu.Unlock()

	if order.Field != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			c := compare(docs[i].Fields[order.Field], docs[j].Fields[order.Field])
			if order.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	return docs, nil
}

// compare orders missing < numbers < strings < everything else (by fmt).
func compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		return 0
	case 1:
		return cmp.Compare(toFloat(a), toFloat(b))
	case 2:
		return cmp.Compare(a.(string), b.(string))
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case float64, int, int64:
		return 1
	case string:
		return 2
	}
	return 3
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	}
	return 0
}
