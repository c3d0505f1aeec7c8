package stream

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/model"
)

// ErrStarted is returned by Start on a stream that was already started or stopped.
var ErrStarted = errors.New("stream: already started")

// Config describes one live list.
type Config[T any] struct {
	Store      docstore.Store
	Collection string
	Decode     Decoder[T]
	Keep       Predicate[T]
	// Order, when set, sorts each materialized list (stable). Lists otherwise keep store order.
	Order func(a, b T) int
	// OnChange receives a copy of the list after every snapshot that changed it.
	// It must not call Stop.
	OnChange func([]T)
	Log      *zap.Logger
}

// Stream keeps the materialized list of one collection subscription.
// Start and Stop map to view mount and teardown.
type Stream[T any] struct {
	cfg Config[T]
	log *zap.Logger

	deliver sync.Mutex // held while OnChange runs

	mu      sync.Mutex
	started bool
	stopped bool
	have    bool
	items   []T
	cancel  docstore.Cancel

	stopOnce sync.Once
}

// New constructs a stopped stream.
func New[T any](cfg Config[T]) *Stream[T] {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Stream[T]{cfg: cfg, log: log.With(zap.String("collection", cfg.Collection))}
}

// Start subscribes to the collection. It can be called once.
func (s *Stream[T]) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return ErrStarted
	}
	s.started = true
	s.mu.Unlock()

	cancel, err := s.cfg.Store.Subscribe(ctx, s.cfg.Collection, s.onSnapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.cancel = cancel
	s.mu.Unlock()
	return nil
}

// Stop detaches the subscription. After Stop returns OnChange is not called again.
// Repeated calls are no-ops.
func (s *Stream[T]) Stop() {
	s.stopOnce.Do(func() {
		// an OnChange already in flight finishes first
		s.deliver.Lock()
		defer s.deliver.Unlock()

		s.mu.Lock()
		s.stopped = true
		cancel := s.cancel
		s.cancel = nil
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
}

// Items returns a copy of the latest materialized list.
func (s *Stream[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.items...)
}

// Ready reports whether the first snapshot has arrived.
func (s *Stream[T]) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.have
}

func (s *Stream[T]) onSnapshot(snap model.Snapshot) {
	items, skipped := Materialize(snap.Docs, s.cfg.Decode, s.cfg.Keep)
	if s.cfg.Order != nil {
		slices.SortStableFunc(items, s.cfg.Order)
	}
	for _, sk := range skipped {
		s.log.Warn("skip malformed document", zap.String("id", sk.ID), zap.Error(sk.Err))
	}

	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.have && reflect.DeepEqual(s.items, items) {
		s.mu.Unlock()
		return
	}
	s.items, s.have = items, true
	s.mu.Unlock()

	if s.cfg.OnChange != nil {
		s.cfg.OnChange(append([]T(nil), items...))
	}
}
