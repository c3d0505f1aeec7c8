// Package modlist is the moderated document list behind every list screen:
// a live collection subscription, a predicate, client-side search and the
// actions the viewer may take on each row.
package modlist

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/policy"
	"github.com/and161185/recipebook/internal/search"
	"github.com/and161185/recipebook/internal/stream"
)

// Row is one rendered entry with the actions its viewer may take.
type Row[T any] struct {
	Item    T
	Actions []policy.Action
}

// Config parameterizes one list screen.
type Config[T any] struct {
	Store      docstore.Store
	Collection string
	Decode     stream.Decoder[T]
	Keep       stream.Predicate[T]
	Order      func(a, b T) int
	// Name is the field search matches against.
	Name func(T) string
	// Actions lists what the viewer may do with one entry; nil means none.
	Actions func(v policy.Viewer, item T) []policy.Action
	Viewer  policy.Viewer
	// OnChange receives the search results after every snapshot or query change.
	// It must not call Stop.
	OnChange func(rows []Row[T])
	Log      *zap.Logger
}

// List is a started-on-mount, stopped-on-teardown list screen.
type List[T any] struct {
	cfg    Config[T]
	stream *stream.Stream[T]
	live   *search.Live[T]

	mu      sync.Mutex
	stopped bool
}

// New constructs a list; nothing is subscribed until Start.
func New[T any](cfg Config[T]) *List[T] {
	l := &List[T]{cfg: cfg, live: search.NewLive(cfg.Name)}
	l.stream = stream.New(stream.Config[T]{
		Store:      cfg.Store,
		Collection: cfg.Collection,
		Decode:     cfg.Decode,
		Keep:       cfg.Keep,
		Order:      cfg.Order,
		OnChange:   l.onItems,
		Log:        cfg.Log,
	})
	return l
}

// Start subscribes to the collection.
func (l *List[T]) Start(ctx context.Context) error { return l.stream.Start(ctx) }

// Stop detaches the subscription; no OnChange call happens after it returns.
func (l *List[T]) Stop() {
	l.stream.Stop()
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
}

// Ready reports whether the first snapshot has arrived.
func (l *List[T]) Ready() bool { return l.stream.Ready() }

func (l *List[T]) onItems(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.emit(l.live.SetSnapshot(items))
}

// Search sets the query and returns the matching rows of the latest snapshot.
func (l *List[T]) Search(q string) []Row[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := l.live.SetQuery(q)
	if !l.stopped {
		l.emit(res)
	}
	return l.rows(res)
}

// Rows returns the current search results.
func (l *List[T]) Rows() []Row[T] { return l.rows(l.live.Results()) }

// Items returns the current search results without actions.
func (l *List[T]) Items() []T { return l.live.Results() }

// All returns the whole materialized list, ignoring the query.
func (l *List[T]) All() []T { return l.stream.Items() }

// Suggest returns fuzzy hints for the current query.
func (l *List[T]) Suggest(limit int) []T { return l.live.Suggest(limit) }

// emit must be called with l.mu held.
func (l *List[T]) emit(res []T) {
	if l.cfg.OnChange != nil {
		l.cfg.OnChange(l.rows(res))
	}
}

func (l *List[T]) rows(items []T) []Row[T] {
	out := make([]Row[T], len(items))
	for i, it := range items {
		out[i].Item = it
		if l.cfg.Actions != nil {
			out[i].Actions = l.cfg.Actions(l.cfg.Viewer, it)
		}
	}
	return out
}
