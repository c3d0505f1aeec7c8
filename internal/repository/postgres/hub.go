package postgres

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/model"
)

// NotifyChannel is the LISTEN channel the documents trigger publishes to.
// The payload is the collection path.
const NotifyChannel = "documents_changed"

// NotifyConn is a dedicated connection able to LISTEN. *pgx.Conn implements it.
type NotifyConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
}

type loadFunc func(ctx context.Context, collection string) ([]model.Document, error)

// hub fans collection snapshots out to subscriber mailboxes.
type hub struct {
	load loadFunc
	log  *zap.Logger

	// deliver serializes load+push so every subscriber sees snapshots in one order.
	deliver sync.Mutex
	mu      sync.Mutex
	subs    map[string]map[*docstore.Mailbox]struct{}
}

func newHub(load loadFunc, log *zap.Logger) *hub {
	return &hub{load: load, log: log, subs: map[string]map[*docstore.Mailbox]struct{}{}}
}

func (h *hub) subscribe(ctx context.Context, collection string, fn docstore.SnapshotFunc) (docstore.Cancel, error) {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	docs, err := h.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	mb := docstore.NewMailbox(fn)
	mb.Push(model.Snapshot{Collection: collection, Docs: docs})

	h.mu.Lock()
	if h.subs[collection] == nil {
		h.subs[collection] = map[*docstore.Mailbox]struct{}{}
	}
	h.subs[collection][mb] = struct{}{}
	h.mu.Unlock()

	go mb.Run()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[collection], mb)
			if len(h.subs[collection]) == 0 {
				delete(h.subs, collection)
			}
			h.mu.Unlock()
			mb.Stop()
		})
	}, nil
}

func (h *hub) mailboxes(collection string) []*docstore.Mailbox {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*docstore.Mailbox, 0, len(h.subs[collection]))
	for mb := range h.subs[collection] {
		out = append(out, mb)
	}
	return out
}

func (h *hub) notify(ctx context.Context, collection string) error {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	targets := h.mailboxes(collection)
	if len(targets) == 0 {
		return nil
	}
	docs, err := h.load(ctx, collection)
	if err != nil {
		return err
	}
	for _, mb := range targets {
		mb.Push(model.Snapshot{Collection: collection, Docs: docstore.CloneDocs(docs)})
	}
	return nil
}

// resync re-pushes every subscribed collection.
func (h *hub) resync(ctx context.Context) {
	h.mu.Lock()
	collections := make([]string, 0, len(h.subs))
	for c := range h.subs {
		collections = append(collections, c)
	}
	h.mu.Unlock()
	for _, c := range collections {
		if err := h.notify(ctx, c); err != nil {
			h.log.Warn("refresh subscribers", zap.String("collection", c), zap.Error(err))
		}
	}
}

// listen runs LISTEN on conn, then resyncs all subscribers, since changes
// made while no listener was connected produced no notification.
func (h *hub) listen(ctx context.Context, conn NotifyConn) error {
	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return err
	}
	h.log.Info("listening for document changes", zap.String("channel", NotifyChannel))
	h.resync(ctx)
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if err := h.notify(ctx, n.Payload); err != nil {
			h.log.Warn("refresh subscribers", zap.String("collection", n.Payload), zap.Error(err))
		}
	}
}
