package client

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/recipebook/internal/api"
	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
)

// Docs is the remote document store.
type Docs struct {
	api *api.BackendClient
	log *zap.Logger

	// reconnect bounds re-opening a broken subscription; nil uses defaultReconnect.
	reconnect func() retry.Backoff
}

var _ docstore.Store = (*Docs)(nil)

func defaultReconnect() retry.Backoff {
	b := retry.NewExponential(200 * time.Millisecond)
	b = retry.WithCappedDuration(10*time.Second, b)
	return retry.WithMaxRetries(8, b)
}

// Get loads one document.
func (d *Docs) Get(ctx context.Context, collection, id string) (model.Document, error) {
	resp, err := d.api.GetDoc(ctx, &api.DocRef{Collection: collection, ID: id})
	if err != nil {
		return model.Document{}, fromStatus(err)
	}
	return model.Document{ID: resp.Doc.ID, Fields: resp.Doc.Fields.Model()}, nil
}

// Add inserts fields and returns the backend-assigned id.
func (d *Docs) Add(ctx context.Context, collection string, fields model.Fields) (string, error) {
	resp, err := d.api.AddDoc(ctx, &api.AddDocRequest{Collection: collection, Fields: api.FromModel(fields)})
	if err != nil {
		return "", fromStatus(err)
	}
	return resp.ID, nil
}

// Set creates or replaces the document id.
func (d *Docs) Set(ctx context.Context, collection, id string, fields model.Fields) error {
	_, err := d.api.SetDoc(ctx, &api.WriteDocRequest{Collection: collection, ID: id, Fields: api.FromModel(fields)})
	return fromStatus(err)
}

// Update merges patch into the document id.
func (d *Docs) Update(ctx context.Context, collection, id string, patch model.Fields) error {
	_, err := d.api.UpdateDoc(ctx, &api.WriteDocRequest{Collection: collection, ID: id, Fields: api.FromModel(patch)})
	return fromStatus(err)
}

// Delete removes the document id.
func (d *Docs) Delete(ctx context.Context, collection, id string) error {
	_, err := d.api.DeleteDoc(ctx, &api.DocRef{Collection: collection, ID: id})
	return fromStatus(err)
}

// List returns the collection in the requested order.
func (d *Docs) List(ctx context.Context, collection string, order docstore.Order) ([]model.Document, error) {
	resp, err := d.api.ListDocs(ctx, &api.ListDocsRequest{Collection: collection, OrderBy: order.Field, Desc: order.Desc})
	if err != nil {
		return nil, fromStatus(err)
	}
	return api.ToDocs(resp.Docs), nil
}

func toSnapshot(s *api.Snapshot) model.Snapshot {
	return model.Snapshot{Collection: s.Collection, Docs: api.ToDocs(s.Docs)}
}

// Subscribe opens a snapshot stream. ctx bounds only the wait for the first
// snapshot; the subscription lives until the returned Cancel is called.
// A broken stream is re-opened with backoff and resumes with a full snapshot.
func (d *Docs) Subscribe(ctx context.Context, collection string, fn docstore.SnapshotFunc) (docstore.Cancel, error) {
	if fn == nil {
		return nil, errs.Validation("callback")
	}
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopSetup := context.AfterFunc(ctx, cancel)

	stream, first, err := d.open(sctx, collection)
	if !stopSetup() || err != nil {
		cancel()
		if err == nil {
			err = ctx.Err()
		}
		return nil, err
	}

	mb := docstore.NewMailbox(fn)
	mb.Push(toSnapshot(first))
	go mb.Run()
	go d.pump(sctx, collection, stream, mb)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			mb.Stop()
		})
	}, nil
}

func (d *Docs) open(ctx context.Context, collection string) (api.Backend_SubscribeClient, *api.Snapshot, error) {
	stream, err := d.api.Subscribe(ctx, &api.SubscribeRequest{Collection: collection})
	if err != nil {
		return nil, nil, fromStatus(err)
	}
	first, err := stream.Recv()
	if err != nil {
		return nil, nil, fromStatus(err)
	}
	return stream, first, nil
}

// pump forwards snapshots until ctx is done or the stream cannot be re-opened.
func (d *Docs) pump(ctx context.Context, collection string, stream api.Backend_SubscribeClient, mb *docstore.Mailbox) {
	for {
		snap, err := stream.Recv()
		if err == nil {
			mb.Push(toSnapshot(snap))
			continue
		}
		if ctx.Err() != nil {
			return
		}
		d.log.Warn("subscription broken", zap.String("collection", collection), zap.Error(err))

		next := d.reconnect
		if next == nil {
			next = defaultReconnect
		}
		err = retry.Do(ctx, next(), func(ctx context.Context) error {
			s, first, err := d.open(ctx, collection)
			if err != nil {
				if transient(err) {
					return retry.RetryableError(err)
				}
				return err
			}
			stream = s
			mb.Push(toSnapshot(first))
			return nil
		})
		if err != nil {
			if ctx.Err() == nil {
				d.log.Error("subscription lost", zap.String("collection", collection), zap.Error(err))
			}
			return
		}
	}
}

func transient(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.Internal, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}
