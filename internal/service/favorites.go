package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/policy"
	"github.com/and161185/recipebook/internal/projection"
	"github.com/and161185/recipebook/internal/stream"
)

// FavoriteService keeps frozen copies of items a user liked.
type FavoriteService interface {
	// Add stores a snapshot of it; a second favorite of the same name is ErrAlreadyExists.
	Add(ctx context.Context, v policy.Viewer, it model.Item) (string, error)
	Remove(ctx context.Context, v policy.Viewer, id string) error
	List(ctx context.Context, v policy.Viewer) ([]model.Favorite, error)
}

type FavoriteServiceImpl struct {
	Deps
	store docstore.Store
}

var _ FavoriteService = (*FavoriteServiceImpl)(nil)

// NewFavoriteService constructs the favorites gateway.
func NewFavoriteService(store docstore.Store, d Deps) *FavoriteServiceImpl {
	return &FavoriteServiceImpl{Deps: d.withDefaults(), store: store}
}

// List returns the viewer's favorites in store order.
func (s *FavoriteServiceImpl) List(ctx context.Context, v policy.Viewer) ([]model.Favorite, error) {
	if !v.SignedIn() {
		return nil, errs.ErrUnauthorized
	}
	var docs []model.Document
	err := s.call(ctx, "list favorites", func(ctx context.Context) (err error) {
		docs, err = s.store.List(ctx, model.CollectionFavorites, docstore.Order{})
		return err
	})
	if err != nil {
		return nil, err
	}
	favs, skipped := stream.Materialize(docs, projection.Favorite, func(f model.Favorite) bool { return f.Author == v.Identity })
	for _, sk := range skipped {
		s.Log.Warn("skip malformed favorite", zap.String("id", sk.ID), zap.Error(sk.Err))
	}
	return favs, nil
}

// Add freezes the display fields of it for the viewer.
func (s *FavoriteServiceImpl) Add(ctx context.Context, v policy.Viewer, it model.Item) (string, error) {
	const op = "add favorite"
	if err := policy.Authorize(v, policy.Create, policy.Resource{Kind: policy.KindFavorite}); err != nil {
		return "", s.finish(ctx, op, err)
	}
	if err := validateStruct(struct {
		Name string `field:"name" validate:"notblank"`
	}{it.Name}); err != nil {
		return "", s.finish(ctx, op, err)
	}
	existing, err := s.List(ctx, v)
	if err != nil {
		return "", s.finish(ctx, op, err)
	}
	for _, f := range existing {
		if f.Name == it.Name {
			return "", s.finish(ctx, op, errs.ErrAlreadyExists, zap.String("name", it.Name))
		}
	}
	var id string
	err = s.call(ctx, op, func(ctx context.Context) (err error) {
		id, err = s.store.Add(ctx, model.CollectionFavorites, projection.FavoriteFields(v.Identity, it))
		return err
	})
	return id, s.finish(ctx, op, err, zap.String("name", it.Name))
}

// Remove deletes one of the viewer's favorites.
func (s *FavoriteServiceImpl) Remove(ctx context.Context, v policy.Viewer, id string) error {
	const op = "remove favorite"
	var d model.Document
	err := s.call(ctx, "get favorite", func(ctx context.Context) (err error) {
		d, err = s.store.Get(ctx, model.CollectionFavorites, id)
		return err
	})
	if err != nil {
		return s.finish(ctx, op, err, zap.String("id", id))
	}
	f, err := projection.Favorite(d)
	if err != nil {
		return s.finish(ctx, op, err, zap.String("id", id))
	}
	if err := policy.Authorize(v, policy.Delete, policy.FavoriteResource(f)); err != nil {
		return s.finish(ctx, op, err, zap.String("id", id))
	}
	err = s.call(ctx, op, func(ctx context.Context) error {
		return s.store.Delete(ctx, model.CollectionFavorites, id)
	})
	return s.finish(ctx, op, err, zap.String("id", id))
}
