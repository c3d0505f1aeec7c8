package service

import (
	"context"
	"sync"

	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/projection"
	"github.com/and161185/recipebook/internal/stream"
	"go.uber.org/zap"
)

// CategoryService reads the category list. Categories are managed out of band.
type CategoryService interface {
	List(ctx context.Context) ([]model.Category, error)
	Known() []model.Category
}

type CategoryServiceImpl struct {
	Deps
	store docstore.Store

	mu    sync.RWMutex
	known []model.Category
}

var _ CategoryService = (*CategoryServiceImpl)(nil)

// NewCategoryService constructs the category reader.
func NewCategoryService(store docstore.Store, d Deps) *CategoryServiceImpl {
	return &CategoryServiceImpl{Deps: d.withDefaults(), store: store}
}

// List fetches categories and remembers them for Known.
func (s *CategoryServiceImpl) List(ctx context.Context) ([]model.Category, error) {
	var docs []model.Document
	err := s.call(ctx, "list categories", func(ctx context.Context) (err error) {
		docs, err = s.store.List(ctx, model.CollectionCategories, docstore.Order{})
		return err
	})
	if err != nil {
		return nil, err
	}
	cats, skipped := stream.Materialize(docs, projection.Category, nil)
	for _, sk := range skipped {
		s.Log.Warn("skip malformed category", zap.String("id", sk.ID), zap.Error(sk.Err))
	}
	s.mu.Lock()
	s.known = cats
	s.mu.Unlock()
	return append([]model.Category(nil), cats...), nil
}

// Known returns the list fetched by the last successful List.
func (s *CategoryServiceImpl) Known() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Category(nil), s.known...)
}
