package service

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/policy"
	"github.com/and161185/recipebook/internal/projection"
	"github.com/and161185/recipebook/internal/stream"
)

// CommentService manages per-item comment threads.
type CommentService interface {
	Add(ctx context.Context, v policy.Viewer, itemName, text string) (string, error)
	Edit(ctx context.Context, v policy.Viewer, itemName, id, text string) error
	Delete(ctx context.Context, v policy.Viewer, itemName, id string) error
	// List returns the thread newest first.
	List(ctx context.Context, itemName string) ([]model.Comment, error)
}

type CommentServiceImpl struct {
	Deps
	store docstore.Store
}

var _ CommentService = (*CommentServiceImpl)(nil)

// NewCommentService constructs the comment gateway.
func NewCommentService(store docstore.Store, d Deps) *CommentServiceImpl {
	return &CommentServiceImpl{Deps: d.withDefaults(), store: store}
}

type commentInput struct {
	Item string `field:"item" validate:"notblank"`
	Text string `field:"comment" validate:"notblank"`
}

// Add appends a comment by the viewer; the store assigns its timestamp.
func (s *CommentServiceImpl) Add(ctx context.Context, v policy.Viewer, itemName, text string) (string, error) {
	const op = "add comment"
	if err := validateStruct(commentInput{Item: itemName, Text: text}); err != nil {
		return "", s.finish(ctx, op, err)
	}
	if err := policy.Authorize(v, policy.Create, policy.Resource{Kind: policy.KindComment}); err != nil {
		return "", s.finish(ctx, op, err)
	}
	var id string
	err := s.call(ctx, op, func(ctx context.Context) (err error) {
		id, err = s.store.Add(ctx, model.CommentsCollection(itemName), projection.NewCommentFields(v.Identity, text))
		return err
	})
	return id, s.finish(ctx, op, err, zap.String("item", itemName))
}

func (s *CommentServiceImpl) load(ctx context.Context, itemName, id string) (model.Comment, error) {
	var d model.Document
	err := s.call(ctx, "get comment", func(ctx context.Context) (err error) {
		d, err = s.store.Get(ctx, model.CommentsCollection(itemName), id)
		return err
	})
	if err != nil {
		return model.Comment{}, err
	}
	return projection.Comment(itemName)(d)
}

// Edit replaces the text of the viewer's own comment.
func (s *CommentServiceImpl) Edit(ctx context.Context, v policy.Viewer, itemName, id, text string) error {
	const op = "edit comment"
	if err := validateStruct(commentInput{Item: itemName, Text: text}); err != nil {
		return s.finish(ctx, op, err)
	}
	c, err := s.load(ctx, itemName, id)
	if err != nil {
		return s.finish(ctx, op, err, zap.String("id", id))
	}
	if err := policy.Authorize(v, policy.Edit, policy.CommentResource(c)); err != nil {
		return s.finish(ctx, op, err, zap.String("id", id))
	}
	err = s.call(ctx, op, func(ctx context.Context) error {
		return s.store.Update(ctx, model.CommentsCollection(itemName), id, model.Fields{projection.FieldComment: text})
	})
	return s.finish(ctx, op, err, zap.String("id", id))
}

// Delete removes the viewer's own comment.
func (s *CommentServiceImpl) Delete(ctx context.Context, v policy.Viewer, itemName, id string) error {
	const op = "delete comment"
	c, err := s.load(ctx, itemName, id)
	if err != nil {
		return s.finish(ctx, op, err, zap.String("id", id))
	}
	if err := policy.Authorize(v, policy.Delete, policy.CommentResource(c)); err != nil {
		return s.finish(ctx, op, err, zap.String("id", id))
	}
	err = s.call(ctx, op, func(ctx context.Context) error {
		return s.store.Delete(ctx, model.CommentsCollection(itemName), id)
	})
	return s.finish(ctx, op, err, zap.String("id", id))
}

// List reads the thread of itemName newest first. Malformed comments are skipped.
func (s *CommentServiceImpl) List(ctx context.Context, itemName string) ([]model.Comment, error) {
	if itemName == "" {
		return nil, errs.Validation("item")
	}
	var docs []model.Document
	err := s.call(ctx, "list comments", func(ctx context.Context) (err error) {
		docs, err = s.store.List(ctx, model.CommentsCollection(itemName), docstore.Order{Field: projection.FieldTimestamp, Desc: true})
		return err
	})
	if err != nil {
		return nil, err
	}
	out, skipped := stream.Materialize(docs, projection.Comment(itemName), nil)
	for _, sk := range skipped {
		s.Log.Warn("skip malformed comment", zap.String("id", sk.ID), zap.Error(sk.Err))
	}
	slices.SortStableFunc(out, projection.NewestFirst)
	return out, nil
}
