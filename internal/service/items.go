package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/recipebook/internal/blobstore"
	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/policy"
	"github.com/and161185/recipebook/internal/projection"
)

// ItemService is the mutation gateway for recipes.
type ItemService interface {
	// Create uploads the image and adds an unapproved item owned by the viewer.
	Create(ctx context.Context, v policy.Viewer, d model.ItemDraft, img Image) (string, error)
	// Update changes content fields of an item. The patch names its
	// category by id.
	Update(ctx context.Context, v policy.Viewer, id string, p model.ItemPatch) error
	// Delete removes an item after confirmation; false means the user declined.
	Delete(ctx context.Context, v policy.Viewer, id string) (bool, error)
	// Approve makes an item publicly visible.
	Approve(ctx context.Context, v policy.Viewer, id string) error
	// Get loads an item the viewer may see.
	Get(ctx context.Context, v policy.Viewer, id string) (model.Item, error)
}

// CategorySource returns the last fetched category list.
type CategorySource interface {
	Known() []model.Category
}

type ItemServiceImpl struct {
	Deps
	store docstore.Store
	blobs blobstore.Store
	cats  CategorySource
}

var _ ItemService = (*ItemServiceImpl)(nil)

// NewItemService constructs the item gateway.
func NewItemService(store docstore.Store, blobs blobstore.Store, cats CategorySource, d Deps) *ItemServiceImpl {
	return &ItemServiceImpl{Deps: d.withDefaults(), store: store, blobs: blobs, cats: cats}
}

type itemInput struct {
	Name        string `field:"name" validate:"notblank"`
	Ingredient  string `field:"ingredient" validate:"notblank"`
	Instruction string `field:"instruction" validate:"notblank"`
	Category    string `field:"category" validate:"notblank"`
	Image       []byte `field:"image" validate:"min=1"`
}

// Create validates the draft before any capability call, then uploads the
// image, resolves its URL and adds the item document in that order.
// A blob left behind by a later failure is logged, not removed.
func (s *ItemServiceImpl) Create(ctx context.Context, v policy.Viewer, d model.ItemDraft, img Image) (string, error) {
	const op = "create item"
	in := itemInput{Name: d.Name, Ingredient: d.Ingredient, Instruction: d.Instruction, Category: d.CategoryID, Image: img.Data}
	if err := validateStruct(in); err != nil {
		return "", s.finish(ctx, op, err)
	}
	if err := policy.Authorize(v, policy.Create, policy.Resource{Kind: policy.KindItem}); err != nil {
		return "", s.finish(ctx, op, err)
	}

	path := blobstore.ImagePath(d.Name, s.Now())
	err := s.call(ctx, "upload image", func(ctx context.Context) error {
		return s.blobs.Upload(ctx, path, img.Data, img.contentType())
	})
	if err != nil {
		return "", s.finish(ctx, op, err)
	}

	var url string
	err = s.call(ctx, "image url", func(ctx context.Context) (err error) {
		url, err = s.blobs.DownloadURL(ctx, path)
		return err
	})
	if err != nil {
		s.orphan(path, err)
		return "", s.finish(ctx, op, err)
	}

	var category string
	if s.cats != nil {
		category = projection.CategoryName(s.cats.Known(), d.CategoryID)
	}
	item := model.Item{
		Name:        d.Name,
		Ingredient:  d.Ingredient,
		Instruction: d.Instruction,
		ImageURL:    url,
		Category:    category,
		Owner:       v.Identity,
	}
	var id string
	err = s.call(ctx, "add item", func(ctx context.Context) (err error) {
		id, err = s.store.Add(ctx, model.CollectionFoods, projection.ItemFields(item))
		return err
	})
	if err != nil {
		s.orphan(path, err)
		return "", s.finish(ctx, op, err)
	}
	return id, s.finish(ctx, op, nil, zap.String("id", id), zap.String("name", d.Name))
}

// orphan records a blob whose item was never written, for offline cleanup.
func (s *ItemServiceImpl) orphan(path string, cause error) {
	s.Log.Warn("orphaned blob", zap.String("orphan_path", path), zap.Error(cause))
}

func (s *ItemServiceImpl) load(ctx context.Context, id string) (model.Item, error) {
	var d model.Document
	err := s.call(ctx, "get item", func(ctx context.Context) (err error) {
		d, err = s.store.Get(ctx, model.CollectionFoods, id)
		return err
	})
	if err != nil {
		return model.Item{}, err
	}
	return projection.Item(d)
}

// Get loads an item the viewer may see.
func (s *ItemServiceImpl) Get(ctx context.Context, v policy.Viewer, id string) (model.Item, error) {
	it, err := s.load(ctx, id)
	if err != nil {
		return model.Item{}, err
	}
	if err := policy.Authorize(v, policy.View, policy.ItemResource(it)); err != nil {
		return model.Item{}, err
	}
	return it, nil
}

func blankSet(fields map[string]*string) []string {
	var out []string
	for k, p := range fields {
		if p != nil && strings.TrimSpace(*p) == "" {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// Update changes content fields. The approval flag is not patchable here.
// The category id is stored as the name it resolves to among the known
// categories; an unknown id is rejected.
func (s *ItemServiceImpl) Update(ctx context.Context, v policy.Viewer, id string, p model.ItemPatch) error {
	const op = "update item"
	if p.Empty() {
		return s.finish(ctx, op, errs.Validation("patch"))
	}
	blank := blankSet(map[string]*string{"name": p.Name, "ingredient": p.Ingredient, "instruction": p.Instruction, "category": p.Category})
	if len(blank) > 0 {
		return s.finish(ctx, op, errs.Validation(blank...))
	}
	if p.Category != nil {
		var name string
		if s.cats != nil {
			name = projection.CategoryName(s.cats.Known(), *p.Category)
		}
		if name == "" {
			return s.finish(ctx, op, errs.Validation("category"), zap.String("category", *p.Category))
		}
		p.Category = &name
	}
	it, err := s.load(ctx, id)
	if err != nil {
		return s.finish(ctx, op, err, zap.String("id", id))
	}
	if err := policy.Authorize(v, policy.Edit, policy.ItemResource(it)); err != nil {
		return s.finish(ctx, op, err, zap.String("id", id))
	}
	err = s.call(ctx, "update item", func(ctx context.Context) error {
		return s.store.Update(ctx, model.CollectionFoods, id, projection.ItemPatchFields(p))
	})
	return s.finish(ctx, op, err, zap.String("id", id))
}

// Delete asks for confirmation and removes the item. Declining touches nothing.
func (s *ItemServiceImpl) Delete(ctx context.Context, v policy.Viewer, id string) (bool, error) {
	const op = "delete item"
	it, err := s.load(ctx, id)
	if err != nil {
		return false, s.finish(ctx, op, err, zap.String("id", id))
	}
	if err := policy.Authorize(v, policy.Delete, policy.ItemResource(it)); err != nil {
		return false, s.finish(ctx, op, err, zap.String("id", id))
	}
	ok, err := s.Confirm.Confirm(ctx, fmt.Sprintf("Delete %q?", it.Name))
	if err != nil {
		return false, s.finish(ctx, op, err, zap.String("id", id))
	}
	if !ok {
		s.Log.Info(op+" declined", zap.String("id", id))
		return false, nil
	}
	err = s.call(ctx, "delete item", func(ctx context.Context) error {
		return s.store.Delete(ctx, model.CollectionFoods, id)
	})
	return err == nil, s.finish(ctx, op, err, zap.String("id", id))
}

// Approve sets the approval flag. Only admins may approve.
func (s *ItemServiceImpl) Approve(ctx context.Context, v policy.Viewer, id string) error {
	const op = "approve item"
	if err := policy.Authorize(v, policy.Approve, policy.Resource{Kind: policy.KindItem, ID: id}); err != nil {
		return s.finish(ctx, op, err, zap.String("id", id))
	}
	err := s.call(ctx, "approve item", func(ctx context.Context) error {
		return s.store.Update(ctx, model.CollectionFoods, id, model.Fields{projection.FieldApproved: true})
	})
	return s.finish(ctx, op, err, zap.String("id", id))
}
