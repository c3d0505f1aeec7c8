package modlist

import (
	"go.uber.org/zap"

	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/policy"
	"github.com/and161185/recipebook/internal/projection"
	"github.com/and161185/recipebook/internal/search"
)

// Options are the settings shared by every configured screen.
type Options[T any] struct {
	Store    docstore.Store
	Viewer   policy.Viewer
	OnChange func([]Row[T])
	Log      *zap.Logger
}

func items(o Options[model.Item], keep func(model.Item) bool) *List[model.Item] {
	return New(Config[model.Item]{
		Store:      o.Store,
		Collection: model.CollectionFoods,
		Decode:     projection.Item,
		Keep:       keep,
		Name:       search.ItemName,
		Actions:    policy.ItemActions,
		Viewer:     o.Viewer,
		OnChange:   o.OnChange,
		Log:        o.Log,
	})
}

// Public lists approved items.
func Public(o Options[model.Item]) *List[model.Item] {
	return items(o, func(it model.Item) bool { return it.Approved })
}

// Mine lists the viewer's own items, approved or not.
func Mine(o Options[model.Item]) (*List[model.Item], error) {
	if !o.Viewer.SignedIn() {
		return nil, policy.Authorize(o.Viewer, policy.View, policy.Resource{Kind: policy.KindItem})
	}
	owner := o.Viewer.Identity
	return items(o, func(it model.Item) bool { return it.Owner == owner }), nil
}

// Pending lists items awaiting approval. Admin only.
func Pending(o Options[model.Item]) (*List[model.Item], error) {
	if err := policy.Authorize(o.Viewer, policy.Approve, policy.Resource{Kind: policy.KindItem}); err != nil {
		return nil, err
	}
	return items(o, func(it model.Item) bool { return !it.Approved }), nil
}

// Category lists the viewer's own items in one category.
func Category(o Options[model.Item], category string) (*List[model.Item], error) {
	if !o.Viewer.SignedIn() {
		return nil, policy.Authorize(o.Viewer, policy.View, policy.Resource{Kind: policy.KindItem})
	}
	owner := o.Viewer.Identity
	return items(o, func(it model.Item) bool { return it.Category == category && it.Owner == owner }), nil
}

func profileName(p model.UserProfile) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}

func profileActions(v policy.Viewer, p model.UserProfile) []policy.Action {
	var out []policy.Action
	for _, a := range []policy.Action{policy.Edit, policy.ChangeRole, policy.Delete} {
		if policy.Allowed(v, a, policy.ProfileResource(p.Email)) {
			out = append(out, a)
		}
	}
	return out
}

// Users lists every profile. Admin only.
func Users(o Options[model.UserProfile]) (*List[model.UserProfile], error) {
	if err := policy.Authorize(o.Viewer, policy.ChangeRole, policy.Resource{Kind: policy.KindProfile}); err != nil {
		return nil, err
	}
	return New(Config[model.UserProfile]{
		Store:      o.Store,
		Collection: model.CollectionUsers,
		Decode:     projection.Profile,
		Name:       profileName,
		Actions:    profileActions,
		Viewer:     o.Viewer,
		OnChange:   o.OnChange,
		Log:        o.Log,
	}), nil
}

// Favorites lists the viewer's favorites.
func Favorites(o Options[model.Favorite]) (*List[model.Favorite], error) {
	if !o.Viewer.SignedIn() {
		return nil, policy.Authorize(o.Viewer, policy.View, policy.Resource{Kind: policy.KindFavorite})
	}
	owner := o.Viewer.Identity
	return New(Config[model.Favorite]{
		Store:      o.Store,
		Collection: model.CollectionFavorites,
		Decode:     projection.Favorite,
		Keep:       func(f model.Favorite) bool { return f.Author == owner },
		Name:       func(f model.Favorite) string { return f.Name },
		Actions: func(v policy.Viewer, f model.Favorite) []policy.Action {
			if policy.Allowed(v, policy.Delete, policy.FavoriteResource(f)) {
				return []policy.Action{policy.Delete}
			}
			return nil
		},
		Viewer:   o.Viewer,
		OnChange: o.OnChange,
		Log:      o.Log,
	}), nil
}

// Thread lists the comments of one item, newest first.
func Thread(o Options[model.Comment], itemName string) *List[model.Comment] {
	return New(Config[model.Comment]{
		Store:      o.Store,
		Collection: model.CommentsCollection(itemName),
		Decode:     projection.Comment(itemName),
		Order:      projection.NewestFirst,
		Name:       func(c model.Comment) string { return c.Text },
		Actions: func(v policy.Viewer, c model.Comment) []policy.Action {
			if policy.CanEditComment(v, c) {
				return []policy.Action{policy.Edit, policy.Delete}
			}
			return nil
		},
		Viewer:   o.Viewer,
		OnChange: o.OnChange,
		Log:      o.Log,
	})
}

// Categories lists the read-only category collection.
func Categories(o Options[model.Category]) *List[model.Category] {
	return New(Config[model.Category]{
		Store:      o.Store,
		Collection: model.CollectionCategories,
		Decode:     projection.Category,
		Name:       func(c model.Category) string { return c.Name },
		OnChange:   o.OnChange,
		Log:        o.Log,
	})
}
