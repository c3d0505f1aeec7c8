package policy

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru"

	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/projection"
)

// RoleResolver reads the role of an identity from its users/<email> profile
// and caches it until the identity changes or the role is rewritten.
type RoleResolver struct {
	store docstore.Store
	cache *lru.Cache
}

// NewRoleResolver constructs a resolver caching up to size identities.
func NewRoleResolver(store docstore.Store, size int) (*RoleResolver, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &RoleResolver{store: store, cache: c}, nil
}

// Viewer returns the viewer for identity. An identity without a profile is a plain user.
func (r *RoleResolver) Viewer(ctx context.Context, identity string) (Viewer, error) {
	if identity == "" {
		return Viewer{}, nil
	}
	if v, ok := r.cache.Get(identity); ok {
		return Viewer{Identity: identity, Role: v.(model.Role)}, nil
	}
	role := model.RoleUser
	d, err := r.store.Get(ctx, model.CollectionUsers, identity)
	switch {
	case err == nil:
		if p, perr := projection.Profile(d); perr == nil {
			role = p.Role
		}
	case errors.Is(err, errs.ErrNotFound):
	default:
		return Viewer{Identity: identity, Role: model.RoleUser}, errs.Remote("resolve role", err)
	}
	r.cache.Add(identity, role)
	return Viewer{Identity: identity, Role: role}, nil
}

// Forget drops the cached role of identity.
func (r *RoleResolver) Forget(identity string) { r.cache.Remove(identity) }

// Reset drops every cached role. Call it when the signed-in identity changes.
func (r *RoleResolver) Reset() { r.cache.Purge() }
