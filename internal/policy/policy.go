// Package policy decides which actions a viewer may take on moderated entities.
//
// Decisions are pure functions of the viewer (identity and role) and the
// target (kind, owner and approval state).
package policy

import (
	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
)

// Viewer is the acting identity with its resolved role. The zero Viewer is anonymous.
type Viewer struct {
	Identity string
	Role     model.Role
}

// SignedIn reports whether the viewer has an identity.
func (v Viewer) SignedIn() bool { return v.Identity != "" }

// Admin reports whether the viewer holds the admin role.
func (v Viewer) Admin() bool { return v.SignedIn() && v.Role == model.RoleAdmin }

// Action is something a viewer attempts.
type Action string

const (
	View       Action = "view"
	Create     Action = "create"
	Edit       Action = "edit"
	Delete     Action = "delete"
	Approve    Action = "approve"
	ChangeRole Action = "change role of"
)

// Kind is the type of a Resource.
type Kind string

const (
	KindItem     Kind = "item"
	KindComment  Kind = "comment"
	KindFavorite Kind = "favorite"
	KindProfile  Kind = "profile"
)

// Resource is the part of an entity the policy looks at.
type Resource struct {
	Kind     Kind
	ID       string
	Owner    string // creator, author or profile key
	Approved bool
}

// ItemResource describes an item.
func ItemResource(it model.Item) Resource {
	return Resource{Kind: KindItem, ID: it.ID, Owner: it.Owner, Approved: it.Approved}
}

// CommentResource describes a comment.
func CommentResource(c model.Comment) Resource {
	return Resource{Kind: KindComment, ID: c.ID, Owner: c.Author}
}

// FavoriteResource describes a favorite.
func FavoriteResource(f model.Favorite) Resource {
	return Resource{Kind: KindFavorite, ID: f.ID, Owner: f.Author}
}

// ProfileResource describes the profile keyed by email.
func ProfileResource(email string) Resource {
	return Resource{Kind: KindProfile, ID: email, Owner: email}
}

func (v Viewer) owns(r Resource) bool { return v.SignedIn() && v.Identity == r.Owner }

// Allowed is the decision table.
func Allowed(v Viewer, a Action, r Resource) bool {
	switch r.Kind {
	case KindItem:
		switch a {
		case View:
			return r.Approved || v.owns(r) || v.Admin()
		case Create:
			return v.SignedIn()
		case Edit, Delete:
			return v.owns(r) || v.Admin()
		case Approve:
			return v.Admin()
		}
	case KindComment:
		switch a {
		case View:
			return true
		case Create:
			return v.SignedIn()
		case Edit, Delete:
			return v.owns(r)
		}
	case KindFavorite:
		switch a {
		case Create:
			return v.SignedIn()
		case View, Delete:
			return v.owns(r)
		}
	case KindProfile:
		switch a {
		case View:
			return v.owns(r) || v.Admin()
		case Create, Edit:
			return v.owns(r)
		case ChangeRole, Delete:
			return v.Admin()
		}
	}
	return false
}

// Authorize returns an *errs.AuthorizationError when a is not allowed.
func Authorize(v Viewer, a Action, r Resource) error {
	if Allowed(v, a, r) {
		return nil
	}
	res := string(r.Kind)
	if r.ID != "" {
		res += " " + r.ID
	}
	return &errs.AuthorizationError{Viewer: v.Identity, Action: string(a), Resource: res}
}

// CanViewItem reports whether it is visible to v.
func CanViewItem(v Viewer, it model.Item) bool { return Allowed(v, View, ItemResource(it)) }

// CanEditItem reports whether v may change the content of it.
func CanEditItem(v Viewer, it model.Item) bool { return Allowed(v, Edit, ItemResource(it)) }

// CanDeleteItem reports whether v may delete it.
func CanDeleteItem(v Viewer, it model.Item) bool { return Allowed(v, Delete, ItemResource(it)) }

// CanApprove reports whether v may approve items.
func CanApprove(v Viewer) bool { return Allowed(v, Approve, Resource{Kind: KindItem}) }

// CanEditComment reports whether v may edit or delete c.
func CanEditComment(v Viewer, c model.Comment) bool { return Allowed(v, Edit, CommentResource(c)) }

// CanEditProfile reports whether v may edit the fields of the profile keyed by email.
func CanEditProfile(v Viewer, email string) bool { return Allowed(v, Edit, ProfileResource(email)) }

// CanManageUsers reports whether v may change roles and delete profiles.
func CanManageUsers(v Viewer) bool { return Allowed(v, ChangeRole, Resource{Kind: KindProfile}) }

// ItemActions lists what v may do with it; views use it to hide unavailable actions.
func ItemActions(v Viewer, it model.Item) []Action {
	var out []Action
	for _, a := range []Action{Edit, Delete, Approve} {
		if a == Approve && it.Approved {
			continue
		}
		if Allowed(v, a, ItemResource(it)) {
			out = append(out, a)
		}
	}
	return out
}
