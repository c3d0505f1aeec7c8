package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/recipebook/internal/blobstore"
	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/policy"
	"github.com/and161185/recipebook/internal/projection"
)

// Identities is the part of the auth capability profile operations touch.
type Identities interface {
	UpdateDisplay(ctx context.Context, email, displayName, photoURL string) error
	DeleteIdentity(ctx context.Context, email string) error
}

// RoleCache is told when a stored role changes.
type RoleCache interface {
	Forget(identity string)
}

// ProfileService manages users/<email> profile documents.
type ProfileService interface {
	// Create stores the profile of a freshly signed-up identity with role user.
	Create(ctx context.Context, v policy.Viewer, p model.UserProfile) error
	Get(ctx context.Context, v policy.Viewer, email string) (model.UserProfile, error)
	UpdateFields(ctx context.Context, v policy.Viewer, email string, p model.ProfilePatch) error
	// UploadAvatar stores the image and points profile and auth display data at it.
	UploadAvatar(ctx context.Context, v policy.Viewer, email string, img Image) (string, error)
	SetRole(ctx context.Context, v policy.Viewer, email string, role model.Role) error
	// Delete removes the profile and then the auth identity after confirmation.
	Delete(ctx context.Context, v policy.Viewer, email string) (bool, error)
}

type ProfileServiceImpl struct {
	Deps
	store docstore.Store
	blobs blobstore.Store
	ids   Identities
	roles RoleCache
}

var _ ProfileService = (*ProfileServiceImpl)(nil)

// NewProfileService constructs the profile gateway. roles may be nil.
func NewProfileService(store docstore.Store, blobs blobstore.Store, ids Identities, roles RoleCache, d Deps) *ProfileServiceImpl {
	return &ProfileServiceImpl{Deps: d.withDefaults(), store: store, blobs: blobs, ids: ids, roles: roles}
}

// Create writes the profile under its email. Any requested role is replaced by user.
func (s *ProfileServiceImpl) Create(ctx context.Context, v policy.Viewer, p model.UserProfile) error {
	const op = "create profile"
	if err := validateStruct(struct {
		Email string `field:"email" validate:"required,email"`
	}{p.Email}); err != nil {
		return s.finish(ctx, op, err)
	}
	if err := policy.Authorize(v, policy.Create, policy.ProfileResource(p.Email)); err != nil {
		return s.finish(ctx, op, err)
	}
	p.Role = model.RoleUser
	err := s.call(ctx, op, func(ctx context.Context) error {
		return s.store.Set(ctx, model.CollectionUsers, p.Email, projection.ProfileFields(p))
	})
	return s.finish(ctx, op, err, zap.String("email", p.Email))
}

// Get loads a profile the viewer may see.
func (s *ProfileServiceImpl) Get(ctx context.Context, v policy.Viewer, email string) (model.UserProfile, error) {
	if err := policy.Authorize(v, policy.View, policy.ProfileResource(email)); err != nil {
		return model.UserProfile{}, err
	}
	var d model.Document
	err := s.call(ctx, "get profile", func(ctx context.Context) (err error) {
		d, err = s.store.Get(ctx, model.CollectionUsers, email)
		return err
	})
	if err != nil {
		return model.UserProfile{}, err
	}
	return projection.Profile(d)
}

// UpdateFields changes owner-editable fields. Role is not among them.
func (s *ProfileServiceImpl) UpdateFields(ctx context.Context, v policy.Viewer, email string, p model.ProfilePatch) error {
	const op = "update profile"
	patch := projection.ProfilePatchFields(p)
	if len(patch) == 0 {
		return s.finish(ctx, op, errs.Validation("patch"))
	}
	if err := policy.Authorize(v, policy.Edit, policy.ProfileResource(email)); err != nil {
		return s.finish(ctx, op, err)
	}
	err := s.call(ctx, op, func(ctx context.Context) error {
		return s.store.Update(ctx, model.CollectionUsers, email, patch)
	})
	if err == nil && p.DisplayName != nil {
		err = s.syncDisplay(ctx, email, *p.DisplayName, "")
	}
	return s.finish(ctx, op, err, zap.String("email", email))
}

// syncDisplay mirrors display data into the auth identity. An empty photo keeps the stored one.
func (s *ProfileServiceImpl) syncDisplay(ctx context.Context, email, name, photo string) error {
	if s.ids == nil {
		return nil
	}
	if name == "" || photo == "" {
		cur, err := s.Get(ctx, policy.Viewer{Identity: email}, email)
		if err != nil {
			return err
		}
		if name == "" {
			name = cur.DisplayName
		}
		if photo == "" {
			photo = cur.AvatarURL
		}
	}
	return s.call(ctx, "update identity", func(ctx context.Context) error {
		return s.ids.UpdateDisplay(ctx, email, name, photo)
	})
}

// UploadAvatar replaces the avatar of the profile keyed by email.
func (s *ProfileServiceImpl) UploadAvatar(ctx context.Context, v policy.Viewer, email string, img Image) (string, error) {
	const op = "upload avatar"
	if len(img.Data) == 0 {
		return "", s.finish(ctx, op, errs.Validation("image"))
	}
	if err := policy.Authorize(v, policy.Edit, policy.ProfileResource(email)); err != nil {
		return "", s.finish(ctx, op, err)
	}
	path := blobstore.AvatarPath(email)
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
		return "", s.finish(ctx, op, err)
	}
	err = s.call(ctx, "update profile", func(ctx context.Context) error {
		return s.store.Update(ctx, model.CollectionUsers, email, model.Fields{projection.FieldAvatarURL: url})
	})
	if err == nil {
		err = s.syncDisplay(ctx, email, "", url)
	}
	return url, s.finish(ctx, op, err, zap.String("email", email))
}

// SetRole changes the role of a profile. Only admins may do it.
func (s *ProfileServiceImpl) SetRole(ctx context.Context, v policy.Viewer, email string, role model.Role) error {
	const op = "set role"
	if !role.Valid() {
		return s.finish(ctx, op, errs.Validation("role"))
	}
	if err := policy.Authorize(v, policy.ChangeRole, policy.ProfileResource(email)); err != nil {
		return s.finish(ctx, op, err)
	}
	err := s.call(ctx, op, func(ctx context.Context) error {
		return s.store.Update(ctx, model.CollectionUsers, email, model.Fields{projection.FieldRole: string(role)})
	})
	if err == nil && s.roles != nil {
		s.roles.Forget(email)
	}
	return s.finish(ctx, op, err, zap.String("email", email), zap.String("role", string(role)))
}

// Delete removes the profile document and then the auth identity. The two
// calls are independent: if the second fails the result is a
// *errs.TwoStepDeletionError and the profile stays deleted.
func (s *ProfileServiceImpl) Delete(ctx context.Context, v policy.Viewer, email string) (bool, error) {
	const op = "delete user"
	if err := policy.Authorize(v, policy.Delete, policy.ProfileResource(email)); err != nil {
		return false, s.finish(ctx, op, err)
	}
	ok, err := s.Confirm.Confirm(ctx, fmt.Sprintf("Delete user %s?", email))
	if err != nil {
		return false, s.finish(ctx, op, err, zap.String("email", email))
	}
	if !ok {
		s.Log.Info(op+" declined", zap.String("email", email))
		return false, nil
	}
	err = s.call(ctx, "delete profile", func(ctx context.Context) error {
		return s.store.Delete(ctx, model.CollectionUsers, email)
	})
	if err != nil {
		return false, s.finish(ctx, op, err, zap.String("email", email))
	}
	if s.roles != nil {
		s.roles.Forget(email)
	}
	if s.ids != nil {
		err = s.call(ctx, "delete identity", func(ctx context.Context) error {
			return s.ids.DeleteIdentity(ctx, email)
		})
		if err != nil {
			err = &errs.TwoStepDeletionError{Identity: email, Err: err}
		}
	}
	return true, s.finish(ctx, op, err, zap.String("email", email))
}
