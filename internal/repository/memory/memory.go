// Package memory keeps identities and password resets in process, for
// servers started without a database.
package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/repository"
)

// UserRepo implements repository.UserRepository.
type UserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
}

var _ repository.UserRepository = (*UserRepo)(nil)

func NewUserRepo() *UserRepo { return &UserRepo{users: map[string]model.User{}} }

func (r *UserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Email]; ok {
		return errs.ErrAlreadyExists
	}
	r.users[u.Email] = *u
	return nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepo) SetPassword(_ context.Context, email string, hash, salt []byte) error {
	return r.update(email, func(u *model.User) { u.PwdHash, u.SaltAuth = hash, salt })
}

func (r *UserRepo) UpdateDisplay(_ context.Context, email, displayName, photoURL string) error {
	return r.update(email, func(u *model.User) { u.DisplayName, u.PhotoURL = displayName, photoURL })
}

func (r *UserRepo) Delete(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[email]; !ok {
		return errs.ErrNotFound
	}
	delete(r.users, email)
	return nil
}

func (r *UserRepo) update(email string, fn func(*model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return errs.ErrNotFound
	}
	fn(&u)
	r.users[email] = u
	return nil
}

// ResetTokenRepo implements repository.ResetTokenRepository; one reset per email.
type ResetTokenRepo struct {
	mu     sync.Mutex
	resets map[string]model.PasswordReset
}

var _ repository.ResetTokenRepository = (*ResetTokenRepo)(nil)

func NewResetTokenRepo() *ResetTokenRepo {
	return &ResetTokenRepo{resets: map[string]model.PasswordReset{}}
}

func (r *ResetTokenRepo) Put(_ context.Context, pr model.PasswordReset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets[pr.Email] = pr
	return nil
}

func (r *ResetTokenRepo) Take(_ context.Context, tokenHash []byte, now time.Time) (model.PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for email, pr := range r.resets {
		if bytes.Equal(pr.TokenHash, tokenHash) && pr.ExpiresAt.After(now) {
			delete(r.resets, email)
			return pr, nil
		}
	}
	return model.PasswordReset{}, errs.ErrNotFound
}
