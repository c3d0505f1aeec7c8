// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/recipebook/internal/model"
)

// UserRepository provides access to authentication identities.
type UserRepository interface {
	// Create inserts a new user; an existing email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// SetPassword replaces hash and salt.
	SetPassword(ctx context.Context, email string, hash, salt []byte) error
	// UpdateDisplay stores display name and photo URL.
	UpdateDisplay(ctx context.Context, email, displayName, photoURL string) error
	// Delete removes the identity.
	Delete(ctx context.Context, email string) error
}

// ResetTokenRepository keeps pending password resets.
type ResetTokenRepository interface {
	// Put stores a reset, replacing any earlier one for the same email.
	Put(ctx context.Context, r model.PasswordReset) error
	// Take loads and removes a reset by token hash if it has not expired at now.
	Take(ctx context.Context, tokenHash []byte, now time.Time) (model.PasswordReset, error)
}
