package postgres

import (
	"context"

	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (email, pwd_hash, salt_auth, display_name, photo_url)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, u.Email, u.PwdHash, u.SaltAuth, u.DisplayName, u.PhotoURL)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `
SELECT email, pwd_hash, salt_auth, display_name, photo_url, created_at
FROM users WHERE email=$1`
	row := r.db.Pool.QueryRow(ctx, q, email)
	var u model.User
	if err := row.Scan(&u.Email, &u.PwdHash, &u.SaltAuth, &u.DisplayName, &u.PhotoURL, &u.CreatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	return &u, nil
}

// SetPassword replaces the password hash and salt.
func (r *UserRepo) SetPassword(ctx context.Context, email string, hash, salt []byte) error {
	const q = `UPDATE users SET pwd_hash=$2, salt_auth=$3 WHERE email=$1`
	return r.execOne(ctx, q, email, hash, salt)
}

// UpdateDisplay stores display name and photo URL.
func (r *UserRepo) UpdateDisplay(ctx context.Context, email, displayName, photoURL string) error {
	const q = `UPDATE users SET display_name=$2, photo_url=$3 WHERE email=$1`
	return r.execOne(ctx, q, email, displayName, photoURL)
}

// Delete removes the user row.
func (r *UserRepo) Delete(ctx context.Context, email string) error {
	const q = `DELETE FROM users WHERE email=$1`
	return r.execOne(ctx, q, email)
}

func (r *UserRepo) execOne(ctx context.Context, q string, args ...any) error {
	tag, err := r.db.Pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
