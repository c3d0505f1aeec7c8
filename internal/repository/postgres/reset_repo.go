package postgres

import (
	"context"
	"time"

	"github.com/and161185/recipebook/internal/model"
)

// ResetTokenRepo implements ResetTokenRepository using PostgreSQL.
type ResetTokenRepo struct{ db *DB }

// NewResetTokenRepo constructs a reset token repository.
func NewResetTokenRepo(db *DB) *ResetTokenRepo { return &ResetTokenRepo{db: db} }

// Put stores r, replacing a previous reset for the same email.
func (r *ResetTokenRepo) Put(ctx context.Context, pr model.PasswordReset) error {
	const q = `
INSERT INTO password_resets (email, token_hash, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE SET token_hash=EXCLUDED.token_hash, expires_at=EXCLUDED.expires_at`
	_, err := r.db.Pool.Exec(ctx, q, pr.Email, pr.TokenHash, pr.ExpiresAt)
	return err
}

// Take deletes and returns the unexpired reset matching tokenHash.
func (r *ResetTokenRepo) Take(ctx context.Context, tokenHash []byte, now time.Time) (model.PasswordReset, error) {
	const q = `
DELETE FROM password_resets
WHERE token_hash=$1 AND expires_at > $2
RETURNING email, token_hash, expires_at`
	var pr model.PasswordReset
	if err := r.db.Pool.QueryRow(ctx, q, tokenHash, now).Scan(&pr.Email, &pr.TokenHash, &pr.ExpiresAt); err != nil {
		return model.PasswordReset{}, mapNoRows(err)
	}
	return pr, nil
}
